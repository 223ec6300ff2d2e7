// Copyright 2025 the bzl-gen-build authors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/bazeltools/bzl-gen-build/internal/bootstrap"
	"github.com/bazeltools/bzl-gen-build/internal/errors"
	"github.com/bazeltools/bzl-gen-build/internal/output"
	"github.com/bazeltools/bzl-gen-build/internal/ui"
	"github.com/bazeltools/bzl-gen-build/pkg/concurrency"
	"github.com/bazeltools/bzl-gen-build/pkg/extract"
	"github.com/bazeltools/bzl-gen-build/pkg/metrics"
	"github.com/bazeltools/bzl-gen-build/pkg/project"
)

// runExtract executes Phase E: walk every configured module's source
// roots, dispatch retained files to their configured extractor, and
// persist the resulting ExtractedMappings index.
func runExtract(args []string) {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	globals := bindGlobalFlags(fs)
	pipeline := bindPipelineFlags(fs, true)
	extractors := fs.StringArray("extractor", nil, "Module=executable-path pair; repeatable")
	outPath := fs.String("output", "", "Path to write the ExtractedMappings JSON index (required)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: bzl-gen-build extract [options]

Phase E: walks every configured module's main and test roots, dispatches
retained files to their configured per-language extractor, and persists
the merged per-unit TreeNode artifacts in the cache.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	ui.InitColors(globals.NoColor)

	if *outPath == "" {
		errors.FatalError(errors.NewConfigError(
			"missing required flag --output",
			"", "pass --output <path> to write the ExtractedMappings index", nil,
		), globals.JSON)
	}

	conf, err := project.Load(pipeline.ProjectConfig)
	if err != nil {
		errors.FatalError(errors.NewConfigError("cannot load project configuration", err.Error(), "check --project-config points at a valid file", err), globals.JSON)
	}

	cache, err := bootstrap.InitCache(bootstrap.CacheConfig{Root: pipeline.CacheRoot}, nil)
	if err != nil {
		errors.FatalError(errors.NewIOError("cannot initialize cache", err.Error(), "", err), globals.JSON)
	}

	extractorMap, err := parseExtractorFlags(*extractors)
	if err != nil {
		errors.FatalError(errors.NewConfigError("invalid --extractor flag", err.Error(), "pass --extractor module=/path/to/executable", err), globals.JSON)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if !globals.Quiet {
		ui.Header("Extracting")
	}

	spinner := NewSpinner(NewProgressConfig(globals), "walking modules and running extractors")

	start := time.Now()
	mappings, err := extract.Run(ctx, extract.Options{
		Conf:       conf,
		Extractors: extractorMap,
		Cache:      cache.ExtractCache(),
		WorkingDir: pipeline.WorkingDir,
		Aggregated: pipeline.Aggregated,
		Permits:    concurrency.NewPermits(pipeline.Concurrency),
	})
	finishSpinner(spinner)
	metrics.ExtractDuration(time.Since(start).Seconds())
	if err != nil {
		errors.FatalError(err, globals.JSON)
	}

	if err := writeJSONFile(*outPath, mappings); err != nil {
		errors.FatalError(errors.NewIOError("cannot write extracted-mappings index", err.Error(), "", err), globals.JSON)
	}

	if globals.JSON {
		_ = output.JSON(mappings)
		return
	}
	ui.Successf("Extracted %d units", len(mappings.RelativePathToExtractMapping))
}

// parseExtractorFlags parses repeated "module=path" flags into a map.
func parseExtractorFlags(flags []string) (map[string]string, error) {
	result := map[string]string{}
	for _, f := range flags {
		idx := strings.IndexByte(f, '=')
		if idx <= 0 {
			return nil, fmt.Errorf("expected module=path, got %q", f)
		}
		result[f[:idx]] = f[idx+1:]
	}
	return result, nil
}
