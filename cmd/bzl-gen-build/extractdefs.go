// Copyright 2025 the bzl-gen-build authors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/bazeltools/bzl-gen-build/internal/bootstrap"
	"github.com/bazeltools/bzl-gen-build/internal/errors"
	"github.com/bazeltools/bzl-gen-build/internal/output"
	"github.com/bazeltools/bzl-gen-build/internal/ui"
	"github.com/bazeltools/bzl-gen-build/pkg/concurrency"
	"github.com/bazeltools/bzl-gen-build/pkg/extract"
	"github.com/bazeltools/bzl-gen-build/pkg/extractdefs"
	"github.com/bazeltools/bzl-gen-build/pkg/metrics"
)

// runExtractDefs executes Phase D: combine every contributing
// ExtractedMappings index's per-unit defs into one PathToDefs index.
func runExtractDefs(args []string) {
	fs := flag.NewFlagSet("extract-defs", flag.ExitOnError)
	globals := bindGlobalFlags(fs)
	pipeline := bindPipelineFlags(fs, false)
	extracted := fs.StringArray("extracted", nil, "Path to an ExtractedMappings JSON index; repeatable")
	outPath := fs.String("output", "", "Path to write the PathToDefs JSON index (required)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: bzl-gen-build extract-defs [options]

Phase D: for every unit, gathers all merged-extract artifacts contributed
under that unit key across every --extracted index, unions the defs, and
persists the result behind a deterministic content key.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	ui.InitColors(globals.NoColor)

	if len(*extracted) == 0 {
		errors.FatalError(errors.NewConfigError("missing required flag --extracted", "", "pass at least one --extracted <path>", nil), globals.JSON)
	}
	if *outPath == "" {
		errors.FatalError(errors.NewConfigError("missing required flag --output", "", "pass --output <path> to write the PathToDefs index", nil), globals.JSON)
	}

	cache, err := bootstrap.OpenCache(bootstrap.CacheConfig{Root: pipeline.CacheRoot}, nil)
	if err != nil {
		errors.FatalError(errors.NewIOError("cannot open cache", err.Error(), "run 'extract' first to initialize the cache", err), globals.JSON)
	}

	mappings := make([]*extract.ExtractedMappings, 0, len(*extracted))
	for _, p := range *extracted {
		var m extract.ExtractedMappings
		if err := readJSONFile(p, &m); err != nil {
			errors.FatalError(errors.NewIOError(fmt.Sprintf("cannot read extracted-mappings index %s", p), err.Error(), "", err), globals.JSON)
		}
		mappings = append(mappings, &m)
	}

	start := time.Now()
	result, err := extractdefs.Run(extractdefs.Options{
		Mappings: mappings,
		Cache:    cache.ExtractDefsCache(),
		Permits:  concurrency.NewPermits(pipeline.Concurrency),
	})
	metrics.ExtractDefsDuration(time.Since(start).Seconds())
	if err != nil {
		errors.FatalError(err, globals.JSON)
	}

	if err := writeJSONFile(*outPath, result); err != nil {
		errors.FatalError(errors.NewIOError("cannot write defs index", err.Error(), "", err), globals.JSON)
	}

	if globals.JSON {
		_ = output.JSON(result)
		return
	}
	ui.Successf("Combined defs for %d units", len(result.RelativePathToDefs))
}
