// Copyright 2025 the bzl-gen-build authors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/bazeltools/bzl-gen-build/internal/errors"
	"github.com/bazeltools/bzl-gen-build/internal/output"
	"github.com/bazeltools/bzl-gen-build/internal/ui"
	"github.com/bazeltools/bzl-gen-build/pkg/concurrency"
	"github.com/bazeltools/bzl-gen-build/pkg/emit"
	"github.com/bazeltools/bzl-gen-build/pkg/metrics"
	"github.com/bazeltools/bzl-gen-build/pkg/model"
	"github.com/bazeltools/bzl-gen-build/pkg/project"
)

// runPrintBuild executes Phase P: matches every surviving graph node
// against the project configuration, shapes its rule bodies, and writes
// (or splices) the resulting build files.
func runPrintBuild(args []string) {
	fs := flag.NewFlagSet("print-build", flag.ExitOnError)
	globals := bindGlobalFlags(fs)
	pipeline := bindPipelineFlags(fs, true)
	graphPath := fs.String("graph", "", "Path to the GraphMapping JSON document (required)")
	writeMode := fs.String("write-mode", "overwrite", "How to combine rendered content with existing files: overwrite, append, or tagged-append")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: bzl-gen-build print-build [options]

Phase P: reads a GraphMapping produced by 'build-graph', matches each
surviving node against the project configuration's module definitions,
and writes the resulting build rule files.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	ui.InitColors(globals.NoColor)

	if *graphPath == "" {
		errors.FatalError(errors.NewConfigError("missing required flag --graph", "", "pass --graph <path>, produced by 'build-graph'", nil), globals.JSON)
	}

	mode, err := parseWriteMode(*writeMode)
	if err != nil {
		errors.FatalError(errors.NewConfigError("invalid --write-mode", err.Error(), "use overwrite, append, or tagged-append", err), globals.JSON)
	}

	conf, err := project.Load(pipeline.ProjectConfig)
	if err != nil {
		errors.FatalError(errors.NewConfigError("cannot load project configuration", err.Error(), "check --project-config points at a valid file", err), globals.JSON)
	}

	var graphMapping model.GraphMapping
	if err := readJSONFile(*graphPath, &graphMapping); err != nil {
		errors.FatalError(errors.NewIOError("cannot read graph mapping", err.Error(), "", err), globals.JSON)
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
		ui.Header("Writing build files")
	}

	spinner := NewSpinner(NewProgressConfig(globals), "matching nodes and writing build files")

	start := time.Now()
	result, err := emit.Run(ctx, emit.Options{
		Graph:      graphMapping,
		Conf:       conf,
		WorkingDir: pipeline.WorkingDir,
		Aggregated: pipeline.Aggregated,
		WriteMode:  mode,
		Permits:    concurrency.NewPermits(pipeline.Concurrency),
	})
	finishSpinner(spinner)
	metrics.EmitDuration(time.Since(start).Seconds())
	if err != nil {
		errors.FatalError(err, globals.JSON)
	}

	for _, w := range result.Warnings {
		ui.Warning(w)
	}

	if globals.JSON {
		_ = output.JSON(result)
		return
	}
	ui.Successf("Wrote %d build files, deleted %d stale files", len(result.FilesWritten), len(result.FilesDeleted))
}

func parseWriteMode(s string) (emit.WriteMode, error) {
	switch s {
	case "overwrite":
		return emit.WriteOverwrite, nil
	case "append":
		return emit.WriteAppend, nil
	case "tagged-append":
		return emit.WriteTaggedAppend, nil
	default:
		return 0, fmt.Errorf("unknown write mode %q", s)
	}
}
