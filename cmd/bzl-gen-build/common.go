// Copyright 2025 the bzl-gen-build authors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"os"

	flag "github.com/spf13/pflag"
)

// writeJSONFile encodes v as pretty-printed JSON and writes it to path.
func writeJSONFile(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readJSONFile decodes the JSON document at path into v.
func readJSONFile(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewDecoder(f).Decode(v)
}

// bindGlobalFlags registers the flags shared by every subcommand onto fs
// and returns a GlobalFlags whose fields are populated once fs.Parse runs.
func bindGlobalFlags(fs *flag.FlagSet) *GlobalFlags {
	g := &GlobalFlags{}
	fs.BoolVar(&g.JSON, "json", false, "Emit machine-readable JSON output")
	fs.BoolVarP(&g.Quiet, "quiet", "q", false, "Suppress progress output")
	fs.BoolVar(&g.NoColor, "no-color", false, "Disable colored output")
	fs.CountVarP(&g.Verbose, "verbose", "v", "Verbosity level (repeatable); accepted but not read by any subcommand")
	return g
}

// pipelineFlags are the flags shared by the extract, extract-defs and
// print-build subcommands (build-graph does not bind them): where the
// source tree and cache live, and how much I/O concurrency to allow.
type pipelineFlags struct {
	WorkingDir    string
	CacheRoot     string
	Concurrency   int
	ProjectConfig string
	Aggregated    bool
}

func bindPipelineFlags(fs *flag.FlagSet, needsConfig bool) *pipelineFlags {
	p := &pipelineFlags{}
	fs.StringVar(&p.WorkingDir, "working-directory", ".", "Repository root that source and cache paths are resolved against")
	fs.StringVar(&p.CacheRoot, "cache-root", "", "Cache root directory (default: ~/.cache/bzl-gen-build)")
	fs.IntVar(&p.Concurrency, "concurrent-io-operations", 8, "Maximum number of concurrent file/subprocess operations")
	fs.BoolVar(&p.Aggregated, "aggregate-source", true, "Aggregate every file in a directory into one unit")
	if needsConfig {
		fs.StringVar(&p.ProjectConfig, "project-config", "", "Path to the project configuration file (required)")
	}
	return p
}
