// Copyright 2025 the bzl-gen-build authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package main implements the bzl-gen-build CLI: a four-phase pipeline
// that extracts per-file dependency facts, combines them per unit, builds
// and collapses a dependency graph, and emits build-system rule files.
//
// Usage:
//
//	bzl-gen-build extract      [options]   Phase E: run extractors, populate the cache
//	bzl-gen-build extract-defs [options]   Phase D: combine per-unit exported defs
//	bzl-gen-build build-graph  [options]   Phase G: assemble and collapse the dependency graph
//	bzl-gen-build print-build  [options]   Phase P: emit build files from a graph mapping
//	bzl-gen-build completion <shell>       Generate shell completion script
package main

import (
	"flag"
	"fmt"
	"os"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// GlobalFlags carries the options shared by every subcommand.
type GlobalFlags struct {
	JSON    bool
	Quiet   bool
	NoColor bool
	Verbose int
}

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version and exit")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `bzl-gen-build - hermetic build-file generator

Usage:
  bzl-gen-build <command> [options]

Commands:
  extract       Phase E: run per-language extractors, populate the cache
  extract-defs  Phase D: combine per-unit exported defs
  build-graph   Phase G: assemble and collapse the dependency graph
  print-build   Phase P: emit build files from a graph mapping
  completion    Generate shell completion script

Global Options:
  --version     Show version and exit

Examples:
  bzl-gen-build extract --project-config project.yaml --cache-root .cache --extractor go=./extractor-go --output extracted.json
  bzl-gen-build extract-defs --cache-root .cache --extracted extracted.json --output defs.json
  bzl-gen-build build-graph --extracted extracted.json --defs defs.json --output graph.json
  bzl-gen-build print-build --project-config project.yaml --graph graph.json

`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("bzl-gen-build version %s\n", version)
		fmt.Printf("commit: %s\n", commit)
		fmt.Printf("built: %s\n", date)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "extract":
		runExtract(cmdArgs)
	case "extract-defs":
		runExtractDefs(cmdArgs)
	case "build-graph":
		runBuildGraph(cmdArgs)
	case "print-build":
		runPrintBuild(cmdArgs)
	case "completion":
		runCompletion(cmdArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}
