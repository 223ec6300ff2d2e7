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

// Command bzl-gen-build-extractor-example is a reference implementation
// of the CORE SPEC §6 extractor process-boundary contract for a toy
// "lines" language: every non-blank line in the input file becomes a
// def, and a line that exactly repeats an earlier def in the same file
// becomes a ref to it instead. It exists to exercise the process
// boundary end-to-end in tests without requiring a real per-language
// extractor.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bazeltools/bzl-gen-build/pkg/model"
)

func main() {
	var (
		relativeInputPaths   = flag.String("relative-input-paths", "", "Comma-separated relative input paths (exactly one is processed)")
		workingDirectory     = flag.String("working-directory", ".", "Repository root")
		labelOrRepoPath      = flag.String("label-or-repo-path", "", "Unit label for the entity path")
		output               = flag.String("output", "", "Path to write the ExtractedData JSON (required)")
		disableRefGeneration = flag.Bool("disable-ref-generation", false, "Treat every line as a def, never as a ref")
		_                    = flag.String("import-path-relative-from", "", "Unused by this reference extractor")
	)
	flag.Parse()

	if *output == "" {
		fmt.Fprintln(os.Stderr, "bzl-gen-build-extractor-example: --output is required")
		os.Exit(1)
	}

	paths := strings.Split(*relativeInputPaths, ",")
	if len(paths) != 1 || paths[0] == "" {
		fmt.Fprintln(os.Stderr, "bzl-gen-build-extractor-example: expected exactly one --relative-input-paths entry")
		os.Exit(1)
	}
	relPath := paths[0]

	block, err := extractLines(*workingDirectory, relPath, *labelOrRepoPath, *disableRefGeneration)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bzl-gen-build-extractor-example: %v\n", err)
		os.Exit(1)
	}

	out := &model.ExtractedData{
		LabelOrRepoPath: *labelOrRepoPath,
		DataBlocks:      []*model.ExtractedDataBlock{block},
	}
	data, err := json.Marshal(out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bzl-gen-build-extractor-example: cannot marshal output: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*output, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "bzl-gen-build-extractor-example: cannot write output: %v\n", err)
		os.Exit(1)
	}
}

// extractLines reads relPath (resolved under workingDirectory) and
// produces one def per distinct non-blank line, with every repeated
// occurrence of a line recorded as a ref to that def instead.
func extractLines(workingDirectory, relPath, labelOrRepoPath string, disableRefGeneration bool) (*model.ExtractedDataBlock, error) {
	f, err := os.Open(filepath.Join(workingDirectory, relPath))
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", relPath, err)
	}
	defer f.Close()

	block := model.NewExtractedDataBlock(labelOrRepoPath)
	seen := map[string]bool{}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !disableRefGeneration && seen[line] {
			block.Refs[line] = true
			continue
		}
		seen[line] = true
		block.Defs[line] = true
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", relPath, err)
	}
	return block, nil
}
