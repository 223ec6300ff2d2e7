// Copyright 2025 the bzl-gen-build authors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"sort"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/bazeltools/bzl-gen-build/internal/errors"
	"github.com/bazeltools/bzl-gen-build/internal/output"
	"github.com/bazeltools/bzl-gen-build/internal/ui"
	"github.com/bazeltools/bzl-gen-build/pkg/extract"
	"github.com/bazeltools/bzl-gen-build/pkg/extractdefs"
	"github.com/bazeltools/bzl-gen-build/pkg/graph"
	"github.com/bazeltools/bzl-gen-build/pkg/metrics"
	"github.com/bazeltools/bzl-gen-build/pkg/model"
)

// runBuildGraph executes Phase G: assembles the per-unit TreeNode and defs
// artifacts written by Phases E and D into a dependency graph, collapses
// any cycles, and persists the resulting GraphMapping.
func runBuildGraph(args []string) {
	fs := flag.NewFlagSet("build-graph", flag.ExitOnError)
	globals := bindGlobalFlags(fs)
	extracted := fs.StringArray("extracted", nil, "Path to an ExtractedMappings JSON index; repeatable")
	defs := fs.String("defs", "", "Path to the PathToDefs JSON index (required)")
	outPath := fs.String("output", "", "Path to write the GraphMapping JSON document (required)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: bzl-gen-build build-graph [options]

Phase G: reads every unit's merged TreeNode (from --extracted) and
combined defs (from --defs), interns nodes and defs, resolves entity
links, adds compile/runtime edges, and collapses dependency cycles onto
a synthesized common ancestor.

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
	if *defs == "" {
		errors.FatalError(errors.NewConfigError("missing required flag --defs", "", "pass --defs <path>, produced by 'extract-defs'", nil), globals.JSON)
	}
	if *outPath == "" {
		errors.FatalError(errors.NewConfigError("missing required flag --output", "", "pass --output <path> to write the graph mapping", nil), globals.JSON)
	}

	var defsIndex extractdefs.PathToDefs
	if err := readJSONFile(*defs, &defsIndex); err != nil {
		errors.FatalError(errors.NewIOError("cannot read defs index", err.Error(), "", err), globals.JSON)
	}

	mappings := make([]*extract.ExtractedMappings, 0, len(*extracted))
	for _, p := range *extracted {
		var m extract.ExtractedMappings
		if err := readJSONFile(p, &m); err != nil {
			errors.FatalError(errors.NewIOError(fmt.Sprintf("cannot read extracted-mappings index %s", p), err.Error(), "", err), globals.JSON)
		}
		mappings = append(mappings, &m)
	}

	units, err := assembleUnits(mappings, &defsIndex)
	if err != nil {
		errors.FatalError(err, globals.JSON)
	}

	start := time.Now()
	engine, err := graph.Build(units, nil)
	if err != nil {
		errors.FatalError(errors.NewGraphError("cannot assemble dependency graph", err.Error(), "", err), globals.JSON)
	}
	if err := engine.Collapse(); err != nil {
		errors.FatalError(errors.NewGraphError("cannot collapse dependency cycles", err.Error(), "", err), globals.JSON)
	}

	mapping := engine.Emit()
	metrics.GraphDuration(time.Since(start).Seconds())

	if err := writeJSONFile(*outPath, mapping); err != nil {
		errors.FatalError(errors.NewIOError("cannot write graph mapping", err.Error(), "", err), globals.JSON)
	}

	if globals.JSON {
		_ = output.JSON(mapping)
		return
	}
	ui.Successf("Built graph with %d nodes", len(mapping.BuildMapping))
}

// assembleUnits joins every unit's merged TreeNode (read from the path
// recorded in one of the ExtractedMappings indexes) with its combined
// defs list (read from the PathToDefs index) into graph.UnitData.
func assembleUnits(mappings []*extract.ExtractedMappings, defsIndex *extractdefs.PathToDefs) ([]graph.UnitData, error) {
	treePaths := map[string]string{}
	for _, m := range mappings {
		if m == nil {
			continue
		}
		for unit, entry := range m.RelativePathToExtractMapping {
			treePaths[unit] = entry.Path
		}
	}

	units := make([]string, 0, len(treePaths))
	for u := range treePaths {
		units = append(units, u)
	}
	sort.Strings(units)

	result := make([]graph.UnitData, 0, len(units))
	for _, unit := range units {
		var tn model.TreeNode
		if err := readJSONFile(treePaths[unit], &tn); err != nil {
			return nil, errors.NewGraphError(fmt.Sprintf("cannot read merged tree node for unit %q", unit), err.Error(), "", err)
		}

		var defs []string
		if defsPath, ok := defsIndex.RelativePathToDefs[unit]; ok {
			var dd extractdefs.DefsData
			if err := readJSONFile(defsPath, &dd); err != nil {
				return nil, errors.NewGraphError(fmt.Sprintf("cannot read defs for unit %q", unit), err.Error(), "", err)
			}
			defs = dd.Defs
		}

		result = append(result, graph.UnitData{Unit: unit, Tree: &tn, Defs: defs})
	}
	return result, nil
}
