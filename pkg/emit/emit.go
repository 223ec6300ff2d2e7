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

// Package emit implements Phase P: it matches every graph node against the
// configured modules, shapes its dependency labels, assembles a rule
// document per output directory, and writes the resulting build files
// (garbage-collecting stale ones when running in overwrite mode).
package emit

import (
	"context"
	"path"
	"sort"
	"strings"

	"github.com/bazeltools/bzl-gen-build/internal/errors"
	"github.com/bazeltools/bzl-gen-build/internal/ui"
	"github.com/bazeltools/bzl-gen-build/pkg/concurrency"
	"github.com/bazeltools/bzl-gen-build/pkg/metrics"
	"github.com/bazeltools/bzl-gen-build/pkg/model"
	"github.com/bazeltools/bzl-gen-build/pkg/project"
	"github.com/bazeltools/bzl-gen-build/pkg/ruledoc"
)

// source mirrors extract.Source without importing the extract package:
// emission only needs to know which of a module's root lists matched.
type source int

const (
	sourceMain source = iota
	sourceTest
)

// Options configures one Phase P run.
type Options struct {
	Graph      model.GraphMapping
	Conf       *project.ProjectConf
	WorkingDir string
	Aggregated bool
	WriteMode  WriteMode
	Permits    *concurrency.Permits
}

// Result summarizes one Phase P run.
type Result struct {
	FilesWritten []string
	FilesDeleted []string
	Warnings     []string
}

// Run executes Phase P: matching, shaping, assembly, and writing.
func Run(ctx context.Context, opts Options) (*Result, error) {
	res := &Result{}

	labels := make([]string, 0, len(opts.Graph.BuildMapping))
	for l := range opts.Graph.BuildMapping {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	buildFiles := map[string]*ruledoc.Document{}

	for _, label := range labels {
		if strings.HasPrefix(label, "@") {
			continue
		}
		node := opts.Graph.BuildMapping[label]

		match, warn, err := matchModule(opts.Conf, label)
		if err != nil {
			return nil, err
		}
		if warn != "" {
			metrics.NodeSkipped()
			res.Warnings = append(res.Warnings, warn)
			ui.Warning(warn)
			continue
		}

		if err := emitNode(opts, buildFiles, label, node, match); err != nil {
			return nil, err
		}
	}

	written, deleted, err := writeAll(ctx, opts, buildFiles)
	if err != nil {
		return nil, err
	}
	res.FilesWritten = written
	res.FilesDeleted = deleted
	return res, nil
}

// moduleMatch is the resolved (module, root-kind) pair for one node label.
type moduleMatch struct {
	moduleName string
	mc         project.ModuleConfig
	src        source
}

// matchModule scans every configured module's main and test roots for the
// one that owns label, per CORE SPEC §4.6 step 1. It returns a non-empty
// warning (and no match) when no root claims the label; it returns an
// error when more than one root (within or across modules) claims it.
func matchModule(conf *project.ProjectConf, label string) (*moduleMatch, string, error) {
	names := make([]string, 0, len(conf.Configurations))
	for name := range conf.Configurations {
		names = append(names, name)
	}
	sort.Strings(names)

	var matches []moduleMatch
	for _, name := range names {
		mc := conf.Configurations[name]
		var moduleMatches []moduleMatch
		for _, root := range mc.MainRoots {
			if rootOwns(root, label) {
				moduleMatches = append(moduleMatches, moduleMatch{name, mc, sourceMain})
			}
		}
		for _, root := range mc.TestRoots {
			if rootOwns(root, label) {
				moduleMatches = append(moduleMatches, moduleMatch{name, mc, sourceTest})
			}
		}
		if len(moduleMatches) > 1 {
			return nil, "", errors.NewEmitError(
				"node label matches more than one root within a single module",
				label+" in module "+name,
				"ensure a node's label is covered by at most one main_roots/test_roots entry per module",
				nil,
			)
		}
		matches = append(matches, moduleMatches...)
	}

	if len(matches) == 0 {
		return nil, "no module configuration claims node " + label + "; skipping", nil
	}
	if len(matches) > 1 {
		return nil, "", errors.NewEmitError(
			"node label matches roots in more than one module",
			label,
			"ensure each node's label is covered by exactly one module's roots",
			nil,
		)
	}
	return &matches[0], "", nil
}

func rootOwns(root, label string) bool {
	return label == root || strings.HasPrefix(label, root+"/")
}

// targetName derives an emitted rule's name per CORE SPEC §4.6 step 2.
func targetName(label string, aggregated bool, strategy project.TargetNameStrategy) string {
	if aggregated {
		return path.Base(label)
	}
	base := path.Base(label)
	switch strategy {
	case project.StrategySourceFileStem:
		if idx := strings.LastIndex(base, "."); idx >= 0 {
			return base[:idx]
		}
		return base
	default: // project.StrategyAuto and unset
		return strings.ReplaceAll(base, ".", "_")
	}
}

// rewriteDepLabel shapes a dependency label per CORE SPEC §4.6 step 3.
func rewriteDepLabel(dep string, aggregated bool, strategy project.TargetNameStrategy) string {
	if strings.HasPrefix(dep, "@") {
		return dep
	}
	if aggregated {
		return "//" + dep
	}
	dir := path.Dir(dep)
	if dir == "." {
		dir = ""
	}
	name := targetName(dep, false, strategy)
	return "//" + dir + ":" + name
}

func grpFor(match *moduleMatch) *project.GrpBuildConfig {
	if match.src == sourceTest {
		return match.mc.BuildConfig.Test
	}
	return match.mc.BuildConfig.Main
}
