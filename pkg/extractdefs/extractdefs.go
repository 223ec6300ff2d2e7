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

// Package extractdefs implements Phase D: for every unit, it gathers all
// merged-extract artifacts contributed under that unit key (possibly more
// than one, when several extract-phase runs share a unit), unions the defs
// across them, and persists the result behind a deterministic content key.
package extractdefs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/bazeltools/bzl-gen-build/internal/errors"
	"github.com/bazeltools/bzl-gen-build/pkg/concurrency"
	"github.com/bazeltools/bzl-gen-build/pkg/digest"
	"github.com/bazeltools/bzl-gen-build/pkg/extract"
	"github.com/bazeltools/bzl-gen-build/pkg/ioatomic"
	"github.com/bazeltools/bzl-gen-build/pkg/metrics"
	"github.com/bazeltools/bzl-gen-build/pkg/model"
)

// Cache resolves the on-disk directory Phase D reads and writes.
type Cache struct {
	Root string
}

// DefsPath returns the per-unit defs-artifact cache path for key.
func (c Cache) DefsPath(key digest.Digest) string {
	return filepath.Join(c.Root, "path_sha_to_exports", key.String())
}

// DefsData is one unit's exported symbol set.
type DefsData struct {
	Defs []string `json:"defs"`
}

// PathToDefs is the Phase D index: unit key to its persisted DefsData path.
type PathToDefs struct {
	RelativePathToDefs map[string]string `json:"relative_path_to_defs"`
}

// Options configures one Phase D run.
type Options struct {
	// Mappings is every ExtractedMappings index contributing to this run.
	// A unit key appearing in more than one gathers defs from every
	// contributing merged-extract artifact.
	Mappings []*extract.ExtractedMappings
	Cache    Cache
	Permits  *concurrency.Permits
}

// Run executes Phase D and returns the resulting index.
func Run(opts Options) (*PathToDefs, error) {
	byUnit := map[string][]extract.UnitEntry{}
	for _, m := range opts.Mappings {
		if m == nil {
			continue
		}
		for unit, entry := range m.RelativePathToExtractMapping {
			byUnit[unit] = append(byUnit[unit], entry)
		}
	}

	units := make([]string, 0, len(byUnit))
	for unit := range byUnit {
		units = append(units, unit)
	}
	sort.Strings(units)

	var mu sync.Mutex
	index := &PathToDefs{RelativePathToDefs: map[string]string{}}

	g, ctx := concurrency.CancelOnError(context.Background(), opts.Permits)
	for _, unit := range units {
		unit := unit
		entries := byUnit[unit]
		g.Go(ctx, func(ctx context.Context) error {
			path, err := combineUnit(opts.Cache, entries)
			if err != nil {
				return err
			}
			mu.Lock()
			index.RelativePathToDefs[unit] = path
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return index, nil
}

func combineUnit(cache Cache, entries []extract.UnitEntry) (string, error) {
	metrics.UnitCombined()
	sort.Slice(entries, func(i, j int) bool { return entries[i].ContentSha < entries[j].ContentSha })

	parts := make([][]byte, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, []byte(e.ContentSha))
	}
	key := digest.HashSequence(parts)
	outPath := cache.DefsPath(key)

	if ioatomic.Exists(outPath) {
		return outPath, nil
	}

	defs := map[string]bool{}
	for _, e := range entries {
		tn, err := readTreeNode(e.Path)
		if err != nil {
			return "", err
		}
		for d := range tn.Defs {
			defs[d] = true
		}
	}

	data, err := json.MarshalIndent(DefsData{Defs: model.SortedKeys(defs)}, "", "  ")
	if err != nil {
		return "", errors.NewInternalError("cannot marshal defs data", err.Error(), "", err)
	}
	if err := ioatomic.WriteFile(outPath, data, 0o644); err != nil {
		return "", errors.NewIOError("cannot write defs artifact", err.Error(), "", err)
	}
	return outPath, nil
}

func readTreeNode(path string) (*model.TreeNode, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIOError("cannot read merged tree node", err.Error(), "", err)
	}
	var tn model.TreeNode
	if err := json.Unmarshal(data, &tn); err != nil {
		return nil, errors.NewInternalError("merged tree node is not valid JSON", err.Error(), "", err)
	}
	return &tn, nil
}
