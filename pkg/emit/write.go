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

package emit

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bazeltools/bzl-gen-build/internal/errors"
	"github.com/bazeltools/bzl-gen-build/pkg/concurrency"
	"github.com/bazeltools/bzl-gen-build/pkg/ioatomic"
	"github.com/bazeltools/bzl-gen-build/pkg/metrics"
	"github.com/bazeltools/bzl-gen-build/pkg/ruledoc"
	"github.com/bazeltools/bzl-gen-build/pkg/walk"
)

// WriteMode selects how a rule file's content is combined with whatever
// is already on disk, per CORE SPEC §6.
type WriteMode int

const (
	// WriteOverwrite replaces the file's content entirely and permits
	// stale-file garbage collection.
	WriteOverwrite WriteMode = iota
	// WriteAppend adds the rendered content to the end of the file,
	// creating it if absent; stale-file collection is suppressed.
	WriteAppend
	// WriteTaggedAppend writes the rendered content inside a marker pair,
	// replacing a prior marked block if one exists; stale-file collection
	// is suppressed.
	WriteTaggedAppend
)

const (
	markerBegin = "# ---- BEGIN BZL_GEN_BUILD_GENERATED_CODE ---- no_hash"
	markerEnd   = "# ---- END BZL_GEN_BUILD_GENERATED_CODE ---- no_hash"
)

const buildFileName = "BUILD.bazel"

// writeAll renders every accumulated document and writes it to
// <dir>/BUILD.bazel, then (in overwrite mode) deletes every other BUILD or
// BUILD.bazel file under the configured roots that this run did not write.
func writeAll(ctx context.Context, opts Options, buildFiles map[string]*ruledoc.Document) ([]string, []string, error) {
	dirs := make([]string, 0, len(buildFiles))
	for d := range buildFiles {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)

	var mu sync.Mutex
	var written []string

	g, gctx := concurrency.CancelOnError(ctx, opts.Permits)
	for _, dir := range dirs {
		dir := dir
		doc := buildFiles[dir]
		g.Go(gctx, func(ctx context.Context) error {
			outPath := filepath.Join(opts.WorkingDir, dir, buildFileName)
			if err := writeOne(outPath, ruledoc.Render(doc), opts.WriteMode); err != nil {
				return errors.NewIOError("cannot write build file", outPath, "", err)
			}
			metrics.RuleWritten()
			mu.Lock()
			written = append(written, outPath)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	sort.Strings(written)

	if opts.WriteMode != WriteOverwrite {
		return written, nil, nil
	}

	deleted, err := collectStale(opts, written)
	if err != nil {
		return nil, nil, err
	}
	for range deleted {
		metrics.RuleDeleted()
	}
	return written, deleted, nil
}

func writeOne(path string, rendered []byte, mode WriteMode) error {
	switch mode {
	case WriteAppend:
		existing, _ := os.ReadFile(path)
		combined := append(append([]byte{}, existing...), rendered...)
		return ioatomic.WriteFile(path, combined, 0o644)
	case WriteTaggedAppend:
		existing, _ := os.ReadFile(path)
		combined := spliceTaggedBlock(string(existing), rendered)
		return ioatomic.WriteFile(path, []byte(combined), 0o644)
	default:
		return ioatomic.WriteFile(path, rendered, 0o644)
	}
}

// spliceTaggedBlock replaces the marker-delimited block in existing (if
// any) with rendered, or appends a new marked block otherwise.
func spliceTaggedBlock(existing string, rendered []byte) string {
	block := markerBegin + "\n" + string(rendered) + markerEnd + "\n"

	begin := strings.Index(existing, markerBegin)
	end := strings.Index(existing, markerEnd)
	if begin < 0 || end < 0 || end < begin {
		if existing == "" {
			return block
		}
		return existing + "\n" + block
	}
	return existing[:begin] + block + existing[end+len(markerEnd)+1:]
}

// collectStale scans every configured module's roots for existing rule
// files and deletes any not present in written, per CORE SPEC §4.6 step
// 10.
func collectStale(opts Options, written []string) ([]string, error) {
	writtenSet := map[string]bool{}
	for _, w := range written {
		writtenSet[filepath.Clean(w)] = true
	}

	roots := map[string]bool{}
	for _, mc := range opts.Conf.Configurations {
		for _, r := range mc.MainRoots {
			roots[r] = true
		}
		for _, r := range mc.TestRoots {
			roots[r] = true
		}
	}

	var existing []walk.File
	for root := range roots {
		absRoot := filepath.Join(opts.WorkingDir, root)
		if _, err := os.Stat(absRoot); err != nil {
			continue
		}
		files, err := walk.Walk(absRoot, nil)
		if err != nil {
			return nil, errors.NewIOError("cannot scan for stale build files", absRoot, "", err)
		}
		existing = append(existing, files...)
	}

	var deleted []string
	for _, f := range existing {
		base := filepath.Base(f.AbsPath)
		if base != "BUILD" && base != buildFileName {
			continue
		}
		clean := filepath.Clean(f.AbsPath)
		if writtenSet[clean] {
			continue
		}
		if err := os.Remove(clean); err != nil {
			return nil, errors.NewIOError("cannot delete stale build file", clean, "", err)
		}
		deleted = append(deleted, clean)
	}
	sort.Strings(deleted)
	return deleted, nil
}
