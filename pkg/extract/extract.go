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

// Package extract implements Phase E: it walks every configured module's
// source roots, dispatches retained files to external per-language
// extractors with bounded concurrency, persists per-file results keyed by
// content hash, and merges per-unit extractor output into cached TreeNode
// artifacts.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bazeltools/bzl-gen-build/internal/contract"
	"github.com/bazeltools/bzl-gen-build/internal/errors"
	"github.com/bazeltools/bzl-gen-build/pkg/concurrency"
	"github.com/bazeltools/bzl-gen-build/pkg/digest"
	"github.com/bazeltools/bzl-gen-build/pkg/directive"
	"github.com/bazeltools/bzl-gen-build/pkg/ioatomic"
	"github.com/bazeltools/bzl-gen-build/pkg/metrics"
	"github.com/bazeltools/bzl-gen-build/pkg/model"
	"github.com/bazeltools/bzl-gen-build/pkg/project"
	"github.com/bazeltools/bzl-gen-build/pkg/walk"
)

// Source distinguishes which root kind a file was found under.
type Source int

const (
	SourceMain Source = iota
	SourceTest
)

// Cache resolves the two on-disk directories Phase E reads and writes.
type Cache struct {
	Root string
}

// ShaToExtractPath returns the per-file extractor-output cache path for key.
func (c Cache) ShaToExtractPath(key digest.Digest) string {
	return filepath.Join(c.Root, "sha_to_extract", key.String())
}

// MergedTreeNodePath returns the per-unit merged-TreeNode cache path for
// mergeKey.
func (c Cache) MergedTreeNodePath(mergeKey digest.Digest) string {
	return filepath.Join(c.Root, "path_sha_to_merged_defrefs", mergeKey.String()+".treenode")
}

// UnitEntry is one entry of ExtractedMappings: where the merged TreeNode
// for this unit lives, and the content hash it was built from.
type UnitEntry struct {
	Path       string `json:"path"`
	ContentSha string `json:"content_sha"`
}

// ExtractedMappings is the Phase E index: unit key to its merged-artifact
// location.
type ExtractedMappings struct {
	RelativePathToExtractMapping map[string]UnitEntry `json:"relative_path_to_extractmapping"`
}

// Options configures one Phase E run.
type Options struct {
	Conf          *project.ProjectConf
	Extractors    map[string]string // module-configuration name -> extractor executable
	Cache         Cache
	WorkingDir    string
	Aggregated    bool
	Permits       *concurrency.Permits
	ExternalInputsRoot string // optional; see CORE SPEC §4.3 "External loader"
}

// retainedFile is one file admitted into a unit after root-walking and
// main/test classification.
type retainedFile struct {
	moduleName string
	module     project.ModuleConfig
	relPath    string
	absPath    string
	unitKey    string
	source     Source
}

// Run executes Phase E and returns the resulting index.
func Run(ctx context.Context, opts Options) (*ExtractedMappings, error) {
	confSha, err := confDigest(opts.Conf)
	if err != nil {
		return nil, errors.NewConfigError("cannot hash project configuration", err.Error(), "", err)
	}

	files, err := collectFiles(opts)
	if err != nil {
		return nil, err
	}

	perFileShas, err := extractFiles(ctx, opts, files)
	if err != nil {
		return nil, err
	}

	grouped := groupByUnit(files)

	mappings := &ExtractedMappings{RelativePathToExtractMapping: map[string]UnitEntry{}}
	var mu sync.Mutex

	g, gctx := concurrency.CancelOnError(ctx, opts.Permits)
	for unitKey, unitFiles := range grouped {
		unitKey, unitFiles := unitKey, unitFiles
		g.Go(gctx, func(ctx context.Context) error {
			entry, err := mergeUnit(opts, confSha, unitKey, unitFiles, perFileShas)
			if err != nil {
				return err
			}
			mu.Lock()
			mappings.RelativePathToExtractMapping[unitKey] = entry
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return mappings, nil
}

func confDigest(conf *project.ProjectConf) (digest.Digest, error) {
	data, err := json.Marshal(conf.Configurations)
	if err != nil {
		return digest.Digest{}, err
	}
	return digest.HashBytes(data), nil
}

func collectFiles(opts Options) ([]retainedFile, error) {
	var out []retainedFile

	names := make([]string, 0, len(opts.Conf.Configurations))
	for name := range opts.Conf.Configurations {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		mc := opts.Conf.Configurations[name]
		if _, ok := opts.Extractors[name]; !ok {
			return nil, errors.NewConfigError(
				fmt.Sprintf("no extractor configured for module %q", name),
				"every module configuration must map to an extractor executable",
				"add an entry to the extractor map for this module name",
				nil,
			)
		}
		for _, root := range mc.MainRoots {
			rootFiles, err := walkRoot(opts.WorkingDir, root, name, mc, SourceMain, opts.Aggregated)
			if err != nil {
				return nil, err
			}
			out = append(out, rootFiles...)
		}
		for _, root := range mc.TestRoots {
			rootFiles, err := walkRoot(opts.WorkingDir, root, name, mc, SourceTest, opts.Aggregated)
			if err != nil {
				return nil, err
			}
			out = append(out, rootFiles...)
		}
	}
	return out, nil
}

// walkRoot applies the main/test classification (CORE SPEC §4.3) to one
// root: under a main_roots directory a file is admitted as Main only when
// it does not match test_globs, and a file that matches is not admitted
// from that root at all (main roots are never walked as a Test pass);
// every file under a test_roots directory is admitted as Test.
func walkRoot(workingDir, root, moduleName string, mc project.ModuleConfig, source Source, aggregated bool) ([]retainedFile, error) {
	absRoot := root
	if !filepath.IsAbs(absRoot) {
		absRoot = filepath.Join(workingDir, root)
	}
	if _, err := os.Stat(absRoot); os.IsNotExist(err) {
		return nil, nil
	}

	entries, err := walk.Walk(absRoot, nil)
	if err != nil {
		return nil, errors.NewIOError("cannot walk source root", err.Error(), "", err)
	}

	var out []retainedFile
	for _, f := range entries {
		if !walk.HasExtension(f.RelPath, mc.FileExtensions) {
			continue
		}
		isTest := walk.IsTest(f.RelPath, mc.TestGlobs)

		var effectiveSource Source
		if source == SourceTest {
			effectiveSource = SourceTest
		} else {
			if isTest {
				continue // main root, test glob, but we're walking as Main pass
			}
			effectiveSource = SourceMain
		}

		metrics.FileWalked()

		relFromWorking := filepath.ToSlash(filepath.Join(root, f.RelPath))
		out = append(out, retainedFile{
			moduleName: moduleName,
			module:     mc,
			relPath:    relFromWorking,
			absPath:    f.AbsPath,
			unitKey:    unitKeyFor(relFromWorking, aggregated),
			source:     effectiveSource,
		})
	}
	return out, nil
}

func unitKeyFor(relPath string, aggregated bool) string {
	if !aggregated {
		return relPath
	}
	idx := strings.LastIndex(relPath, "/")
	if idx < 0 {
		return relPath
	}
	return relPath[:idx]
}

func groupByUnit(files []retainedFile) map[string][]retainedFile {
	out := map[string][]retainedFile{}
	for _, f := range files {
		out[f.unitKey] = append(out[f.unitKey], f)
	}
	return out
}

// extractFiles computes each file's digest and runs its extractor if the
// per-file cache entry is absent, returning a map from absolute path to
// its per-file cache key.
func extractFiles(ctx context.Context, opts Options, files []retainedFile) (map[string]digest.Digest, error) {
	result := make(map[string]digest.Digest, len(files))
	var mu sync.Mutex

	g, gctx := concurrency.CancelOnError(ctx, opts.Permits)
	for _, f := range files {
		f := f
		g.Go(gctx, func(ctx context.Context) error {
			key, err := extractOne(ctx, opts, f)
			if err != nil {
				return err
			}
			mu.Lock()
			result[f.absPath] = key
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

func extractOne(ctx context.Context, opts Options, f retainedFile) (digest.Digest, error) {
	fileDigest, err := digest.HashFile(f.absPath)
	if err != nil {
		return digest.Digest{}, errors.NewIOError("cannot hash source file", err.Error(), "", err)
	}

	extractorPath := opts.Extractors[f.moduleName]
	extractorDigest, err := digest.HashFile(extractorPath)
	if err != nil {
		return digest.Digest{}, errors.NewConfigError(
			fmt.Sprintf("cannot hash extractor executable for module %q", f.moduleName),
			err.Error(), "verify the extractor path exists", err,
		)
	}

	key := digest.HashSequence([][]byte{fileDigest[:], extractorDigest[:], []byte(f.relPath)})
	outPath := opts.Cache.ShaToExtractPath(key)
	if ioatomic.Exists(outPath) {
		metrics.CacheHit()
		return key, nil
	}
	metrics.CacheMiss()

	metrics.ExtractorRun()
	if err := runExtractor(ctx, extractorPath, f, opts.WorkingDir, outPath); err != nil {
		metrics.ExtractorError()
		return digest.Digest{}, err
	}
	return key, nil
}

// runExtractor spawns the configured extractor process per the CORE SPEC
// §6 process-boundary contract and verifies it produced its output file.
func runExtractor(ctx context.Context, extractorPath string, f retainedFile, workingDir, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return errors.NewIOError("cannot create cache directory", err.Error(), "", err)
	}

	label := f.moduleName + "/" + unitKeyFor(f.relPath, true)
	cmd := exec.CommandContext(ctx, extractorPath,
		"--relative-input-paths", f.relPath,
		"--working-directory", workingDir,
		"--label-or-repo-path", label,
		"--output", outPath,
	)
	cmd.Dir = workingDir
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return errors.NewExtractorError(
			fmt.Sprintf("extractor failed for %s", f.relPath),
			err.Error(),
			"check the extractor executable and its stderr output above",
			err,
		)
	}
	if !ioatomic.Exists(outPath) {
		return errors.NewExtractorError(
			fmt.Sprintf("extractor for %s exited zero but produced no output", f.relPath),
			"--output path missing after extractor process exit",
			"", nil,
		)
	}
	return nil
}

// mergeUnit merge-folds every retained file's extractor output for one
// unit into a single TreeNode, persisting it under a content-addressed
// merge key.
func mergeUnit(opts Options, confSha digest.Digest, unitKey string, files []retainedFile, perFileShas map[string]digest.Digest) (UnitEntry, error) {
	shas := make([]digest.Digest, 0, len(files))
	for _, f := range files {
		shas = append(shas, perFileShas[f.absPath])
	}
	sort.Slice(shas, func(i, j int) bool { return shas[i].Less(shas[j]) })

	shaBytes := make([][]byte, 0, len(shas)+2)
	for _, s := range shas {
		sCopy := s
		shaBytes = append(shaBytes, sCopy[:])
	}
	shaBytes = append(shaBytes, confSha[:])
	aggByte := byte(0)
	if opts.Aggregated {
		aggByte = 1
	}
	shaBytes = append(shaBytes, []byte{aggByte})

	mergeKey := digest.HashSequence(shaBytes)
	mergedPath := opts.Cache.MergedTreeNodePath(mergeKey)

	if !ioatomic.Exists(mergedPath) {
		tn := model.NewTreeNode(unitKey)
		for _, f := range files {
			key := perFileShas[f.absPath]
			data, err := readExtractedData(opts.Cache.ShaToExtractPath(key))
			if err != nil {
				return UnitEntry{}, err
			}
			for _, block := range data.DataBlocks {
				tn.MergeBlock(block)
				if err := applyBlockCommands(tn, block); err != nil {
					return UnitEntry{}, err
				}
			}
		}

		applyPathDirectives(opts.Conf, unitKey, tn)

		data, err := json.MarshalIndent(tn, "", "  ")
		if err != nil {
			return UnitEntry{}, errors.NewInternalError("cannot marshal merged tree node", err.Error(), "", err)
		}
		if err := ioatomic.WriteFile(mergedPath, data, 0o644); err != nil {
			return UnitEntry{}, errors.NewIOError("cannot write merged tree node", err.Error(), "", err)
		}
	}

	return UnitEntry{Path: mergedPath, ContentSha: mergeKey.String()}, nil
}

// readExtractedData reads one extractor invocation's output: the
// ExtractedData wrapper of CORE SPEC §6 ({label_or_repo_path, data_blocks}),
// not a bare ExtractedDataBlock.
func readExtractedData(path string) (*model.ExtractedData, error) {
	if info, err := os.Stat(path); err == nil {
		if res := contract.ValidateExtractorOutputSize(info.Size()); !res.OK {
			return nil, errors.NewExtractorError(res.Message, path, "configure BZL_GEN_BUILD_SOFT_LIMIT_BYTES if this output is legitimately large", nil)
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIOError("cannot read extractor output", err.Error(), "", err)
	}
	var out model.ExtractedData
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, errors.NewExtractorError("extractor output is not valid JSON", err.Error(), "", err)
	}
	return &out, nil
}

func applyPathDirectives(conf *project.ProjectConf, unitKey string, tn *model.TreeNode) {
	for _, pd := range conf.MatchingPathDirectives(unitKey) {
		parsed, err := pd.Parsed()
		if err != nil {
			continue
		}
		for _, d := range parsed {
			applyDirective(tn, d)
		}
	}
}

func applyDirective(tn *model.TreeNode, d *directive.Directive) {
	applyParsedDirective(tn, d)
}
