// Copyright 2025 the bzl-gen-build authors
//
// SPDX-License-Identifier: Apache-2.0

package extract

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bazeltools/bzl-gen-build/pkg/concurrency"
	"github.com/bazeltools/bzl-gen-build/pkg/model"
	"github.com/bazeltools/bzl-gen-build/pkg/project"
)

// writeFakeExtractor writes a shell-script extractor that parses its
// --output flag and writes a fixed ExtractedData document there, mirroring
// the process-boundary contract every real extractor implements.
func writeFakeExtractor(t *testing.T, dir, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake extractor script requires a POSIX shell")
	}
	path := filepath.Join(dir, "fake-extractor.sh")
	script := "#!/bin/sh\nset -e\nout=\"\"\nwhile [ $# -gt 0 ]; do\n  case \"$1\" in\n    --output) out=\"$2\"; shift 2 ;;\n    *) shift ;;\n  esac\ndone\ncat > \"$out\" <<'EOF'\n" + body + "\nEOF\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func writeSourceTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		full := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
}

func TestRunExtractsAndMergesPerFileUnits(t *testing.T) {
	workDir := t.TempDir()
	cacheDir := t.TempDir()

	writeSourceTree(t, workDir, map[string]string{
		"src/a.go": "package a\n",
		"src/b.go": "package b\n",
	})

	extractor := writeFakeExtractor(t, workDir, `{"label_or_repo_path":"x","data_blocks":[{"entity_path":"x","defs":["X"],"refs":[],"runtime_refs":[],"bzl_gen_build_commands":[]}]}`)

	conf := &project.ProjectConf{
		Configurations: map[string]project.ModuleConfig{
			"go": {
				FileExtensions: []string{".go"},
				MainRoots:      []string{"src"},
			},
		},
	}

	opts := Options{
		Conf:       conf,
		Extractors: map[string]string{"go": extractor},
		Cache:      Cache{Root: cacheDir},
		WorkingDir: workDir,
		Aggregated: false,
		Permits:    concurrency.NewPermits(4),
	}

	mappings, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Len(t, mappings.RelativePathToExtractMapping, 2)

	for unit, entry := range mappings.RelativePathToExtractMapping {
		assert.Contains(t, []string{"src/a.go", "src/b.go"}, unit)
		assert.True(t, fileExists(entry.Path), "merged artifact should exist for %s", unit)
	}
}

func TestRunAggregatesFilesInSameDirectoryIntoOneUnit(t *testing.T) {
	workDir := t.TempDir()
	cacheDir := t.TempDir()

	writeSourceTree(t, workDir, map[string]string{
		"src/a.go": "package a\n",
		"src/b.go": "package b\n",
	})

	extractor := writeFakeExtractor(t, workDir, `{"label_or_repo_path":"x","data_blocks":[{"entity_path":"x","defs":["X"],"refs":[],"runtime_refs":[],"bzl_gen_build_commands":[]}]}`)

	conf := &project.ProjectConf{
		Configurations: map[string]project.ModuleConfig{
			"go": {
				FileExtensions: []string{".go"},
				MainRoots:      []string{"src"},
			},
		},
	}

	opts := Options{
		Conf:       conf,
		Extractors: map[string]string{"go": extractor},
		Cache:      Cache{Root: cacheDir},
		WorkingDir: workDir,
		Aggregated: true,
		Permits:    concurrency.NewPermits(4),
	}

	mappings, err := Run(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, mappings.RelativePathToExtractMapping, 1)
	_, ok := mappings.RelativePathToExtractMapping["src"]
	assert.True(t, ok)
}

func TestRunSkipsExtractorOnCacheHit(t *testing.T) {
	workDir := t.TempDir()
	cacheDir := t.TempDir()

	writeSourceTree(t, workDir, map[string]string{"src/a.go": "package a\n"})

	marker := filepath.Join(workDir, "invoked")
	extractor := writeFakeExtractor(t, workDir, `{"label_or_repo_path":"x","data_blocks":[{"entity_path":"x","defs":["X"],"refs":[],"runtime_refs":[],"bzl_gen_build_commands":[]}]}`)
	// Wrap the extractor so a second invocation would be observable.
	wrapperPath := filepath.Join(workDir, "wrapper.sh")
	wrapper := "#!/bin/sh\necho invoked >> '" + marker + "'\nexec '" + extractor + "' \"$@\"\n"
	require.NoError(t, os.WriteFile(wrapperPath, []byte(wrapper), 0o755))

	conf := &project.ProjectConf{
		Configurations: map[string]project.ModuleConfig{
			"go": {FileExtensions: []string{".go"}, MainRoots: []string{"src"}},
		},
	}
	opts := Options{
		Conf:       conf,
		Extractors: map[string]string{"go": wrapperPath},
		Cache:      Cache{Root: cacheDir},
		WorkingDir: workDir,
		Permits:    concurrency.NewPermits(4),
	}

	_, err := Run(context.Background(), opts)
	require.NoError(t, err)
	_, err = Run(context.Background(), opts)
	require.NoError(t, err)

	data, err := os.ReadFile(marker)
	require.NoError(t, err)
	assert.Equal(t, "invoked\n", string(data), "second run should hit the per-file cache and not re-invoke the extractor")
}

func TestRunRejectsModuleWithoutExtractor(t *testing.T) {
	workDir := t.TempDir()
	cacheDir := t.TempDir()
	writeSourceTree(t, workDir, map[string]string{"src/a.go": "package a\n"})

	conf := &project.ProjectConf{
		Configurations: map[string]project.ModuleConfig{
			"go": {FileExtensions: []string{".go"}, MainRoots: []string{"src"}},
		},
	}
	opts := Options{
		Conf:       conf,
		Extractors: map[string]string{},
		Cache:      Cache{Root: cacheDir},
		WorkingDir: workDir,
		Permits:    concurrency.NewPermits(4),
	}

	_, err := Run(context.Background(), opts)
	require.Error(t, err)
}

func TestRunSeparatesMainAndTestFiles(t *testing.T) {
	workDir := t.TempDir()
	cacheDir := t.TempDir()

	writeSourceTree(t, workDir, map[string]string{
		"src/a.go":      "package a\n",
		"src/a_test.go": "package a\n",
	})

	extractor := writeFakeExtractor(t, workDir, `{"label_or_repo_path":"x","data_blocks":[{"entity_path":"x","defs":["X"],"refs":[],"runtime_refs":[],"bzl_gen_build_commands":[]}]}`)

	conf := &project.ProjectConf{
		Configurations: map[string]project.ModuleConfig{
			"go": {
				FileExtensions: []string{".go"},
				MainRoots:      []string{"src"},
				TestGlobs:      []string{"*_test.go"},
			},
		},
	}
	opts := Options{
		Conf:       conf,
		Extractors: map[string]string{"go": extractor},
		Cache:      Cache{Root: cacheDir},
		WorkingDir: workDir,
		Aggregated: false,
		Permits:    concurrency.NewPermits(4),
	}

	mappings, err := Run(context.Background(), opts)
	require.NoError(t, err)
	// a_test.go matches a main root's test glob, so it is excluded from this
	// module's main-root pass entirely (it isn't also listed as a test root).
	require.Len(t, mappings.RelativePathToExtractMapping, 1)
	_, ok := mappings.RelativePathToExtractMapping["src/a.go"]
	assert.True(t, ok)
}

func TestRunAppliesEmbeddedDirectiveCommands(t *testing.T) {
	workDir := t.TempDir()
	cacheDir := t.TempDir()

	writeSourceTree(t, workDir, map[string]string{"src/a.go": "package a\n"})

	extractor := writeFakeExtractor(t, workDir, `{"label_or_repo_path":"x","data_blocks":[`+
		`{"entity_path":"x","defs":["X"],"refs":[],"runtime_refs":[],`+
		`"bzl_gen_build_commands":["ref:Y","manual_ref://foo:bar","link:X -> Z"]}]}`)

	conf := &project.ProjectConf{
		Configurations: map[string]project.ModuleConfig{
			"go": {FileExtensions: []string{".go"}, MainRoots: []string{"src"}},
		},
	}
	opts := Options{
		Conf:       conf,
		Extractors: map[string]string{"go": extractor},
		Cache:      Cache{Root: cacheDir},
		WorkingDir: workDir,
		Aggregated: false,
		Permits:    concurrency.NewPermits(4),
	}

	mappings, err := Run(context.Background(), opts)
	require.NoError(t, err)

	entry, ok := mappings.RelativePathToExtractMapping["src/a.go"]
	require.True(t, ok)

	data, err := os.ReadFile(entry.Path)
	require.NoError(t, err)
	var tn model.TreeNode
	require.NoError(t, json.Unmarshal(data, &tn))

	assert.True(t, tn.Refs["Y"], "ref: command from bzl_gen_build_commands should reach the merged tree node")
	require.Len(t, tn.Directives.ManualRefs, 1)
	assert.Equal(t, "//foo:bar", tn.Directives.ManualRefs[0].Label)
	require.Len(t, tn.Directives.EntityLinks, 1)
	assert.Equal(t, "X", tn.Directives.EntityLinks[0].From)
	assert.Equal(t, []string{"Z"}, tn.Directives.EntityLinks[0].To)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
