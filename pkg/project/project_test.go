// Copyright 2025 the bzl-gen-build authors
//
// SPDX-License-Identifier: Apache-2.0

package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestLoadResolvesConfigurations(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	writeYAML(t, filepath.Join(dir, "project.yaml"), `
configurations:
  go_lib:
    file_extensions: [".go"]
    main_roots: ["src/"]
    test_roots: ["src/"]
    test_globs: ["*_test.go"]
    build_config:
      main:
        function_name: go_library
`)

	conf, err := Load("project.yaml")
	require.NoError(t, err)
	require.Contains(t, conf.Configurations, "go_lib")
	assert.Equal(t, []string{".go"}, conf.Configurations["go_lib"].FileExtensions)
	assert.Equal(t, "go_library", conf.Configurations["go_lib"].BuildConfig.Main.FunctionName)
}

func TestLoadMergesIncludesRelativeToWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	writeYAML(t, filepath.Join(dir, "base.yaml"), `
configurations:
  base_lib:
    file_extensions: [".go"]
`)
	writeYAML(t, filepath.Join(dir, "project.yaml"), `
includes: ["base.yaml"]
configurations:
  top_lib:
    file_extensions: [".proto"]
`)

	conf, err := Load("project.yaml")
	require.NoError(t, err)
	assert.Contains(t, conf.Configurations, "base_lib")
	assert.Contains(t, conf.Configurations, "top_lib")
}

func TestLoadDetectsIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	writeYAML(t, filepath.Join(dir, "a.yaml"), `includes: ["b.yaml"]`)
	writeYAML(t, filepath.Join(dir, "b.yaml"), `includes: ["a.yaml"]`)

	_, err := Load("a.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "include cycle")
}

func TestMatchingPathDirectivesPreservesFileOrder(t *testing.T) {
	conf := &ProjectConf{
		PathDirectives: []PathDirective{
			{Prefix: "//src", DirectiveStrings: []string{"ref:A"}},
			{Prefix: "//src/pkg", DirectiveStrings: []string{"ref:B"}},
			{Prefix: "//other", DirectiveStrings: []string{"ref:C"}},
		},
	}
	matches := conf.MatchingPathDirectives("//src/pkg/foo")
	require.Len(t, matches, 2)
	assert.Equal(t, "//src", matches[0].Prefix)
	assert.Equal(t, "//src/pkg", matches[1].Prefix)
}

func TestPathDirectiveParsedCachesResult(t *testing.T) {
	pd := &PathDirective{Prefix: "//src", DirectiveStrings: []string{"ref:foo.Bar"}}
	first, err := pd.Parsed()
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := pd.Parsed()
	require.NoError(t, err)
	assert.Same(t, first[0], second[0])
}

func TestPathDirectiveParsedPropagatesError(t *testing.T) {
	pd := &PathDirective{Prefix: "//src", DirectiveStrings: []string{"not a directive"}}
	_, err := pd.Parsed()
	require.Error(t, err)
}

func writeYAML(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
