// Copyright 2025 the bzl-gen-build authors
//
// SPDX-License-Identifier: Apache-2.0

package extractdefs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bazeltools/bzl-gen-build/pkg/concurrency"
	"github.com/bazeltools/bzl-gen-build/pkg/extract"
	"github.com/bazeltools/bzl-gen-build/pkg/model"
)

func writeTreeNode(t *testing.T, dir, name string, defs ...string) string {
	t.Helper()
	tn := model.NewTreeNode(name)
	for _, d := range defs {
		tn.Defs[d] = true
	}
	data, err := json.Marshal(tn)
	require.NoError(t, err)
	path := filepath.Join(dir, name+".treenode")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestRunUnionsDefsAcrossContributingArtifacts(t *testing.T) {
	srcDir := t.TempDir()
	cacheDir := t.TempDir()

	p1 := writeTreeNode(t, srcDir, "a", "X", "Y")
	p2 := writeTreeNode(t, srcDir, "b", "Z")

	m1 := &extract.ExtractedMappings{RelativePathToExtractMapping: map[string]extract.UnitEntry{
		"pkg/foo": {Path: p1, ContentSha: "aaa"},
	}}
	m2 := &extract.ExtractedMappings{RelativePathToExtractMapping: map[string]extract.UnitEntry{
		"pkg/foo": {Path: p2, ContentSha: "bbb"},
	}}

	index, err := Run(Options{
		Mappings: []*extract.ExtractedMappings{m1, m2},
		Cache:    Cache{Root: cacheDir},
		Permits:  concurrency.NewPermits(4),
	})
	require.NoError(t, err)

	path, ok := index.RelativePathToDefs["pkg/foo"]
	require.True(t, ok)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var dd DefsData
	require.NoError(t, json.Unmarshal(data, &dd))
	assert.ElementsMatch(t, []string{"X", "Y", "Z"}, dd.Defs)
}

func TestRunIsIdempotentOnCombineKey(t *testing.T) {
	srcDir := t.TempDir()
	cacheDir := t.TempDir()
	p1 := writeTreeNode(t, srcDir, "a", "X")

	m := &extract.ExtractedMappings{RelativePathToExtractMapping: map[string]extract.UnitEntry{
		"pkg/foo": {Path: p1, ContentSha: "aaa"},
	}}
	opts := Options{Mappings: []*extract.ExtractedMappings{m}, Cache: Cache{Root: cacheDir}, Permits: concurrency.NewPermits(4)}

	first, err := Run(opts)
	require.NoError(t, err)
	second, err := Run(opts)
	require.NoError(t, err)

	assert.Equal(t, first.RelativePathToDefs["pkg/foo"], second.RelativePathToDefs["pkg/foo"])
}

func TestRunProducesSortedDefs(t *testing.T) {
	srcDir := t.TempDir()
	cacheDir := t.TempDir()
	p1 := writeTreeNode(t, srcDir, "a", "Zeta", "Alpha", "Mu")

	m := &extract.ExtractedMappings{RelativePathToExtractMapping: map[string]extract.UnitEntry{
		"pkg/foo": {Path: p1, ContentSha: "aaa"},
	}}
	index, err := Run(Options{Mappings: []*extract.ExtractedMappings{m}, Cache: Cache{Root: cacheDir}, Permits: concurrency.NewPermits(4)})
	require.NoError(t, err)

	data, err := os.ReadFile(index.RelativePathToDefs["pkg/foo"])
	require.NoError(t, err)
	var dd DefsData
	require.NoError(t, json.Unmarshal(data, &dd))
	assert.Equal(t, []string{"Alpha", "Mu", "Zeta"}, dd.Defs)
}
