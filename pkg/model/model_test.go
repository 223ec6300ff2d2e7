// Copyright 2025 the bzl-gen-build authors
//
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractedDataBlockJSONRoundTrip(t *testing.T) {
	b := NewExtractedDataBlock("foo/bar.go")
	b.Defs["foo.Bar"] = true
	b.Refs["foo.Baz"] = true
	b.Commands["bzl_gen_build: ref:foo.Baz"] = true

	data, err := json.Marshal(b)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"defs":["foo.Bar"]`)

	var out ExtractedDataBlock
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, b.EntityPath, out.EntityPath)
	assert.True(t, out.Defs["foo.Bar"])
	assert.True(t, out.Refs["foo.Baz"])
}

func TestTreeNodeMergeIsUnionOverSets(t *testing.T) {
	a := NewTreeNode("//pkg/foo")
	a.Defs["A"] = true
	b := NewTreeNode("//pkg/foo")
	b.Defs["B"] = true
	b.Refs["C"] = true

	a.Merge(b)
	assert.True(t, a.Defs["A"])
	assert.True(t, a.Defs["B"])
	assert.True(t, a.Refs["C"])
}

func TestTreeNodeMergeIsIdempotent(t *testing.T) {
	a := NewTreeNode("//pkg/foo")
	a.Directives.ManualRefs = []ManualRefEntry{{Kind: ManualRefRef, Label: "//x:y"}}
	b := NewTreeNode("//pkg/foo")
	b.Directives.ManualRefs = []ManualRefEntry{{Kind: ManualRefRef, Label: "//x:y"}}

	a.Merge(b)
	a.Merge(b)
	assert.Len(t, a.Directives.ManualRefs, 1)
}

func TestDirectiveMetadataMergeDeduplicatesEntityLinks(t *testing.T) {
	d := DirectiveMetadata{EntityLinks: []EntityLink{{From: "X", To: []string{"A", "B"}}}}
	d2 := DirectiveMetadata{EntityLinks: []EntityLink{{From: "X", To: []string{"A", "B"}}, {From: "Y", To: []string{"Z"}}}}

	d.Merge(&d2)
	assert.Len(t, d.EntityLinks, 2)
}

func TestSortedKeysIsAscending(t *testing.T) {
	set := map[string]bool{"c": true, "a": true, "b": true}
	assert.Equal(t, []string{"a", "b", "c"}, SortedKeys(set))
}

func TestTreeNodeJSONRoundTripPreservesDirectives(t *testing.T) {
	tn := NewTreeNode("//pkg/foo")
	tn.Defs["A"] = true
	tn.Directives.AttrStringLists = []AttrStringEntry{{Attr: "plugins", Value: "//x:y"}}

	data, err := json.Marshal(tn)
	require.NoError(t, err)

	var out TreeNode
	require.NoError(t, json.Unmarshal(data, &out))
	assert.True(t, out.Defs["A"])
	require.Len(t, out.Directives.AttrStringLists, 1)
	assert.Equal(t, "plugins", out.Directives.AttrStringLists[0].Attr)
}
