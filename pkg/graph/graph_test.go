// Copyright 2025 the bzl-gen-build authors
//
// SPDX-License-Identifier: Apache-2.0

package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bazeltools/bzl-gen-build/pkg/model"
)

func unit(label string, defs []string, refs ...string) UnitData {
	tn := model.NewTreeNode(label)
	for _, r := range refs {
		tn.Refs[r] = true
	}
	return UnitData{Unit: label, Tree: tn, Defs: defs}
}

func unitWithRuntimeRef(label string, defs []string, runtimeRef string) UnitData {
	tn := model.NewTreeNode(label)
	tn.RuntimeRefs[runtimeRef] = true
	return UnitData{Unit: label, Tree: tn, Defs: defs}
}

// Scenario A: a two-node cycle that shares a path prefix collapses into
// the shallower member, which absorbs the deeper one.
func TestCollapseSimpleCycleSharedPrefix(t *testing.T) {
	units := []UnitData{
		unit("com/foo/bar/baz", []string{"Baz"}, "BazBoot"),
		unit("com/foo/bar/baz/boot", []string{"BazBoot"}, "Baz", "Ba3"),
		unit("com/foo/bar/ba3", []string{"Ba3"}),
	}
	e, err := Build(units, nil)
	require.NoError(t, err)
	require.NoError(t, e.Collapse())

	mapping := e.Emit().BuildMapping
	assert.Len(t, mapping, 2)

	baz, ok := mapping["com/foo/bar/baz"]
	require.True(t, ok)
	assert.Equal(t, model.RealNode, baz.NodeType)
	assert.Equal(t, []string{"com/foo/bar/ba3"}, baz.Dependencies)
	_, hasBoot := baz.ChildNodes["com/foo/bar/baz/boot"]
	assert.True(t, hasBoot)

	_, ok = mapping["com/foo/bar/ba3"]
	assert.True(t, ok)
	_, ok = mapping["com/foo/bar/baz/boot"]
	assert.False(t, ok, "boot should no longer be live after being absorbed")
}

// Scenario B: the same shape, but one cycle edge is a runtime edge.
func TestCollapseCycleWithRuntimeEdge(t *testing.T) {
	baz := unit("com/foo/bar/baz", []string{"Baz"})
	boot := unitWithRuntimeRef("com/foo/bar/baz/boot", []string{"BazBoot"}, "Baz")
	boot.Tree.Refs["Ba3"] = true
	ba3 := unit("com/foo/bar/ba3", []string{"Ba3"})

	baz.Tree.Refs["BazBoot"] = true

	e, err := Build([]UnitData{baz, boot, ba3}, nil)
	require.NoError(t, err)
	require.NoError(t, e.Collapse())

	mapping := e.Emit().BuildMapping
	assert.Len(t, mapping, 2)
	node, ok := mapping["com/foo/bar/baz"]
	require.True(t, ok)
	assert.Equal(t, []string{"com/foo/bar/ba3"}, node.Dependencies)
}

// Scenario C: a mutual cycle with no RealNode overlap at a shared prefix
// synthesizes a new ancestor node.
func TestCollapseMutualCycleSynthesizesAncestor(t *testing.T) {
	baz := unit("com/foo/bar/baz", []string{"Baz"}, "Ba2")
	ba2 := unit("com/foo/bar/ba2", []string{"Ba2"}, "Baz", "Ba3")
	ba3 := unit("com/foo/bar/ba3", []string{"Ba3"})

	e, err := Build([]UnitData{baz, ba2, ba3}, nil)
	require.NoError(t, err)
	require.NoError(t, e.Collapse())

	mapping := e.Emit().BuildMapping
	assert.Len(t, mapping, 2)

	synthetic, ok := mapping["com/foo/bar"]
	require.True(t, ok, "expected a synthesized ancestor at com/foo/bar")
	assert.Equal(t, model.Synthetic, synthetic.NodeType)
	assert.Equal(t, []string{"com/foo/bar/ba3"}, synthetic.Dependencies)
	_, hasBaz := synthetic.ChildNodes["com/foo/bar/baz"]
	_, hasBa2 := synthetic.ChildNodes["com/foo/bar/ba2"]
	assert.True(t, hasBaz)
	assert.True(t, hasBa2)

	_, ok = mapping["com/foo/bar/ba3"]
	assert.True(t, ok)
}

// Scenario D: no cycle leaves every node live and untouched.
func TestCollapseNoCycleIsNoOp(t *testing.T) {
	baz := unit("com/foo/bar/baz", []string{"Baz"}, "Ba2")
	ba2 := unit("com/foo/bar/ba2", []string{"Ba2"}, "Ba3")
	ba3 := unit("com/foo/bar/ba3", []string{"Ba3"})

	e, err := Build([]UnitData{baz, ba2, ba3}, nil)
	require.NoError(t, err)
	require.NoError(t, e.Collapse())

	mapping := e.Emit().BuildMapping
	assert.Len(t, mapping, 3)
	for _, n := range mapping {
		assert.Empty(t, n.ChildNodes)
	}
}

func TestUnknownRefsAreDroppedSilently(t *testing.T) {
	a := unit("a", []string{"A"}, "DoesNotExist")
	e, err := Build([]UnitData{a}, nil)
	require.NoError(t, err)
	require.NoError(t, e.Collapse())
	mapping := e.Emit().BuildMapping
	assert.Empty(t, mapping["a"].Dependencies)
}

func TestEntityLinkClosureExpandsTransitiveRefs(t *testing.T) {
	a := unit("a", []string{"A"}, "Link1")
	b := unit("b", []string{"B"})
	c := unit("c", []string{"C"})

	links := []model.EntityLink{
		{From: "Link1", To: []string{"Link2"}},
		{From: "Link2", To: []string{"B", "C"}},
	}

	e, err := Build([]UnitData{a, b, c}, links)
	require.NoError(t, err)
	require.NoError(t, e.Collapse())

	mapping := e.Emit().BuildMapping
	assert.ElementsMatch(t, []string{"b", "c"}, mapping["a"].Dependencies)
}

func TestFindOrCreateCommonAncestorDeepestSharedPrefix(t *testing.T) {
	label, err := findOrCreateCommonAncestor([]string{"com/foo/a", "com/foo/b"})
	require.NoError(t, err)
	assert.Equal(t, "com/foo", label)
}

func TestFindOrCreateCommonAncestorSingleLabel(t *testing.T) {
	label, err := findOrCreateCommonAncestor([]string{"com/foo/bar"})
	require.NoError(t, err)
	assert.Equal(t, "com/foo/bar", label)
}
