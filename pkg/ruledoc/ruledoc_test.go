// Copyright 2025 the bzl-gen-build authors
//
// SPDX-License-Identifier: Apache-2.0

package ruledoc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortArgsOrdersNameFirstAndTrailingLast(t *testing.T) {
	kvs := []KV{
		{Key: "deps", Value: Str("x")},
		{Key: "srcs", Value: Str("y")},
		{Key: "visibility", Value: Str("z")},
		{Key: "name", Value: Str("n")},
		{Key: "testonly", Value: Str("t")},
	}
	SortArgs(kvs)

	var keys []string
	for _, kv := range kvs {
		keys = append(keys, kv.Key)
	}
	assert.Equal(t, []string{"name", "testonly", "srcs", "visibility", "deps"}, keys)
}

func TestSortArgsOrdersUnknownKeysAlphabetically(t *testing.T) {
	kvs := []KV{
		{Key: "zeta", Value: Str("1")},
		{Key: "alpha", Value: Str("2")},
		{Key: "name", Value: Str("3")},
	}
	SortArgs(kvs)

	var keys []string
	for _, kv := range kvs {
		keys = append(keys, kv.Key)
	}
	assert.Equal(t, []string{"name", "alpha", "zeta"}, keys)
}

func TestAddLoadDeduplicates(t *testing.T) {
	doc := &Document{}
	doc.AddLoad("//x:y.bzl", "go_library")
	doc.AddLoad("//x:y.bzl", "go_library")
	doc.AddLoad("//x:y.bzl", "go_test")
	assert.Len(t, doc.Loads, 2)
}

func TestRenderOrdersLoadsBeforeCallsAndSortsKeywordArgs(t *testing.T) {
	doc := &Document{}
	doc.AddLoad("@io_bazel_rules_go//go:def.bzl", "go_library")
	doc.AddCall(Call{
		Function: "go_library",
		Args: []KV{
			{Key: "deps", Value: StrList("//pkg/foo")},
			{Key: "srcs", Value: RecursiveGlob(".go")},
			{Key: "name", Value: Str("bar")},
		},
	})

	out := string(Render(doc))
	loadIdx := strings.Index(out, "load(")
	callIdx := strings.Index(out, "go_library(")
	nameIdx := strings.Index(out, "name = ")
	depsIdx := strings.Index(out, "deps = ")

	assert.GreaterOrEqual(t, loadIdx, 0)
	assert.GreaterOrEqual(t, callIdx, 0)
	assert.Less(t, loadIdx, callIdx, "load statement should render before the call")
	assert.Less(t, nameIdx, depsIdx, "name should render before deps")
	assert.Contains(t, out, `glob(["**/*.go"])`)
}

func TestRenderDeduplicatesLoadsFromDifferentCalls(t *testing.T) {
	doc := &Document{}
	doc.AddLoad("@rules_proto//proto:defs.bzl", "proto_library")
	doc.AddLoad("@rules_proto//proto:defs.bzl", "proto_library")
	out := string(Render(doc))
	assert.Equal(t, 1, strings.Count(out, "proto_library"))
}
