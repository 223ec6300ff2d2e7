// Copyright 2025 the bzl-gen-build authors
//
// SPDX-License-Identifier: Apache-2.0

package bootstrap

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitCacheCreatesSubdirectories(t *testing.T) {
	root := filepath.Join(t.TempDir(), "cache")

	info, err := InitCache(CacheConfig{Root: root}, nil)
	require.NoError(t, err)
	assert.Equal(t, root, info.Root)

	for _, sub := range cacheSubdirs {
		assert.DirExists(t, filepath.Join(root, sub))
	}
}

func TestInitCacheIsIdempotent(t *testing.T) {
	root := filepath.Join(t.TempDir(), "cache")

	_, err := InitCache(CacheConfig{Root: root}, nil)
	require.NoError(t, err)
	_, err = InitCache(CacheConfig{Root: root}, nil)
	require.NoError(t, err)
}

func TestOpenCacheFailsWhenAbsent(t *testing.T) {
	root := filepath.Join(t.TempDir(), "missing")
	_, err := OpenCache(CacheConfig{Root: root}, nil)
	assert.Error(t, err)
}

func TestOpenCacheSucceedsAfterInit(t *testing.T) {
	root := filepath.Join(t.TempDir(), "cache")
	_, err := InitCache(CacheConfig{Root: root}, nil)
	require.NoError(t, err)

	info, err := OpenCache(CacheConfig{Root: root}, nil)
	require.NoError(t, err)
	assert.Equal(t, extractCacheRoot(info), root)
}

func extractCacheRoot(info *CacheInfo) string {
	return info.ExtractCache().Root
}
