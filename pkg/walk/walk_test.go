// Copyright 2025 the bzl-gen-build authors
//
// SPDX-License-Identifier: Apache-2.0

package walk

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchesDoubleStarPrefix(t *testing.T) {
	assert.True(t, Matches("pkg/foo/bar.go", "**/bar.go"))
	assert.True(t, Matches("bar.go", "**/bar.go"))
	assert.False(t, Matches("pkg/foo/bar.go.bak", "**/bar.go"))
}

func TestMatchesDoubleStarSuffix(t *testing.T) {
	assert.True(t, Matches("vendor/a/b", "vendor/**"))
	assert.True(t, Matches("vendor", "vendor/**"))
	assert.True(t, Matches("src/vendor/a", "vendor/**"))
}

func TestMatchesSingleStarStopsAtSeparator(t *testing.T) {
	assert.True(t, Matches("foo_test.go", "*_test.go"))
	assert.False(t, Matches("pkg/foo_test.go", "pkg*_test.go"))
	assert.True(t, Matches("pkg/foo_test.go", "**/*_test.go"))
}

func TestMatchesCharacterClass(t *testing.T) {
	assert.True(t, Matches("file1.go", "file[0-9].go"))
	assert.False(t, Matches("fileA.go", "file[0-9].go"))
	assert.True(t, Matches("fileA.go", "file[!0-9].go"))
}

func TestMatchesQuestionMark(t *testing.T) {
	assert.True(t, Matches("ab.go", "a?.go"))
	assert.False(t, Matches("a/.go", "a?.go"))
}

func TestWalkSkipsIgnoredDirectories(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "vendor", "dep"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "vendor", "dep", "x.go"), []byte("x"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "main.go"), []byte("x"), 0o644))

	files, err := Walk(root, []string{"vendor/**"})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "src/main.go", files[0].RelPath)
}

func TestWalkReturnsSortedOrder(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.go"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte("x"), 0o644))

	files, err := Walk(root, nil)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a.go", files[0].RelPath)
	assert.Equal(t, "b.go", files[1].RelPath)
}

func TestHasExtension(t *testing.T) {
	assert.True(t, HasExtension("foo/bar.Go", []string{".go"}))
	assert.False(t, HasExtension("foo/bar.py", []string{".go"}))
}

func TestIsTest(t *testing.T) {
	assert.True(t, IsTest("pkg/foo_test.go", []string{"*_test.go"}))
	assert.False(t, IsTest("pkg/foo.go", []string{"*_test.go"}))
}
