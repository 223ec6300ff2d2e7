// Copyright 2025 the bzl-gen-build authors
//
// SPDX-License-Identifier: Apache-2.0

package digest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	d := HashBytes([]byte("hello world"))
	parsed, err := Parse(d.String())
	require.NoError(t, err)
	assert.Equal(t, d, parsed)
}

func TestParseHexPrefixParity(t *testing.T) {
	d := HashBytes([]byte("parity"))
	withPrefix := "0x" + d.String()
	a, err := Parse(withPrefix)
	require.NoError(t, err)
	b, err := Parse(d.String())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestParseCaseInsensitive(t *testing.T) {
	d := HashBytes([]byte("case"))
	upper := strings.ToUpper(d.String())
	parsed, err := Parse(upper)
	require.NoError(t, err)
	assert.Equal(t, d, parsed)
	assert.Equal(t, strings.ToLower(upper), parsed.String())
}

func TestParseWrongLength(t *testing.T) {
	_, err := Parse("abcd")
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 4, pe.Length)
}

func TestParseNonHexChar(t *testing.T) {
	bad := strings.Repeat("a", Size*2-1) + "z"
	_, err := Parse(bad)
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 'z', pe.Char)
}

func TestHashSequenceMatchesConcatenation(t *testing.T) {
	a, b, c := []byte("a"), []byte("bb"), []byte("ccc")
	seq := HashSequence([][]byte{a, b, c})
	concat := HashBytes([]byte("abbccc"))
	assert.Equal(t, concat, seq)
}

func TestHashFileStreams(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	content := []byte("streamed content for hashing")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	fromFile, err := HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, HashBytes(content), fromFile)
}

func TestHashFileMissing(t *testing.T) {
	_, err := HashFile(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

func TestDigestOrdering(t *testing.T) {
	low := Digest{0x00}
	high := Digest{0x01}
	assert.True(t, low.Less(high))
	assert.False(t, high.Less(low))
	assert.Equal(t, 0, low.Compare(low))
}
