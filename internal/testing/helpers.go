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

package testing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bazeltools/bzl-gen-build/internal/bootstrap"
	"github.com/bazeltools/bzl-gen-build/pkg/extract"
	"github.com/bazeltools/bzl-gen-build/pkg/extractdefs"
)

// WriteRepoFiles materializes files under a fresh temporary directory,
// where each key is a path relative to the repo root and each value is
// the file's content. Parent directories are created as needed. Returns
// the repo root's absolute path.
//
// Example:
//
//	root := testing.WriteRepoFiles(t, map[string]string{
//	    "src/main/protos/foo.proto": "syntax = \"proto3\";\n",
//	})
func WriteRepoFiles(t *testing.T, files map[string]string) string {
	t.Helper()

	root := t.TempDir()
	for rel, content := range files {
		abs := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			t.Fatalf("failed to create directory for %s: %v", rel, err)
		}
		if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", rel, err)
		}
	}
	return root
}

// NewTempCache initializes a fresh cache root under a temporary directory
// and returns the extract and extract-defs phase views onto it.
//
// Example:
//
//	extractCache, defsCache := testing.NewTempCache(t)
func NewTempCache(t *testing.T) (extract.Cache, extractdefs.Cache) {
	t.Helper()

	info, err := bootstrap.InitCache(bootstrap.CacheConfig{Root: filepath.Join(t.TempDir(), "cache")}, nil)
	if err != nil {
		t.Fatalf("failed to init test cache: %v", err)
	}
	return info.ExtractCache(), info.ExtractDefsCache()
}

// WriteFakeExtractorOutput writes a minimal ExtractedData JSON document at
// path, as if an external extractor process had produced it, for tests
// that exercise the cache-reading side of the extract phase without
// spawning a real subprocess.
//
// Example:
//
//	testing.WriteFakeExtractorOutput(t, outPath, `{"label_or_repo_path":"foo","data_blocks":[...]}`)
func WriteFakeExtractorOutput(t *testing.T, path, json string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(json), 0o644); err != nil {
		t.Fatalf("failed to write fake extractor output: %v", err)
	}
}
