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

// Package ioatomic writes cache and output files atomically: write to a
// temporary sibling, fsync, then rename into place. Cache directories are
// shared across concurrent runs and processes, so a concurrent reader must
// never observe a half-written artifact.
package ioatomic

import (
	"os"
	"path/filepath"
)

// WriteFile atomically replaces path with data. It creates path's parent
// directory if needed, writes to a temp file in the same directory (so the
// final rename is within a single filesystem), and renames over path.
func WriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	// Best-effort cleanup: if the rename below does not happen (an error
	// path), remove the temp file rather than leaking it.
	succeeded := false
	defer func() {
		if !succeeded {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return err
	}
	succeeded = true
	return nil
}

// Exists reports whether path exists, treating any stat error other than
// "not exist" as if the file does not exist (callers that need to
// distinguish should call os.Stat directly).
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
