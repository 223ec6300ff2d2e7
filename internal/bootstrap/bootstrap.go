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

package bootstrap

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bazeltools/bzl-gen-build/pkg/extract"
	"github.com/bazeltools/bzl-gen-build/pkg/extractdefs"
)

// cacheSubdirs are the on-disk directories a cache root must contain, per
// CORE SPEC §6 "Cache directory layout".
var cacheSubdirs = []string{
	"sha_to_extract",
	"path_sha_to_merged_defrefs",
	"path_sha_to_exports",
}

// CacheConfig controls where the content-addressed cache lives.
type CacheConfig struct {
	// Root is the cache directory. Defaults to ~/.cache/bzl-gen-build.
	Root string
}

// CacheInfo describes an initialized cache root.
type CacheInfo struct {
	Root string
}

func defaultRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".cache", "bzl-gen-build"), nil
}

// InitCache creates the cache root and its subdirectories if they don't
// already exist. Idempotent: calling it repeatedly against the same root
// is safe and never touches existing cache entries.
func InitCache(config CacheConfig, logger *slog.Logger) (*CacheInfo, error) {
	if logger == nil {
		logger = slog.Default()
	}

	root := config.Root
	if root == "" {
		r, err := defaultRoot()
		if err != nil {
			return nil, err
		}
		root = r
	}

	logger.Info("bootstrap.cache.init.start", "cache_root", root)

	for _, sub := range cacheSubdirs {
		dir := filepath.Join(root, sub)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache subdirectory %s: %w", dir, err)
		}
	}

	logger.Info("bootstrap.cache.init.success", "cache_root", root)

	return &CacheInfo{Root: root}, nil
}

// OpenCache resolves an existing cache root without creating it, failing
// if the root is absent. Use InitCache for a first run.
func OpenCache(config CacheConfig, logger *slog.Logger) (*CacheInfo, error) {
	if logger == nil {
		logger = slog.Default()
	}

	root := config.Root
	if root == "" {
		r, err := defaultRoot()
		if err != nil {
			return nil, err
		}
		root = r
	}

	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, fmt.Errorf("cache root not found: %s (run InitCache first)", root)
	}

	logger.Debug("bootstrap.cache.open", "cache_root", root)

	return &CacheInfo{Root: root}, nil
}

// ExtractCache returns the Phase E cache view rooted at this cache's root.
func (c *CacheInfo) ExtractCache() extract.Cache {
	return extract.Cache{Root: c.Root}
}

// ExtractDefsCache returns the Phase D cache view rooted at this cache's
// root.
func (c *CacheInfo) ExtractDefsCache() extractdefs.Cache {
	return extractdefs.Cache{Root: c.Root}
}
