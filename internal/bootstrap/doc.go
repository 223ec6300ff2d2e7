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

// Package bootstrap resolves and initializes the on-disk cache root shared
// by the extract and extract-defs phases.
//
// # Quick Start
//
//	info, err := bootstrap.InitCache(bootstrap.CacheConfig{
//	    Root: "/var/cache/bzl-gen-build",
//	}, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	extractCache := info.ExtractCache()
//
// # Idempotency
//
// InitCache is idempotent: calling it repeatedly against the same root is
// safe and never disturbs existing cache entries, since every entry
// underneath is itself named by content hash.
//
// # Cache Layout
//
// A cache root contains three subdirectories, one per content-addressed
// artifact kind:
//
//   - sha_to_extract: per-file extractor output, keyed by input digest.
//   - path_sha_to_merged_defrefs: per-unit merged TreeNode artifacts.
//   - path_sha_to_exports: per-unit exported-defs artifacts.
//
// # Opening An Existing Root
//
// OpenCache resolves a cache root without creating it, failing if absent:
//
//	info, err := bootstrap.OpenCache(bootstrap.CacheConfig{Root: root}, logger)
package bootstrap
