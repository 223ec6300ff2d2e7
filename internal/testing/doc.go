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

// Package testing provides test helpers shared across the phase-driver
// packages: materializing a temporary source tree, initializing a
// temporary cache root, and seeding fake extractor output.
//
// # Quick Start
//
//	func TestMyFeature(t *testing.T) {
//	    root := testing.WriteRepoFiles(t, map[string]string{
//	        "src/main/protos/foo.proto": "syntax = \"proto3\";\n",
//	    })
//	    extractCache, _ := testing.NewTempCache(t)
//	    _ = root
//	    _ = extractCache
//	}
package testing
