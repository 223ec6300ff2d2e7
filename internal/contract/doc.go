// Copyright 2025 the bzl-gen-build authors
// SPDX-License-Identifier: Apache-2.0

// Package contract provides validation constants and utilities for the
// external extractor process boundary described in CORE SPEC §6.
//
// # Output Size Limits
//
// An extractor subprocess is untrusted: a buggy or malicious extractor
// could write an arbitrarily large output file. The extract phase checks
// the file's size before reading it into memory:
//
//	info, _ := os.Stat(outPath)
//	if res := contract.ValidateExtractorOutputSize(info.Size()); !res.OK {
//	    return errors.NewExtractorError(res.Message, outPath, "", nil)
//	}
//
// # Configuration via Environment
//
// The soft limit can be adjusted via BZL_GEN_BUILD_SOFT_LIMIT_BYTES:
//
//	export BZL_GEN_BUILD_SOFT_LIMIT_BYTES=33554432  # 32 MiB
//
// If unset or invalid, DefaultSoftLimitBytes (64 MiB) applies.
package contract
