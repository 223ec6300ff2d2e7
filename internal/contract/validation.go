// Copyright 2025 the bzl-gen-build authors
// SPDX-License-Identifier: Apache-2.0

package contract

import (
	"os"
	"strconv"
)

const (
	// DefaultSoftLimitBytes is the baseline soft limit on one extractor
	// subprocess's output file, per CORE SPEC §6 "External extractor
	// process contract".
	DefaultSoftLimitBytes = 64 << 20 // 64 MiB

	// LabelMaxBytes is the maximum length of a --label-or-repo-path value
	// passed to an extractor subprocess.
	LabelMaxBytes = 4096
)

// SoftLimitBytes returns the effective soft limit on extractor output
// size. Controlled via env BZL_GEN_BUILD_SOFT_LIMIT_BYTES; falls back to
// DefaultSoftLimitBytes.
func SoftLimitBytes() int {
	if v := os.Getenv("BZL_GEN_BUILD_SOFT_LIMIT_BYTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return DefaultSoftLimitBytes
}

// ValidationResult represents the result of a validation check.
type ValidationResult struct {
	OK      bool
	Message string
}

// ValidateExtractorOutputSize checks an extractor subprocess's output file
// size against the soft limit before it is read into memory and unmarshaled.
func ValidateExtractorOutputSize(sizeBytes int64) *ValidationResult {
	if sizeBytes > int64(SoftLimitBytes()) {
		return &ValidationResult{
			OK:      false,
			Message: "extractor output exceeds soft limit",
		}
	}
	return &ValidationResult{OK: true}
}

// ValidateLabel checks a unit label against the maximum length accepted on
// an extractor's --label-or-repo-path flag.
func ValidateLabel(label string) *ValidationResult {
	if len(label) > LabelMaxBytes {
		return &ValidationResult{
			OK:      false,
			Message: "label exceeds maximum length",
		}
	}
	return &ValidationResult{OK: true}
}
