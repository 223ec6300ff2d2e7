// Copyright 2025 the bzl-gen-build authors
//
// SPDX-License-Identifier: Apache-2.0

package metrics

import "testing"

func TestRecordersDoNotPanic(t *testing.T) {
	FileWalked()
	CacheHit()
	CacheMiss()
	ExtractorRun()
	ExtractorError()
	UnitCombined()
	NodeInterned()
	CycleCollapsed()
	AncestorSynthesized()
	RuleWritten()
	RuleDeleted()
	NodeSkipped()
	ExtractDuration(0.01)
	ExtractDefsDuration(0.01)
	GraphDuration(0.01)
	EmitDuration(0.01)
}

func TestInitIsIdempotent(t *testing.T) {
	m.init()
	m.init()
}
