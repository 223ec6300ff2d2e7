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

// Package metrics registers and exposes the Prometheus counters and
// histograms emitted by every phase driver: cache hits/misses, extractor
// invocations, files walked, graph nodes collapsed, and rule files
// written or deleted.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type pipelineMetrics struct {
	once sync.Once

	// Extract phase
	filesWalked      prometheus.Counter
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	extractorRuns    prometheus.Counter
	extractorErrors  prometheus.Counter

	// ExtractDefs phase
	unitsCombined prometheus.Counter

	// Graph phase
	nodesInterned  prometheus.Counter
	cyclesCollapsed prometheus.Counter
	ancestorsSynthesized prometheus.Counter

	// Emit phase
	rulesWritten    prometheus.Counter
	rulesDeleted    prometheus.Counter
	nodesSkipped    prometheus.Counter

	// Durations
	extractDuration    prometheus.Histogram
	extractDefsDuration prometheus.Histogram
	graphDuration      prometheus.Histogram
	emitDuration       prometheus.Histogram
}

var m pipelineMetrics

func (m *pipelineMetrics) init() {
	m.once.Do(func() {
		m.filesWalked = prometheus.NewCounter(prometheus.CounterOpts{Name: "bzl_gen_build_files_walked_total", Help: "Source files visited during the extract phase"})
		m.cacheHits = prometheus.NewCounter(prometheus.CounterOpts{Name: "bzl_gen_build_cache_hits_total", Help: "Per-file or per-unit cache hits"})
		m.cacheMisses = prometheus.NewCounter(prometheus.CounterOpts{Name: "bzl_gen_build_cache_misses_total", Help: "Per-file or per-unit cache misses"})
		m.extractorRuns = prometheus.NewCounter(prometheus.CounterOpts{Name: "bzl_gen_build_extractor_runs_total", Help: "External extractor subprocess invocations"})
		m.extractorErrors = prometheus.NewCounter(prometheus.CounterOpts{Name: "bzl_gen_build_extractor_errors_total", Help: "Extractor subprocess failures"})

		m.unitsCombined = prometheus.NewCounter(prometheus.CounterOpts{Name: "bzl_gen_build_units_combined_total", Help: "Units combined during the defs phase"})

		m.nodesInterned = prometheus.NewCounter(prometheus.CounterOpts{Name: "bzl_gen_build_nodes_interned_total", Help: "Graph nodes interned during assembly"})
		m.cyclesCollapsed = prometheus.NewCounter(prometheus.CounterOpts{Name: "bzl_gen_build_cycles_collapsed_total", Help: "Cycles collapsed by the graph engine"})
		m.ancestorsSynthesized = prometheus.NewCounter(prometheus.CounterOpts{Name: "bzl_gen_build_ancestors_synthesized_total", Help: "Synthetic common-ancestor nodes created"})

		m.rulesWritten = prometheus.NewCounter(prometheus.CounterOpts{Name: "bzl_gen_build_rules_written_total", Help: "Build files written"})
		m.rulesDeleted = prometheus.NewCounter(prometheus.CounterOpts{Name: "bzl_gen_build_rules_deleted_total", Help: "Stale build files deleted"})
		m.nodesSkipped = prometheus.NewCounter(prometheus.CounterOpts{Name: "bzl_gen_build_nodes_skipped_total", Help: "Graph nodes with no matching module configuration"})

		buckets := []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}
		m.extractDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "bzl_gen_build_extract_seconds", Help: "Extract phase duration", Buckets: buckets})
		m.extractDefsDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "bzl_gen_build_extract_defs_seconds", Help: "ExtractDefs phase duration", Buckets: buckets})
		m.graphDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "bzl_gen_build_graph_seconds", Help: "Graph assembly and collapse duration", Buckets: buckets})
		m.emitDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "bzl_gen_build_emit_seconds", Help: "Emit phase duration", Buckets: buckets})

		prometheus.MustRegister(
			m.filesWalked, m.cacheHits, m.cacheMisses, m.extractorRuns, m.extractorErrors,
			m.unitsCombined,
			m.nodesInterned, m.cyclesCollapsed, m.ancestorsSynthesized,
			m.rulesWritten, m.rulesDeleted, m.nodesSkipped,
			m.extractDuration, m.extractDefsDuration, m.graphDuration, m.emitDuration,
		)
	})
}

// FileWalked records one source file visited during the extract phase.
func FileWalked() { m.init(); m.filesWalked.Inc() }

// CacheHit records one cache hit (per-file or per-unit).
func CacheHit() { m.init(); m.cacheHits.Inc() }

// CacheMiss records one cache miss (per-file or per-unit).
func CacheMiss() { m.init(); m.cacheMisses.Inc() }

// ExtractorRun records one external extractor invocation.
func ExtractorRun() { m.init(); m.extractorRuns.Inc() }

// ExtractorError records one failed extractor invocation.
func ExtractorError() { m.init(); m.extractorErrors.Inc() }

// UnitCombined records one unit's defs union during Phase D.
func UnitCombined() { m.init(); m.unitsCombined.Inc() }

// NodeInterned records one graph node allocated during Build.
func NodeInterned() { m.init(); m.nodesInterned.Inc() }

// CycleCollapsed records one cycle collapse.
func CycleCollapsed() { m.init(); m.cyclesCollapsed.Inc() }

// AncestorSynthesized records one new common-ancestor node.
func AncestorSynthesized() { m.init(); m.ancestorsSynthesized.Inc() }

// RuleWritten records one rule file written during Phase P.
func RuleWritten() { m.init(); m.rulesWritten.Inc() }

// RuleDeleted records one stale rule file deleted during Phase P.
func RuleDeleted() { m.init(); m.rulesDeleted.Inc() }

// NodeSkipped records one graph node with no matching module.
func NodeSkipped() { m.init(); m.nodesSkipped.Inc() }

// ExtractDuration observes one extract-phase run's wall-clock seconds.
func ExtractDuration(seconds float64) { m.init(); m.extractDuration.Observe(seconds) }

// ExtractDefsDuration observes one defs-phase run's wall-clock seconds.
func ExtractDefsDuration(seconds float64) { m.init(); m.extractDefsDuration.Observe(seconds) }

// GraphDuration observes one graph-phase run's wall-clock seconds.
func GraphDuration(seconds float64) { m.init(); m.graphDuration.Observe(seconds) }

// EmitDuration observes one emit-phase run's wall-clock seconds.
func EmitDuration(seconds float64) { m.init(); m.emitDuration.Observe(seconds) }
