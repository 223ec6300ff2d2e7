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

// Package graph implements Phase G: it assembles an interned node graph
// from merged extract output and per-unit def lists, resolves symbolic
// references to their owning nodes, collapses cycles by hoisting them to
// their nearest common path ancestor, and emits an acyclic GraphMapping.
package graph

import (
	"sort"
	"strings"

	"github.com/bazeltools/bzl-gen-build/internal/errors"
	"github.com/bazeltools/bzl-gen-build/pkg/metrics"
	"github.com/bazeltools/bzl-gen-build/pkg/model"
)

// nodeState is reverse_map's value: everything about a node that survives
// independent of its current liveness.
type nodeState struct {
	label    string
	nodeType model.NodeType
	metadata model.GraphNodeMetadata
}

// Engine holds the interned graph state described in CORE SPEC §3. The
// zero value is not usable; construct with Build.
type Engine struct {
	defToID map[string]int
	forward map[string]int
	reverse map[int]*nodeState

	compileEdges map[int]map[int]bool
	runtimeEdges map[int]map[int]bool
	consumed     map[int]map[int]bool
	ownsMap      map[int][]int

	nodeCounter int
}

// UnitData is one unit's input to graph assembly: its merged extract
// record and the defs list attributed to it (defs may be a superset of
// tn.Defs if contributed by sibling extract runs; see the ExtractDefs
// phase).
type UnitData struct {
	Unit string
	Tree *model.TreeNode
	Defs []string
}

func newEngine() *Engine {
	return &Engine{
		defToID:      map[string]int{},
		forward:      map[string]int{},
		reverse:      map[int]*nodeState{},
		compileEdges: map[int]map[int]bool{},
		runtimeEdges: map[int]map[int]bool{},
		consumed:     map[int]map[int]bool{},
		ownsMap:      map[int][]int{},
	}
}

// Build assembles the initial graph from every unit's defs and merged
// extract record, plus any globally configured entity-link directives,
// per CORE SPEC §4.5.1.
func Build(units []UnitData, globalEntityLinks []model.EntityLink) (*Engine, error) {
	e := newEngine()

	sorted := make([]UnitData, len(units))
	copy(sorted, units)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Unit < sorted[j].Unit })

	// Step 1: intern every unit's defs, in unit order, then def order
	// within a unit, so ids are monotonic in a deterministic insertion
	// order.
	for _, u := range sorted {
		defs := append([]string(nil), u.Defs...)
		sort.Strings(defs)
		for _, d := range defs {
			e.internDef(d)
		}
	}

	// Step 3: allocate a node id per unit, populate forward/reverse maps,
	// seed owns_map.
	for _, u := range sorted {
		id := e.internNode(u.Unit, model.RealNode, model.MetadataFrom(u.Tree.Directives))
		defs := append([]string(nil), u.Defs...)
		sort.Strings(defs)
		for _, d := range defs {
			defID := e.internDef(d)
			e.ownsMap[defID] = append(e.ownsMap[defID], id)
		}
		e.compileEdges[id] = map[int]bool{}
	}

	// Step 4: collect entity_link directives (global + per-unit) and run
	// the fixpoint closure.
	pending := map[string]map[string]bool{}
	addLinks := func(links []model.EntityLink) {
		for _, l := range links {
			set, ok := pending[l.From]
			if !ok {
				set = map[string]bool{}
				pending[l.From] = set
			}
			for _, t := range l.To {
				set[t] = true
			}
		}
	}
	addLinks(globalEntityLinks)
	for _, u := range sorted {
		addLinks(u.Tree.Directives.EntityLinks)
	}
	closure := closeEntityLinks(pending)

	// Step 5: add compile/runtime edges from each unit's effective refs to
	// every owner of a resolved symbol.
	for _, u := range sorted {
		id := e.forward[u.Unit]
		addEdgesForRefs(e, id, u.Tree.Refs, closure, e.compileEdges)
		if len(u.Tree.RuntimeRefs) > 0 {
			if e.runtimeEdges[id] == nil {
				e.runtimeEdges[id] = map[int]bool{}
			}
			addEdgesForRefs(e, id, u.Tree.RuntimeRefs, closure, e.runtimeEdges)
		}
	}

	// Step 6.
	e.nodeCounter = len(sorted)
	return e, nil
}

func (e *Engine) internDef(d string) int {
	if id, ok := e.defToID[d]; ok {
		return id
	}
	id := len(e.defToID)
	e.defToID[d] = id
	return id
}

func (e *Engine) internNode(label string, nodeType model.NodeType, meta model.GraphNodeMetadata) int {
	if id, ok := e.forward[label]; ok {
		return id
	}
	id := e.nodeCounter
	e.nodeCounter++
	e.forward[label] = id
	e.reverse[id] = &nodeState{label: label, nodeType: nodeType, metadata: meta}
	metrics.NodeInterned()
	if nodeType == model.Synthetic {
		metrics.AncestorSynthesized()
	}
	return id
}

// closeEntityLinks computes the fixpoint closure of the entity-link
// relation: while any key's target set grows after substituting each
// target with its own targets, iterate. Monotone and terminating because
// the symbol universe is finite.
func closeEntityLinks(pending map[string]map[string]bool) map[string]map[string]bool {
	changed := true
	for changed {
		changed = false
		for from, targets := range pending {
			additions := map[string]bool{}
			for t := range targets {
				if sub, ok := pending[t]; ok {
					for st := range sub {
						if !targets[st] {
							additions[st] = true
						}
					}
				}
			}
			for a := range additions {
				targets[a] = true
				changed = true
			}
			pending[from] = targets
		}
	}
	return pending
}

// addEdgesForRefs resolves unitRefs (expanded through the entity-link
// closure) to owning node ids and records an edge from id to each owner,
// dropping self-edges and unknown symbols.
func addEdgesForRefs(e *Engine, id int, unitRefs map[string]bool, closure map[string]map[string]bool, edges map[int]map[int]bool) {
	effective := map[string]bool{}
	for r := range unitRefs {
		effective[r] = true
		if targets, ok := closure[r]; ok {
			for t := range targets {
				effective[t] = true
			}
		}
	}
	if edges[id] == nil {
		edges[id] = map[int]bool{}
	}
	for sym := range effective {
		defID, ok := e.defToID[sym]
		if !ok {
			continue
		}
		for _, owner := range e.ownsMap[defID] {
			if owner == id {
				continue
			}
			edges[id][owner] = true
		}
	}
}

// Collapse runs the cycle-detection-and-collapse loop (CORE SPEC §4.5.4)
// to completion, returning an error only if a common-ancestor synthesis
// or absorption step hits an unrecoverable invariant violation.
func (e *Engine) Collapse() error {
	noLoops := map[int]bool{}
	for {
		liveSorted := e.liveNodesWithEdges()
		collapsedAny := false
		for _, n := range liveSorted {
			if noLoops[n] {
				continue
			}
			if e.inCycle(n) {
				target, err := e.collapseLoop(n)
				if err != nil {
					return err
				}
				if err := e.commonAncestor(); err != nil {
					return err
				}
				noLoops = map[int]bool{}
				_ = target
				collapsedAny = true
				break
			}
			noLoops[n] = true
		}
		if !collapsedAny {
			return nil
		}
	}
}

// liveNodesWithEdges returns every live node id with a non-empty outgoing
// edge set, in ascending id order (a deterministic, if arbitrary, scan
// order).
func (e *Engine) liveNodesWithEdges() []int {
	var out []int
	for n := range e.compileEdges {
		if len(e.compileEdges[n]) > 0 || len(e.runtimeEdges[n]) > 0 {
			out = append(out, n)
		}
	}
	sort.Ints(out)
	return out
}

func (e *Engine) outgoing(n int) []int {
	seen := map[int]bool{}
	var out []int
	for t := range e.compileEdges[n] {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	for t := range e.runtimeEdges[n] {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	sort.Ints(out)
	return out
}

// inCycle runs DFS from n and reports whether n is reachable from itself.
func (e *Engine) inCycle(n int) bool {
	visited := map[int]bool{}
	var dfs func(cur int) bool
	dfs = func(cur int) bool {
		for _, next := range e.outgoing(cur) {
			if next == n {
				return true
			}
			if visited[next] {
				continue
			}
			visited[next] = true
			if dfs(next) {
				return true
			}
		}
		return false
	}
	return dfs(n)
}

// collapseLoop walks outgoing edges from n via DFS, recording the current
// path, until it reaches n again. The witness path is the cycle's members;
// they are merged into a synthesized or reused common-ancestor node.
func (e *Engine) collapseLoop(n int) (int, error) {
	path := []int{n}
	onPath := map[int]bool{n: true}

	var witness []int
	var find func(cur int) bool
	find = func(cur int) bool {
		for _, next := range e.outgoing(cur) {
			if next == n {
				witness = append([]int(nil), path...)
				return true
			}
			if onPath[next] {
				continue
			}
			path = append(path, next)
			onPath[next] = true
			if find(next) {
				return true
			}
			path = path[:len(path)-1]
			onPath[next] = false
		}
		return false
	}
	if !find(n) {
		return 0, errors.NewGraphError("cycle witness not found though in_cycle reported true", "", "", nil)
	}
	metrics.CycleCollapsed()

	members := dedupInts(witness)
	labels := make([]string, len(members))
	for i, m := range members {
		labels[i] = e.reverse[m].label
	}

	targetLabel, err := findOrCreateCommonAncestor(labels)
	if err != nil {
		return 0, err
	}
	target := e.internNode(targetLabel, model.Synthetic, model.GraphNodeMetadata{})
	if _, ok := e.compileEdges[target]; !ok {
		e.compileEdges[target] = map[int]bool{}
	}

	sources := make([]int, 0, len(members))
	for _, m := range members {
		if m != target {
			sources = append(sources, m)
		}
	}
	if err := e.merge(target, sources); err != nil {
		return 0, err
	}
	return target, nil
}

func dedupInts(xs []int) []int {
	seen := map[int]bool{}
	var out []int
	for _, x := range xs {
		if !seen[x] {
			seen[x] = true
			out = append(out, x)
		}
	}
	return out
}

// findOrCreateCommonAncestor computes the deepest path prefix common to
// every label in L, per CORE SPEC §4.5.2.
func findOrCreateCommonAncestor(labels []string) (string, error) {
	if len(labels) == 0 {
		return "", errors.NewGraphError("cannot find common ancestor of an empty label set", "", "", nil)
	}
	candidate := labels[0]
	for {
		allMatch := true
		for _, l := range labels {
			if l == candidate || strings.HasPrefix(l, candidate+"/") {
				continue
			}
			allMatch = false
			break
		}
		if allMatch {
			return candidate, nil
		}
		shortened := parentDir(candidate)
		if shortened == candidate {
			return "", errors.NewGraphError(
				"cannot shorten common ancestor candidate further",
				strings.Join(labels, ", "),
				"",
				nil,
			)
		}
		candidate = shortened
	}
}

func parentDir(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return path
	}
	return path[:idx]
}

// merge collapses sources into destination per CORE SPEC §4.5.3. Folding
// happens first (destination's own prior edges may target a source, which
// the rewrite pass below turns into a self-edge and drops, exactly as it
// would for any other live node).
func (e *Engine) merge(destination int, sources []int) error {
	sourceSet := map[int]bool{}
	for _, s := range sources {
		sourceSet[s] = true
	}

	destCompile := e.compileEdges[destination]
	if destCompile == nil {
		destCompile = map[int]bool{}
	}
	for _, s := range sources {
		for t := range e.compileEdges[s] {
			destCompile[t] = true
		}
		delete(e.compileEdges, s)
	}
	e.compileEdges[destination] = destCompile

	destRuntime := e.runtimeEdges[destination]
	for _, s := range sources {
		if rs, ok := e.runtimeEdges[s]; ok {
			if destRuntime == nil {
				destRuntime = map[int]bool{}
			}
			for t := range rs {
				destRuntime[t] = true
			}
			delete(e.runtimeEdges, s)
		}
	}
	if destRuntime != nil {
		e.runtimeEdges[destination] = destRuntime
	}

	// Remap every live node's edge set, including destination's own just
	// folded set: any target that was a source becomes destination, and
	// any resulting or pre-existing self-edge is dropped.
	rewrite := func(edges map[int]map[int]bool) {
		for n, set := range edges {
			for s := range sourceSet {
				if set[s] {
					delete(set, s)
					if n != destination {
						set[destination] = true
					}
				}
			}
			delete(set, n)
		}
	}
	rewrite(e.compileEdges)
	rewrite(e.runtimeEdges)

	consumedSet := e.consumed[destination]
	if consumedSet == nil {
		consumedSet = map[int]bool{}
	}
	for _, s := range sources {
		consumedSet[s] = true
		for c := range e.consumed[s] {
			consumedSet[c] = true
		}
		delete(e.consumed, s)
	}
	e.consumed[destination] = consumedSet

	return nil
}

// commonAncestor absorbs, into each node that has consumed cycle members
// (a synthesized ancestor or a reused existing node), every live node
// whose label is a proper path prefix of a consumed member relative to
// that ancestor, per CORE SPEC §4.5.5.
func (e *Engine) commonAncestor() error {
	for k, members := range e.consumed {
		kLabel := e.reverse[k].label
		var toAbsorb []int
		for m := range members {
			mLabel := e.reverse[m].label
			if mLabel == kLabel {
				continue
			}
			if !strings.HasPrefix(mLabel, kLabel+"/") {
				return errors.NewGraphError(
					"consumed member label does not start with its ancestor's label",
					mLabel+" vs "+kLabel,
					"",
					nil,
				)
			}
			remainder := strings.TrimPrefix(mLabel, kLabel+"/")
			segments := strings.Split(remainder, "/")
			prefix := kLabel
			for i := 0; i < len(segments)-1; i++ {
				prefix = prefix + "/" + segments[i]
				if id, ok := e.forward[prefix]; ok && id != k {
					if _, live := e.compileEdges[id]; live {
						toAbsorb = append(toAbsorb, id)
					}
				}
			}
		}
		if len(toAbsorb) > 0 {
			toAbsorb = dedupInts(toAbsorb)
			if err := e.merge(k, toAbsorb); err != nil {
				return err
			}
		}
	}
	return nil
}

// Emit renders the current (necessarily acyclic, after Collapse) graph
// state into a GraphMapping, per CORE SPEC §4.5.6.
func (e *Engine) Emit() model.GraphMapping {
	mapping := map[string]model.GraphNode{}
	for n := range e.compileEdges {
		state := e.reverse[n]

		childNodes := map[string]model.GraphNodeMetadata{}
		for c := range e.transitiveConsumed(n) {
			cs := e.reverse[c]
			if cs.nodeType == model.RealNode {
				childNodes[cs.label] = cs.metadata
			}
		}

		deps := labelsFor(e, e.compileEdges[n])
		runtimeDeps := labelsFor(e, e.runtimeEdges[n])

		mapping[state.label] = model.GraphNode{
			NodeLabel:           state.label,
			Dependencies:        deps,
			RuntimeDependencies: runtimeDeps,
			ChildNodes:          childNodes,
			NodeMetadata:        state.metadata,
			NodeType:            state.nodeType,
		}
	}
	return model.GraphMapping{BuildMapping: mapping}
}

func (e *Engine) transitiveConsumed(n int) map[int]bool {
	out := map[int]bool{}
	var walk func(int)
	walk = func(cur int) {
		for c := range e.consumed[cur] {
			if !out[c] {
				out[c] = true
				walk(c)
			}
		}
	}
	walk(n)
	return out
}

func labelsFor(e *Engine, ids map[int]bool) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, 0, len(ids))
	for id := range ids {
		out = append(out, e.reverse[id].label)
	}
	sort.Strings(out)
	return out
}
