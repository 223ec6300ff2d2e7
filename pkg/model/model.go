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

// Package model holds the data types shared across every phase of the
// pipeline: what an extractor produces, what gets merged per build unit,
// and what the graph engine persists. Keeping these in one package lets
// extract, extractdefs, graph, and emit depend on a common vocabulary
// without depending on each other.
package model

import (
	"encoding/json"
	"sort"
)

// ExtractedDataBlock is what an extractor reports for one entity
// (EntityPath); a single input may yield several blocks.
type ExtractedDataBlock struct {
	EntityPath  string          `json:"entity_path"`
	Defs        map[string]bool `json:"-"`
	Refs        map[string]bool `json:"-"`
	RuntimeRefs map[string]bool `json:"-"`
	Commands    map[string]bool `json:"-"`
}

// NewExtractedDataBlock returns an empty block for entityPath.
func NewExtractedDataBlock(entityPath string) *ExtractedDataBlock {
	return &ExtractedDataBlock{
		EntityPath:  entityPath,
		Defs:        map[string]bool{},
		Refs:        map[string]bool{},
		RuntimeRefs: map[string]bool{},
		Commands:    map[string]bool{},
	}
}

// extractedDataBlockWire is the JSON wire shape from CORE SPEC §6:
// sorted-set fields serialize as sorted string slices.
type extractedDataBlockWire struct {
	EntityPath         string   `json:"entity_path"`
	Defs               []string `json:"defs"`
	Refs               []string `json:"refs"`
	RuntimeRefs        []string `json:"runtime_refs"`
	BzlGenBuildCommands []string `json:"bzl_gen_build_commands"`
}

// MarshalJSON renders the set fields as sorted slices, matching the
// ExtractedData wire format in CORE SPEC §6.
func (b ExtractedDataBlock) MarshalJSON() ([]byte, error) {
	return json.Marshal(extractedDataBlockWire{
		EntityPath:          b.EntityPath,
		Defs:                SortedKeys(b.Defs),
		Refs:                SortedKeys(b.Refs),
		RuntimeRefs:         SortedKeys(b.RuntimeRefs),
		BzlGenBuildCommands: SortedKeys(b.Commands),
	})
}

// UnmarshalJSON reconstructs the set fields from the wire's sorted slices.
func (b *ExtractedDataBlock) UnmarshalJSON(data []byte) error {
	var w extractedDataBlockWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	b.EntityPath = w.EntityPath
	b.Defs = toSet(w.Defs)
	b.Refs = toSet(w.Refs)
	b.RuntimeRefs = toSet(w.RuntimeRefs)
	b.Commands = toSet(w.BzlGenBuildCommands)
	return nil
}

func toSet(list []string) map[string]bool {
	out := make(map[string]bool, len(list))
	for _, s := range list {
		out[s] = true
	}
	return out
}

// SortedKeys returns the keys of a string-set in ascending order.
func SortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ExtractedData is one extractor process's full output for a single
// retained input: the label/repo path it was invoked for, and the data
// blocks it found there. CORE SPEC §6 defines the extractor's --output
// contract as this wrapper, not a bare ExtractedDataBlock — an extractor
// may contribute more than one entity (and therefore more than one block,
// each with its own entity_path) from a single input.
type ExtractedData struct {
	LabelOrRepoPath string                `json:"label_or_repo_path"`
	DataBlocks      []*ExtractedDataBlock `json:"data_blocks"`
}

// DirectiveMetadata carries the parsed non-src directive kinds attached to
// a unit or a node: entity links, manual refs, binary refs, and string-list
// attributes. TreeNode.Merge appends into it with de-duplication; graph
// construction reads it through MetadataFrom.
type DirectiveMetadata struct {
	EntityLinks     []EntityLink      `json:"entity_links,omitempty"`
	ManualRefs      []ManualRefEntry  `json:"manual_refs,omitempty"`
	BinaryRefs      []BinaryRefEntry  `json:"binary_refs,omitempty"`
	AttrStringLists []AttrStringEntry `json:"attr_string_lists,omitempty"`
}

// EntityLink is one "link: A -> {B, C}" directive.
type EntityLink struct {
	From string   `json:"from"`
	To   []string `json:"to"`
}

// ManualRefKind mirrors directive.ManualRefKind without importing the
// directive package's parser-specific types into the persisted model.
type ManualRefKind string

const (
	ManualRefRef         ManualRefKind = "ref"
	ManualRefRuntimeRef  ManualRefKind = "runtime_ref"
	ManualRefDataRef     ManualRefKind = "data_ref"
)

// ManualRefEntry is one manual-ref directive, carried verbatim into
// emission.
type ManualRefEntry struct {
	Kind  ManualRefKind `json:"kind"`
	Label string        `json:"label"`
}

// BinaryRefEntry is one binary_generate directive.
type BinaryRefEntry struct {
	Name      string `json:"name"`
	Entity    string `json:"entity,omitempty"`
	HasEntity bool   `json:"has_entity"`
}

// AttrStringEntry is one attr.string_list directive.
type AttrStringEntry struct {
	Attr  string `json:"attr"`
	Value string `json:"value"`
}

// Merge appends d2's entries onto d, de-duplicating by value equality. It
// is idempotent: merging the same DirectiveMetadata twice has no further
// effect.
func (d *DirectiveMetadata) Merge(d2 *DirectiveMetadata) {
	if d2 == nil {
		return
	}
	for _, e := range d2.EntityLinks {
		if !containsEntityLink(d.EntityLinks, e) {
			d.EntityLinks = append(d.EntityLinks, e)
		}
	}
	for _, m := range d2.ManualRefs {
		if !containsManualRef(d.ManualRefs, m) {
			d.ManualRefs = append(d.ManualRefs, m)
		}
	}
	for _, b := range d2.BinaryRefs {
		if !containsBinaryRef(d.BinaryRefs, b) {
			d.BinaryRefs = append(d.BinaryRefs, b)
		}
	}
	for _, a := range d2.AttrStringLists {
		if !containsAttrString(d.AttrStringLists, a) {
			d.AttrStringLists = append(d.AttrStringLists, a)
		}
	}
}

func containsEntityLink(list []EntityLink, e EntityLink) bool {
	for _, x := range list {
		if x.From == e.From && stringsEqual(x.To, e.To) {
			return true
		}
	}
	return false
}

func containsManualRef(list []ManualRefEntry, m ManualRefEntry) bool {
	for _, x := range list {
		if x == m {
			return true
		}
	}
	return false
}

func containsBinaryRef(list []BinaryRefEntry, b BinaryRefEntry) bool {
	for _, x := range list {
		if x == b {
			return true
		}
	}
	return false
}

func containsAttrString(list []AttrStringEntry, a AttrStringEntry) bool {
	for _, x := range list {
		if x == a {
			return true
		}
	}
	return false
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// TreeNode is the merged per-unit record consumed by graph assembly. Merge
// is an idempotent commutative union over the set fields and a
// de-duplicating union over directive lists.
type TreeNode struct {
	LabelOrRepoPath string          `json:"label_or_repo_path"`
	Defs            map[string]bool `json:"-"`
	Refs            map[string]bool `json:"-"`
	RuntimeRefs     map[string]bool `json:"-"`

	Directives DirectiveMetadata `json:"directives"`
}

// NewTreeNode returns an empty TreeNode for the given unit label.
func NewTreeNode(label string) *TreeNode {
	return &TreeNode{
		LabelOrRepoPath: label,
		Defs:            map[string]bool{},
		Refs:            map[string]bool{},
		RuntimeRefs:     map[string]bool{},
	}
}

// treeNodeWire is TreeNode's on-disk shape: sorted slices instead of sets.
type treeNodeWire struct {
	LabelOrRepoPath string            `json:"label_or_repo_path"`
	Defs            []string          `json:"defs"`
	Refs            []string          `json:"refs"`
	RuntimeRefs     []string          `json:"runtime_refs"`
	Directives      DirectiveMetadata `json:"directives"`
}

// MarshalJSON renders the set fields as sorted slices so merged-extract
// cache artifacts are byte-stable across runs with identical content.
func (t TreeNode) MarshalJSON() ([]byte, error) {
	return json.Marshal(treeNodeWire{
		LabelOrRepoPath: t.LabelOrRepoPath,
		Defs:            SortedKeys(t.Defs),
		Refs:            SortedKeys(t.Refs),
		RuntimeRefs:     SortedKeys(t.RuntimeRefs),
		Directives:      t.Directives,
	})
}

// UnmarshalJSON reconstructs the set fields from the wire's sorted slices.
func (t *TreeNode) UnmarshalJSON(data []byte) error {
	var w treeNodeWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	t.LabelOrRepoPath = w.LabelOrRepoPath
	t.Defs = toSet(w.Defs)
	t.Refs = toSet(w.Refs)
	t.RuntimeRefs = toSet(w.RuntimeRefs)
	t.Directives = w.Directives
	return nil
}

// MergeBlock folds one extractor output block into t.
func (t *TreeNode) MergeBlock(b *ExtractedDataBlock) {
	for k := range b.Defs {
		t.Defs[k] = true
	}
	for k := range b.Refs {
		t.Refs[k] = true
	}
	for k := range b.RuntimeRefs {
		t.RuntimeRefs[k] = true
	}
}

// Merge folds another TreeNode (for the same unit) into t.
func (t *TreeNode) Merge(o *TreeNode) {
	for k := range o.Defs {
		t.Defs[k] = true
	}
	for k := range o.Refs {
		t.Refs[k] = true
	}
	for k := range o.RuntimeRefs {
		t.RuntimeRefs[k] = true
	}
	t.Directives.Merge(&o.Directives)
}

// NodeType distinguishes a node materialized from a real source unit from
// one synthesized to serve as a cycle's common ancestor.
type NodeType string

const (
	RealNode  NodeType = "RealNode"
	Synthetic NodeType = "Synthetic"
)

// GraphNodeMetadata is the reduced per-node metadata attached to a
// GraphNode's child_nodes entries: enough to reconstruct a child's own
// emission without re-walking the whole graph.
type GraphNodeMetadata struct {
	BinaryRefs      []BinaryRefEntry  `json:"binary_refs,omitempty"`
	ManualRefs      []ManualRefEntry  `json:"manual_refs,omitempty"`
	AttrStringLists []AttrStringEntry `json:"attr_string_lists,omitempty"`
}

func metadataFrom(d DirectiveMetadata) GraphNodeMetadata {
	return GraphNodeMetadata{
		BinaryRefs:      d.BinaryRefs,
		ManualRefs:      d.ManualRefs,
		AttrStringLists: d.AttrStringLists,
	}
}

// MetadataFrom exposes metadataFrom to other packages in this module.
func MetadataFrom(d DirectiveMetadata) GraphNodeMetadata { return metadataFrom(d) }

// GraphNode is one persisted entry of a GraphMapping.
type GraphNode struct {
	NodeLabel            string                       `json:"node_label"`
	Dependencies         []string                     `json:"dependencies,omitempty"`
	RuntimeDependencies  []string                     `json:"runtime_dependencies,omitempty"`
	ChildNodes           map[string]GraphNodeMetadata  `json:"child_nodes,omitempty"`
	NodeMetadata         GraphNodeMetadata            `json:"node_metadata,omitempty"`
	NodeType             NodeType                     `json:"node_type"`
}

// GraphMapping is the Phase G output: one GraphNode per surviving label.
type GraphMapping struct {
	BuildMapping map[string]GraphNode `json:"build_mapping"`
}
