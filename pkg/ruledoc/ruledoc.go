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

// Package ruledoc is the emitter's abstract rule document: a tree of load
// statements and rule calls, built up independent of any particular
// serialization, with keyword arguments kept in emitter-controlled
// priority order rather than insertion order.
package ruledoc

import "sort"

// Load is one `load("//x:y.bzl", "symbol")` statement. A document may
// declare the same Load more than once; Render de-duplicates by
// (From, Symbol) before emission.
type Load struct {
	From   string
	Symbol string
}

// KV is one keyword argument of a Call.
type KV struct {
	Key   string
	Value Expr
}

// Call is one rule invocation, e.g. `go_library(name = "foo", srcs = [...])`.
type Call struct {
	Function string
	Args     []KV
}

// Document is every load statement and rule call destined for a single
// build file, in the order Render should consider them. Calls are kept in
// insertion order; Loads are sorted and de-duplicated at render time.
type Document struct {
	Loads []Load
	Calls []Call
}

// AddLoad appends a load statement if no equal one is already present.
func (d *Document) AddLoad(from, symbol string) {
	for _, l := range d.Loads {
		if l.From == from && l.Symbol == symbol {
			return
		}
	}
	d.Loads = append(d.Loads, Load{From: from, Symbol: symbol})
}

// AddCall appends a rule invocation in insertion order.
func (d *Document) AddCall(c Call) {
	d.Calls = append(d.Calls, c)
}

// kwPriority classifies a keyword argument name per CORE SPEC §4.6 step 9:
// name first, then the fixed sized-attribute order, then everything else
// alphabetically, then the fixed trailing order.
func kwPriority(key string) (tier int, fixedRank int) {
	if key == "name" {
		return 0, 0
	}
	for i, k := range sizedAttrOrder {
		if key == k {
			return 1, i
		}
	}
	for i, k := range trailingAttrOrder {
		if key == k {
			return 3, i
		}
	}
	return 2, 0
}

var sizedAttrOrder = []string{"size", "timeout", "testonly", "src", "srcs", "out", "outs", "hdrs"}

var trailingAttrOrder = []string{"exports", "runtime_deps", "deps", "implementation", "implements", "alwayslink"}

// SortArgs reorders kvs in place according to kwPriority, breaking ties
// within the unranked tier alphabetically by key.
func SortArgs(kvs []KV) {
	sort.SliceStable(kvs, func(i, j int) bool {
		ti, ri := kwPriority(kvs[i].Key)
		tj, rj := kwPriority(kvs[j].Key)
		if ti != tj {
			return ti < tj
		}
		if ti == 2 {
			return kvs[i].Key < kvs[j].Key
		}
		return ri < rj
	})
}
