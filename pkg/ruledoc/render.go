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

package ruledoc

import (
	"sort"

	"github.com/bazelbuild/buildtools/build"
)

// Render pretty-prints a Document as a BUILD file body: de-duplicated load
// statements first (sorted by module then symbol), then calls in
// insertion order with keyword arguments in priority order, per CORE SPEC
// §4.6 step 9.
func Render(doc *Document) []byte {
	f := &build.File{Type: build.TypeBuild}

	for _, l := range sortedLoads(doc.Loads) {
		f.Stmt = append(f.Stmt, loadStmt(l))
	}

	for _, c := range doc.Calls {
		f.Stmt = append(f.Stmt, callExpr(c))
	}

	return build.Format(f)
}

func sortedLoads(loads []Load) []Load {
	byModule := map[string][]string{}
	var modules []string
	seen := map[string]bool{}
	for _, l := range loads {
		if !seen[l.From] {
			seen[l.From] = true
			modules = append(modules, l.From)
		}
		byModule[l.From] = append(byModule[l.From], l.Symbol)
	}
	sort.Strings(modules)

	out := make([]Load, 0, len(loads))
	for _, m := range modules {
		symbols := append([]string(nil), byModule[m]...)
		sort.Strings(symbols)
		dedup := make([]string, 0, len(symbols))
		for i, s := range symbols {
			if i == 0 || symbols[i-1] != s {
				dedup = append(dedup, s)
			}
		}
		for _, s := range dedup {
			out = append(out, Load{From: m, Symbol: s})
		}
	}
	return out
}

func loadStmt(l Load) *build.LoadStmt {
	ident := &build.Ident{Name: l.Symbol}
	return &build.LoadStmt{
		Module: &build.StringExpr{Value: l.From},
		From:   []*build.Ident{ident},
		To:     []*build.Ident{ident},
	}
}

func callExpr(c Call) *build.CallExpr {
	args := make([]KV, len(c.Args))
	copy(args, c.Args)
	SortArgs(args)

	call := &build.CallExpr{X: &build.Ident{Name: c.Function}}
	for _, kv := range args {
		call.List = append(call.List, &build.AssignExpr{
			LHS: &build.Ident{Name: kv.Key},
			Op:  "=",
			RHS: toBuildExpr(kv.Value),
		})
	}
	return call
}

func toBuildExpr(e Expr) build.Expr {
	switch v := e.(type) {
	case Str:
		return &build.StringExpr{Value: string(v)}
	case Ident:
		return &build.Ident{Name: string(v)}
	case List:
		list := &build.ListExpr{}
		for _, item := range v {
			list.List = append(list.List, toBuildExpr(item))
		}
		return list
	case Glob:
		patterns := &build.ListExpr{}
		for _, p := range v.Patterns {
			patterns.List = append(patterns.List, &build.StringExpr{Value: p})
		}
		return &build.CallExpr{
			X:    &build.Ident{Name: "glob"},
			List: []build.Expr{patterns},
		}
	default:
		return &build.Ident{Name: "None"}
	}
}
