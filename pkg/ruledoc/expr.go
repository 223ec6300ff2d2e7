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

// Expr is any value an argument or list element may hold: a string, a
// list, or a glob(...) call. It exists so Render can dispatch on concrete
// type without the caller constructing buildtools AST nodes directly.
type Expr interface {
	isExpr()
}

// Str is a quoted string literal, e.g. a label or a target name.
type Str string

func (Str) isExpr() {}

// List is a list literal, e.g. `["a", "b"]`.
type List []Expr

func (List) isExpr() {}

// StrList is a convenience constructor for a List of Str values.
func StrList(values ...string) List {
	out := make(List, len(values))
	for i, v := range values {
		out[i] = Str(v)
	}
	return out
}

// Glob is a `glob([...])` call, used for the primary rule's recursive
// source listing.
type Glob struct {
	Patterns []string
}

func (Glob) isExpr() {}

// RecursiveGlob returns a Glob matching every file with ext beneath the
// current directory, per CORE SPEC §4.6 step 5.
func RecursiveGlob(ext string) Glob {
	return Glob{Patterns: []string{"**/*" + ext}}
}

// Ident is a bare identifier, used rarely (e.g. a boolean literal like
// True/False has no Go bool wrapper since Starlark syntax is external to
// this type; callers that need one construct Ident("True")).
type Ident string

func (Ident) isExpr() {}
