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

// Package errors provides structured error handling for the bzl-gen-build
// CLI: a UserError type carrying what went wrong, why, and how to fix it,
// plus a semantic exit-code table for the six-category error taxonomy
// (config, extractor, directive, graph, emit, I/O).
package errors

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Exit codes for each error category.
const (
	ExitSuccess = 0

	// ExitConfig: malformed project config, unknown language name, missing
	// primary extension, missing extractor for a configuration.
	ExitConfig = 1

	// ExitExtractor: subprocess exit non-zero, subprocess missing output,
	// extractor-produced JSON malformed.
	ExitExtractor = 2

	// ExitDirective: directive parse failure.
	ExitDirective = 3

	// ExitGraph: common-ancestor cannot be found, merge attempted against a
	// missing compile-edge entry, unreachable emission path.
	ExitGraph = 4

	// ExitEmit: multiple module matches for one node, missing
	// binary_application when a binary directive is present.
	ExitEmit = 5

	// ExitIO: any underlying file-system or subprocess error, carried
	// verbatim.
	ExitIO = 6

	// ExitInternal signals a bug: an invariant the code itself should have
	// prevented.
	ExitInternal = 10
)

// UserError represents an error with structured context for end users.
//
// It provides three levels of information:
//   - Message: what went wrong
//   - Cause: why it happened
//   - Fix: how to fix it
//
// UserError carries an exit code for consistent CLI exit behavior and
// optionally wraps an underlying error for errors.Is/As compatibility.
type UserError struct {
	Message  string
	Cause    string
	Fix      string
	ExitCode int
	Err      error
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewConfigError reports a malformed project config, unknown language
// name, missing primary extension, or missing extractor for a
// configuration.
func NewConfigError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitConfig, Err: err}
}

// NewExtractorError reports a failed extractor subprocess: non-zero exit,
// missing output file, or malformed output JSON.
func NewExtractorError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitExtractor, Err: err}
}

// NewDirectiveError reports a directive parse failure; cause should carry
// the offending directive string.
func NewDirectiveError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitDirective, Err: err}
}

// NewGraphError reports a graph-engine invariant violation: a
// common-ancestor search that failed, a merge against a missing
// compile-edge entry, or an unreachable emission path.
func NewGraphError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitGraph, Err: err}
}

// NewEmitError reports a fatal emission-phase condition: a node matching
// more than one module configuration, or a binary directive with no
// binary_application configured. Unmatched nodes are a warning, not this
// error (see CORE SPEC §7).
func NewEmitError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitEmit, Err: err}
}

// NewIOError wraps an underlying file-system or subprocess error verbatim.
func NewIOError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitIO, Err: err}
}

// NewInternalError reports a bug: an assertion failure or unexpected state
// the code itself should have prevented.
func NewInternalError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitInternal, Err: err}
}

var (
	colorError = color.New(color.FgRed, color.Bold)
	colorCause = color.New(color.FgYellow)
	colorFix   = color.New(color.FgGreen)
)

// Format returns a formatted error message for terminal display, with
// colored Error/Cause/Fix sections. Color output respects NO_COLOR and can
// be disabled explicitly with noColor. Empty Cause or Fix are omitted.
func (e *UserError) Format(noColor bool) string {
	originalNoColor := color.NoColor
	defer func() { color.NoColor = originalNoColor }()

	if noColor || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}

	var out strings.Builder
	out.WriteString(colorError.Sprint("Error: "))
	out.WriteString(e.Message)
	out.WriteString("\n")

	if e.Cause != "" {
		out.WriteString(colorCause.Sprint("Cause: "))
		out.WriteString(e.Cause)
		out.WriteString("\n")
	}

	if e.Fix != "" {
		out.WriteString(colorFix.Sprint("Fix:   "))
		out.WriteString(e.Fix)
		out.WriteString("\n")
	}

	return out.String()
}

// ErrorJSON is the machine-readable rendering of a UserError.
type ErrorJSON struct {
	Error    string `json:"error"`
	Cause    string `json:"cause,omitempty"`
	Fix      string `json:"fix,omitempty"`
	ExitCode int    `json:"exit_code"`
}

// ToJSON converts the UserError to a JSON-serializable structure.
func (e *UserError) ToJSON() ErrorJSON {
	return ErrorJSON{Error: e.Message, Cause: e.Cause, Fix: e.Fix, ExitCode: e.ExitCode}
}

// FatalError prints err and exits with the appropriate code. A nil err is
// a no-op and returns; for any other err it never returns.
func FatalError(err error, jsonOutput bool) {
	if err == nil {
		return
	}

	if ue, ok := err.(*UserError); ok {
		if jsonOutput {
			enc := json.NewEncoder(os.Stderr)
			enc.SetIndent("", "  ")
			_ = enc.Encode(ue.ToJSON())
		} else {
			fmt.Fprint(os.Stderr, ue.Format(false))
		}
		os.Exit(ue.ExitCode)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(ExitInternal)
}
