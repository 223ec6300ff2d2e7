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

package emit

import (
	"path"
	"sort"
	"strings"

	"github.com/bazeltools/bzl-gen-build/internal/errors"
	"github.com/bazeltools/bzl-gen-build/pkg/model"
	"github.com/bazeltools/bzl-gen-build/pkg/project"
	"github.com/bazeltools/bzl-gen-build/pkg/ruledoc"
)

// emitNode assembles the rule calls for one node and appends them to the
// document owned by the node's output directory (creating it on first
// use).
func emitNode(opts Options, buildFiles map[string]*ruledoc.Document, label string, node model.GraphNode, match *moduleMatch) error {
	grp := grpFor(match)
	if grp == nil {
		return errors.NewEmitError("module has no rule configuration for this root kind", label, "add a main or test build_config entry", nil)
	}

	dir := label
	if !opts.Aggregated {
		dir = path.Dir(label)
		if dir == "." {
			dir = ""
		}
	}
	doc := buildFiles[dir]
	if doc == nil {
		doc = &ruledoc.Document{}
		buildFiles[dir] = doc
	}
	for _, h := range grp.Headers {
		doc.AddLoad(h.LoadFrom, h.LoadValue)
	}

	name := targetName(label, opts.Aggregated, grp.TargetNameStrategy)
	strategy := grp.TargetNameStrategy

	deps := make([]string, len(node.Dependencies))
	for i, d := range node.Dependencies {
		deps[i] = rewriteDepLabel(d, opts.Aggregated, strategy)
	}
	sort.Strings(deps)
	runtimeDeps := make([]string, len(node.RuntimeDependencies))
	for i, d := range node.RuntimeDependencies {
		runtimeDeps[i] = rewriteDepLabel(d, opts.Aggregated, strategy)
	}
	sort.Strings(runtimeDeps)

	body := bodyFromConfig(grp)
	applyMetadata(body, node.NodeMetadata)

	primaryExt := primaryExtension(match.mc)

	args := []ruledoc.KV{{Key: "name", Value: ruledoc.Str(name)}}

	var srcsRef ruledoc.Expr
	useDirectGlob := match.src == sourceTest && opts.Aggregated
	if useDirectGlob {
		srcsRef = ruledoc.Str(":" + name)
		args = append(args, ruledoc.KV{Key: "srcs", Value: ruledoc.RecursiveGlob(primaryExt)})
	} else {
		filegroupName := name + "_files"
		doc.AddCall(ruledoc.Call{Function: "filegroup", Args: []ruledoc.KV{
			{Key: "name", Value: ruledoc.Str(filegroupName)},
			{Key: "srcs", Value: ruledoc.RecursiveGlob(primaryExt)},
		}})
		srcsRef = ruledoc.Str(":" + filegroupName)
		args = append(args, ruledoc.KV{Key: "srcs", Value: ruledoc.StrList(":" + filegroupName)})

		emitChildFilegroups(opts, buildFiles, node, primaryExt)
	}

	if withDeps := unionList(body["deps"], deps); len(withDeps) > 0 {
		args = append(args, ruledoc.KV{Key: "deps", Value: ruledoc.StrList(withDeps...)})
	}
	if withRuntime := unionList(body["runtime_deps"], runtimeDeps); len(withRuntime) > 0 {
		args = append(args, ruledoc.KV{Key: "runtime_deps", Value: ruledoc.StrList(withRuntime...)})
	}
	for _, key := range sortedKeys(body) {
		if key == "deps" || key == "runtime_deps" || key == "srcs" {
			continue
		}
		args = append(args, ruledoc.KV{Key: key, Value: ruledoc.StrList(body[key]...)})
	}

	doc.AddCall(ruledoc.Call{Function: grp.FunctionName, Args: args})

	if err := emitBinaryRules(doc, match.mc, name, node.NodeMetadata); err != nil {
		return err
	}
	emitSecondaryRules(doc, match.mc, name, srcsRef, deps)

	return nil
}

// bodyFromConfig seeds a working attribute map from the rule group's
// configured extra_key_to_list, per CORE SPEC §4.6 step 4.
func bodyFromConfig(grp *project.GrpBuildConfig) map[string][]string {
	body := map[string][]string{}
	for k, v := range grp.ExtraKeyToList {
		body[k] = append([]string(nil), v...)
	}
	return body
}

// applyMetadata routes a node's manual refs and string-list attributes
// into body, per CORE SPEC §4.6 step 4. src directives are applied earlier
// (extract-phase merge), entity_link directives during graph assembly, and
// binary_ref directives later (binary rule emission).
func applyMetadata(body map[string][]string, meta model.GraphNodeMetadata) {
	for _, m := range meta.ManualRefs {
		key := "deps"
		switch m.Kind {
		case model.ManualRefRuntimeRef:
			key = "runtime_deps"
		case model.ManualRefDataRef:
			key = "data"
		}
		body[key] = append(body[key], m.Label)
	}
	for _, a := range meta.AttrStringLists {
		body[a.Attr] = append(body[a.Attr], a.Value)
	}
}

func unionList(existing, computed []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, v := range existing {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	for _, v := range computed {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func primaryExtension(mc project.ModuleConfig) string {
	if mc.PrimaryExtension != "" {
		return mc.PrimaryExtension
	}
	if len(mc.FileExtensions) > 0 {
		return mc.FileExtensions[0]
	}
	return ""
}

// emitChildFilegroups writes one filegroup per child node into the build
// file owned by that child's own directory, per CORE SPEC §4.6 step 6.
func emitChildFilegroups(opts Options, buildFiles map[string]*ruledoc.Document, node model.GraphNode, ext string) {
	labels := make([]string, 0, len(node.ChildNodes))
	for l := range node.ChildNodes {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	for _, childLabel := range labels {
		childDir := childLabel
		if !opts.Aggregated {
			childDir = path.Dir(childLabel)
			if childDir == "." {
				childDir = ""
			}
		}
		doc := buildFiles[childDir]
		if doc == nil {
			doc = &ruledoc.Document{}
			buildFiles[childDir] = doc
		}
		childName := targetName(childLabel, opts.Aggregated, "")
		doc.AddCall(ruledoc.Call{Function: "filegroup", Args: []ruledoc.KV{
			{Key: "name", Value: ruledoc.Str(childName + "_files")},
			{Key: "srcs", Value: ruledoc.RecursiveGlob(ext)},
		}})
	}
}

// emitBinaryRules emits one auxiliary rule per binary_generate directive
// attached to the node, per CORE SPEC §4.6 step 7.
func emitBinaryRules(doc *ruledoc.Document, mc project.ModuleConfig, primaryName string, meta model.GraphNodeMetadata) error {
	if len(meta.BinaryRefs) == 0 {
		return nil
	}
	app := mc.BuildConfig.BinaryApplication
	if app == nil {
		return errors.NewEmitError(
			"node has a binary_generate directive but its module has no binary_application configured",
			primaryName,
			"add a build_config.binary_application entry for this module",
			nil,
		)
	}
	for _, h := range app.Headers {
		doc.AddLoad(h.LoadFrom, h.LoadValue)
	}
	for _, br := range meta.BinaryRefs {
		args := []ruledoc.KV{
			{Key: "name", Value: ruledoc.Str(br.Name)},
			{Key: "owning_library", Value: ruledoc.Str(":" + primaryName)},
			{Key: "binary_refs_value", Value: ruledoc.Str(br.Name)},
		}
		if br.HasEntity {
			args = append(args, ruledoc.KV{Key: "entity_path", Value: ruledoc.Str(br.Entity)})
		}
		doc.AddCall(ruledoc.Call{Function: app.FunctionName, Args: args})
	}
	return nil
}

// emitSecondaryRules emits one rule per configured secondary rule group,
// per CORE SPEC §4.6 step 8.
func emitSecondaryRules(doc *ruledoc.Document, mc project.ModuleConfig, primaryName string, srcsRef ruledoc.Expr, primaryDeps []string) {
	srcsLabel := ""
	if s, ok := srcsRef.(ruledoc.Str); ok {
		srcsLabel = string(s)
	}

	for _, named := range mc.BuildConfig.SecondaryRules {
		grp := named.Config
		for _, h := range grp.Headers {
			doc.AddLoad(h.LoadFrom, h.LoadValue)
		}

		args := []ruledoc.KV{{Key: "name", Value: ruledoc.Str(primaryName + "_" + named.Name)}}
		for _, key := range sortedConfigKeys(grp.ExtraKeyToList) {
			expanded := expandTemplate(grp.ExtraKeyToList[key], primaryName, srcsLabel, primaryDeps)
			if key == "srcs" {
				args = append(args, ruledoc.KV{Key: "srcs", Value: ruledoc.StrList(expanded...)})
				continue
			}
			args = append(args, ruledoc.KV{Key: key, Value: ruledoc.StrList(expanded...)})
		}
		doc.AddCall(ruledoc.Call{Function: grp.FunctionName, Args: args})
	}
}

func sortedConfigKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// expandTemplate expands ${name}/${srcs}/${deps} in a secondary rule's
// configured values, per CORE SPEC §4.6 step 8. An entry equal to
// "${srcs}" becomes the primary's srcs reference; an entry containing
// "${deps}" expands once per primary dependency, with "${deps}" replaced
// by that dependency's bare target name (so "${deps}_py" against
// "//foo:foo" yields "//foo:foo_py"); any other entry has "${name}"
// substituted textually.
func expandTemplate(entries []string, name, srcsLabel string, deps []string) []string {
	var out []string
	for _, e := range entries {
		switch {
		case e == "${srcs}":
			out = append(out, srcsLabel)
		case strings.Contains(e, "${deps}"):
			for _, d := range deps {
				dir, depName := splitLabel(d)
				suffix := strings.ReplaceAll(e, "${deps}", "")
				out = append(out, dir+":"+depName+suffix)
			}
		default:
			out = append(out, strings.ReplaceAll(e, "${name}", name))
		}
	}
	return out
}

// splitLabel splits a rewritten dependency label into its directory and
// target-name parts. "//dir:name" splits directly; the aggregated
// short form "//dir" derives name from the directory's basename.
func splitLabel(label string) (dir, name string) {
	if idx := strings.LastIndex(label, ":"); idx >= 0 {
		return label[:idx], label[idx+1:]
	}
	return label, path.Base(label)
}
