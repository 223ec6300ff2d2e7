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

// Package project loads and resolves the project configuration: the set of
// named module configurations an emitted unit may match against, plus the
// ordered path-prefixed directive strings applied to each unit's merged
// TreeNode during the extract phase.
package project

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/bazeltools/bzl-gen-build/pkg/directive"
)

// TargetNameStrategy selects how a main or test rule's target name, and the
// target part of its dependency labels, is derived from a source file when
// aggregation is disabled. Secondary rules are named after the primary
// rule plus a suffix.
type TargetNameStrategy string

const (
	StrategyAuto             TargetNameStrategy = "auto"
	StrategySourceFileStem   TargetNameStrategy = "source_file_stem"
)

// LoadHeader is one `load("...", "...")` statement a rule-group needs.
type LoadHeader struct {
	LoadFrom  string `yaml:"load_from"`
	LoadValue string `yaml:"load_value"`
}

// GrpBuildConfig configures one rule (primary, test, or a named secondary
// rule) emitted for a module.
type GrpBuildConfig struct {
	Headers            []LoadHeader       `yaml:"headers"`
	FunctionName       string             `yaml:"function_name"`
	ExtraKeyToList     map[string][]string `yaml:"extra_key_to_list"`
	ExtraKeyToValue    map[string]string  `yaml:"extra_key_to_value"`
	TargetNameStrategy TargetNameStrategy `yaml:"target_name_strategy"`
}

// BuildConfig groups the rule-group configurations for one ModuleConfig.
// SecondaryRules preserves declaration order because ${name}/${srcs}/${deps}
// template expansion during emission must be deterministic.
type BuildConfig struct {
	Main              *GrpBuildConfig            `yaml:"main"`
	Test              *GrpBuildConfig            `yaml:"test"`
	BinaryApplication *GrpBuildConfig            `yaml:"binary_application"`
	SecondaryRules    []NamedGrpBuildConfig      `yaml:"secondary_rules"`
}

// NamedGrpBuildConfig pairs a secondary rule's declared name with its
// configuration; yaml.v3 does not preserve map key order, so secondary
// rules are stored as an ordered slice instead of a map.
type NamedGrpBuildConfig struct {
	Name   string         `yaml:"name"`
	Config GrpBuildConfig `yaml:"config"`
}

// ModuleConfig is one named entry in ProjectConf.Configurations: the file
// extensions and source roots it claims, and the rules emitted for units
// that match it.
type ModuleConfig struct {
	FileExtensions   []string    `yaml:"file_extensions"`
	PrimaryExtension string      `yaml:"primary_extension"`
	BuildConfig      BuildConfig `yaml:"build_config"`
	MainRoots        []string    `yaml:"main_roots"`
	TestRoots        []string    `yaml:"test_roots"`
	TestGlobs        []string    `yaml:"test_globs"`
}

// PathDirective applies a fixed set of directive strings to every unit
// whose label or repo path has Prefix as a prefix. Directives parsed more
// than once across phases are cached in CachedParse.
type PathDirective struct {
	Prefix          string   `yaml:"prefix"`
	DirectiveStrings []string `yaml:"directives"`

	CachedParse []*directive.Directive `yaml:"-"`
}

// Parsed returns d.DirectiveStrings parsed into Directive values, parsing
// once and caching the result on the receiver.
func (d *PathDirective) Parsed() ([]*directive.Directive, error) {
	if d.CachedParse != nil {
		return d.CachedParse, nil
	}
	parsed := make([]*directive.Directive, 0, len(d.DirectiveStrings))
	for _, s := range d.DirectiveStrings {
		dd, err := directive.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("path directive %q: %w", d.Prefix, err)
		}
		parsed = append(parsed, dd)
	}
	d.CachedParse = parsed
	return parsed, nil
}

// rawConf is the on-disk shape: configurations keyed by name, plus includes
// and path directives. Configurations is a map because module names are
// genuinely unordered (matching is by file extension and root prefix, not
// declaration order); PathDirectives is a slice because prefix matches apply
// in file order.
type rawConf struct {
	Configurations map[string]ModuleConfig `yaml:"configurations"`
	Includes       []string                `yaml:"includes"`
	PathDirectives []PathDirective         `yaml:"path_directives"`
}

// ProjectConf is the fully resolved project configuration: the configured
// modules and the ordered path directives, with all `includes` merged in.
type ProjectConf struct {
	Configurations map[string]ModuleConfig
	PathDirectives []PathDirective
}

// Load reads the project configuration at path and resolves its `includes`
// transitively. Included files are resolved relative to the working
// directory, not the including file, matching CORE SPEC §6. A cycle among
// includes is an error naming the repeated path.
func Load(path string) (*ProjectConf, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	visited := make(map[string]bool)
	out := &ProjectConf{Configurations: map[string]ModuleConfig{}}
	if err := loadInto(path, wd, visited, out); err != nil {
		return nil, err
	}
	return out, nil
}

func loadInto(path, wd string, visited map[string]bool, out *ProjectConf) error {
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(wd, abs)
	}
	abs = filepath.Clean(abs)

	if visited[abs] {
		return fmt.Errorf("project config: include cycle at %s", abs)
	}
	visited[abs] = true

	data, err := os.ReadFile(abs)
	if err != nil {
		return fmt.Errorf("project config: reading %s: %w", abs, err)
	}

	var raw rawConf
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("project config: parsing %s: %w", abs, err)
	}

	for _, inc := range raw.Includes {
		if err := loadInto(inc, wd, visited, out); err != nil {
			return err
		}
	}

	for name, mc := range raw.Configurations {
		out.Configurations[name] = mc
	}
	out.PathDirectives = append(out.PathDirectives, raw.PathDirectives...)

	return nil
}

// MatchingPathDirectives returns, in file order, every PathDirective whose
// Prefix is a prefix of unitKey.
func (p *ProjectConf) MatchingPathDirectives(unitKey string) []*PathDirective {
	var out []*PathDirective
	for i := range p.PathDirectives {
		pd := &p.PathDirectives[i]
		if len(pd.Prefix) <= len(unitKey) && unitKey[:len(pd.Prefix)] == pd.Prefix {
			out = append(out, pd)
		}
	}
	return out
}
