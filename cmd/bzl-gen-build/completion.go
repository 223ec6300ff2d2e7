// Copyright 2025 the bzl-gen-build authors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"
	"fmt"
	"os"
)

// bashCompletionTemplate is the bash completion script for bzl-gen-build.
const bashCompletionTemplate = `#!/bin/bash

# Bash completion script for bzl-gen-build
# Installation:
#   source <(bzl-gen-build completion bash)

_bzl_gen_build_completion() {
    local cur commands
    commands="extract extract-defs build-graph print-build completion"

    cur="${COMP_WORDS[COMP_CWORD]}"

    if [[ ${cur} == -* ]] ; then
        COMPREPLY=( $(compgen -W "--version" -- ${cur}) )
        return 0
    fi

    if [ $COMP_CWORD -eq 1 ]; then
        COMPREPLY=( $(compgen -W "${commands}" -- ${cur}) )
        return 0
    fi

    local cmd="${COMP_WORDS[1]}"
    case "${cmd}" in
        extract)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--project-config --cache-root --working-directory --extractor --output --json --quiet" -- ${cur}) )
            fi
            ;;
        extract-defs)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--cache-root --extracted --output --json --quiet" -- ${cur}) )
            fi
            ;;
        build-graph)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--extracted --defs --output --json --quiet" -- ${cur}) )
            fi
            ;;
        print-build)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--project-config --graph --write-mode --json --quiet" -- ${cur}) )
            fi
            ;;
        completion)
            if [ $COMP_CWORD -eq 2 ]; then
                COMPREPLY=( $(compgen -W "bash zsh fish" -- ${cur}) )
            fi
            ;;
    esac
}

complete -F _bzl_gen_build_completion bzl-gen-build
`

// zshCompletionTemplate is the zsh completion script for bzl-gen-build.
const zshCompletionTemplate = `#compdef bzl-gen-build

_bzl_gen_build() {
    local -a commands
    commands=(
        'extract:Phase E, run extractors and populate the cache'
        'extract-defs:Phase D, combine per-unit exported defs'
        'build-graph:Phase G, assemble and collapse the dependency graph'
        'print-build:Phase P, emit build files from a graph mapping'
        'completion:Generate shell completion script'
    )

    _arguments -C \
        '(- *)--version[Show version and exit]' \
        '1: :->command' \
        '*:: :->args'

    case $state in
        command)
            _describe 'command' commands
            ;;
        args)
            case $words[1] in
                extract)
                    _arguments \
                        '--project-config[Project configuration path]:file:_files' \
                        '--cache-root[Cache root directory]:dir:_files -/' \
                        '--extractor[module=executable pair]:extractor:'
                    ;;
                extract-defs)
                    _arguments \
                        '--cache-root[Cache root directory]:dir:_files -/' \
                        '--extracted[ExtractedMappings index]:file:_files'
                    ;;
                build-graph)
                    _arguments \
                        '--extracted[ExtractedMappings index]:file:_files' \
                        '--defs[PathToDefs index]:file:_files'
                    ;;
                print-build)
                    _arguments \
                        '--project-config[Project configuration path]:file:_files' \
                        '--graph[GraphMapping document]:file:_files'
                    ;;
                completion)
                    _arguments \
                        '1:shell:(bash zsh fish)'
                    ;;
            esac
            ;;
    esac
}

_bzl_gen_build
`

// fishCompletionTemplate is the fish completion script for bzl-gen-build.
const fishCompletionTemplate = `# Fish completion script for bzl-gen-build

complete -c bzl-gen-build -f -n "__fish_use_subcommand" -a "extract" -d "Phase E, run extractors and populate the cache"
complete -c bzl-gen-build -f -n "__fish_use_subcommand" -a "extract-defs" -d "Phase D, combine per-unit exported defs"
complete -c bzl-gen-build -f -n "__fish_use_subcommand" -a "build-graph" -d "Phase G, assemble and collapse the dependency graph"
complete -c bzl-gen-build -f -n "__fish_use_subcommand" -a "print-build" -d "Phase P, emit build files from a graph mapping"
complete -c bzl-gen-build -f -n "__fish_use_subcommand" -a "completion" -d "Generate shell completion script"

complete -c bzl-gen-build -l version -d "Show version and exit"

complete -c bzl-gen-build -n "__fish_seen_subcommand_from extract" -l project-config -r
complete -c bzl-gen-build -n "__fish_seen_subcommand_from extract" -l cache-root -r
complete -c bzl-gen-build -n "__fish_seen_subcommand_from extract" -l extractor -r
complete -c bzl-gen-build -n "__fish_seen_subcommand_from extract-defs" -l extracted -r
complete -c bzl-gen-build -n "__fish_seen_subcommand_from build-graph" -l extracted -r
complete -c bzl-gen-build -n "__fish_seen_subcommand_from build-graph" -l defs -r
complete -c bzl-gen-build -n "__fish_seen_subcommand_from print-build" -l project-config -r
complete -c bzl-gen-build -n "__fish_seen_subcommand_from print-build" -l graph -r

complete -c bzl-gen-build -n "__fish_seen_subcommand_from completion" -f -a "bash" -d "Generate bash completion script"
complete -c bzl-gen-build -n "__fish_seen_subcommand_from completion" -f -a "zsh" -d "Generate zsh completion script"
complete -c bzl-gen-build -n "__fish_seen_subcommand_from completion" -f -a "fish" -d "Generate fish completion script"
`

// runCompletion executes the 'completion' CLI command, generating
// shell-specific completion scripts for bash, zsh, or fish.
func runCompletion(args []string) {
	fs := flag.NewFlagSet("completion", flag.ExitOnError)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: bzl-gen-build completion <shell>

Generate shell completion scripts for bash, zsh, or fish.

Arguments:
  shell    Shell type: bash, zsh, or fish (required)

Examples:
  bzl-gen-build completion bash
  source <(bzl-gen-build completion bash)
  bzl-gen-build completion zsh > "${fpath[1]}/_bzl-gen-build"
  bzl-gen-build completion fish | source

`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: completion requires exactly one argument: the shell name")
		fs.Usage()
		os.Exit(1)
	}

	switch fs.Arg(0) {
	case "bash":
		fmt.Print(bashCompletionTemplate)
	case "zsh":
		fmt.Print(zshCompletionTemplate)
	case "fish":
		fmt.Print(fishCompletionTemplate)
	default:
		fmt.Fprintf(os.Stderr, "Error: unsupported shell %q, valid options: bash, zsh, fish\n", fs.Arg(0))
		os.Exit(1)
	}
}
