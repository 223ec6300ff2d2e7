// Copyright 2025 the bzl-gen-build authors
//
// SPDX-License-Identifier: Apache-2.0

package extract

import (
	"fmt"

	"github.com/bazeltools/bzl-gen-build/internal/errors"
	"github.com/bazeltools/bzl-gen-build/pkg/directive"
	"github.com/bazeltools/bzl-gen-build/pkg/model"
)

// applyBlockCommands parses an extracted block's bzl_gen_build_commands
// (CORE SPEC §3 ExtractedDataBlock.commands) and folds each one into tn,
// in sorted order for determinism. A directive parse error is fatal for
// the unit, per CORE SPEC §4.3's failure list.
func applyBlockCommands(tn *model.TreeNode, block *model.ExtractedDataBlock) error {
	for _, cmd := range model.SortedKeys(block.Commands) {
		d, err := directive.Parse(cmd)
		if err != nil {
			return errors.NewDirectiveError(
				fmt.Sprintf("invalid bzl_gen_build_commands entry %q", cmd),
				err.Error(), "", err,
			)
		}
		applyParsedDirective(tn, d)
	}
	return nil
}

// applyParsedDirective folds one parsed directive into the merged unit's
// TreeNode: src directives adjust the def/ref/runtime_ref sets directly
// (the directive's meaning IS a set mutation), everything else appends to
// the unit's DirectiveMetadata for the graph and emission phases to
// consume later.
func applyParsedDirective(tn *model.TreeNode, d *directive.Directive) {
	switch d.Kind {
	case directive.KindSrc:
		applySrcOp(tn, d.SrcOp, d.SrcIdent)
	case directive.KindEntityLink:
		tn.Directives.EntityLinks = append(tn.Directives.EntityLinks, model.EntityLink{
			From: d.LinkFrom,
			To:   d.LinkTo,
		})
	case directive.KindManualRef:
		tn.Directives.ManualRefs = append(tn.Directives.ManualRefs, model.ManualRefEntry{
			Kind:  manualRefKind(d.ManualKind),
			Label: d.ManualLabel,
		})
	case directive.KindBinaryRef:
		tn.Directives.BinaryRefs = append(tn.Directives.BinaryRefs, model.BinaryRefEntry{
			Name:      d.BinaryName,
			Entity:    d.BinaryEntity,
			HasEntity: d.HasEntity,
		})
	case directive.KindAttrStringList:
		tn.Directives.AttrStringLists = append(tn.Directives.AttrStringLists, model.AttrStringEntry{
			Attr:  d.AttrName,
			Value: d.AttrValue,
		})
	}
}

func applySrcOp(tn *model.TreeNode, op directive.SrcOp, ident string) {
	switch op {
	case directive.OpRef:
		tn.Refs[ident] = true
	case directive.OpUnref:
		delete(tn.Refs, ident)
	case directive.OpDef:
		tn.Defs[ident] = true
	case directive.OpUndef:
		delete(tn.Defs, ident)
	case directive.OpRuntimeRef:
		tn.RuntimeRefs[ident] = true
	case directive.OpRuntimeUnref:
		delete(tn.RuntimeRefs, ident)
	}
}

func manualRefKind(k directive.ManualRefKind) model.ManualRefKind {
	switch k {
	case directive.ManualRuntimeRef:
		return model.ManualRefRuntimeRef
	case directive.ManualDataRef:
		return model.ManualRefDataRef
	default:
		return model.ManualRefRef
	}
}
