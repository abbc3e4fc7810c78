package features

import (
	"fmt"
	"strings"

	"github.com/callumalpass/mdbase-lsp/internal/bodylink"
	"github.com/callumalpass/mdbase-lsp/internal/linkresolve"
	"github.com/callumalpass/mdbase-lsp/internal/schema"
	"github.com/callumalpass/mdbase-lsp/internal/textutil"
)

// HoverAt computes the textDocument/hover response at position, per
// SPEC_FULL.md 4.8.
func HoverAt(ctx Context, relPath, text string, position textutil.Position) (Hover, bool) {
	if link, ok := bodylink.BodyLinkAt(text, position.Line, position.Character); ok {
		return hoverForBodyLink(ctx, relPath, link)
	}

	if textutil.IsInFrontmatter(text, position.Line) {
		return hoverInFrontmatter(ctx, relPath, text, position)
	}

	lines := strings.Split(text, "\n")
	if position.Line >= 0 && position.Line < len(lines) {
		if word, _, _, ok := textutil.WordAt(lines[position.Line], position.Character); ok {
			if def, ok := ctx.Collection.Types[word]; ok {
				return Hover{Contents: typeSummary(def)}, true
			}
		}
	}
	return Hover{}, false
}

func hoverForBodyLink(ctx Context, sourceRel string, link bodylink.Link) (Hover, bool) {
	resolved := linkresolve.ResolveLinkTarget(ctx.Collection, link.Target, sourceRel)
	if resolved == "" {
		return Hover{}, false
	}
	return Hover{Contents: targetSummary(ctx, resolved)}, true
}

func hoverInFrontmatter(ctx Context, relPath, text string, position textutil.Position) (Hover, bool) {
	lines := strings.Split(text, "\n")
	if position.Line < 0 || position.Line >= len(lines) {
		return Hover{}, false
	}
	line := lines[position.Line]

	fieldName, ok := textutil.FieldNameFromLine(line)
	colonIdx := strings.IndexByte(line, ':')
	atFieldNamePos := ok && (colonIdx < 0 || position.Character <= colonIdx)
	if atFieldNamePos {
		parsed := textutil.ParseFrontmatter(text)
		typeNames := ctx.Collection.DetermineTypesForPath(parsed.JSON, relPath)
		def, ok := fieldDefForTypes(ctx.Collection, typeNames, fieldName)
		if !ok {
			return Hover{}, false
		}
		var b strings.Builder
		fmt.Fprintf(&b, "%s: %s", fieldName, def.Type)
		if def.Description != "" {
			fmt.Fprintf(&b, "\n\n%s", def.Description)
		}
		if def.Deprecated != "" {
			fmt.Fprintf(&b, "\n\nDeprecated: %s", def.Deprecated)
		}
		return Hover{Contents: b.String()}, true
	}

	value, ok := textutil.ValueFromFrontmatterLine(line, position.Character)
	if !ok {
		return Hover{}, false
	}
	if fieldName == "type" || fieldName == "types" {
		if def, ok := ctx.Collection.Types[value]; ok {
			return Hover{Contents: typeSummary(def)}, true
		}
		return Hover{}, false
	}

	parsed := textutil.ParseFrontmatter(text)
	typeNames := ctx.Collection.DetermineTypesForPath(parsed.JSON, relPath)
	def, ok := fieldDefForTypes(ctx.Collection, typeNames, fieldName)
	if !ok || !def.IsLink() {
		return Hover{}, false
	}
	target := linkresolve.ParseLinkValue(value)
	resolved := linkresolve.ResolveLinkTarget(ctx.Collection, target, relPath)
	if resolved == "" {
		return Hover{}, false
	}
	return Hover{Contents: targetSummary(ctx, resolved)}, true
}

func typeSummary(def schema.TypeDef) string {
	var b strings.Builder
	fmt.Fprintf(&b, "type %s", def.Name)
	if def.Extends != "" {
		fmt.Fprintf(&b, " extends %s", def.Extends)
	}
	if len(def.FieldOrder) > 0 {
		b.WriteString("\n\nfields: ")
		b.WriteString(strings.Join(def.FieldOrder, ", "))
	}
	return b.String()
}

func targetSummary(ctx Context, resolved string) string {
	for _, e := range ctx.Index.AllEntries() {
		if e.RelPath == resolved {
			title := e.Title
			if title == "" {
				title = resolved
			}
			return fmt.Sprintf("%s\n\n%s\n\ntypes: %s", title, resolved, strings.Join(e.Types, ", "))
		}
	}
	return resolved
}
