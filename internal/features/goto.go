package features

import (
	"strings"

	"github.com/callumalpass/mdbase-lsp/internal/bodylink"
	"github.com/callumalpass/mdbase-lsp/internal/linkresolve"
	"github.com/callumalpass/mdbase-lsp/internal/textutil"
)

// Definition computes the textDocument/definition response at position, per
// SPEC_FULL.md 4.8.
func Definition(ctx Context, relPath, text string, position textutil.Position) (Location, bool) {
	if link, ok := bodylink.BodyLinkAt(text, position.Line, position.Character); ok {
		resolved := linkresolve.ResolveLinkTarget(ctx.Collection, link.Target, relPath)
		if resolved == "" {
			return Location{}, false
		}
		return Location{RelPath: resolved, Range: Range{}}, true
	}

	if !textutil.IsInFrontmatter(text, position.Line) {
		return Location{}, false
	}
	lines := strings.Split(text, "\n")
	if position.Line < 0 || position.Line >= len(lines) {
		return Location{}, false
	}
	line := lines[position.Line]
	fieldName, _ := textutil.FieldNameFromLine(line)
	value, ok := textutil.ValueFromFrontmatterLine(line, position.Character)
	if !ok {
		return Location{}, false
	}

	if fieldName == "type" || fieldName == "types" {
		path := linkresolve.FindTypeDefinitionPath(ctx.Collection, value)
		if path == "" {
			return Location{}, false
		}
		rel := linkresolve.RelPathFromURI(ctx.Collection, path)
		return Location{RelPath: rel}, true
	}

	parsed := textutil.ParseFrontmatter(text)
	typeNames := ctx.Collection.DetermineTypesForPath(parsed.JSON, relPath)
	def, ok := fieldDefForTypes(ctx.Collection, typeNames, fieldName)
	if !ok || !def.IsLink() {
		return Location{}, false
	}
	target := linkresolve.ParseLinkValue(value)
	resolved := linkresolve.ResolveLinkTarget(ctx.Collection, target, relPath)
	if resolved == "" {
		return Location{}, false
	}
	return Location{RelPath: resolved}, true
}
