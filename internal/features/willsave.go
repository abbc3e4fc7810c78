package features

import (
	"strings"
	"time"

	"github.com/callumalpass/mdbase-lsp/internal/textutil"
)

// OnWriteEdits computes the textDocument/willSaveWaitUntil response, per
// SPEC_FULL.md 4.10: for every field (anywhere in the type's extends chain)
// with generated strategy now_on_write, replace its existing "field: ..."
// frontmatter line (or insert one just before the closing delimiter) with
// the current UTC timestamp. Reuses the same line-location logic
// CodeActions' setFieldValueAction/addFieldAction use.
func OnWriteEdits(ctx Context, relPath, text string) []TextEdit {
	parsed := textutil.ParseFrontmatter(text)
	typeNames := ctx.Collection.DetermineTypesForPath(parsed.JSON, relPath)
	if len(typeNames) == 0 {
		return nil
	}

	timestamp := time.Now().UTC().Format("2006-01-02T15:04:05Z")

	var edits []TextEdit
	seen := map[string]bool{}
	for _, typeName := range typeNames {
		for _, def := range ctx.Collection.ResolveChain(typeName) {
			for name, field := range def.Fields {
				if seen[name] || field.Generated != "now_on_write" {
					continue
				}
				seen[name] = true
				edits = append(edits, onWriteEditForField(text, name, timestamp))
			}
		}
	}
	return edits
}

func onWriteEditForField(text, field, value string) TextEdit {
	start, end, hasFrontmatter := textutil.FrontmatterBounds(text)
	if !hasFrontmatter {
		return TextEdit{
			Range:   Range{Start: textutil.Position{Line: 0, Character: 0}, End: textutil.Position{Line: 0, Character: 0}},
			NewText: "---\n" + field + ": " + value + "\n---\n",
		}
	}

	startPos, _ := textutil.FindFieldRange(text, field, start)
	lines := strings.Split(text, "\n")
	if startPos.Line < len(lines) && strings.Contains(lines[startPos.Line], field+":") {
		return TextEdit{
			Range: Range{
				Start: textutil.Position{Line: startPos.Line, Character: 0},
				End:   textutil.Position{Line: startPos.Line, Character: utf16Len(lines[startPos.Line])},
			},
			NewText: field + ": " + value,
		}
	}

	insertLine := end + 1
	return TextEdit{
		Range:   Range{Start: textutil.Position{Line: insertLine, Character: 0}, End: textutil.Position{Line: insertLine, Character: 0}},
		NewText: field + ": " + value + "\n",
	}
}
