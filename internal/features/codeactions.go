package features

import (
	"fmt"
	"strings"

	"github.com/callumalpass/mdbase-lsp/internal/schema"
	"github.com/callumalpass/mdbase-lsp/internal/textutil"
)

// DiagnosticContext is the slice of a diagnostic that CodeActions needs:
// its structured issue data and the range the client sent it with.
type DiagnosticContext struct {
	Issue schema.Issue
}

// CodeActions computes the textDocument/codeAction response, per
// SPEC_FULL.md 4.8: for each diagnostic naming a field, an "add field"
// quickfix, plus value quickfixes when the field is enumerated or boolean.
func CodeActions(ctx Context, relPath, text string, diagnostics []DiagnosticContext) []CodeAction {
	var actions []CodeAction
	for _, d := range diagnostics {
		if d.Issue.Field == "" {
			continue
		}
		actions = append(actions, addFieldAction(relPath, text, d.Issue.Field))

		def, ok := fieldDefinitionForIssue(ctx, relPath, text, d.Issue.Field)
		if !ok {
			continue
		}
		if len(def.Values) > 0 {
			for i, v := range def.Values {
				actions = append(actions, setFieldValueAction(relPath, text, d.Issue.Field, v, i == 0))
			}
		} else if def.Type == "boolean" {
			actions = append(actions, setFieldValueAction(relPath, text, d.Issue.Field, "true", false))
			actions = append(actions, setFieldValueAction(relPath, text, d.Issue.Field, "false", false))
		}
	}
	return actions
}

func fieldDefinitionForIssue(ctx Context, relPath, text, field string) (schema.FieldDef, bool) {
	parsed := textutil.ParseFrontmatter(text)
	typeNames := ctx.Collection.DetermineTypesForPath(parsed.JSON, relPath)
	return fieldDefForTypes(ctx.Collection, typeNames, field)
}

// addFieldAction inserts "<field>: " before the closing frontmatter
// delimiter, creating a frontmatter block first if the document has none.
func addFieldAction(relPath, text, field string) CodeAction {
	_, end, ok := textutil.FrontmatterBounds(text)
	if !ok {
		edit := TextEdit{
			Range:   Range{Start: textutil.Position{Line: 0, Character: 0}, End: textutil.Position{Line: 0, Character: 0}},
			NewText: fmt.Sprintf("---\n%s: \n---\n", field),
		}
		return CodeAction{
			Title: fmt.Sprintf("Add field '%s'", field),
			Edit:  WorkspaceEdit{Changes: map[string][]TextEdit{relPath: {edit}}},
		}
	}
	// Insert just before the closing delimiter, i.e. at the start of the
	// line one past the interior range's end.
	insertLine := end + 1
	edit := TextEdit{
		Range:   Range{Start: textutil.Position{Line: insertLine, Character: 0}, End: textutil.Position{Line: insertLine, Character: 0}},
		NewText: fmt.Sprintf("%s: \n", field),
	}
	return CodeAction{
		Title: fmt.Sprintf("Add field '%s'", field),
		Edit:  WorkspaceEdit{Changes: map[string][]TextEdit{relPath: {edit}}},
	}
}

// setFieldValueAction replaces the existing field line (via FindFieldRange)
// with "<field>: <value>", or inserts it if absent.
func setFieldValueAction(relPath, text, field, value string, preferred bool) CodeAction {
	start, _, _ := textutil.FrontmatterBounds(text)
	startPos, endPos := textutil.FindFieldRange(text, field, start)

	lines := strings.Split(text, "\n")
	var rng Range
	if startPos.Line < len(lines) && strings.Contains(lines[startPos.Line], field+":") {
		rng = Range{
			Start: textutil.Position{Line: startPos.Line, Character: 0},
			End:   textutil.Position{Line: startPos.Line, Character: utf16Len(lines[startPos.Line])},
		}
	} else {
		rng = Range{Start: startPos, End: endPos}
	}

	edit := TextEdit{Range: rng, NewText: fmt.Sprintf("%s: %s", field, value)}
	return CodeAction{
		Title:       fmt.Sprintf("Set '%s' to '%s'", field, value),
		IsPreferred: preferred,
		Edit:        WorkspaceEdit{Changes: map[string][]TextEdit{relPath: {edit}}},
	}
}
