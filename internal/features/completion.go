package features

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/callumalpass/mdbase-lsp/internal/schema"
	"github.com/callumalpass/mdbase-lsp/internal/textutil"
)

// Completion computes the textDocument/completion response at position in
// the document at relPath/text, per SPEC_FULL.md 4.8.
func Completion(ctx Context, relPath, text string, position textutil.Position) []CompletionItem {
	lines := strings.Split(text, "\n")
	if position.Line < 0 || position.Line >= len(lines) {
		return nil
	}
	line := lines[position.Line]
	col := position.Character

	if kind, prefix, startCol := textutil.LinkCompletionContext(line, col); kind != textutil.LinkCompletionNone {
		return linkTargetCompletionsForContext(ctx, relPath, kind, prefix, position.Line, startCol, col)
	}

	if textutil.IsInFrontmatter(text, position.Line) {
		return frontmatterCompletions(ctx, relPath, text, line, position.Line, col)
	}

	if col > 0 {
		runes := []rune(line)
		upto := col
		if upto > len(runes) {
			upto = len(runes)
		}
		prefix := string(runes[:upto])
		if strings.HasSuffix(prefix, "#") {
			return tagCompletions(ctx)
		}
	}
	return nil
}

func linkTargetCompletionsForContext(ctx Context, docRelPath string, kind textutil.LinkCompletionKind, _ string, line, startCol, endCol int) []CompletionItem {
	entries := ctx.Index.LinkTargetsWithDisplay("")
	items := make([]CompletionItem, 0, len(entries))
	editStart := textutil.Position{Line: line, Character: startCol}
	editEnd := textutil.Position{Line: line, Character: endCol}
	for _, e := range entries {
		stem := strings.TrimSuffix(path.Base(e.RelPath), path.Ext(e.RelPath))
		if kind == textutil.LinkCompletionWikilink {
			label := e.DisplayName
			if label == "" {
				label = stem
			}
			insert := stem
			if e.DisplayName != "" && e.DisplayName != stem {
				insert = stem + "|" + e.DisplayName
			}
			items = append(items, CompletionItem{
				Label: label, InsertText: insert, Kind: KindFile,
				TextEditStart: &editStart, TextEditEnd: &editEnd,
			})
		} else {
			// Markdown link labels are the target's path relative to the
			// current file, not the collection root (SPEC_FULL.md 4.8).
			label := relativeToDocument(docRelPath, e.RelPath)
			items = append(items, CompletionItem{
				Label: label, InsertText: label, Kind: KindFile,
				TextEditStart: &editStart, TextEditEnd: &editEnd,
			})
		}
	}
	return items
}

// relativeToDocument expresses targetRelPath relative to docRelPath's
// directory, both given as collection-relative forward-slash paths.
func relativeToDocument(docRelPath, targetRelPath string) string {
	if docRelPath == "" {
		return targetRelPath
	}
	dir := filepath.FromSlash(path.Dir(docRelPath))
	rel, err := filepath.Rel(dir, filepath.FromSlash(targetRelPath))
	if err != nil {
		return targetRelPath
	}
	return filepath.ToSlash(rel)
}

func frontmatterCompletions(ctx Context, relPath, text, line string, lineIdx, col int) []CompletionItem {
	colonIdx := strings.IndexByte(line, ':')
	isFieldNamePos := colonIdx < 0 || col <= colonIdx

	parsed := textutil.ParseFrontmatter(text)
	if (parsed.ParseError || parsed.MappingError) && isFieldNamePos {
		patched := textutil.ParseFrontmatter(removeLine(text, lineIdx))
		if patched.ParseError || patched.MappingError {
			return nil
		}
		return fieldNameCompletions(ctx, relPath, patched.JSON)
	}
	if parsed.ParseError || parsed.MappingError {
		return nil
	}

	if isFieldNamePos {
		return fieldNameCompletions(ctx, relPath, parsed.JSON)
	}

	fieldName, ok := textutil.FieldNameFromLine(line)
	if !ok {
		return nil
	}
	typeNames := ctx.Collection.DetermineTypesForPath(parsed.JSON, relPath)
	def, ok := fieldDefForTypes(ctx.Collection, typeNames, fieldName)
	if !ok {
		return nil
	}
	if len(def.Values) > 0 {
		items := make([]CompletionItem, 0, len(def.Values))
		for _, v := range def.Values {
			items = append(items, CompletionItem{Label: v, Kind: KindEnumMember})
		}
		return items
	}
	if def.Type == "boolean" {
		return []CompletionItem{
			{Label: "true", Kind: KindEnumMember},
			{Label: "false", Kind: KindEnumMember},
		}
	}
	if def.IsLink() {
		return linkCompletionsForType(ctx, def.LinkTargetType())
	}
	return nil
}

func linkCompletionsForType(ctx Context, targetType string) []CompletionItem {
	entries := ctx.Index.LinkTargetsWithDisplay(targetType)
	items := make([]CompletionItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, CompletionItem{Label: e.RelPath, Kind: KindFile})
	}
	return items
}

func fieldNameCompletions(ctx Context, relPath string, frontmatter map[string]any) []CompletionItem {
	typeNames := ctx.Collection.DetermineTypesForPath(frontmatter, relPath)
	fields := fieldsForTypes(ctx.Collection, typeNames)
	items := make([]CompletionItem, 0, len(fields))
	for _, f := range fields {
		if _, present := frontmatter[f.Name]; present {
			continue
		}
		items = append(items, CompletionItem{
			Label: f.Name, Kind: KindField, Detail: fieldDetail(f.Def),
		})
	}
	return items
}

type namedField struct {
	Name string
	Def  schema.FieldDef
}

func fieldsForTypes(collection *schema.Collection, typeNames []string) []namedField {
	seen := map[string]schema.FieldDef{}
	add := func(typeName string) {
		for _, def := range collection.ResolveChain(typeName) {
			for name, f := range def.Fields {
				if _, ok := seen[name]; !ok {
					seen[name] = f
				}
			}
		}
	}
	if len(typeNames) == 0 {
		for name := range collection.Types {
			add(name)
		}
	} else {
		for _, t := range typeNames {
			add(t)
		}
	}
	out := make([]namedField, 0, len(seen))
	for name, def := range seen {
		out = append(out, namedField{name, def})
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].Name > out[j].Name; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

func fieldDefForTypes(collection *schema.Collection, typeNames []string, field string) (schema.FieldDef, bool) {
	if len(typeNames) == 0 {
		for name := range collection.Types {
			if def, ok := collection.FieldInChain(name, field); ok {
				return def, true
			}
		}
		return schema.FieldDef{}, false
	}
	for _, t := range typeNames {
		if def, ok := collection.FieldInChain(t, field); ok {
			return def, true
		}
	}
	return schema.FieldDef{}, false
}

func fieldDetail(def schema.FieldDef) string {
	parts := []string{def.Type}
	if def.Required {
		parts = append(parts, "required")
	}
	if def.Deprecated != "" {
		parts = append(parts, "deprecated")
	}
	return strings.Join(parts, ", ")
}

func tagCompletions(ctx Context) []CompletionItem {
	counts := ctx.Index.TagCounts()
	items := make([]CompletionItem, 0, len(counts))
	for _, tc := range counts {
		items = append(items, CompletionItem{Label: tc.Tag, Kind: KindKeyword})
	}
	return items
}

func removeLine(text string, lineIdx int) string {
	lines := strings.Split(text, "\n")
	if lineIdx < 0 || lineIdx >= len(lines) {
		return text
	}
	out := make([]string, 0, len(lines)-1)
	for i, l := range lines {
		if i != lineIdx {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
