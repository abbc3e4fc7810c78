package textutil

import "github.com/callumalpass/mdbase-lsp/internal/schema"

// ParsedFrontmatter is the coerced shape SPEC_FULL.md 4.1 describes:
// parse_frontmatter delegates to the external schema library's document
// parser and folds its sentinel/mapping distinctions into two booleans.
type ParsedFrontmatter struct {
	JSON           map[string]any
	HasFrontmatter bool
	ParseError     bool
	MappingError   bool
}

// ParseFrontmatter parses text's frontmatter via the schema package's
// document parser, coercing the result per SPEC_FULL.md 4.1.
func ParseFrontmatter(text string) ParsedFrontmatter {
	doc := schema.ParseDocument(text)
	if !doc.HasFrontmatter {
		return ParsedFrontmatter{JSON: map[string]any{}, HasFrontmatter: false}
	}
	if schema.IsParseSentinel(doc.Frontmatter) {
		return ParsedFrontmatter{JSON: map[string]any{}, HasFrontmatter: true, ParseError: true}
	}
	m, ok := schema.MappingToJSON(doc.Frontmatter)
	if !ok {
		return ParsedFrontmatter{JSON: map[string]any{}, HasFrontmatter: true, MappingError: true}
	}
	return ParsedFrontmatter{JSON: m, HasFrontmatter: true}
}
