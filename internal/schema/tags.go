package schema

import (
	"regexp"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var tagPattern = regexp.MustCompile(`#([A-Za-z0-9_][A-Za-z0-9_/-]*)`)

// ExtractBodyTags returns the #tag tokens found in a markdown body, skipping
// code spans and code blocks, mirroring the body-tag extractor SPEC_FULL.md
// section C attributes to the external schema library. Grounded on the
// teacher's internal/markdown.ExtractLinks, which walks the same goldmark AST
// for a different node kind.
func ExtractBodyTags(body string) []string {
	src := []byte(body)
	reader := text.NewReader(src)
	doc := goldmark.DefaultParser().Parse(reader)

	seen := map[string]bool{}
	var tags []string

	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindCodeSpan, ast.KindCodeBlock, ast.KindFencedCodeBlock:
			return ast.WalkSkipChildren, nil
		case ast.KindText:
			tn := n.(*ast.Text)
			segment := tn.Segment.Value(src)
			for _, match := range tagPattern.FindAllSubmatch(segment, -1) {
				tag := string(match[1])
				if !seen[tag] {
					seen[tag] = true
					tags = append(tags, tag)
				}
			}
		}
		return ast.WalkContinue, nil
	})

	return tags
}
