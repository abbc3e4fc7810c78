package schema

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// parseSentinel is returned as ParsedDocument.Frontmatter when the
// frontmatter block exists but fails to parse as YAML at all; IsParseSentinel
// recognizes it as distinct from "frontmatter legitimately parsed to nil".
type parseSentinel struct{}

// ParseDocument splits text into frontmatter and body and parses the
// frontmatter block as YAML, mirroring the document parser that SPEC_FULL.md
// section C attributes to the external schema library. Grounded on the
// teacher's internal/frontmatter.Split/ParseYAML and internal/docmodel.Parse.
func ParseDocument(text string) ParsedDocument {
	start, end, body, ok := splitFrontmatter(text)
	if !ok {
		return ParsedDocument{Frontmatter: nil, Body: text, HasFrontmatter: false}
	}

	block := strings.Join(linesBetween(text, start, end), "\n")
	var value any
	if err := yaml.Unmarshal([]byte(block), &value); err != nil {
		return ParsedDocument{Frontmatter: parseSentinel{}, Body: body, HasFrontmatter: true, ParseSentinel: true}
	}
	return ParsedDocument{Frontmatter: value, Body: body, HasFrontmatter: true}
}

// IsParseSentinel reports whether v is the sentinel ParseDocument returns for
// a frontmatter block that failed to parse as YAML at all.
func IsParseSentinel(v any) bool {
	_, ok := v.(parseSentinel)
	return ok
}

// MappingToJSON coerces a parsed frontmatter value into a string-keyed map,
// the shape the rest of the server consumes. A nil or missing frontmatter
// becomes an empty map with no error; a non-mapping value is reported via ok.
func MappingToJSON(v any) (m map[string]any, ok bool) {
	if v == nil {
		return map[string]any{}, true
	}
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			ks, isStr := k.(string)
			if !isStr {
				return nil, false
			}
			out[ks] = val
		}
		return out, true
	default:
		return nil, false
	}
}

// frontmatterBounds locates the inclusive interior line range of the leading
// `---` delimited block, per SPEC_FULL.md 4.1's frontmatter-bounds rule.
func frontmatterBounds(text string) (start, end int, ok bool) {
	lines := strings.Split(text, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return 0, 0, false
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			closeLine := i
			s, e := 1, closeLine-1
			if closeLine <= s {
				return 0, 0, false
			}
			return s, e, true
		}
	}
	return 0, 0, false
}

func splitFrontmatter(text string) (start, end int, body string, ok bool) {
	s, e, ok := frontmatterBounds(text)
	if !ok {
		return 0, 0, text, false
	}
	lines := strings.Split(text, "\n")
	closeLine := e + 1
	bodyLines := lines[closeLine+1:]
	return s, e, strings.Join(bodyLines, "\n"), true
}

func linesBetween(text string, start, end int) []string {
	lines := strings.Split(text, "\n")
	if start > end || start >= len(lines) {
		return nil
	}
	if end >= len(lines) {
		end = len(lines) - 1
	}
	return lines[start : end+1]
}
