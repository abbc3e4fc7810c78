// Package textutil provides the line-oriented text helpers SPEC_FULL.md
// section 4.1 (C1) names: frontmatter bounds, YAML line parsing, field-range
// lookup, word-at-column, value extraction, and link-completion-context
// detection. Grounded on original_source's text.rs, which this package
// follows closely, adapted to Go string/rune handling and with the one
// behavioral override documented on WordAt (its end-of-line clamp).
package textutil

import "strings"

// Position mirrors the LSP position shape used throughout the server: a
// zero-based line and a zero-based UTF-16 code-unit column.
type Position struct {
	Line      int
	Character int
}

// FrontmatterBounds returns the inclusive interior line range of the leading
// `---`-delimited block. ok is false when the document has no frontmatter
// (missing, empty, or unterminated).
func FrontmatterBounds(text string) (start, end int, ok bool) {
	lines := strings.Split(text, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return 0, 0, false
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			s, e := 1, i-1
			if i <= s {
				return 0, 0, false
			}
			return s, e, true
		}
	}
	return 0, 0, false
}

// IsInFrontmatter reports whether line falls within the document's
// frontmatter bounds.
func IsInFrontmatter(text string, line int) bool {
	start, end, ok := FrontmatterBounds(text)
	return ok && start <= line && line <= end
}

// FieldNameFromLine extracts the field name from a frontmatter line, if any:
// leading whitespace is trimmed, an optional `- ` list marker is stripped,
// and the text before the first `:` is returned.
func FieldNameFromLine(line string) (string, bool) {
	trimmed := strings.TrimLeft(line, " \t")
	if rest, ok := strings.CutPrefix(trimmed, "-"); ok {
		trimmed = strings.TrimLeft(rest, " \t")
	}
	idx := strings.IndexByte(trimmed, ':')
	if idx < 0 {
		return "", false
	}
	name := trimmed[:idx]
	if name == "" {
		return "", false
	}
	return name, true
}

// FindFieldRange finds the first frontmatter line whose trimmed prefix is
// `field:` and returns the field-key span as LSP positions. If no such line
// exists, it returns a zero-width range at (fallbackLine, 0).
func FindFieldRange(text, field string, fallbackLine int) (Position, Position) {
	start, end, ok := FrontmatterBounds(text)
	if !ok {
		return Position{fallbackLine, 0}, Position{fallbackLine, 0}
	}
	lines := strings.Split(text, "\n")
	for i := start; i <= end && i < len(lines); i++ {
		trimmed := strings.TrimLeft(lines[i], " \t")
		prefix := strings.TrimLeft(trimmed, "- \t")
		if strings.HasPrefix(prefix, field+":") || prefix == field {
			indent := len(lines[i]) - len(trimmed)
			keyStart := indent
			keyEnd := keyStart + len(field)
			return Position{i, utf16Len(lines[i][:keyStart])}, Position{i, utf16Len(lines[i][:keyEnd])}
		}
	}
	return Position{fallbackLine, 0}, Position{fallbackLine, 0}
}

// ValueFromFrontmatterLine extracts the value portion of a `field: value` or
// `- value` line when column lies past the separator.
func ValueFromFrontmatterLine(line string, column int) (string, bool) {
	if idx := strings.IndexByte(line, ':'); idx >= 0 {
		if column > idx {
			return strings.TrimSpace(line[idx+1:]), true
		}
	}
	trimmed := strings.TrimLeft(line, " \t")
	if rest, ok := strings.CutPrefix(trimmed, "-"); ok {
		dashIdx := len(line) - len(trimmed)
		if column > dashIdx {
			return strings.TrimSpace(rest), true
		}
	}
	return "", false
}

// FieldNameForPosition returns the field name governing lineIdx: directly if
// the line is `field: ...`, or by walking upward past less-indented list
// items to the nearest strictly-less-indented `field:` line.
func FieldNameForPosition(text string, lineIdx int) (string, bool) {
	lines := strings.Split(text, "\n")
	if lineIdx < 0 || lineIdx >= len(lines) {
		return "", false
	}
	if name, ok := FieldNameFromLine(lines[lineIdx]); ok {
		trimmed := strings.TrimLeft(lines[lineIdx], " \t")
		if !strings.HasPrefix(trimmed, "-") {
			return name, true
		}
	}

	indent := indentOf(lines[lineIdx])
	for i := lineIdx - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}
		lineIndent := indentOf(lines[i])
		if lineIndent < indent {
			if name, ok := FieldNameFromLine(lines[i]); ok {
				return name, true
			}
			indent = lineIndent
		}
	}
	return "", false
}

func indentOf(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		if r > 0xFFFF {
			n += 2
		} else {
			n++
		}
	}
	return n
}
