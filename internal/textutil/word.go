package textutil

import "strings"

func isWordChar(r rune) bool {
	return r == '_' || r == '-' ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// WordAt extends word boundaries ([A-Za-z0-9_-]) around column, returning
// the word and its rune-index span [start, end). column is clamped to the
// last rune index of the line so a cursor at end-of-line still returns the
// trailing word.
//
// This clamping behavior is an intentional override of original_source's
// text.rs::word_at, which returns None when column >= line.len(); SPEC_FULL.md
// 4.1 explicitly requires the clamp, so the end-of-line case is honored here.
func WordAt(line string, column int) (word string, start int, end int, ok bool) {
	runes := []rune(line)
	if len(runes) == 0 {
		return "", 0, 0, false
	}
	col := column
	if col >= len(runes) {
		col = len(runes) - 1
	}
	if col < 0 {
		col = 0
	}
	if !isWordChar(runes[col]) {
		// Allow a cursor sitting just past a word to still find it.
		if col > 0 && isWordChar(runes[col-1]) {
			col--
		} else {
			return "", 0, 0, false
		}
	}

	s := col
	for s > 0 && isWordChar(runes[s-1]) {
		s--
	}
	e := col + 1
	for e < len(runes) && isWordChar(runes[e]) {
		e++
	}
	if s == e {
		return "", 0, 0, false
	}
	return string(runes[s:e]), s, e, true
}

// LinkCompletionKind distinguishes the two bracketed-link syntaxes the
// completion provider must recognize mid-typing.
type LinkCompletionKind int

const (
	// LinkCompletionNone means the cursor is not inside an unclosed link.
	LinkCompletionNone LinkCompletionKind = iota
	LinkCompletionWikilink
	LinkCompletionMarkdown
)

// LinkCompletionContext reports whether the cursor sits inside an unclosed
// `[[` or `](` construct, per SPEC_FULL.md 4.1.
func LinkCompletionContext(line string, column int) (kind LinkCompletionKind, prefix string, startCol int) {
	runes := []rune(line)
	col := column
	if col > len(runes) {
		col = len(runes)
	}
	head := string(runes[:col])

	wikiIdx := strings.LastIndex(head, "[[")
	mdIdx := strings.LastIndex(head, "](")

	if wikiIdx < 0 && mdIdx < 0 {
		return LinkCompletionNone, "", 0
	}

	if wikiIdx >= mdIdx {
		span := head[wikiIdx+2:]
		if strings.Contains(string(runes), "]]") && closesAfter(line, wikiIdx+2, "]]") {
			return LinkCompletionNone, "", 0
		}
		if strings.ContainsAny(span, "|#") {
			return LinkCompletionNone, "", 0
		}
		return LinkCompletionWikilink, span, len([]rune(head[:wikiIdx+2]))
	}

	span := head[mdIdx+2:]
	if closesAfter(line, mdIdx+2, ")") {
		return LinkCompletionNone, "", 0
	}
	trimmed := strings.TrimSpace(span)
	if strings.ContainsAny(span, "|#") || strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		return LinkCompletionNone, "", 0
	}
	return LinkCompletionMarkdown, span, len([]rune(head[:mdIdx+2]))
}

func closesAfter(line string, byteOffset int, closer string) bool {
	if byteOffset > len(line) {
		return false
	}
	return strings.Contains(line[byteOffset:], closer)
}
