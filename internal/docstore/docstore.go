// Package docstore implements the per-document text buffer and lazily-cached
// frontmatter parse described in SPEC_FULL.md 4.5 (C5), grounded on
// original_source's state.rs (the DashMap<Url, Rope> shape) and server.rs's
// offset_from_position helper, adapted to a concurrent Go map of mutex-guarded
// documents since Go has no ropey equivalent in the example pack.
package docstore

import (
	"strings"
	"sync"

	"github.com/callumalpass/mdbase-lsp/internal/textutil"
)

// document holds one open file's text and cached frontmatter parse.
type document struct {
	mu         sync.Mutex
	lines      []string // text split on '\n'; line_to_char-equivalent is computed on demand
	cached     *textutil.ParsedFrontmatter
	cacheValid bool
}

func newDocument(text string) *document {
	return &document{lines: strings.Split(text, "\n")}
}

func (d *document) text() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return strings.Join(d.lines, "\n")
}

// Store maps open-document URIs to their document state.
type Store struct {
	mu   sync.RWMutex
	docs map[string]*document
}

// New returns an empty Store.
func New() *Store {
	return &Store{docs: map[string]*document{}}
}

// Open inserts or replaces the document at uri with the given full text.
func (s *Store) Open(uri, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[uri] = newDocument(text)
}

// Close removes the document at uri.
func (s *Store) Close(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, uri)
}

// Text returns the current full text of the document at uri, and whether it
// is open.
func (s *Store) Text(uri string) (string, bool) {
	s.mu.RLock()
	doc, ok := s.docs[uri]
	s.mu.RUnlock()
	if !ok {
		return "", false
	}
	return doc.text(), true
}

// Count returns the number of currently open documents.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// IsOpen reports whether uri currently has an open buffer. fswatch uses this
// to skip filesystem events for documents the editor already owns, per
// SPEC_FULL.md D.3: the document store, not disk, is authoritative for those.
func (s *Store) IsOpen(uri string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.docs[uri]
	return ok
}

// Change describes one content-change event. If Ranged is false, NewText
// replaces the whole document.
type Change struct {
	Ranged    bool
	StartLine int
	StartChar int
	EndLine   int
	EndChar   int
	NewText   string
}

// ApplyChanges applies a batch of content changes to the document at uri in
// order, then invalidates the cached frontmatter parse (SPEC_FULL.md 4.5's
// mutation invariant).
func (s *Store) ApplyChanges(uri string, changes []Change) bool {
	s.mu.RLock()
	doc, ok := s.docs[uri]
	s.mu.RUnlock()
	if !ok {
		return false
	}

	doc.mu.Lock()
	defer doc.mu.Unlock()
	for _, c := range changes {
		if !c.Ranged {
			doc.lines = strings.Split(c.NewText, "\n")
			continue
		}
		applyRangedChange(doc, c)
	}
	doc.cacheValid = false
	return true
}

// Replace overwrites the document at uri wholesale (used to resync from disk
// on did_save) and invalidates its cache.
func (s *Store) Replace(uri, text string) bool {
	s.mu.RLock()
	doc, ok := s.docs[uri]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	doc.mu.Lock()
	doc.lines = strings.Split(text, "\n")
	doc.cacheValid = false
	doc.mu.Unlock()
	return true
}

func applyRangedChange(doc *document, c Change) {
	full := strings.Join(doc.lines, "\n")
	startOffset := lineCharToOffset(doc.lines, c.StartLine, c.StartChar)
	endOffset := lineCharToOffset(doc.lines, c.EndLine, c.EndChar)
	runes := []rune(full)
	if startOffset > len(runes) {
		startOffset = len(runes)
	}
	if endOffset > len(runes) {
		endOffset = len(runes)
	}
	if endOffset < startOffset {
		endOffset = startOffset
	}
	var out strings.Builder
	out.WriteString(string(runes[:startOffset]))
	out.WriteString(c.NewText)
	out.WriteString(string(runes[endOffset:]))
	doc.lines = strings.Split(out.String(), "\n")
}

// lineCharToOffset converts a (line, character) LSP position into a
// rune-index offset into the joined text, mirroring
// server.rs::offset_from_position's line_to_char + character arithmetic.
func lineCharToOffset(lines []string, line, char int) int {
	offset := 0
	for i := 0; i < line && i < len(lines); i++ {
		offset += len([]rune(lines[i])) + 1 // +1 for the '\n'
	}
	if line < len(lines) {
		lineRunes := len([]rune(lines[line]))
		if char > lineRunes {
			char = lineRunes
		}
	} else {
		char = 0
	}
	return offset + char
}

// Frontmatter returns the cached ParsedFrontmatter for uri, parsing lazily
// under the document's mutex if the cache was invalidated.
func (s *Store) Frontmatter(uri string) (textutil.ParsedFrontmatter, bool) {
	s.mu.RLock()
	doc, ok := s.docs[uri]
	s.mu.RUnlock()
	if !ok {
		return textutil.ParsedFrontmatter{}, false
	}

	doc.mu.Lock()
	defer doc.mu.Unlock()
	if !doc.cacheValid {
		parsed := textutil.ParseFrontmatter(strings.Join(doc.lines, "\n"))
		doc.cached = &parsed
		doc.cacheValid = true
	}
	return *doc.cached, true
}
