// Package fileindex implements the concurrently-readable collection snapshot
// described in SPEC_FULL.md 4.4 (C4), grounded on original_source's
// file_index.rs and generalized per SPEC_FULL.md's entry shape (which adds
// display_name/title/id/preview beyond the original's rel_path/types/tags).
package fileindex

import (
	"os"
	"sort"
	"sync"

	"github.com/callumalpass/mdbase-lsp/internal/linkresolve"
	"github.com/callumalpass/mdbase-lsp/internal/schema"
	"github.com/callumalpass/mdbase-lsp/internal/textutil"
	"golang.org/x/text/cases"
)

var foldCaser = cases.Fold()

// Entry is one file's indexed summary.
type Entry struct {
	RelPath     string
	Types       []string
	Tags        []string
	DisplayName string
	Title       string
	ID          string
	Preview     string
}

// Index is the reader-writer-locked snapshot of Entry records.
type Index struct {
	mu      sync.RWMutex
	entries []Entry
	cache   *DiskCache
	warm    bool
}

// New returns an empty Index with no disk cache.
func New() *Index {
	return &Index{}
}

// NewWithCache returns an Index backed by a warm-start disk cache opened at
// cachePath (SPEC_FULL.md D.4). Its current contents, if any, are loaded
// immediately so reads issued before the first Rebuild still see the
// previous session's snapshot instead of an empty index.
func NewWithCache(cachePath string) (*Index, error) {
	dc, err := OpenDiskCache(cachePath)
	if err != nil {
		return nil, err
	}
	idx := &Index{cache: dc}
	if entries, lerr := dc.Load(); lerr == nil {
		idx.entries = entries
		idx.warm = len(entries) > 0
	}
	return idx, nil
}

// Close releases the disk cache handle, if any.
func (idx *Index) Close() error {
	if idx.cache == nil {
		return nil
	}
	return idx.cache.Close()
}

// Rebuild performs a full scan of collection, replacing the entry vector
// atomically. Intended to run on a background goroutine (file I/O only).
// Once the scan finishes it overwrites the disk cache so the next cold
// start resumes from this snapshot rather than the prior one.
func (idx *Index) Rebuild(collection *schema.Collection) {
	files := linkresolve.ScanCollectionFiles(collection)
	entries := make([]Entry, 0, len(files))
	for _, rel := range files {
		content, err := os.ReadFile(linkresolve.URIFromRelPath(collection, rel))
		if err != nil {
			continue
		}
		entry, ok := buildEntry(collection, rel, string(content))
		if !ok {
			continue
		}
		entries = append(entries, entry)
	}

	idx.mu.Lock()
	idx.entries = entries
	idx.warm = false
	idx.mu.Unlock()

	if idx.cache != nil {
		_ = idx.cache.Replace(entries)
	}
}

// UpsertFromText rebuilds a single entry from in-memory text (an open
// document's current content) and replaces or appends it.
func (idx *Index) UpsertFromText(collection *schema.Collection, relPath, text string) {
	entry, ok := buildEntry(collection, relPath, text)
	if !ok {
		idx.RemovePath(relPath)
		return
	}

	idx.mu.Lock()
	replaced := false
	for i := range idx.entries {
		if idx.entries[i].RelPath == relPath {
			idx.entries[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		idx.entries = append(idx.entries, entry)
	}
	snapshot := append([]Entry(nil), idx.entries...)
	idx.warm = false
	idx.mu.Unlock()

	if idx.cache != nil {
		_ = idx.cache.Replace(snapshot)
	}
}

// RemovePath deletes the entry for relPath, if any.
func (idx *Index) RemovePath(relPath string) {
	idx.mu.Lock()
	out := idx.entries[:0:0]
	for _, e := range idx.entries {
		if e.RelPath != relPath {
			out = append(out, e)
		}
	}
	idx.entries = out
	snapshot := append([]Entry(nil), out...)
	idx.mu.Unlock()

	if idx.cache != nil {
		_ = idx.cache.Replace(snapshot)
	}
}

// LinkTargets returns rel_paths matching targetType (case-insensitively), or
// all entries' rel_paths when targetType is "".
func (idx *Index) LinkTargets(targetType string) []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	var out []string
	for _, e := range idx.entries {
		if targetType == "" || containsFold(e.Types, targetType) {
			out = append(out, e.RelPath)
		}
	}
	return out
}

// LinkTargetsWithDisplay is like LinkTargets but also returns each entry's
// best display name, for completion labels.
func (idx *Index) LinkTargetsWithDisplay(targetType string) []Entry {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	var out []Entry
	for _, e := range idx.entries {
		if targetType == "" || containsFold(e.Types, targetType) {
			out = append(out, e)
		}
	}
	return out
}

// TagCount pairs a tag with its occurrence count.
type TagCount struct {
	Tag   string
	Count int
}

// TagCounts aggregates tag occurrences, sorted by descending count with
// alphabetical tiebreak.
func (idx *Index) TagCounts() []TagCount {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	counts := map[string]int{}
	for _, e := range idx.entries {
		for _, tag := range e.Tags {
			counts[tag]++
		}
	}
	out := make([]TagCount, 0, len(counts))
	for tag, n := range counts {
		out = append(out, TagCount{tag, n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	return out
}

// AllEntries returns a snapshot copy of every entry, for workspace symbol and
// query lookups.
func (idx *Index) AllEntries() []Entry {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]Entry, len(idx.entries))
	copy(out, idx.entries)
	return out
}

func buildEntry(collection *schema.Collection, relPath, content string) (Entry, bool) {
	parsed := textutil.ParseFrontmatter(content)
	if parsed.ParseError || parsed.MappingError {
		return Entry{}, false
	}

	types := collection.DetermineTypesForPath(parsed.JSON, relPath)

	var tags []string
	seen := map[string]bool{}
	addTag := func(tag string) {
		if tag != "" && !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	switch v := parsed.JSON["tags"].(type) {
	case []any:
		for _, t := range v {
			if s, ok := t.(string); ok {
				addTag(s)
			}
		}
	case string:
		addTag(v)
	}
	doc := schema.ParseDocument(content)
	for _, tag := range schema.ExtractBodyTags(doc.Body) {
		addTag(tag)
	}

	displayName := ""
	for _, typeName := range types {
		field := collection.DisplayNameField(typeName)
		if field == "" {
			continue
		}
		if s, ok := parsed.JSON[field].(string); ok && s != "" {
			displayName = s
			break
		}
	}
	if displayName == "" {
		if s, ok := parsed.JSON["display-name"].(string); ok && s != "" {
			displayName = s
		}
	}
	title, _ := parsed.JSON["title"].(string)
	if displayName == "" {
		displayName = title
	}
	id, _ := parsed.JSON["id"].(string)

	preview := content
	const maxPreview = 2000
	if runes := []rune(preview); len(runes) > maxPreview {
		preview = string(runes[:maxPreview]) + "…"
	}

	return Entry{
		RelPath:     relPath,
		Types:       types,
		Tags:        tags,
		DisplayName: displayName,
		Title:       title,
		ID:          id,
		Preview:     preview,
	}, true
}

func containsFold(haystack []string, needle string) bool {
	folded := foldCaser.String(needle)
	for _, h := range haystack {
		if foldCaser.String(h) == folded {
			return true
		}
	}
	return false
}
