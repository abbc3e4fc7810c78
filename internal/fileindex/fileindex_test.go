package fileindex

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/callumalpass/mdbase-lsp/internal/schema"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestRebuild_SkipsParseErrorsAndBuildsEntries(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "notes/good.md", "---\ntitle: Good\ntags: [a, b]\n---\nBody with #c tag.\n")
	writeFile(t, root, "notes/bad.md", "---\n[unterminated\n---\nBody\n")
	collection := &schema.Collection{Root: root, Settings: schema.DefaultSettings()}

	idx := New()
	idx.Rebuild(collection)

	entries := idx.AllEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, "notes/good.md", entries[0].RelPath)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, entries[0].Tags)
}

func TestUpsertAndRemove(t *testing.T) {
	root := t.TempDir()
	collection := &schema.Collection{Root: root, Settings: schema.DefaultSettings()}
	idx := New()

	idx.UpsertFromText(collection, "notes/a.md", "---\ntitle: A\n---\n")
	require.Len(t, idx.AllEntries(), 1)

	idx.UpsertFromText(collection, "notes/a.md", "---\ntitle: A2\n---\n")
	entries := idx.AllEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, "A2", entries[0].Title)

	idx.RemovePath("notes/a.md")
	assert.Empty(t, idx.AllEntries())
}

func TestTagCounts_SortedByCountThenAlpha(t *testing.T) {
	root := t.TempDir()
	collection := &schema.Collection{Root: root, Settings: schema.DefaultSettings()}
	idx := New()
	idx.UpsertFromText(collection, "a.md", "---\ntags: [x, y]\n---\n")
	idx.UpsertFromText(collection, "b.md", "---\ntags: [x]\n---\n")

	counts := idx.TagCounts()
	require.Len(t, counts, 2)
	assert.Equal(t, "x", counts[0].Tag)
	assert.Equal(t, 2, counts[0].Count)
	assert.Equal(t, "y", counts[1].Tag)
}
