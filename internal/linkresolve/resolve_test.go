package linkresolve

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

func testCollection(t *testing.T) *schema.Collection {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "notes/demo.md", "---\ntitle: Demo\n---\nBody\n")
	writeFile(t, root, "notes/other.md", "---\ntitle: Other\n---\nBody\n")
	writeFile(t, root, "_types/zettel.md", "---\nfields:\n  title:\n    type: string\n---\n")
	return &schema.Collection{Root: root, Settings: schema.DefaultSettings()}
}

func TestScanCollectionFiles_ExcludesTypesAndYAML(t *testing.T) {
	c := testCollection(t)
	files := ScanCollectionFiles(c)
	assert.Contains(t, files, "notes/demo.md")
	assert.Contains(t, files, "notes/other.md")
	assert.NotContains(t, files, "_types/zettel.md")
}

func TestResolveLinkTarget_ExactMatch(t *testing.T) {
	c := testCollection(t)
	got := ResolveLinkTarget(c, "notes/demo.md", "notes/other.md")
	assert.Equal(t, "notes/demo.md", got)
}

func TestResolveLinkTarget_ExtensionInference(t *testing.T) {
	c := testCollection(t)
	got := ResolveLinkTarget(c, "notes/demo", "notes/other.md")
	assert.Equal(t, "notes/demo.md", got)
}

func TestResolveLinkTarget_StemMatch(t *testing.T) {
	c := testCollection(t)
	got := ResolveLinkTarget(c, "demo", "notes/other.md")
	assert.Equal(t, "notes/demo.md", got)
}

func TestResolveLinkTarget_RelativeDotSlash(t *testing.T) {
	c := testCollection(t)
	got := ResolveLinkTarget(c, "./demo.md", "notes/other.md")
	assert.Equal(t, "notes/demo.md", got)
}

func TestResolveLinkTarget_RootRelative(t *testing.T) {
	c := testCollection(t)
	got := ResolveLinkTarget(c, "/notes/demo.md", "notes/other.md")
	assert.Equal(t, "notes/demo.md", got)
}

func TestResolveLinkTarget_NoMatch(t *testing.T) {
	c := testCollection(t)
	got := ResolveLinkTarget(c, "missing", "notes/other.md")
	assert.Equal(t, "", got)
}

func TestMatchGlobPattern(t *testing.T) {
	assert.True(t, matchGlobPattern("drafts/**", "drafts/a.md"))
	assert.True(t, matchGlobPattern("drafts/**", "drafts"))
	assert.False(t, matchGlobPattern("drafts/**", "notdrafts/a.md"))
	assert.True(t, matchGlobPattern("*.tmp", "notes/a.tmp"))
	assert.True(t, matchGlobPattern("a*b", "axxxb"))
	assert.False(t, matchGlobPattern("a*b", "axxxc"))
}
