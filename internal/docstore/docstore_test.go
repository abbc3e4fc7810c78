package docstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAndText(t *testing.T) {
	s := New()
	s.Open("file:///a.md", "hello\nworld")
	text, ok := s.Text("file:///a.md")
	require.True(t, ok)
	assert.Equal(t, "hello\nworld", text)
}

func TestApplyChanges_Ranged(t *testing.T) {
	s := New()
	s.Open("file:///a.md", "hello world")
	ok := s.ApplyChanges("file:///a.md", []Change{
		{Ranged: true, StartLine: 0, StartChar: 6, EndLine: 0, EndChar: 11, NewText: "there"},
	})
	require.True(t, ok)
	text, _ := s.Text("file:///a.md")
	assert.Equal(t, "hello there", text)
}

func TestApplyChanges_Full(t *testing.T) {
	s := New()
	s.Open("file:///a.md", "old")
	s.ApplyChanges("file:///a.md", []Change{{Ranged: false, NewText: "new content"}})
	text, _ := s.Text("file:///a.md")
	assert.Equal(t, "new content", text)
}

func TestFrontmatter_CachesUntilInvalidated(t *testing.T) {
	s := New()
	s.Open("file:///a.md", "---\ntitle: A\n---\nBody\n")
	fm1, ok := s.Frontmatter("file:///a.md")
	require.True(t, ok)
	assert.Equal(t, "A", fm1.JSON["title"])

	s.ApplyChanges("file:///a.md", []Change{{Ranged: false, NewText: "---\ntitle: B\n---\nBody\n"}})
	fm2, _ := s.Frontmatter("file:///a.md")
	assert.Equal(t, "B", fm2.JSON["title"])
}

func TestClose_RemovesDocument(t *testing.T) {
	s := New()
	s.Open("file:///a.md", "x")
	s.Close("file:///a.md")
	_, ok := s.Text("file:///a.md")
	assert.False(t, ok)
}
