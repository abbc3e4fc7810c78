package bodylink

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindBodyLinks_WikilinkDiscovery(t *testing.T) {
	links := FindBodyLinks("See [[target]] here.")
	require.Len(t, links, 1)
	assert.Equal(t, "target", links[0].Target)
	assert.False(t, links[0].HasAlias)
	assert.False(t, links[0].HasAnchor)
	assert.Equal(t, FormatWikilink, links[0].Format)
	assert.Equal(t, 4, links[0].StartCol)
	assert.Equal(t, 14, links[0].EndCol)
}

func TestFindBodyLinks_MarkdownLinkWithAnchor(t *testing.T) {
	links := FindBodyLinks("See [text](path.md#heading) here.")
	require.Len(t, links, 1)
	assert.Equal(t, "path.md", links[0].Target)
	assert.Equal(t, "heading", links[0].Anchor)
	assert.True(t, links[0].HasAnchor)
	assert.Equal(t, FormatMarkdown, links[0].Format)
	assert.Equal(t, 4, links[0].StartCol)
	assert.Equal(t, 26, links[0].EndCol)
}

func TestFindBodyLinks_SkipsFenceAndInlineCode(t *testing.T) {
	text := "before\n```\n[[inside]]\n```\nafter [[outside]]"
	links := FindBodyLinks(text)
	require.Len(t, links, 1)
	assert.Equal(t, "outside", links[0].Target)
}

func TestFindBodyLinks_SkipsInlineCodeSpan(t *testing.T) {
	links := FindBodyLinks("use `[[not a link]]` here")
	assert.Empty(t, links)
}

func TestFindBodyLinks_WikilinkWithAlias(t *testing.T) {
	links := FindBodyLinks("[[target|Display Name]]")
	require.Len(t, links, 1)
	assert.Equal(t, "target", links[0].Target)
	assert.Equal(t, "Display Name", links[0].Alias)
	assert.True(t, links[0].HasAlias)
}

func TestFindBodyLinks_WikilinkWithAnchorAndAlias(t *testing.T) {
	links := FindBodyLinks("[[target#section|Label]]")
	require.Len(t, links, 1)
	assert.Equal(t, "target", links[0].Target)
	assert.Equal(t, "section", links[0].Anchor)
	assert.Equal(t, "Label", links[0].Alias)
}

func TestFindBodyLinks_SkipsEmbed(t *testing.T) {
	links := FindBodyLinks("![[image.png]]")
	assert.Empty(t, links)
}

func TestFindBodyLinks_SkipsImage(t *testing.T) {
	links := FindBodyLinks("![alt](pic.png)")
	assert.Empty(t, links)
}

func TestFindBodyLinks_MarkdownLinkWithNestedBracketLabel(t *testing.T) {
	links := FindBodyLinks("[a [b] c](d.md)")
	require.Len(t, links, 1)
	assert.Equal(t, "d.md", links[0].Target)
	assert.Equal(t, "a [b] c", links[0].Alias)
	assert.Equal(t, FormatMarkdown, links[0].Format)
}

func TestFindBodyLinks_SkipsExternalURL(t *testing.T) {
	links := FindBodyLinks("[site](https://example.com)")
	assert.Empty(t, links)
}

func TestFindBodyLinks_EmptyTargetDropped(t *testing.T) {
	links := FindBodyLinks("[[]]")
	assert.Empty(t, links)
}

func TestFindBodyLinks_UnclosedWikilinkTerminatesLine(t *testing.T) {
	links := FindBodyLinks("broken [[target and more text")
	assert.Empty(t, links)
}

func TestFindBodyLinks_NonASCIITarget(t *testing.T) {
	links := FindBodyLinks("See [[café]] here")
	require.Len(t, links, 1)
	assert.Equal(t, "café", links[0].Target)
}

func TestFindBodyLinks_Idempotent(t *testing.T) {
	text := "See [[a]] and [text](b.md) and ![[c]]"
	first := FindBodyLinks(text)
	second := FindBodyLinks(text)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("scanning the same text twice produced different links:\n%s", diff)
	}
}

func TestBodyLinkAt_FindsLinkAtColumn(t *testing.T) {
	text := "See [[target]] here."
	link, ok := BodyLinkAt(text, 0, 6)
	require.True(t, ok)
	assert.Equal(t, "target", link.Target)
}

func TestBodyLinkAt_OutsideSpanReturnsFalse(t *testing.T) {
	text := "See [[target]] here."
	_, ok := BodyLinkAt(text, 0, 1)
	assert.False(t, ok)
}

func TestBodyLinkAt_SkipsFencedLine(t *testing.T) {
	text := "```\n[[inside]]\n```\n"
	_, ok := BodyLinkAt(text, 1, 2)
	assert.False(t, ok)
}
