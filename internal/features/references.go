package features

import (
	"os"
	"strings"

	"github.com/callumalpass/mdbase-lsp/internal/bodylink"
	"github.com/callumalpass/mdbase-lsp/internal/linkresolve"
	"github.com/callumalpass/mdbase-lsp/internal/textutil"
)

type refFormat int

const (
	refWikilink refFormat = iota
	refMarkdown
	refFrontmatterValue
)

type foundRef struct {
	relPath string
	rng     Range
	format  refFormat
	alias   string
	hasAlias bool
	anchor  string
	hasAnchor bool
}

type symbolAtCursor struct {
	target string
	rng    Range
}

func symbolAtPosition(ctx Context, sourceRel, text string, position textutil.Position) (symbolAtCursor, bool) {
	if link, ok := bodylink.BodyLinkAt(text, position.Line, position.Character); ok {
		resolved := linkresolve.ResolveLinkTarget(ctx.Collection, link.Target, sourceRel)
		if resolved == "" {
			return symbolAtCursor{}, false
		}
		return symbolAtCursor{
			target: resolved,
			rng: Range{
				Start: textutil.Position{Line: link.StartLine, Character: link.StartCol},
				End:   textutil.Position{Line: link.EndLine, Character: link.EndCol},
			},
		}, true
	}

	if !textutil.IsInFrontmatter(text, position.Line) {
		return symbolAtCursor{}, false
	}
	lines := strings.Split(text, "\n")
	if position.Line < 0 || position.Line >= len(lines) {
		return symbolAtCursor{}, false
	}
	lineText := lines[position.Line]
	value, ok := textutil.ValueFromFrontmatterLine(lineText, position.Character)
	if !ok {
		return symbolAtCursor{}, false
	}
	target := linkresolve.ParseLinkValue(value)
	resolved := linkresolve.ResolveLinkTarget(ctx.Collection, target, sourceRel)
	if resolved == "" {
		return symbolAtCursor{}, false
	}
	return symbolAtCursor{
		target: resolved,
		rng: Range{
			Start: textutil.Position{Line: position.Line, Character: 0},
			End:   textutil.Position{Line: position.Line, Character: utf16Len(lineText)},
		},
	}, true
}

func findReferencesInText(ctx Context, text, sourceRel, targetRel string) []foundRef {
	var refs []foundRef
	for _, l := range bodylink.FindBodyLinks(text) {
		resolved := linkresolve.ResolveLinkTarget(ctx.Collection, l.Target, sourceRel)
		if resolved != targetRel {
			continue
		}
		format := refWikilink
		if l.Format == bodylink.FormatMarkdown {
			format = refMarkdown
		}
		refs = append(refs, foundRef{
			relPath: resolved,
			rng: Range{
				Start: textutil.Position{Line: l.StartLine, Character: l.StartCol},
				End:   textutil.Position{Line: l.EndLine, Character: l.EndCol},
			},
			format: format, alias: l.Alias, hasAlias: l.HasAlias, anchor: l.Anchor, hasAnchor: l.HasAnchor,
		})
	}

	if start, end, ok := textutil.FrontmatterBounds(text); ok {
		lines := strings.Split(text, "\n")
		for i := start; i <= end && i < len(lines); i++ {
			value, ok := textutil.ValueFromFrontmatterLine(lines[i], len([]rune(lines[i])))
			if !ok {
				continue
			}
			target := linkresolve.ParseLinkValue(value)
			if target == "" {
				continue
			}
			resolved := linkresolve.ResolveLinkTarget(ctx.Collection, target, sourceRel)
			if resolved != targetRel {
				continue
			}
			refs = append(refs, foundRef{
				relPath: resolved,
				rng: Range{
					Start: textutil.Position{Line: i, Character: 0},
					End:   textutil.Position{Line: i, Character: utf16Len(lines[i])},
				},
				format: refFrontmatterValue,
			})
		}
	}
	return refs
}

// References computes the textDocument/references response, per
// SPEC_FULL.md 4.8.
func References(ctx Context, sourceRel, text string, position textutil.Position, includeDeclaration bool) []Location {
	symbol, ok := symbolAtPosition(ctx, sourceRel, text, position)
	if !ok {
		return nil
	}

	var locations []Location
	for _, rel := range linkresolve.ScanCollectionFiles(ctx.Collection) {
		fileText := readFileOrBuffer(ctx, rel)
		refs := findReferencesInText(ctx, fileText, rel, symbol.target)
		for _, r := range refs {
			locations = append(locations, Location{RelPath: rel, Range: r.rng})
		}
	}

	if !includeDeclaration {
		filtered := locations[:0:0]
		for _, loc := range locations {
			if loc.RelPath == sourceRel && loc.Range == symbol.rng {
				continue
			}
			filtered = append(filtered, loc)
		}
		locations = filtered
	}
	return locations
}

// PrepareRename computes the textDocument/prepareRename response.
func PrepareRename(ctx Context, sourceRel, text string, position textutil.Position) (Range, string, bool) {
	symbol, ok := symbolAtPosition(ctx, sourceRel, text, position)
	if !ok {
		return Range{}, "", false
	}
	return symbol.rng, symbol.target, true
}

// Rename computes the textDocument/rename response.
func Rename(ctx Context, sourceRel, text string, position textutil.Position, newName string) (WorkspaceEdit, bool) {
	symbol, ok := symbolAtPosition(ctx, sourceRel, text, position)
	if !ok {
		return WorkspaceEdit{}, false
	}

	changes := map[string][]TextEdit{}
	for _, rel := range linkresolve.ScanCollectionFiles(ctx.Collection) {
		fileText := readFileOrBuffer(ctx, rel)
		refs := findReferencesInText(ctx, fileText, rel, symbol.target)
		if len(refs) == 0 {
			continue
		}
		edits := make([]TextEdit, 0, len(refs))
		for _, r := range refs {
			edits = append(edits, TextEdit{Range: r.rng, NewText: replacementForRef(r, newName)})
		}
		changes[rel] = edits
	}
	return WorkspaceEdit{Changes: changes}, true
}

func replacementForRef(found foundRef, newTarget string) string {
	switch found.format {
	case refWikilink:
		s := newTarget
		if found.hasAnchor {
			s += "#" + found.anchor
		}
		if found.hasAlias {
			return "[[" + s + "|" + found.alias + "]]"
		}
		return "[[" + s + "]]"
	case refMarkdown:
		p := newTarget
		if found.hasAnchor {
			p += "#" + found.anchor
		}
		label := found.alias
		if label == "" {
			label = "link"
		}
		return "[" + label + "](" + p + ")"
	default:
		return newTarget
	}
}

// readFileOrBuffer prefers an open buffer's in-memory text over the file on
// disk, since References/Rename must scan every collection file plus open
// buffers (SPEC_FULL.md 4.8) and an edited-but-unsaved file's disk bytes are
// stale.
func readFileOrBuffer(ctx Context, rel string) string {
	fsPath := linkresolve.URIFromRelPath(ctx.Collection, rel)
	if ctx.Store != nil {
		if text, open := ctx.Store.Text(fsPath); open {
			return text
		}
	}
	raw, err := os.ReadFile(fsPath)
	if err != nil {
		return ""
	}
	return string(raw)
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
