package features

import (
	"github.com/callumalpass/mdbase-lsp/internal/bodylink"
	"github.com/callumalpass/mdbase-lsp/internal/linkresolve"
	"github.com/callumalpass/mdbase-lsp/internal/textutil"
)

// DocumentLinks computes the textDocument/documentLink response, per
// SPEC_FULL.md 4.8: only links that resolve are emitted.
func DocumentLinks(ctx Context, relPath, text string) []DocumentLink {
	links := bodylink.FindBodyLinks(text)
	out := make([]DocumentLink, 0, len(links))
	for _, l := range links {
		resolved := linkresolve.ResolveLinkTarget(ctx.Collection, l.Target, relPath)
		if resolved == "" {
			continue
		}
		out = append(out, DocumentLink{
			Range: Range{
				Start: textutil.Position{Line: l.StartLine, Character: l.StartCol},
				End:   textutil.Position{Line: l.EndLine, Character: l.EndCol},
			},
			RelPath: resolved,
			Tooltip: l.Target,
		})
	}
	return out
}
