// Package lspserver implements the request-dispatch layer described in
// SPEC_FULL.md 4.10 (C10): LSP lifecycle, capability advertisement,
// per-method routing, and the will-save timestamp injector. It wires
// together docstore (C5), collcache (C6), fileindex (C4), the diagnostics
// pipeline (C7), and the feature providers (C8) behind go.lsp.dev/jsonrpc2
// and go.lsp.dev/protocol, grounded on the hand-rolled dispatch loop in
// other_examples' lx-lsp server.go (textDocument/* method switch over a
// jsonrpc2.Conn) and on the teacher's internal/observability request-scoped
// logging pattern.
package lspserver

import (
	"strings"

	"github.com/callumalpass/mdbase-lsp/internal/diagnostics"
	"github.com/callumalpass/mdbase-lsp/internal/features"
	"github.com/callumalpass/mdbase-lsp/internal/textutil"
	"go.lsp.dev/protocol"
	lspuri "go.lsp.dev/uri"
)

func toTextutilPosition(p protocol.Position) textutil.Position {
	return textutil.Position{Line: int(p.Line), Character: int(p.Character)}
}

func fromTextutilPosition(p textutil.Position) protocol.Position {
	return protocol.Position{Line: uint32(p.Line), Character: uint32(p.Character)}
}

func fromRange(r features.Range) protocol.Range {
	return protocol.Range{Start: fromTextutilPosition(r.Start), End: fromTextutilPosition(r.End)}
}

func uriToPath(uri protocol.DocumentURI) string {
	p, err := lspuri.Parse(string(uri))
	if err != nil {
		return strings.TrimPrefix(string(uri), "file://")
	}
	return p.Filename()
}

func pathToURI(p string) protocol.DocumentURI {
	return protocol.DocumentURI(lspuri.File(p))
}

func toProtocolTextEdit(e features.TextEdit) protocol.TextEdit {
	return protocol.TextEdit{Range: fromRange(e.Range), NewText: e.NewText}
}

// toWorkspaceEdit converts a transport-neutral WorkspaceEdit (keyed by
// collection-relative path) into an LSP WorkspaceEdit keyed by file URI,
// resolving paths against root.
func toWorkspaceEdit(root string, we features.WorkspaceEdit) protocol.WorkspaceEdit {
	changes := make(map[protocol.DocumentURI][]protocol.TextEdit, len(we.Changes))
	for relPath, edits := range we.Changes {
		fsPath := relPath
		if !strings.HasPrefix(relPath, "/") {
			fsPath = root + "/" + relPath
		}
		uri := pathToURI(fsPath)
		out := make([]protocol.TextEdit, 0, len(edits))
		for _, e := range edits {
			out = append(out, toProtocolTextEdit(e))
		}
		changes[uri] = out
	}
	return protocol.WorkspaceEdit{Changes: changes}
}

func toSeverity(s diagnostics.Severity) protocol.DiagnosticSeverity {
	switch s {
	case diagnostics.SeverityWarning:
		return protocol.DiagnosticSeverityWarning
	case diagnostics.SeverityInformation:
		return protocol.DiagnosticSeverityInformation
	default:
		return protocol.DiagnosticSeverityError
	}
}

func toProtocolDiagnostics(diags []diagnostics.Diagnostic) []protocol.Diagnostic {
	out := make([]protocol.Diagnostic, 0, len(diags))
	for _, d := range diags {
		out = append(out, protocol.Diagnostic{
			Range:    protocol.Range{Start: fromTextutilPosition(d.Start), End: fromTextutilPosition(d.End)},
			Severity: toSeverity(d.Severity),
			Code:     d.Code,
			Source:   d.Source,
			Message:  d.Message,
		})
	}
	return out
}
