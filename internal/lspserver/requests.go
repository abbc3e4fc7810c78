package lspserver

import (
	"context"
	"encoding/json"

	"github.com/callumalpass/mdbase-lsp/internal/commands"
	"github.com/callumalpass/mdbase-lsp/internal/features"
	"github.com/callumalpass/mdbase-lsp/internal/linkresolve"
	"github.com/callumalpass/mdbase-lsp/internal/logging"
	"go.lsp.dev/protocol"
)

// textAndContext resolves the open buffer's text (falling back to disk),
// the collection-relative path, and the feature context for uri, or ok=false
// if the collection has not loaded yet.
func (s *Server) textAndContext(uri protocol.DocumentURI) (fctx features.Context, relPath, text string, ok bool) {
	fctx, ok = s.featureContext()
	if !ok {
		return features.Context{}, "", "", false
	}
	path := uriToPath(uri)
	relPath = linkresolve.RelPathFromURI(fctx.Collection, path)
	text, open := s.store.Text(path)
	if !open {
		text = readDiskFile(path)
	}
	return fctx, relPath, text, true
}

// Completion computes the textDocument/completion response.
func (s *Server) Completion(ctx context.Context, params *protocol.CompletionParams) *protocol.CompletionList {
	fctx, relPath, text, ok := s.textAndContext(params.TextDocument.URI)
	if !ok {
		return nil
	}
	items := features.Completion(fctx, relPath, text, toTextutilPosition(params.Position))
	out := make([]protocol.CompletionItem, 0, len(items))
	for _, item := range items {
		out = append(out, toProtocolCompletionItem(item))
	}
	return &protocol.CompletionList{IsIncomplete: false, Items: out}
}

// Hover computes the textDocument/hover response.
func (s *Server) Hover(ctx context.Context, params *protocol.HoverParams) *protocol.Hover {
	fctx, relPath, text, ok := s.textAndContext(params.TextDocument.URI)
	if !ok {
		return nil
	}
	hover, ok := features.HoverAt(fctx, relPath, text, toTextutilPosition(params.Position))
	if !ok {
		return nil
	}
	return toProtocolHover(hover)
}

// Definition computes the textDocument/definition response.
func (s *Server) Definition(ctx context.Context, params *protocol.DefinitionParams) []protocol.Location {
	fctx, relPath, text, ok := s.textAndContext(params.TextDocument.URI)
	if !ok {
		return nil
	}
	loc, ok := features.Definition(fctx, relPath, text, toTextutilPosition(params.Position))
	if !ok {
		return nil
	}
	return []protocol.Location{s.toProtocolLocation(loc)}
}

// References computes the textDocument/references response.
func (s *Server) References(ctx context.Context, params *protocol.ReferenceParams) []protocol.Location {
	fctx, relPath, text, ok := s.textAndContext(params.TextDocument.URI)
	if !ok {
		return nil
	}
	locs := features.References(fctx, relPath, text, toTextutilPosition(params.Position), params.Context.IncludeDeclaration)
	out := make([]protocol.Location, 0, len(locs))
	for _, l := range locs {
		out = append(out, s.toProtocolLocation(l))
	}
	return out
}

// prepareRenameResult is the LSP range+placeholder shape for
// textDocument/prepareRename; go.lsp.dev/protocol has no named type for it
// since all three PrepareRename response shapes are valid, so this one is
// constructed directly.
type prepareRenameResult struct {
	Range       protocol.Range `json:"range"`
	Placeholder string         `json:"placeholder"`
}

// PrepareRename computes the textDocument/prepareRename response.
func (s *Server) PrepareRename(ctx context.Context, params *protocol.PrepareRenameParams) *prepareRenameResult {
	fctx, relPath, text, ok := s.textAndContext(params.TextDocument.URI)
	if !ok {
		return nil
	}
	rng, placeholder, ok := features.PrepareRename(fctx, relPath, text, toTextutilPosition(params.Position))
	if !ok {
		return nil
	}
	return &prepareRenameResult{Range: fromRange(rng), Placeholder: placeholder}
}

// Rename computes the textDocument/rename response.
func (s *Server) Rename(ctx context.Context, params *protocol.RenameParams) *protocol.WorkspaceEdit {
	fctx, relPath, text, ok := s.textAndContext(params.TextDocument.URI)
	if !ok {
		return nil
	}
	edit, ok := features.Rename(fctx, relPath, text, toTextutilPosition(params.Position), params.NewName)
	if !ok {
		return nil
	}
	we := toWorkspaceEdit(s.rootPath(), edit)
	return &we
}

// CodeAction computes the textDocument/codeAction response, using this
// file's currently-cached diagnostics (whatever was last published) rather
// than re-deriving them from params.Context, since PublishDiagnostics caches
// exactly that structured data for this purpose.
func (s *Server) CodeAction(ctx context.Context, params *protocol.CodeActionParams) []protocol.CodeAction {
	fctx, relPath, text, ok := s.textAndContext(params.TextDocument.URI)
	if !ok {
		return nil
	}
	cached := s.cachedDiagnostics(params.TextDocument.URI)
	diagCtx := make([]features.DiagnosticContext, 0, len(cached))
	for _, d := range cached {
		diagCtx = append(diagCtx, features.DiagnosticContext{Issue: d.Issue})
	}
	actions := features.CodeActions(fctx, relPath, text, diagCtx)
	out := make([]protocol.CodeAction, 0, len(actions))
	for _, a := range actions {
		out = append(out, s.toProtocolCodeAction(a))
	}
	return out
}

// DocumentLink computes the textDocument/documentLink response.
func (s *Server) DocumentLink(ctx context.Context, params *protocol.DocumentLinkParams) []protocol.DocumentLink {
	fctx, relPath, text, ok := s.textAndContext(params.TextDocument.URI)
	if !ok {
		return nil
	}
	links := features.DocumentLinks(fctx, relPath, text)
	out := make([]protocol.DocumentLink, 0, len(links))
	for _, l := range links {
		out = append(out, s.toProtocolDocumentLink(l))
	}
	return out
}

// WorkspaceSymbol computes the workspace/symbol response.
func (s *Server) WorkspaceSymbol(ctx context.Context, params *protocol.WorkspaceSymbolParams) []protocol.SymbolInformation {
	fctx, ok := s.featureContext()
	if !ok {
		return nil
	}
	symbols := features.WorkspaceSymbols(fctx, params.Query)
	out := make([]protocol.SymbolInformation, 0, len(symbols))
	for _, sym := range symbols {
		out = append(out, s.toProtocolSymbolInformation(sym))
	}
	return out
}

// ExecuteCommand dispatches workspace/executeCommand to the mdbase.*
// handlers in internal/commands.
func (s *Server) ExecuteCommand(ctx context.Context, params *protocol.ExecuteCommandParams) (any, error) {
	logger := logging.Logger(ctx)
	collection, err := s.getCollection()
	if err != nil || collection == nil {
		return nil, nil
	}

	switch params.Command {
	case commands.CreateFile:
		var args commands.CreateFileArgs
		if !decodeArg(params.Arguments, 0, &args) {
			return nil, nil
		}
		result, ok, cerr := commands.CreateFileOp(collection, args)
		if cerr != nil {
			logger.Warn("createFile failed", "err", cerr)
			return nil, cerr
		}
		if !ok {
			return nil, nil
		}
		s.collection.Invalidate()
		return result, nil

	case commands.TypeInfo:
		var args commands.TypeInfoArgs
		if !decodeArg(params.Arguments, 0, &args) {
			return nil, nil
		}
		result, ok := commands.TypeInfoOp(collection, args)
		if !ok {
			return nil, nil
		}
		return result, nil

	case commands.ValidateCollection:
		commands.ValidateCollectionOp(s.pipeline)
		return nil, nil

	case commands.QueryCollection:
		var query string
		if !decodeArg(params.Arguments, 0, &query) {
			logger.Warn("queryCollection: missing query argument")
			return nil, nil
		}
		return commands.QueryCollectionOp(s.index, query), nil

	default:
		return nil, nil
	}
}

// decodeArg unmarshals params.Arguments[i] into v, tolerating whatever
// concrete element type the jsonrpc2 layer decoded Arguments into.
func decodeArg(args []any, i int, v any) bool {
	if i >= len(args) {
		return false
	}
	raw, err := json.Marshal(args[i])
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

func (s *Server) rootPath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.root
}

func readDiskFile(path string) string {
	data, err := readFile(path)
	if err != nil {
		return ""
	}
	return data
}
