package lspserver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/callumalpass/mdbase-lsp/internal/collcache"
	"github.com/callumalpass/mdbase-lsp/internal/commands"
	"github.com/callumalpass/mdbase-lsp/internal/daemon"
	"github.com/callumalpass/mdbase-lsp/internal/diagnostics"
	"github.com/callumalpass/mdbase-lsp/internal/docstore"
	"github.com/callumalpass/mdbase-lsp/internal/features"
	"github.com/callumalpass/mdbase-lsp/internal/fileindex"
	"github.com/callumalpass/mdbase-lsp/internal/fswatch"
	"github.com/callumalpass/mdbase-lsp/internal/linkresolve"
	"github.com/callumalpass/mdbase-lsp/internal/logging"
	"go.lsp.dev/protocol"
	lspuri "go.lsp.dev/uri"
)

// Initialize resolves the workspace root from the first of WorkspaceFolders,
// RootURI, or RootPath that is set (the fallback chain other_examples' scaf
// lsp-server.go uses) and advertises this server's capabilities.
func (s *Server) Initialize(ctx context.Context, params *protocol.InitializeParams) (*protocol.InitializeResult, error) {
	root := s.resolveRoot(params)
	if root == "" {
		return nil, fmt.Errorf("mdbase-lsp: unable to resolve a workspace root from initialize params")
	}

	s.mu.Lock()
	s.root = root
	s.collection = collcache.New(root)
	s.pipeline = diagnostics.New(s.getCollection, s.store, s, s.recorder, s.cfg.DebounceWindow)
	s.mu.Unlock()

	if idx, err := s.openCachedIndex(root); err != nil {
		logging.Logger(ctx).Warn("index disk cache unavailable, continuing in-memory only", "err", err)
	} else if idx != nil {
		s.mu.Lock()
		s.index = idx
		s.mu.Unlock()
	}

	logging.Logger(ctx).Info("initializing", "root", root)

	result := &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose:         true,
				Change:            protocol.TextDocumentSyncKindIncremental,
				WillSaveWaitUntil: true,
				Save:              &protocol.SaveOptions{},
			},
			CompletionProvider: &protocol.CompletionOptions{
				TriggerCharacters: []string{":", "[", "(", "#"},
			},
			HoverProvider:      true,
			DefinitionProvider: true,
			ReferencesProvider: true,
			RenameProvider: &protocol.RenameOptions{
				PrepareProvider: true,
			},
			CodeActionProvider: &protocol.CodeActionOptions{
				CodeActionKinds: []protocol.CodeActionKind{protocol.QuickFix},
			},
			DocumentLinkProvider: &protocol.DocumentLinkOptions{
				ResolveProvider: false,
			},
			WorkspaceSymbolProvider: true,
			ExecuteCommandProvider: &protocol.ExecuteCommandOptions{
				Commands: commands.Names,
			},
		},
		ServerInfo: &protocol.ServerInfo{
			Name: "mdbase-lsp",
		},
	}
	return result, nil
}

// openCachedIndex opens the warm-start sqlite cache described in
// SPEC_FULL.md D.4 under <root>/<cache_folder>/index.db, replacing the
// empty in-memory Index created in New with one seeded from any prior
// session's snapshot. A failure to open the cache (e.g. a read-only
// filesystem) is non-fatal: the server simply runs without the warm-start
// optimization, per 7's "I/O errors ... skip, never abort."
func (s *Server) openCachedIndex(root string) (*fileindex.Index, error) {
	collection, err := s.getCollection()
	if err != nil || collection == nil {
		return nil, err
	}
	cacheDir := collection.Settings.CacheFolder
	if cacheDir == "" {
		cacheDir = ".mdbase"
	}
	dir := filepath.Join(root, cacheDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return fileindex.NewWithCache(filepath.Join(dir, "index.db"))
}

func (s *Server) resolveRoot(params *protocol.InitializeParams) string {
	for _, folder := range params.WorkspaceFolders {
		if folder.URI != "" {
			return uriToPath(protocol.DocumentURI(folder.URI))
		}
	}
	if params.RootURI != "" {
		return uriToPath(params.RootURI)
	}
	if params.RootPath != "" {
		if u, err := lspuri.Parse(params.RootPath); err == nil {
			return u.Filename()
		}
		return params.RootPath
	}
	return ""
}

// Initialized runs once the client has finished processing the initialize
// response: it performs the first full index rebuild on a background
// goroutine (per 5's "rebuild runs off the request-handling thread" rule),
// then starts the periodic-rebuild safety net (D.2) and, if enabled, the
// external filesystem watch (D.3).
func (s *Server) Initialized(ctx context.Context) {
	logger := logging.Logger(ctx)

	s.mu.RLock()
	root := s.root
	coll := s.collection
	idx := s.index
	store := s.store
	rec := s.recorder
	cfg := s.cfg
	s.mu.RUnlock()

	rebuildOnce := func() {
		collection, err := coll.Get()
		if err != nil {
			logger.Warn("rebuild: collection load failed", "err", err)
			return
		}
		idx.Rebuild(collection)
		rec.IncRebuild("full")
		s.pipeline.PublishCollection()
	}
	rebuildOnce()

	sched := daemon.NewScheduler(rebuildOnce, cfg.RebuildInterval)
	if err := sched.Start(ctx); err != nil {
		logger.Warn("scheduler start failed", "err", err)
	}

	var watcher *fswatch.Watcher
	if cfg.WatchFilesystem {
		w, err := fswatch.New(coll, idx, store, func(kind string) { rec.IncRebuild(kind) })
		if err != nil {
			logger.Warn("fswatch start failed", "err", err)
		} else {
			watcher = w
			logger.Info("filesystem watch started", "root", root)
		}
	}

	s.mu.Lock()
	s.scheduler = sched
	s.watcher = watcher
	s.mu.Unlock()
}

// Shutdown stops background workers. The connection itself is closed when
// the client sends exit, per the LSP lifecycle.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	sched := s.scheduler
	watcher := s.watcher
	idx := s.index
	s.scheduler = nil
	s.watcher = nil
	s.mu.Unlock()

	if sched != nil {
		sched.Stop()
	}
	if watcher != nil {
		_ = watcher.Close()
	}
	if idx != nil {
		_ = idx.Close()
	}
	return nil
}

// DidOpen registers the document's initial text, publishes diagnostics
// immediately, bypassing the debounce window (§4.7's "open publishes now"),
// and upserts the file's index entry from the opened text.
func (s *Server) DidOpen(ctx context.Context, params *protocol.DidOpenTextDocumentParams) error {
	path := uriToPath(params.TextDocument.URI)
	ctx = logging.WithURI(ctx, path)

	s.store.Open(path, params.TextDocument.Text)
	s.recorder.SetOpenDocuments(s.store.Count())
	s.pipeline.PublishNow(path, "open")
	if fctx, ok := s.featureContext(); ok {
		if rel := linkresolve.RelPathFromURI(fctx.Collection, path); rel != "" {
			fctx.Index.UpsertFromText(fctx.Collection, rel, params.TextDocument.Text)
		}
	}
	return nil
}

// DidChange applies incremental (or whole-document) edits to the open
// buffer and schedules a debounced diagnostics recompute.
func (s *Server) DidChange(ctx context.Context, params *protocol.DidChangeTextDocumentParams) error {
	path := uriToPath(params.TextDocument.URI)
	ctx = logging.WithURI(ctx, path)

	changes := make([]docstore.Change, 0, len(params.ContentChanges))
	for _, c := range params.ContentChanges {
		if c.Range == (protocol.Range{}) {
			changes = append(changes, docstore.Change{Ranged: false, NewText: c.Text})
			continue
		}
		changes = append(changes, docstore.Change{
			Ranged:    true,
			StartLine: int(c.Range.Start.Line), StartChar: int(c.Range.Start.Character),
			EndLine: int(c.Range.End.Line), EndChar: int(c.Range.End.Character),
			NewText: c.Text,
		})
	}
	s.store.ApplyChanges(path, changes)
	s.pipeline.ScheduleDebounced(ctx, path)
	return nil
}

// DidClose drops the buffer, the generation counter and the file's index
// entry; the next rebuild re-adds the entry from disk. Diagnostics stay
// published until the next rebuild or PublishCollection pass touches the
// file.
func (s *Server) DidClose(ctx context.Context, params *protocol.DidCloseTextDocumentParams) error {
	path := uriToPath(params.TextDocument.URI)
	s.store.Close(path)
	s.pipeline.Forget(path)
	if fctx, ok := s.featureContext(); ok {
		if rel := linkresolve.RelPathFromURI(fctx.Collection, path); rel != "" {
			fctx.Index.RemovePath(rel)
		}
	}
	s.recorder.SetOpenDocuments(s.store.Count())
	return nil
}

// DidSave republishes diagnostics immediately. Per §5's "will-save edits are
// produced against the current rope; if did_save follows, the rope is then
// resynced from disk," it also resyncs the buffer from the file the editor
// just wrote, since will_save_wait_until edits and the editor's own save
// formatting can both have touched bytes the server's in-memory rope never
// saw directly. If the file cannot be read, the text the client sent with
// the save (if any) is used instead. Saving a file under the types folder
// invalidates the cached collection, and the file's index entry is upserted
// from the resynced text.
func (s *Server) DidSave(ctx context.Context, params *protocol.DidSaveTextDocumentParams) error {
	path := uriToPath(params.TextDocument.URI)
	ctx = logging.WithURI(ctx, path)

	if data, err := os.ReadFile(path); err == nil {
		s.store.Replace(path, string(data))
	} else if params.Text != "" {
		s.store.Replace(path, params.Text)
	}
	fctx, ok := s.featureContext()
	if ok && strings.HasPrefix(linkresolve.RelPathFromURI(fctx.Collection, path), fctx.Collection.Settings.TypesFolder+"/") {
		s.collection.Invalidate()
		fctx, ok = s.featureContext()
	}
	s.pipeline.PublishNow(path, "save")
	if text, found := s.store.Text(path); ok && found {
		if rel := linkresolve.RelPathFromURI(fctx.Collection, path); rel != "" {
			fctx.Index.UpsertFromText(fctx.Collection, rel, text)
		}
	}
	return nil
}

// WillSaveWaitUntil stamps now_on_write generated fields into the
// frontmatter before the save is committed to disk, per 4.10.
func (s *Server) WillSaveWaitUntil(ctx context.Context, params *protocol.WillSaveTextDocumentParams) []protocol.TextEdit {
	path := uriToPath(params.TextDocument.URI)
	text, ok := s.store.Text(path)
	if !ok {
		return nil
	}
	fctx, ok := s.featureContext()
	if !ok {
		return nil
	}
	relPath := linkresolve.RelPathFromURI(fctx.Collection, path)
	edits := features.OnWriteEdits(fctx, relPath, text)
	out := make([]protocol.TextEdit, 0, len(edits))
	for _, e := range edits {
		out = append(out, toProtocolTextEdit(e))
	}
	return out
}
