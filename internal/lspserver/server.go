package lspserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/callumalpass/mdbase-lsp/internal/collcache"
	"github.com/callumalpass/mdbase-lsp/internal/config"
	"github.com/callumalpass/mdbase-lsp/internal/daemon"
	"github.com/callumalpass/mdbase-lsp/internal/diagnostics"
	"github.com/callumalpass/mdbase-lsp/internal/docstore"
	"github.com/callumalpass/mdbase-lsp/internal/features"
	"github.com/callumalpass/mdbase-lsp/internal/fileindex"
	"github.com/callumalpass/mdbase-lsp/internal/fswatch"
	"github.com/callumalpass/mdbase-lsp/internal/logging"
	"github.com/callumalpass/mdbase-lsp/internal/metrics"
	"github.com/callumalpass/mdbase-lsp/internal/schema"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
)

// Server owns the shared runtime state described in SPEC_FULL.md section 5:
// the document store, the collection cache, the file index, and the
// diagnostics pipeline's generation counters. Its methods are the per-method
// handlers the jsonrpc2 dispatch loop in handler() routes to.
type Server struct {
	cfg      *config.Config
	recorder metrics.Recorder
	logger   *slog.Logger

	conn jsonrpc2.Conn

	mu   sync.RWMutex
	root string

	collection *collcache.Cache
	store      *docstore.Store
	index      *fileindex.Index
	pipeline   *diagnostics.Pipeline
	scheduler  *daemon.Scheduler
	watcher    *fswatch.Watcher

	diagMu sync.Mutex
	diags  map[protocol.DocumentURI][]diagnostics.Diagnostic
}

// New constructs a Server. The collection, document store, and file index
// are not bound to a workspace root until Initialize runs.
func New(cfg *config.Config, recorder metrics.Recorder) *Server {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Server{
		cfg:      cfg,
		recorder: recorder,
		logger:   slog.Default(),
		store:    docstore.New(),
		index:    fileindex.New(),
		diags:    map[protocol.DocumentURI][]diagnostics.Diagnostic{},
	}
}

// Run serves the language server protocol over stdio until the connection
// closes, mirroring other_examples' lx-lsp server.go Run loop.
func (s *Server) Run(ctx context.Context) error {
	stream := jsonrpc2.NewStream(struct {
		io.Reader
		io.WriteCloser
	}{os.Stdin, os.Stdout})

	conn := jsonrpc2.NewConn(stream)
	s.conn = conn
	conn.Go(ctx, s.handler())

	<-conn.Done()
	return conn.Err()
}

func (s *Server) featureContext() (features.Context, bool) {
	s.mu.RLock()
	coll := s.collection
	idx := s.index
	store := s.store
	s.mu.RUnlock()
	if coll == nil {
		return features.Context{}, false
	}
	collection, err := coll.Get()
	if err != nil || collection == nil {
		return features.Context{}, false
	}
	return features.Context{Collection: collection, Store: store, Index: idx}, true
}

func (s *Server) getCollection() (*schema.Collection, error) {
	s.mu.RLock()
	cache := s.collection
	s.mu.RUnlock()
	if cache == nil {
		return nil, nil
	}
	return cache.Get()
}

// PublishDiagnostics implements diagnostics.Publisher: it caches the
// computed diagnostics (so codeAction requests can recover their structured
// Issue data, mirroring the diagnosticsCache/fixesCache split the
// mtlog-lsp example keeps) and notifies the client.
func (s *Server) PublishDiagnostics(uri string, diags []diagnostics.Diagnostic) {
	docURI := protocol.DocumentURI(uri)
	if !strings.HasPrefix(uri, "file://") {
		docURI = pathToURI(uri)
	}
	s.diagMu.Lock()
	s.diags[docURI] = diags
	s.diagMu.Unlock()

	if s.conn == nil {
		return
	}
	params := protocol.PublishDiagnosticsParams{
		URI:         docURI,
		Diagnostics: toProtocolDiagnostics(diags),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.conn.Notify(ctx, protocol.MethodTextDocumentPublishDiagnostics, &params); err != nil {
		s.logger.Warn("publishDiagnostics notify failed", "err", err)
	}
}

func (s *Server) cachedDiagnostics(uri protocol.DocumentURI) []diagnostics.Diagnostic {
	s.diagMu.Lock()
	defer s.diagMu.Unlock()
	return s.diags[uri]
}

// handler returns the jsonrpc2.Handler routing each LSP method to its
// per-request implementation, following the switch-on-req.Method() shape
// other_examples' lx-lsp server.go uses.
func (s *Server) handler() jsonrpc2.Handler {
	return func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
		ctx = logging.WithMethod(ctx, req.Method())
		start := time.Now()
		defer func() { s.recorder.ObserveRequestDuration(req.Method(), time.Since(start)) }()

		switch req.Method() {
		case protocol.MethodInitialize:
			var params protocol.InitializeParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, err)
			}
			result, err := s.Initialize(ctx, &params)
			return reply(ctx, result, err)

		case protocol.MethodInitialized:
			go s.Initialized(ctx)
			return reply(ctx, nil, nil)

		case protocol.MethodShutdown:
			return reply(ctx, nil, s.Shutdown(ctx))

		case protocol.MethodExit:
			if s.conn != nil {
				_ = s.conn.Close()
			}
			return nil

		case protocol.MethodTextDocumentDidOpen:
			var params protocol.DidOpenTextDocumentParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, err)
			}
			return reply(ctx, nil, s.DidOpen(ctx, &params))

		case protocol.MethodTextDocumentDidChange:
			var params protocol.DidChangeTextDocumentParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, err)
			}
			return reply(ctx, nil, s.DidChange(ctx, &params))

		case protocol.MethodTextDocumentDidClose:
			var params protocol.DidCloseTextDocumentParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, err)
			}
			return reply(ctx, nil, s.DidClose(ctx, &params))

		case protocol.MethodTextDocumentDidSave:
			var params protocol.DidSaveTextDocumentParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, err)
			}
			return reply(ctx, nil, s.DidSave(ctx, &params))

		case protocol.MethodTextDocumentWillSaveWaitUntil:
			var params protocol.WillSaveTextDocumentParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, err)
			}
			result := s.WillSaveWaitUntil(ctx, &params)
			return reply(ctx, result, nil)

		case protocol.MethodTextDocumentCompletion:
			var params protocol.CompletionParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, err)
			}
			result := s.Completion(ctx, &params)
			return reply(ctx, result, nil)

		case protocol.MethodTextDocumentHover:
			var params protocol.HoverParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, err)
			}
			result := s.Hover(ctx, &params)
			return reply(ctx, result, nil)

		case protocol.MethodTextDocumentDefinition:
			var params protocol.DefinitionParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, err)
			}
			result := s.Definition(ctx, &params)
			return reply(ctx, result, nil)

		case protocol.MethodTextDocumentReferences:
			var params protocol.ReferenceParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, err)
			}
			result := s.References(ctx, &params)
			return reply(ctx, result, nil)

		case protocol.MethodTextDocumentPrepareRename:
			var params protocol.PrepareRenameParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, err)
			}
			result := s.PrepareRename(ctx, &params)
			return reply(ctx, result, nil)

		case protocol.MethodTextDocumentRename:
			var params protocol.RenameParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, err)
			}
			result := s.Rename(ctx, &params)
			return reply(ctx, result, nil)

		case protocol.MethodTextDocumentCodeAction:
			var params protocol.CodeActionParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, err)
			}
			result := s.CodeAction(ctx, &params)
			return reply(ctx, result, nil)

		case protocol.MethodTextDocumentDocumentLink:
			var params protocol.DocumentLinkParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, err)
			}
			result := s.DocumentLink(ctx, &params)
			return reply(ctx, result, nil)

		case protocol.MethodWorkspaceSymbol:
			var params protocol.WorkspaceSymbolParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, err)
			}
			result := s.WorkspaceSymbol(ctx, &params)
			return reply(ctx, result, nil)

		case protocol.MethodWorkspaceExecuteCommand:
			var params protocol.ExecuteCommandParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, err)
			}
			result, err := s.ExecuteCommand(ctx, &params)
			return reply(ctx, result, err)

		default:
			return reply(ctx, nil, jsonrpc2.ErrMethodNotFound)
		}
	}
}

var _ diagnostics.Publisher = (*Server)(nil)
