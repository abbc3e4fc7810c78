// Package diagnostics implements the diagnostics pipeline described in
// SPEC_FULL.md 4.7 (C7): per-document validation, debounced publishing keyed
// by a per-URI generation counter, and collection-wide fan-out. The
// debounce-by-generation-counter shape is grounded on the teacher's
// internal/daemon.BuildDebouncer (quiet-window timer coalescing); the
// validation semantics are grounded on original_source's diagnostics.rs and
// commands.rs's whole-collection validate flow.
package diagnostics

import (
	"context"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/callumalpass/mdbase-lsp/internal/docstore"
	"github.com/callumalpass/mdbase-lsp/internal/linkresolve"
	"github.com/callumalpass/mdbase-lsp/internal/metrics"
	"github.com/callumalpass/mdbase-lsp/internal/schema"
	"github.com/callumalpass/mdbase-lsp/internal/textutil"
	lspuri "go.lsp.dev/uri"
)

// Severity mirrors the three LSP severities the spec distinguishes.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInformation
)

// Diagnostic is one computed finding, with a position already resolved to
// LSP Position values.
type Diagnostic struct {
	Start   textutil.Position
	End     textutil.Position
	Severity Severity
	Code    string
	Message string
	Source  string
	Issue   schema.Issue // attached as structured data for code actions
}

// Publisher is the transport-side sink for diagnostics; the LSP server
// implements it over textDocument/publishDiagnostics.
type Publisher interface {
	PublishDiagnostics(uri string, diagnostics []Diagnostic)
}

// Pipeline owns per-URI generation counters and schedules debounced
// publishes.
type Pipeline struct {
	collection func() (*schema.Collection, error)
	store      *docstore.Store
	publisher  Publisher
	recorder   metrics.Recorder
	window     time.Duration

	mu           sync.Mutex
	generations  map[string]*atomic.Uint64
}

// New constructs a Pipeline. collectionFn resolves the current collection
// handle (typically collcache.Cache.Get); window is the debounce quiet
// period (SPEC_FULL.md default 300ms).
func New(collectionFn func() (*schema.Collection, error), store *docstore.Store, publisher Publisher, recorder metrics.Recorder, window time.Duration) *Pipeline {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Pipeline{
		collection:  collectionFn,
		store:       store,
		publisher:   publisher,
		recorder:    recorder,
		window:      window,
		generations: map[string]*atomic.Uint64{},
	}
}

func (p *Pipeline) generationFor(uri string) *atomic.Uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	g, ok := p.generations[uri]
	if !ok {
		g = &atomic.Uint64{}
		p.generations[uri] = g
	}
	return g
}

// Forget removes a URI's generation counter (did_close).
func (p *Pipeline) Forget(uri string) {
	p.mu.Lock()
	delete(p.generations, uri)
	p.mu.Unlock()
}

// PublishNow computes and publishes diagnostics immediately (did_open,
// did_save), bumping the generation counter so any
// in-flight debounced publish for this URI is discarded.
func (p *Pipeline) PublishNow(uri, trigger string) {
	p.generationFor(uri).Add(1)
	p.publish(uri, trigger)
}

// ScheduleDebounced bumps the generation counter and schedules a delayed
// publish that only fires if the counter hasn't advanced again by the time
// the window elapses (did_change).
func (p *Pipeline) ScheduleDebounced(ctx context.Context, uri string) {
	g := p.generationFor(uri)
	target := g.Add(1)

	go func() {
		t := time.NewTimer(p.window)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		if g.Load() == target {
			p.publish(uri, "debounce")
		}
	}()
}

func (p *Pipeline) publish(uri, trigger string) {
	collection, err := p.collection()
	if err != nil || collection == nil {
		return
	}
	text, ok := p.store.Text(uri)
	if !ok {
		return
	}
	relPath := linkresolve.RelPathFromURI(collection, uriToPath(uri))

	parsed, _ := p.store.Frontmatter(uri)
	diags := computeForParsed(collection, relPath, text, parsed)

	p.recorder.IncDiagnosticsPublish(trigger)
	p.publisher.PublishDiagnostics(uri, diags)
}

func computeForParsed(collection *schema.Collection, relPath, text string, parsed textutil.ParsedFrontmatter) []Diagnostic {
	fallbackLine := 0
	if start, _, ok := textutil.FrontmatterBounds(text); ok {
		fallbackLine = start
	}

	if parsed.ParseError {
		return []Diagnostic{{
			Start: textutil.Position{Line: 0, Character: 0}, End: textutil.Position{Line: 0, Character: 0},
			Severity: SeverityError, Code: "invalid_frontmatter",
			Message: "Failed to parse YAML frontmatter", Source: "mdbase",
		}}
	}
	if parsed.MappingError {
		return []Diagnostic{{
			Start: textutil.Position{Line: 0, Character: 0}, End: textutil.Position{Line: 0, Character: 0},
			Severity: SeverityError, Code: "invalid_frontmatter",
			Message: "Frontmatter must be a YAML mapping", Source: "mdbase",
		}}
	}

	result := collection.ValidateOp(schema.ValidateRequest{Path: relPath, Frontmatter: parsed.JSON})
	diags := make([]Diagnostic, 0, len(result.Issues))
	for _, issue := range result.Issues {
		var start, end textutil.Position
		if issue.Field != "" {
			start, end = textutil.FindFieldRange(text, issue.Field, fallbackLine)
		} else {
			start = textutil.Position{Line: fallbackLine, Character: 0}
			end = start
		}
		diags = append(diags, Diagnostic{
			Start: start, End: end,
			Severity: severityOf(issue.Severity),
			Code:     issue.Code,
			Message:  issue.Message,
			Source:   "mdbase",
			Issue:    issue,
		})
	}
	return diags
}

func severityOf(s string) Severity {
	switch strings.ToLower(s) {
	case "warning":
		return SeverityWarning
	case "information", "info":
		return SeverityInformation
	default:
		return SeverityError
	}
}

// PublishCollection validates every collection file (open buffers first,
// disk otherwise) and publishes per-file diagnostics for each, mirroring
// validate_op({})'s whole-collection grouping.
func (p *Pipeline) PublishCollection() {
	collection, err := p.collection()
	if err != nil || collection == nil {
		return
	}
	for _, rel := range linkresolve.ScanCollectionFiles(collection) {
		fsPath := linkresolve.URIFromRelPath(collection, rel)
		uri := pathToURI(fsPath)

		var text string
		if t, ok := p.store.Text(fsPath); ok {
			text = t
		} else {
			raw, err := os.ReadFile(fsPath)
			if err != nil {
				continue
			}
			text = string(raw)
		}

		parsed := textutil.ParseFrontmatter(text)
		diags := computeForParsed(collection, rel, text, parsed)
		p.recorder.IncDiagnosticsPublish("collection")
		p.publisher.PublishDiagnostics(uri, diags)
	}
}

func uriToPath(uri string) string {
	p, err := lspuri.Parse(uri)
	if err != nil {
		return strings.TrimPrefix(uri, "file://")
	}
	return p.Filename()
}

func pathToURI(p string) string {
	return string(lspuri.File(p))
}
