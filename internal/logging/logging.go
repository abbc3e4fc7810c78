// Package logging carries per-request structured logging context through a
// context.Context, mirroring the pattern used by the teacher repository's
// internal/observability package (request-scoped fields attached to a
// context and pulled back out by a handler before emitting a log line).
package logging

import (
	"context"
	"log/slog"
)

// RequestContext holds fields that identify the LSP request currently being
// serviced, so log lines emitted deep inside a provider can be correlated
// with the triggering method and document without threading parameters
// through every call.
type RequestContext struct {
	Method     string
	URI        string
	Generation uint64
}

type contextKeyType string

const contextKey contextKeyType = "mdbase-lsp-request-context"

// WithMethod records the LSP method name handling this request.
func WithMethod(ctx context.Context, method string) context.Context {
	rc := extract(ctx)
	rc.Method = method
	return context.WithValue(ctx, contextKey, rc)
}

// WithURI records the document URI this request concerns.
func WithURI(ctx context.Context, uri string) context.Context {
	rc := extract(ctx)
	rc.URI = uri
	return context.WithValue(ctx, contextKey, rc)
}

// WithGeneration records the diagnostics debounce generation in effect when
// this request was issued.
func WithGeneration(ctx context.Context, generation uint64) context.Context {
	rc := extract(ctx)
	rc.Generation = generation
	return context.WithValue(ctx, contextKey, rc)
}

func extract(ctx context.Context) RequestContext {
	if rc, ok := ctx.Value(contextKey).(RequestContext); ok {
		return rc
	}
	return RequestContext{}
}

// From returns the logging args (suitable for slog's variadic key/value
// pairs) for the request context carried on ctx.
func From(ctx context.Context) []any {
	rc := extract(ctx)
	var args []any
	if rc.Method != "" {
		args = append(args, slog.String("method", rc.Method))
	}
	if rc.URI != "" {
		args = append(args, slog.String("uri", rc.URI))
	}
	if rc.Generation != 0 {
		args = append(args, slog.Uint64("generation", rc.Generation))
	}
	return args
}

// Logger returns the default slog.Logger with the request context from ctx
// bound in as structured fields.
func Logger(ctx context.Context) *slog.Logger {
	return slog.Default().With(From(ctx)...)
}
