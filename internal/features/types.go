// Package features implements the request providers described in
// SPEC_FULL.md 4.8 (C8): completion, hover, goto, references, rename, code
// actions, document links, and workspace symbols. Each provider returns
// transport-neutral structs; internal/lspserver translates them to
// go.lsp.dev/protocol types. Grounded on original_source's
// completions.rs/hover.rs/goto.rs/references.rs/code_actions.rs/
// document_links.rs/symbols.rs, fully implementing what those files left as
// TODO stubs per SPEC_FULL.md's expanded semantics.
package features

import (
	"github.com/callumalpass/mdbase-lsp/internal/docstore"
	"github.com/callumalpass/mdbase-lsp/internal/fileindex"
	"github.com/callumalpass/mdbase-lsp/internal/schema"
	"github.com/callumalpass/mdbase-lsp/internal/textutil"
)

// Context bundles the shared state providers read from.
type Context struct {
	Collection *schema.Collection
	Store      *docstore.Store
	Index      *fileindex.Index
}

// CompletionItemKind mirrors the small subset of LSP completion item kinds
// the providers emit.
type CompletionItemKind int

const (
	KindField CompletionItemKind = iota
	KindEnumMember
	KindFile
	KindKeyword
)

// CompletionItem is a transport-neutral completion entry.
type CompletionItem struct {
	Label      string
	InsertText string
	Detail     string
	Kind       CompletionItemKind
	// TextEditStart/TextEditEnd, when non-nil, replace that span instead of
	// inserting at the cursor (used for link-target completions).
	TextEditStart *textutil.Position
	TextEditEnd   *textutil.Position
}

// Range is a transport-neutral LSP range.
type Range struct {
	Start textutil.Position
	End   textutil.Position
}

// Hover is a transport-neutral hover result.
type Hover struct {
	Contents string
	Range    *Range
}

// Location is a transport-neutral LSP location.
type Location struct {
	RelPath string
	Range   Range
}

// TextEdit is a transport-neutral LSP text edit.
type TextEdit struct {
	Range   Range
	NewText string
}

// WorkspaceEdit maps a rel_path to the edits that should be applied to it.
type WorkspaceEdit struct {
	Changes map[string][]TextEdit
}

// DocumentLink is a transport-neutral LSP document link.
type DocumentLink struct {
	Range    Range
	RelPath  string
	Tooltip  string
}

// CodeAction is a transport-neutral LSP quickfix code action.
type CodeAction struct {
	Title       string
	IsPreferred bool
	Edit        WorkspaceEdit
}

// SymbolInformation is a transport-neutral LSP workspace symbol.
type SymbolInformation struct {
	Name          string
	RelPath       string
	ContainerName string
}
