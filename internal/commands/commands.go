// Package commands implements the mdbase.* execute-command handlers
// described in SPEC_FULL.md 4.9 (C9): createFile, typeInfo,
// validateCollection, and queryCollection. Grounded on original_source's
// commands.rs, adapted to the schema/fileindex/diagnostics packages this
// server builds instead of the external crate the original called directly.
package commands

import (
	"strings"

	"github.com/callumalpass/mdbase-lsp/internal/diagnostics"
	"github.com/callumalpass/mdbase-lsp/internal/features"
	"github.com/callumalpass/mdbase-lsp/internal/ferrors"
	"github.com/callumalpass/mdbase-lsp/internal/fileindex"
	"github.com/callumalpass/mdbase-lsp/internal/schema"
)

// Names are the command identifiers advertised in the server's
// ExecuteCommandProvider capability.
const (
	CreateFile         = "mdbase.createFile"
	TypeInfo           = "mdbase.typeInfo"
	ValidateCollection = "mdbase.validateCollection"
	QueryCollection    = "mdbase.queryCollection"
)

// Names lists every command this package handles, in advertisement order.
var Names = []string{CreateFile, TypeInfo, ValidateCollection, QueryCollection}

// CreateFileArgs is the argument shape for mdbase.createFile.
type CreateFileArgs struct {
	Type        string         `json:"type"`
	Path        string         `json:"path,omitempty"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
}

// CreateFileResult is returned to the client, which is expected to open the
// resulting path in response.
type CreateFileResult struct {
	Path string `json:"path"`
}

// CreateFileOp handles mdbase.createFile: fills generated/placeholder values,
// derives a path from the type's filename_pattern when none is given, and
// writes the file via collection.Create. Bad input (unknown type) returns
// ok=false with no error, per §7's "commands return None on bad input" rule.
// A failure past that point (e.g. the write to disk itself failing) is a
// genuine user-visible failure and is returned as a *ferrors.Classified so
// the dispatch layer can render it as a JSON-RPC error response instead of
// silently doing nothing, per SPEC_FULL.md A.2.
func CreateFileOp(collection *schema.Collection, args CreateFileArgs) (CreateFileResult, bool, error) {
	if collection == nil {
		return CreateFileResult{}, false, nil
	}
	if _, ok := collection.Types[args.Type]; !ok {
		return CreateFileResult{}, false, nil
	}
	result, err := collection.Create(schema.CreateInput{
		Type:        args.Type,
		Path:        args.Path,
		Frontmatter: args.Frontmatter,
	})
	if err != nil {
		classified := ferrors.New(ferrors.CodeIO, "failed to create file").
			WithComponent("commands.createFile").
			WithCause(err).
			WithContext(ferrors.Fields{"type": args.Type}).
			Build()
		return CreateFileResult{}, true, classified
	}
	return CreateFileResult{Path: result.Path}, true, nil
}

// PromptField is one field the caller is expected to supply to createFile.
type PromptField struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Values      []string `json:"values,omitempty"`
}

// TypeInfoArgs is the argument shape for mdbase.typeInfo.
type TypeInfoArgs struct {
	Type string `json:"type"`
}

// TypeInfoResult is the prompt-fields list for the named type.
type TypeInfoResult struct {
	Fields []PromptField `json:"fields"`
}

// TypeInfoOp handles mdbase.typeInfo: required fields with no default and no
// generated strategy anywhere in the extends chain.
func TypeInfoOp(collection *schema.Collection, args TypeInfoArgs) (TypeInfoResult, bool) {
	if collection == nil {
		return TypeInfoResult{}, false
	}
	if _, ok := collection.Types[args.Type]; !ok {
		return TypeInfoResult{}, false
	}
	prompts := collection.PromptFields(args.Type)
	fields := make([]PromptField, 0, len(prompts))
	for _, p := range prompts {
		fields = append(fields, PromptField{
			Name: p.Name, Type: p.Def.Type, Description: p.Def.Description, Values: p.Def.Values,
		})
	}
	return TypeInfoResult{Fields: fields}, true
}

// ValidateCollectionOp handles mdbase.validateCollection by delegating to
// the diagnostics pipeline's whole-collection publish (§4.7); it always
// succeeds (best-effort, no result payload expected by the client).
func ValidateCollectionOp(pipeline *diagnostics.Pipeline) {
	if pipeline == nil {
		return
	}
	pipeline.PublishCollection()
}

// QueryMatch is one row of a queryCollection response.
type QueryMatch struct {
	Path  string   `json:"path"`
	Title string   `json:"title,omitempty"`
	ID    string   `json:"id,omitempty"`
	Types []string `json:"types"`
	Tags  []string `json:"tags"`
}

// QueryCollectionResult is the shape SPEC_FULL.md 4.9 names for
// mdbase.queryCollection.
type QueryCollectionResult struct {
	Query   string       `json:"query"`
	Count   int          `json:"count"`
	Matches []QueryMatch `json:"matches"`
}

// QueryCollectionOp reshapes the workspace-symbol filter (§4.8) into the
// structured query response commands expect.
func QueryCollectionOp(index *fileindex.Index, query string) QueryCollectionResult {
	normalized := strings.ToLower(strings.TrimSpace(query))
	var matches []QueryMatch
	for _, e := range index.AllEntries() {
		if !features.MatchesQuery(e, normalized) {
			continue
		}
		matches = append(matches, QueryMatch{
			Path: e.RelPath, Title: e.Title, ID: e.ID, Types: e.Types, Tags: e.Tags,
		})
	}
	return QueryCollectionResult{Query: query, Count: len(matches), Matches: matches}
}
