package features

import (
	"fmt"
	"strings"

	"github.com/callumalpass/mdbase-lsp/internal/fileindex"
)

// WorkspaceSymbols filters the file index by query, per SPEC_FULL.md 4.8:
// `type:X`, `tag:X`, `id:X`, `title:substring`, or a free-text contains
// match across rel_path | display_name | title | types | tags.
func WorkspaceSymbols(ctx Context, query string) []SymbolInformation {
	normalized := strings.ToLower(strings.TrimSpace(query))
	var out []SymbolInformation
	for _, e := range ctx.Index.AllEntries() {
		if !MatchesQuery(e, normalized) {
			continue
		}
		name := e.DisplayName
		if name == "" {
			name = e.RelPath
		}
		detail := e.RelPath
		if len(e.Types) > 0 {
			detail = fmt.Sprintf("%s (%s)", e.RelPath, strings.Join(e.Types, ", "))
		}
		out = append(out, SymbolInformation{Name: name, RelPath: e.RelPath, ContainerName: detail})
	}
	return out
}

// MatchesQuery implements the shared filter language both workspace symbols
// and queryCollection use.
func MatchesQuery(e fileindex.Entry, normalizedQuery string) bool {
	haystack := strings.ToLower(strings.Join([]string{
		e.RelPath, e.DisplayName, e.Title, strings.Join(e.Types, " "), strings.Join(e.Tags, " "),
	}, " "))
	for _, term := range strings.Fields(normalizedQuery) {
		if k, v, ok := strings.Cut(term, ":"); ok {
			value := strings.TrimSpace(v)
			var match bool
			switch strings.TrimSpace(k) {
			case "type":
				match = containsFold(e.Types, value)
			case "tag":
				match = containsFold(e.Tags, value)
			case "id":
				match = strings.EqualFold(e.ID, value)
			case "title":
				match = strings.Contains(strings.ToLower(e.Title), value)
			}
			if !match {
				return false
			}
			continue
		}
		if !strings.Contains(haystack, term) {
			return false
		}
	}
	return true
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(h, needle) {
			return true
		}
	}
	return false
}
