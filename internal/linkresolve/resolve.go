package linkresolve

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/callumalpass/mdbase-lsp/internal/schema"
	"golang.org/x/text/cases"
)

// foldCaser performs the Unicode-aware case folding used for
// case-insensitive stem matching (SPEC_FULL.md §4.3's third resolution
// rule), in place of a hand-rolled strings.ToLower comparison that would
// mishandle non-ASCII stems (e.g. German "Straße"/"STRASSE").
var foldCaser = cases.Fold()

// equalFold reports whether a and b are equal under Unicode case folding.
func equalFold(a, b string) bool {
	return foldCaser.String(a) == foldCaser.String(b)
}

// ResolveLinkTarget maps link text to a collection-relative path, following
// the exact/extension-inference/stem-match rules of SPEC_FULL.md 4.3. It
// returns "" when no file matches.
func ResolveLinkTarget(collection *schema.Collection, target string, sourceRel string) string {
	target = stripWikilinkWrapping(target)
	target, _, _ = splitAnchorAndAlias(target)
	target = strings.TrimSpace(target)
	if target == "" {
		return ""
	}

	known := ScanCollectionFiles(collection)
	knownSet := make(map[string]bool, len(known))
	for _, p := range known {
		knownSet[p] = true
	}

	candidate := normalizeCandidate(target, sourceRel)

	if knownSet[candidate] {
		return candidate
	}

	if !hasKnownExtension(collection, candidate) {
		tryExts := append([]string{"md"}, collection.Settings.Extensions...)
		for _, ext := range tryExts {
			ext = strings.TrimPrefix(ext, ".")
			withExt := candidate + "." + ext
			if knownSet[withExt] {
				return withExt
			}
		}
	}

	if !strings.Contains(candidate, "/") {
		stem := stemOf(candidate)
		var caseInsensitive string
		for _, p := range known {
			if stemOf(p) == stem {
				return p
			}
		}
		for _, p := range known {
			if equalFold(stemOf(p), stem) {
				if caseInsensitive == "" {
					caseInsensitive = p
				}
			}
		}
		if caseInsensitive != "" {
			return caseInsensitive
		}
	}

	return ""
}

func normalizeCandidate(target, sourceRel string) string {
	switch {
	case strings.HasPrefix(target, "/"):
		return strings.TrimPrefix(target, "/")
	case strings.HasPrefix(target, "./") || strings.HasPrefix(target, "../"):
		dir := path.Dir(sourceRel)
		return normalizeSegments(path.Join(dir, target))
	default:
		return target
	}
}

func normalizeSegments(p string) string {
	return path.Clean(p)
}

func stemOf(p string) string {
	base := path.Base(p)
	return strings.TrimSuffix(base, path.Ext(base))
}

func stripWikilinkWrapping(target string) string {
	t := strings.TrimSpace(target)
	if strings.HasPrefix(t, "[[") && strings.HasSuffix(t, "]]") {
		return t[2 : len(t)-2]
	}
	return t
}

func splitAnchorAndAlias(s string) (target, anchor, alias string) {
	target = s
	if idx := strings.IndexByte(target, '|'); idx >= 0 {
		alias = target[idx+1:]
		target = target[:idx]
	}
	if idx := strings.IndexByte(target, '#'); idx >= 0 {
		anchor = target[idx+1:]
		target = target[:idx]
	}
	return target, anchor, alias
}

// ParseLinkValue converts a raw frontmatter value into a plain target
// string, recognizing wikilink/markdown wrapping; external URLs resolve to
// "". Thin re-export over schema.ParseLinkValue so callers needn't import
// both packages for one concern.
func ParseLinkValue(value string) string {
	return schema.ParseLinkValue(value)
}

// RelPathFromURI converts an absolute filesystem path into a
// collection-relative forward-slash path, or "" if fsPath does not live under
// collection.Root.
func RelPathFromURI(collection *schema.Collection, fsPath string) string {
	rel, err := filepath.Rel(collection.Root, fsPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return ""
	}
	return filepath.ToSlash(rel)
}

// URIFromRelPath joins a collection-relative path back onto the collection
// root, returning an absolute filesystem path.
func URIFromRelPath(collection *schema.Collection, relPath string) string {
	return filepath.Join(collection.Root, filepath.FromSlash(relPath))
}

// FindTypeDefinitionPath locates the type-definition file for typeName under
// <root>/<types_folder>/, matching the stem case-insensitively.
func FindTypeDefinitionPath(collection *schema.Collection, typeName string) string {
	typesDir := filepath.Join(collection.Root, collection.Settings.TypesFolder)
	files := collectTypeFiles(typesDir)
	for _, f := range files {
		if equalFold(stemOf(f), typeName) {
			return f
		}
	}
	return ""
}

func collectTypeFiles(dir string) []string {
	var out []string
	entries, err := os.ReadDir(dir)
	if err != nil {
		return out
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(path.Ext(e.Name()))
		if ext == ".md" || ext == ".yaml" || ext == ".yml" {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out
}
