// Package linkresolve implements the link-target resolver and collection
// file enumeration described in SPEC_FULL.md 4.3 (C3), ported from
// original_source's collection_utils.rs.
package linkresolve

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/callumalpass/mdbase-lsp/internal/schema"
)

// ScanCollectionFiles recursively walks collection.Root, applying the
// exclusion and extension rules SPEC_FULL.md 4.3 describes, and returns
// collection-relative forward-slash paths.
func ScanCollectionFiles(collection *schema.Collection) []string {
	var out []string
	scanDir(collection, ".", &out)
	return out
}

func scanDir(collection *schema.Collection, relDir string, out *[]string) {
	absDir := filepath.Join(collection.Root, filepath.FromSlash(relDir))
	entries, err := os.ReadDir(absDir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		var rel string
		if relDir == "." {
			rel = entry.Name()
		} else {
			rel = relDir + "/" + entry.Name()
		}

		if entry.IsDir() {
			if isExcludedDir(collection, rel) {
				continue
			}
			if !collection.Settings.IncludeSubfolders && relDir != "." {
				continue
			}
			scanDir(collection, rel, out)
			continue
		}

		if isExcluded(collection, rel) {
			continue
		}
		if !isValidExtension(collection, rel) {
			continue
		}
		*out = append(*out, rel)
	}
}

// IsAdmittedFile reports whether rel (a collection-relative, forward-slash
// path) would be included by ScanCollectionFiles, for callers that observe
// one file event at a time (internal/fswatch) instead of walking the tree.
func IsAdmittedFile(collection *schema.Collection, rel string) bool {
	return !isExcluded(collection, rel) && isValidExtension(collection, rel)
}

func isExcludedDir(collection *schema.Collection, rel string) bool {
	if rel == collection.Settings.TypesFolder || strings.HasPrefix(rel, collection.Settings.TypesFolder+"/") {
		return true
	}
	if collection.Settings.CacheFolder != "" &&
		(rel == collection.Settings.CacheFolder || strings.HasPrefix(rel, collection.Settings.CacheFolder+"/")) {
		return true
	}
	if (rel == ".mdbase" || strings.HasPrefix(rel, ".mdbase/")) && collection.Settings.CacheFolder != ".mdbase" {
		return true
	}
	if _, err := os.Stat(filepath.Join(collection.Root, filepath.FromSlash(rel), "mdbase.yaml")); err == nil {
		return true
	}
	if isInNestedCollection(collection, rel) {
		return true
	}
	for _, pattern := range collection.Settings.Exclude {
		if matchGlobPattern(pattern, rel) {
			return true
		}
	}
	return false
}

func isExcluded(collection *schema.Collection, rel string) bool {
	s := collection.Settings
	if rel == s.TypesFolder || strings.HasPrefix(rel, s.TypesFolder+"/") {
		return true
	}
	if s.CacheFolder != "" && (rel == s.CacheFolder || strings.HasPrefix(rel, s.CacheFolder+"/")) {
		return true
	}
	if (rel == ".mdbase" || strings.HasPrefix(rel, ".mdbase/")) && s.CacheFolder != ".mdbase" {
		return true
	}
	if rel == "mdbase.yaml" {
		return true
	}
	for _, pattern := range s.Exclude {
		if matchGlobPattern(pattern, rel) {
			return true
		}
	}
	if !s.IncludeSubfolders && strings.Contains(rel, "/") {
		return true
	}
	if isInNestedCollection(collection, rel) {
		return true
	}
	return false
}

func isInNestedCollection(collection *schema.Collection, rel string) bool {
	dir := path.Dir(rel)
	for dir != "." && dir != "/" && dir != "" {
		if _, err := os.Stat(filepath.Join(collection.Root, filepath.FromSlash(dir), "mdbase.yaml")); err == nil {
			return true
		}
		dir = path.Dir(dir)
	}
	return false
}

func isValidExtension(collection *schema.Collection, rel string) bool {
	return hasKnownExtension(collection, rel)
}

func hasKnownExtension(collection *schema.Collection, p string) bool {
	ext := strings.ToLower(filepath.Ext(p))
	if ext == ".md" {
		return true
	}
	for _, e := range collection.Settings.Extensions {
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

// matchGlobPattern supports the three exclude-pattern shapes SPEC_FULL.md 4.3
// names: `prefix/**`, `*.ext`, and `a*b` (a single internal wildcard), plus a
// literal prefix/equality fallback.
func matchGlobPattern(pattern, rel string) bool {
	if strings.HasSuffix(pattern, "/**") {
		prefix := strings.TrimSuffix(pattern, "/**")
		return rel == prefix || strings.HasPrefix(rel, prefix+"/")
	}
	if strings.HasPrefix(pattern, "*.") {
		return strings.HasSuffix(rel, pattern[1:])
	}
	if idx := strings.IndexByte(pattern, '*'); idx >= 0 {
		before := pattern[:idx]
		after := pattern[idx+1:]
		base := path.Base(rel)
		return strings.HasPrefix(base, before) && strings.HasSuffix(base, after) && len(base) >= len(before)+len(after)
	}
	return rel == pattern || strings.HasPrefix(rel, pattern)
}
