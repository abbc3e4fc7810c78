package schema

import (
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ResolveLink implements collection.resolve_link({path, field}): read the
// document at path, extract field's raw value, and resolve it to a
// collection-relative path using the same normalization rules as the link
// resolver (SPEC_FULL.md 4.3), but without that package's full file
// enumeration — this operation only ever needs to check whether the
// candidate file exists on disk. No server code calls it: hover and goto
// resolve links through linkresolve.ResolveLinkTarget (see DESIGN.md's Open
// Question decisions).
func (c *Collection) ResolveLink(req ResolveLinkRequest) ResolveLinkResult {
	raw, err := os.ReadFile(filepath.Join(c.Root, req.Path))
	if err != nil {
		return ResolveLinkResult{}
	}
	parsed := ParseDocument(string(raw))
	fm, ok := MappingToJSON(parsed.Frontmatter)
	if !ok {
		return ResolveLinkResult{}
	}
	value, ok := fm[req.Field]
	if !ok {
		return ResolveLinkResult{}
	}
	str, ok := value.(string)
	if !ok {
		return ResolveLinkResult{}
	}

	target := ParseLinkValue(str)
	if target == "" {
		return ResolveLinkResult{}
	}

	sourceDir := path.Dir(req.Path)
	var candidate string
	switch {
	case strings.HasPrefix(target, "/"):
		candidate = strings.TrimPrefix(target, "/")
	case strings.HasPrefix(target, "./") || strings.HasPrefix(target, "../"):
		candidate = path.Clean(path.Join(sourceDir, target))
	default:
		candidate = target
	}

	for _, try := range candidatesWithExtensions(candidate, c.Settings.Extensions) {
		if _, err := os.Stat(filepath.Join(c.Root, filepath.FromSlash(try))); err == nil {
			return ResolveLinkResult{ResolvedPath: try}
		}
	}
	return ResolveLinkResult{}
}

func candidatesWithExtensions(candidate string, extra []string) []string {
	out := []string{candidate}
	if filepath.Ext(candidate) == "" {
		out = append(out, candidate+".md")
		for _, ext := range extra {
			out = append(out, candidate+"."+strings.TrimPrefix(ext, "."))
		}
	}
	return out
}

// ParseLinkValue converts a raw frontmatter string value into a plain link
// target, recognizing wikilink and markdown-link wrapping; bare strings pass
// through unchanged. External URLs resolve to "". Grounded on
// original_source's collection_utils.rs::parse_link_value.
func ParseLinkValue(value string) string {
	v := strings.TrimSpace(value)
	if v == "" {
		return ""
	}

	if strings.HasPrefix(v, "[[") && strings.HasSuffix(v, "]]") {
		inner := v[2 : len(v)-2]
		if idx := strings.IndexByte(inner, '|'); idx >= 0 {
			inner = inner[:idx]
		}
		if idx := strings.IndexByte(inner, '#'); idx >= 0 {
			inner = inner[:idx]
		}
		return strings.TrimSpace(inner)
	}

	if strings.HasPrefix(v, "[") {
		if closeBracket := strings.IndexByte(v, ']'); closeBracket > 0 {
			rest := v[closeBracket+1:]
			if strings.HasPrefix(rest, "(") && strings.HasSuffix(rest, ")") {
				target := rest[1 : len(rest)-1]
				if idx := strings.IndexByte(target, '#'); idx >= 0 {
					target = target[:idx]
				}
				target = strings.TrimSpace(target)
				if isExternalURL(target) {
					return ""
				}
				return target
			}
		}
	}

	if isExternalURL(v) {
		return ""
	}
	return v
}

func isExternalURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
