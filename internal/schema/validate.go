package schema

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// DetermineTypesForPath returns the type names that match a document, given
// its parsed frontmatter and (optionally) its collection-relative path.
// Matching prefers an explicit `type`/`types` field naming a known type
// (case-insensitive); failing that, it falls back to each type's
// filename_pattern tested against relPath. Grounded on original_source's
// commands.rs usage of collection.determine_types_for_path (the function
// itself lives outside the spec's scope; this is the concrete stand-in).
func (c *Collection) DetermineTypesForPath(frontmatter map[string]any, relPath string) []string {
	if names := c.explicitTypeNames(frontmatter); len(names) > 0 {
		return names
	}
	if relPath == "" {
		return nil
	}
	var matched []string
	for name, def := range c.Types {
		if def.FilenamePattern == "" {
			continue
		}
		if matchFilenamePattern(def.FilenamePattern, relPath) {
			matched = append(matched, name)
		}
	}
	sort.Strings(matched)
	return matched
}

func (c *Collection) explicitTypeNames(frontmatter map[string]any) []string {
	raw, ok := frontmatter["type"]
	if !ok {
		raw, ok = frontmatter["types"]
	}
	if !ok {
		return nil
	}

	var candidates []string
	switch v := raw.(type) {
	case string:
		candidates = []string{v}
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				candidates = append(candidates, s)
			}
		}
	}

	var resolved []string
	for _, cand := range candidates {
		for name := range c.Types {
			if strings.EqualFold(name, cand) {
				resolved = append(resolved, name)
				break
			}
		}
	}
	return resolved
}

// matchFilenamePattern treats `{field}` placeholders as single-path-segment
// wildcards and otherwise requires an exact match, case-sensitively.
func matchFilenamePattern(pattern, relPath string) bool {
	base := filepath.Base(relPath)
	var out strings.Builder
	for i := 0; i < len(pattern); i++ {
		if pattern[i] == '{' {
			if j := strings.IndexByte(pattern[i:], '}'); j >= 0 {
				out.WriteString(`[^/]*`)
				i += j
				continue
			}
		}
		out.WriteByte(pattern[i])
	}
	matched, err := filepath.Match(out.String(), base)
	return err == nil && matched
}

// ValidateOp validates a single document's frontmatter against its matched
// types, mirroring the `issues` shape the SPEC_FULL.md external interface
// describes for collection.validate_op. Whole-collection validation (the
// `validate_op({})` form) is handled by the diagnostics pipeline iterating
// scanned files itself and calling this per file, rather than by this method,
// so the schema package never needs file-enumeration knowledge.
func (c *Collection) ValidateOp(req ValidateRequest) ValidateResult {
	typeNames := c.DetermineTypesForPath(req.Frontmatter, req.Path)
	if len(typeNames) == 0 {
		return ValidateResult{}
	}

	var issues []Issue
	seen := map[string]bool{}
	for _, typeName := range typeNames {
		for _, def := range c.ResolveChain(typeName) {
			for fieldName, fieldDef := range def.Fields {
				key := typeName + "|" + fieldName
				if seen[key] {
					continue
				}
				seen[key] = true
				issues = append(issues, validateField(req.Frontmatter, fieldName, fieldDef)...)
			}
		}
	}
	sort.Slice(issues, func(i, j int) bool { return issues[i].Field < issues[j].Field })
	return ValidateResult{Issues: issues}
}

func validateField(frontmatter map[string]any, name string, def FieldDef) []Issue {
	value, present := frontmatter[name]
	if !present || value == nil {
		if def.Required && def.Default == nil && def.Generated == "" {
			return []Issue{{
				Code:     "required_field_missing",
				Message:  fmt.Sprintf("Required field '%s' is missing", name),
				Severity: "error",
				Field:    name,
			}}
		}
		return nil
	}

	if len(def.Values) > 0 {
		str, ok := value.(string)
		if !ok || !containsFold(def.Values, str) {
			return []Issue{{
				Code:     "invalid_enum_value",
				Message:  fmt.Sprintf("Field '%s' must be one of %s", name, strings.Join(def.Values, ", ")),
				Severity: "error",
				Field:    name,
			}}
		}
	}

	if def.Type == "boolean" {
		if _, ok := value.(bool); !ok {
			return []Issue{{
				Code:     "invalid_field_type",
				Message:  fmt.Sprintf("Field '%s' must be a boolean", name),
				Severity: "error",
				Field:    name,
			}}
		}
	}

	if def.Deprecated != "" {
		return []Issue{{
			Code:     "deprecated_field",
			Message:  fmt.Sprintf("Field '%s' is deprecated: %s", name, def.Deprecated),
			Severity: "warning",
			Field:    name,
		}}
	}

	return nil
}

func containsFold(values []string, s string) bool {
	for _, v := range values {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
