// Package schema stands in for the external schema library that SPEC_FULL.md
// treats as an out-of-scope collaborator (section C): it owns the YAML
// frontmatter/type-schema data model, validation, type matching, and link
// resolution metadata that the rest of the server only consumes through the
// operations this package exposes. It is grounded on the teacher repository's
// internal/frontmatter and internal/markdown packages for parsing mechanics,
// and on original_source's collection_utils.rs/commands.rs for the schema
// semantics (type matching, validation, generated fields, creation).
package schema

// FieldDef describes one field of a TypeDef.
type FieldDef struct {
	Type        string    `yaml:"type"`
	Required    bool      `yaml:"required"`
	Default     any       `yaml:"default"`
	Values      []string  `yaml:"values"`
	Description string    `yaml:"description"`
	Deprecated  string    `yaml:"deprecated"`
	Generated   string    `yaml:"generated"`
	Target      string    `yaml:"target"`
	Items       *FieldDef `yaml:"items"`
}

// IsLink reports whether def (or, for a list, its item definition) is a link field.
func (def FieldDef) IsLink() bool {
	if def.Type == "link" {
		return true
	}
	if def.Type == "list" && def.Items != nil {
		return def.Items.Type == "link"
	}
	return false
}

// LinkTargetType returns the referenced type name for a link field, if any.
func (def FieldDef) LinkTargetType() string {
	if def.Type == "link" {
		return def.Target
	}
	if def.Type == "list" && def.Items != nil {
		return def.Items.Target
	}
	return ""
}

// TypeDef is an ordered mapping of field name to field definition, plus
// single-inheritance metadata.
type TypeDef struct {
	Name            string
	Extends         string              `yaml:"extends"`
	FilenamePattern string              `yaml:"filename_pattern"`
	DisplayNameKey  string              `yaml:"display_name"`
	Fields          map[string]FieldDef `yaml:"fields"`
	FieldOrder      []string            `yaml:"-"`
}

// Settings is the subset of mdbase.yaml consumed by the server.
type Settings struct {
	TypesFolder       string   `yaml:"types_folder"`
	CacheFolder       string   `yaml:"cache_folder"`
	Extensions        []string `yaml:"extensions"`
	IncludeSubfolders bool     `yaml:"include_subfolders"`
	Exclude           []string `yaml:"exclude"`
}

// DefaultSettings mirrors the defaults original_source applies when
// mdbase.yaml omits a field.
func DefaultSettings() Settings {
	return Settings{
		TypesFolder:       "_types",
		CacheFolder:       ".mdbase",
		Extensions:        nil,
		IncludeSubfolders: true,
		Exclude:           nil,
	}
}

// Issue is one validation finding.
type Issue struct {
	Code     string
	Message  string
	Severity string // "error" | "warning" | "information"
	Field    string
	Path     string
}

// ValidateRequest mirrors collection.validate_op's input for a single
// document (Path+Frontmatter). ValidateOp does not read WholeCollection; an
// empty request yields no issues, and whole-collection validation is done by
// the diagnostics pipeline calling ValidateOp once per file.
type ValidateRequest struct {
	Path        string
	Frontmatter map[string]any
	WholeCollection bool
}

// ValidateResult mirrors collection.validate_op's output.
type ValidateResult struct {
	Issues []Issue
}

// ResolveLinkRequest mirrors collection.resolve_link's input.
type ResolveLinkRequest struct {
	Path  string
	Field string
}

// ResolveLinkResult mirrors collection.resolve_link's output.
type ResolveLinkResult struct {
	ResolvedPath string
}

// CreateInput mirrors collection.create's input.
type CreateInput struct {
	Type        string
	Path        string
	Frontmatter map[string]any
	Body        string
}

// CreateResult mirrors collection.create's output.
type CreateResult struct {
	Path string
}

// ParsedDocument mirrors the external document parser's output.
type ParsedDocument struct {
	Frontmatter    any
	Body           string
	HasFrontmatter bool
	ParseSentinel  bool // true when Frontmatter is the library's parse-failure sentinel
}
