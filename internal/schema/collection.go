package schema

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Collection is the opaque snapshot described by SPEC_FULL.md section C: a
// workspace root, its settings, and its loaded type definitions. It is
// replaced as a whole on invalidation; there is no partial mutation.
type Collection struct {
	Root     string
	Settings Settings
	Types    map[string]TypeDef
}

// Open loads a Collection from root, reading mdbase.yaml (if present) and
// every type-definition file under <root>/<types_folder>/, grounded on
// original_source's collection_utils.rs type-file discovery and on the
// teacher's config.go yaml-unmarshal pattern.
func Open(root string) (*Collection, error) {
	settings := DefaultSettings()

	raw, err := os.ReadFile(filepath.Join(root, "mdbase.yaml"))
	switch {
	case err == nil:
		var doc struct {
			TypesFolder       *string  `yaml:"types_folder"`
			CacheFolder       *string  `yaml:"cache_folder"`
			Extensions        []string `yaml:"extensions"`
			IncludeSubfolders *bool    `yaml:"include_subfolders"`
			Exclude           []string `yaml:"exclude"`
		}
		if uerr := yaml.Unmarshal(raw, &doc); uerr != nil {
			return nil, uerr
		}
		if doc.TypesFolder != nil {
			settings.TypesFolder = *doc.TypesFolder
		}
		if doc.CacheFolder != nil {
			settings.CacheFolder = *doc.CacheFolder
		}
		if doc.Extensions != nil {
			settings.Extensions = doc.Extensions
		}
		if doc.IncludeSubfolders != nil {
			settings.IncludeSubfolders = *doc.IncludeSubfolders
		}
		if doc.Exclude != nil {
			settings.Exclude = doc.Exclude
		}
	case os.IsNotExist(err):
		// A collection without mdbase.yaml is still valid; it just uses defaults.
	default:
		return nil, err
	}

	types, err := loadTypes(filepath.Join(root, settings.TypesFolder))
	if err != nil {
		return nil, err
	}

	return &Collection{Root: root, Settings: settings, Types: types}, nil
}

func loadTypes(typesDir string) (map[string]TypeDef, error) {
	out := map[string]TypeDef{}
	entries, err := os.ReadDir(typesDir)
	if os.IsNotExist(err) {
		return out, nil
	}
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".md" && ext != ".yaml" && ext != ".yml" {
			continue
		}
		stem := strings.TrimSuffix(name, filepath.Ext(name))

		raw, err := os.ReadFile(filepath.Join(typesDir, name))
		if err != nil {
			continue
		}

		var body []byte = raw
		if ext == ".md" {
			parsed := ParseDocument(string(raw))
			if !parsed.HasFrontmatter {
				continue
			}
			fmBytes, merr := yaml.Marshal(parsed.Frontmatter)
			if merr != nil {
				continue
			}
			body = fmBytes
		}

		var doc struct {
			Extends         string              `yaml:"extends"`
			FilenamePattern string              `yaml:"filename_pattern"`
			DisplayName     string              `yaml:"display_name"`
			Fields          map[string]FieldDef `yaml:"fields"`
		}
		if uerr := yaml.Unmarshal(body, &doc); uerr != nil {
			continue
		}

		order := make([]string, 0, len(doc.Fields))
		for field := range doc.Fields {
			order = append(order, field)
		}
		sort.Strings(order)

		out[stem] = TypeDef{
			Name:            stem,
			Extends:         doc.Extends,
			FilenamePattern: doc.FilenamePattern,
			DisplayNameKey:  doc.DisplayName,
			Fields:          doc.Fields,
			FieldOrder:      order,
		}
	}
	return out, nil
}

// ResolveChain returns typeName followed by its extends ancestors, stopping
// at the first cycle or missing parent.
func (c *Collection) ResolveChain(typeName string) []TypeDef {
	var chain []TypeDef
	seen := map[string]bool{}
	cur := typeName
	for cur != "" && !seen[cur] {
		seen[cur] = true
		def, ok := c.Types[cur]
		if !ok {
			break
		}
		chain = append(chain, def)
		cur = def.Extends
	}
	return chain
}

// FieldInChain returns the first field definition named field found by
// walking typeName's extends chain.
func (c *Collection) FieldInChain(typeName, field string) (FieldDef, bool) {
	for _, def := range c.ResolveChain(typeName) {
		if f, ok := def.Fields[field]; ok {
			return f, true
		}
	}
	return FieldDef{}, false
}

// DisplayNameField returns the field name whose value should be used as the
// human display string for typeName, walking the extends chain.
func (c *Collection) DisplayNameField(typeName string) string {
	for _, def := range c.ResolveChain(typeName) {
		if def.DisplayNameKey != "" {
			return def.DisplayNameKey
		}
	}
	return ""
}
