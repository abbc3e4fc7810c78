package schema

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"gopkg.in/yaml.v3"
)

// GeneratedValue synthesizes a value for a field whose Generated strategy is
// ulid, uuid, now, or derived (now_on_write is only ever applied by the
// will-save-wait-until edit, never at creation time). Grounded on
// original_source's reference to chrono::Utc::now for the now/now_on_write
// strategies (server.rs) and on SPEC_FULL.md D.5's pinned semantics.
func GeneratedValue(def FieldDef, frontmatter map[string]any, now time.Time) (any, bool) {
	switch def.Generated {
	case "ulid":
		id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
		if err != nil {
			return nil, false
		}
		return id.String(), true
	case "uuid":
		return uuid.NewString(), true
	case "now":
		return now.UTC().Format("2006-01-02T15:04:05Z"), true
	case "derived":
		template, ok := def.Default.(string)
		if !ok {
			return nil, false
		}
		return substituteTemplate(template, frontmatter), true
	default:
		return nil, false
	}
}

func substituteTemplate(template string, frontmatter map[string]any) string {
	var out strings.Builder
	for i := 0; i < len(template); i++ {
		if template[i] == '{' {
			if j := strings.IndexByte(template[i:], '}'); j > 0 {
				field := template[i+1 : i+j]
				if v, ok := frontmatter[field]; ok {
					fmt.Fprintf(&out, "%v", v)
				}
				i += j
				continue
			}
		}
		out.WriteByte(template[i])
	}
	return out.String()
}

// PlaceholderFor returns the typed placeholder createFile inserts for a
// required field with no default, no generated strategy, and no value
// supplied by the caller.
func PlaceholderFor(fieldType string) any {
	switch fieldType {
	case "list":
		return []any{}
	case "object":
		return map[string]any{}
	case "boolean":
		return false
	case "integer", "number":
		return 0
	default:
		return ""
	}
}

// PromptFields returns the fields createFile expects the caller to supply:
// required, with no default and no generated strategy anywhere in the
// extends chain. Grounded on SPEC_FULL.md 4.9's typeInfo description.
func (c *Collection) PromptFields(typeName string) []struct {
	Name string
	Def  FieldDef
} {
	var out []struct {
		Name string
		Def  FieldDef
	}
	seen := map[string]bool{}
	for _, def := range c.ResolveChain(typeName) {
		for _, name := range sortedKeys(def.Fields) {
			if seen[name] {
				continue
			}
			seen[name] = true
			field := def.Fields[name]
			if field.Required && field.Default == nil && field.Generated == "" {
				out = append(out, struct {
					Name string
					Def  FieldDef
				}{name, field})
			}
		}
	}
	return out
}

func sortedKeys(m map[string]FieldDef) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// Create writes a new file under the collection root with frontmatter built
// from input, filling in generated and placeholder values for fields missing
// from input.Frontmatter, mirroring collection.create's external contract.
func (c *Collection) Create(input CreateInput) (CreateResult, error) {
	fm := map[string]any{}
	for k, v := range input.Frontmatter {
		fm[k] = v
	}

	now := time.Now()
	for _, def := range c.ResolveChain(input.Type) {
		for name, field := range def.Fields {
			if _, present := fm[name]; present {
				continue
			}
			if field.Generated != "" && field.Generated != "now_on_write" {
				if v, ok := GeneratedValue(field, fm, now); ok {
					fm[name] = v
					continue
				}
			}
			if field.Default != nil {
				fm[name] = field.Default
				continue
			}
			// A field with a generated strategy that produced no value here
			// (now_on_write, which WillSaveWaitUntil stamps on the next save,
			// or derived without a string default) is not given a placeholder.
			if field.Required && field.Generated == "" {
				fm[name] = PlaceholderFor(field.Type)
			}
		}
	}

	relPath := input.Path
	if relPath == "" {
		derived, ok := c.deriveFilename(input.Type, fm)
		if !ok {
			return CreateResult{}, fmt.Errorf("cannot derive filename for type %q: missing referenced field", input.Type)
		}
		relPath = derived
	}

	fmBytes, err := yaml.Marshal(fm)
	if err != nil {
		return CreateResult{}, err
	}

	var content strings.Builder
	content.WriteString("---\n")
	content.Write(fmBytes)
	content.WriteString("---\n")
	content.WriteString(input.Body)

	fullPath := filepath.Join(c.Root, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return CreateResult{}, err
	}
	if err := os.WriteFile(fullPath, []byte(content.String()), 0o644); err != nil {
		return CreateResult{}, err
	}

	return CreateResult{Path: relPath}, nil
}

func (c *Collection) deriveFilename(typeName string, frontmatter map[string]any) (string, bool) {
	for _, def := range c.ResolveChain(typeName) {
		if def.FilenamePattern == "" {
			continue
		}
		name, ok := expandFilenamePattern(def.FilenamePattern, frontmatter)
		if ok {
			return name, true
		}
		return "", false
	}
	return "", false
}

func expandFilenamePattern(pattern string, frontmatter map[string]any) (string, bool) {
	var out strings.Builder
	for i := 0; i < len(pattern); i++ {
		if pattern[i] == '{' {
			if j := strings.IndexByte(pattern[i:], '}'); j > 0 {
				field := pattern[i+1 : i+j]
				v, ok := frontmatter[field]
				if !ok {
					return "", false
				}
				fmt.Fprintf(&out, "%v", v)
				i += j
				continue
			}
		}
		out.WriteByte(pattern[i])
	}
	return out.String(), true
}
