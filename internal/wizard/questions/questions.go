// Package questions loads the declarative per-claim question schemas and
// compiles them, with shared field groups inlined, into the field trees the
// form renderer consumes and the JSON Schemas the validator checks against.
package questions

import (
	"embed"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"divorce-wizard/internal/models"

	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownSharedKey  = errors.New("UNKNOWN_SHARED_KEY")
	ErrDuplicateField    = errors.New("DUPLICATE_FIELD_NAME")
	ErrUnknownClaim      = errors.New("UNKNOWN_CLAIM")
	ErrInvalidDefinition = errors.New("INVALID_FIELD_DEFINITION")
)

//go:embed schemas/*.yaml
var schemaFS embed.FS

const sharedFile = "shared.yaml"

type FieldType string

const (
	TypeText     FieldType = "text"
	TypeNumber   FieldType = "number"
	TypeDate     FieldType = "date"
	TypeSelect   FieldType = "select"
	TypeRadio    FieldType = "radio"
	TypeCheckbox FieldType = "checkbox"
	TypeTextarea FieldType = "textarea"
	TypeGroup    FieldType = "group"
	TypeRepeater FieldType = "repeater"
	TypeShared   FieldType = "shared"
	TypeFile     FieldType = "file"
)

type Option struct {
	Value string `yaml:"value" json:"value"`
	Label string `yaml:"label" json:"label"`
}

// Condition makes a field visible (and required, if marked) only when the
// sibling Field equals Value.
type Condition struct {
	Field string      `yaml:"field" json:"field"`
	Value interface{} `yaml:"value" json:"value"`
}

type Field struct {
	Name      string     `yaml:"name" json:"name"`
	Label     string     `yaml:"label,omitempty" json:"label,omitempty"`
	Type      FieldType  `yaml:"type" json:"type"`
	Required  bool       `yaml:"required,omitempty" json:"required,omitempty"`
	Options   []Option   `yaml:"options,omitempty" json:"options,omitempty"`
	Fields    []Field    `yaml:"fields,omitempty" json:"fields,omitempty"`
	DependsOn *Condition `yaml:"dependsOn,omitempty" json:"dependsOn,omitempty"`
	SharedKey string     `yaml:"sharedKey,omitempty" json:"sharedKey,omitempty"`
	Pattern   string     `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Format    string     `yaml:"format,omitempty" json:"format,omitempty"`
	Min       *float64   `yaml:"min,omitempty" json:"min,omitempty"`
	Max       *float64   `yaml:"max,omitempty" json:"max,omitempty"`
}

// ClaimSchema is one claim's definition as written, before shared groups are resolved.
type ClaimSchema struct {
	Claim  models.ClaimType `yaml:"claim"`
	Title  string           `yaml:"title"`
	Fields []Field          `yaml:"fields"`
}

type sharedFileContent struct {
	Groups map[string]Field `yaml:"groups"`
}

// Compiled is a claim schema with every shared reference inlined.
type Compiled struct {
	Claim  models.ClaimType `json:"claim"`
	Title  string           `json:"title"`
	Fields []Field          `json:"fields"`
	paths  []string
	schema map[string]interface{}
}

// Registry is immutable after Compile.
type Registry struct {
	claims map[models.ClaimType]*Compiled
	shared map[string]Field
}

// Load reads and compiles the embedded schema files.
func Load() (*Registry, error) {
	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		return nil, fmt.Errorf("read schemas: %w", err)
	}

	var shared sharedFileContent
	var claims []ClaimSchema

	for _, entry := range entries {
		raw, err := schemaFS.ReadFile(path.Join("schemas", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		if entry.Name() == sharedFile {
			if err := yaml.Unmarshal(raw, &shared); err != nil {
				return nil, fmt.Errorf("parse %s: %w", entry.Name(), err)
			}
			continue
		}
		var cs ClaimSchema
		if err := yaml.Unmarshal(raw, &cs); err != nil {
			return nil, fmt.Errorf("parse %s: %w", entry.Name(), err)
		}
		claims = append(claims, cs)
	}

	return Compile(claims, shared.Groups)
}

// Compile resolves shared references and checks name uniqueness.
func Compile(claims []ClaimSchema, shared map[string]Field) (*Registry, error) {
	for key, group := range shared {
		if err := checkNoSharedRefs(group); err != nil {
			return nil, fmt.Errorf("shared group %q: %w", key, err)
		}
	}

	r := &Registry{
		claims: make(map[models.ClaimType]*Compiled, len(claims)),
		shared: shared,
	}

	for _, cs := range claims {
		if !cs.Claim.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownClaim, cs.Claim)
		}
		fields, err := resolve(cs.Fields, shared)
		if err != nil {
			return nil, fmt.Errorf("claim %s: %w", cs.Claim, err)
		}
		paths, err := flattenPaths("", fields)
		if err != nil {
			return nil, fmt.Errorf("claim %s: %w", cs.Claim, err)
		}
		schema, err := buildSchema(fields)
		if err != nil {
			return nil, fmt.Errorf("claim %s: %w", cs.Claim, err)
		}
		r.claims[cs.Claim] = &Compiled{
			Claim:  cs.Claim,
			Title:  cs.Title,
			Fields: fields,
			paths:  paths,
			schema: schema,
		}
	}
	return r, nil
}

func checkNoSharedRefs(f Field) error {
	if f.Type == TypeShared {
		return fmt.Errorf("%w: shared groups cannot reference other shared groups", ErrInvalidDefinition)
	}
	for _, child := range f.Fields {
		if err := checkNoSharedRefs(child); err != nil {
			return err
		}
	}
	return nil
}

// resolve returns a deep copy of fields with shared references replaced by
// the group definition. The referencing field keeps its name, dependsOn and
// required flag, so the group has the same shape wherever it is used.
func resolve(fields []Field, shared map[string]Field) ([]Field, error) {
	out := make([]Field, 0, len(fields))
	for _, f := range fields {
		if f.Type == TypeShared {
			group, ok := shared[f.SharedKey]
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrUnknownSharedKey, f.SharedKey)
			}
			resolved := copyField(group)
			if f.Name != "" {
				resolved.Name = f.Name
			}
			if f.Label != "" {
				resolved.Label = f.Label
			}
			resolved.Required = resolved.Required || f.Required
			if f.DependsOn != nil {
				resolved.DependsOn = f.DependsOn
			}
			resolved.SharedKey = f.SharedKey
			out = append(out, resolved)
			continue
		}

		resolved := f
		if len(f.Fields) > 0 {
			children, err := resolve(f.Fields, shared)
			if err != nil {
				return nil, err
			}
			resolved.Fields = children
		}
		out = append(out, resolved)
	}
	return out, nil
}

func copyField(f Field) Field {
	out := f
	if f.Options != nil {
		out.Options = append([]Option(nil), f.Options...)
	}
	if f.Fields != nil {
		out.Fields = make([]Field, len(f.Fields))
		for i, child := range f.Fields {
			out.Fields[i] = copyField(child)
		}
	}
	return out
}

func flattenPaths(prefix string, fields []Field) ([]string, error) {
	seen := map[string]struct{}{}
	var paths []string
	for _, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("%w: field without a name under %q", ErrInvalidDefinition, prefix)
		}
		if _, dup := seen[f.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateField, joinPath(prefix, f.Name))
		}
		seen[f.Name] = struct{}{}

		p := joinPath(prefix, f.Name)
		paths = append(paths, p)
		if f.Type == TypeGroup || f.Type == TypeRepeater {
			nested, err := flattenPaths(p, f.Fields)
			if err != nil {
				return nil, err
			}
			paths = append(paths, nested...)
		}
	}
	return paths, nil
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

// Claims returns the compiled claim types in display order.
func (r *Registry) Claims() []models.ClaimType {
	out := make([]models.ClaimType, 0, len(r.claims))
	for _, c := range models.AllClaims {
		if _, ok := r.claims[c]; ok {
			out = append(out, c)
		}
	}
	return out
}

func (r *Registry) Get(claim models.ClaimType) (*Compiled, error) {
	c, ok := r.claims[claim]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownClaim, claim)
	}
	return c, nil
}

// Fields returns the resolved field tree for the renderer.
func (r *Registry) Fields(claim models.ClaimType) ([]Field, error) {
	c, err := r.Get(claim)
	if err != nil {
		return nil, err
	}
	return c.Fields, nil
}

// JSONSchema returns the draft-07 schema answers for claim must satisfy.
func (r *Registry) JSONSchema(claim models.ClaimType) (map[string]interface{}, error) {
	c, err := r.Get(claim)
	if err != nil {
		return nil, err
	}
	return c.schema, nil
}

// Paths lists the dotted names of every field of claim, sorted.
func (r *Registry) Paths(claim models.ClaimType) ([]string, error) {
	c, err := r.Get(claim)
	if err != nil {
		return nil, err
	}
	out := append([]string(nil), c.paths...)
	sort.Strings(out)
	return out, nil
}

// SharedGroup returns the definition behind sharedKey.
func (r *Registry) SharedGroup(key string) (Field, bool) {
	f, ok := r.shared[strings.TrimSpace(key)]
	return f, ok
}
