package model

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest is a YAML export of model metadata, for persistence frameworks
// that cannot be reflected over directly:
//
//	models:
//	  - name: app/models.Person
//	    collection: people
//	    primary_key: id
//	    fillable: [name, bio, status]
//	    casts: {bio: text, age: int}
//	    relations:
//	      - {name: team, kind: belongs_to, target: Team}
//	    predicates:
//	      - {name: scopeActive, expression: "status = 'active'"}
type Manifest struct {
	Models []ManifestModel `yaml:"models"`
}

// ManifestModel is one model entry of a Manifest. It implements Descriptor.
type ManifestModel struct {
	FullName   string            `yaml:"name"`
	Short      string            `yaml:"short_name,omitempty"`
	Collection string            `yaml:"collection,omitempty"`
	PK         string            `yaml:"primary_key,omitempty"`
	Fillable   []string          `yaml:"fillable,omitempty"`
	Casts      map[string]string `yaml:"casts,omitempty"`
	Timestamps []string          `yaml:"timestamps,omitempty"`
	Hidden     []string          `yaml:"hidden,omitempty"`
	Relations  []RelationMethod  `yaml:"relations,omitempty"`
	Predicates []PredicateMethod `yaml:"predicates,omitempty"`

	casts map[string]CastKind
}

// LoadManifest reads and parses a manifest file
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model manifest: %w", err)
	}
	return ParseManifest(data)
}

// ParseManifest parses manifest YAML and validates every model entry
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse model manifest: %w", err)
	}

	for i := range m.Models {
		if err := m.Models[i].normalize(); err != nil {
			return nil, err
		}
	}
	return &m, nil
}

func (m *ManifestModel) normalize() error {
	if m.FullName == "" {
		return fmt.Errorf("model manifest: entry without name")
	}
	if m.Short == "" {
		m.Short = ShortNameOf(m.FullName)
	}
	if m.Collection == "" {
		m.Collection = DefaultCollectionName(m.Short)
	}
	if m.PK == "" {
		m.PK = "id"
	}
	if m.Timestamps == nil {
		m.Timestamps = []string{"created_at", "updated_at"}
	}

	m.casts = make(map[string]CastKind, len(m.Casts))
	for field, raw := range m.Casts {
		kind, err := ParseCastKind(raw)
		if err != nil {
			return fmt.Errorf("model %s: field %s: %w", m.FullName, field, err)
		}
		m.casts[field] = kind
	}

	for i, rel := range m.Relations {
		kind, err := ParseRelationKind(string(rel.Kind))
		if err != nil {
			return fmt.Errorf("model %s: relation %s: %w", m.FullName, rel.Name, err)
		}
		if rel.Target == "" {
			return fmt.Errorf("model %s: relation %s has no target", m.FullName, rel.Name)
		}
		m.Relations[i].Kind = kind
	}
	return nil
}

// Descriptors returns the manifest models as descriptors, in file order
func (m *Manifest) Descriptors() []Descriptor {
	result := make([]Descriptor, 0, len(m.Models))
	for i := range m.Models {
		result = append(result, &m.Models[i])
	}
	return result
}

func (m *ManifestModel) Name() string              { return m.FullName }
func (m *ManifestModel) ShortName() string         { return m.Short }
func (m *ManifestModel) CollectionName() string    { return m.Collection }
func (m *ManifestModel) PrimaryKey() string        { return m.PK }
func (m *ManifestModel) FillableFields() []string  { return append([]string(nil), m.Fillable...) }
func (m *ManifestModel) TimestampFields() []string { return append([]string(nil), m.Timestamps...) }
func (m *ManifestModel) HiddenFields() []string    { return append([]string(nil), m.Hidden...) }

func (m *ManifestModel) CastFields() map[string]CastKind {
	result := make(map[string]CastKind, len(m.casts))
	for k, v := range m.casts {
		result[k] = v
	}
	return result
}

func (m *ManifestModel) DeclaredRelations() []RelationMethod {
	return append([]RelationMethod(nil), m.Relations...)
}

func (m *ManifestModel) DeclaredPredicates() []PredicateMethod {
	return append([]PredicateMethod(nil), m.Predicates...)
}
