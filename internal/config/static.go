package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/conduit-lang/scopegraph/internal/entity"
	"github.com/conduit-lang/scopegraph/internal/model"
	"gopkg.in/yaml.v3"
)

// Error is a malformed static configuration entry. It is the only
// configuration problem reported as an error rather than a warning.
type Error struct {
	Entity string
	Scope  string
	Err    error
}

func (e *Error) Error() string {
	if e.Scope != "" {
		return fmt.Sprintf("static configuration for %s, scope %s: %v", e.Entity, e.Scope, e.Err)
	}
	return fmt.Sprintf("static configuration for %s: %v", e.Entity, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StaticEntry is one entity of the static configuration table
type StaticEntry struct {
	// Name is the key the entry was declared under
	Name   string
	Graph  *entity.Configuration
	Vector *entity.VectorConfig
}

// staticDocument mirrors one entry in YAML: a configuration literal with an
// optional vector block
type staticDocument struct {
	entity.Configuration `yaml:",inline"`
	Vector               *entity.VectorConfig `yaml:"vector,omitempty"`
}

// StaticTable maps fully-qualified or short entity names to hand-written
// configurations. Keys are case sensitive and keep file order.
type StaticTable struct {
	entries map[string]*StaticEntry
	order   []string
	path    string
}

// NewStaticTable returns an empty table
func NewStaticTable() *StaticTable {
	return &StaticTable{entries: make(map[string]*StaticEntry)}
}

// LoadStaticTable reads a static configuration table file. An empty path
// yields an empty table.
func LoadStaticTable(path string) (*StaticTable, error) {
	if path == "" {
		return NewStaticTable(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read static configuration table: %w", err)
	}
	table, err := ParseStaticTable(data)
	if err != nil {
		return nil, err
	}
	table.path = path
	return table, nil
}

// ParseStaticTable parses and validates a static configuration table:
//
//	entities:
//	  app/models.Person:
//	    label: Person
//	    properties: [id, name, bio]
//	    embed_fields: [bio]
//	    scopes:
//	      - name: active
//	        pattern_type: simple
//	        filter: {status: active}
//	        examples: ["Show active people"]
//	    vector:
//	      collection: people
//	      embed_fields: [bio]
func ParseStaticTable(data []byte) (*StaticTable, error) {
	var doc struct {
		Entities yaml.Node `yaml:"entities"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse static configuration table: %w", err)
	}

	table := NewStaticTable()
	if doc.Entities.Kind == 0 {
		return table, nil
	}
	if doc.Entities.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("static configuration table: entities must be a mapping (line %d)", doc.Entities.Line)
	}

	content := doc.Entities.Content
	for i := 0; i+1 < len(content); i += 2 {
		name := content[i].Value
		if _, exists := table.entries[name]; exists {
			return nil, &Error{Entity: name, Err: fmt.Errorf("declared twice (line %d)", content[i].Line)}
		}

		var raw staticDocument
		if err := content[i+1].Decode(&raw); err != nil {
			return nil, &Error{Entity: name, Err: err}
		}

		entry, err := newStaticEntry(name, raw)
		if err != nil {
			return nil, err
		}
		table.entries[name] = entry
		table.order = append(table.order, name)
	}
	return table, nil
}

func newStaticEntry(name string, raw staticDocument) (*StaticEntry, error) {
	cfg := normalize(raw.Configuration, name)

	if err := cfg.Validate(); err != nil {
		var scopeErr *entity.ScopeError
		if errors.As(err, &scopeErr) {
			return nil, &Error{Entity: name, Scope: scopeErr.Scope, Err: err}
		}
		return nil, &Error{Entity: name, Err: err}
	}

	vector := raw.Vector
	if vector != nil {
		if vector.Collection == "" {
			vector.Collection = cfg.CollectionName
		}
		if vector.EmbedFields == nil {
			vector.EmbedFields = []string{}
		}
		if vector.MetadataFields == nil {
			vector.MetadataFields = []string{}
		}
	}

	return &StaticEntry{Name: name, Graph: cfg, Vector: vector}, nil
}

// normalize fills defaults and replaces nil collections with empty ones
func normalize(c entity.Configuration, name string) *entity.Configuration {
	if c.Label == "" {
		c.Label = model.ShortNameOf(name)
	}
	if c.CollectionName == "" {
		c.CollectionName = model.DefaultCollectionName(c.Label)
	}
	if c.Properties == nil {
		c.Properties = []string{}
	}
	if c.Relationships == nil {
		c.Relationships = []entity.Relationship{}
	}
	if c.EmbedFields == nil {
		c.EmbedFields = []string{}
	}
	if c.VectorMetadataFields == nil {
		c.VectorMetadataFields = []string{}
	}
	if c.Aliases == nil {
		c.Aliases = []string{}
	}
	if c.Scopes == nil {
		c.Scopes = []entity.ScopeSpec{}
	}
	if c.PropertyDescriptions == nil {
		c.PropertyDescriptions = map[string]string{}
	}
	for i := range c.Scopes {
		if c.Scopes[i].Examples == nil {
			c.Scopes[i].Examples = []string{}
		}
	}
	return &c
}

// Lookup returns the entry for an entity. The fully-qualified name takes
// precedence over the short name.
func (t *StaticTable) Lookup(fullName, shortName string) (*StaticEntry, bool) {
	if t == nil {
		return nil, false
	}
	if e, ok := t.entries[fullName]; ok {
		return e, true
	}
	if e, ok := t.entries[shortName]; ok {
		return e, true
	}
	return nil, false
}

// Names returns the entry keys in file order
func (t *StaticTable) Names() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.order...)
}

// Len returns the number of entries
func (t *StaticTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.order)
}

// Path returns the file the table was loaded from, if any
func (t *StaticTable) Path() string {
	if t == nil {
		return ""
	}
	return t.path
}
