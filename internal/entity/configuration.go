// Package entity defines the configuration shared by discovery, the static
// configuration table and scope detection. A Configuration is built once and
// never mutated afterwards; layers that adjust it work on a Clone.
package entity

import (
	"sort"
)

// RelationType tags the direction a relationship descriptor was declared from
type RelationType string

const (
	// RelationOutbound is the owning side (holds the foreign key); it seeds edge generation
	RelationOutbound RelationType = "outbound"
	// RelationInbound is the inverse side; informational only
	RelationInbound RelationType = "inbound"
	// RelationPivot is a many-to-many relation through a pivot label
	RelationPivot RelationType = "pivot"
)

// Relationship describes one directed relationship of an entity
type Relationship struct {
	Type         RelationType `json:"type" yaml:"type"`
	RelationName string       `json:"relation_name" yaml:"relation_name"`
	TargetLabel  string       `json:"target_label" yaml:"target_label"`
	ForeignKey   string       `json:"foreign_key,omitempty" yaml:"foreign_key,omitempty"`
	Pivot        string       `json:"pivot,omitempty" yaml:"pivot,omitempty"`
	Properties   []string     `json:"properties" yaml:"properties,omitempty"`
	Method       string       `json:"method,omitempty" yaml:"method,omitempty"`
}

// IsEdgeSource returns true if the relationship may be used to generate edges.
// Inbound relationships are the mirror of another entity's outbound one and
// would double-declare the edge.
func (r Relationship) IsEdgeSource() bool {
	return r.Type == RelationOutbound || r.Type == RelationPivot
}

// Configuration is the complete graph-facing configuration of one entity type
type Configuration struct {
	Label                string            `json:"label" yaml:"label"`
	Properties           []string          `json:"properties" yaml:"properties"`
	Relationships        []Relationship    `json:"relationships" yaml:"relationships"`
	CollectionName       string            `json:"collection_name" yaml:"collection_name"`
	EmbedFields          []string          `json:"embed_fields" yaml:"embed_fields"`
	VectorMetadataFields []string          `json:"vector_metadata_fields" yaml:"vector_metadata_fields"`
	Aliases              []string          `json:"aliases" yaml:"aliases"`
	Description          string            `json:"description,omitempty" yaml:"description,omitempty"`
	Scopes               []ScopeSpec       `json:"scopes" yaml:"scopes"`
	PropertyDescriptions map[string]string `json:"property_descriptions" yaml:"property_descriptions,omitempty"`
}

// NewConfiguration returns an empty configuration with non-nil collections
func NewConfiguration(label string) *Configuration {
	return &Configuration{
		Label:                label,
		Properties:           []string{},
		Relationships:        []Relationship{},
		EmbedFields:          []string{},
		VectorMetadataFields: []string{},
		Aliases:              []string{},
		Scopes:               []ScopeSpec{},
		PropertyDescriptions: map[string]string{},
	}
}

// IsEmpty returns true if the configuration carries nothing beyond a label
func (c *Configuration) IsEmpty() bool {
	if c == nil {
		return true
	}
	return len(c.Properties) == 0 &&
		len(c.Relationships) == 0 &&
		len(c.EmbedFields) == 0 &&
		len(c.Aliases) == 0 &&
		len(c.Scopes) == 0
}

// HasProperty returns true if name is one of the configuration's properties
func (c *Configuration) HasProperty(name string) bool {
	for _, p := range c.Properties {
		if p == name {
			return true
		}
	}
	return false
}

// Scope returns the scope with the given name
func (c *Configuration) Scope(name string) (ScopeSpec, bool) {
	for _, s := range c.Scopes {
		if s.Name == name {
			return s, true
		}
	}
	return ScopeSpec{}, false
}

// OutboundRelationships returns the relationships usable for edge generation
func (c *Configuration) OutboundRelationships() []Relationship {
	result := make([]Relationship, 0, len(c.Relationships))
	for _, r := range c.Relationships {
		if r.IsEdgeSource() {
			result = append(result, r)
		}
	}
	return result
}

// Clone returns a deep copy of the configuration
func (c *Configuration) Clone() *Configuration {
	if c == nil {
		return nil
	}
	clone := &Configuration{
		Label:                c.Label,
		Properties:           cloneStrings(c.Properties),
		CollectionName:       c.CollectionName,
		EmbedFields:          cloneStrings(c.EmbedFields),
		VectorMetadataFields: cloneStrings(c.VectorMetadataFields),
		Aliases:              cloneStrings(c.Aliases),
		Description:          c.Description,
		Relationships:        make([]Relationship, len(c.Relationships)),
		Scopes:               make([]ScopeSpec, len(c.Scopes)),
		PropertyDescriptions: make(map[string]string, len(c.PropertyDescriptions)),
	}
	for i, r := range c.Relationships {
		if r.Properties != nil {
			r.Properties = cloneStrings(r.Properties)
		}
		clone.Relationships[i] = r
	}
	for i, s := range c.Scopes {
		clone.Scopes[i] = s.Clone()
	}
	for k, v := range c.PropertyDescriptions {
		clone.PropertyDescriptions[k] = v
	}
	return clone
}

// VectorConfig is the vector-store facing configuration of an entity.
// A nil *VectorConfig means the entity has no vector configuration at all,
// which is different from a present configuration with no embed fields.
type VectorConfig struct {
	Collection     string   `json:"collection" yaml:"collection"`
	EmbedFields    []string `json:"embed_fields" yaml:"embed_fields"`
	MetadataFields []string `json:"metadata_fields" yaml:"metadata_fields"`
}

// Searchable returns true if the entity has text to embed
func (v *VectorConfig) Searchable() bool {
	return v != nil && len(v.EmbedFields) > 0
}

// VectorFromConfiguration derives a vector configuration from a graph configuration
func VectorFromConfiguration(c *Configuration) *VectorConfig {
	return &VectorConfig{
		Collection:     c.CollectionName,
		EmbedFields:    cloneStrings(c.EmbedFields),
		MetadataFields: cloneStrings(c.VectorMetadataFields),
	}
}

// SortedSet returns the sorted, de-duplicated, non-empty values
func SortedSet(values []string) []string {
	seen := make(map[string]bool, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		result = append(result, v)
	}
	sort.Strings(result)
	return result
}

func cloneStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	result := make([]string, len(values))
	copy(result, values)
	return result
}
