// Package model defines the read-only view of a domain entity that discovery
// consumes, together with adapters that build that view from Go structs or
// from a YAML manifest exported by another persistence framework.
package model

import (
	"fmt"
	"strings"

	"github.com/conduit-lang/scopegraph/internal/entity"
)

// CastKind is the declared storage/cast type of a field
type CastKind string

const (
	CastString    CastKind = "string"
	CastText      CastKind = "text"
	CastInt       CastKind = "int"
	CastFloat     CastKind = "float"
	CastDecimal   CastKind = "decimal"
	CastBool      CastKind = "bool"
	CastDate      CastKind = "date"
	CastDateTime  CastKind = "datetime"
	CastTimestamp CastKind = "timestamp"
	CastJSON      CastKind = "json"
	CastArray     CastKind = "array"
	CastEnum      CastKind = "enum"
	CastUUID      CastKind = "uuid"
)

// ParseCastKind converts a string to a CastKind, accepting common aliases
func ParseCastKind(s string) (CastKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "string", "str", "varchar":
		return CastString, nil
	case "text", "longtext", "mediumtext", "markdown":
		return CastText, nil
	case "int", "integer", "bigint":
		return CastInt, nil
	case "float", "double", "real":
		return CastFloat, nil
	case "decimal":
		return CastDecimal, nil
	case "bool", "boolean":
		return CastBool, nil
	case "date":
		return CastDate, nil
	case "datetime", "immutable_datetime":
		return CastDateTime, nil
	case "timestamp":
		return CastTimestamp, nil
	case "json", "object", "collection":
		return CastJSON, nil
	case "array":
		return CastArray, nil
	case "enum":
		return CastEnum, nil
	case "uuid", "ulid":
		return CastUUID, nil
	default:
		return "", fmt.Errorf("unknown cast kind: %s", s)
	}
}

// IsText returns true for string-typed casts
func (c CastKind) IsText() bool {
	return c == CastString || c == CastText
}

// IsFreeText returns true for casts that hold long-form prose
func (c CastKind) IsFreeText() bool {
	return c == CastText
}

// IsNumeric returns true for numeric casts
func (c CastKind) IsNumeric() bool {
	return c == CastInt || c == CastFloat || c == CastDecimal
}

// IsBool returns true for boolean casts
func (c CastKind) IsBool() bool {
	return c == CastBool
}

// IsTemporal returns true for date and time casts
func (c CastKind) IsTemporal() bool {
	return c == CastDate || c == CastDateTime || c == CastTimestamp
}

// RelationKind is the kind of relation a relation method returns
type RelationKind string

const (
	// RelationBelongsTo is the owning side: this entity holds the foreign key
	RelationBelongsTo RelationKind = "belongs_to"
	// RelationHasOne is the inverse of a belongs_to on the target
	RelationHasOne RelationKind = "has_one"
	// RelationHasMany is the inverse of a belongs_to on the target
	RelationHasMany RelationKind = "has_many"
	// RelationBelongsToMany is a many-to-many relation through a pivot
	RelationBelongsToMany RelationKind = "belongs_to_many"
	// RelationHasManyThrough reaches the target through an intermediate entity
	RelationHasManyThrough RelationKind = "has_many_through"
)

// ParseRelationKind converts a string to a RelationKind
func ParseRelationKind(s string) (RelationKind, error) {
	switch RelationKind(strings.ToLower(strings.TrimSpace(s))) {
	case RelationBelongsTo:
		return RelationBelongsTo, nil
	case RelationHasOne:
		return RelationHasOne, nil
	case RelationHasMany:
		return RelationHasMany, nil
	case RelationBelongsToMany, "many_to_many":
		return RelationBelongsToMany, nil
	case RelationHasManyThrough:
		return RelationHasManyThrough, nil
	default:
		return "", fmt.Errorf("unknown relation kind: %s", s)
	}
}

// IsInverse returns true for relations whose foreign key lives on the target
func (k RelationKind) IsInverse() bool {
	return k == RelationHasOne || k == RelationHasMany
}

// IsPivot returns true for relations that go through a pivot or intermediate entity
func (k RelationKind) IsPivot() bool {
	return k == RelationBelongsToMany || k == RelationHasManyThrough
}

// RelationMethod describes one declared relation-returning method
type RelationMethod struct {
	Name        string       `yaml:"name"`
	Kind        RelationKind `yaml:"kind"`
	Target      string       `yaml:"target"`
	ForeignKey  string       `yaml:"foreign_key,omitempty"`
	Pivot       string       `yaml:"pivot,omitempty"`
	PivotFields []string     `yaml:"pivot_fields,omitempty"`
	EdgeLabel   string       `yaml:"edge_label,omitempty"`
}

// PredicateMethod describes one declared predicate (scope) method and the
// filter shape it applies.
type PredicateMethod struct {
	Name             string   `yaml:"name"`
	Expression       string   `yaml:"expression"`
	Parameters       []string `yaml:"parameters,omitempty"`
	Description      string   `yaml:"description,omitempty"`
	Examples         []string `yaml:"examples,omitempty"`
	Template         string   `yaml:"template,omitempty"`
	ModificationHint string   `yaml:"modification_hint,omitempty"`
}

// Descriptor is the read-only view of an entity's declared metadata.
// Implementations must return the same values on every call.
type Descriptor interface {
	// Name is the fully-qualified identity of the entity type
	Name() string
	// ShortName is the unqualified type name, e.g. "Person"
	ShortName() string
	// CollectionName is the table or collection backing the entity
	CollectionName() string
	FillableFields() []string
	CastFields() map[string]CastKind
	DeclaredRelations() []RelationMethod
	DeclaredPredicates() []PredicateMethod
	PrimaryKey() string
	TimestampFields() []string
	HiddenFields() []string
}

// Discoverer runs automatic discovery for a descriptor. It is handed to
// GraphConfigProvider overrides so they can layer manual additions on top of
// discovered output.
type Discoverer interface {
	DiscoverConfig(d Descriptor) *entity.Configuration
}

// GraphConfigProvider is implemented by descriptors that declare their own
// graph configuration. The returned value is used verbatim.
type GraphConfigProvider interface {
	GraphConfig(d Discoverer) (*entity.Configuration, error)
}

// VectorConfigProvider is implemented by descriptors that declare their own
// vector configuration. A nil result means the entity is not vector-indexed.
type VectorConfigProvider interface {
	VectorConfig() (*entity.VectorConfig, error)
}

// Customizer is implemented by descriptors that adjust their resolved graph
// configuration. It receives a copy and returns the configuration to use.
type Customizer interface {
	CustomizeGraphConfig(cfg *entity.Configuration) *entity.Configuration
}

// DefaultCollectionName returns the conventional collection name for a type name
func DefaultCollectionName(shortName string) string {
	return Pluralize(SnakeCase(shortName))
}

// ShortNameOf returns the unqualified part of a fully-qualified entity name.
// Both Go ("pkg/path.Type") and namespaced ("App\Models\Type") forms are accepted.
func ShortNameOf(name string) string {
	if i := strings.LastIndexAny(name, `.\/`); i >= 0 {
		return name[i+1:]
	}
	return name
}
