package entity

import "fmt"

// PatternType classifies the query shape of a scope
type PatternType string

const (
	// PatternSimple is a property equality filter on the entity itself
	PatternSimple PatternType = "simple"
	// PatternRelationship is a bounded traversal to related entities
	PatternRelationship PatternType = "relationship"
	// PatternComplex is a templated aggregation or parameterized query
	PatternComplex PatternType = "complex"
)

// ParsePatternType converts a string to a PatternType
func ParsePatternType(s string) (PatternType, error) {
	switch PatternType(s) {
	case PatternSimple, PatternRelationship, PatternComplex:
		return PatternType(s), nil
	default:
		return "", fmt.Errorf("unknown pattern type: %q", s)
	}
}

// Direction is the traversal direction of one hop
type Direction string

const (
	DirectionOut  Direction = "out"
	DirectionIn   Direction = "in"
	DirectionBoth Direction = "both"
)

// PathHop is one edge traversal of a relationship scope
type PathHop struct {
	EdgeLabel   string    `json:"edge_label" yaml:"edge_label"`
	TargetLabel string    `json:"target_label" yaml:"target_label"`
	Direction   Direction `json:"direction" yaml:"direction"`
}

// RelationshipPath is the payload of a relationship scope: ordered hops from
// the entity plus a filter applied to the node reached by the last hop.
type RelationshipPath struct {
	Hops     []PathHop      `json:"hops" yaml:"hops"`
	Filter   map[string]any `json:"filter,omitempty" yaml:"filter,omitempty"`
	Distinct bool           `json:"distinct" yaml:"distinct"`
}

// Template is the payload of a complex scope
type Template struct {
	Pattern          string   `json:"pattern" yaml:"pattern"`
	ModificationHint string   `json:"modification_hint" yaml:"modification_hint"`
	Parameters       []string `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// ScopeSpec is a named business predicate attached to an entity.
// Exactly one of Filter, Path or Template is set, matching PatternType.
type ScopeSpec struct {
	Name        string            `json:"name" yaml:"name"`
	PatternType PatternType       `json:"pattern_type" yaml:"pattern_type"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Filter      map[string]any    `json:"filter,omitempty" yaml:"filter,omitempty"`
	Path        *RelationshipPath `json:"path,omitempty" yaml:"path,omitempty"`
	Template    *Template         `json:"template,omitempty" yaml:"template,omitempty"`
	Examples    []string          `json:"examples" yaml:"examples"`
}

// Validate checks the exactly-one-payload rule and that examples are present
func (s ScopeSpec) Validate() error {
	if s.Name == "" {
		return &ScopeError{Reason: "scope has no name"}
	}

	payloads := 0
	if len(s.Filter) > 0 {
		payloads++
	}
	if s.Path != nil {
		payloads++
	}
	if s.Template != nil {
		payloads++
	}
	if payloads != 1 {
		return &ScopeError{Scope: s.Name, Reason: fmt.Sprintf("expected exactly one payload, found %d", payloads)}
	}

	switch s.PatternType {
	case PatternSimple:
		if len(s.Filter) == 0 {
			return &ScopeError{Scope: s.Name, Reason: "simple scope requires a property filter"}
		}
	case PatternRelationship:
		if s.Path == nil || len(s.Path.Hops) == 0 {
			return &ScopeError{Scope: s.Name, Reason: "relationship scope requires at least one hop"}
		}
		for i, hop := range s.Path.Hops {
			if hop.EdgeLabel == "" || hop.TargetLabel == "" {
				return &ScopeError{Scope: s.Name, Reason: fmt.Sprintf("hop %d needs an edge label and a target label", i)}
			}
		}
	case PatternComplex:
		if s.Template == nil || s.Template.Pattern == "" {
			return &ScopeError{Scope: s.Name, Reason: "complex scope requires a template pattern"}
		}
		if s.Template.ModificationHint == "" {
			return &ScopeError{Scope: s.Name, Reason: "complex scope requires a modification hint"}
		}
	default:
		return &ScopeError{Scope: s.Name, Reason: fmt.Sprintf("unknown pattern type %q", s.PatternType)}
	}

	if len(s.Examples) == 0 {
		return &ScopeError{Scope: s.Name, Reason: "scope has no examples and cannot be detected"}
	}
	return nil
}

// Clone returns a deep copy of the scope
func (s ScopeSpec) Clone() ScopeSpec {
	clone := s
	clone.Filter = cloneFilter(s.Filter)
	clone.Examples = cloneStrings(s.Examples)
	if s.Path != nil {
		path := *s.Path
		path.Hops = append([]PathHop(nil), s.Path.Hops...)
		path.Filter = cloneFilter(s.Path.Filter)
		clone.Path = &path
	}
	if s.Template != nil {
		tmpl := *s.Template
		tmpl.Parameters = append([]string(nil), s.Template.Parameters...)
		clone.Template = &tmpl
	}
	return clone
}

func cloneFilter(filter map[string]any) map[string]any {
	if filter == nil {
		return nil
	}
	result := make(map[string]any, len(filter))
	for k, v := range filter {
		result[k] = v
	}
	return result
}
