package entity

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScopeSpec_Validate(t *testing.T) {
	tests := []struct {
		name    string
		scope   ScopeSpec
		wantErr string
	}{
		{
			name: "valid simple",
			scope: ScopeSpec{
				Name: "active", PatternType: PatternSimple,
				Filter:   map[string]any{"status": "active"},
				Examples: []string{"Show active people"},
			},
		},
		{
			name: "valid relationship",
			scope: ScopeSpec{
				Name: "volunteers", PatternType: PatternRelationship,
				Path: &RelationshipPath{
					Hops:   []PathHop{{EdgeLabel: "HAS_ROLE", TargetLabel: "PersonTeam", Direction: DirectionOut}},
					Filter: map[string]any{"role_type": "volunteer"},
				},
				Examples: []string{"How many volunteers do we have?"},
			},
		},
		{
			name: "valid complex",
			scope: ScopeSpec{
				Name: "high_value", PatternType: PatternComplex,
				Template: &Template{Pattern: "MATCH (n:Customer) RETURN n", ModificationHint: "Adjust the threshold"},
				Examples: []string{"Show high value customers"},
			},
		},
		{
			name: "no examples",
			scope: ScopeSpec{
				Name: "active", PatternType: PatternSimple,
				Filter: map[string]any{"status": "active"},
			},
			wantErr: "no examples",
		},
		{
			name: "two payloads",
			scope: ScopeSpec{
				Name: "mixed", PatternType: PatternSimple,
				Filter:   map[string]any{"status": "active"},
				Template: &Template{Pattern: "MATCH (n) RETURN n", ModificationHint: "x"},
				Examples: []string{"x"},
			},
			wantErr: "exactly one payload",
		},
		{
			name: "payload does not match pattern type",
			scope: ScopeSpec{
				Name: "wrong", PatternType: PatternRelationship,
				Filter:   map[string]any{"status": "active"},
				Examples: []string{"x"},
			},
			wantErr: "at least one hop",
		},
		{
			name: "complex without hint",
			scope: ScopeSpec{
				Name: "big", PatternType: PatternComplex,
				Template: &Template{Pattern: "MATCH (n) RETURN n"},
				Examples: []string{"x"},
			},
			wantErr: "modification hint",
		},
		{
			name: "hop without target",
			scope: ScopeSpec{
				Name: "members", PatternType: PatternRelationship,
				Path:     &RelationshipPath{Hops: []PathHop{{EdgeLabel: "MEMBER_OF"}}},
				Examples: []string{"x"},
			},
			wantErr: "hop 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.scope.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.True(t, errors.Is(err, ErrInvalidScopeSpec))
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestParsePatternType(t *testing.T) {
	pt, err := ParsePatternType("relationship")
	assert.NoError(t, err)
	assert.Equal(t, PatternRelationship, pt)

	_, err = ParsePatternType("fancy")
	assert.Error(t, err)
}

func TestScopeSpec_CloneIsDeep(t *testing.T) {
	scope := ScopeSpec{
		Name: "volunteers", PatternType: PatternRelationship,
		Path: &RelationshipPath{
			Hops:   []PathHop{{EdgeLabel: "HAS_ROLE", TargetLabel: "Role", Direction: DirectionOut}},
			Filter: map[string]any{"name": "volunteer"},
		},
		Examples: []string{"volunteers"},
	}

	clone := scope.Clone()
	clone.Path.Hops[0].EdgeLabel = "OTHER"
	clone.Path.Filter["name"] = "staff"

	assert.Equal(t, "HAS_ROLE", scope.Path.Hops[0].EdgeLabel)
	assert.Equal(t, "volunteer", scope.Path.Filter["name"])
}
