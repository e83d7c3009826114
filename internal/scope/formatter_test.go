package scope

import (
	"strings"
	"testing"

	"github.com/conduit-lang/scopegraph/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat_Empty(t *testing.T) {
	assert.Equal(t, "", Format(nil))

	detections := Detect("Which teams exist?", []*entity.Configuration{teamConfig()})
	require.Len(t, detections, 1)
	assert.Equal(t, "", Format(detections))
}

func TestFormat_RelationshipScope(t *testing.T) {
	out := Format(Detect("How many volunteers do we have?", []*entity.Configuration{personConfig()}))

	assert.Contains(t, out, "### Person")
	assert.Contains(t, out, "[RELATIONSHIP] volunteers: People with a volunteer role")
	assert.Contains(t, out, "REQUIRED")
	assert.Contains(t, out, "MATCH (n:Person)<-[:HAS_ROLE]-(r:PersonTeam) WHERE r.role_type = 'volunteer' RETURN DISTINCT n")
	assert.NotContains(t, out, "role_type=")
	assert.NotContains(t, out, "n.role_type")
	assert.NotContains(t, out, "Filter:")
}

func TestFormat_RelationshipScopeDoesNotMutateDetection(t *testing.T) {
	detections := Detect("volunteers", []*entity.Configuration{personConfig()})
	require.Len(t, detections, 1)

	Format(detections)
	assert.False(t, detections[0].Scopes[0].Spec.Path.Distinct)
}

func TestFormat_AllPatternTypes(t *testing.T) {
	customer := entity.NewConfiguration("Customer")
	customer.Aliases = []string{"customer", "customers"}
	customer.Scopes = []entity.ScopeSpec{
		{
			Name:        "since",
			PatternType: entity.PatternComplex,
			Description: "Customers created after a date",
			Template: &entity.Template{
				Pattern:          "MATCH (n:Customer) WHERE n.created_at >= $since RETURN n",
				ModificationHint: "Adjust the parameter values ($since) to match the question",
				Parameters:       []string{"since"},
			},
			Examples: []string{"customers since last year"},
		},
	}

	out := Format(Detect("Active people and customers since March", []*entity.Configuration{personConfig(), customer}))

	assert.Contains(t, out, "[SIMPLE] active: People where status = 'active'")
	assert.Contains(t, out, "Filter: n.status = 'active'")
	assert.Contains(t, out, "[COMPLEX] since: Customers created after a date")
	assert.Contains(t, out, "  MATCH (n:Customer) WHERE n.created_at >= $since RETURN n")
	assert.Contains(t, out, "Parameters: $since")
	assert.Contains(t, out, "Modification hint: Adjust the parameter values ($since) to match the question")

	assert.Less(t, strings.Index(out, "### Person"), strings.Index(out, "### Customer"))
	assert.Equal(t, 1, strings.Count(out, "## Business scopes"))
}

func TestFormatSchema(t *testing.T) {
	person := personConfig()
	person.PropertyDescriptions = map[string]string{"status": "membership status"}
	skill := entity.NewConfiguration("Skill")
	person.Relationships = append(person.Relationships, entity.Relationship{
		Type:         entity.RelationPivot,
		RelationName: "SKILLS",
		TargetLabel:  "Skill",
		Pivot:        "PersonSkill",
		Properties:   []string{"level"},
	})

	out := FormatSchema([]*entity.Configuration{person, teamConfig(), skill})

	assert.Contains(t, out, "(:Person)\n")
	assert.Contains(t, out, "properties: id, name, status (membership status), team_id")
	assert.Contains(t, out, "(:Person)-[:TEAM]->(:Team)")
	assert.Contains(t, out, "(:Person)-[:SKILLS]-(:Skill) {level}")
	assert.NotContains(t, out, "HAS_ROLE", "inbound relationships and unknown targets are skipped")
}
