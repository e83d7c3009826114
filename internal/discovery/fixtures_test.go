package discovery

import (
	"context"
	"testing"

	"github.com/conduit-lang/scopegraph/internal/introspect"
	"github.com/conduit-lang/scopegraph/internal/model"
	"github.com/stretchr/testify/require"
)

const fixtureManifest = `
models:
  - name: app/models.Person
    fillable: [name, email, bio, status, team_id, is_active, api_key]
    casts:
      bio: text
      age: int
      is_active: bool
      role: enum
      settings: json
    hidden: [remember_token]
    relations:
      - {name: team, kind: belongs_to, target: app/models.Team}
      - {name: roles, kind: has_many, target: PersonTeam, edge_label: HAS_ROLE}
      - {name: skills, kind: belongs_to_many, target: Skill, pivot_fields: [level]}
      - {name: posts, kind: has_many, target: Post}
    predicates:
      - name: scopeActive
        expression: "status = 'active'"
      - name: scopeVolunteers
        expression: "has roles where role_type = 'volunteer'"
        examples: ["How many volunteers do we have?"]
      - name: scopeActiveVolunteers
        expression: "has roles where role_type = 'volunteer' and active = true"
        examples: ["Show active volunteers"]
      - name: scopeBroken
        expression: "status ~ 'x'"
  - name: app/models.Customer
    fillable: [name, summary, headline, code, tier]
    relations:
      - {name: orders, kind: has_many, target: Order}
    predicates:
      - name: scopeHighValue
        expression: "sum(orders.total) > 1000"
        examples: ["Show high value customers"]
      - name: scopeSince
        expression: "created_at >= :since"
        examples: ["Customers since last year"]
  - name: app/models.Tag
    fillable: [label]
`

func fixtures(t *testing.T) map[string]model.Descriptor {
	t.Helper()
	m, err := model.ParseManifest([]byte(fixtureManifest))
	require.NoError(t, err)

	result := make(map[string]model.Descriptor)
	for _, d := range m.Descriptors() {
		result[d.ShortName()] = d
	}
	return result
}

// fakeIntrospector serves fixed column types and foreign keys
type fakeIntrospector struct {
	types map[string]map[string]string
	fks   map[string][]string
	calls int
}

func (f *fakeIntrospector) ColumnType(_ context.Context, collection, column string) (string, bool) {
	f.calls++
	t, ok := f.types[collection][column]
	return t, ok
}

func (f *fakeIntrospector) ForeignKeyColumns(_ context.Context, collection string) []string {
	f.calls++
	return f.fks[collection]
}

func (f *fakeIntrospector) ClearCache(string) {}
func (f *fakeIntrospector) ClearAll()         {}

var _ introspect.SchemaIntrospector = (*fakeIntrospector)(nil)

// panickingDescriptor wraps a descriptor whose relation accessor fails
type panickingDescriptor struct {
	model.Descriptor
}

func (panickingDescriptor) DeclaredRelations() []model.RelationMethod {
	panic("relation reflection failed")
}
