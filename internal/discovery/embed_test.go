package discovery

import (
	"context"
	"testing"

	"github.com/conduit-lang/scopegraph/internal/introspect"
	"github.com/stretchr/testify/assert"
)

func TestDetectEmbedFields(t *testing.T) {
	person := fixtures(t)["Person"]
	ctx := context.Background()

	props := DiscoverProperties(person, nil)
	rels := DiscoverRelationships(ctx, person, introspect.Nop{})

	embed := DetectEmbedFields(ctx, person, props, rels, introspect.Nop{})
	assert.Equal(t, []string{"bio"}, embed)
	assert.Subset(t, props, embed)
}

func TestDetectEmbedFields_ColumnTypes(t *testing.T) {
	customer := fixtures(t)["Customer"]
	ctx := context.Background()
	si := &fakeIntrospector{types: map[string]map[string]string{
		"customers": {
			"name":     "character varying",
			"summary":  "character varying",
			"headline": "text",
			"code":     "varchar(20)",
			"tier":     "integer",
		},
	}}

	props := DiscoverProperties(customer, nil)
	embed := DetectEmbedFields(ctx, customer, props, nil, si)
	assert.Equal(t, []string{"summary", "headline"}, embed)
}

func TestDetectEmbedFields_WithoutIntrospection(t *testing.T) {
	customer := fixtures(t)["Customer"]
	ctx := context.Background()

	props := DiscoverProperties(customer, nil)
	embed := DetectEmbedFields(ctx, customer, props, nil, nil)
	// Only the name signal remains
	assert.Equal(t, []string{"summary"}, embed)
}

func TestDetectEmbedFields_NonStringColumnWithProseName(t *testing.T) {
	customer := fixtures(t)["Customer"]
	si := &fakeIntrospector{types: map[string]map[string]string{
		"customers": {"summary": "jsonb"},
	}}

	embed := DetectEmbedFields(context.Background(), customer, []string{"summary"}, nil, si)
	assert.Empty(t, embed)
}

func TestDetectEmbedFields_CountSuffixWithoutType(t *testing.T) {
	customer := fixtures(t)["Customer"]
	props := []string{"comments_count", "notes_total", "review_number", "summary"}

	embed := DetectEmbedFields(context.Background(), customer, props, nil, nil)
	assert.Equal(t, []string{"summary"}, embed)

	si := &fakeIntrospector{types: map[string]map[string]string{
		"customers": {"notes_total": "text"},
	}}
	embed = DetectEmbedFields(context.Background(), customer, []string{"notes_total"}, nil, si)
	assert.Equal(t, []string{"notes_total"}, embed)
}

func TestVectorMetadataFields(t *testing.T) {
	person := fixtures(t)["Person"]
	ctx := context.Background()

	props := DiscoverProperties(person, nil)
	rels := DiscoverRelationships(ctx, person, introspect.Nop{})
	embed := DetectEmbedFields(ctx, person, props, rels, introspect.Nop{})

	metadata := VectorMetadataFields(person, props, rels, embed)
	assert.Equal(t, []string{"id", "status", "team_id", "is_active", "role"}, metadata)
	for _, e := range embed {
		assert.NotContains(t, metadata, e)
	}
}

func TestMatchesName(t *testing.T) {
	assert.True(t, matchesName("bio", freeTextNames))
	assert.True(t, matchesName("short_description", freeTextNames))
	assert.True(t, matchesName("notes_internal", freeTextNames))
	assert.True(t, matchesName("ShortDescription", freeTextNames))
	assert.False(t, matchesName("biology_grade", freeTextNames))
	assert.False(t, matchesName("name", freeTextNames))
}
