package discovery

import (
	"context"
	"strings"

	"github.com/conduit-lang/scopegraph/internal/entity"
	"github.com/conduit-lang/scopegraph/internal/introspect"
	"github.com/conduit-lang/scopegraph/internal/model"
)

// freeTextNames are field names that usually hold prose
var freeTextNames = []string{
	"description", "bio", "biography", "notes", "note", "content", "summary",
	"body", "text", "comment", "comments", "about", "details", "abstract",
	"message", "excerpt", "overview", "remarks", "review", "instructions",
	"story", "narrative", "feedback",
}

// countSuffixes mark numeric fields whose names otherwise look like prose
// (comments_count, notes_total)
var countSuffixes = []string{"count", "total", "number", "num", "sum", "amount", "size"}

// metadataNames are low-cardinality fields worth filtering vector results on
var metadataNames = []string{
	"status", "type", "category", "kind", "role", "state", "level", "priority", "tier",
}

// matchesName returns true if field equals one of names or uses one of them
// as a prefix or suffix word (short_description, notes_internal)
func matchesName(field string, names []string) bool {
	snake := model.SnakeCase(field)
	for _, n := range names {
		if snake == n || strings.HasSuffix(snake, "_"+n) || strings.HasPrefix(snake, n+"_") {
			return true
		}
	}
	return false
}

// hasCountSuffix returns true if the last word of field is count-like
func hasCountSuffix(field string) bool {
	snake := model.SnakeCase(field)
	for _, suffix := range countSuffixes {
		if strings.HasSuffix(snake, "_"+suffix) {
			return true
		}
	}
	return false
}

// isStringColumn returns true for character column types
func isStringColumn(columnType string) bool {
	t := strings.ToLower(columnType)
	return strings.Contains(t, "char") || strings.Contains(t, "text") ||
		strings.Contains(t, "string") || strings.Contains(t, "clob")
}

// DetectEmbedFields selects the properties suitable for text embedding.
// A property qualifies when it is string-typed and either its name or its
// cast/column type marks it as free text. Primary keys, foreign keys and
// timestamps never qualify; numeric and boolean casts are always excluded.
// Without column information the decision falls back to names and casts.
func DetectEmbedFields(ctx context.Context, d model.Descriptor, props []string, rels []entity.Relationship, si introspect.SchemaIntrospector) []string {
	casts := d.CastFields()
	excluded := keyFields(d, rels)
	for _, ts := range d.TimestampFields() {
		excluded[ts] = true
	}

	result := make([]string, 0)
	for _, p := range props {
		if excluded[p] {
			continue
		}

		cast := casts[p]
		if cast.IsNumeric() || cast.IsBool() || cast.IsTemporal() {
			continue
		}

		var columnType string
		var haveColumn bool
		if si != nil {
			columnType, haveColumn = si.ColumnType(ctx, d.CollectionName(), p)
		}

		var stringTyped bool
		switch {
		case cast != "":
			stringTyped = cast.IsText()
		case haveColumn:
			stringTyped = isStringColumn(columnType)
		default:
			stringTyped = !hasCountSuffix(p)
		}
		if !stringTyped {
			continue
		}

		nameSignal := matchesName(p, freeTextNames)
		freeText := cast.IsFreeText() || (haveColumn && introspect.IsFreeTextType(columnType))
		if nameSignal || freeText {
			result = append(result, p)
		}
	}
	return result
}

// VectorMetadataFields selects the properties stored alongside embeddings:
// the primary key, outbound foreign keys, enum and boolean casts and
// status-like fields, excluding the embed fields themselves.
func VectorMetadataFields(d model.Descriptor, props []string, rels []entity.Relationship, embed []string) []string {
	isEmbed := make(map[string]bool, len(embed))
	for _, e := range embed {
		isEmbed[e] = true
	}
	fks := make(map[string]bool)
	for _, r := range rels {
		if r.IsEdgeSource() && r.ForeignKey != "" {
			fks[r.ForeignKey] = true
		}
	}
	casts := d.CastFields()

	result := make([]string, 0)
	pk := d.PrimaryKey()
	if pk == "id" || containsString(props, pk) {
		result = append(result, pk)
	}
	for _, p := range props {
		if p == pk || isEmbed[p] {
			continue
		}
		cast := casts[p]
		if fks[p] || cast == model.CastEnum || cast.IsBool() || matchesName(p, metadataNames) {
			result = append(result, p)
		}
	}
	return result
}

// keyFields returns the primary key, the foreign keys of rels and *_id fields
func keyFields(d model.Descriptor, rels []entity.Relationship) map[string]bool {
	keys := make(map[string]bool)
	if pk := d.PrimaryKey(); pk != "" {
		keys[pk] = true
	}
	keys["id"] = true
	for _, r := range rels {
		if r.ForeignKey != "" {
			keys[r.ForeignKey] = true
		}
	}
	for _, f := range d.FillableFields() {
		if strings.HasSuffix(f, "_id") {
			keys[f] = true
		}
	}
	return keys
}

func containsString(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
