package discovery

import (
	"context"
	"sort"

	"github.com/conduit-lang/scopegraph/internal/entity"
	"github.com/conduit-lang/scopegraph/internal/introspect"
	"github.com/conduit-lang/scopegraph/internal/model"
)

// DiscoverRelationships converts declared relations into relationship
// descriptors. Only belongs_to relations (the side holding the foreign key)
// and pivot relations become edge sources; has_one/has_many are recorded as
// inbound metadata so the same edge is never declared from both ends.
func DiscoverRelationships(ctx context.Context, d model.Descriptor, si introspect.SchemaIntrospector) []entity.Relationship {
	relations := d.DeclaredRelations()
	result := make([]entity.Relationship, 0, len(relations))

	var fkColumns []string
	fkLoaded := false

	for _, rel := range relations {
		if rel.Name == "" || rel.Target == "" {
			continue
		}

		r := entity.Relationship{
			RelationName: edgeLabel(rel),
			TargetLabel:  model.ShortNameOf(rel.Target),
			ForeignKey:   rel.ForeignKey,
			Method:       rel.Name,
		}

		switch {
		case rel.Kind == model.RelationBelongsTo:
			r.Type = entity.RelationOutbound
			if r.ForeignKey == "" {
				if !fkLoaded && si != nil {
					fkColumns = si.ForeignKeyColumns(ctx, d.CollectionName())
					fkLoaded = true
				}
				r.ForeignKey = resolveForeignKey(rel.Name, fkColumns, d.FillableFields())
			}
		case rel.Kind.IsInverse():
			r.Type = entity.RelationInbound
			if rel.EdgeLabel == "" {
				// The edge is declared by the owning side's belongs_to
				r.RelationName = model.UpperSnake(d.ShortName())
			}
		case rel.Kind.IsPivot():
			r.Type = entity.RelationPivot
			r.Pivot = rel.Pivot
			if r.Pivot == "" {
				r.Pivot = pivotLabel(d.ShortName(), r.TargetLabel)
			}
			if len(rel.PivotFields) > 0 {
				r.Properties = append([]string(nil), rel.PivotFields...)
			}
		default:
			continue
		}

		result = append(result, r)
	}
	return result
}

// edgeLabel returns the declared edge label or UPPER_SNAKE of the method name
func edgeLabel(rel model.RelationMethod) string {
	if rel.EdgeLabel != "" {
		return rel.EdgeLabel
	}
	return model.UpperSnake(rel.Name)
}

// resolveForeignKey looks for {relation}_id among the introspected foreign
// key columns, then among the fillable fields
func resolveForeignKey(relationName string, fkColumns, fillable []string) string {
	want := model.SnakeCase(relationName) + "_id"
	for _, c := range fkColumns {
		if c == want {
			return want
		}
	}
	for _, f := range fillable {
		if f == want {
			return want
		}
	}
	return ""
}

// pivotLabel is the conventional pivot name: both labels, sorted, joined
func pivotLabel(a, b string) string {
	labels := []string{a, b}
	sort.Strings(labels)
	return labels[0] + labels[1]
}
