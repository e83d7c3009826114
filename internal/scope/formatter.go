package scope

import (
	"fmt"
	"sort"
	"strings"

	"github.com/conduit-lang/scopegraph/internal/cypher"
	"github.com/conduit-lang/scopegraph/internal/entity"
)

// Format renders detections into the pattern-tagged instruction block for
// the query generator. Entities keep detection order and scopes keep
// declaration order. Without detected scopes the result is empty.
//
// Relationship scopes are always rendered as a complete traversal; this is
// the only place scopes are turned into text.
func Format(detections []Detection) string {
	var b strings.Builder

	for _, d := range detections {
		if len(d.Scopes) == 0 {
			continue
		}
		if b.Len() == 0 {
			b.WriteString("## Business scopes\n")
			b.WriteString("The question refers to the following named scopes. Apply every scope that fits the question.\n")
		}

		fmt.Fprintf(&b, "\n### %s\n", d.Label)
		for _, m := range d.Scopes {
			b.WriteString("\n")
			formatScope(&b, d.Label, m.Spec)
		}
	}
	return b.String()
}

func formatScope(b *strings.Builder, label string, spec entity.ScopeSpec) {
	fmt.Fprintf(b, "[%s] %s", strings.ToUpper(string(spec.PatternType)), spec.Name)
	if spec.Description != "" {
		fmt.Fprintf(b, ": %s", spec.Description)
	}
	b.WriteString("\n")

	switch spec.PatternType {
	case entity.PatternSimple:
		fmt.Fprintf(b, "Filter: %s\n", cypher.Conditions("n", spec.Filter))

	case entity.PatternRelationship:
		if spec.Path == nil {
			return
		}
		path := *spec.Path
		path.Distinct = true
		fmt.Fprintf(b, "REQUIRED traversal. Use this exact pattern; do not replace it with a property filter on %s:\n", label)
		fmt.Fprintf(b, "  %s\n", cypher.Traversal(label, &path))
		fmt.Fprintf(b, "Return DISTINCT results: the traversal can reach the same %s more than once.\n", label)

	case entity.PatternComplex:
		if spec.Template == nil {
			return
		}
		b.WriteString("Template:\n")
		fmt.Fprintf(b, "  %s\n", spec.Template.Pattern)
		if len(spec.Template.Parameters) > 0 {
			params := make([]string, len(spec.Template.Parameters))
			for i, p := range spec.Template.Parameters {
				params[i] = cypher.Param(p)
			}
			fmt.Fprintf(b, "Parameters: %s\n", strings.Join(params, ", "))
		}
		fmt.Fprintf(b, "Modification hint: %s\n", spec.Template.ModificationHint)
	}
}

// FormatSchema renders the label, property and edge summary of configs
func FormatSchema(configs []*entity.Configuration) string {
	var b strings.Builder
	b.WriteString("## Graph schema\n")

	labels := make(map[string]bool, len(configs))
	for _, cfg := range configs {
		labels[cfg.Label] = true
	}

	for _, cfg := range configs {
		fmt.Fprintf(&b, "\n(:%s)", cfg.Label)
		if cfg.Description != "" {
			fmt.Fprintf(&b, " %s", cfg.Description)
		}
		b.WriteString("\n")

		if len(cfg.Properties) > 0 {
			props := make([]string, 0, len(cfg.Properties))
			for _, p := range cfg.Properties {
				if desc := cfg.PropertyDescriptions[p]; desc != "" {
					props = append(props, fmt.Sprintf("%s (%s)", p, desc))
				} else {
					props = append(props, p)
				}
			}
			fmt.Fprintf(&b, "  properties: %s\n", strings.Join(props, ", "))
		}

		edges := edgeLines(cfg, labels)
		for _, e := range edges {
			fmt.Fprintf(&b, "  %s\n", e)
		}
	}
	return b.String()
}

// edgeLines renders the edges an entity is the source of. Inverse
// relationships are rendered from the owning side only.
func edgeLines(cfg *entity.Configuration, labels map[string]bool) []string {
	var lines []string
	for _, rel := range cfg.OutboundRelationships() {
		if !labels[rel.TargetLabel] {
			continue
		}
		dir := entity.DirectionOut
		if rel.Type == entity.RelationPivot {
			dir = entity.DirectionBoth
		}
		line := cypher.Node("", cfg.Label) + cypher.Edge(rel.RelationName, dir) + cypher.Node("", rel.TargetLabel)
		if len(rel.Properties) > 0 {
			props := append([]string(nil), rel.Properties...)
			sort.Strings(props)
			line += " {" + strings.Join(props, ", ") + "}"
		}
		lines = append(lines, line)
	}
	return lines
}
