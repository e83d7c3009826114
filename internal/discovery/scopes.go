package discovery

import (
	"fmt"
	"strings"

	"github.com/conduit-lang/scopegraph/internal/cypher"
	"github.com/conduit-lang/scopegraph/internal/entity"
	"github.com/conduit-lang/scopegraph/internal/model"
)

// ScopeOptions configures scope discovery
type ScopeOptions struct {
	// GenerateExamples fills in examples for scopes that declare none.
	// When false such scopes are rejected as undetectable.
	GenerateExamples bool
}

// ScopeName returns the scope name for a predicate method name:
// ScopeActiveVolunteers and scopeActiveVolunteers give active_volunteers.
// Names without the prefix are used as they are.
func ScopeName(method string) string {
	name := method
	if len(method) > len(model.ScopeMethodPrefix) && strings.EqualFold(method[:len(model.ScopeMethodPrefix)], model.ScopeMethodPrefix) {
		name = method[len(model.ScopeMethodPrefix):]
	}
	return model.SnakeCase(name)
}

// DiscoverScopes classifies the declared predicates of d into scopes.
// Predicates that fit no pattern, or whose scope violates the scope
// invariants, are dropped and reported as warnings.
func DiscoverScopes(d model.Descriptor, rels []entity.Relationship, opts ScopeOptions) ([]entity.ScopeSpec, []Warning) {
	scopes := make([]entity.ScopeSpec, 0)
	var warnings []Warning
	seen := make(map[string]bool)

	for _, pred := range d.DeclaredPredicates() {
		name := ScopeName(pred.Name)
		if name == "" {
			continue
		}
		if seen[name] {
			warnings = append(warnings, Warning{Kind: WarnInvalidScope, Entity: d.ShortName(), Scope: name, Message: "duplicate scope name"})
			continue
		}

		spec, err := classify(d, name, pred, rels)
		if err != nil {
			warnings = append(warnings, Warning{Kind: WarnUnclassifiableScope, Entity: d.ShortName(), Scope: name, Message: err.Error()})
			continue
		}

		spec.Examples = append([]string(nil), pred.Examples...)
		if len(spec.Examples) == 0 && opts.GenerateExamples {
			spec.Examples = GenerateExamples(name, d.ShortName())
		}

		if err := spec.Validate(); err != nil {
			warnings = append(warnings, Warning{Kind: WarnInvalidScope, Entity: d.ShortName(), Scope: name, Message: err.Error()})
			continue
		}

		seen[name] = true
		scopes = append(scopes, spec)
	}
	return scopes, warnings
}

// GenerateExamples returns the default sample questions for a scope
func GenerateExamples(scope, label string) []string {
	words := strings.Join(model.Words(scope), " ")
	plural := strings.ToLower(strings.Join(model.Words(model.Pluralize(label)), " "))
	return []string{
		fmt.Sprintf("Show %s %s", words, plural),
		fmt.Sprintf("How many %s %s are there?", words, plural),
	}
}

// classify reduces a predicate to one of the three pattern types
func classify(d model.Descriptor, name string, pred model.PredicateMethod, rels []entity.Relationship) (entity.ScopeSpec, error) {
	conds, err := parseExpression(pred.Expression)
	if err != nil {
		return entity.ScopeSpec{}, fmt.Errorf("cannot parse %q: %w", pred.Expression, err)
	}

	spec := entity.ScopeSpec{Name: name, Description: pred.Description}

	var has []condition
	var entityConds []condition
	complexNeeded := len(pred.Parameters) > 0
	for _, c := range conds {
		switch c.Kind {
		case condHas:
			has = append(has, c)
			for _, w := range c.Where {
				if w.Kind != condEquality || w.Value.isParam() {
					complexNeeded = true
				}
			}
		case condAggregate:
			complexNeeded = true
		case condCompare:
			complexNeeded = true
			entityConds = append(entityConds, c)
		case condEquality:
			if c.Value.isParam() {
				complexNeeded = true
			}
			entityConds = append(entityConds, c)
		}
	}

	switch {
	case complexNeeded:
		spec.PatternType = entity.PatternComplex
		spec.Template = complexTemplate(d, pred, conds, rels)

	case len(has) == 0:
		spec.PatternType = entity.PatternSimple
		spec.Filter = make(map[string]any, len(entityConds))
		for _, c := range entityConds {
			spec.Filter[c.Field] = c.Value.Literal
		}

	case len(has) == 1:
		rel, ok := findRelationship(rels, has[0].Path[0])
		if !ok {
			return entity.ScopeSpec{}, fmt.Errorf("%q is not a declared relation", has[0].Path[0])
		}
		spec.PatternType = entity.PatternRelationship
		spec.Path = &entity.RelationshipPath{
			Hops:     hopsFor(rel, has[0].Path[1:]),
			Filter:   whereFilter(has[0].Where),
			Distinct: true,
		}
		if len(entityConds) > 0 && spec.Description == "" {
			spec.Description = "Also requires " + describeConditions(entityConds)
		}

	default:
		return entity.ScopeSpec{}, fmt.Errorf("traverses %d relations; only one is supported", len(has))
	}

	if spec.Description == "" {
		spec.Description = fmt.Sprintf("%s where %s", model.Pluralize(d.ShortName()), pred.Expression)
	}
	return spec, nil
}

// findRelationship matches a relation name against the declaring method or the edge label
func findRelationship(rels []entity.Relationship, name string) (entity.Relationship, bool) {
	for _, r := range rels {
		if r.Method == name || model.SnakeCase(r.Method) == model.SnakeCase(name) || strings.EqualFold(r.RelationName, model.UpperSnake(name)) {
			return r, true
		}
	}
	return entity.Relationship{}, false
}

// hopsFor builds the traversal for a declared relationship followed by
// nested relation names, whose edges and labels follow naming conventions
func hopsFor(rel entity.Relationship, nested []string) []entity.PathHop {
	dir := entity.DirectionOut
	switch rel.Type {
	case entity.RelationInbound:
		dir = entity.DirectionIn
	case entity.RelationPivot:
		dir = entity.DirectionBoth
	}

	hops := []entity.PathHop{{EdgeLabel: rel.RelationName, TargetLabel: rel.TargetLabel, Direction: dir}}
	for _, seg := range nested {
		hops = append(hops, entity.PathHop{
			EdgeLabel:   model.UpperSnake(seg),
			TargetLabel: model.StudlyCase(model.Singularize(model.SnakeCase(seg))),
			Direction:   entity.DirectionOut,
		})
	}
	return hops
}

func whereFilter(where []condition) map[string]any {
	if len(where) == 0 {
		return nil
	}
	filter := make(map[string]any, len(where))
	for _, w := range where {
		filter[w.Field] = w.Value.Literal
	}
	return filter
}

func describeConditions(conds []condition) string {
	parts := make([]string, 0, len(conds))
	for _, c := range conds {
		parts = append(parts, c.Field+" "+c.Op+" "+renderValue(c.Value))
	}
	return strings.Join(parts, " and ")
}

func renderValue(v value) string {
	if v.isParam() {
		return cypher.Param(v.Param)
	}
	return cypher.Literal(v.Literal)
}

// complexTemplate returns the declared template, or one generated from the
// conditions when every traversal resolves to a declared relation. A template
// with an empty pattern is rejected by scope validation.
func complexTemplate(d model.Descriptor, pred model.PredicateMethod, conds []condition, rels []entity.Relationship) *entity.Template {
	tmpl := &entity.Template{
		Pattern:          pred.Template,
		ModificationHint: pred.ModificationHint,
		Parameters:       parameterNames(pred, conds),
	}
	if tmpl.Pattern == "" {
		tmpl.Pattern = generatePattern(d.ShortName(), conds, rels)
	}
	if tmpl.ModificationHint == "" {
		tmpl.ModificationHint = modificationHint(tmpl.Parameters, conds)
	}
	return tmpl
}

func parameterNames(pred model.PredicateMethod, conds []condition) []string {
	var names []string
	seen := make(map[string]bool)
	add := func(n string) {
		n = strings.TrimPrefix(n, ":")
		if n != "" && !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	for _, p := range pred.Parameters {
		add(p)
	}
	for _, c := range conds {
		add(c.Value.Param)
		for _, w := range c.Where {
			add(w.Value.Param)
		}
	}
	return names
}

func modificationHint(params []string, conds []condition) string {
	if len(params) > 0 {
		placeholders := make([]string, len(params))
		for i, p := range params {
			placeholders[i] = cypher.Param(p)
		}
		return fmt.Sprintf("Adjust the parameter values (%s) to match the question", strings.Join(placeholders, ", "))
	}
	var thresholds []string
	for _, c := range conds {
		if c.Kind == condAggregate || c.Kind == condCompare {
			thresholds = append(thresholds, renderValue(c.Value))
		}
	}
	if len(thresholds) > 0 {
		return fmt.Sprintf("Adjust the threshold value (%s) to match the question", strings.Join(thresholds, ", "))
	}
	return "Adjust the filter values to match the question"
}

// generatePattern builds a query for at most one traversal and at most one
// aggregate. Anything larger needs a declared template.
func generatePattern(label string, conds []condition, rels []entity.Relationship) string {
	var traversal *condition
	var aggregate *condition
	var nodeConds, relConds []string

	for i := range conds {
		c := &conds[i]
		switch c.Kind {
		case condHas:
			if traversal != nil {
				return ""
			}
			traversal = c
			for _, w := range c.Where {
				relConds = append(relConds, cypher.Property("r", w.Field)+" "+w.Op+" "+renderValue(w.Value))
			}
		case condAggregate:
			if aggregate != nil {
				return ""
			}
			aggregate = c
		default:
			nodeConds = append(nodeConds, cypher.Property("n", c.Field)+" "+c.Op+" "+renderValue(c.Value))
		}
	}

	if traversal != nil && aggregate != nil && traversal.Path[0] != aggregate.Path[0] {
		return ""
	}

	var path []string
	switch {
	case traversal != nil:
		path = traversal.Path
	case aggregate != nil:
		path = aggregate.Path
		if len(path) > 1 {
			path = path[:len(path)-1]
		}
	}

	var hops []entity.PathHop
	if len(path) > 0 {
		rel, ok := findRelationship(rels, path[0])
		if !ok {
			return ""
		}
		hops = hopsFor(rel, path[1:])
	}

	var b strings.Builder
	b.WriteString("MATCH ")
	b.WriteString(cypher.Path(label, hops))

	where := append(nodeConds, relConds...)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}

	if aggregate != nil {
		target := "r"
		if len(aggregate.Path) > 1 && !(traversal != nil && len(aggregate.Path) == len(traversal.Path)) {
			target = "r." + aggregate.Path[len(aggregate.Path)-1]
		}
		alias := model.SnakeCase(strings.Join(aggregate.Path, "_")) + "_" + aggregate.Func
		fmt.Fprintf(&b, " WITH n, %s(%s) AS %s WHERE %s %s %s RETURN n",
			aggregate.Func, target, alias, alias, aggregate.Op, renderValue(aggregate.Value))
		return b.String()
	}

	if len(hops) > 0 {
		b.WriteString(" RETURN DISTINCT n")
	} else {
		b.WriteString(" RETURN n")
	}
	return b.String()
}
