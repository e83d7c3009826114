// Package cypher renders the small set of Cypher fragments the engine emits:
// literals, node patterns and bounded traversal paths.
package cypher

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/conduit-lang/scopegraph/internal/entity"
)

// Literal renders a Go value as a Cypher literal
func Literal(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(val) + "'"
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// Param renders a query parameter placeholder
func Param(name string) string {
	return "$" + strings.TrimPrefix(name, ":")
}

// Identifier renders a label, relationship type or property key, quoting it
// in backticks unless it is a plain identifier
func Identifier(name string) string {
	if isPlainIdentifier(name) {
		return name
	}
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func isPlainIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', unicode.IsLetter(r):
		case i > 0 && unicode.IsDigit(r):
		default:
			return false
		}
	}
	return true
}

// Property renders variable.key
func Property(variable, key string) string {
	return variable + "." + Identifier(key)
}

// Node renders a node pattern such as (n:Person)
func Node(variable, label string) string {
	if label == "" {
		return "(" + variable + ")"
	}
	return "(" + variable + ":" + Identifier(label) + ")"
}

// Edge renders a relationship pattern in the given direction
func Edge(label string, dir entity.Direction) string {
	rel := "[]"
	if label != "" {
		rel = "[:" + Identifier(label) + "]"
	}
	switch dir {
	case entity.DirectionIn:
		return "<-" + rel + "-"
	case entity.DirectionBoth:
		return "-" + rel + "-"
	default:
		return "-" + rel + "->"
	}
}

// Path renders a traversal from (n:label) along hops. The node reached by
// the last hop is bound to r, intermediate nodes to h1, h2, ...
func Path(label string, hops []entity.PathHop) string {
	var b strings.Builder
	b.WriteString(Node("n", label))
	for i, hop := range hops {
		variable := "r"
		if i < len(hops)-1 {
			variable = fmt.Sprintf("h%d", i+1)
		}
		b.WriteString(Edge(hop.EdgeLabel, hop.Direction))
		b.WriteString(Node(variable, hop.TargetLabel))
	}
	return b.String()
}

// Conditions renders variable.key = literal conditions joined by AND,
// in key order
func Conditions(variable string, filter map[string]any) string {
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, Property(variable, k)+" = "+Literal(filter[k]))
	}
	return strings.Join(parts, " AND ")
}

// Traversal renders the complete query for a relationship path:
// MATCH <path> [WHERE <filter>] RETURN [DISTINCT] n
func Traversal(label string, path *entity.RelationshipPath) string {
	var b strings.Builder
	b.WriteString("MATCH ")
	b.WriteString(Path(label, path.Hops))
	if len(path.Filter) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(Conditions("r", path.Filter))
	}
	if path.Distinct {
		b.WriteString(" RETURN DISTINCT n")
	} else {
		b.WriteString(" RETURN n")
	}
	return b.String()
}
