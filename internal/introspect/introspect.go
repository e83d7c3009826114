// Package introspect queries the storage schema behind an entity's collection
// (column types, foreign key columns) so discovery heuristics can be checked
// against the real database. Results are cached per collection.
package introspect

import (
	"context"
	"strings"
)

// Column is one column (or node property) of a collection
type Column struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	ForeignKey bool   `json:"foreign_key"`
}

// Source reads the column list of one collection from a live database
type Source interface {
	Columns(ctx context.Context, collection string) ([]Column, error)
}

// SchemaIntrospector answers schema questions for discovery. A failed
// lookup is reported as absent, never as an error.
type SchemaIntrospector interface {
	// ColumnType returns the lower-cased storage type of a column
	ColumnType(ctx context.Context, collection, column string) (string, bool)
	// ForeignKeyColumns returns the foreign key columns of a collection
	ForeignKeyColumns(ctx context.Context, collection string) []string
	// ClearCache drops the cached schema of one collection
	ClearCache(collection string)
	// ClearAll drops every cached schema
	ClearAll()
}

// Nop is an introspector without a database: every lookup is absent
type Nop struct{}

func (Nop) ColumnType(context.Context, string, string) (string, bool) { return "", false }
func (Nop) ForeignKeyColumns(context.Context, string) []string        { return nil }
func (Nop) ClearCache(string)                                         {}
func (Nop) ClearAll()                                                 {}

// IsFreeTextType returns true for column types that hold long-form text
func IsFreeTextType(columnType string) bool {
	switch strings.ToLower(columnType) {
	case "text", "tinytext", "mediumtext", "longtext", "clob", "ntext":
		return true
	default:
		return false
	}
}

// foreignKeyColumns returns flagged foreign keys plus columns named *_id, in column order
func foreignKeyColumns(columns []Column) []string {
	result := []string{}
	for _, c := range columns {
		if c.ForeignKey || (strings.HasSuffix(c.Name, "_id") && len(c.Name) > 3) {
			result = append(result, c.Name)
		}
	}
	return result
}
