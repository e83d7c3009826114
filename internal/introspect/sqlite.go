package introspect

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLite reads column metadata through PRAGMA statements
type SQLite struct {
	db *sql.DB
}

// NewSQLite creates a SQLite source
func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

// Columns returns the columns of a table in declaration order
func (s *SQLite) Columns(ctx context.Context, collection string) ([]Column, error) {
	// PRAGMA arguments cannot be bound
	if !identifierPattern.MatchString(collection) {
		return nil, fmt.Errorf("invalid table name %q", collection)
	}

	foreignKeys, err := s.foreignKeys(ctx, collection)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info("%s")`, collection))
	if err != nil {
		return nil, fmt.Errorf("failed to read table info of %s: %w", collection, err)
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		var (
			cid, notNull, pk int
			name, colType    string
			defaultValue     sql.NullString
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultValue, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan table info of %s: %w", collection, err)
		}
		columns = append(columns, Column{Name: name, Type: colType, ForeignKey: foreignKeys[name]})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s not found", collection)
	}
	return columns, nil
}

func (s *SQLite) foreignKeys(ctx context.Context, collection string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`PRAGMA foreign_key_list("%s")`, collection))
	if err != nil {
		return nil, fmt.Errorf("failed to read foreign keys of %s: %w", collection, err)
	}
	defer rows.Close()

	result := make(map[string]bool)
	for rows.Next() {
		var (
			id, seq                       int
			table, from                   string
			to, onUpdate, onDelete, match sql.NullString
		)
		if err := rows.Scan(&id, &seq, &table, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return nil, fmt.Errorf("failed to scan foreign keys of %s: %w", collection, err)
		}
		result[from] = true
	}
	return result, rows.Err()
}
