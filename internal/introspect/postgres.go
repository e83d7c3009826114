package introspect

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

const postgresColumnsQuery = `
SELECT c.column_name, c.data_type,
       EXISTS (
           SELECT 1
           FROM information_schema.key_column_usage k
           JOIN information_schema.table_constraints tc
             ON tc.constraint_name = k.constraint_name
            AND tc.table_schema = k.table_schema
           WHERE tc.constraint_type = 'FOREIGN KEY'
             AND k.table_schema = c.table_schema
             AND k.table_name = c.table_name
             AND k.column_name = c.column_name
       ) AS is_foreign_key
FROM information_schema.columns c
WHERE c.table_name = $1
  AND c.table_schema = ANY($2)
ORDER BY c.ordinal_position`

// Postgres reads column metadata from information_schema
type Postgres struct {
	db      *sql.DB
	schemas []string
}

// NewPostgres creates a Postgres source searching the given schemas
func NewPostgres(db *sql.DB, schemas ...string) *Postgres {
	if len(schemas) == 0 {
		schemas = []string{"public"}
	}
	return &Postgres{db: db, schemas: schemas}
}

// Columns returns the columns of a table in ordinal order
func (p *Postgres) Columns(ctx context.Context, collection string) ([]Column, error) {
	rows, err := p.db.QueryContext(ctx, postgresColumnsQuery, collection, pq.Array(p.schemas))
	if err != nil {
		return nil, fmt.Errorf("failed to query columns of %s: %w", collection, err)
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		var col Column
		if err := rows.Scan(&col.Name, &col.Type, &col.ForeignKey); err != nil {
			return nil, fmt.Errorf("failed to scan column of %s: %w", collection, err)
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns of %s: %w", collection, err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s not found", collection)
	}
	return columns, nil
}
