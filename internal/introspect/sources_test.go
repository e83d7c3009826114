package introspect

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	_ "github.com/mattn/go-sqlite3"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgres_Columns(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.columns c")).
		WithArgs("people", sqlmock.AnyArg()).
		WillReturnRows(
			sqlmock.NewRows([]string{"column_name", "data_type", "is_foreign_key"}).
				AddRow("id", "bigint", false).
				AddRow("bio", "text", false).
				AddRow("team_id", "bigint", true),
		)

	columns, err := NewPostgres(db).Columns(context.Background(), "people")
	require.NoError(t, err)
	assert.Equal(t, []Column{
		{Name: "id", Type: "bigint"},
		{Name: "bio", Type: "text"},
		{Name: "team_id", Type: "bigint", ForeignKey: true},
	}, columns)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_MissingTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("information_schema").
		WithArgs("ghosts", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_foreign_key"}))

	_, err = NewPostgres(db, "public", "app").Columns(context.Background(), "ghosts")
	assert.Error(t, err)
}

func TestPostgres_QueryErrorDegradesToAbsent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	for i := 0; i < 2; i++ {
		mock.ExpectQuery("information_schema").
			WithArgs("people", sqlmock.AnyArg()).
			WillReturnError(errors.New("connection reset"))
	}

	c := NewCached(NewPostgres(db), Config{Retries: 1, BaseBackoff: 0}, nil)
	defer c.Close()

	_, ok := c.ColumnType(context.Background(), "people", "bio")
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func openSQLite(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// Every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE teams (id INTEGER PRIMARY KEY, name VARCHAR(255));
CREATE TABLE people (
    id INTEGER PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    bio TEXT,
    team_id INTEGER REFERENCES teams(id),
    created_at DATETIME
);`)
	require.NoError(t, err)
	return db
}

func TestSQLite_Columns(t *testing.T) {
	db := openSQLite(t)

	columns, err := NewSQLite(db).Columns(context.Background(), "people")
	require.NoError(t, err)
	require.Len(t, columns, 5)
	assert.Equal(t, Column{Name: "bio", Type: "TEXT"}, columns[2])
	assert.Equal(t, Column{Name: "team_id", Type: "INTEGER", ForeignKey: true}, columns[3])
}

func TestSQLite_ThroughCached(t *testing.T) {
	db := openSQLite(t)
	c := NewCached(NewSQLite(db), DefaultConfig(), nil)
	defer c.Close()
	ctx := context.Background()

	typ, ok := c.ColumnType(ctx, "people", "bio")
	require.True(t, ok)
	assert.Equal(t, "text", typ)
	assert.Equal(t, []string{"team_id"}, c.ForeignKeyColumns(ctx, "people"))
}

func TestSQLite_Errors(t *testing.T) {
	db := openSQLite(t)
	source := NewSQLite(db)

	_, err := source.Columns(context.Background(), `people"; DROP TABLE people; --`)
	assert.Error(t, err)

	_, err = source.Columns(context.Background(), "ghosts")
	assert.Error(t, err)
}

// fakeRunner returns canned node property rows
type fakeRunner struct {
	query  string
	params map[string]any
	result *neo4j.EagerResult
	err    error
}

func (f *fakeRunner) Run(_ context.Context, query string, params map[string]any) (*neo4j.EagerResult, error) {
	f.query = query
	f.params = params
	return f.result, f.err
}

func propertyRecord(name string, types ...any) *neo4j.Record {
	return &neo4j.Record{
		Keys:   []string{"propertyName", "propertyTypes"},
		Values: []any{name, types},
	}
}

func TestNeo4j_Columns(t *testing.T) {
	runner := &fakeRunner{result: &neo4j.EagerResult{
		Keys: []string{"propertyName", "propertyTypes"},
		Records: []*neo4j.Record{
			propertyRecord("bio", "String"),
			propertyRecord("age", "Long", "Double"),
			propertyRecord("bio", "String"),
		},
	}}

	columns, err := NewNeo4j(runner).Columns(context.Background(), "people")
	require.NoError(t, err)
	assert.Equal(t, []Column{
		{Name: "bio", Type: "string"},
		{Name: "age", Type: "long|double"},
	}, columns)
	assert.Equal(t, []any{"people", "Person"}, runner.params["labels"])
	assert.Contains(t, runner.query, "db.schema.nodeTypeProperties")
}

func TestNeo4j_Errors(t *testing.T) {
	_, err := NewNeo4j(&fakeRunner{err: errors.New("unavailable")}).Columns(context.Background(), "Person")
	assert.Error(t, err)

	empty := &fakeRunner{result: &neo4j.EagerResult{}}
	_, err = NewNeo4j(empty).Columns(context.Background(), "Person")
	assert.Error(t, err)
	assert.Equal(t, []any{"Person"}, empty.params["labels"])
}
