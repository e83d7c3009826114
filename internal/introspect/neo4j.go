package introspect

import (
	"context"
	"fmt"
	"strings"

	"github.com/conduit-lang/scopegraph/internal/model"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

const nodePropertiesQuery = `
CALL db.schema.nodeTypeProperties()
YIELD nodeLabels, propertyName, propertyTypes
WITH nodeLabels, propertyName, propertyTypes
WHERE any(l IN nodeLabels WHERE l IN $labels) AND propertyName IS NOT NULL
RETURN propertyName, propertyTypes
ORDER BY propertyName`

// Runner executes a Cypher query and buffers the result
type Runner interface {
	Run(ctx context.Context, query string, params map[string]any) (*neo4j.EagerResult, error)
}

// DriverRunner runs queries through the official driver
type DriverRunner struct {
	Driver   neo4j.DriverWithContext
	Database string
}

// NewDriverRunner connects to Neo4j with basic auth
func NewDriverRunner(uri, username, password, database string) (*DriverRunner, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("could not create neo4j driver: %w", err)
	}
	return &DriverRunner{Driver: driver, Database: database}, nil
}

// Run executes query with automatic session and transaction management
func (r *DriverRunner) Run(ctx context.Context, query string, params map[string]any) (*neo4j.EagerResult, error) {
	result, err := neo4j.ExecuteQuery(ctx, r.Driver, query, params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(r.Database),
		neo4j.ExecuteQueryWithReadersRouting(),
	)
	if err != nil {
		return nil, fmt.Errorf("error executing neo4j query: %w", err)
	}
	return result, nil
}

// Close closes the driver
func (r *DriverRunner) Close(ctx context.Context) error {
	return r.Driver.Close(ctx)
}

// Neo4j reads node property types for collections stored as graph labels
type Neo4j struct {
	runner Runner
}

// NewNeo4j creates a Neo4j source
func NewNeo4j(runner Runner) *Neo4j {
	return &Neo4j{runner: runner}
}

// Columns returns the properties of a node label. The collection name is
// matched against the label as given and in StudlyCase singular form.
func (n *Neo4j) Columns(ctx context.Context, collection string) ([]Column, error) {
	labels := []any{collection}
	if label := model.StudlyCase(model.Singularize(collection)); label != collection {
		labels = append(labels, label)
	}

	result, err := n.runner.Run(ctx, nodePropertiesQuery, map[string]any{"labels": labels})
	if err != nil {
		return nil, err
	}

	var columns []Column
	seen := make(map[string]bool)
	for _, record := range result.Records {
		name, _ := record.Get("propertyName")
		propertyName, ok := name.(string)
		if !ok || propertyName == "" || seen[propertyName] {
			continue
		}
		seen[propertyName] = true
		types, _ := record.Get("propertyTypes")
		columns = append(columns, Column{Name: propertyName, Type: neo4jType(types)})
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("label %s has no properties", collection)
	}
	return columns, nil
}

// neo4jType reduces the reported property types ("String", "Long", ...) to one lower-case name
func neo4jType(types any) string {
	list, ok := types.([]any)
	if !ok || len(list) == 0 {
		return ""
	}
	names := make([]string, 0, len(list))
	for _, t := range list {
		if s, ok := t.(string); ok {
			names = append(names, strings.ToLower(s))
		}
	}
	return strings.Join(names, "|")
}
