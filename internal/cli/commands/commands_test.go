package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/conduit-lang/scopegraph/internal/config"
	"github.com/conduit-lang/scopegraph/internal/generator"
	"github.com/conduit-lang/scopegraph/internal/ops"
	"github.com/conduit-lang/scopegraph/internal/resolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
discovery:
  static_table: entities.yml
  cache:
    backend: memory
models:
  manifest: models.yml
log:
  level: error
ops:
  jwt_secret: 0123456789abcdef0123
`

const testModels = `
models:
  - name: app/models.Person
    fillable: [name, email, bio, status, team_id]
    casts: {bio: text}
    relations:
      - {name: team, kind: belongs_to, target: app/models.Team}
      - {name: roles, kind: has_many, target: app/models.PersonTeam, edge_label: HAS_ROLE}
    predicates:
      - {name: scopeActive, expression: "status = 'active'"}
      - {name: scopeVolunteers, expression: "has roles where role_type = 'volunteer'", examples: ["How many volunteers do we have?"]}
  - name: app/models.Team
    fillable: [name]
  - name: app/models.PersonTeam
    fillable: [person_id, team_id, role_type]
`

const testEntities = `
entities:
  Team:
    properties: [id, name, motto]
    aliases: [team, teams]
`

func writeProject(t *testing.T) string {
	t.Helper()
	return writeProjectWith(t, testConfig)
}

func writeProjectWith(t *testing.T, configYAML string) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"scopegraph.yml": configYAML,
		"models.yml":     testModels,
		"entities.yml":   testEntities,
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return filepath.Join(dir, "scopegraph.yml")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestPreviewCommand_JSON(t *testing.T) {
	configPath := writeProject(t)

	out, err := run(t, "preview", "Person", "--config", configPath, "--format", "json")
	require.NoError(t, err)

	var got struct {
		Entity string `json:"entity"`
		Config struct {
			Label       string   `json:"label"`
			Properties  []string `json:"properties"`
			EmbedFields []string `json:"embed_fields"`
		} `json:"config"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "app/models.Person", got.Entity)
	assert.Equal(t, "Person", got.Config.Label)
	assert.Contains(t, got.Config.Properties, "email")
	assert.Equal(t, []string{"bio"}, got.Config.EmbedFields)
}

func TestPreviewCommand_Table(t *testing.T) {
	configPath := writeProject(t)

	out, err := run(t, "preview", "app/models.Person", "--config", configPath, "--no-color")
	require.NoError(t, err)
	assert.Contains(t, out, "app/models.Person (discovered)")
	assert.Contains(t, out, "Properties:")
	assert.Contains(t, out, "Relationships")
	assert.Contains(t, out, "volunteers")
}

func TestPreviewCommand_Resolved(t *testing.T) {
	configPath := writeProject(t)

	out, err := run(t, "preview", "Team", "--resolved", "--config", configPath, "--format", "json")
	require.NoError(t, err)

	var got resolver.Resolution
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, resolver.SourceStatic, got.Source)
	assert.Equal(t, []string{"id", "name", "motto"}, got.Graph.Properties)
	assert.Nil(t, got.Vector)
}

func TestPreviewCommand_UnknownEntity(t *testing.T) {
	configPath := writeProject(t)

	_, err := run(t, "preview", "Ghost", "--config", configPath)
	require.Error(t, err)
	assert.ErrorIs(t, err, resolver.ErrUnknownEntity)
}

func TestPreviewCommand_Suggestions(t *testing.T) {
	configPath := writeProject(t)

	cmd := NewRootCommand()
	var stderr bytes.Buffer
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"preview", "Persn", "--config", configPath, "--no-color"})

	err := cmd.Execute()
	assert.ErrorIs(t, err, resolver.ErrUnknownEntity)
	assert.Contains(t, stderr.String(), "UNKNOWN ENTITY: Persn")
	assert.Contains(t, stderr.String(), "Did you mean: Person?")
}

func TestCompareCommand(t *testing.T) {
	configPath := writeProject(t)

	out, err := run(t, "compare", "Team", "--config", configPath, "--format", "json")
	require.NoError(t, err)

	var got resolver.Comparison
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.True(t, got.HasStatic)
	for _, f := range got.Fields {
		if f.Field == "properties" {
			assert.Equal(t, []string{"motto"}, f.OnlyStatic)
		}
	}

	out, err = run(t, "compare", "Team", "--config", configPath, "--no-color")
	require.NoError(t, err)
	assert.Contains(t, out, "differs")
}

// startOpsServer serves the project's ops API the way 'scopegraph serve' does
func startOpsServer(t *testing.T, configPath string) string {
	t.Helper()
	app, err := newApp(configPath)
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })

	server := ops.New(app.Resolver, app.Registry, ops.WithAuth(app.Config.Ops.JWTSecret))
	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestCacheCommands_ProcessLocalCache(t *testing.T) {
	configPath := writeProject(t)

	for _, args := range [][]string{
		{"cache", "list"},
		{"cache", "warm"},
		{"cache", "clear", "--yes"},
	} {
		cmd := NewRootCommand()
		var stderr bytes.Buffer
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&stderr)
		cmd.SetArgs(append(args, "--config", configPath, "--no-color"))

		err := cmd.Execute()
		assert.ErrorIs(t, err, ErrProcessLocalCache, "%v", args)
		assert.Contains(t, stderr.String(), "PROCESS-LOCAL CACHE")
		assert.Contains(t, stderr.String(), "--server")
	}
}

func TestCacheWarmCommand(t *testing.T) {
	configPath := writeProject(t)
	server := startOpsServer(t, configPath)

	out, err := run(t, "cache", "warm", "--server", server, "--config", configPath, "--format", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"warmed":2}`, out)

	out, err = run(t, "cache", "warm", "Person", "--server", server, "--config", configPath, "--no-color")
	require.NoError(t, err)
	assert.Contains(t, out, "Warmed 1 of 1 entities")
}

func TestCacheListCommand(t *testing.T) {
	configPath := writeProject(t)
	server := startOpsServer(t, configPath)

	out, err := run(t, "cache", "list", "--server", server, "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Discovery cache is empty")

	_, err = run(t, "cache", "warm", "Person", "--server", server, "--config", configPath)
	require.NoError(t, err)

	out, err = run(t, "cache", "list", "--server", server, "--config", configPath, "--format", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"entities":["app/models.Person"]}`, out)
}

func TestCacheClearCommand(t *testing.T) {
	configPath := writeProject(t)
	server := startOpsServer(t, configPath)

	asked := 0
	original := confirm
	confirm = func(string) (bool, error) {
		asked++
		return false, nil
	}
	defer func() { confirm = original }()

	out, err := run(t, "cache", "clear", "--server", server, "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Aborted")
	assert.Equal(t, 1, asked)

	_, err = run(t, "cache", "warm", "--server", server, "--config", configPath)
	require.NoError(t, err)

	out, err = run(t, "cache", "clear", "Person", "--server", server, "--config", configPath, "--format", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"cleared":["app/models.Person"],"all":false}`, out)

	out, err = run(t, "cache", "list", "--server", server, "--config", configPath, "--format", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"entities":["app/models.PersonTeam"]}`, out)

	out, err = run(t, "cache", "clear", "--yes", "--server", server, "--config", configPath, "--no-color")
	require.NoError(t, err)
	assert.Contains(t, out, "Discovery cache cleared")
	assert.Equal(t, 1, asked)
}

func TestCacheCommands_SharedRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	configPath := writeProjectWith(t, strings.Replace(testConfig, "backend: memory",
		"backend: redis\n    redis:\n      addr: "+mr.Addr(), 1))

	out, err := run(t, "cache", "warm", "--config", configPath, "--format", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"warmed":2}`, out)

	// A separate invocation sees what the previous one cached
	out, err = run(t, "cache", "list", "--config", configPath, "--format", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"entities":["app/models.Person","app/models.PersonTeam"]}`, out)

	out, err = run(t, "cache", "clear", "--yes", "--config", configPath, "--format", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"cleared":[],"all":true}`, out)

	out, err = run(t, "cache", "list", "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Discovery cache is empty")
}

func TestDetectCommand(t *testing.T) {
	configPath := writeProject(t)

	out, err := run(t, "detect", "How many volunteers do we have?", "--config", configPath, "--no-color")
	require.NoError(t, err)
	assert.Contains(t, out, "volunteers (relationship)")
	assert.Contains(t, out, "[RELATIONSHIP] volunteers")
	assert.Contains(t, out, "RETURN DISTINCT n")

	out, err = run(t, "detect", "What is the weather?", "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No entities detected")
}

type stubText struct{}

func (stubText) Generate(context.Context, string) (string, error) {
	return "```cypher\nMATCH (n:Team) RETURN count(n)\n```", nil
}

func TestDetectCommand_Generate(t *testing.T) {
	configPath := writeProject(t)

	original := newTextGenerator
	newTextGenerator = func(*App) (generator.TextGenerator, error) { return stubText{}, nil }
	defer func() { newTextGenerator = original }()

	out, err := run(t, "detect", "How many teams are there?", "--generate", "--config", configPath, "--format", "json")
	require.NoError(t, err)

	var got generator.Result
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "MATCH (n:Team) RETURN count(n)", got.Query)
	require.Len(t, got.Detections, 1)
	assert.Equal(t, "Team", got.Detections[0].Label)
}

func TestTokenCommand(t *testing.T) {
	configPath := writeProject(t)

	out, err := run(t, "token", "--subject", "ci", "--config", configPath)
	require.NoError(t, err)

	subject, err := ops.NewAuthService("0123456789abcdef0123").ValidateToken(string(bytes.TrimSpace([]byte(out))))
	require.NoError(t, err)
	assert.Equal(t, "ci", subject)
}

func TestLoadApp_MissingManifest(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "scopegraph.yml")
	require.NoError(t, os.WriteFile(configPath, []byte("models:\n  manifest: missing.yml\nlog:\n  level: error\n"), 0o644))

	_, err := run(t, "preview", "Person", "--config", configPath)
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	logger, err := newLogger(config.Log{Level: "debug", Development: true})
	require.NoError(t, err)
	assert.NotNil(t, logger)

	_, err = newLogger(config.Log{Level: "loud"})
	assert.Error(t, err)
}
