package generator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/conduit-lang/scopegraph/internal/config"
	"github.com/conduit-lang/scopegraph/internal/entity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeText struct {
	out    string
	err    error
	prompt string
}

func (f *fakeText) Generate(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.out, f.err
}

func testConfigs() []*entity.Configuration {
	person := entity.NewConfiguration("Person")
	person.Properties = []string{"id", "name"}
	person.Aliases = []string{"person", "people"}
	person.Scopes = []entity.ScopeSpec{
		{
			Name:        "volunteers",
			PatternType: entity.PatternRelationship,
			Path: &entity.RelationshipPath{
				Hops:   []entity.PathHop{{EdgeLabel: "HAS_ROLE", TargetLabel: "PersonTeam", Direction: entity.DirectionIn}},
				Filter: map[string]any{"role_type": "volunteer"},
			},
			Examples: []string{"How many volunteers do we have?"},
		},
	}
	return []*entity.Configuration{person}
}

func TestGenerate(t *testing.T) {
	text := &fakeText{out: "```cypher\nMATCH (n:Person)<-[:HAS_ROLE]-(r:PersonTeam) WHERE r.role_type = 'volunteer' RETURN count(DISTINCT n)\n```"}
	g := New(text, nil)

	res, err := g.Generate(context.Background(), "How many volunteers do we have?", testConfigs())
	require.NoError(t, err)

	assert.Equal(t, "MATCH (n:Person)<-[:HAS_ROLE]-(r:PersonTeam) WHERE r.role_type = 'volunteer' RETURN count(DISTINCT n)", res.Query)
	_, err = uuid.Parse(res.RequestID)
	assert.NoError(t, err)
	require.Len(t, res.Detections, 1)
	assert.Equal(t, "Person", res.Detections[0].Label)
	assert.Equal(t, text.prompt, res.Prompt)

	assert.Contains(t, res.Prompt, "(:Person)")
	assert.Contains(t, res.Prompt, "[RELATIONSHIP] volunteers")
	assert.True(t, strings.HasSuffix(res.Prompt, "## Question\nHow many volunteers do we have?\n"))
}

func TestGenerate_NoScopes(t *testing.T) {
	text := &fakeText{out: "MATCH (n:Person) RETURN n"}
	res, err := New(text, nil).Generate(context.Background(), "List people", testConfigs())
	require.NoError(t, err)

	assert.Equal(t, "MATCH (n:Person) RETURN n", res.Query)
	assert.NotContains(t, res.Prompt, "Business scopes")
}

func TestGenerate_Errors(t *testing.T) {
	_, err := New(&fakeText{}, nil).Generate(context.Background(), "   ", testConfigs())
	assert.ErrorIs(t, err, ErrEmptyQuestion)

	boom := errors.New("boom")
	_, err = New(&fakeText{err: boom}, nil).Generate(context.Background(), "List people", testConfigs())
	assert.ErrorIs(t, err, boom)

	_, err = New(&fakeText{out: "```\n```"}, nil).Generate(context.Background(), "List people", testConfigs())
	assert.Error(t, err)
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "  MATCH (n) RETURN n \n", "MATCH (n) RETURN n"},
		{"fenced", "```\nMATCH (n) RETURN n\n```", "MATCH (n) RETURN n"},
		{"fenced with language", "```cypher\nMATCH (n)\nRETURN n\n```\n", "MATCH (n)\nRETURN n"},
		{"unterminated", "```cypher\nMATCH (n) RETURN n", "MATCH (n) RETURN n"},
		{"fence only", "```", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFence(tt.in))
		})
	}
}

func TestNewOpenAI_MissingKey(t *testing.T) {
	_, err := NewOpenAI(config.LLM{Model: "gpt-4o-mini"}, nil)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestOpenAI_Generate(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"MATCH (n:Person) RETURN n"}}],"usage":{"total_tokens":12}}`))
	}))
	defer server.Close()

	o, err := NewOpenAI(config.LLM{Model: "gpt-4o-mini", APIKey: "test-key", BaseURL: server.URL + "/v1"}, nil)
	require.NoError(t, err)

	out, err := o.Generate(context.Background(), "the prompt")
	require.NoError(t, err)
	assert.Equal(t, "MATCH (n:Person) RETURN n", out)

	assert.Equal(t, "gpt-4o-mini", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "the prompt", got.Messages[1].Content)
}

func TestOpenAI_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	o, err := NewOpenAI(config.LLM{Model: "gpt-4o-mini", APIKey: "k", BaseURL: server.URL}, nil)
	require.NoError(t, err)

	_, err = o.Generate(context.Background(), "prompt")
	assert.Error(t, err)
}
