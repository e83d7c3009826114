// Package generator turns a question into a graph query by handing the
// schema summary and the detected scopes to an external text generator.
// The query is returned, never executed.
package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/conduit-lang/scopegraph/internal/entity"
	"github.com/conduit-lang/scopegraph/internal/scope"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrEmptyQuestion is returned for a blank question
var ErrEmptyQuestion = errors.New("question is empty")

// TextGenerator produces text for a prompt
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Result is one generated query with the prompt that produced it
type Result struct {
	RequestID  string            `json:"request_id"`
	Query      string            `json:"query"`
	Prompt     string            `json:"prompt"`
	Detections []scope.Detection `json:"detections"`
}

// Generator assembles prompts and calls a TextGenerator
type Generator struct {
	text   TextGenerator
	logger *zap.Logger
}

// New creates a generator. A nil logger disables logging.
func New(text TextGenerator, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{text: text, logger: logger}
}

// Generate detects the scopes of question and asks the text generator for a
// Cypher query answering it
func (g *Generator) Generate(ctx context.Context, question string, configs []*entity.Configuration) (*Result, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	requestID := uuid.NewString()
	logger := g.logger.With(zap.String("request_id", requestID))

	detections := scope.Detect(question, configs)
	prompt := BuildPrompt(question, configs, detections)

	logger.Debug("generating query",
		zap.Int("entities", len(detections)),
		zap.Int("prompt_bytes", len(prompt)),
	)

	out, err := g.text.Generate(ctx, prompt)
	if err != nil {
		logger.Error("query generation failed", zap.Error(err))
		return nil, fmt.Errorf("failed to generate query: %w", err)
	}

	query := StripCodeFence(out)
	if query == "" {
		return nil, fmt.Errorf("failed to generate query: empty response")
	}

	logger.Info("query generated", zap.Int("entities", len(detections)))
	return &Result{
		RequestID:  requestID,
		Query:      query,
		Prompt:     prompt,
		Detections: detections,
	}, nil
}

// BuildPrompt renders the generator prompt: instructions, the graph schema,
// the scope block (if any scope was detected) and the question
func BuildPrompt(question string, configs []*entity.Configuration, detections []scope.Detection) string {
	var b strings.Builder
	b.WriteString("Write one read-only Cypher query that answers the question below.\n")
	b.WriteString("Use only the labels, properties and relationships of the schema.\n")
	b.WriteString("Return the query only, without explanation.\n\n")
	b.WriteString(scope.FormatSchema(configs))

	if block := scope.Format(detections); block != "" {
		b.WriteString("\n")
		b.WriteString(block)
	}

	b.WriteString("\n## Question\n")
	b.WriteString(question)
	b.WriteString("\n")
	return b.String()
}

// StripCodeFence removes a surrounding Markdown code fence and whitespace
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = ""
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
