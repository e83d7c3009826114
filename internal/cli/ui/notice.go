package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Level is the severity of a notice
type Level int

const (
	LevelError Level = iota
	LevelWarning
	LevelInfo
)

// Notice is a multi-line message with optional suggestions and hints:
//
//	❌ UNKNOWN ENTITY: Persn
//	   No registered entity is named 'Persn'.
//
//	   Did you mean: Person, PersonTeam?
//
//	   → List entities: scopegraph detect --help
type Notice struct {
	Level       Level
	Title       string
	Detail      string
	Suggestions []string
	Hints       []string
	NoColor     bool
}

// String formats the notice
func (n Notice) String() string {
	var b strings.Builder

	var head, body *color.Color
	var symbol string
	switch n.Level {
	case LevelWarning:
		head, body, symbol = paint(n.NoColor, color.FgYellow, color.Bold), paint(n.NoColor, color.FgYellow), "⚠️"
	case LevelInfo:
		head, body, symbol = paint(n.NoColor, color.FgCyan, color.Bold), paint(n.NoColor, color.FgCyan), "ℹ️"
	default:
		head, body, symbol = paint(n.NoColor, color.FgRed, color.Bold), paint(n.NoColor, color.FgRed), "❌"
	}

	head.Fprintf(&b, "%s %s\n", symbol, n.Title)
	if n.Detail != "" {
		body.Fprintf(&b, "   %s\n", n.Detail)
	}

	if len(n.Suggestions) > 0 {
		b.WriteString("\n")
		paint(n.NoColor, color.FgYellow).Fprintf(&b, "   Did you mean: %s?\n", strings.Join(n.Suggestions, ", "))
	}

	if len(n.Hints) > 0 {
		b.WriteString("\n")
		cyan := paint(n.NoColor, color.FgCyan)
		for _, h := range n.Hints {
			cyan.Fprintf(&b, "   → %s\n", h)
		}
	}
	return b.String()
}

// Write writes the notice to w
func (n Notice) Write(w io.Writer) {
	fmt.Fprint(w, n.String())
}

// UnknownEntity is the notice for a name that matches no registered entity
func UnknownEntity(name string, suggestions []string, noColor bool) Notice {
	return Notice{
		Level:       LevelError,
		Title:       "UNKNOWN ENTITY: " + name,
		Detail:      fmt.Sprintf("No registered entity is named '%s'.", name),
		Suggestions: suggestions,
		Hints: []string{
			"Names are the fully-qualified model name or its short name",
			"Check models.manifest in scopegraph.yml",
		},
		NoColor: noColor,
	}
}

// Success writes a green check line
func Success(w io.Writer, message string, noColor bool) {
	paint(noColor, color.FgGreen).Fprintf(w, "✓ %s\n", message)
}
