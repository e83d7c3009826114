package ui

import (
	"bytes"
	"strings"
	"testing"
)

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, []string{"Field", "Status", "Only static"}, &TableOptions{NoColor: true})
	table.AddRow("properties", "differs", "motto")
	table.AddRow("aliases", "same", "-")
	table.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d:\n%s", len(lines), buf.String())
	}
	if lines[0] != "Field       Status   Only static" {
		t.Errorf("unexpected header line %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "──────────  ───────  ") {
		t.Errorf("unexpected separator line %q", lines[1])
	}
	if lines[2] != "properties  differs  motto" {
		t.Errorf("unexpected row %q", lines[2])
	}
	if lines[3] != "aliases     same     -" {
		t.Errorf("unexpected row %q", lines[3])
	}
}

func TestTableMultibyteAlignment(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, []string{"A", "B"}, &TableOptions{NoColor: true})
	table.AddRow("✓✓", "x")
	table.AddRow("abc", "y")
	table.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if lines[2] != "✓✓   x" {
		t.Errorf("expected multibyte cell padded by rune count, got %q", lines[2])
	}
}

func TestTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	NewTable(&buf, nil, nil).Render()
	if buf.Len() != 0 {
		t.Errorf("expected no output for a table without headers, got %q", buf.String())
	}
}

func TestTableExtraCellsDropped(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, []string{"Name"}, &TableOptions{NoColor: true})
	table.AddRow("Person", "surplus")
	table.Render()

	if strings.Contains(buf.String(), "surplus") {
		t.Errorf("expected cells beyond the header count to be dropped:\n%s", buf.String())
	}
}

func TestKeyValueTable(t *testing.T) {
	var buf bytes.Buffer
	kv := NewKeyValueTable(&buf, true)
	kv.AddRow("Label", "Person")
	kv.AddRow("Embed fields", "bio")
	kv.Render()

	want := "Label:        Person\nEmbed fields: bio\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestList(t *testing.T) {
	var buf bytes.Buffer
	list := NewList(&buf, ListOptions{NoColor: true})
	list.AddItem("first")
	list.AddItem("second")
	list.Render()

	if buf.String() != "• first\n• second\n" {
		t.Errorf("unexpected list output %q", buf.String())
	}

	buf.Reset()
	numbered := NewList(&buf, ListOptions{Numbered: true, NoColor: true})
	numbered.AddItem("first")
	numbered.Render()
	if buf.String() != "1. first\n" {
		t.Errorf("unexpected numbered list output %q", buf.String())
	}
}

func TestHeader(t *testing.T) {
	var buf bytes.Buffer
	Header(&buf, "Scopes", true)

	if buf.String() != "Scopes\n──────\n" {
		t.Errorf("unexpected header output %q", buf.String())
	}
}

func TestPadRight(t *testing.T) {
	tests := []struct {
		input    string
		width    int
		expected string
	}{
		{"abc", 5, "abc  "},
		{"abc", 3, "abc"},
		{"abcdef", 3, "abcdef"},
		{"", 2, "  "},
		{"→", 3, "→  "},
	}

	for _, tt := range tests {
		if got := padRight(tt.input, tt.width); got != tt.expected {
			t.Errorf("padRight(%q, %d) = %q; want %q", tt.input, tt.width, got, tt.expected)
		}
	}
}
