package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/conduit-lang/scopegraph/internal/cli/ui"
	"github.com/conduit-lang/scopegraph/internal/cypher"
	"github.com/conduit-lang/scopegraph/internal/discovery"
	"github.com/conduit-lang/scopegraph/internal/entity"
	"github.com/conduit-lang/scopegraph/internal/model"
	"github.com/conduit-lang/scopegraph/internal/resolver"
	"github.com/fatih/color"
)

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func joinOrDash(values []string) string {
	if len(values) == 0 {
		return "-"
	}
	return strings.Join(values, ", ")
}

// renderConfiguration prints a configuration as sections of tables
func renderConfiguration(w io.Writer, cfg *entity.Configuration, noColor bool) {
	kv := ui.NewKeyValueTable(w, noColor)
	kv.AddRow("Label", cfg.Label)
	kv.AddRow("Collection", cfg.CollectionName)
	if cfg.Description != "" {
		kv.AddRow("Description", cfg.Description)
	}
	kv.AddRow("Properties", joinOrDash(cfg.Properties))
	kv.AddRow("Embed fields", joinOrDash(cfg.EmbedFields))
	kv.AddRow("Metadata fields", joinOrDash(cfg.VectorMetadataFields))
	kv.AddRow("Aliases", joinOrDash(cfg.Aliases))
	kv.Render()
	fmt.Fprintln(w)

	if len(cfg.Relationships) > 0 {
		ui.Header(w, "Relationships", noColor)
		table := ui.NewTable(w, []string{"Type", "Name", "Target", "Foreign key", "Pivot", "Properties"}, &ui.TableOptions{NoColor: noColor})
		for _, rel := range cfg.Relationships {
			table.AddRow(string(rel.Type), rel.RelationName, rel.TargetLabel, dash(rel.ForeignKey), dash(rel.Pivot), joinOrDash(rel.Properties))
		}
		table.Render()
		fmt.Fprintln(w)
	}

	if len(cfg.Scopes) > 0 {
		ui.Header(w, "Scopes", noColor)
		table := ui.NewTable(w, []string{"Name", "Pattern", "Query", "Examples"}, &ui.TableOptions{NoColor: noColor})
		for _, s := range cfg.Scopes {
			table.AddRow(s.Name, string(s.PatternType), scopeQuery(cfg.Label, s), fmt.Sprintf("%d", len(s.Examples)))
		}
		table.Render()
		fmt.Fprintln(w)
	}
}

// scopeQuery summarizes the payload of a scope on one line
func scopeQuery(label string, s entity.ScopeSpec) string {
	switch {
	case s.PatternType == entity.PatternSimple:
		return cypher.Conditions("n", s.Filter)
	case s.PatternType == entity.PatternRelationship && s.Path != nil:
		return cypher.Traversal(label, s.Path)
	case s.PatternType == entity.PatternComplex && s.Template != nil:
		return s.Template.Pattern
	}
	return "-"
}

// renderWarnings prints discovery warnings grouped by kind
func renderWarnings(w io.Writer, warnings []discovery.Warning, noColor bool) {
	if len(warnings) == 0 {
		return
	}

	sorted := append([]discovery.Warning(nil), warnings...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Kind < sorted[j].Kind })

	yellow := color.New(color.FgYellow)
	if noColor {
		yellow.DisableColor()
	}
	yellow.Fprintf(w, "%d warning(s)\n", len(sorted))

	list := ui.NewList(w, ui.ListOptions{NoColor: noColor})
	for _, warning := range sorted {
		list.AddItem(warning.String())
	}
	list.Render()
	fmt.Fprintln(w)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// lookupEntity finds a registered descriptor. Unknown names print a notice
// with close matches to errOut.
func lookupEntity(errOut io.Writer, registry *model.Registry, name string, noColor bool) (model.Descriptor, error) {
	d, err := resolver.Lookup(registry, name)
	if errors.Is(err, resolver.ErrUnknownEntity) {
		var candidates []string
		for _, desc := range registry.All() {
			candidates = append(candidates, desc.Name(), desc.ShortName())
		}
		ui.UnknownEntity(name, ui.Suggest(name, candidates, 3), noColor).Write(errOut)
	}
	return d, err
}
