package commands

import (
	"fmt"
	"io"

	"github.com/conduit-lang/scopegraph/internal/cli/ui"
	"github.com/conduit-lang/scopegraph/internal/discovery"
	"github.com/conduit-lang/scopegraph/internal/entity"
	"github.com/spf13/cobra"
)

func newPreviewCommand(opts *globalOptions) *cobra.Command {
	var resolved bool

	cmd := &cobra.Command{
		Use:   "preview <entity>",
		Short: "Show the configuration discovery derives for an entity",
		Long: `Run discovery for one entity and print the derived configuration.

Preview never reads or writes the discovery cache. With --resolved the
entity is resolved through all tiers instead, showing the configuration
that is actually in effect and which tier supplied it.`,
		Example: `  # Preview discovery for Person
  scopegraph preview Person

  # Fully-qualified names work too
  scopegraph preview app/models.Person --format json

  # Show the configuration in effect
  scopegraph preview Person --resolved`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.loadApp()
			if err != nil {
				return err
			}
			defer app.Close()

			d, err := lookupEntity(cmd.ErrOrStderr(), app.Registry, args[0], opts.noColor)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if resolved {
				res, err := app.Resolver.Resolve(cmd.Context(), d)
				if err != nil {
					return err
				}
				if opts.format == FormatJSON {
					return writeJSON(out, res)
				}
				ui.Header(out, fmt.Sprintf("%s (%s)", d.Name(), res.Source), opts.noColor)
				renderConfiguration(out, res.Graph, opts.noColor)
				renderVector(out, res.Vector, opts.noColor)
				renderWarnings(out, res.Warnings, opts.noColor)
				return nil
			}

			cfg, report := app.Resolver.Preview(cmd.Context(), d)
			if opts.format == FormatJSON {
				return writeJSON(out, struct {
					Entity string                `json:"entity"`
					Config *entity.Configuration `json:"config"`
					Report *discovery.Report     `json:"report"`
				}{d.Name(), cfg, report})
			}

			ui.Header(out, d.Name()+" (discovered)", opts.noColor)
			renderConfiguration(out, cfg, opts.noColor)
			renderWarnings(out, report.Warnings, opts.noColor)
			return nil
		},
	}

	cmd.Flags().BoolVar(&resolved, "resolved", false, "Resolve through explicit, static and discovered tiers")
	return cmd
}

func renderVector(w io.Writer, vc *entity.VectorConfig, noColor bool) {
	if vc == nil {
		return
	}
	ui.Header(w, "Vector", noColor)
	kv := ui.NewKeyValueTable(w, noColor)
	kv.AddRow("Collection", vc.Collection)
	kv.AddRow("Embed fields", joinOrDash(vc.EmbedFields))
	kv.AddRow("Metadata fields", joinOrDash(vc.MetadataFields))
	kv.Render()
	fmt.Fprintln(w)
}
