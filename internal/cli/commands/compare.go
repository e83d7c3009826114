package commands

import (
	"fmt"

	"github.com/conduit-lang/scopegraph/internal/cli/ui"
	"github.com/spf13/cobra"
)

func newCompareCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "compare <entity>",
		Short: "Diff discovery against the static configuration table",
		Long: `Run discovery for one entity and compare the result field by field
with its static configuration table entry.

Use this to check whether a hand-written entry is still needed or has drifted
from the model. Without a static entry every discovered value is listed as
discovered-only.`,
		Example: `  scopegraph compare Person
  scopegraph compare app/models.Person --format json`,
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

			cmp := app.Resolver.Compare(cmd.Context(), d)
			out := cmd.OutOrStdout()
			if opts.format == FormatJSON {
				return writeJSON(out, cmp)
			}

			ui.Header(out, "Compare "+cmp.Entity, opts.noColor)
			if !cmp.HasStatic {
				fmt.Fprintln(out, "No static configuration entry; showing discovered values only.")
				fmt.Fprintln(out)
			}

			table := ui.NewTable(out, []string{"Field", "Status", "Only discovered", "Only static"}, &ui.TableOptions{NoColor: opts.noColor})
			for _, f := range cmp.Fields {
				status := "same"
				if !f.Equal() {
					status = "differs"
				}
				table.AddRow(f.Field, status, joinOrDash(f.OnlyDiscovered), joinOrDash(f.OnlyStatic))
			}
			table.Render()
			fmt.Fprintln(out)

			if cmp.Identical() {
				ui.Success(out, "Discovery matches the static configuration", opts.noColor)
			}
			renderWarnings(out, cmp.Report.Warnings, opts.noColor)
			return nil
		},
	}
}
