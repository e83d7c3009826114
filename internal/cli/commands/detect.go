package commands

import (
	"fmt"

	"github.com/conduit-lang/scopegraph/internal/cli/ui"
	"github.com/conduit-lang/scopegraph/internal/generator"
	"github.com/conduit-lang/scopegraph/internal/resolver"
	"github.com/conduit-lang/scopegraph/internal/scope"
	"github.com/spf13/cobra"
)

// newTextGenerator builds the text generator for --generate; replaced in tests
var newTextGenerator = func(app *App) (generator.TextGenerator, error) {
	return generator.NewOpenAI(app.Config.LLM, app.Logger.Named("openai"))
}

func newDetectCommand(opts *globalOptions) *cobra.Command {
	var generate bool
	var showPrompt bool

	cmd := &cobra.Command{
		Use:   "detect <question>",
		Short: "Detect the entities and scopes a question refers to",
		Long: `Resolve every registered entity, detect the entities and business scopes
the question mentions, and print the scope instructions a query generator
would receive.

With --generate the instructions are sent to the configured language model
(llm.*) and the generated Cypher query is printed. The query is not executed.`,
		Example: `  scopegraph detect "How many volunteers do we have?"
  scopegraph detect "Show active volunteers" --generate`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.loadApp()
			if err != nil {
				return err
			}
			defer app.Close()

			resolutions, err := app.Resolver.ResolveAll(cmd.Context(), app.Registry)
			if err != nil {
				return err
			}
			configs := resolver.Configs(resolutions)
			question := args[0]
			out := cmd.OutOrStdout()

			if !generate {
				detections := scope.Detect(question, configs)
				if opts.format == FormatJSON {
					return writeJSON(out, map[string]any{
						"detections": detections,
						"scopes":     scope.Format(detections),
					})
				}
				renderDetections(cmd, detections, opts.noColor)
				return nil
			}

			text, err := newTextGenerator(app)
			if err != nil {
				return err
			}
			gen := generator.New(text, app.Logger.Named("generator"))
			if opts.format == FormatJSON {
				result, err := gen.Generate(cmd.Context(), question, configs)
				if err != nil {
					return err
				}
				return writeJSON(out, result)
			}

			var result *generator.Result
			err = ui.WithSpinner(cmd.ErrOrStderr(), "Generating query", opts.noColor, func() error {
				var genErr error
				result, genErr = gen.Generate(cmd.Context(), question, configs)
				return genErr
			})
			if err != nil {
				return err
			}
			renderDetections(cmd, result.Detections, opts.noColor)
			if showPrompt {
				ui.Header(out, "Prompt", opts.noColor)
				fmt.Fprintln(out, result.Prompt)
			}
			ui.Header(out, "Query", opts.noColor)
			fmt.Fprintln(out, result.Query)
			return nil
		},
	}

	cmd.Flags().BoolVar(&generate, "generate", false, "Generate a Cypher query with the configured language model")
	cmd.Flags().BoolVar(&showPrompt, "show-prompt", false, "Print the full generator prompt (with --generate)")
	return cmd
}

func renderDetections(cmd *cobra.Command, detections []scope.Detection, noColor bool) {
	out := cmd.OutOrStdout()
	if len(detections) == 0 {
		fmt.Fprintln(out, "No entities detected")
		return
	}

	table := ui.NewTable(out, []string{"Entity", "Aliases", "Scopes"}, &ui.TableOptions{NoColor: noColor})
	for _, d := range detections {
		scopes := make([]string, 0, len(d.Scopes))
		for _, m := range d.Scopes {
			scopes = append(scopes, fmt.Sprintf("%s (%s)", m.Spec.Name, m.Spec.PatternType))
		}
		table.AddRow(d.Label, joinOrDash(d.MatchedAliases), joinOrDash(scopes))
	}
	table.Render()
	fmt.Fprintln(out)

	if block := scope.Format(detections); block != "" {
		fmt.Fprint(out, block)
		fmt.Fprintln(out)
	}
}
