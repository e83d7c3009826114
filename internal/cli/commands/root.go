package commands

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/conduit-lang/scopegraph/internal/config"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// Output formats
const (
	FormatTable = "table"
	FormatJSON  = "json"
)

// globalOptions holds the persistent flags shared by every command
type globalOptions struct {
	configPath string
	format     string
	noColor    bool
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "scopegraph",
		Short: "Entity configuration discovery and business scope resolution",
		Long: color.CyanString(`scopegraph - entity configuration discovery for graph and vector indexing

scopegraph derives graph and vector configurations from your model layer,
resolves them against hand-written overrides, and turns business scopes
such as "active volunteers" into query patterns for a query generator.

Configuration is resolved in three tiers:
  • explicit declarations on the model
  • the static configuration table
  • automatic discovery (cached)`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.noColor {
				color.NoColor = true
			}
			opts.format = strings.ToLower(opts.format)
			if opts.format != FormatTable && opts.format != FormatJSON {
				return fmt.Errorf("unsupported format: %s (supported: json, table)", opts.format)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to scopegraph.yml (default: search upwards from the working directory)")
	rootCmd.PersistentFlags().StringVar(&opts.format, "format", FormatTable, "Output format: json or table")
	rootCmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(newPreviewCommand(opts))
	rootCmd.AddCommand(newCompareCommand(opts))
	rootCmd.AddCommand(newCacheCommand(opts))
	rootCmd.AddCommand(newDetectCommand(opts))
	rootCmd.AddCommand(newServeCommand(opts))
	rootCmd.AddCommand(newTokenCommand(opts))

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the scopegraph version, Git commit, build date, and Go version",
		Run: func(cmd *cobra.Command, args []string) {
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			titleColor := color.New(color.FgCyan, color.Bold)
			valueColor := color.New(color.FgWhite)
			out := cmd.OutOrStdout()

			titleColor.Fprint(out, "scopegraph version: ")
			valueColor.Fprintln(out, Version)

			titleColor.Fprint(out, "Git commit: ")
			valueColor.Fprintln(out, GitCommit)

			titleColor.Fprint(out, "Build date: ")
			valueColor.Fprintln(out, BuildDate)

			titleColor.Fprint(out, "Go version: ")
			valueColor.Fprintln(out, goVer)
		},
	}
}

// loadApp resolves the configuration file and wires the application.
// Without --config the nearest scopegraph.yml up the tree is used; without
// one, defaults apply.
func (o *globalOptions) loadApp() (*App, error) {
	return newApp(o.configFile())
}

func (o *globalOptions) configFile() string {
	if o.configPath != "" {
		return o.configPath
	}
	if found, err := config.FindConfigFile(); err == nil {
		return found
	}
	return ""
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		errorColor := color.New(color.FgRed, color.Bold)
		errorColor.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}
