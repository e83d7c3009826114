package commands

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/conduit-lang/scopegraph/internal/cli/ui"
	"github.com/conduit-lang/scopegraph/internal/model"
	"github.com/conduit-lang/scopegraph/internal/ops"
	"github.com/spf13/cobra"
)

// ErrProcessLocalCache is returned by cache commands that would only touch
// a memory cache owned by the command's own process
var ErrProcessLocalCache = errors.New("the memory discovery cache is local to each process")

// confirm asks a yes/no question; replaced in tests
var confirm = func(message string) (bool, error) {
	ok := false
	prompt := &survey.Confirm{Message: message, Default: false}
	if err := survey.AskOne(prompt, &ok); err != nil {
		return false, err
	}
	return ok, nil
}

// cacheFlags selects where cache commands act
type cacheFlags struct {
	server string
	token  string
}

// remote returns a client for the ops server that owns the cache, or nil
// when the configured backend is shared and can be managed from here
func (f *cacheFlags) remote(errOut io.Writer, app *App, noColor bool) (*ops.Client, error) {
	if f.server != "" {
		token := f.token
		if token == "" && app.Config.Ops.JWTSecret != "" {
			var err error
			token, err = ops.NewAuthService(app.Config.Ops.JWTSecret).GenerateToken("scopegraph-cli", 5*time.Minute)
			if err != nil {
				return nil, err
			}
		}
		return ops.NewClient(f.server, token), nil
	}

	cfg := app.Config.Discovery.Cache
	if cfg.Enabled && cfg.Backend != "redis" {
		ui.Notice{
			Level:  ui.LevelError,
			Title:  "PROCESS-LOCAL CACHE",
			Detail: "discovery.cache.backend is memory; this command would only see its own empty cache.",
			Hints: []string{
				"Manage a running server: --server " + app.Config.Ops.Addr,
				"Share the cache between processes: discovery.cache.backend: redis",
			},
			NoColor: noColor,
		}.Write(errOut)
		return nil, ErrProcessLocalCache
	}
	return nil, nil
}

func newCacheCommand(opts *globalOptions) *cobra.Command {
	flags := &cacheFlags{}
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the discovery cache",
		Long: `Manage the discovery cache.

Discovered configurations are cached per entity for discovery.cache.ttl
seconds. Warm the cache after deploying model changes, or clear it to force
rediscovery.

A memory cache lives inside the process that owns it: pass --server to manage
the cache of a running 'scopegraph serve'. A redis cache is shared and is
managed directly.`,
	}

	cmd.PersistentFlags().StringVar(&flags.server, "server", "", "Address of a running ops server that owns the cache")
	cmd.PersistentFlags().StringVar(&flags.token, "token", "", "Bearer token for --server (default: minted from ops.jwt_secret)")

	cmd.AddCommand(newCacheListCommand(opts, flags))
	cmd.AddCommand(newCacheWarmCommand(opts, flags))
	cmd.AddCommand(newCacheClearCommand(opts, flags))
	return cmd
}

func newCacheListCommand(opts *globalOptions, flags *cacheFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List entities with a cached configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.loadApp()
			if err != nil {
				return err
			}
			defer app.Close()

			client, err := flags.remote(cmd.ErrOrStderr(), app, opts.noColor)
			if err != nil {
				return err
			}
			var names []string
			if client != nil {
				names, err = client.Cached(cmd.Context())
			} else {
				names, err = app.Resolver.Cached(cmd.Context())
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.format == FormatJSON {
				return writeJSON(out, map[string][]string{"entities": names})
			}
			if len(names) == 0 {
				fmt.Fprintln(out, "Discovery cache is empty")
				return nil
			}
			list := ui.NewList(out, ui.ListOptions{NoColor: opts.noColor})
			for _, name := range names {
				list.AddItem(name)
			}
			list.Render()
			return nil
		},
	}
}

func newCacheWarmCommand(opts *globalOptions, flags *cacheFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "warm [entity...]",
		Short: "Discover and cache configurations",
		Long: `Discover and cache the configuration of the given entities, or of every
registered entity. Entities resolved by an explicit declaration or the static
configuration table are skipped.`,
		Example: `  scopegraph cache warm
  scopegraph cache warm Person Team`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.loadApp()
			if err != nil {
				return err
			}
			defer app.Close()

			client, err := flags.remote(cmd.ErrOrStderr(), app, opts.noColor)
			if err != nil {
				return err
			}
			descriptors, err := selectDescriptors(cmd.ErrOrStderr(), app.Registry, args, opts.noColor)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if client != nil {
				names := make([]string, 0, len(args))
				if len(args) > 0 {
					for _, d := range descriptors {
						names = append(names, d.Name())
					}
				}
				warmed, err := client.Warm(cmd.Context(), names...)
				if err != nil {
					return err
				}
				if opts.format == FormatJSON {
					return writeJSON(out, map[string]int{"warmed": warmed})
				}
				ui.Success(out, fmt.Sprintf("Warmed %d of %d entities on %s", warmed, len(descriptors), flags.server), opts.noColor)
				return nil
			}

			var bar *ui.ProgressBar
			if opts.format != FormatJSON {
				bar = ui.NewProgressBar(cmd.ErrOrStderr(), len(descriptors), "Warming discovery cache", opts.noColor)
			}

			warmed := 0
			for _, d := range descriptors {
				n, err := app.Resolver.Warm(cmd.Context(), d)
				if err != nil {
					return err
				}
				warmed += n
				if bar != nil {
					bar.Add(1)
				}
			}

			if opts.format == FormatJSON {
				return writeJSON(out, map[string]int{"warmed": warmed})
			}
			bar.Finish()
			ui.Success(out, fmt.Sprintf("Warmed %d of %d entities", warmed, len(descriptors)), opts.noColor)
			return nil
		},
	}
}

func newCacheClearCommand(opts *globalOptions, flags *cacheFlags) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear [entity...]",
		Short: "Invalidate cached configurations",
		Long: `Invalidate the cached configuration of the given entities. Without
arguments the whole discovery cache is cleared after confirmation.`,
		Example: `  scopegraph cache clear Person
  scopegraph cache clear --yes`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.loadApp()
			if err != nil {
				return err
			}
			defer app.Close()

			client, err := flags.remote(cmd.ErrOrStderr(), app, opts.noColor)
			if err != nil {
				return err
			}

			names := make([]string, 0, len(args))
			for _, arg := range args {
				d, err := lookupEntity(cmd.ErrOrStderr(), app.Registry, arg, opts.noColor)
				if err != nil {
					return err
				}
				names = append(names, d.Name())
			}

			if len(names) == 0 && !yes {
				ok, err := confirm("Clear the entire discovery cache?")
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
					return nil
				}
			}

			if client != nil {
				err = client.Clear(cmd.Context(), names...)
			} else {
				err = app.Resolver.Clear(cmd.Context(), names...)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.format == FormatJSON {
				return writeJSON(out, map[string]any{"cleared": names, "all": len(names) == 0})
			}
			if len(names) == 0 {
				ui.Success(out, "Discovery cache cleared", opts.noColor)
			} else {
				ui.Success(out, fmt.Sprintf("Invalidated %d entities", len(names)), opts.noColor)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Clear the entire cache without confirmation")
	return cmd
}

// selectDescriptors looks up names, or returns every registered descriptor
func selectDescriptors(errOut io.Writer, registry *model.Registry, names []string, noColor bool) ([]model.Descriptor, error) {
	if len(names) == 0 {
		return registry.All(), nil
	}
	result := make([]model.Descriptor, 0, len(names))
	for _, name := range names {
		d, err := lookupEntity(errOut, registry, name, noColor)
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, nil
}
