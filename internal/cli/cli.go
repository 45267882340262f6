// Package cli implements the gridkit command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/gridkit/pkg/breakpoint"
	"github.com/matzehuels/gridkit/pkg/buildinfo"
	"github.com/matzehuels/gridkit/pkg/config"
	"github.com/matzehuels/gridkit/pkg/engine"
	"github.com/matzehuels/gridkit/pkg/store/backend"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "gridkit"

	// defaultPNGScale is the raster scale used by "layout render -f png".
	defaultPNGScale = 2.0
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	noPersist  bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "gridkit arranges dashboard widgets on a responsive grid",
		Long: `gridkit is an adaptive grid layout engine. It keeps one widget layout per
page and breakpoint, lets you move, resize and hide widgets, and persists
every change to the configured store.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "config file (default: $"+config.EnvPath+" or "+config.DefaultPath()+")")
	root.PersistentFlags().BoolVar(&c.noPersist, "no-persist", false, "keep changes in memory only")

	// Register all subcommands
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.pagesCommand())
	root.AddCommand(c.breakpointCommand())
	root.AddCommand(c.editCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Engine Factory
// =============================================================================

// loadConfig reads the config selected by --config and reports keys it did
// not recognise.
func (c *CLI) loadConfig() (config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return cfg, err
	}
	for _, key := range cfg.Undecoded {
		c.Logger.Warn("unknown config key", "key", key, "file", cfg.Path)
	}
	return cfg, nil
}

// openEngine loads the config and opens an engine over its store. With
// --no-persist the store is replaced by the null backend.
func (c *CLI) openEngine(ctx context.Context) (*engine.Engine, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	opts := engine.Options{Config: cfg, Logger: c.Logger}
	if c.noPersist {
		opts.Backend = backend.NewNull()
	}
	eng, err := engine.New(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("open engine: %w", err)
	}
	return eng, nil
}

// =============================================================================
// Argument Helpers
// =============================================================================

// resolveBreakpoint parses name, falling back to the engine's persisted
// view mode when name is empty.
func resolveBreakpoint(eng *engine.Engine, name string) (breakpoint.Breakpoint, error) {
	if name == "" {
		return eng.Signal().Current(), nil
	}
	return breakpoint.Parse(name)
}

// completePages offers catalogue page ids for shell completion.
func (c *CLI) completePages(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	catalog, err := cfg.Catalog()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	ids := make([]string, 0, len(catalog.Pages))
	for _, p := range catalog.Pages {
		ids = append(ids, p.ID)
	}
	return ids, cobra.ShellCompDirectiveNoFileComp
}

func completeBreakpoints(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	names := make([]string, len(breakpoint.All))
	for i, bp := range breakpoint.All {
		names[i] = bp.String()
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}
