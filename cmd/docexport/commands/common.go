package commands

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/docexport/internal/config"
)

// Global carries state shared by subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"docexport.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Export     ExportCmd     `cmd:"" help:"Annotate the rendered site and export artifacts when activated"`
	Activation ActivationCmd `cmd:"" help:"Show whether export would run and which signal decided it"`
	Watch      WatchCmd      `cmd:"" help:"Re-run the pipeline whenever the rendered site changes"`
	Init       InitCmd       `cmd:"" help:"Initialize a new configuration file"`
}

// AfterApply runs after flag parsing; installs a default logger until the
// configuration is loaded.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	slog.SetDefault(config.NewLogger(config.LoggingConfig{}, c.Verbose))
	return nil
}

// loadConfig loads the configuration and switches to its logging settings.
func loadConfig(g *Global, root *CLI) (*config.Config, error) {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return nil, err
	}
	logger := config.NewLogger(cfg.Logging, root.Verbose)
	slog.SetDefault(logger)
	if g != nil {
		g.Logger = logger
	}
	return cfg, nil
}

// exportOverride maps the --export/--no-export flag pair onto an override.
func exportOverride(enable, disable bool) *bool {
	switch {
	case disable:
		v := false
		return &v
	case enable:
		v := true
		return &v
	default:
		return nil
	}
}
