package commands

import (
	"fmt"

	"git.home.luguber.info/inful/docexport/internal/config"
)

// ActivationCmd implements the 'activation' command.
type ActivationCmd struct {
	Export   bool `help:"Evaluate with --export" xor:"override"`
	NoExport bool `name:"no-export" help:"Evaluate with --no-export" xor:"override"`
}

func (a *ActivationCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	exportCfg := config.ResolveExport(cfg.Export, config.ProcessEnv(), exportOverride(a.Export, a.NoExport))
	fmt.Print(FormatActivation(exportCfg))
	return nil
}

// FormatActivation renders the resolved activation for humans.
func FormatActivation(c config.ExportConfig) string {
	state := "disabled"
	if c.Enabled {
		state = "enabled"
	}
	return fmt.Sprintf("export: %s\nsource: %s\noutput: %s\nbase_url: %s\nconcurrency: %d\n",
		state, c.Source, c.OutputDir, c.BaseURLTemplate, c.Concurrency)
}
