package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/docexport/internal/logfields"
	"git.home.luguber.info/inful/docexport/internal/metrics"
	"git.home.luguber.info/inful/docexport/internal/notify"
	"git.home.luguber.info/inful/docexport/internal/pipeline"
)

// ExportCmd implements the 'export' command.
type ExportCmd struct {
	Export      bool   `help:"Force export on regardless of CI detection" xor:"override"`
	NoExport    bool   `name:"no-export" help:"Force export off regardless of CI detection" xor:"override"`
	Site        string `help:"Override site.dir"`
	Output      string `short:"o" help:"Override export.output_dir"`
	MetricsFile string `name:"metrics-file" help:"Write Prometheus metrics to this textfile after the run"`
}

func (e *ExportCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	if e.Site != "" {
		cfg.Site.Dir = e.Site
	}
	if e.Output != "" {
		cfg.Export.OutputDir = e.Output
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	opts := runOptions{Override: exportOverride(e.Export, e.NoExport)}

	var reg *prometheus.Registry
	if e.MetricsFile != "" {
		reg = prometheus.NewRegistry()
		opts.Recorder = metrics.NewPrometheusRecorder(reg)
	}

	if cfg.Notify.NATSURL != "" {
		pub, err := notify.Connect(cfg.Notify)
		if err != nil {
			slog.Warn("Export events disabled", logfields.Error(err))
		} else {
			defer pub.Close()
			opts.Notifier = pub
		}
	}

	_, runErr := RunPipeline(ctx, cfg, opts)

	if reg != nil {
		if err := metrics.WriteTextfile(reg, e.MetricsFile); err != nil {
			slog.Warn("Failed to write metrics textfile", logfields.Path(e.MetricsFile), logfields.Error(err))
		}
	}
	return runErr
}

var _ pipeline.Notifier = (*notify.Publisher)(nil)
