package commands

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/docexport/internal/logfields"
	"git.home.luguber.info/inful/docexport/internal/metrics"
	"git.home.luguber.info/inful/docexport/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Export        bool          `help:"Force export on for every rebuild" xor:"override"`
	NoExport      bool          `name:"no-export" help:"Force export off for every rebuild" xor:"override"`
	Debounce      time.Duration `help:"Quiet window before a rebuild" default:"300ms"`
	MetricsListen string        `name:"metrics-listen" help:"Serve Prometheus metrics on this address (e.g. :9109)"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	opts := runOptions{Override: exportOverride(w.Export, w.NoExport)}
	if w.MetricsListen != "" {
		reg := prometheus.NewRegistry()
		opts.Recorder = metrics.NewPrometheusRecorder(reg)
		srv := &http.Server{Addr: w.MetricsListen, Handler: metrics.HTTPHandler(reg), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Warn("Metrics server stopped", logfields.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		slog.Info("Serving metrics", "addr", w.MetricsListen)
	}

	// Activation is resolved again on every pass.
	rebuild := func(ctx context.Context) error {
		_, err := RunPipeline(ctx, cfg, opts)
		return err
	}
	if err := rebuild(ctx); err != nil {
		slog.Warn("Initial run failed", logfields.Error(err))
	}

	watcher, err := watch.New(watch.Config{
		Root:        cfg.Site.Dir,
		Exclude:     []string{cfg.Export.OutputDir},
		QuietWindow: w.Debounce,
	}, rebuild)
	if err != nil {
		return err
	}
	return watcher.Run(ctx)
}
