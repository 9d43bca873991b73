package commands

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/docexport/internal/config"
	"git.home.luguber.info/inful/docexport/internal/export"
	"git.home.luguber.info/inful/docexport/internal/logfields"
	"git.home.luguber.info/inful/docexport/internal/metadata"
	"git.home.luguber.info/inful/docexport/internal/metrics"
	"git.home.luguber.info/inful/docexport/internal/pipeline"
	"git.home.luguber.info/inful/docexport/internal/searchindex"
	"git.home.luguber.info/inful/docexport/internal/site"
	"git.home.luguber.info/inful/docexport/internal/storage"
)

// runOptions are per-invocation inputs to one pipeline pass.
type runOptions struct {
	Env      config.Env
	Override *bool
	Recorder metrics.Recorder
	Notifier pipeline.Notifier
}

// RunPipeline performs one full pass: activation is resolved, the rendered
// site is loaded through the host events and the driver annotates and,
// when activated, exports.
func RunPipeline(ctx context.Context, cfg *config.Config, opts runOptions) (*pipeline.Result, error) {
	if opts.Env == nil {
		opts.Env = config.ProcessEnv()
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}

	exportCfg := config.ResolveExport(cfg.Export, opts.Env, opts.Override)
	slog.Info("Starting pipeline",
		logfields.Path(cfg.Site.Dir),
		slog.Bool("export", exportCfg.Enabled),
		slog.String("activation_source", string(exportCfg.Source)))

	annotator := metadata.NewAnnotator(cfg.Metadata.WordsPerMinute, provenanceFor(cfg))

	store := storage.NewFSStore(exportCfg.OutputDir)
	defer func() { _ = store.Close() }()

	detector, err := searchindex.NewLanguageDetector(cfg.Metadata.Languages)
	if err != nil {
		return nil, err
	}
	controller := export.NewController(exportCfg, store).
		WithLanguageDetector(detector).
		WithRecorder(opts.Recorder)

	driver := pipeline.NewDriver(annotator, controller, exportCfg).
		WithRecorder(opts.Recorder)
	if opts.Notifier != nil {
		driver.WithNotifier(opts.Notifier)
	}

	loader := site.NewLoader(cfg.Site, exportCfg.OutputDir)
	driver.Register(loader)
	if err := loader.Run(ctx); err != nil {
		return driver.Result(), err
	}

	res := driver.Result()
	if res != nil && res.Report != nil {
		r := res.Report
		slog.Info("Pipeline finished",
			logfields.RunID(r.RunID),
			slog.String("outcome", string(res.Outcome)),
			slog.Int("pages", r.Pages),
			slog.Int("written", r.Written),
			slog.Int("unchanged", r.Unchanged),
			slog.Int("failed", r.Failed()))
		for _, f := range r.Failures {
			slog.Warn("Page skipped", logfields.Page(f.Identity), logfields.Error(f.Err))
		}
	}
	return res, nil
}

// provenanceFor builds the last-updated chain: front matter first, then
// git history when enabled and the source root is a repository.
func provenanceFor(cfg *config.Config) metadata.Provenance {
	chain := metadata.Chain{metadata.FrontMatterProvenance{}}
	if !cfg.Metadata.GitEnabled() || cfg.Site.SourceRoot == "" {
		return chain
	}
	git, err := metadata.NewGitProvenance(cfg.Site.SourceRoot)
	if err != nil {
		slog.Info("Git provenance unavailable; last_updated from front matter only",
			logfields.Path(cfg.Site.SourceRoot), logfields.Error(err))
		return chain
	}
	return append(chain, git)
}
