// Package pipeline drives metadata annotation and export through the
// generator's page-rendered and site-assembled lifecycle events.
package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"git.home.luguber.info/inful/docexport/internal/config"
	derrors "git.home.luguber.info/inful/docexport/internal/errors"
	"git.home.luguber.info/inful/docexport/internal/export"
	"git.home.luguber.info/inful/docexport/internal/logfields"
	"git.home.luguber.info/inful/docexport/internal/metadata"
	"git.home.luguber.info/inful/docexport/internal/metrics"
	"git.home.luguber.info/inful/docexport/internal/site"
)

// Annotator computes and attaches per-page metadata.
type Annotator interface {
	Annotate(ctx context.Context, p *site.Page) metadata.Metadata
}

// Exporter runs the export phase over all annotated pages.
type Exporter interface {
	Run(ctx context.Context, pages []*site.Page) (*export.Report, error)
}

// Notifier is told about completed exports.
type Notifier interface {
	ExportCompleted(ctx context.Context, summary export.Summary) error
}

// Result describes a finished pipeline run.
type Result struct {
	Pages          int
	ExportEnabled  bool
	Source         config.ActivationSource
	Report         *export.Report // nil unless the export phase ran
	Outcome        metrics.OutcomeLabel
	PhaseDurations map[Phase]time.Duration
}

// Driver is the phase state machine. It is the only component that touches
// the host's lifecycle hooks.
type Driver struct {
	annotator Annotator
	exporter  Exporter
	cfg       config.ExportConfig
	recorder  metrics.Recorder
	notifier  Notifier

	mu        sync.Mutex
	phase     Phase
	pages     []*site.Page
	start     time.Time
	annotated time.Duration
	result    *Result
}

// NewDriver creates a driver in the idle phase. cfg is the activation
// resolved once for this run.
func NewDriver(annotator Annotator, exporter Exporter, cfg config.ExportConfig) *Driver {
	return &Driver{
		annotator: annotator,
		exporter:  exporter,
		cfg:       cfg,
		recorder:  metrics.NoopRecorder{},
		phase:     PhaseIdle,
	}
}

// WithRecorder sets the metrics recorder.
func (d *Driver) WithRecorder(r metrics.Recorder) *Driver {
	if r != nil {
		d.recorder = r
	}
	return d
}

// WithNotifier sets the completion notifier.
func (d *Driver) WithNotifier(n Notifier) *Driver {
	d.notifier = n
	return d
}

// Phase returns the current phase.
func (d *Driver) Phase() Phase {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.phase
}

// Result returns the outcome of a finished run, or nil before done.
func (d *Driver) Result() *Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.result
}

// Register subscribes the driver to the host's lifecycle events.
func (d *Driver) Register(host site.Host) {
	host.OnPageRendered(d.OnPageRendered)
	host.OnSiteAssembled(d.OnSiteAssembled)
}

// OnPageRendered annotates one page. The first page moves the driver from
// idle to annotating.
func (d *Driver) OnPageRendered(ctx context.Context, p *site.Page) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.phase == PhaseIdle {
		if err := d.advance(PhaseAnnotating); err != nil {
			return err
		}
	}
	if d.phase != PhaseAnnotating {
		return phaseOrderError(d.phase, PhaseAnnotating)
	}

	t0 := time.Now()
	md := d.annotator.Annotate(ctx, p)
	d.annotated += time.Since(t0)
	d.pages = append(d.pages, p)

	slog.Debug("Page annotated",
		logfields.Page(p.Identity()),
		slog.Int("word_count", md.WordCount),
		slog.Int("reading_time", md.ReadingTimeMinutes))
	return nil
}

// OnSiteAssembled closes annotation, runs the export phase when activated
// and moves the driver to done.
func (d *Driver) OnSiteAssembled(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.phase == PhaseIdle {
		if err := d.advance(PhaseAnnotating); err != nil {
			return err
		}
	}
	if d.phase != PhaseAnnotating {
		return phaseOrderError(d.phase, PhaseDone)
	}

	res := &Result{
		Pages:          len(d.pages),
		ExportEnabled:  d.cfg.Enabled,
		Source:         d.cfg.Source,
		Outcome:        metrics.OutcomeAnnotated,
		PhaseDurations: map[Phase]time.Duration{PhaseAnnotating: d.annotated},
	}
	d.recorder.ObservePhaseDuration(string(PhaseAnnotating), d.annotated)
	d.recorder.IncPhaseResult(string(PhaseAnnotating), metrics.ResultSuccess)

	var runErr error
	if d.cfg.Enabled {
		runErr = d.runExport(ctx, res)
	} else {
		slog.Info("Export not activated; pages annotated only",
			logfields.Count(len(d.pages)),
			slog.String("source", string(d.cfg.Source)))
	}

	d.phase = PhaseDone
	d.result = res
	d.recorder.ObserveRunDuration(time.Since(d.start))
	d.recorder.IncRunOutcome(res.Outcome)
	return runErr
}

func (d *Driver) runExport(ctx context.Context, res *Result) error {
	if err := d.advance(PhaseExporting); err != nil {
		return err
	}

	t0 := time.Now()
	report, err := d.exporter.Run(ctx, d.pages)
	dur := time.Since(t0)
	res.PhaseDurations[PhaseExporting] = dur
	d.recorder.ObservePhaseDuration(string(PhaseExporting), dur)

	if err != nil {
		result := metrics.ResultFatal
		res.Outcome = metrics.OutcomeFailed
		if ctx.Err() != nil {
			result = metrics.ResultCanceled
			res.Outcome = metrics.OutcomeCanceled
		}
		d.recorder.IncPhaseResult(string(PhaseExporting), result)
		slog.Error("Export phase failed", logfields.Phase(string(PhaseExporting)), logfields.Error(err))
		return err
	}

	res.Report = report
	res.Outcome = report.Outcome()
	d.recorder.IncPhaseResult(string(PhaseExporting), metrics.ResultSuccess)

	if d.notifier != nil {
		if nerr := d.notifier.ExportCompleted(ctx, report.Summary()); nerr != nil {
			werr := derrors.Wrap(nerr, derrors.CategoryNotify, derrors.SeverityWarning, "publish export event")
			slog.Warn("Export notification failed", logfields.RunID(report.RunID), logfields.Error(werr))
		}
	}
	return nil
}

// advance moves to the next phase. Callers hold d.mu.
func (d *Driver) advance(to Phase) error {
	if !canAdvance(d.phase, to) {
		return phaseOrderError(d.phase, to)
	}
	if d.phase == PhaseIdle {
		d.start = time.Now()
	}
	slog.Debug("Pipeline phase change", logfields.Phase(string(to)), slog.String("from", string(d.phase)))
	d.phase = to
	return nil
}

// Run feeds pages through both lifecycle events without a host.
func (d *Driver) Run(ctx context.Context, pages []*site.Page) (*Result, error) {
	for _, p := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := d.OnPageRendered(ctx, p); err != nil {
			return nil, err
		}
	}
	if err := d.OnSiteAssembled(ctx); err != nil {
		return d.Result(), err
	}
	return d.Result(), nil
}
