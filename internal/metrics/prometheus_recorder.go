package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "docexport"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once              sync.Once
	phaseDuration     *prom.HistogramVec
	runDuration       prom.Histogram
	phaseResults      *prom.CounterVec
	pageResults       *prom.CounterVec
	runOutcome        *prom.CounterVec
	indexEntries      prom.Gauge
	exportConcurrency prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.phaseDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Duration of pipeline phases",
			Buckets:   prom.DefBuckets,
		}, []string{"phase"})
		pr.runDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Total pipeline run duration",
			Buckets:   prom.DefBuckets,
		})
		pr.phaseResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "phase_results_total",
			Help:      "Phase result counts by outcome",
		}, []string{"phase", "result"})
		pr.pageResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "page_results_total",
			Help:      "Exported page results",
		}, []string{"result"})
		pr.runOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "run_outcomes_total",
			Help:      "Pipeline runs by final status",
		}, []string{"outcome"})
		pr.indexEntries = prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "search_index_entries",
			Help:      "Entries in the last written search index",
		})
		pr.exportConcurrency = prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "export_concurrency",
			Help:      "Worker count of the last export phase",
		})
		reg.MustRegister(pr.phaseDuration, pr.runDuration, pr.phaseResults, pr.pageResults, pr.runOutcome, pr.indexEntries, pr.exportConcurrency)
	})
	return pr
}

func (p *PrometheusRecorder) ObservePhaseDuration(phase string, d time.Duration) {
	if p == nil || p.phaseDuration == nil {
		return
	}
	p.phaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	if p == nil || p.runDuration == nil {
		return
	}
	p.runDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncPhaseResult(phase string, result ResultLabel) {
	if p == nil || p.phaseResults == nil {
		return
	}
	p.phaseResults.WithLabelValues(phase, string(result)).Inc()
}

func (p *PrometheusRecorder) IncPageResult(result ResultLabel) {
	if p == nil || p.pageResults == nil {
		return
	}
	p.pageResults.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) IncRunOutcome(outcome OutcomeLabel) {
	if p == nil || p.runOutcome == nil {
		return
	}
	p.runOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) SetIndexEntries(n int) {
	if p == nil || p.indexEntries == nil {
		return
	}
	p.indexEntries.Set(float64(n))
}

func (p *PrometheusRecorder) SetExportConcurrency(n int) {
	if p == nil || p.exportConcurrency == nil {
		return
	}
	p.exportConcurrency.Set(float64(n))
}
