package metrics

import "time"

// ResultLabel enumerates phase and page result categories for counters.
type ResultLabel string

const (
	ResultSuccess   ResultLabel = "success"
	ResultUnchanged ResultLabel = "unchanged"
	ResultFailed    ResultLabel = "failed"
	ResultFatal     ResultLabel = "fatal"
	ResultCanceled  ResultLabel = "canceled"
)

// OutcomeLabel enumerates the final status of a pipeline run.
type OutcomeLabel string

const (
	OutcomeExported  OutcomeLabel = "exported"  // export phase ran without page failures
	OutcomePartial   OutcomeLabel = "partial"   // export ran, some pages failed
	OutcomeAnnotated OutcomeLabel = "annotated" // export not activated
	OutcomeFailed    OutcomeLabel = "failed"
	OutcomeCanceled  OutcomeLabel = "canceled"
)

// Recorder defines observability hooks for pipeline metrics. Implementations
// may forward to Prometheus or elsewhere. NoopRecorder is the default.
type Recorder interface {
	ObservePhaseDuration(phase string, d time.Duration)
	ObserveRunDuration(d time.Duration)
	IncPhaseResult(phase string, result ResultLabel)
	IncPageResult(result ResultLabel)
	IncRunOutcome(outcome OutcomeLabel)
	SetIndexEntries(n int)
	SetExportConcurrency(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObservePhaseDuration(string, time.Duration) {}
func (NoopRecorder) ObserveRunDuration(time.Duration)           {}
func (NoopRecorder) IncPhaseResult(string, ResultLabel)         {}
func (NoopRecorder) IncPageResult(ResultLabel)                  {}
func (NoopRecorder) IncRunOutcome(OutcomeLabel)                 {}
func (NoopRecorder) SetIndexEntries(int)                        {}
func (NoopRecorder) SetExportConcurrency(int)                   {}
