package metrics

import (
	"testing"
	"time"
)

var (
	_ Recorder = NoopRecorder{}
	_ Recorder = (*PrometheusRecorder)(nil)
)

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObservePhaseDuration("annotating", time.Millisecond)
	r.ObserveRunDuration(time.Millisecond)
	r.IncPhaseResult("annotating", ResultSuccess)
	r.IncPageResult(ResultUnchanged)
	r.IncRunOutcome(OutcomeCanceled)
	r.SetIndexEntries(0)
	r.SetExportConcurrency(1)
}
