package export

import (
	"time"

	"git.home.luguber.info/inful/docexport/internal/metrics"
)

// PageFailure records a page whose export was skipped.
type PageFailure struct {
	Identity string
	Err      error
}

// Report summarizes one export run.
type Report struct {
	RunID        string
	OutputDir    string
	Start        time.Time
	End          time.Time
	Pages        int // pages handed to the run
	Written      int // artifacts created or changed
	Unchanged    int // artifacts already up to date
	Failures     []PageFailure
	IndexEntries int
	Pruned       int
}

// Exported returns the number of pages with a current artifact.
func (r *Report) Exported() int { return r.Written + r.Unchanged }

// Failed returns the number of skipped pages.
func (r *Report) Failed() int { return len(r.Failures) }

// Duration returns the wall time of the run.
func (r *Report) Duration() time.Duration { return r.End.Sub(r.Start) }

// Outcome classifies the run for metrics and events.
func (r *Report) Outcome() metrics.OutcomeLabel {
	if len(r.Failures) > 0 {
		return metrics.OutcomePartial
	}
	return metrics.OutcomeExported
}

// Summary is the serializable form of a Report.
type Summary struct {
	RunID        string           `json:"run_id"`
	OutputDir    string           `json:"output_dir"`
	Start        time.Time        `json:"start"`
	End          time.Time        `json:"end"`
	DurationMS   int64            `json:"duration_ms"`
	Outcome      string           `json:"outcome"`
	Pages        int              `json:"pages"`
	Written      int              `json:"written"`
	Unchanged    int              `json:"unchanged"`
	Failed       int              `json:"failed"`
	Failures     []FailureSummary `json:"failures,omitempty"`
	IndexEntries int              `json:"index_entries"`
	Pruned       int              `json:"pruned"`
}

// FailureSummary is the serializable form of a PageFailure.
type FailureSummary struct {
	Page  string `json:"page"`
	Error string `json:"error"`
}

// Summary converts the report for JSON consumers.
func (r *Report) Summary() Summary {
	s := Summary{
		RunID:        r.RunID,
		OutputDir:    r.OutputDir,
		Start:        r.Start,
		End:          r.End,
		DurationMS:   r.Duration().Milliseconds(),
		Outcome:      string(r.Outcome()),
		Pages:        r.Pages,
		Written:      r.Written,
		Unchanged:    r.Unchanged,
		Failed:       r.Failed(),
		IndexEntries: r.IndexEntries,
		Pruned:       r.Pruned,
	}
	for _, f := range r.Failures {
		s.Failures = append(s.Failures, FailureSummary{Page: f.Identity, Error: f.Err.Error()})
	}
	return s
}
