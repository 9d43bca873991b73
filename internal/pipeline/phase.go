package pipeline

import (
	"errors"
	"fmt"
	"slices"

	derrors "git.home.luguber.info/inful/docexport/internal/errors"
)

// Phase is a strongly-typed identifier for a driver phase.
type Phase string

// Driver phases in lifecycle order.
const (
	PhaseIdle       Phase = "idle"
	PhaseAnnotating Phase = "annotating"
	PhaseExporting  Phase = "exporting"
	PhaseDone       Phase = "done"
)

// ErrPhaseOrder is returned when a lifecycle event arrives in a phase that
// cannot accept it.
var ErrPhaseOrder = errors.New("phase order violated")

// transitions lists the phases reachable from each phase. Exporting is
// skipped when export is not activated.
var transitions = map[Phase][]Phase{
	PhaseIdle:       {PhaseAnnotating},
	PhaseAnnotating: {PhaseExporting, PhaseDone},
	PhaseExporting:  {PhaseDone},
}

func canAdvance(from, to Phase) bool {
	return slices.Contains(transitions[from], to)
}

func phaseOrderError(from, to Phase) error {
	return derrors.PhaseOrder(string(from), string(to),
		fmt.Errorf("%w: %s -> %s", ErrPhaseOrder, from, to))
}
