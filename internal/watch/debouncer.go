package watch

import (
	"context"
	"errors"
	"time"
)

// Debouncer coalesces bursts of change notifications into single rebuild
// signals. A quiet window restarts on every request; MaxDelay bounds how
// long a steady stream of changes can postpone the signal.
type Debouncer struct {
	quiet    time.Duration
	maxDelay time.Duration
	requests chan struct{}
	fire     chan int
}

// NewDebouncer creates a debouncer. Both durations must be positive.
func NewDebouncer(quiet, maxDelay time.Duration) (*Debouncer, error) {
	if quiet <= 0 {
		return nil, errors.New("quiet window must be > 0")
	}
	if maxDelay <= 0 {
		return nil, errors.New("max delay must be > 0")
	}
	return &Debouncer{
		quiet:    quiet,
		maxDelay: maxDelay,
		requests: make(chan struct{}, 64),
		fire:     make(chan int, 1),
	}, nil
}

// Trigger records a change. It never blocks.
func (d *Debouncer) Trigger() {
	select {
	case d.requests <- struct{}{}:
	default:
	}
}

// C delivers the number of coalesced requests for each rebuild signal. At
// most one signal is buffered; signals raised while one is pending merge
// into it.
func (d *Debouncer) C() <-chan int { return d.fire }

// Run processes requests until ctx is done.
func (d *Debouncer) Run(ctx context.Context) {
	quietTimer := newStoppedTimer()
	maxTimer := newStoppedTimer()
	var quietC, maxC <-chan time.Time
	count := 0

	for {
		select {
		case <-ctx.Done():
			quietTimer.Stop()
			maxTimer.Stop()
			return
		case <-d.requests:
			count++
			resetTimer(quietTimer, d.quiet)
			quietC = quietTimer.C
			if count == 1 {
				resetTimer(maxTimer, d.maxDelay)
				maxC = maxTimer.C
			}
		case <-quietC:
			d.emit(count)
			count, quietC, maxC = 0, nil, nil
			maxTimer.Stop()
		case <-maxC:
			d.emit(count)
			count, quietC, maxC = 0, nil, nil
			quietTimer.Stop()
		}
	}
}

func (d *Debouncer) emit(count int) {
	select {
	case d.fire <- count:
	default:
		// A signal is already pending; the rebuild it triggers covers these changes too.
	}
}

func newStoppedTimer() *time.Timer {
	t := time.NewTimer(time.Hour)
	if !t.Stop() {
		<-t.C
	}
	return t
}

func resetTimer(t *time.Timer, after time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(after)
}
