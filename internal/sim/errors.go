package sim

import (
	"errors"
	"fmt"
)

// ErrFailureTolerance is returned when more iterations fail than the
// request's FailureTolerance allows.
var ErrFailureTolerance = errors.New("sim: iteration failures exceed tolerance")

// IterationError locates a failed iteration. Failed iterations are excluded
// from the statistics.
type IterationError struct {
	Level     int
	Iteration int
	// Encounter is the 1-based encounter of the day; 0 means setup.
	Encounter int
	Round     int
	Actor     string
	Err       error
}

func (e *IterationError) Error() string {
	return fmt.Sprintf("level %d iteration %d encounter %d round %d actor %q: %v",
		e.Level, e.Iteration, e.Encounter, e.Round, e.Actor, e.Err)
}

func (e *IterationError) Unwrap() error { return e.Err }
