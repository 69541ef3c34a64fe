package reverb

import (
	"errors"
	"fmt"
)

// ErrBudgetExceeded is reported (via the logger and instrumentation)
// when a flush exhausts the engine's effect budget. This happens when
// effects cascade into more effects than WithEffectBudget allows within
// a single flush, usually a sign of a non-converging effect graph.
//
// The remaining jobs stay queued and run on the next flush.
var ErrBudgetExceeded = errors.New("reverb: effect budget exceeded")

// EffectPanicError wraps a panic recovered from an effect body during a
// flush. The flush runs the remaining queued jobs before re-raising the
// first fault as this error, so one misbehaving effect cannot starve
// the rest of the queue.
type EffectPanicError struct {
	// EffectID identifies the effect whose body panicked.
	EffectID uint64

	// Value is the recovered panic value.
	Value any
}

// Error implements the error interface.
func (e *EffectPanicError) Error() string {
	return fmt.Sprintf("reverb: effect %d panicked: %v", e.EffectID, e.Value)
}

// Unwrap returns the panic value if it was an error, for errors.Is/As
// support.
func (e *EffectPanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
