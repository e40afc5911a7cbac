package checkout

import (
	"buybuzz-be/internal/cart"
	"buybuzz-be/internal/order"
)

type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateCommitted  State = "committed"
	StateFailed     State = "failed"
)

// Attempt describes one checkout invocation. Committed and Failed are
// terminal; a retry starts a new attempt.
type Attempt struct {
	ID      string
	Session string
	State   State
	Summary cart.Summary
	Order   *order.Order
}

func (a *Attempt) transition(to State) bool {
	switch {
	case a.State == StateIdle && to == StateSubmitting,
		a.State == StateSubmitting && (to == StateCommitted || to == StateFailed):
		a.State = to
		return true
	}
	return false
}

func (a *Attempt) Done() bool {
	return a.State == StateCommitted || a.State == StateFailed
}
