package engine

import (
	"errors"
	"fmt"
)

// DefaultMaxTicks is the tick budget for learner programs.
const DefaultMaxTicks = 1_000_000

// TickBudget bounds one interpretation run.
//
// A tick is consumed by every loop iteration, every explicit timeout
// checkpoint, and every appended action. Because each appended action
// costs a tick, a log produced under a budget of N holds at most N actions.
//
// Reference programs are trusted and run with an unlimited budget.
type TickBudget struct {
	max     int // <= 0 means unlimited
	current int
}

// NewTickBudget creates a budget allowing maxTicks ticks.
// A non-positive maxTicks yields an unlimited budget.
func NewTickBudget(maxTicks int) *TickBudget {
	return &TickBudget{max: maxTicks}
}

// NewUnlimitedBudget creates a budget that never runs out.
func NewUnlimitedBudget() *TickBudget {
	return &TickBudget{}
}

// Check consumes one tick. It returns *BudgetExceededError once the
// budget is exhausted.
func (b *TickBudget) Check(nodeID string) error {
	b.current++
	if b.max > 0 && b.current > b.max {
		return &BudgetExceededError{
			NodeID: nodeID,
			Ticks:  b.current,
			Limit:  b.max,
		}
	}
	return nil
}

// Reset sets the tick counter back to zero.
func (b *TickBudget) Reset() {
	b.current = 0
}

// Used returns the ticks consumed so far.
func (b *TickBudget) Used() int {
	return b.current
}

// Max returns the limit, or 0 when unlimited.
func (b *TickBudget) Max() int {
	if b.max <= 0 {
		return 0
	}
	return b.max
}

// Unlimited reports whether the budget never runs out.
func (b *TickBudget) Unlimited() bool {
	return b.max <= 0
}

// BudgetExceededError is returned when a run exhausts its tick budget.
//
// It is an expected outcome, not a fault: the partial command log is kept
// and still replayed.
type BudgetExceededError struct {
	NodeID string // node that consumed the final tick, if known
	Ticks  int
	Limit  int
}

func (e *BudgetExceededError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("execution budget exceeded at %s: %d ticks > %d limit", e.NodeID, e.Ticks, e.Limit)
	}
	return fmt.Sprintf("execution budget exceeded: %d ticks > %d limit", e.Ticks, e.Limit)
}

// RuntimeError converts the error into its coded form.
func (e *BudgetExceededError) RuntimeError() *RuntimeError {
	return NewBudgetError(e.NodeID, e.Ticks, e.Limit)
}

// IsBudgetExceededError reports whether err is a *BudgetExceededError.
func IsBudgetExceededError(err error) bool {
	var be *BudgetExceededError
	return errors.As(err, &be)
}
