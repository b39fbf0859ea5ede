package engine

import (
	"sync"

	"github.com/roach88/turtle/internal/ir"
)

// CommandLog is the FIFO of Actions produced by one interpretation run.
//
// The interpreter appends; a replayer shifts. The log is unbounded here;
// the tick budget is what bounds its length.
//
// Thread-safety: a paced replay shifts from a timer goroutine while the
// session may snapshot for transcripts, so access is mutex-guarded.
type CommandLog struct {
	mu      sync.Mutex
	actions []ir.Action
}

// NewCommandLog creates an empty log.
func NewCommandLog() *CommandLog {
	return &CommandLog{actions: make([]ir.Action, 0, 64)}
}

// NewCommandLogFrom creates a log pre-filled with actions, in order.
func NewCommandLogFrom(actions []ir.Action) *CommandLog {
	l := &CommandLog{actions: make([]ir.Action, len(actions))}
	copy(l.actions, actions)
	return l
}

// Append adds an action to the back of the log.
func (l *CommandLog) Append(a ir.Action) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.actions = append(l.actions, a)
}

// Shift removes and returns the front action.
// Returns (ir.Action{}, false) when the log is empty.
func (l *CommandLog) Shift() (ir.Action, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.actions) == 0 {
		return ir.Action{}, false
	}
	a := l.actions[0]

	// Clear the slot so the backing array does not pin arg slices.
	l.actions[0] = ir.Action{}
	if len(l.actions) == 1 {
		l.actions = l.actions[:0]
	} else {
		l.actions = l.actions[1:]
	}
	return a, true
}

// Len returns the number of actions not yet shifted.
func (l *CommandLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.actions)
}

// Snapshot returns a copy of the remaining actions without consuming them.
func (l *CommandLog) Snapshot() []ir.Action {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := make([]ir.Action, len(l.actions))
	copy(cp, l.actions)
	return cp
}

// Clone returns an independent log holding the remaining actions.
func (l *CommandLog) Clone() *CommandLog {
	return NewCommandLogFrom(l.Snapshot())
}
