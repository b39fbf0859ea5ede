package replay

import (
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/roach88/turtle/internal/engine"
	"github.com/roach88/turtle/internal/ir"
)

// zeroBump offsets the end of a zero-length stroke so it still leaves a dot.
const zeroBump = 0.1

// HighlightFunc receives the node id of the most recently applied action,
// or "" to clear the highlight. It is called without the replayer's lock
// held but must not block.
type HighlightFunc func(nodeID string)

// Replayer owns one execution state and consumes command logs into it.
//
// Thread-safety: paced steps run on scheduler goroutines, so all state is
// guarded by mu. Callbacks are always invoked after mu is released.
type Replayer struct {
	mu        sync.Mutex
	surface   Surface
	sched     Scheduler
	highlight HighlightFunc
	logger    *slog.Logger

	state   State
	log     *engine.CommandLog
	gen     uint64 // bumped by Reset and Pace; stale steps compare and bail
	pending Timer
}

// Option configures a Replayer.
type Option func(*Replayer)

// WithScheduler sets the scheduler used by Pace. Default: RealScheduler.
func WithScheduler(s Scheduler) Option {
	return func(r *Replayer) {
		r.sched = s
	}
}

// WithHighlighter sets the node highlight callback.
func WithHighlighter(h HighlightFunc) Option {
	return func(r *Replayer) {
		r.highlight = h
	}
}

// WithLogger sets the logger; defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Replayer) {
		r.logger = l
	}
}

// New creates a replayer drawing onto surface, reset to ir.DefaultPose.
func New(surface Surface, opts ...Option) *Replayer {
	r := &Replayer{
		surface: surface,
		sched:   RealScheduler{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.Reset(ir.DefaultPose)
	return r
}

// Reset cancels any pending paced step, discards the current log, clears
// the surface and starts a fresh state at pose. Calling it repeatedly is
// harmless.
func (r *Replayer) Reset(pose ir.Pose) {
	r.mu.Lock()
	r.cancelLocked()
	r.state = NewState(pose)
	r.log = engine.NewCommandLog()
	r.surface.Clear()
	r.mu.Unlock()

	r.notify("")
}

// Load sets the log that ApplyNext, RunToCompletion and Pace consume.
// The state is not reset; call Reset first for a fresh run.
func (r *Replayer) Load(log *engine.CommandLog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log = log
}

// ApplyNext applies one action. It reports whether an action was applied
// and whether that action carried a highlightable node id.
func (r *Replayer) ApplyNext() (applied, highlighted bool) {
	r.mu.Lock()
	a, ok := r.applyLocked()
	r.mu.Unlock()

	if !ok {
		return false, false
	}
	r.notify(a.NodeID)
	return true, a.NodeID != ""
}

// RunToCompletion applies every remaining action back-to-back and returns
// how many were applied. The highlight is cleared at the end.
func (r *Replayer) RunToCompletion() int {
	n := 0
	for {
		applied, _ := r.ApplyNext()
		if !applied {
			break
		}
		n++
	}
	r.notify("")
	return n
}

// Pace applies the remaining actions one per scheduled step, StartDelay
// after the call and then Interval(speed) apart. When the log is exhausted
// the highlight is cleared and onDone receives the final state.
//
// A Reset or another Pace supersedes the run: its pending step is stopped
// and, should it fire anyway, it does nothing.
func (r *Replayer) Pace(speed float64, onDone func(State)) {
	interval := Interval(speed)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelLocked()
	gen := r.gen
	r.pending = r.sched.AfterFunc(StartDelay, func() {
		r.step(gen, interval, onDone)
	})
}

func (r *Replayer) step(gen uint64, interval time.Duration, onDone func(State)) {
	r.mu.Lock()
	if gen != r.gen {
		r.mu.Unlock()
		r.logger.Debug("stale replay step ignored", "generation", gen)
		return
	}
	r.pending = nil

	a, ok := r.applyLocked()
	if !ok {
		final := r.state.Clone()
		r.mu.Unlock()
		r.notify("")
		if onDone != nil {
			onDone(final)
		}
		return
	}
	r.pending = r.sched.AfterFunc(interval, func() {
		r.step(gen, interval, onDone)
	})
	r.mu.Unlock()

	r.notify(a.NodeID)
}

// Cancel stops any pending paced step without touching the state.
func (r *Replayer) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelLocked()
}

// Pending reports whether a paced step is scheduled.
func (r *Replayer) Pending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending != nil
}

// Remaining returns the number of actions not yet applied.
func (r *Replayer) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.log.Len()
}

// State returns a copy of the current execution state.
func (r *Replayer) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Clone()
}

// Surface returns the surface the replayer draws on.
func (r *Replayer) Surface() Surface {
	return r.surface
}

func (r *Replayer) cancelLocked() {
	r.gen++
	if r.pending != nil {
		r.pending.Stop()
		r.pending = nil
	}
}

func (r *Replayer) notify(nodeID string) {
	if r.highlight != nil {
		r.highlight(nodeID)
	}
}

// applyLocked shifts and applies one action. Invalid actions are logged and
// skipped; nothing escapes as an error.
func (r *Replayer) applyLocked() (ir.Action, bool) {
	a, ok := r.log.Shift()
	if !ok {
		return ir.Action{}, false
	}
	if err := a.Validate(); err != nil {
		r.logger.Warn("skipping invalid action", "action", a.String(), "error", err)
		return a, true
	}
	apply(&r.state, r.surface, a)
	return a, true
}

// apply executes one primitive against state and surface.
func apply(s *State, surface Surface, a ir.Action) {
	switch a.Kind {
	case ir.KindMove, ir.KindJump:
		distance, _ := a.Number(0)
		from := Point{X: s.X, Y: s.Y}
		bump := 0.0
		if distance != 0 {
			rad := s.Heading * math.Pi / 180
			s.X += distance * math.Sin(rad)
			s.Y -= distance * math.Cos(rad)
		} else {
			bump = zeroBump
		}
		if a.Kind == ir.KindMove && s.PenDown {
			surface.Stroke(from, Point{X: s.X, Y: s.Y + bump}, s.Pen())
			if distance != 0 {
				s.recordColour(strings.ToLower(s.PenColour))
			}
		}

	case ir.KindTurn:
		angle, _ := a.Number(0)
		s.Heading = normalizeHeading(s.Heading + angle)

	case ir.KindPrint:
		text, _ := a.Text(0)
		surface.Text(Point{X: s.X, Y: s.Y}, s.Heading-90, text, s.Pen(), s.Font)

	case ir.KindFont:
		family, _ := a.Text(0)
		size, _ := a.Number(1)
		style, _ := a.Text(2)
		s.Font = Font{Family: family, Size: size, Style: style}

	case ir.KindPenUp:
		s.PenDown = false
	case ir.KindPenDown:
		s.PenDown = true
	case ir.KindPenWidth:
		s.PenWidth, _ = a.Number(0)
	case ir.KindPenColour:
		s.PenColour, _ = a.Text(0)
	case ir.KindHide:
		s.Visible = false
	case ir.KindShow:
		s.Visible = true
	case ir.KindHighlight:
		// highlight only
	}
}

// normalizeHeading maps degrees into [0,360).
func normalizeHeading(h float64) float64 {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	if h >= 360 || h == 0 {
		// clears -0 and the 360 produced by adding to a tiny negative
		h = 0
	}
	return h
}
