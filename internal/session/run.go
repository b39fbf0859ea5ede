package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/roach88/turtle/internal/carry"
	"github.com/roach88/turtle/internal/engine"
	"github.com/roach88/turtle/internal/evaluate"
	"github.com/roach88/turtle/internal/feedback"
	"github.com/roach88/turtle/internal/ir"
	"github.com/roach88/turtle/internal/replay"
)

// ErrCancelled is returned by Run.Wait when ResetProgram or a newer run
// superseded a paced run.
var ErrCancelled = errors.New("run cancelled")

// Mode selects how a run is replayed.
type Mode int

const (
	// Instant replays the whole log before RunProgram returns.
	Instant Mode = iota
	// Paced replays one action per scheduled step.
	Paced
)

// String returns "instant" or "paced".
func (m Mode) String() string {
	if m == Paced {
		return "paced"
	}
	return "instant"
}

// ParseMode parses "instant" or "paced".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "instant", "":
		return Instant, nil
	case "paced":
		return Paced, nil
	}
	return Instant, fmt.Errorf("unknown run mode %q", s)
}

// Result is a finished run.
type Result struct {
	Outcome  evaluate.Outcome  `json:"outcome"`
	Feedback feedback.Feedback `json:"feedback"`
	Report   ir.Report         `json:"report"`
	State    replay.State      `json:"-"`
}

// Run is one attempt. Interpretation is done by the time RunProgram
// returns; the result arrives when replay ends.
type Run struct {
	Attempt   int64
	Mode      Mode
	Execution *engine.Execution

	// Err is the budget overrun or program fault that ended interpretation
	// early, and Notice the blocking message for it. The partial log is
	// still replayed and graded.
	Err    error
	Notice string

	once   sync.Once
	done   chan struct{}
	result Result
	err    error
}

func newRun(attempt int64, mode Mode) *Run {
	return &Run{Attempt: attempt, Mode: mode, done: make(chan struct{})}
}

// settle records the run's end. Only the first call has any effect, and it
// reports whether it was first.
func (r *Run) settle(res Result, err error) bool {
	first := false
	r.once.Do(func() {
		r.result = res
		r.err = err
		close(r.done)
		first = true
	})
	return first
}

// Done is closed when the run finishes or is cancelled.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the run finishes. It returns ErrCancelled for a
// superseded run.
func (r *Run) Wait(ctx context.Context) (Result, error) {
	select {
	case <-r.done:
		return r.result, r.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// RunProgram runs the editor's current program.
//
// A previous paced run still replaying is cancelled first. Budget overruns
// and program faults do not fail the call: they set Run.Err and Run.Notice
// and the run is graded on the partial log. The error return is reserved
// for cancellation of ctx during interpretation.
func (s *Session) RunProgram(ctx context.Context, mode Mode) (*Run, error) {
	s.mu.Lock()
	if s.current != nil {
		s.current.settle(Result{}, ErrCancelled)
	}
	run := newRun(s.clock.Next(), mode)
	s.current = run
	s.mu.Unlock()

	source := s.editor.Source()
	nodes := s.editor.Nodes()
	logger := s.logger.With("session_id", s.id, "level_id", s.level.ID, "attempt", run.Attempt)

	exec, err := s.interp.Run(ctx, source)
	run.Execution = exec
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		run.settle(Result{}, err)
		return nil, err
	case engine.IsBudgetError(err):
		run.Err = err
		run.Notice = s.controller.RunError(s.fbctx, true, "")
	default:
		run.Err = err
		run.Notice = s.controller.RunError(s.fbctx, false, faultDetail(err))
		logger.Info("program faulted", "error", err)
	}
	logger.Debug("program interpreted",
		"actions", exec.Log.Len(),
		"ticks_used", exec.TicksUsed,
		"aborted", exec.Aborted)

	s.replayer.Reset(s.level.Start)
	s.replayer.Load(exec.Log.Clone())

	// the report outlives a request-scoped ctx when pacing
	finishCtx := context.WithoutCancel(ctx)
	if mode == Paced {
		s.replayer.Pace(s.speed, func(st replay.State) {
			s.finish(finishCtx, run, source, nodes, st)
		})
		return run, nil
	}
	s.replayer.RunToCompletion()
	s.finish(finishCtx, run, source, nodes, s.replayer.State())
	return run, nil
}

// finish grades a replayed run, reports it and carries the program on.
func (s *Session) finish(ctx context.Context, run *Run, source string, nodes []ir.Node, st replay.State) {
	s.mu.Lock()
	superseded := s.current != run
	s.mu.Unlock()
	if superseded {
		run.settle(Result{}, ErrCancelled)
		return
	}
	logger := s.logger.With("session_id", s.id, "level_id", s.level.ID, "attempt", run.Attempt)

	out, err := evaluate.Evaluate(evaluate.Input{
		Source:      source,
		Nodes:       nodes,
		User:        s.replayer.Surface().Alpha(),
		Answer:      s.reference,
		ColoursUsed: st.ColoursUsed,
		Incomplete:  run.Err != nil,
	}, s.criteria)
	if err != nil {
		logger.Error("evaluation failed", "error", err)
		run.settle(Result{State: st}, err)
		return
	}

	fb := s.controller.Decide(out, s.fbctx)
	report := feedback.NewReport(feedback.ReportInput{
		SessionID: s.id,
		LevelID:   s.level.ID,
		Source:    source,
		Attempt:   run.Attempt,
		Elapsed:   s.now().Sub(s.started),
	}, out)

	if !run.settle(Result{Outcome: out, Feedback: fb, Report: report, State: st}, nil) {
		return
	}
	logger.Info("run graded",
		"tier", out.Tier,
		"delta", out.Delta,
		"nodes_used", out.NodesUsed,
		"succeeded", out.Succeeded())

	for _, r := range s.reporters {
		if err := r.Report(ctx, report); err != nil {
			logger.Warn("attempt report failed", "error", err)
		}
	}
	if s.observer != nil {
		ticks := 0
		if run.Execution != nil {
			ticks = run.Execution.TicksUsed
		}
		s.observer.ObserveRun(s.level.ID, out.Tier, ticks, engine.IsBudgetError(run.Err))
	}
	if out.Succeeded() && run.Err == nil && s.level.CarryTo != "" {
		if err := s.carry.Put(ctx, s.id, s.level.CarryTo, source); err != nil {
			logger.Warn("carry-over not saved", "key", s.level.CarryTo, "error", err)
		}
	}
}

// ResetProgram cancels any pending paced run and restores the start pose
// on a cleared surface. Calling it repeatedly is harmless.
func (s *Session) ResetProgram() {
	s.mu.Lock()
	if s.current != nil {
		s.current.settle(Result{}, ErrCancelled)
		s.current = nil
	}
	s.mu.Unlock()
	s.replayer.Reset(s.level.Start)
}

// Start is the program a level opens with.
type Start struct {
	Source  string `json:"source"`
	Carried bool   `json:"carried"`
	// Notice is set when the level builds on a carried program that is
	// missing or lacks the definition it needs.
	Notice string `json:"notice,omitempty"`
}

// StartingProgram returns the program to load into the editor. Levels with
// carry_from start from the program saved by an earlier level in this
// session, falling back to start_program.
func (s *Session) StartingProgram(ctx context.Context) (Start, error) {
	fallback := Start{Source: s.level.StartProgram}
	if s.level.CarryFrom == "" {
		return fallback, nil
	}

	blob, err := s.carry.Get(ctx, s.id, s.level.CarryFrom)
	switch {
	case errors.Is(err, carry.ErrNotFound):
		fallback.Notice = s.controller.CarryMissing(s.fbctx)
		return fallback, nil
	case err != nil:
		return Start{}, fmt.Errorf("loading carried program: %w", err)
	}

	start := Start{Source: blob, Carried: true}
	if req := s.level.CarryRequires; req != "" && !strings.Contains(blob, req) {
		start.Notice = s.controller.CarryMissing(s.fbctx)
	}
	return start, nil
}

// faultDetail extracts the learner-facing part of a program fault.
func faultDetail(err error) string {
	var re *engine.RuntimeError
	if errors.As(err, &re) {
		if re.Err != nil {
			return re.Err.Error()
		}
		return re.Message
	}
	return err.Error()
}
