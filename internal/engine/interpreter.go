package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/turtle/internal/compiler"
)

// MaxCallDepth bounds nested user function calls.
const MaxCallDepth = 1000

// Execution is the result of one interpretation run.
//
// Log holds every action appended before the run ended, including runs that
// ended early, so an aborted program still animates up to the abort point.
type Execution struct {
	Log       *CommandLog
	TicksUsed int
	Aborted   bool // budget exhausted
}

// Interpreter runs compiled program source against the deferred-effect API.
//
// An Interpreter holds configuration only; each Run gets a fresh log, budget
// and variable scope, so one Interpreter may be reused across runs.
type Interpreter struct {
	maxTicks int
	maxDepth int
	logger   *slog.Logger
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithMaxTicks sets the tick budget per run.
//
// Default: DefaultMaxTicks. Use small values in tests to exercise overruns.
func WithMaxTicks(n int) Option {
	return func(in *Interpreter) {
		in.maxTicks = n
	}
}

// WithUnlimitedTicks disables the tick budget. Only for trusted reference
// programs.
func WithUnlimitedTicks() Option {
	return func(in *Interpreter) {
		in.maxTicks = 0
	}
}

// WithMaxCallDepth bounds nested user function calls.
func WithMaxCallDepth(n int) Option {
	return func(in *Interpreter) {
		in.maxDepth = n
	}
}

// WithLogger sets the logger; defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(in *Interpreter) {
		in.logger = l
	}
}

// NewInterpreter creates an interpreter with DefaultMaxTicks and
// MaxCallDepth unless overridden.
func NewInterpreter(opts ...Option) *Interpreter {
	in := &Interpreter{
		maxTicks: DefaultMaxTicks,
		maxDepth: MaxCallDepth,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// MaxTicks returns the configured budget, 0 when unlimited.
func (in *Interpreter) MaxTicks() int {
	return in.maxTicks
}

// Run parses and executes source.
//
// The returned Execution is never nil. Errors:
//   - *BudgetExceededError: the budget ran out; Execution.Aborted is set
//     and the partial log is kept
//   - *RuntimeError with ErrCodeUserProgram: syntax error or runtime fault
//     in the program; the partial log is kept
//   - a wrapped context error if ctx was cancelled mid-run
func (in *Interpreter) Run(ctx context.Context, source string) (*Execution, error) {
	exec := &Execution{Log: NewCommandLog()}

	prog, err := compiler.Parse(source)
	if err != nil {
		in.logger.Debug("program rejected by parser", "error", err)
		return exec, NewUserProgramError("", err)
	}

	err = in.execute(ctx, prog, exec)
	switch {
	case err == nil:
		in.logger.Debug("program finished",
			"actions", exec.Log.Len(),
			"ticks_used", exec.TicksUsed)
	case IsBudgetExceededError(err):
		exec.Aborted = true
		in.logger.Info("program exceeded tick budget",
			"actions", exec.Log.Len(),
			"ticks_used", exec.TicksUsed,
			"max_ticks", in.maxTicks)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		in.logger.Info("program interpretation cancelled", "ticks_used", exec.TicksUsed)
		err = fmt.Errorf("interpretation cancelled: %w", err)
	default:
		in.logger.Debug("program faulted", "error", err, "ticks_used", exec.TicksUsed)
	}
	return exec, err
}

// execute runs a parsed program. Panics from the evaluator are recovered
// and reported as user program errors so a learner program can never take
// the host down.
func (in *Interpreter) execute(ctx context.Context, prog *compiler.Program, exec *Execution) (err error) {
	budget := NewTickBudget(in.maxTicks)
	m := newMachine(ctx, NewAPI(exec.Log, budget), budget, in.maxDepth)

	defer func() {
		exec.TicksUsed = budget.Used()
		if r := recover(); r != nil {
			in.logger.Error("interpreter panic recovered", "panic", r)
			err = NewUserProgramError(m.lastNode, fmt.Errorf("internal fault: %v", r))
		}
	}()

	for _, fn := range prog.Funcs {
		m.funcs[fn.Name] = fn
	}

	for _, st := range prog.Body {
		ctl, _, err := m.exec(st)
		if err != nil {
			return m.classify(err)
		}
		switch ctl {
		case ctlBreak, ctlContinue:
			return m.classify(m.faultf(st.Position(), "illegal %s statement outside a loop", ctl))
		case ctlReturn:
			return m.classify(m.faultf(st.Position(), "illegal return statement outside a function"))
		}
	}
	return nil
}
