package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/roach88/turtle/internal/carry"
	"github.com/roach88/turtle/internal/engine"
	"github.com/roach88/turtle/internal/ir"
	"github.com/roach88/turtle/internal/level"
	"github.com/roach88/turtle/internal/replay"
	"github.com/roach88/turtle/internal/session"
	"github.com/roach88/turtle/internal/store"
	"github.com/roach88/turtle/internal/testutil"
)

// Harness drives one scenario's session.
type Harness struct {
	session   *session.Session
	editor    *testutil.Editor
	scheduler *replay.ManualScheduler
	store     *store.Store
	carry     carry.Store
	sessionID string
	logger    *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario gets a fresh session and an in-memory attempt store. The
// error return is for scenarios that could not run at all; failed
// expectations are recorded on the result.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	pack, err := loadPack(scenario)
	if err != nil {
		return nil, err
	}
	cfg, err := pack.Get(scenario.Level)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	sessionID := scenario.SessionID
	if sessionID == "" {
		sessionID = DefaultSessionID
	}
	carried := carry.NewMemory()
	for key, blob := range scenario.Carry {
		if err := carried.Put(ctx, sessionID, key, blob); err != nil {
			return nil, fmt.Errorf("seeding carry %q: %w", key, err)
		}
	}

	h := &Harness{
		editor:    testutil.NewEditor(""),
		scheduler: replay.NewManualScheduler(),
		store:     st,
		carry:     carried,
		sessionID: sessionID,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	opts := []session.Option{
		session.WithID(sessionID),
		session.WithScheduler(h.scheduler),
		session.WithReporter(st),
		session.WithCarryStore(carried),
		session.WithNow(testutil.NewStepClock(testutil.Epoch, time.Second).Now),
		session.WithLogger(h.logger),
	}
	if scenario.MaxTicks > 0 {
		opts = append(opts, session.WithMaxTicks(scenario.MaxTicks))
	}
	h.session, err = session.New(ctx, cfg, h.editor, opts...)
	if err != nil {
		return nil, fmt.Errorf("opening level %s: %w", cfg.ID, err)
	}

	result := NewResult()
	if scenario.Start != nil {
		if err := h.checkStart(ctx, scenario.Start, result); err != nil {
			return nil, err
		}
	}
	for i, step := range scenario.Runs {
		if err := h.executeRun(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("run %d: %w", i+1, err)
		}
	}

	actx := &AssertionContext{
		Ctx:       ctx,
		Store:     st,
		Carry:     carried,
		SessionID: sessionID,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

func loadPack(scenario *Scenario) (*level.Pack, error) {
	if scenario.LevelsDir != "" {
		return level.LoadDir(scenario.LevelsDir)
	}
	return level.Builtin()
}

func (h *Harness) checkStart(ctx context.Context, want *StartClause, result *Result) error {
	start, err := h.session.StartingProgram(ctx)
	if err != nil {
		return fmt.Errorf("starting program: %w", err)
	}
	if start.Carried != want.Carried {
		result.AddError(fmt.Sprintf("start: carried = %t, want %t", start.Carried, want.Carried))
	}
	if (start.Notice != "") != want.Notice {
		result.AddError(fmt.Sprintf("start: notice = %q, want notice %t", start.Notice, want.Notice))
	}
	if want.Contains != "" && !strings.Contains(start.Source, want.Contains) {
		result.AddError(fmt.Sprintf("start: source does not contain %q", want.Contains))
	}
	return nil
}

// executeRun submits one program and waits for its grade. Paced runs are
// stepped through the manual scheduler.
func (h *Harness) executeRun(ctx context.Context, i int, step RunStep, result *Result) error {
	mode, err := session.ParseMode(step.Mode)
	if err != nil {
		return err
	}
	h.editor.SetProgram(step.Source, step.Nodes...)

	run, err := h.session.RunProgram(ctx, mode)
	if err != nil {
		return err
	}
	if mode == session.Paced {
		h.scheduler.Drain()
	}
	res, err := run.Wait(ctx)
	if err != nil {
		return err
	}

	var actions []ir.Action
	if run.Execution != nil {
		actions = run.Execution.Log.Snapshot()
	}
	rec := RunRecord{
		Attempt:   run.Attempt,
		Tier:      res.Outcome.Tier,
		Succeeded: res.Outcome.Succeeded(),
		Notice:    run.Notice,
		Pose:      res.State.Pose(),
		Log:       make([]string, 0, len(actions)),
	}
	for _, g := range res.Outcome.Missing {
		if len(g) > 0 {
			rec.Missing = append(rec.Missing, g[0].Exemplar.Type)
		}
	}
	for _, a := range actions {
		rec.Log = append(rec.Log, a.String())
	}
	result.AddRun(rec, actions)

	h.logger.Info("scenario run graded",
		"run", i+1,
		"attempt", run.Attempt,
		"tier", rec.Tier,
		"budget_exceeded", engine.IsBudgetError(run.Err))

	if step.Expect != nil {
		for _, msg := range checkExpect(i, step.Expect, rec) {
			result.AddError(msg)
		}
	}
	return nil
}

func checkExpect(i int, want *ExpectClause, got RunRecord) []string {
	var errs []string
	prefix := fmt.Sprintf("runs[%d].expect", i)
	if want.Tier != "" {
		tier, err := ir.ParseTier(want.Tier)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", prefix, err))
		} else if tier != got.Tier {
			errs = append(errs, fmt.Sprintf("%s: tier = %s, want %s", prefix, got.Tier, tier))
		}
	}
	if want.Succeeded != nil && *want.Succeeded != got.Succeeded {
		errs = append(errs, fmt.Sprintf("%s: succeeded = %t, want %t", prefix, got.Succeeded, *want.Succeeded))
	}
	if want.Stars != nil && *want.Stars != got.Tier.Stars() {
		errs = append(errs, fmt.Sprintf("%s: stars = %d, want %d", prefix, got.Tier.Stars(), *want.Stars))
	}
	if want.Notice != nil && *want.Notice != (got.Notice != "") {
		errs = append(errs, fmt.Sprintf("%s: notice = %q, want notice %t", prefix, got.Notice, *want.Notice))
	}
	if want.Missing != nil && !slices.Equal(want.Missing, got.Missing) {
		errs = append(errs, fmt.Sprintf("%s: missing = %v, want %v", prefix, got.Missing, want.Missing))
	}
	return errs
}
