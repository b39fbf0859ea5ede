package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
	"golang.org/x/text/message/catalog"

	"github.com/roach88/turtle/internal/carry"
	"github.com/roach88/turtle/internal/engine"
	"github.com/roach88/turtle/internal/feedback"
	"github.com/roach88/turtle/internal/ir"
	"github.com/roach88/turtle/internal/level"
	"github.com/roach88/turtle/internal/replay"
	"github.com/roach88/turtle/internal/session"
	"github.com/roach88/turtle/internal/testutil"
)

const squareSource = `for (var count = 0; count < 4; count++) {
  checkTimeout('block_id_1');
  Turtle.moveForward(100, 'block_id_2');
  Turtle.turnRight(90, 'block_id_3');
}
`

func squareNodes() []ir.Node {
	return []ir.Node{
		testutil.Node("block_id_1", "controls_repeat"),
		testutil.Node("block_id_2", "draw_move_by_constant"),
		testutil.Node("block_id_3", "draw_turn_by_constant"),
	}
}

func builtinLevel(t *testing.T, id string) *level.Config {
	t.Helper()
	pack, err := level.Builtin()
	require.NoError(t, err)
	cfg, err := pack.Get(id)
	require.NoError(t, err)
	return cfg
}

// recorder collects reports and run observations.
type recorder struct {
	mu      sync.Mutex
	reports []ir.Report
	budget  []bool
}

func (r *recorder) Report(_ context.Context, rep ir.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, rep)
	return nil
}

func (r *recorder) ObserveRun(_ string, _ ir.Tier, _ int, budgetExceeded bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.budget = append(r.budget, budgetExceeded)
}

func (r *recorder) Reports() []ir.Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ir.Report(nil), r.reports...)
}

func open(t *testing.T, cfg *level.Config, ed session.Editor, opts ...session.Option) *session.Session {
	t.Helper()
	base := []session.Option{
		session.WithIDGenerator(engine.NewFixedGenerator("session-1")),
		session.WithNow(testutil.NewStepClock(time.Time{}, 250*time.Millisecond).Now),
	}
	s, err := session.New(context.Background(), cfg, ed, append(base, opts...)...)
	require.NoError(t, err)
	return s
}

// TestRunProgram_InstantPass tests a correct square graded, reported and
// highlighted.
func TestRunProgram_InstantPass(t *testing.T) {
	ed := testutil.NewEditor(squareSource, squareNodes()...)
	rec := &recorder{}
	s := open(t, builtinLevel(t, "1_1"), ed, session.WithReporter(rec), session.WithObserver(rec))

	run, err := s.RunProgram(context.Background(), session.Instant)
	require.NoError(t, err)
	assert.Equal(t, int64(1), run.Attempt)
	assert.NoError(t, run.Err)
	assert.Empty(t, run.Notice)

	select {
	case <-run.Done():
	default:
		t.Fatal("instant run should be done when RunProgram returns")
	}
	res, err := run.Wait(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ir.TierAllPass, res.Outcome.Tier)
	assert.Equal(t, 0, res.Outcome.Delta)
	assert.True(t, res.Feedback.Passed)
	assert.Equal(t, 3, res.Feedback.Stars)
	assert.True(t, res.Feedback.Affordances.Continue)

	reports := rec.Reports()
	require.Len(t, reports, 1)
	rep := reports[0]
	assert.Equal(t, "session-1", rep.SessionID)
	assert.Equal(t, "1_1", rep.LevelID)
	assert.True(t, rep.Succeeded)
	assert.Equal(t, ir.TierAllPass, rep.Tier)
	assert.Equal(t, int64(1), rep.Attempt)
	assert.Equal(t, int64(250), rep.ElapsedMs)
	assert.NotContains(t, rep.Source, "block_id")
	assert.NotContains(t, rep.Source, "checkTimeout")
	assert.Equal(t, []bool{false}, rec.budget)

	assert.Contains(t, ed.Highlights(), "block_id_2")
	assert.Contains(t, ed.Highlights(), "block_id_3")
	assert.Equal(t, "", ed.Highlights()[len(ed.Highlights())-1], "highlight cleared at the end")

	// attempts keep counting
	run, err = s.RunProgram(context.Background(), session.Instant)
	require.NoError(t, err)
	assert.Equal(t, int64(2), run.Attempt)
	assert.Equal(t, int64(2), s.Attempts())
}

// TestRunProgram_BudgetExceeded tests that an overrun is graded on the
// partial log and never passes.
func TestRunProgram_BudgetExceeded(t *testing.T) {
	src := `for (var i = 0; i < 1000000; i++) {
  Turtle.moveForward(1, 'block_id_2');
}
`
	ed := testutil.NewEditor(src, squareNodes()...)
	rec := &recorder{}
	s := open(t, builtinLevel(t, "1_1"), ed, session.WithMaxTicks(100), session.WithReporter(rec), session.WithObserver(rec))

	run, err := s.RunProgram(context.Background(), session.Instant)
	require.NoError(t, err)
	require.Error(t, run.Err)
	assert.True(t, engine.IsBudgetError(run.Err))
	assert.True(t, run.Execution.Aborted)
	assert.Positive(t, run.Execution.Log.Len())
	assert.Less(t, s.State().Y, ir.DefaultPose.Y, "partial log was replayed")
	assert.Contains(t, run.Notice, "too long")

	res, err := run.Wait(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Outcome.Tier.Passed())
	assert.False(t, res.Report.Succeeded)
	assert.Equal(t, []bool{true}, rec.budget)
}

// TestRunProgram_UserProgramError tests a program fault shown as a notice.
func TestRunProgram_UserProgramError(t *testing.T) {
	ed := testutil.NewEditor("Turtle.moveForward(", squareNodes()...)
	s := open(t, builtinLevel(t, "1_1"), ed)

	run, err := s.RunProgram(context.Background(), session.Instant)
	require.NoError(t, err)
	assert.True(t, engine.IsUserProgramError(run.Err))
	assert.Contains(t, run.Notice, "Your program stopped with an error: ")

	res, err := run.Wait(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Outcome.Succeeded())
}

// TestRunProgram_StoppedAfterDrawing tests that a program that draws the
// answer and then overruns or faults is graded incomplete and not carried.
func TestRunProgram_StoppedAfterDrawing(t *testing.T) {
	tails := map[string]string{
		"budget": "while (true) {\n  checkTimeout('block_id_1');\n}\n",
		"fault":  "undefinedThing();\n",
	}
	for name, tail := range tails {
		t.Run(name, func(t *testing.T) {
			cfg := *builtinLevel(t, "1_1")
			cfg.CarryTo = "square"
			store := carry.NewMemory()
			rec := &recorder{}
			ed := testutil.NewEditor(squareSource+tail, squareNodes()...)
			s := open(t, &cfg, ed,
				session.WithMaxTicks(5000),
				session.WithReporter(rec),
				session.WithCarryStore(store),
				session.WithID("learner-1"))

			run, err := s.RunProgram(context.Background(), session.Instant)
			require.NoError(t, err)
			require.Error(t, run.Err)
			assert.NotEmpty(t, run.Notice)

			res, err := run.Wait(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 0, res.Outcome.Delta, "the square was drawn")
			assert.False(t, res.Outcome.Succeeded())
			assert.False(t, res.Outcome.Tier.Passed())
			assert.False(t, res.Feedback.Passed)

			reports := rec.Reports()
			require.Len(t, reports, 1)
			assert.False(t, reports[0].Succeeded)

			_, err = store.Get(context.Background(), "learner-1", "square")
			assert.ErrorIs(t, err, carry.ErrNotFound)
		})
	}
}

// TestRunProgram_CustomController tests notices and hints printed through
// a replacement catalog.
func TestRunProgram_CustomController(t *testing.T) {
	b := catalog.NewBuilder()
	require.NoError(t, b.SetString(language.French, string(feedback.KeyBudgetExceeded), "Trop long."))
	fc := feedback.NewController(feedback.WithCatalog(language.French, b))

	ed := testutil.NewEditor("while (true) { Turtle.moveForward(1, 'block_id_2'); }", squareNodes()...)
	s := open(t, builtinLevel(t, "1_1"), ed, session.WithController(fc), session.WithMaxTicks(50))

	run, err := s.RunProgram(context.Background(), session.Instant)
	require.NoError(t, err)
	assert.True(t, engine.IsBudgetError(run.Err))
	assert.Equal(t, "Trop long.", run.Notice)
}

// TestRunProgram_CancelledContext tests that ctx cancellation is the only
// error RunProgram returns.
func TestRunProgram_CancelledContext(t *testing.T) {
	ed := testutil.NewEditor(`for (var i = 0; i < 100000000; i++) { Turtle.turnRight(1); }`)
	s := open(t, builtinLevel(t, "2_1"), ed, session.WithMaxTicks(0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	run, err := s.RunProgram(ctx, session.Instant)
	assert.Nil(t, run)
	assert.ErrorIs(t, err, context.Canceled)
}

// TestRunProgram_PacedMatchesInstant tests that pacing changes only timing.
func TestRunProgram_PacedMatchesInstant(t *testing.T) {
	cfg := builtinLevel(t, "1_1")

	instant := open(t, cfg, testutil.NewEditor(squareSource, squareNodes()...))
	run, err := instant.RunProgram(context.Background(), session.Instant)
	require.NoError(t, err)
	want, err := run.Wait(context.Background())
	require.NoError(t, err)

	sched := replay.NewManualScheduler()
	ed := testutil.NewEditor(squareSource, squareNodes()...)
	paced := open(t, cfg, ed, session.WithScheduler(sched), session.WithSpeed(1))
	run, err = paced.RunProgram(context.Background(), session.Paced)
	require.NoError(t, err)

	select {
	case <-run.Done():
		t.Fatal("paced run finished before any step ran")
	default:
	}
	require.True(t, sched.RunNext())
	assert.Positive(t, sched.Drain())

	got, err := run.Wait(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(want.State, got.State))
	assert.Equal(t, want.Outcome.Tier, got.Outcome.Tier)
	assert.Equal(t, replay.StartDelay, sched.Delays()[0])
}

// TestResetProgram_CancelsPaced tests that a reset run never reports.
func TestResetProgram_CancelsPaced(t *testing.T) {
	sched := replay.NewManualScheduler()
	rec := &recorder{}
	cfg := builtinLevel(t, "1_1")
	s := open(t, cfg, testutil.NewEditor(squareSource, squareNodes()...),
		session.WithScheduler(sched), session.WithReporter(rec))

	run, err := s.RunProgram(context.Background(), session.Paced)
	require.NoError(t, err)
	sched.RunNext()
	sched.RunNext()

	s.ResetProgram()
	s.ResetProgram()
	sched.Drain()

	_, err = run.Wait(context.Background())
	assert.ErrorIs(t, err, session.ErrCancelled)
	assert.Empty(t, rec.Reports())
	assert.Equal(t, cfg.Start, s.State().Pose())
	assert.Empty(t, s.State().ColoursUsed)
}

// TestRunProgram_Supersedes tests that a new run cancels a paced one.
func TestRunProgram_Supersedes(t *testing.T) {
	sched := replay.NewManualScheduler()
	rec := &recorder{}
	s := open(t, builtinLevel(t, "1_1"), testutil.NewEditor(squareSource, squareNodes()...),
		session.WithScheduler(sched), session.WithReporter(rec))

	first, err := s.RunProgram(context.Background(), session.Paced)
	require.NoError(t, err)
	second, err := s.RunProgram(context.Background(), session.Instant)
	require.NoError(t, err)
	sched.Drain()

	_, err = first.Wait(context.Background())
	assert.ErrorIs(t, err, session.ErrCancelled)
	res, err := second.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ir.TierAllPass, res.Outcome.Tier)

	reports := rec.Reports()
	require.Len(t, reports, 1)
	assert.Equal(t, int64(2), reports[0].Attempt)
}

// TestRun_WaitHonoursContext tests Wait on a pending run.
func TestRun_WaitHonoursContext(t *testing.T) {
	s := open(t, builtinLevel(t, "1_1"), testutil.NewEditor(squareSource, squareNodes()...),
		session.WithScheduler(replay.NewManualScheduler()))
	run, err := s.RunProgram(context.Background(), session.Paced)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	_, err = run.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// TestReporterFailure tests that sink failures never fail a run.
func TestReporterFailure(t *testing.T) {
	failing := session.ReporterFunc(func(context.Context, ir.Report) error {
		return errors.New("disk full")
	})
	rec := &recorder{}
	s := open(t, builtinLevel(t, "1_1"), testutil.NewEditor(squareSource, squareNodes()...),
		session.WithReporter(failing), session.WithReporter(rec))

	run, err := s.RunProgram(context.Background(), session.Instant)
	require.NoError(t, err)
	_, err = run.Wait(context.Background())
	require.NoError(t, err)
	assert.Len(t, rec.Reports(), 1, "later sinks still run")
}

// TestNew_Errors tests the errors that block entering a level.
func TestNew_Errors(t *testing.T) {
	ed := testutil.NewEditor("")

	_, err := session.New(context.Background(), builtinLevel(t, "1_1"), ed,
		session.WithSurfaceFactory(func() (replay.Surface, error) { return nil, nil }))
	assert.True(t, engine.IsRenderingUnavailable(err))

	_, err = session.New(context.Background(), builtinLevel(t, "1_1"), ed,
		session.WithSurfaceFactory(func() (replay.Surface, error) { return nil, errors.New("no canvas") }))
	assert.True(t, engine.IsRenderingUnavailable(err))
	assert.ErrorContains(t, err, "no canvas")

	_, err = session.New(context.Background(), &level.Config{ID: "bad"}, ed)
	assert.True(t, engine.IsConfigurationError(err))

	_, err = session.New(context.Background(), nil, ed)
	assert.True(t, engine.IsConfigurationError(err))
}

// TestReferenceCache tests that sessions share one reference rendering.
func TestReferenceCache(t *testing.T) {
	cache := session.NewReferenceCache()
	cfg := builtinLevel(t, "1_1")
	a := open(t, cfg, testutil.NewEditor(""), session.WithReferenceCache(cache))
	b := open(t, cfg, testutil.NewEditor(""), session.WithReferenceCache(cache))

	assert.Equal(t, 1, cache.Len())
	assert.Same(t, a.Reference(), b.Reference())
	assert.Positive(t, countOpaque(a.Reference().Pix))
}

func countOpaque(pix []uint8) int {
	n := 0
	for _, p := range pix {
		if p != 0 {
			n++
		}
	}
	return n
}

// TestStartingProgram tests the carry-over between levels.
func TestStartingProgram(t *testing.T) {
	store := carry.NewMemory()
	from := &level.Config{ID: "house", FreePlay: true, CarryTo: "turtle3Blocks", Speed: 0.5}
	to := &level.Config{
		ID:            "street",
		FreePlay:      true,
		CarryFrom:     "turtle3Blocks",
		CarryRequires: "function draw_a_house(height)",
		StartProgram:  "Turtle.penDown();",
		Speed:         0.5,
	}
	opts := []session.Option{session.WithID("learner-1"), session.WithCarryStore(store)}

	next := open(t, to, testutil.NewEditor(""), opts...)
	start, err := next.StartingProgram(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Turtle.penDown();", start.Source)
	assert.False(t, start.Carried)
	assert.NotEmpty(t, start.Notice, "nothing carried yet")

	ed := testutil.NewEditor("Turtle.moveForward(10);")
	prev := open(t, from, ed, opts...)
	_, err = prev.RunProgram(context.Background(), session.Instant)
	require.NoError(t, err)

	start, err = next.StartingProgram(context.Background())
	require.NoError(t, err)
	assert.True(t, start.Carried)
	assert.Equal(t, "Turtle.moveForward(10);", start.Source)
	assert.NotEmpty(t, start.Notice, "carried program lacks the definition")

	house := "function draw_a_house(height) {\n  Turtle.moveForward(height);\n}\ndraw_a_house(50);\n"
	ed.SetProgram(house)
	_, err = prev.RunProgram(context.Background(), session.Instant)
	require.NoError(t, err)

	start, err = next.StartingProgram(context.Background())
	require.NoError(t, err)
	assert.Equal(t, house, start.Source)
	assert.Empty(t, start.Notice)

	// a level without carry_from opens with its own program
	plain := open(t, builtinLevel(t, "1_1"), testutil.NewEditor(""), opts...)
	start, err = plain.StartingProgram(context.Background())
	require.NoError(t, err)
	assert.Equal(t, session.Start{}, start)
}

// TestParseMode tests mode names.
func TestParseMode(t *testing.T) {
	m, err := session.ParseMode("paced")
	require.NoError(t, err)
	assert.Equal(t, session.Paced, m)
	assert.Equal(t, "paced", m.String())

	m, err = session.ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, session.Instant, m)

	_, err = session.ParseMode("fast")
	assert.Error(t, err)
}
