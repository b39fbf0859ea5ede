package replay

import (
	"context"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/turtle/internal/engine"
	"github.com/roach88/turtle/internal/ir"
)

type stroke struct {
	From, To Point
	Pen      Pen
}

type text struct {
	At       Point
	Rotation float64
	Text     string
	Font     Font
}

// fakeSurface records drawing calls.
type fakeSurface struct {
	mu      sync.Mutex
	strokes []stroke
	texts   []text
	clears  int
}

func (f *fakeSurface) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.strokes, f.texts = nil, nil
	f.clears++
}

func (f *fakeSurface) Stroke(from, to Point, pen Pen) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.strokes = append(f.strokes, stroke{from, to, pen})
}

func (f *fakeSurface) Text(at Point, rot float64, s string, _ Pen, font Font) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text{at, rot, s, font})
}

func (f *fakeSurface) Alpha() *image.Alpha     { return image.NewAlpha(f.Bounds()) }
func (f *fakeSurface) Bounds() image.Rectangle { return image.Rect(0, 0, 400, 400) }

func logOf(actions ...ir.Action) *engine.CommandLog {
	return engine.NewCommandLogFrom(actions)
}

func mv(d float64) ir.Action { return ir.NewAction(ir.KindMove, "", ir.Number(d)) }
func rt(a float64) ir.Action { return ir.NewAction(ir.KindTurn, "", ir.Number(a)) }

func compile(t *testing.T, src string) *engine.CommandLog {
	t.Helper()
	exec, err := engine.NewInterpreter().Run(context.Background(), src)
	require.NoError(t, err)
	return exec.Log
}

// TestNewState_Defaults tests the state a replay starts from.
func TestNewState_Defaults(t *testing.T) {
	s := NewState(ir.Pose{X: 100, Y: 350, Heading: -90})
	assert.Equal(t, 100.0, s.X)
	assert.Equal(t, 350.0, s.Y)
	assert.Equal(t, 270.0, s.Heading)
	assert.True(t, s.PenDown)
	assert.Equal(t, 5.0, s.PenWidth)
	assert.Equal(t, "#000000", s.PenColour)
	assert.Equal(t, "normal 18pt Arial", s.Font.String())
	assert.True(t, s.Visible)
	assert.Empty(t, s.ColoursUsed)
}

// TestReplayer_MoveStrokesAlongHeading tests movement and stroking.
func TestReplayer_MoveStrokesAlongHeading(t *testing.T) {
	surf := &fakeSurface{}
	r := New(surf)
	r.Load(logOf(mv(100), rt(90), mv(50)))
	assert.Equal(t, 3, r.RunToCompletion())

	s := r.State()
	assert.InDelta(t, 250.0, s.X, 1e-9)
	assert.InDelta(t, 100.0, s.Y, 1e-9)
	assert.Equal(t, 90.0, s.Heading)

	require.Len(t, surf.strokes, 2)
	assert.Equal(t, Point{200, 200}, surf.strokes[0].From)
	assert.InDelta(t, 100.0, surf.strokes[0].To.Y, 1e-9)
	assert.Equal(t, Pen{Width: 5, Colour: "#000000"}, surf.strokes[0].Pen)
	assert.Equal(t, []string{"#000000"}, s.ColoursUsed)
}

// TestReplayer_ZeroMoveBumps tests that a zero move still leaves a dot but
// records no colour.
func TestReplayer_ZeroMoveBumps(t *testing.T) {
	surf := &fakeSurface{}
	r := New(surf)
	r.Load(logOf(mv(0)))
	r.RunToCompletion()

	require.Len(t, surf.strokes, 1)
	assert.Equal(t, 200.0, surf.strokes[0].To.X)
	assert.InDelta(t, 200.1, surf.strokes[0].To.Y, 1e-9)

	s := r.State()
	assert.Equal(t, ir.Pose{X: 200, Y: 200, Heading: 0}, s.Pose())
	assert.Empty(t, s.ColoursUsed)
}

// TestReplayer_PenAndJump tests that jumps and pen-up moves never stroke.
func TestReplayer_PenAndJump(t *testing.T) {
	surf := &fakeSurface{}
	r := New(surf)
	r.Load(logOf(
		ir.NewAction(ir.KindJump, "", ir.Number(10)),
		ir.NewAction(ir.KindPenUp, ""),
		mv(10),
		ir.NewAction(ir.KindPenDown, ""),
		ir.NewAction(ir.KindPenWidth, "", ir.Number(12)),
		mv(10),
	))
	r.RunToCompletion()

	require.Len(t, surf.strokes, 1)
	assert.Equal(t, 12.0, surf.strokes[0].Pen.Width)
	assert.InDelta(t, 170.0, r.State().Y, 1e-9)
}

// TestReplayer_ColoursUsed tests distinct lower-case colour recording.
func TestReplayer_ColoursUsed(t *testing.T) {
	r := New(&fakeSurface{})
	r.Load(logOf(
		ir.NewAction(ir.KindPenColour, "", ir.Text("#FF0000")),
		mv(10),
		ir.NewAction(ir.KindPenColour, "", ir.Text("#00ff00")),
		mv(10),
		ir.NewAction(ir.KindPenColour, "", ir.Text("#ff0000")),
		mv(10),
		ir.NewAction(ir.KindPenColour, "", ir.Text("#0000ff")),
		mv(0),
		ir.NewAction(ir.KindPenUp, ""),
		mv(10),
	))
	r.RunToCompletion()
	assert.Equal(t, []string{"#ff0000", "#00ff00"}, r.State().ColoursUsed)
}

// TestReplayer_TextAndFont tests DP rotation and DF font changes.
func TestReplayer_TextAndFont(t *testing.T) {
	surf := &fakeSurface{}
	r := New(surf)
	r.Load(logOf(
		rt(30),
		ir.NewAction(ir.KindFont, "", ir.Text("Verdana"), ir.Number(24), ir.Text("bold")),
		ir.NewAction(ir.KindPrint, "", ir.Text("Hello")),
	))
	r.RunToCompletion()

	require.Len(t, surf.texts, 1)
	assert.Equal(t, -60.0, surf.texts[0].Rotation)
	assert.Equal(t, "Hello", surf.texts[0].Text)
	assert.Equal(t, "bold 24pt Verdana", surf.texts[0].Font.String())
}

// TestReplayer_VisibilityDoesNotDraw tests that hide/show only flip the flag.
func TestReplayer_VisibilityDoesNotDraw(t *testing.T) {
	surf := &fakeSurface{}
	r := New(surf)
	r.Load(logOf(ir.NewAction(ir.KindHide, "")))
	r.RunToCompletion()
	assert.False(t, r.State().Visible)
	assert.Empty(t, surf.strokes)

	r.Load(logOf(ir.NewAction(ir.KindShow, "")))
	r.RunToCompletion()
	assert.True(t, r.State().Visible)
}

// TestReplayer_LeftTurnsWrap tests thirteen left turns of 30 degrees.
func TestReplayer_LeftTurnsWrap(t *testing.T) {
	r := New(&fakeSurface{})
	r.Load(compile(t, `for (var i = 0; i < 13; i++) { Turtle.turnLeft(30); }`))
	r.RunToCompletion()
	assert.Equal(t, 330.0, r.State().Heading)
}

// TestReplayer_FullTurnIsIdempotent tests that turn(360) never changes heading.
func TestReplayer_FullTurnIsIdempotent(t *testing.T) {
	for _, start := range []float64{0, 45, 90.5, 359} {
		r := New(&fakeSurface{})
		r.Reset(ir.Pose{X: 0, Y: 0, Heading: start})
		for n := 1; n <= 5; n++ {
			r.Load(logOf(rt(360)))
			r.RunToCompletion()
			assert.Equal(t, start, r.State().Heading, "start %v after %d turns", start, n)
		}
		r.Load(logOf(rt(-360)))
		r.RunToCompletion()
		assert.Equal(t, start, r.State().Heading)
	}
}

// TestNormalizeHeading tests the [0,360) range.
func TestNormalizeHeading(t *testing.T) {
	assert.Equal(t, 0.0, normalizeHeading(360))
	assert.Equal(t, 0.0, normalizeHeading(-360))
	assert.Equal(t, 330.0, normalizeHeading(-390))
	assert.Equal(t, 10.0, normalizeHeading(730))
	assert.Equal(t, 0.0, normalizeHeading(-1e-300))
}

// TestReplayer_HighlightFollowsLastAction tests the highlight callback.
func TestReplayer_HighlightFollowsLastAction(t *testing.T) {
	var seen []string
	r := New(&fakeSurface{}, WithHighlighter(func(id string) { seen = append(seen, id) }))
	seen = nil

	r.Load(logOf(
		ir.NewAction(ir.KindHighlight, "loop"),
		ir.NewAction(ir.KindMove, "b1", ir.Number(1)),
		ir.NewAction(ir.KindTurn, "", ir.Number(1)),
	))

	applied, hl := r.ApplyNext()
	assert.True(t, applied)
	assert.True(t, hl)
	applied, hl = r.ApplyNext()
	assert.True(t, applied)
	assert.True(t, hl)
	applied, hl = r.ApplyNext()
	assert.True(t, applied)
	assert.False(t, hl)
	applied, _ = r.ApplyNext()
	assert.False(t, applied)

	assert.Equal(t, []string{"loop", "b1", ""}, seen)
}

// TestReplayer_InvalidActionSkipped tests that malformed actions never panic.
func TestReplayer_InvalidActionSkipped(t *testing.T) {
	r := New(&fakeSurface{})
	r.Load(logOf(ir.NewAction(ir.KindMove, ""), ir.NewAction("ZZ", ""), mv(10)))
	assert.NotPanics(t, func() { r.RunToCompletion() })
	assert.InDelta(t, 190.0, r.State().Y, 1e-9)
}

// TestInterval tests the quadratic speed scale.
func TestInterval(t *testing.T) {
	assert.Equal(t, time.Second, Interval(0))
	assert.Equal(t, 250*time.Millisecond, Interval(0.5))
	assert.Equal(t, time.Duration(0), Interval(1))
	assert.Equal(t, time.Second, Interval(-3))
	assert.Equal(t, time.Duration(0), Interval(7))
}

// TestPace_MatchesInstant tests that pacing never changes the final state.
func TestPace_MatchesInstant(t *testing.T) {
	programs := []string{
		`for (var i = 0; i < 4; i++) { checkTimeout('l'); Turtle.moveForward(100, 'a'); Turtle.turnRight(90, 'b'); }`,
		`Turtle.penColour('#ff0000'); for (var i = 0; i < 36; i++) { Turtle.moveForward(i); Turtle.turnLeft(170); }`,
		`Turtle.penUp(); Turtle.moveForward(0); Turtle.penDown(); Turtle.penWidth(-1); Turtle.moveBackward(30); Turtle.hideTurtle();`,
		``,
	}
	for _, src := range programs {
		log := compile(t, src)

		instant := New(&fakeSurface{})
		instant.Load(log.Clone())
		instant.RunToCompletion()

		sched := NewManualScheduler()
		paced := New(&fakeSurface{}, WithScheduler(sched))
		paced.Load(log.Clone())
		var final *State
		paced.Pace(0.8, func(s State) { final = &s })
		sched.Drain()

		require.NotNil(t, final, "paced run for %q never completed", src)
		if diff := cmp.Diff(instant.State(), *final); diff != "" {
			t.Errorf("paced state differs for %q (-instant +paced):\n%s", src, diff)
		}
		assert.False(t, paced.Pending())
	}
}

// TestPace_Delays tests the schedule a paced run requests.
func TestPace_Delays(t *testing.T) {
	sched := NewManualScheduler()
	r := New(&fakeSurface{}, WithScheduler(sched))
	r.Load(logOf(mv(1), mv(1)))
	r.Pace(0.5, nil)
	sched.Drain()

	step := 250 * time.Millisecond
	assert.Equal(t, []time.Duration{StartDelay, step, step}, sched.Delays())
}

// TestPace_ResetCancels tests that a reset discards the pending run.
func TestPace_ResetCancels(t *testing.T) {
	sched := NewManualScheduler()
	surf := &fakeSurface{}
	r := New(surf, WithScheduler(sched))
	r.Load(logOf(mv(10), mv(10), mv(10), mv(10)))

	done := false
	r.Pace(1, func(State) { done = true })
	require.True(t, sched.RunNext())
	require.True(t, sched.RunNext())
	assert.Equal(t, 2, r.Remaining())

	r.Reset(ir.DefaultPose)
	r.Reset(ir.DefaultPose)
	assert.False(t, r.Pending())
	assert.Equal(t, 0, sched.Drain())
	assert.False(t, done)
	assert.Equal(t, 200.0, r.State().Y)
	assert.Empty(t, surf.strokes)
}

// TestPace_Cancel tests that cancelling stops a paced run where it is.
func TestPace_Cancel(t *testing.T) {
	sched := NewManualScheduler()
	r := New(&fakeSurface{}, WithScheduler(sched))
	r.Load(logOf(mv(10), mv(10), mv(10)))

	r.Pace(1, func(State) { t.Error("cancelled run completed") })
	require.True(t, sched.RunNext())
	require.True(t, sched.RunNext())

	r.Cancel()
	assert.False(t, r.Pending())
	assert.Equal(t, 0, sched.Drain())
	assert.Equal(t, 1, r.Remaining())
	assert.Equal(t, 180.0, r.State().Y)
}

// leakyScheduler hands out timers whose Stop never prevents the run.
type leakyScheduler struct {
	tasks []func()
}

type leakyTimer struct{}

func (leakyTimer) Stop() bool { return false }

func (s *leakyScheduler) AfterFunc(_ time.Duration, f func()) Timer {
	s.tasks = append(s.tasks, f)
	return leakyTimer{}
}

// TestPace_StaleStepIsNoop tests that a step that fires after a reset
// leaves the new state untouched.
func TestPace_StaleStepIsNoop(t *testing.T) {
	sched := &leakyScheduler{}
	r := New(&fakeSurface{}, WithScheduler(sched))
	r.Load(logOf(mv(10), mv(10)))
	r.Pace(1, func(State) { t.Error("superseded run completed") })

	r.Reset(ir.DefaultPose)
	r.Load(logOf(mv(50)))

	require.Len(t, sched.tasks, 1)
	sched.tasks[0]()
	assert.Equal(t, 200.0, r.State().Y)
	assert.Equal(t, 1, r.Remaining())
}
