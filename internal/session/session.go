package session

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/turtle/internal/carry"
	"github.com/roach88/turtle/internal/engine"
	"github.com/roach88/turtle/internal/evaluate"
	"github.com/roach88/turtle/internal/feedback"
	"github.com/roach88/turtle/internal/ir"
	"github.com/roach88/turtle/internal/level"
	"github.com/roach88/turtle/internal/raster"
	"github.com/roach88/turtle/internal/replay"
)

// Editor is the program editor a session reads from.
type Editor interface {
	// Source returns the compiled program, node ids included.
	Source() string
	// Nodes returns the authored nodes.
	Nodes() []ir.Node
	// Highlight marks the node being replayed, or clears with "".
	Highlight(nodeID string)
}

// Reporter receives one attempt report per completed run.
type Reporter interface {
	Report(ctx context.Context, r ir.Report) error
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(ctx context.Context, r ir.Report) error

// Report calls f.
func (f ReporterFunc) Report(ctx context.Context, r ir.Report) error {
	return f(ctx, r)
}

// Observer receives run statistics.
type Observer interface {
	ObserveRun(levelID string, tier ir.Tier, ticks int, budgetExceeded bool)
}

// SurfaceFactory returns a fresh drawing surface. A nil surface or an error
// means rendering is unavailable.
type SurfaceFactory func() (replay.Surface, error)

// RasterSurfaces returns a factory of w×h raster canvases.
func RasterSurfaces(w, h int) SurfaceFactory {
	return func() (replay.Surface, error) {
		return raster.New(w, h), nil
	}
}

// Session is one learner's attempts at one level.
//
// Thread-safety: RunProgram, ResetProgram and StartingProgram may be called
// from any goroutine. Paced runs finish on scheduler goroutines.
type Session struct {
	id       string
	level    *level.Config
	criteria evaluate.Criteria
	fbctx    feedback.Context
	editor   Editor
	clock    *engine.Clock
	now      func() time.Time
	started  time.Time
	speed    float64

	interp     *engine.Interpreter
	replayer   *replay.Replayer
	controller *feedback.Controller
	reporters  []Reporter
	observer   Observer
	carry      carry.Store
	reference  *image.Alpha
	logger     *slog.Logger

	mu      sync.Mutex
	current *Run
}

type config struct {
	scheduler  replay.Scheduler
	reporters  []Reporter
	observer   Observer
	clock      *engine.Clock
	now        func() time.Time
	surfaces   SurfaceFactory
	carry      carry.Store
	cache      *ReferenceCache
	controller *feedback.Controller
	idGen      engine.IDGenerator
	id         string
	logger     *slog.Logger
	maxTicks   int
	speed      *float64
}

// Option configures a Session.
type Option func(*config)

// WithScheduler sets the scheduler paced runs step on.
func WithScheduler(s replay.Scheduler) Option {
	return func(c *config) {
		c.scheduler = s
	}
}

// WithReporter adds an attempt report sink. Sinks are called in order;
// their failures are logged and never fail a run.
func WithReporter(r Reporter) Option {
	return func(c *config) {
		c.reporters = append(c.reporters, r)
	}
}

// WithObserver sets the run statistics observer.
func WithObserver(o Observer) Option {
	return func(c *config) {
		c.observer = o
	}
}

// WithClock sets the attempt counter, e.g. to resume numbering.
func WithClock(clock *engine.Clock) Option {
	return func(c *config) {
		c.clock = clock
	}
}

// WithNow sets the wall clock used for elapsed times.
func WithNow(now func() time.Time) Option {
	return func(c *config) {
		c.now = now
	}
}

// WithSurfaceFactory sets where drawing surfaces come from.
//
// Default: RasterSurfaces(raster.DefaultWidth, raster.DefaultHeight).
func WithSurfaceFactory(f SurfaceFactory) Option {
	return func(c *config) {
		c.surfaces = f
	}
}

// WithCarryStore sets the carry-over store. Default: an in-process store
// private to the session, so levels carrying programs to each other must
// share one.
func WithCarryStore(s carry.Store) Option {
	return func(c *config) {
		c.carry = s
	}
}

// WithReferenceCache shares reference renderings between sessions.
func WithReferenceCache(rc *ReferenceCache) Option {
	return func(c *config) {
		c.cache = rc
	}
}

// WithController sets the feedback controller, e.g. for another language.
func WithController(fc *feedback.Controller) Option {
	return func(c *config) {
		c.controller = fc
	}
}

// WithIDGenerator sets the session id generator. Default: UUIDv7.
func WithIDGenerator(g engine.IDGenerator) Option {
	return func(c *config) {
		c.idGen = g
	}
}

// WithID fixes the session id. A learner moving between levels keeps one
// id so carried programs follow them.
func WithID(id string) Option {
	return func(c *config) {
		c.id = id
	}
}

// WithLogger sets the logger; defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithMaxTicks overrides the tick budget for learner programs. The level's
// max_ticks takes precedence.
func WithMaxTicks(n int) Option {
	return func(c *config) {
		c.maxTicks = n
	}
}

// WithSpeed overrides the level's replay speed for paced runs.
func WithSpeed(speed float64) Option {
	return func(c *config) {
		c.speed = &speed
	}
}

// New opens a session on a level.
//
// The level is validated and its reference rendering computed (or taken
// from the cache) before the session is returned, so a bad level blocks
// entry with a CONFIGURATION error. A missing surface is
// RENDERING_UNAVAILABLE.
func New(ctx context.Context, cfg *level.Config, editor Editor, opts ...Option) (*Session, error) {
	c := config{
		scheduler: replay.RealScheduler{},
		surfaces:  RasterSurfaces(raster.DefaultWidth, raster.DefaultHeight),
		idGen:     engine.UUIDv7Generator{},
		now:       time.Now,
		logger:    slog.Default(),
		maxTicks:  engine.DefaultMaxTicks,
	}
	for _, opt := range opts {
		opt(&c)
	}
	if cfg == nil {
		return nil, engine.NewConfigurationError("", "no level configuration")
	}
	if editor == nil {
		return nil, fmt.Errorf("session: editor is required")
	}
	if err := cfg.Validate(); err != nil {
		c.logger.Error("level rejected", "level_id", cfg.ID, "error", err)
		return nil, err
	}
	criteria, err := cfg.Criteria()
	if err != nil {
		return nil, err
	}

	surface, err := acquireSurface(c.surfaces)
	if err != nil {
		return nil, err
	}

	if c.cache == nil {
		c.cache = NewReferenceCache()
	}
	reference, err := c.cache.get(cfg.ID, func() (*image.Alpha, error) {
		return renderReference(ctx, cfg, c.surfaces)
	})
	if err != nil {
		c.logger.Error("reference rendering failed", "level_id", cfg.ID, "error", err)
		return nil, err
	}

	if c.clock == nil {
		c.clock = engine.NewClock()
	}
	if c.carry == nil {
		c.carry = carry.NewMemory()
	}
	if c.controller == nil {
		c.controller = feedback.NewController()
	}
	speed := cfg.Speed
	if c.speed != nil {
		speed = *c.speed
	}
	maxTicks := c.maxTicks
	if cfg.MaxTicks > 0 {
		maxTicks = cfg.MaxTicks
	}

	id := c.id
	if id == "" {
		id = c.idGen.Generate()
	}

	s := &Session{
		id:         id,
		level:      cfg,
		criteria:   criteria,
		fbctx:      cfg.FeedbackContext(),
		editor:     editor,
		clock:      c.clock,
		now:        c.now,
		started:    c.now(),
		speed:      speed,
		interp:     engine.NewInterpreter(engine.WithMaxTicks(maxTicks), engine.WithLogger(c.logger)),
		controller: c.controller,
		reporters:  c.reporters,
		observer:   c.observer,
		carry:      c.carry,
		reference:  reference,
		logger:     c.logger,
	}
	s.replayer = replay.New(surface,
		replay.WithScheduler(c.scheduler),
		replay.WithHighlighter(editor.Highlight),
		replay.WithLogger(c.logger))
	s.replayer.Reset(cfg.Start)

	s.logger.Info("session started", "session_id", s.id, "level_id", cfg.ID)
	return s, nil
}

func acquireSurface(f SurfaceFactory) (replay.Surface, error) {
	if f == nil {
		return nil, engine.NewRenderingUnavailable("no surface factory")
	}
	surface, err := f()
	if err != nil {
		return nil, engine.NewRenderingUnavailable(err.Error())
	}
	if surface == nil {
		return nil, engine.NewRenderingUnavailable("surface factory returned no surface")
	}
	return surface, nil
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Level returns the level the session is on.
func (s *Session) Level() *level.Config {
	return s.level
}

// Surface returns the surface runs draw on.
func (s *Session) Surface() replay.Surface {
	return s.replayer.Surface()
}

// State returns the current execution state.
func (s *Session) State() replay.State {
	return s.replayer.State()
}

// Reference returns the cached reference rendering.
func (s *Session) Reference() *image.Alpha {
	return s.reference
}

// Attempts returns the number of runs started so far.
func (s *Session) Attempts() int64 {
	return s.clock.Current()
}
