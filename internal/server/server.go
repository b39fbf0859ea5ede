// Package server exposes levels and graded runs over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/roach88/turtle/internal/carry"
	"github.com/roach88/turtle/internal/engine"
	"github.com/roach88/turtle/internal/ir"
	"github.com/roach88/turtle/internal/level"
	"github.com/roach88/turtle/internal/session"
)

// maxBody bounds request bodies.
const maxBody = 1 << 20

// AttemptLog resumes attempt numbering for returning learners.
type AttemptLog interface {
	LastAttempt(ctx context.Context, sessionID, levelID string) (int64, error)
}

// Server runs one instant session per request. Learners are identified by
// the session_id they send; carried programs and attempt numbers follow it.
type Server struct {
	pack      *level.Pack
	cache     *session.ReferenceCache
	carry     carry.Store
	reporters []session.Reporter
	observer  session.Observer
	attempts  AttemptLog
	metrics   http.Handler
	idGen     engine.IDGenerator
	logger    *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithReporter adds an attempt report sink.
func WithReporter(r session.Reporter) Option {
	return func(s *Server) {
		s.reporters = append(s.reporters, r)
	}
}

// WithObserver sets the run statistics observer.
func WithObserver(o session.Observer) Option {
	return func(s *Server) {
		s.observer = o
	}
}

// WithCarryStore sets the carry-over store shared by all sessions.
func WithCarryStore(c carry.Store) Option {
	return func(s *Server) {
		s.carry = c
	}
}

// WithAttemptLog resumes attempt numbers from a log.
func WithAttemptLog(a AttemptLog) Option {
	return func(s *Server) {
		s.attempts = a
	}
}

// WithMetricsHandler mounts h at GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithIDGenerator sets how ids are made for requests without one.
func WithIDGenerator(g engine.IDGenerator) Option {
	return func(s *Server) {
		s.idGen = g
	}
}

// WithLogger sets the logger; defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// New creates a server over a level pack.
func New(pack *level.Pack, opts ...Option) *Server {
	s := &Server{
		pack:   pack,
		cache:  session.NewReferenceCache(),
		carry:  carry.NewMemory(),
		idGen:  engine.UUIDv7Generator{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", s.health)
	r.Get("/levels", s.listLevels)
	r.Route("/levels/{id}", func(r chi.Router) {
		r.Get("/", s.getLevel)
		r.Get("/start", s.start)
		r.Post("/run", s.run)
		r.Post("/render", s.render)
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	return r
}

// LevelSummary is one entry of GET /levels.
type LevelSummary struct {
	ID         string `json:"id"`
	Title      string `json:"title,omitempty"`
	FreePlay   bool   `json:"free_play"`
	FinalLevel bool   `json:"final_level"`
}

// RunRequest is the body of POST /levels/{id}/run and /render.
type RunRequest struct {
	SessionID string    `json:"session_id,omitempty"`
	Source    string    `json:"source"`
	Nodes     []ir.Node `json:"nodes,omitempty"`
}

// RunResponse is the graded run.
type RunResponse struct {
	SessionID string          `json:"session_id"`
	Attempt   int64           `json:"attempt"`
	Notice    string          `json:"notice,omitempty"`
	Result    *session.Result `json:"result"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": ir.EngineVersion})
}

func (s *Server) listLevels(w http.ResponseWriter, _ *http.Request) {
	ids := s.pack.IDs()
	out := make([]LevelSummary, 0, len(ids))
	for _, id := range ids {
		c, err := s.pack.Get(id)
		if err != nil {
			continue
		}
		out = append(out, LevelSummary{ID: c.ID, Title: c.Title, FreePlay: c.FreePlay, FinalLevel: c.FinalLevel})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getLevel(w http.ResponseWriter, r *http.Request) {
	c, ok := s.level(w, r)
	if !ok {
		return
	}
	// the answer stays server-side
	view := *c
	view.Answer = ""
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) start(w http.ResponseWriter, r *http.Request) {
	c, ok := s.level(w, r)
	if !ok {
		return
	}
	req := RunRequest{SessionID: r.URL.Query().Get("session_id")}
	sess, err := s.open(r.Context(), c, &req)
	if err != nil {
		s.fail(w, err)
		return
	}
	st, err := sess.StartingProgram(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) run(w http.ResponseWriter, r *http.Request) {
	c, ok := s.level(w, r)
	if !ok {
		return
	}
	var req RunRequest
	if !decode(w, r, &req) {
		return
	}
	sess, err := s.open(r.Context(), c, &req)
	if err != nil {
		s.fail(w, err)
		return
	}
	run, err := sess.RunProgram(r.Context(), session.Instant)
	if err != nil {
		s.fail(w, err)
		return
	}
	res, err := run.Wait(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RunResponse{
		SessionID: sess.ID(),
		Attempt:   run.Attempt,
		Notice:    run.Notice,
		Result:    &res,
	})
}

// render draws a program without grading or reporting it.
func (s *Server) render(w http.ResponseWriter, r *http.Request) {
	c, ok := s.level(w, r)
	if !ok {
		return
	}
	var req RunRequest
	if !decode(w, r, &req) {
		return
	}
	// a throwaway session so nothing is reported or carried
	sess, err := session.New(r.Context(), c, &requestEditor{req: &req},
		session.WithReferenceCache(s.cache),
		session.WithLogger(s.logger))
	if err != nil {
		s.fail(w, err)
		return
	}
	if _, err := sess.RunProgram(r.Context(), session.Instant); err != nil {
		s.fail(w, err)
		return
	}
	png, ok := sess.Surface().(interface{ WritePNG(io.Writer) error })
	if !ok {
		s.fail(w, engine.NewRenderingUnavailable("surface cannot encode PNG"))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if err := png.WritePNG(w); err != nil {
		s.logger.Error("render response encode failed", "error", err)
	}
}

func (s *Server) level(w http.ResponseWriter, r *http.Request) (*level.Config, bool) {
	c, err := s.pack.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return nil, false
	}
	return c, true
}

// open starts a session for the request's learner, assigning an id when
// the request has none.
func (s *Server) open(ctx context.Context, c *level.Config, req *RunRequest) (*session.Session, error) {
	if req.SessionID == "" {
		req.SessionID = s.idGen.Generate()
	}
	opts := []session.Option{
		session.WithID(req.SessionID),
		session.WithReferenceCache(s.cache),
		session.WithCarryStore(s.carry),
		session.WithLogger(s.logger),
	}
	for _, rep := range s.reporters {
		opts = append(opts, session.WithReporter(rep))
	}
	if s.observer != nil {
		opts = append(opts, session.WithObserver(s.observer))
	}
	if s.attempts != nil {
		last, err := s.attempts.LastAttempt(ctx, req.SessionID, c.ID)
		if err != nil {
			return nil, err
		}
		opts = append(opts, session.WithClock(engine.NewClockAt(last)))
	}
	return session.New(ctx, c, &requestEditor{req: req}, opts...)
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var code string
	var re *engine.RuntimeError
	if errors.As(err, &re) {
		code = string(re.Code)
	}
	switch {
	case engine.IsRenderingUnavailable(err):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusRequestTimeout
	}
	s.logger.Error("request failed", "error", err, "status", status)
	writeJSON(w, status, errorResponse{Error: err.Error(), Code: code})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}

// requestEditor serves a request body as the editor. Highlights have
// nowhere to go.
type requestEditor struct {
	req *RunRequest
}

func (e *requestEditor) Source() string { return e.req.Source }

func (e *requestEditor) Nodes() []ir.Node { return e.req.Nodes }

func (e *requestEditor) Highlight(string) {}
