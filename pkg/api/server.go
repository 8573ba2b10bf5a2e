package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/vgadepth/pkg/buildinfo"
	vgaerrors "github.com/matzehuels/vgadepth/pkg/errors"
	"github.com/matzehuels/vgadepth/pkg/grid"
	"github.com/matzehuels/vgadepth/pkg/httputil"
	"github.com/matzehuels/vgadepth/pkg/pipeline"
	"github.com/matzehuels/vgadepth/pkg/vga"
)

// DefaultRunTimeout bounds a single step-depth request.
const DefaultRunTimeout = 5 * time.Minute

// DefaultMaxCells bounds the grid size of a submitted graph.
const DefaultMaxCells = 1 << 22

// StepDepthRequest is the body of POST /v1/stepdepth.
type StepDepthRequest struct {
	Graph   json.RawMessage `json:"graph"`
	Points  [][2]float64    `json:"points"`
	Type    string          `json:"type"`
	Column  string          `json:"column,omitempty"`
	Refresh bool            `json:"refresh,omitempty"`
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and run logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRunTimeout bounds each step-depth request. Zero disables the bound.
func WithRunTimeout(d time.Duration) Option {
	return func(s *Server) { s.timeout = d }
}

// WithMaxCells bounds the grid size of submitted graphs. Zero leaves only
// the grid.MaxCells bound.
func WithMaxCells(n int) Option {
	return func(s *Server) { s.maxCells = n }
}

// Server routes API requests to a pipeline runner.
type Server struct {
	runner   *pipeline.Runner
	logger   *log.Logger
	timeout  time.Duration
	maxCells int
	router   chi.Router
}

// New returns a server backed by runner.
func New(runner *pipeline.Runner, opts ...Option) *Server {
	s := &Server{
		runner:   runner,
		logger:   log.New(io.Discard),
		timeout:  DefaultRunTimeout,
		maxCells: DefaultMaxCells,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(httputil.Instrument(s.logger))

	r.Get("/healthz", s.health)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/stepdepth", s.stepDepth)
		r.Get("/runs/{id}", s.getRun)
		r.Get("/runs/{id}/column", s.getColumn)
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteError(w, vgaerrors.New(vgaerrors.ErrCodeNotFound, "no route for %s %s", r.Method, r.URL.Path))
	})
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"build":  buildinfo.Get(),
	})
}

func (s *Server) stepDepth(w http.ResponseWriter, r *http.Request) {
	var req StepDepthRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	opts, err := req.options(s.maxCells)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	opts.Logger = s.logger

	ctx := r.Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	res, err := s.runner.Execute(ctx, opts)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	rec, err := s.runner.SaveRecord(ctx, res)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	rec.Values = nil
	w.Header().Set("Location", "/v1/runs/"+rec.RunID)
	httputil.WriteJSON(w, http.StatusCreated, rec)
}

func (req StepDepthRequest) options(maxCells int) (pipeline.Options, error) {
	if len(req.Graph) == 0 {
		return pipeline.Options{}, vgaerrors.New(vgaerrors.ErrCodeRequiredArgument, "graph is required")
	}
	g, err := vga.ReadJSON(bytes.NewReader(req.Graph), vga.WithMaxCells(maxCells))
	switch {
	case err == nil:
	case errors.Is(err, vga.ErrTooManyCells):
		return pipeline.Options{}, vgaerrors.Wrap(vgaerrors.ErrCodeInvalidInput, err, "graph is too large")
	case vgaerrors.GetCode(err) != "":
		return pipeline.Options{}, err
	default:
		return pipeline.Options{}, vgaerrors.Wrap(vgaerrors.ErrCodeInvalidFormat, err, "invalid graph")
	}
	pts := make([]grid.Point, len(req.Points))
	for i, p := range req.Points {
		pts[i] = grid.Point{X: p[0], Y: p[1]}
	}
	return pipeline.Options{
		Graph:   g,
		Points:  pts,
		Type:    req.Type,
		Column:  req.Column,
		Refresh: req.Refresh,
	}, nil
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	rec, err := s.runner.LoadRecord(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	rec.Values = nil
	httputil.WriteJSON(w, http.StatusOK, rec)
}

func (s *Server) getColumn(w http.ResponseWriter, r *http.Request) {
	rec, err := s.runner.LoadRecord(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if rec.Values == nil {
		httputil.WriteError(w, vgaerrors.New(vgaerrors.ErrCodeColumnNotFound, "run %s has no column", rec.RunID))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec.Values)
}
