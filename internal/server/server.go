// Package server provides the HTTP server for posewall: the REST API, the
// browser play websocket and the native mode live feeds.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/ayusman/posewall/internal/game"
	"github.com/ayusman/posewall/internal/logging"
	"github.com/ayusman/posewall/internal/scoring"
	"github.com/ayusman/posewall/internal/server/api"
	"github.com/ayusman/posewall/internal/store"
	"github.com/ayusman/posewall/internal/target"
)

// Server defaults.
const (
	// DefaultFrameRate is the number of frames per second a play
	// connection may send before frames are dropped.
	DefaultFrameRate = 30
	// ScoreRate and ScoreBurst bound POST /api/score per client address.
	ScoreRate  = 10
	ScoreBurst = 20
)

// Config holds the server configuration. Only Log is expected; every other
// zero field disables or defaults the feature that needs it.
type Config struct {
	WebDir  string
	Store   *store.Store
	Catalog *target.Catalog
	Scorer  *scoring.Scorer
	// Game holds the rules for browser play. A zero Config uses the defaults.
	Game      game.Config
	FrameRate float64
	// Hub and Frames are set in native mode.
	Hub    *Hub
	Frames FrameSource
	Log    logrus.FieldLogger
}

// Server represents the HTTP server for the posewall application.
type Server struct {
	config Config
	router chi.Router
	start  time.Time
	http   *http.Server

	// ctx ends open play connections on Shutdown; hijacked connections are
	// not tracked by http.Server.
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.Log == nil {
		config.Log = logging.Discard()
	}
	if config.Catalog == nil {
		config.Catalog = target.NewCatalog()
	}
	if config.Scorer == nil {
		config.Scorer = scoring.NewScorer(scoring.DefaultTuning(), target.StandingPose())
	}
	if config.Game == (game.Config{}) {
		config.Game = game.DefaultConfig()
	}
	if config.FrameRate <= 0 {
		config.FrameRate = DefaultFrameRate
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config: config,
		router: chi.NewRouter(),
		start:  time.Now(),
		ctx:    ctx,
		cancel: cancel,
	}
	s.http = &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.config.Log))
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		templates := api.NewTemplateHandler(s.config.Store, s.config.Catalog, s.config.Scorer, s.config.Game.PassThreshold, s.config.Log)
		r.Route("/templates", templates.Routes)

		limiter := api.NewIPLimiter(rate.Limit(ScoreRate), ScoreBurst)
		r.With(limiter.Middleware(s.config.Log)).Post("/score", api.NewScoreHandler(s.config.Catalog, s.config.Scorer).ServeHTTP)

		if s.config.Store != nil {
			r.Route("/sessions", api.NewSessionHandler(s.config.Store).Routes)
		}

		r.Handle("/play", NewPlayHandler(PlayConfig{
			Context:   s.ctx,
			Store:     s.config.Store,
			Catalog:   s.config.Catalog,
			Scorer:    s.config.Scorer,
			Game:      s.config.Game,
			FrameRate: s.config.FrameRate,
			Log:       s.config.Log,
		}))

		if s.config.Hub != nil {
			r.Handle("/live", s.config.Hub)
		}
		if s.config.Frames != nil {
			r.Handle("/stream", NewStreamHandler(s.config.Frames))
		}
	})

	if s.config.WebDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.config.WebDir)))
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type healthResponse struct {
	Status    string `json:"status"`
	Uptime    string `json:"uptime"`
	Templates int    `json:"templates"`
	Native    bool   `json:"native"`
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Uptime:    time.Since(s.start).Round(time.Second).String(),
		Templates: s.config.Catalog.Len(),
		Native:    s.config.Hub != nil,
	})
}

// ListenAndServe starts the HTTP server on the given address. It returns
// nil after Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.config.Log.WithField("addr", ln.Addr().String()).Info("http server listening")
	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown closes open play connections and gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	if s.config.Hub != nil {
		s.config.Hub.Close()
	}
	return s.http.Shutdown(ctx)
}
