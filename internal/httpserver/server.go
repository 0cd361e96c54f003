// internal/httpserver/server.go
package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/newsdesk/internal/httpserver/deps"
	"github.com/MrSnakeDoc/newsdesk/internal/httpserver/mw"
	"github.com/MrSnakeDoc/newsdesk/internal/httpserver/routes"
	"github.com/MrSnakeDoc/newsdesk/internal/logger"
)

// Options are the listener settings.
type Options struct {
	Addr           string
	RequestTimeout time.Duration
}

// Server wraps the HTTP server and its dependencies.
type Server struct {
	http    *http.Server
	logger  logger.Logger
	started time.Time
}

// NewRouter builds the router (middlewares and route registration).
func NewRouter(opts Options, d deps.Deps) http.Handler {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}

	r := chi.NewRouter()

	// --- Global middlewares
	r.Use(middleware.GetHead)
	r.Use(middleware.RequestID)                              // X-Request-ID on each request
	r.Use(middleware.Recoverer)                              // never crash the process on panic
	r.Use(mw.TimeoutExcept(opts.RequestTimeout, "/refresh")) // per-request timeout
	r.Use(mw.Log(d.Logger, d.TrustProxy))                    // one http_request line per request
	r.Use(mw.CORS())

	groups := routes.RegisterAll(r, d)
	if d.Logger != nil {
		d.Logger.Debug("routes registered", logger.Strings("groups", groups))
	}
	return r
}

// New builds the HTTP server.
func New(opts Options, loggerClient logger.Logger, d deps.Deps) *Server {
	writeTimeout := 30 * time.Second
	if d.CycleTimeout+30*time.Second > writeTimeout {
		writeTimeout = d.CycleTimeout + 30*time.Second
	}

	s := &http.Server{
		Addr:              opts.Addr,
		Handler:           NewRouter(opts, d),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return &Server{
		http:    s,
		logger:  loggerClient,
		started: d.StartTime,
	}
}

// Start runs the HTTP server (blocks until error or shutdown).
func (s *Server) Start() error {
	s.logger.Infof("HTTP server listening on %s", s.http.Addr)
	err := s.http.ListenAndServe()
	// http.ErrServerClosed is expected on graceful shutdown.
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully shuts down the server with the provided context deadline.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("HTTP server shutting down...")
	return s.http.Shutdown(ctx)
}
