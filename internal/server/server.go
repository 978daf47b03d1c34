package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/idrecon/idrecon/internal/model"
)

// Service is the query lifecycle surface exposed over HTTP. The
// orchestrator satisfies it.
type Service interface {
	Submit(ctx context.Context, qt model.QueryType, value string, opts model.Options) (string, error)
	Cancel(id string) error
	GetResult(id string) (*model.Result, error)
}

// Server exposes query submission and result retrieval over HTTP.
//
// Design decision: Submission is asynchronous. POST returns 202 with the
// query id immediately and clients poll GET for the result, which may be
// an interim snapshot while the query is still running. This keeps
// request handling independent of query deadlines, which can be long.
type Server struct {
	svc    Service
	logger *slog.Logger
	router *chi.Mux

	// shutdownTimeout bounds graceful shutdown once the context is done.
	shutdownTimeout time.Duration
}

// New creates a Server wired to the given service.
func New(svc Service, logger *slog.Logger) *Server {
	s := &Server{
		svc:             svc,
		logger:          logger.With("component", "server"),
		shutdownTimeout: 10 * time.Second,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Route("/api/v1/queries", func(r chi.Router) {
		r.Post("/", s.handleSubmit)
		r.Get("/{id}", s.handleGetResult)
		r.Post("/{id}/cancel", s.handleCancel)
	})
	r.Get("/healthz", s.handleHealth)

	s.router = r
	return s
}

// Handler returns the HTTP handler for the API.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves the API on addr until ctx is cancelled, then
// shuts down gracefully. A nil error means a clean shutdown.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// logRequests emits one structured log line per request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
