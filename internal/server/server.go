// Package server exposes the question pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/abhisek/qcbank/internal/question"
)

// RequestObserver records finished HTTP requests.
type RequestObserver interface {
	ObserveRequest(method, route string, status int, d time.Duration)
}

// Options configures the router.
type Options struct {
	Log zerolog.Logger
	// Observer may be nil.
	Observer RequestObserver
	// MetricsHandler is mounted at /metrics when set.
	MetricsHandler http.Handler
	// RequestTimeout bounds each request context. Zero means no bound.
	RequestTimeout time.Duration
	// Version is reported by /health.
	Version string
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(svc *question.Service, opts Options) *gin.Engine {
	registerValidators()

	r := gin.New()
	r.Use(
		recoverer(opts.Log),
		requestLogger(opts.Log, opts.Observer),
		cors(),
	)
	if opts.RequestTimeout > 0 {
		r.Use(requestTimeout(opts.RequestTimeout))
	}

	h := &handlers{svc: svc, log: opts.Log.With().Str("component", "http").Logger(), version: opts.Version}

	r.GET("/health", h.health)
	if opts.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(opts.MetricsHandler))
	}

	r.POST("/process_question/", h.processQuestion)
	r.GET("/download-csv", h.downloadCSV)

	questions := r.Group("/questions")
	{
		questions.GET("", h.listQuestions)
		questions.GET("/:question_id/versions", h.listVersions)
		questions.GET("/:question_id/versions/:version", h.getVersion)
		questions.POST("/:question_id/improve", h.improve)
	}
	return r
}

// Server runs the HTTP API until its context ends.
type Server struct {
	http            *http.Server
	shutdownTimeout time.Duration
	log             zerolog.Logger
}

// New wraps handler in an http.Server listening on addr.
func New(addr string, handler http.Handler, readTimeout, writeTimeout, shutdownTimeout time.Duration, log zerolog.Logger) *Server {
	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: readTimeout,
			ReadTimeout:       readTimeout,
			WriteTimeout:      writeTimeout,
		},
		shutdownTimeout: shutdownTimeout,
		log:             log,
	}
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.http.Addr).Msg("http server listening")
		errc <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	s.log.Info().Msg("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen: %w", err)
	}
	return nil
}
