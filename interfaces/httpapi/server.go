// Package httpapi serves the analyst tools over a small REST API.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/felixgeelhaar/sqlanalyst/application"
	"github.com/felixgeelhaar/sqlanalyst/domain/querylog"
	"github.com/felixgeelhaar/sqlanalyst/infrastructure/logging"
	"github.com/felixgeelhaar/sqlanalyst/infrastructure/resilience"
)

// TransportName identifies HTTP calls in logs, spans and the execution context.
const TransportName = "http"

// Defaults for the HTTP server.
const (
	DefaultMaxBodyBytes    = 1 << 20
	DefaultRequestTimeout  = 60 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
)

// Config configures the HTTP API.
type Config struct {
	// AllowedOrigins lists CORS origins. Empty allows any origin.
	AllowedOrigins []string

	// MaxBodyBytes bounds tool input size.
	MaxBodyBytes int64

	// RequestTimeout bounds a single request.
	RequestTimeout time.Duration

	// Version is reported by the health endpoint.
	Version string
}

// Server routes HTTP requests to the tool invoker.
type Server struct {
	invoker *application.Invoker
	breaker *resilience.CircuitBreaker
	store   querylog.Store
	cfg     Config
	router  chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithBreaker reports the breaker state on /healthz.
func WithBreaker(cb *resilience.CircuitBreaker) Option {
	return func(s *Server) {
		s.breaker = cb
	}
}

// WithQueryLog serves recent query log entries on /queries.
func WithQueryLog(store querylog.Store) Option {
	return func(s *Server) {
		s.store = store
	}
}

// WithConfig sets the server configuration.
func WithConfig(cfg Config) Option {
	return func(s *Server) {
		s.cfg = cfg
	}
}

// New creates the API over invoker.
func New(invoker *application.Invoker, opts ...Option) *Server {
	s := &Server{invoker: invoker}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg.MaxBodyBytes <= 0 {
		s.cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if s.cfg.RequestTimeout <= 0 {
		s.cfg.RequestTimeout = DefaultRequestTimeout
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(s.cfg.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Route("/tools", func(r chi.Router) {
		r.Get("/", s.handleListTools)
		r.Get("/{name}", s.handleDescribeTool)
		r.Post("/{name}", s.handleInvokeTool)
	})
	r.Get("/queries", s.handleQueries)
	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Add(logging.Component("httpapi")).Add(logging.Str("addr", addr)).Msg("serving tools")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), DefaultShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logging.Debug().
			Add(logging.Component("httpapi")).
			Add(logging.Str("method", r.Method)).
			Add(logging.Str("path", r.URL.Path)).
			Add(logging.Str("request_id", chimw.GetReqID(r.Context()))).
			Add(logging.Str("status", strconv.Itoa(ww.Status()))).
			Add(logging.Duration(time.Since(start))).
			Msg("http request")
	})
}
