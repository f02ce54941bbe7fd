// Package api exposes the simulation engine over HTTP: a single POST /run
// endpoint that accepts a strategy, market parameters and broker settings
// and returns a BacktestResult, a GET /run/stream websocket variant that
// streams the equity curve as it is produced, plus the usual /health and
// /metrics operational endpoints.
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chidi150c/backtestkit/internal/config"
	"github.com/chidi150c/backtestkit/internal/marketdata"
)

// Server is the HTTP API server wrapping a chi router.
type Server struct {
	router   chi.Router
	cfg      *config.ServiceConfig
	provider *marketdata.Provider
	upgrader websocket.Upgrader
}

// NewServer builds a configured Server. provider may be nil only in tests
// that exercise routes unrelated to /run.
func NewServer(cfg *config.ServiceConfig, provider *marketdata.Provider) *Server {
	s := &Server{
		cfg:      cfg,
		provider: provider,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	s.router = s.buildRouter()
	return s
}

// Router returns the chi router, mainly for tests driving it with
// httptest.NewServer or httptest.NewRequest.
func (s *Server) Router() chi.Router { return s.router }

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))

	origins := []string{"*"}
	if len(s.cfg.HTTP.AllowedOrigins) > 0 {
		origins = s.cfg.HTTP.AllowedOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	var secret []byte
	if !s.cfg.Auth.Disabled {
		secret = []byte(s.cfg.Auth.JWTSecret)
	}

	r.Group(func(r chi.Router) {
		r.Use(requireBearerToken(secret))
		r.With(middleware.AllowContentType("application/json")).Post("/run", s.handleRun)
		r.Get("/run/stream", s.handleRunStream)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListenAndServe starts the server on cfg.HTTP.Port and blocks until an
// interrupt signal arrives, then drains in-flight requests within
// cfg.HTTP.ShutdownTimeout.
func (s *Server) ListenAndServe() error {
	httpSrv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.HTTP.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("api: server error: %v", err)
		}
	}()

	<-done
	log.Println("api: shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.HTTP.ShutdownTimeout)
	defer cancel()
	return httpSrv.Shutdown(ctx)
}
