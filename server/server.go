// Package server exposes conversion, session and user dictionary endpoints
// over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"henkan/config"
	"henkan/converter"
	"henkan/metrics"
	"henkan/userdict"
)

// Builder returns a converter over the current user dictionary. It is
// called at start and after every user dictionary change.
type Builder func(ctx context.Context) (*converter.Converter, error)

// Server holds the live converter and the conversion sessions.
type Server struct {
	cfg        *config.Config
	build      Builder
	store      userdict.Store
	conv       atomic.Pointer[converter.Converter]
	sessions   *lru.Cache[string, *session]
	router     *mux.Router
	httpServer *http.Server

	// reloadMu serializes converter rebuilds.
	reloadMu sync.Mutex
}

// New builds the first converter and the routes.
func New(ctx context.Context, cfg *config.Config, build Builder, store userdict.Store) (*Server, error) {
	sessions, err := lru.NewWithEvict[string, *session](cfg.Server.Sessions, func(id string, _ *session) {
		log.Printf("[server] evicted session %s", id)
	})
	if err != nil {
		return nil, fmt.Errorf("session cache: %w", err)
	}
	s := &Server{
		cfg:      cfg,
		build:    build,
		store:    store,
		sessions: sessions,
	}
	if err := s.reload(ctx); err != nil {
		return nil, err
	}
	s.setupRoutes()
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

func (s *Server) reload(ctx context.Context) error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()
	conv, err := s.build(ctx)
	if err != nil {
		return fmt.Errorf("build converter: %w", err)
	}
	s.conv.Store(conv)
	return nil
}

func (s *Server) setupRoutes() {
	s.router = mux.NewRouter()

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/convert", s.handleConvert).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/convert", s.handleSessionConvert).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/commit", s.handleSessionCommit).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}", s.handleSessionDelete).Methods(http.MethodDelete)
	api.HandleFunc("/userdict", s.handleUserdictList).Methods(http.MethodGet)
	api.HandleFunc("/userdict", s.handleUserdictAdd).Methods(http.MethodPost)
	api.HandleFunc("/userdict", s.handleUserdictRemove).Methods(http.MethodDelete)

	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	s.router.Use(requestLogging)
}

// Handler is the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		log.Printf("[server] listening on http://%s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Printf("[server] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Printf("[server] stopped")
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// requestLogging logs each request and counts it by route template.
func requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if cr := mux.CurrentRoute(r); cr != nil {
			if tpl, err := cr.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		metrics.ObserveHTTP(route, rec.code)
		log.Printf("[server] %s %s %d %s", r.Method, r.URL.Path, rec.code, time.Since(start))
	})
}
