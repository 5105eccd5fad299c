// Package server exposes the tool registry over HTTP: a discovery catalog,
// an invoke endpoint, and a health probe. Invocations always answer 200
// with a response envelope; transport-level failures are reserved for
// requests that never reach the dispatcher.
package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/koustreak/pgbridge/internal/artifact"
	"github.com/koustreak/pgbridge/internal/database"
	"github.com/koustreak/pgbridge/internal/logger"
	"github.com/koustreak/pgbridge/internal/tools"
)

// maxBodyBytes caps the request envelope size. Tool arguments are small;
// anything larger is not a legitimate invocation.
const maxBodyBytes = 1 << 20

// Server serves the HTTP tool surface.
type Server struct {
	registry *tools.Registry
	pool     *database.Manager
	sink     artifact.Sink
	log      *logger.Logger
}

// New creates a Server. sink may be artifact.Disabled{}.
func New(registry *tools.Registry, pool *database.Manager, sink artifact.Sink, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	if sink == nil {
		sink = artifact.Disabled{}
	}
	return &Server{registry: registry, pool: pool, sink: sink, log: log}
}

// Handler builds the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/tools", s.handleCatalog)
	r.Post("/tools/{name}", s.handleInvoke)

	return r
}

// handleHealth reports liveness and pool counters. Always 200: an
// uninitialized pool is a degraded-but-serving state, not a dead process.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stat := s.pool.Stat()
	writeJSON(w, map[string]any{
		"status":           "ok",
		"pool_initialized": s.pool.Initialized(),
		"pool": map[string]int32{
			"acquired": stat.Acquired,
			"idle":     stat.Idle,
			"total":    stat.Total,
			"max":      stat.Max,
		},
	})
}

// handleCatalog advertises every tool's name, description, and declared
// argument properties, the discovery contract external callers build
// requests from.
func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"tools": s.registry.List()})
}

// handleInvoke runs one tool. The body is the request envelope
// ({"arguments": {...}}); the response is always a response envelope.
func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.log.Warnf("failed to read request body for tool %s: %v", name, err)
		body = nil
	}

	envelope := s.registry.Dispatch(r.Context(), name, body)

	s.storeArtifact(r.Context(), name, envelope)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(envelope)
}

// storeArtifact persists the response envelope. Best-effort: failures are
// logged and never affect the caller's response.
func (s *Server) storeArtifact(ctx context.Context, name string, envelope []byte) {
	key := name + "/" + time.Now().UTC().Format("20060102T150405.000000000") + ".json"
	if err := s.sink.Put(ctx, key, envelope); err != nil {
		s.log.ErrorWith("failed to store result artifact", err, map[string]any{"key": key})
	}
}

// requestLogger logs one line per request with latency and status.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.With().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Str("duration", time.Since(start).String()).
			Logger().
			Info("request handled")
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
