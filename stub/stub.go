// ABOUTME: Local stand-in for the workflow backend serving POST /chat over a chi router.
// ABOUTME: Produces deterministic Plan/Think/response text from the query, with optional latency and forced failures.
package stub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/2389-research/modelselector/workflow"
)

// maxRequestBytes caps the request body the stub will read.
const maxRequestBytes = 1 << 20

// Config controls how the stub answers.
type Config struct {
	Addr       string        // listen address (default: "127.0.0.1:2390")
	FailStatus int           // when non-zero every /chat request fails with this status
	Latency    time.Duration // delay before answering; cut short if the client goes away
	Logger     *zap.Logger
}

// Server serves the backend contract.
type Server struct {
	cfg      Config
	router   chi.Router
	logger   *zap.Logger
	requests atomic.Int64
}

// NewServer creates a stub Server from cfg.
func NewServer(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:2390"
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	s := &Server{cfg: cfg, logger: cfg.Logger}
	s.router = s.buildRouter()
	return s
}

// ServeHTTP delegates to the chi router, satisfying http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Requests reports how many /chat requests have been received.
func (s *Server) Requests() int64 {
	return s.requests.Load()
}

// ListenAndServe serves on the configured address until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	})
	defer stop()

	s.logger.Info("stub backend listening", zap.String("addr", s.cfg.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("stub server: %w", err)
	}
	return nil
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Post(workflow.ChatPath, s.handleChat)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return r
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	n := s.requests.Add(1)

	var req workflow.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}

	logger := s.logger.With(
		zap.Int64("request", n),
		zap.String("session_id", req.SessionID),
	)

	if s.cfg.Latency > 0 {
		t := time.NewTimer(s.cfg.Latency)
		select {
		case <-t.C:
		case <-r.Context().Done():
			t.Stop()
			logger.Debug("client went away during latency")
			return
		}
	}

	if s.cfg.FailStatus != 0 {
		logger.Info("forced failure", zap.Int("status", s.cfg.FailStatus))
		writeJSON(w, s.cfg.FailStatus, map[string]string{"error": "stub configured to fail"})
		return
	}

	result := Respond(query)
	logger.Info("chat answered", zap.String("model", string(SelectTier(query))))
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
