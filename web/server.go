// ABOUTME: Web host for the model selector: one visualizer.Controller per visitor session behind a chi router.
// ABOUTME: Serves the page, a JSON API for submit and examples, a server-sent event stream, health and metrics.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/2389-research/modelselector/visualizer"
	"github.com/2389-research/modelselector/workflow"
)

const (
	// DefaultAddr is the listen address used when ServerConfig.Addr is empty.
	DefaultAddr = "127.0.0.1:2389"
	// SessionCookie names the cookie carrying the visitor session id.
	SessionCookie = "modelselector_session"
	// DefaultSessionTTL is the idle lifetime used when ServerConfig.SessionTTL is unset.
	DefaultSessionTTL = 30 * time.Minute

	maxQueryLen       = 1000
	maxBodyBytes      = 64 << 10
	heartbeatInterval = 15 * time.Second
)

// Server hosts the visualizer for browser visitors.
type Server struct {
	sessions    *SessionStore
	templates   *TemplateEngine
	router      chi.Router
	addr        string
	logger      *zap.Logger
	metrics     *Metrics
	registry    *prometheus.Registry
	md          *Markdown
	ttl         time.Duration
	stopCleanup func()
}

// ServerConfig holds the configuration for the web server. Only Client is
// required.
type ServerConfig struct {
	Addr        string
	Client      workflow.Submitter
	ThinkDelay  time.Duration
	OutputDelay time.Duration
	Catalog     visualizer.Catalog
	SessionTTL  time.Duration // idle sessions are closed after this long
	MaxSessions int
	Logger      *zap.Logger
	Registry    *prometheus.Registry // defaults to a fresh registry
	Scheduler   visualizer.Scheduler // reveal timers, mainly for tests
}

// NewServer creates a Server and starts its idle-session cleanup. Call Close
// to stop it.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Client == nil {
		return nil, errors.New("web: Client is required")
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}

	tmpl, err := NewTemplateEngine()
	if err != nil {
		return nil, fmt.Errorf("initializing templates: %w", err)
	}

	s := &Server{
		templates: tmpl,
		addr:      cfg.Addr,
		logger:    cfg.Logger,
		registry:  cfg.Registry,
		md:        NewMarkdown(),
		ttl:       cfg.SessionTTL,
	}
	s.metrics = NewMetrics(cfg.Registry, func() int { return s.sessions.Len() })

	client := s.metrics.Instrument(cfg.Client)
	factory := func(handler visualizer.EventHandler) (*visualizer.Controller, error) {
		return visualizer.NewController(visualizer.Config{
			Client:       client,
			ThinkDelay:   cfg.ThinkDelay,
			OutputDelay:  cfg.OutputDelay,
			Catalog:      cfg.Catalog,
			Scheduler:    cfg.Scheduler,
			Logger:       cfg.Logger,
			EventHandler: handler,
		})
	}

	// Surface bad delays now rather than on the first visit.
	probe, err := factory(nil)
	if err != nil {
		return nil, fmt.Errorf("configuring controller: %w", err)
	}
	probe.Close()

	s.sessions = NewSessionStore(cfg.MaxSessions, cfg.SessionTTL, factory, s.md, s.metrics.ObserveEvent)
	s.stopCleanup = s.sessions.StartCleanup(time.Minute)
	s.router = s.buildRouter()
	return s, nil
}

// ServeHTTP delegates to the chi router, satisfying http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Sessions returns the session store.
func (s *Server) Sessions() *SessionStore {
	return s.sessions
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		// Event streams only end when their session closes.
		s.Close()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("web shutdown", zap.Error(err))
		}
	})
	defer stop()

	s.logger.Info("web server listening", zap.String("addr", s.addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close stops session cleanup and closes every session.
func (s *Server) Close() {
	s.stopCleanup()
	s.sessions.CloseAll()
}

// buildRouter constructs the chi router with all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(webRequestLogger(s.logger, s.metrics))
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	staticFS, err := fs.Sub(StaticFS, "static")
	if err != nil {
		s.logger.Warn("failed to create static sub-FS", zap.Error(err))
	} else {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Post("/submit", s.handleSubmit)
		r.Post("/example", s.handleExample)
		r.Get("/events", s.handleEvents)
	})

	return r
}

// session returns the visitor's session, creating one and setting the
// cookie when the request carries none or an expired one.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*Session, error) {
	if c, err := r.Cookie(SessionCookie); err == nil {
		if sess, ok := s.sessions.Get(c.Value); ok {
			return sess, nil
		}
	}

	sess, err := s.sessions.Create()
	if err != nil {
		return nil, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sess.ID,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	s.logger.Info("session created", zap.String("session", sess.ID), zap.String("client_session_id", sess.Controller.SessionID()))
	return sess, nil
}

// handleIndex renders the visualizer page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(w, r)
	if err != nil {
		s.internalError(w, "creating session", err)
		return
	}

	data := PageData{
		Title:    visualizer.Title,
		Tagline:  visualizer.Tagline,
		State:    NewStateView(sess.Controller.Snapshot(), s.md),
		Examples: len(sess.Controller.Catalog()) > 0,
		MaxQuery: maxQueryLen,
	}
	if err := s.templates.Render(w, "index.html", data); err != nil {
		s.internalError(w, "rendering index", err)
	}
}

// handleHealth returns a JSON health check response.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleState returns the current state view.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(w, r)
	if err != nil {
		s.internalError(w, "creating session", err)
		return
	}
	writeJSON(w, http.StatusOK, NewStateView(sess.Controller.Snapshot(), s.md))
}

type submitRequest struct {
	Query string `json:"query"`
}

// handleSubmit starts a submission. It accepts a JSON body or a form post;
// the backend call continues after the response is written.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(w, r)
	if err != nil {
		s.internalError(w, "creating session", err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	query, err := readQuery(r)
	if err != nil {
		if isMaxBytesError(err) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	query = strings.TrimSpace(query)
	if query == "" {
		writeError(w, http.StatusBadRequest, "query must not be empty")
		return
	}
	if len([]rune(query)) > maxQueryLen {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("query exceeds %d characters", maxQueryLen))
		return
	}

	// The submission outlives this request; the controller cancels it on close.
	if _, ok := sess.Controller.Start(context.WithoutCancel(r.Context()), query); !ok {
		writeError(w, http.StatusConflict, "a submission is already in progress")
		return
	}

	if !wantsJSON(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"state": NewStateView(sess.Controller.Snapshot(), s.md),
	})
}

// handleExample fills the query field with a random example.
func (s *Server) handleExample(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(w, r)
	if err != nil {
		s.internalError(w, "creating session", err)
		return
	}

	query, ok := sess.Controller.PickExample()
	if !ok {
		writeError(w, http.StatusConflict, "no example available right now")
		return
	}

	if !wantsJSON(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query": query,
		"state": NewStateView(sess.Controller.Snapshot(), s.md),
	})
}

// handleEvents streams the session's controller events. The first message
// is the current state so late subscribers start from a full snapshot.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(w, r)
	if err != nil {
		s.internalError(w, "creating session", err)
		return
	}

	events, unsubscribe := sess.Hub.Subscribe()
	defer unsubscribe()

	// Set SSE headers.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	flusher, canFlush := w.(http.Flusher)
	flush := func() {
		if canFlush {
			flusher.Flush()
		}
	}

	fmt.Fprint(w, stateToSSE(sess.Controller.Snapshot(), s.md).Format())
	flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	// Stream events until the session closes or the client disconnects.
	for {
		select {
		case evt, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprint(w, evt.Format())
			flush()
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flush()
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) internalError(w http.ResponseWriter, msg string, err error) {
	s.logger.Error(msg, zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal server error")
}

// readQuery extracts the query from a JSON or form body.
func readQuery(r *http.Request) (string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req submitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return "", err
		}
		return req.Query, nil
	}
	if err := r.ParseForm(); err != nil {
		return "", err
	}
	return r.PostFormValue("query"), nil
}

// wantsJSON returns true if the request prefers JSON over HTML based on
// the Accept header. Defaults to JSON when no Accept header is set or when
// Accept contains */* (wildcard), to preserve backward compatibility with
// API clients.
func wantsJSON(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	if accept == "" {
		return true
	}
	if strings.Contains(accept, "text/html") {
		return false
	}
	return strings.Contains(accept, "application/json") || strings.Contains(accept, "*/*")
}

// isMaxBytesError reports whether err (or any error in its chain) is an
// *http.MaxBytesError, indicating the request body exceeded the size limit.
func isMaxBytesError(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
