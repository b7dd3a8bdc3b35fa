// Package server exposes edit sessions over HTTP: session records, history
// mutations, renders and the websocket endpoint the extension background
// uses as its script bridge.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/raysh454/eddy/internal/bridge"
	"github.com/raysh454/eddy/internal/diff"
	"github.com/raysh454/eddy/internal/engine"
	"github.com/raysh454/eddy/internal/logging"
	"github.com/raysh454/eddy/internal/model"
	"github.com/raysh454/eddy/internal/store"
	"github.com/raysh454/eddy/internal/utils"
	"github.com/raysh454/eddy/internal/webclient"
)

// Sessions is the session surface the API serves.
type Sessions interface {
	Create(ctx context.Context, name, rawURL string) (*model.Eddy, error)
	Get(ctx context.Context, id string) (*model.Eddy, error)
	List(ctx context.Context, domain string) ([]model.Eddy, error)
	Rename(ctx context.Context, id, name string) (*model.Eddy, error)
	Delete(ctx context.Context, id string) error

	BeginApply(ctx context.Context, id string) (engine.Token, error)
	// Apply commits mods; a zero token means "issue one now".
	Apply(ctx context.Context, id string, tok engine.Token, mods []model.Modification, userQuery string) (engine.Outcome, error)
	Undo(ctx context.Context, id string) (engine.Outcome, error)
	Redo(ctx context.Context, id string) (engine.Outcome, error)
	Reset(ctx context.Context, id string) (engine.Outcome, error)
	Restore(ctx context.Context, id string) (engine.Outcome, error)

	History(ctx context.Context, id string) (engine.HistoryView, error)
	Effective(ctx context.Context, id string) (model.Snapshot, error)
	Diff(ctx context.Context, id string, from, to int) (diff.Result, error)
	Preview(ctx context.Context, id, rawURL string) (string, error)
}

// Server is the HTTP + WebSocket API surface for Eddy.
type Server struct {
	cfg      Config
	sessions Sessions
	bridge   http.Handler
	metrics  http.Handler
	router   chi.Router
	logger   logging.Logger
}

// Option customises a Server.
type Option func(*Server)

// WithBridge serves h on /ws/bridge, where the extension background
// registers as the script bridge.
func WithBridge(h http.Handler) Option {
	return func(s *Server) { s.bridge = h }
}

// WithMetrics serves h on /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// New builds a Server over sessions.
func New(cfg Config, sessions Sessions, logger logging.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	s := &Server{
		cfg:      cfg,
		sessions: sessions,
		router:   chi.NewRouter(),
		logger:   logger.With(logging.Field{Key: "component", Value: "server"}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	r.Use(s.corsMiddleware)

	r.Options("/sessions", s.optionsHandler("GET, POST"))
	r.Options("/sessions/{id}", s.optionsHandler("GET, PATCH, DELETE"))
	r.Options("/sessions/{id}/*", s.optionsHandler("GET, POST"))

	r.Post("/sessions", s.handleCreateSession)
	r.Get("/sessions", s.handleListSessions)
	r.Get("/sessions/{id}", s.handleGetSession)
	r.Patch("/sessions/{id}", s.handleRenameSession)
	r.Delete("/sessions/{id}", s.handleDeleteSession)

	r.Post("/sessions/{id}/apply-token", s.handleBeginApply)
	r.Post("/sessions/{id}/apply", s.handleApply)
	r.Post("/sessions/{id}/undo", s.mutation(s.sessions.Undo))
	r.Post("/sessions/{id}/redo", s.mutation(s.sessions.Redo))
	r.Post("/sessions/{id}/reset", s.mutation(s.sessions.Reset))
	r.Post("/sessions/{id}/restore", s.mutation(s.sessions.Restore))

	r.Get("/sessions/{id}/history", s.handleHistory)
	r.Get("/sessions/{id}/effective", s.handleEffective)
	r.Get("/sessions/{id}/css", s.handleCSS)
	r.Get("/sessions/{id}/preview", s.handlePreview)
	r.Get("/sessions/{id}/diff", s.handleDiff)

	r.Get("/ws/bridge", s.handleBridgeWS)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	r.Get("/swagger/*", swaggerHandler)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		next.ServeHTTP(w, r)
	})
}

func (s *Server) optionsHandler(methods string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fields := []logging.Field{
		{Key: "method", Value: r.Method},
		{Key: "path", Value: r.URL.Path},
	}
	if q := r.URL.Query(); len(q) > 0 {
		fields = append(fields, logging.Field{Key: "query", Value: q})
	}
	if s.cfg.LogBodies && r.Body != nil && (r.Method == http.MethodPost || r.Method == http.MethodPatch) {
		if bodyBytes, err := io.ReadAll(r.Body); err == nil {
			fields = append(fields, logging.Field{Key: "body", Value: string(bodyBytes)})
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}
	}
	s.logger.Info("http_request", fields...)

	s.router.ServeHTTP(w, r)
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:        s.cfg.ListenAddr,
		Handler:     s,
		ReadTimeout: s.cfg.readTimeout(),
		// scripts and previews can take as long as the page does
		WriteTimeout: 0,
	}
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, engine.ErrClosed):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInvalidModification),
		errors.Is(err, model.ErrInvalidHistory),
		errors.Is(err, engine.ErrCursorRange),
		errors.Is(err, store.ErrInvalidKey),
		errors.Is(err, utils.ErrEmptyURL),
		errors.Is(err, utils.ErrMissingHost):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrBusy), errors.Is(err, engine.ErrStaleApply):
		return http.StatusConflict
	case errors.Is(err, webclient.ErrUnexpectedStatus):
		return http.StatusBadGateway
	case errors.Is(err, bridge.ErrNoClient):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, msg string, err error) {
	s.logger.Warn(msg, logging.Field{Key: "error", Value: err.Error()})
	writeError(w, statusFor(err), err.Error())
}
