package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/raysh454/eddy/internal/bridge"
	"github.com/raysh454/eddy/internal/diff"
	"github.com/raysh454/eddy/internal/dom"
	"github.com/raysh454/eddy/internal/engine"
	"github.com/raysh454/eddy/internal/logging"
	"github.com/raysh454/eddy/internal/metrics"
	"github.com/raysh454/eddy/internal/model"
	"github.com/raysh454/eddy/internal/store"
	"github.com/raysh454/eddy/internal/utils"
	"github.com/raysh454/eddy/internal/webclient"
)

// ErrNoWebClient is returned by Preview when no page fetcher is configured.
var ErrNoWebClient = errors.New("app: no web client configured")

// SessionManager owns the Eddy records and one engine per open Eddy.
// Engines are opened lazily on first use and render into a server-side
// document; scripts go to the configured bridge, or to that document when
// none is set.
type SessionManager struct {
	cfg     *Config
	store   store.EddyStore
	web     webclient.WebClient
	scripts bridge.Bridge
	logger  logging.Logger
	metrics *metrics.Metrics
	opts    []engine.Option

	mu   sync.Mutex
	open map[string]*session
}

type session struct {
	ready chan struct{}
	err   error
	doc   *dom.HTMLDocument
	eng   *engine.Engine
}

// NewSessionManager wires a manager. web and scripts may be nil.
func NewSessionManager(cfg *Config, st store.EddyStore, web webclient.WebClient, scripts bridge.Bridge, logger logging.Logger, opts ...engine.Option) *SessionManager {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &SessionManager{
		cfg:     cfg,
		store:   st,
		web:     web,
		scripts: scripts,
		logger:  logger.With(logging.Field{Key: "component", Value: "sessions"}),
		opts:    append([]engine.Option{engine.WithLogger(logger)}, opts...),
		open:    make(map[string]*session),
	}
}

// Create records a new Eddy for the page at rawURL, keyed by its domain.
func (m *SessionManager) Create(ctx context.Context, name, rawURL string) (*model.Eddy, error) {
	domain, err := utils.Domain(rawURL)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		name = domain
	}
	return m.store.Create(ctx, name, domain)
}

func (m *SessionManager) Get(ctx context.Context, id string) (*model.Eddy, error) {
	return m.store.Get(ctx, id)
}

// List returns the Eddies for the domain of filter, which may be a URL or a
// bare host. An empty filter lists everything.
func (m *SessionManager) List(ctx context.Context, filter string) ([]model.Eddy, error) {
	domain := ""
	if strings.TrimSpace(filter) != "" {
		d, err := utils.Domain(filter)
		if err != nil {
			return nil, err
		}
		domain = d
	}
	return m.store.ListByDomain(ctx, domain)
}

func (m *SessionManager) Rename(ctx context.Context, id, name string) (*model.Eddy, error) {
	return m.store.Rename(ctx, id, name)
}

// Delete clears what an open session rendered, closes its engine and
// removes the record with its history.
func (m *SessionManager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.open[id]
	m.mu.Unlock()
	if ok {
		err := s.wait(ctx)
		if err != nil && ctx.Err() != nil {
			return err
		}
		if err == nil {
			if err := s.eng.Close(ctx); err != nil {
				if errors.Is(err, engine.ErrBusy) {
					return err
				}
				m.logger.Warn("clearing deleted session", logging.Field{Key: "id", Value: id}, logging.Field{Key: "error", Value: err.Error()})
			}
		}
		m.mu.Lock()
		if m.open[id] == s {
			delete(m.open, id)
			if s.err == nil {
				m.metrics.SessionClosed()
			}
		}
		m.mu.Unlock()
	}
	return m.store.Delete(ctx, id)
}

func (s *session) wait(ctx context.Context) error {
	select {
	case <-s.ready:
		return s.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Open restores the session's saved history onto its document. Later calls
// return the same engine.
func (m *SessionManager) Open(ctx context.Context, id string) (*engine.Engine, error) {
	m.mu.Lock()
	if s, ok := m.open[id]; ok {
		m.mu.Unlock()
		if err := s.wait(ctx); err != nil {
			return nil, err
		}
		return s.eng, nil
	}
	s := &session{ready: make(chan struct{})}
	m.open[id] = s
	m.mu.Unlock()

	s.doc, s.eng, s.err = m.openSession(ctx, id)
	if s.err != nil {
		m.mu.Lock()
		delete(m.open, id)
		m.mu.Unlock()
	} else {
		m.metrics.SessionOpened()
	}
	close(s.ready)
	if s.err != nil {
		return nil, s.err
	}
	return s.eng, nil
}

func (m *SessionManager) openSession(ctx context.Context, id string) (*dom.HTMLDocument, *engine.Engine, error) {
	if _, err := m.store.Get(ctx, id); err != nil {
		return nil, nil, err
	}
	page := m.cfg.BlankPage
	if page == "" {
		page = defaultBlankPage
	}
	doc, err := dom.ParseHTML(page)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing blank page: %w", err)
	}
	var b bridge.Bridge = doc
	if m.scripts != nil {
		b = m.scripts
	}
	eng := engine.New(id, doc, b, m.store, m.cfg.Engine, m.opts...)
	out, err := eng.Restore(ctx)
	if err != nil {
		if !out.Changed {
			return nil, nil, err
		}
		m.logger.Warn("session restored with failures", logging.Field{Key: "id", Value: id}, logging.Field{Key: "error", Value: err.Error()})
	}
	m.logger.Info("session opened", logging.Field{Key: "id", Value: id}, logging.Field{Key: "cursor", Value: out.Cursor})
	return doc, eng, nil
}

// BeginApply issues an apply token for the session.
func (m *SessionManager) BeginApply(ctx context.Context, id string) (engine.Token, error) {
	eng, err := m.Open(ctx, id)
	if err != nil {
		return 0, err
	}
	return eng.BeginApply(), nil
}

// Apply commits mods under tok, or under a fresh token when tok is zero.
func (m *SessionManager) Apply(ctx context.Context, id string, tok engine.Token, mods []model.Modification, userQuery string) (engine.Outcome, error) {
	eng, err := m.Open(ctx, id)
	if err != nil {
		return engine.Outcome{}, err
	}
	start := time.Now()
	var out engine.Outcome
	if tok == 0 {
		out, err = eng.Apply(ctx, mods, userQuery)
	} else {
		out, err = eng.CommitApply(ctx, tok, mods, userQuery)
	}
	m.metrics.Observe("apply", start, out, err)
	return out, err
}

func (m *SessionManager) Undo(ctx context.Context, id string) (engine.Outcome, error) {
	return m.with(ctx, id, "undo", (*engine.Engine).Undo)
}

func (m *SessionManager) Redo(ctx context.Context, id string) (engine.Outcome, error) {
	return m.with(ctx, id, "redo", (*engine.Engine).Redo)
}

func (m *SessionManager) Reset(ctx context.Context, id string) (engine.Outcome, error) {
	return m.with(ctx, id, "reset", (*engine.Engine).Reset)
}

func (m *SessionManager) Restore(ctx context.Context, id string) (engine.Outcome, error) {
	return m.with(ctx, id, "restore", (*engine.Engine).Restore)
}

func (m *SessionManager) with(ctx context.Context, id, name string, op func(*engine.Engine, context.Context) (engine.Outcome, error)) (engine.Outcome, error) {
	eng, err := m.Open(ctx, id)
	if err != nil {
		return engine.Outcome{}, err
	}
	start := time.Now()
	out, err := op(eng, ctx)
	m.metrics.Observe(name, start, out, err)
	return out, err
}

func (m *SessionManager) History(ctx context.Context, id string) (engine.HistoryView, error) {
	eng, err := m.Open(ctx, id)
	if err != nil {
		return engine.HistoryView{}, err
	}
	return eng.History(), nil
}

func (m *SessionManager) Effective(ctx context.Context, id string) (model.Snapshot, error) {
	eng, err := m.Open(ctx, id)
	if err != nil {
		return model.Snapshot{}, err
	}
	return eng.Effective(), nil
}

func (m *SessionManager) Diff(ctx context.Context, id string, from, to int) (diff.Result, error) {
	eng, err := m.Open(ctx, id)
	if err != nil {
		return diff.Result{}, err
	}
	return eng.Diff(from, to)
}

// Document returns the server-side document of an open session.
func (m *SessionManager) Document(ctx context.Context, id string) (*dom.HTMLDocument, error) {
	if _, err := m.Open(ctx, id); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.open[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, store.ErrNotFound)
	}
	return s.doc, nil
}

// Preview fetches rawURL, or the session's domain root when empty, and
// returns its HTML with the effective snapshot rendered into it. Scripts
// run against the fetched document only.
func (m *SessionManager) Preview(ctx context.Context, id, rawURL string) (string, error) {
	if m.web == nil {
		return "", ErrNoWebClient
	}
	e, err := m.store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	eff, err := m.Effective(ctx, id)
	if err != nil {
		return "", err
	}
	target, err := PageURL(e, rawURL)
	if err != nil {
		return "", err
	}
	body, err := webclient.FetchHTML(ctx, m.web, target)
	if err != nil {
		return "", err
	}
	doc, err := dom.ParseHTML(body)
	if err != nil {
		return "", fmt.Errorf("parsing %s: %w", target, err)
	}
	recon := dom.NewReconciler(doc, doc, m.cfg.Engine.TabID, m.logger)
	failures, err := recon.ApplyToDOM(ctx, eff)
	if err != nil {
		return "", err
	}
	for _, f := range failures {
		m.logger.Warn("preview script failed", logging.Field{Key: "script_id", Value: f.ScriptID}, logging.Field{Key: "error", Value: f.Message})
	}
	return doc.HTML()
}

// PageURL resolves the page to render a session onto: rawURL when given,
// otherwise the root of the session's domain.
func PageURL(e *model.Eddy, rawURL string) (string, error) {
	if strings.TrimSpace(rawURL) == "" {
		rawURL = "https://" + e.Domain + "/"
	}
	return utils.Canonicalize(rawURL)
}

// Close clears every open session from its document. History stays saved.
func (m *SessionManager) Close(ctx context.Context) error {
	m.mu.Lock()
	open := m.open
	m.open = make(map[string]*session)
	m.mu.Unlock()

	var errs []error
	for id, s := range open {
		if err := s.wait(ctx); err != nil {
			continue
		}
		m.metrics.SessionClosed()
		if err := s.eng.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("closing session %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}
