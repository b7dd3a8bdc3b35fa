// Package engine owns one edit session: its history, what is rendered on
// the page, and the persistence of both. An Engine replaces any notion of a
// process-wide engine; callers hold one per page context.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/raysh454/eddy/internal/bridge"
	"github.com/raysh454/eddy/internal/diff"
	"github.com/raysh454/eddy/internal/dom"
	"github.com/raysh454/eddy/internal/history"
	"github.com/raysh454/eddy/internal/logging"
	"github.com/raysh454/eddy/internal/model"
	"github.com/raysh454/eddy/internal/snapshot"
	"github.com/raysh454/eddy/internal/store"
)

var (
	// ErrBusy is returned when a mutation is attempted while another one is
	// still in flight.
	ErrBusy = errors.New("engine: another operation is in progress")

	// ErrStaleApply is returned by CommitApply when a newer apply was begun.
	ErrStaleApply = errors.New("engine: apply superseded by a newer one")

	// ErrPersist wraps adapter failures. The in-memory history is kept.
	ErrPersist = errors.New("engine: persist history")

	// ErrCursorRange is returned by Diff for positions outside the history.
	ErrCursorRange = errors.New("engine: cursor out of range")

	// ErrClosed is returned by every mutation once the engine is closed.
	ErrClosed = errors.New("engine: session closed")
)

// ScriptFailure is a script the bridge could not run, reported per mutation.
type ScriptFailure = dom.ScriptFailure

// Token identifies one logical apply. Only the most recently issued token
// can be committed.
type Token uint64

// Outcome describes a mutation. It is meaningful even when the operation
// also returned an error: history may have advanced while a script or a
// save failed.
type Outcome struct {
	Changed        bool            `json:"changed"`
	Cursor         int             `json:"cursor"`
	Layer          *model.Snapshot `json:"layer,omitempty"`
	Effective      model.Snapshot  `json:"effective"`
	ScriptFailures []ScriptFailure `json:"scriptFailures,omitempty"`
}

// Config is the per-session engine configuration.
type Config struct {
	History history.Config `json:"history" yaml:"history"`
	TabID   int            `json:"tab_id,omitempty" yaml:"tab_id"`
}

// Option customises an Engine.
type Option func(*Engine)

// WithBuilder replaces the default snapshot builder.
func WithBuilder(b *snapshot.Builder) Option {
	return func(e *Engine) { e.builder = b }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// Engine is the edit state of one session: its history, what it rendered
// and the page it renders onto.
type Engine struct {
	key     string
	builder *snapshot.Builder
	recon   *dom.Reconciler
	adapter store.Adapter
	logger  logging.Logger

	// opMu is held for a whole mutation, bridge and adapter awaits included.
	opMu       sync.Mutex
	processing atomic.Bool
	closed     bool // guarded by opMu
	token      atomic.Uint64

	// stateMu guards hist and rendered for short critical sections so reads
	// are not blocked behind a slow script.
	stateMu  sync.RWMutex
	hist     *history.Store
	rendered model.Snapshot
}

// New creates an engine for session key rendering on doc. adapter may be nil
// for a session that is never persisted.
func New(key string, doc dom.Document, b bridge.Bridge, adapter store.Adapter, cfg Config, opts ...Option) *Engine {
	e := &Engine{
		key:      key,
		adapter:  adapter,
		logger:   logging.NopLogger{},
		hist:     history.New(cfg.History),
		rendered: model.EmptySnapshot(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.builder == nil {
		e.builder = snapshot.NewBuilder()
	}
	e.logger = e.logger.With(
		logging.Field{Key: "component", Value: "engine"},
		logging.Field{Key: "session", Value: key})
	e.recon = dom.NewReconciler(doc, b, cfg.TabID, e.logger)
	return e
}

// Key returns the session key.
func (e *Engine) Key() string { return e.key }

// IsProcessing reports whether a mutation is in flight.
func (e *Engine) IsProcessing() bool { return e.processing.Load() }

func (e *Engine) begin() (func(), error) {
	if !e.opMu.TryLock() {
		return nil, ErrBusy
	}
	if e.closed {
		e.opMu.Unlock()
		return nil, ErrClosed
	}
	e.processing.Store(true)
	return func() {
		e.processing.Store(false)
		e.opMu.Unlock()
	}, nil
}

// BeginApply issues a new apply token, superseding every earlier one.
func (e *Engine) BeginApply() Token { return Token(e.token.Add(1)) }

// Apply builds a layer from mods and commits it at once.
func (e *Engine) Apply(ctx context.Context, mods []model.Modification, userQuery string) (Outcome, error) {
	return e.CommitApply(ctx, e.BeginApply(), mods, userQuery)
}

// CommitApply pushes a layer built from mods, renders the new effective
// snapshot and saves. A malformed batch or a stale token leaves everything
// untouched.
func (e *Engine) CommitApply(ctx context.Context, tok Token, mods []model.Modification, userQuery string) (Outcome, error) {
	done, err := e.begin()
	if err != nil {
		return e.outcome(false), err
	}
	defer done()

	if uint64(tok) != e.token.Load() {
		e.logger.Info("discarding stale apply", logging.Field{Key: "token", Value: uint64(tok)})
		return e.outcome(false), ErrStaleApply
	}
	layer, err := e.builder.Build(mods, userQuery)
	if err != nil {
		return e.outcome(false), err
	}

	e.stateMu.Lock()
	e.hist.Push(layer)
	e.stateMu.Unlock()
	e.logger.Info("layer committed",
		logging.Field{Key: "snapshot_id", Value: layer.ID},
		logging.Field{Key: "elements", Value: len(layer.Elements)},
		logging.Field{Key: "scripts", Value: len(layer.Scripts)})

	out, err := e.settle(ctx, true)
	out.Layer = &layer
	return out, err
}

// Undo moves the cursor back one layer. At the start of history it returns
// Changed=false and a nil error.
func (e *Engine) Undo(ctx context.Context) (Outcome, error) {
	return e.move(ctx, -1)
}

// Redo moves the cursor forward one layer.
func (e *Engine) Redo(ctx context.Context) (Outcome, error) {
	return e.move(ctx, +1)
}

func (e *Engine) move(ctx context.Context, delta int) (Outcome, error) {
	done, err := e.begin()
	if err != nil {
		return e.outcome(false), err
	}
	defer done()

	e.stateMu.Lock()
	moved, err := e.hist.MoveCursor(delta)
	cursor := e.hist.Cursor()
	e.stateMu.Unlock()
	if err != nil || !moved {
		return e.outcome(false), err
	}
	e.logger.Debug("cursor moved",
		logging.Field{Key: "delta", Value: delta},
		logging.Field{Key: "cursor", Value: cursor})
	return e.settle(ctx, true)
}

// Reset unapplies every layer while keeping history, so Redo can bring them
// back.
func (e *Engine) Reset(ctx context.Context) (Outcome, error) {
	done, err := e.begin()
	if err != nil {
		return e.outcome(false), err
	}
	defer done()

	e.stateMu.Lock()
	changed := e.hist.Cursor() != model.NoSnapshot
	e.hist.Reset()
	e.stateMu.Unlock()
	if !changed {
		return e.outcome(false), nil
	}
	e.logger.Debug("history reset")
	return e.settle(ctx, true)
}

// Restore loads the session's history from the adapter and renders it. A
// session with nothing saved restores to an empty history.
func (e *Engine) Restore(ctx context.Context) (Outcome, error) {
	if e.adapter == nil {
		return e.RestoreState(ctx, model.NewHistoryState())
	}
	st, err := e.adapter.Load(ctx, e.key)
	if err != nil {
		return e.outcome(false), fmt.Errorf("%w: load: %w", ErrPersist, err)
	}
	if st == nil {
		fresh := model.NewHistoryState()
		st = &fresh
	}
	return e.RestoreState(ctx, *st)
}

// RestoreState replaces history with state and renders it. Nothing is saved.
func (e *Engine) RestoreState(ctx context.Context, state model.HistoryState) (Outcome, error) {
	done, err := e.begin()
	if err != nil {
		return e.outcome(false), err
	}
	defer done()

	e.stateMu.Lock()
	err = e.hist.Restore(state)
	e.stateMu.Unlock()
	if err != nil {
		return e.outcome(false), err
	}
	e.logger.Info("history restored",
		logging.Field{Key: "layers", Value: len(state.SnapshotArray)},
		logging.Field{Key: "cursor", Value: state.CurrentSnapshotID})
	return e.settle(ctx, false)
}

// Close removes everything the session rendered and refuses later
// mutations. History is untouched. Closing twice is a no-op.
func (e *Engine) Close(ctx context.Context) error {
	done, err := e.begin()
	if errors.Is(err, ErrClosed) {
		return nil
	}
	if err != nil {
		return err
	}
	defer done()
	e.closed = true

	e.stateMu.RLock()
	prev := e.rendered
	e.stateMu.RUnlock()
	err = e.recon.ClearFromDOM(ctx, prev)

	e.stateMu.Lock()
	e.rendered = model.EmptySnapshot()
	e.stateMu.Unlock()
	return err
}

// settle clears what is rendered, renders the current effective snapshot
// and optionally saves. Every failure is reported; none rolls history back.
func (e *Engine) settle(ctx context.Context, save bool) (Outcome, error) {
	e.stateMu.RLock()
	prev := e.rendered
	state := e.hist.State()
	e.stateMu.RUnlock()
	next := snapshot.Reduce(state)

	var errs []error
	if err := e.recon.ClearFromDOM(ctx, prev); err != nil {
		errs = append(errs, fmt.Errorf("clear rendered snapshot: %w", err))
	}
	failures, err := e.recon.ApplyToDOM(ctx, next)
	if err != nil {
		errs = append(errs, fmt.Errorf("apply effective snapshot: %w", err))
	}
	// record the attempt even on partial failure so the next clear removes
	// whatever did make it onto the page
	e.stateMu.Lock()
	e.rendered = next
	e.stateMu.Unlock()

	if len(failures) > 0 {
		ids := make([]string, 0, len(failures))
		for _, f := range failures {
			ids = append(ids, f.ScriptID)
		}
		errs = append(errs, fmt.Errorf("%w: %s", bridge.ErrScriptFailed, strings.Join(ids, ", ")))
	}

	if save && e.adapter != nil {
		if err := e.adapter.Save(ctx, e.key, state); err != nil {
			e.logger.Warn("saving history failed", logging.Field{Key: "error", Value: err.Error()})
			errs = append(errs, fmt.Errorf("%w: %w", ErrPersist, err))
		}
	}

	out := e.outcome(true)
	out.Effective = next
	out.ScriptFailures = failures
	return out, errors.Join(errs...)
}

func (e *Engine) outcome(changed bool) Outcome {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return Outcome{Changed: changed, Cursor: e.hist.Cursor(), Effective: e.rendered.Clone()}
}

// State returns a copy of the session's history.
func (e *Engine) State() model.HistoryState {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.hist.State()
}

// Effective returns the effective snapshot for the current cursor.
func (e *Engine) Effective() model.Snapshot {
	return snapshot.Reduce(e.State())
}

// Rendered returns what the engine last put on the page.
func (e *Engine) Rendered() model.Snapshot {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.rendered.Clone()
}

// Entries lists the layers in history.
func (e *Engine) Entries() []history.Entry {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.hist.Entries()
}

// HistoryView is a read-only summary of a session's history.
type HistoryView struct {
	Cursor  int             `json:"cursor"`
	CanUndo bool            `json:"canUndo"`
	CanRedo bool            `json:"canRedo"`
	Entries []history.Entry `json:"entries"`
}

// History summarises the session's history under one lock.
func (e *Engine) History() HistoryView {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return HistoryView{
		Cursor:  e.hist.Cursor(),
		CanUndo: e.hist.CanUndo(),
		CanRedo: e.hist.CanRedo(),
		Entries: e.hist.Entries(),
	}
}

func (e *Engine) CanUndo() bool {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.hist.CanUndo()
}

func (e *Engine) CanRedo() bool {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.hist.CanRedo()
}

// Diff compares the effective snapshots at two cursor positions, each in
// [-1, len-1].
func (e *Engine) Diff(from, to int) (diff.Result, error) {
	state := e.State()
	last := len(state.SnapshotArray) - 1
	for _, c := range []int{from, to} {
		if c < model.NoSnapshot || c > last {
			return diff.Result{}, fmt.Errorf("%w: %d not in [-1, %d]", ErrCursorRange, c, last)
		}
	}
	at := func(c int) model.Snapshot {
		return snapshot.Reduce(model.HistoryState{SnapshotArray: state.SnapshotArray, CurrentSnapshotID: c})
	}
	return diff.Snapshots(at(from), at(to)), nil
}
