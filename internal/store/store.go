// Package store persists session histories and the Eddy records that own
// them. A HistoryState is stored as its JSON encoding so that load(save(x))
// is exactly x.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/raysh454/eddy/internal/logging"
	"github.com/raysh454/eddy/internal/model"
)

var (
	ErrNotFound   = errors.New("store: not found")
	ErrInvalidKey = errors.New("store: invalid session key")
)

// Adapter is what the engine needs: history by session key. Load returns
// (nil, nil) when nothing was saved under key.
type Adapter interface {
	Load(ctx context.Context, key string) (*model.HistoryState, error)
	Save(ctx context.Context, key string, state model.HistoryState) error
}

// EddyStore adds session records on top of Adapter. An Eddy's id is its
// session key.
type EddyStore interface {
	Adapter

	Create(ctx context.Context, name, domain string) (*model.Eddy, error)
	Get(ctx context.Context, id string) (*model.Eddy, error)
	// ListByDomain returns records for domain, most recently updated first.
	// An empty domain lists everything.
	ListByDomain(ctx context.Context, domain string) ([]model.Eddy, error)
	Rename(ctx context.Context, id, name string) (*model.Eddy, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// Option customises a backend.
type Option func(*options)

type options struct {
	now   func() time.Time
	newID func() string
}

// WithClock overrides the time source for createdAt/updatedAt.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithIDGenerator overrides Eddy id generation.
func WithIDGenerator(gen func() string) Option {
	return func(o *options) { o.newID = gen }
}

func newEddyID() string { return uuid.NewString() }

func buildOptions(opts []Option) options {
	o := options{now: time.Now, newID: newEddyID}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New opens the backend named by cfg.
func New(cfg Config, logger logging.Logger, opts ...Option) (EddyStore, error) {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	switch strings.ToLower(strings.TrimSpace(string(cfg.Backend))) {
	case "", string(BackendSQLite):
		return NewSQLiteStore(cfg.sqlitePath(), logger, opts...)
	case string(BackendFS):
		return NewFSStore(cfg.Root, logger, opts...)
	case string(BackendMemory):
		return NewMemoryStore(logger, opts...), nil
	default:
		return nil, fmt.Errorf("store: unknown backend %q", cfg.Backend)
	}
}

func encodeState(state model.HistoryState) ([]byte, error) {
	if err := state.Validate(); err != nil {
		return nil, err
	}
	b, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("encode history: %w", err)
	}
	return b, nil
}

func decodeState(b []byte) (*model.HistoryState, error) {
	var st model.HistoryState
	if err := json.Unmarshal(b, &st); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	if err := st.Validate(); err != nil {
		return nil, err
	}
	return &st, nil
}

func checkKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	return nil
}
