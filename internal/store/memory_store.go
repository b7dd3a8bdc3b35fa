package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/raysh454/eddy/internal/logging"
	"github.com/raysh454/eddy/internal/model"
)

// MemoryStore keeps everything in process. Histories are held in their
// encoded form so callers never share memory with the store.
type MemoryStore struct {
	mu        sync.RWMutex
	eddies    map[string]eddyRecord
	histories map[string][]byte
	logger    logging.Logger
	opts      options
}

var _ EddyStore = (*MemoryStore)(nil)

func NewMemoryStore(logger logging.Logger, opts ...Option) *MemoryStore {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &MemoryStore{
		eddies:    make(map[string]eddyRecord),
		histories: make(map[string][]byte),
		logger:    logger.With(logging.Field{Key: "component", Value: "memory-store"}),
		opts:      buildOptions(opts),
	}
}

func (s *MemoryStore) Load(ctx context.Context, key string) (*model.HistoryState, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	s.mu.RLock()
	raw, ok := s.histories[key]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return decodeState(raw)
}

func (s *MemoryStore) Save(ctx context.Context, key string, state model.HistoryState) error {
	if err := checkKey(key); err != nil {
		return err
	}
	raw, err := encodeState(state)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.histories[key] = raw
	if rec, ok := s.eddies[key]; ok {
		rec.UpdatedAt = s.opts.now().UnixMilli()
		s.eddies[key] = rec
	}
	return nil
}

func (s *MemoryStore) Create(ctx context.Context, name, domain string) (*model.Eddy, error) {
	now := s.opts.now().UnixMilli()
	rec := eddyRecord{ID: s.opts.newID(), Name: name, Domain: domain, CreatedAt: now, UpdatedAt: now}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eddies[rec.ID] = rec
	return s.toEddy(rec)
}

func (s *MemoryStore) toEddy(rec eddyRecord) (*model.Eddy, error) {
	e := &model.Eddy{
		ID:        rec.ID,
		Name:      rec.Name,
		Domain:    rec.Domain,
		History:   model.NewHistoryState(),
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
	if raw, ok := s.histories[rec.ID]; ok {
		st, err := decodeState(raw)
		if err != nil {
			return nil, err
		}
		e.History = *st
	}
	return e, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*model.Eddy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.eddies[id]
	if !ok {
		return nil, fmt.Errorf("eddy %s: %w", id, ErrNotFound)
	}
	return s.toEddy(rec)
}

func (s *MemoryStore) ListByDomain(ctx context.Context, domain string) ([]model.Eddy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Eddy{}
	for _, rec := range s.eddies {
		if domain != "" && rec.Domain != domain {
			continue
		}
		e, err := s.toEddy(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	sortEddies(out)
	return out, nil
}

func (s *MemoryStore) Rename(ctx context.Context, id, name string) (*model.Eddy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.eddies[id]
	if !ok {
		return nil, fmt.Errorf("eddy %s: %w", id, ErrNotFound)
	}
	rec.Name = name
	rec.UpdatedAt = s.opts.now().UnixMilli()
	s.eddies[id] = rec
	return s.toEddy(rec)
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.eddies[id]; !ok {
		return fmt.Errorf("eddy %s: %w", id, ErrNotFound)
	}
	delete(s.eddies, id)
	delete(s.histories, id)
	return nil
}

func (s *MemoryStore) Close() error { return nil }
