package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/raysh454/eddy/internal/logging"
	"github.com/raysh454/eddy/internal/model"
	"github.com/raysh454/eddy/internal/utils"
)

// FSStore keeps one JSON file per record:
//
//	root/
//	  eddies/<id>.json        # record without history
//	  histories/<key>.json    # HistoryState
type FSStore struct {
	root   string
	logger logging.Logger
	opts   options
	mu     sync.Mutex
}

var _ EddyStore = (*FSStore)(nil)

// eddyRecord is the on-disk record; the history lives in its own file.
type eddyRecord struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Domain    string `json:"domain"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

func NewFSStore(root string, logger logging.Logger, opts ...Option) (*FSStore, error) {
	if root == "" {
		return nil, fmt.Errorf("store: fs backend needs a root directory")
	}
	if logger == nil {
		logger = logging.NopLogger{}
	}
	root = filepath.Clean(root)
	for _, dir := range []string{"eddies", "histories"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return nil, fmt.Errorf("create %s dir: %w", dir, err)
		}
	}
	return &FSStore{
		root:   root,
		logger: logger.With(logging.Field{Key: "component", Value: "fs-store"}),
		opts:   buildOptions(opts),
	}, nil
}

func (s *FSStore) path(kind, key string) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}
	if !utils.SafeName(key) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(s.root, kind, key+".json"), nil
}

func readJSON(path string, v any) (bool, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return true, nil
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return utils.AtomicWriteFile(path, b, 0o644)
}

func (s *FSStore) Load(ctx context.Context, key string) (*model.HistoryState, error) {
	p, err := s.path("histories", key)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(p)
}

func (s *FSStore) loadLocked(p string) (*model.HistoryState, error) {
	b, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	return decodeState(b)
}

func (s *FSStore) Save(ctx context.Context, key string, state model.HistoryState) error {
	hp, err := s.path("histories", key)
	if err != nil {
		return err
	}
	raw, err := encodeState(state)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := utils.AtomicWriteFile(hp, raw, 0o644); err != nil {
		return fmt.Errorf("save history %s: %w", key, err)
	}

	ep, _ := s.path("eddies", key)
	var rec eddyRecord
	ok, err := readJSON(ep, &rec)
	if err != nil {
		return fmt.Errorf("touch eddy %s: %w", key, err)
	}
	if ok {
		rec.UpdatedAt = s.opts.now().UnixMilli()
		if err := writeJSON(ep, rec); err != nil {
			return fmt.Errorf("touch eddy %s: %w", key, err)
		}
	}
	return nil
}

func (s *FSStore) Create(ctx context.Context, name, domain string) (*model.Eddy, error) {
	now := s.opts.now().UnixMilli()
	rec := eddyRecord{ID: s.opts.newID(), Name: name, Domain: domain, CreatedAt: now, UpdatedAt: now}
	p, err := s.path("eddies", rec.ID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeJSON(p, rec); err != nil {
		return nil, fmt.Errorf("write eddy: %w", err)
	}
	s.logger.Info("eddy created",
		logging.Field{Key: "id", Value: rec.ID},
		logging.Field{Key: "domain", Value: rec.Domain})
	return s.toEddy(rec, nil), nil
}

func (s *FSStore) toEddy(rec eddyRecord, st *model.HistoryState) *model.Eddy {
	e := &model.Eddy{
		ID:        rec.ID,
		Name:      rec.Name,
		Domain:    rec.Domain,
		History:   model.NewHistoryState(),
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
	if st != nil {
		e.History = *st
	}
	return e
}

func (s *FSStore) getLocked(id string) (*model.Eddy, eddyRecord, error) {
	var rec eddyRecord
	ep, err := s.path("eddies", id)
	if err != nil {
		return nil, rec, err
	}
	ok, err := readJSON(ep, &rec)
	if err != nil {
		return nil, rec, err
	}
	if !ok {
		return nil, rec, fmt.Errorf("eddy %s: %w", id, ErrNotFound)
	}
	hp, _ := s.path("histories", id)
	st, err := s.loadLocked(hp)
	if err != nil {
		return nil, rec, err
	}
	return s.toEddy(rec, st), rec, nil
}

func (s *FSStore) Get(ctx context.Context, id string) (*model.Eddy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, _, err := s.getLocked(id)
	return e, err
}

func (s *FSStore) ListByDomain(ctx context.Context, domain string) ([]model.Eddy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := os.ReadDir(filepath.Join(s.root, "eddies"))
	if err != nil {
		return nil, fmt.Errorf("list eddies: %w", err)
	}
	out := []model.Eddy{}
	for _, ent := range entries {
		name := ent.Name()
		if ent.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
			continue
		}
		e, _, err := s.getLocked(strings.TrimSuffix(name, ".json"))
		if err != nil {
			return nil, err
		}
		if domain == "" || e.Domain == domain {
			out = append(out, *e)
		}
	}
	sortEddies(out)
	return out, nil
}

func (s *FSStore) Rename(ctx context.Context, id, name string) (*model.Eddy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, rec, err := s.getLocked(id)
	if err != nil {
		return nil, err
	}
	rec.Name = name
	rec.UpdatedAt = s.opts.now().UnixMilli()
	ep, _ := s.path("eddies", id)
	if err := writeJSON(ep, rec); err != nil {
		return nil, fmt.Errorf("rename eddy %s: %w", id, err)
	}
	e.Name, e.UpdatedAt = rec.Name, rec.UpdatedAt
	return e, nil
}

func (s *FSStore) Delete(ctx context.Context, id string) error {
	ep, err := s.path("eddies", id)
	if err != nil {
		return err
	}
	hp, _ := s.path("histories", id)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(ep); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("eddy %s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("delete eddy %s: %w", id, err)
	}
	if err := os.Remove(hp); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete history %s: %w", id, err)
	}
	s.logger.Info("eddy deleted", logging.Field{Key: "id", Value: id})
	return nil
}

func (s *FSStore) Close() error { return nil }

// sortEddies orders most recently updated first, then newest, then by id.
func sortEddies(es []model.Eddy) {
	sort.SliceStable(es, func(i, j int) bool {
		if es[i].UpdatedAt != es[j].UpdatedAt {
			return es[i].UpdatedAt > es[j].UpdatedAt
		}
		if es[i].CreatedAt != es[j].CreatedAt {
			return es[i].CreatedAt > es[j].CreatedAt
		}
		return es[i].ID < es[j].ID
	})
}
