package store_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/raysh454/eddy/internal/history"
	"github.com/raysh454/eddy/internal/model"
	"github.com/raysh454/eddy/internal/snapshot"
	"github.com/raysh454/eddy/internal/store"
)

// tickingClock returns a clock advancing one millisecond per call.
func tickingClock() func() time.Time {
	var mu sync.Mutex
	t := time.UnixMilli(1_700_000_000_000)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Millisecond)
		return t
	}
}

func backends(t *testing.T) map[string]store.EddyStore {
	t.Helper()
	opts := []store.Option{store.WithClock(tickingClock())}

	sqlite, err := store.NewSQLiteStore(":memory:", nil, opts...)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	fsStore, err := store.NewFSStore(t.TempDir(), nil, opts...)
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	out := map[string]store.EddyStore{
		"sqlite": sqlite,
		"fs":     fsStore,
		"memory": store.NewMemoryStore(nil, opts...),
	}
	t.Cleanup(func() {
		for _, s := range out {
			_ = s.Close()
		}
	})
	return out
}

// reachableState applies, undoes and re-applies so the state has a redo-free
// branch, a script with placeholders and a cursor below the top.
func reachableState(t *testing.T) model.HistoryState {
	t.Helper()
	b := snapshot.NewBuilder()
	h := history.New(history.Config{})
	batches := [][]model.Modification{
		{model.StyleModification("body", "color", "red"), model.StyleModification("body", "margin", "0")},
		{model.ScriptModification(`document.title = "x"`)},
		{model.StyleModification("h1", "font-size", "2em"), model.ScriptModification("fill(PH)", "PH")},
		{},
	}
	for i, mods := range batches {
		s, err := b.Build(mods, fmt.Sprintf("query %d", i))
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		h.Push(s)
	}
	h.Undo()
	return h.State()
}

func TestStore_SaveLoadRoundTripIsIdentity(t *testing.T) {
	t.Parallel()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			want := reachableState(t)
			if err := s.Save(ctx, "session-1", want); err != nil {
				t.Fatalf("Save: %v", err)
			}
			got, err := s.Load(ctx, "session-1")
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if got == nil || !reflect.DeepEqual(*got, want) {
				t.Fatalf("round trip changed state:\n got %+v\nwant %+v", got, want)
			}

			// save(load()) must be stable too
			if err := s.Save(ctx, "session-1", *got); err != nil {
				t.Fatalf("re-Save: %v", err)
			}
			again, _ := s.Load(ctx, "session-1")
			if !reflect.DeepEqual(*again, want) {
				t.Fatalf("second round trip changed state")
			}
		})
	}
}

func TestStore_LoadMissingIsNil(t *testing.T) {
	t.Parallel()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			st, err := s.Load(context.Background(), "nope")
			if err != nil || st != nil {
				t.Fatalf("expected (nil, nil), got (%v, %v)", st, err)
			}
		})
	}
}

func TestStore_RejectsInvalidStateAndKey(t *testing.T) {
	t.Parallel()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			bad := model.HistoryState{SnapshotArray: []model.Snapshot{}, CurrentSnapshotID: 3}
			if err := s.Save(ctx, "k", bad); !errors.Is(err, model.ErrInvalidHistory) {
				t.Fatalf("expected ErrInvalidHistory, got %v", err)
			}
			if err := s.Save(ctx, " ", model.NewHistoryState()); !errors.Is(err, store.ErrInvalidKey) {
				t.Fatalf("expected ErrInvalidKey, got %v", err)
			}
		})
	}
}

func TestStore_EddyLifecycle(t *testing.T) {
	t.Parallel()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			a, err := s.Create(ctx, "dark mode", "example.com")
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			if a.ID == "" || a.History.CurrentSnapshotID != model.NoSnapshot || a.CreatedAt != a.UpdatedAt {
				t.Fatalf("unexpected new eddy: %+v", a)
			}
			b, _ := s.Create(ctx, "big text", "example.com")
			if _, err := s.Create(ctx, "other", "other.org"); err != nil {
				t.Fatal(err)
			}

			// saving a's history makes it the most recently updated
			st := reachableState(t)
			if err := s.Save(ctx, a.ID, st); err != nil {
				t.Fatalf("Save: %v", err)
			}
			list, err := s.ListByDomain(ctx, "example.com")
			if err != nil {
				t.Fatalf("ListByDomain: %v", err)
			}
			if len(list) != 2 || list[0].ID != a.ID || list[1].ID != b.ID {
				t.Fatalf("unexpected order: %+v", list)
			}
			if !reflect.DeepEqual(list[0].History, st) {
				t.Fatalf("listed history differs from saved one")
			}
			all, _ := s.ListByDomain(ctx, "")
			if len(all) != 3 {
				t.Fatalf("expected 3 eddies, got %d", len(all))
			}

			renamed, err := s.Rename(ctx, b.ID, "huge text")
			if err != nil {
				t.Fatalf("Rename: %v", err)
			}
			if renamed.Name != "huge text" || renamed.UpdatedAt <= b.UpdatedAt {
				t.Fatalf("rename not applied: %+v", renamed)
			}

			got, err := s.Get(ctx, a.ID)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.Name != "dark mode" || !reflect.DeepEqual(got.History, st) {
				t.Fatalf("Get returned %+v", got)
			}

			if err := s.Delete(ctx, a.ID); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, err := s.Get(ctx, a.ID); !errors.Is(err, store.ErrNotFound) {
				t.Fatalf("expected ErrNotFound after delete, got %v", err)
			}
			if h, _ := s.Load(ctx, a.ID); h != nil {
				t.Fatalf("history survived delete")
			}
			if err := s.Delete(ctx, a.ID); !errors.Is(err, store.ErrNotFound) {
				t.Fatalf("expected ErrNotFound on second delete, got %v", err)
			}
			if _, err := s.Rename(ctx, "missing", "x"); !errors.Is(err, store.ErrNotFound) {
				t.Fatalf("expected ErrNotFound on rename, got %v", err)
			}
		})
	}
}

func TestFSStore_RejectsUnsafeKeys(t *testing.T) {
	t.Parallel()
	s, err := store.NewFSStore(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Save(context.Background(), "../escape", model.NewHistoryState()); !errors.Is(err, store.ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "data", "eddy.db")
	ctx := context.Background()

	s, err := store.NewSQLiteStore(path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	e, err := s.Create(ctx, "n", "example.com")
	if err != nil {
		t.Fatal(err)
	}
	want := reachableState(t)
	if err := s.Save(ctx, e.ID, want); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s2, err := store.NewSQLiteStore(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	got, err := s2.Get(ctx, e.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !reflect.DeepEqual(got.History, want) {
		t.Fatalf("history changed across reopen")
	}
}

func TestNew_SelectsBackend(t *testing.T) {
	t.Parallel()
	for _, b := range []store.Backend{store.BackendMemory, store.BackendFS, store.BackendSQLite} {
		s, err := store.New(store.Config{Backend: b, Root: t.TempDir()}, nil)
		if err != nil {
			t.Fatalf("New(%s): %v", b, err)
		}
		_ = s.Close()
	}
	if _, err := store.New(store.Config{Backend: "redis"}, nil); err == nil {
		t.Fatal("expected unknown backend error")
	}
}
