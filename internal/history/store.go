// Package history implements the linear undo/redo store of snapshot layers.
package history

import (
	"errors"
	"fmt"

	"github.com/raysh454/eddy/internal/model"
)

// ErrInvalidDelta is returned by MoveCursor for anything other than -1 or +1.
var ErrInvalidDelta = errors.New("history: cursor delta must be -1 or +1")

// Store owns one HistoryState. It is not safe for concurrent use; the
// engine serialises access.
type Store struct {
	state model.HistoryState
	cfg   Config
}

// New returns an empty store.
func New(cfg Config) *Store {
	return &Store{state: model.NewHistoryState(), cfg: cfg}
}

// FromState returns a store holding a copy of state after validating it.
func FromState(state model.HistoryState, cfg Config) (*Store, error) {
	s := New(cfg)
	if err := s.Restore(state); err != nil {
		return nil, err
	}
	return s, nil
}

// Push appends snap right after the cursor and moves the cursor onto it.
// Any layers past the old cursor (the redo branch) are discarded.
func (s *Store) Push(snap model.Snapshot) {
	keep := s.state.CurrentSnapshotID + 1
	arr := make([]model.Snapshot, 0, keep+1)
	arr = append(arr, s.state.SnapshotArray[:keep]...)
	arr = append(arr, snap.Clone())
	s.state.SnapshotArray = arr
	s.state.CurrentSnapshotID = keep

	if limit := s.cfg.MaxHistory; limit > 0 && len(s.state.SnapshotArray) > limit {
		drop := len(s.state.SnapshotArray) - limit
		s.state.SnapshotArray = append([]model.Snapshot(nil), s.state.SnapshotArray[drop:]...)
		s.state.CurrentSnapshotID -= drop
	}
}

// MoveCursor moves the cursor by delta (-1 undo, +1 redo). Moving past either
// boundary is a no-op that returns false.
func (s *Store) MoveCursor(delta int) (bool, error) {
	switch delta {
	case -1:
		if !s.state.CanUndo() {
			return false, nil
		}
	case 1:
		if !s.state.CanRedo() {
			return false, nil
		}
	default:
		return false, fmt.Errorf("%w: got %d", ErrInvalidDelta, delta)
	}
	s.state.CurrentSnapshotID += delta
	return true, nil
}

// Undo is MoveCursor(-1).
func (s *Store) Undo() bool {
	ok, _ := s.MoveCursor(-1)
	return ok
}

// Redo is MoveCursor(+1).
func (s *Store) Redo() bool {
	ok, _ := s.MoveCursor(1)
	return ok
}

// Reset moves the cursor before the first layer. History is kept, so the
// reset can be redone.
func (s *Store) Reset() {
	s.state.CurrentSnapshotID = model.NoSnapshot
}

// Restore replaces the held state with a copy of state.
func (s *Store) Restore(state model.HistoryState) error {
	if err := state.Validate(); err != nil {
		return err
	}
	s.state = state.Clone()
	if s.state.SnapshotArray == nil {
		s.state.SnapshotArray = []model.Snapshot{}
	}
	return nil
}

// State returns a deep copy of the held state.
func (s *Store) State() model.HistoryState { return s.state.Clone() }

// Cursor returns CurrentSnapshotID.
func (s *Store) Cursor() int { return s.state.CurrentSnapshotID }

// Len returns the number of retained layers.
func (s *Store) Len() int { return len(s.state.SnapshotArray) }

// CanUndo reports whether the cursor can move back.
func (s *Store) CanUndo() bool { return s.state.CanUndo() }

// CanRedo reports whether a later layer exists past the cursor.
func (s *Store) CanRedo() bool { return s.state.CanRedo() }

// Entry summarises one layer for history listings.
type Entry struct {
	Index      int    `json:"index"`
	SnapshotID string `json:"snapshotId"`
	UserQuery  string `json:"userQuery"`
	Timestamp  int64  `json:"timestamp"`
	Elements   int    `json:"elements"`
	Scripts    int    `json:"scripts"`
	Applied    bool   `json:"applied"`
}

// Entries lists every retained layer, marking those at or before the cursor
// as applied.
func (s *Store) Entries() []Entry {
	out := make([]Entry, 0, len(s.state.SnapshotArray))
	for i, snap := range s.state.SnapshotArray {
		out = append(out, Entry{
			Index:      i,
			SnapshotID: snap.ID,
			UserQuery:  snap.UserQuery,
			Timestamp:  snap.Timestamp,
			Elements:   len(snap.Elements),
			Scripts:    len(snap.Scripts),
			Applied:    i <= s.state.CurrentSnapshotID,
		})
	}
	return out
}
