package model

import (
	"errors"
	"fmt"
)

// ErrInvalidHistory is returned when a HistoryState breaks the cursor invariant.
var ErrInvalidHistory = errors.New("invalid history state")

// NoSnapshot is the cursor value meaning "no layer applied".
const NoSnapshot = -1

// HistoryState is the linear layer history plus its cursor. The layers
// 0..CurrentSnapshotID inclusive are applied.
type HistoryState struct {
	SnapshotArray     []Snapshot `json:"snapshotArray"`
	CurrentSnapshotID int        `json:"currentSnapshotId"`
}

// NewHistoryState returns an empty history with no layer applied.
func NewHistoryState() HistoryState {
	return HistoryState{SnapshotArray: []Snapshot{}, CurrentSnapshotID: NoSnapshot}
}

// Validate checks -1 <= CurrentSnapshotID <= len(SnapshotArray)-1.
func (h HistoryState) Validate() error {
	if h.CurrentSnapshotID < NoSnapshot || h.CurrentSnapshotID > len(h.SnapshotArray)-1 {
		return fmt.Errorf("%w: cursor %d outside [-1, %d]", ErrInvalidHistory, h.CurrentSnapshotID, len(h.SnapshotArray)-1)
	}
	return nil
}

// CanUndo reports whether a layer is applied.
func (h HistoryState) CanUndo() bool { return h.CurrentSnapshotID >= 0 }

// CanRedo reports whether a layer past the cursor exists.
func (h HistoryState) CanRedo() bool { return h.CurrentSnapshotID < len(h.SnapshotArray)-1 }

// Clone returns a deep copy.
func (h HistoryState) Clone() HistoryState {
	out := HistoryState{CurrentSnapshotID: h.CurrentSnapshotID}
	if h.SnapshotArray != nil {
		out.SnapshotArray = make([]Snapshot, len(h.SnapshotArray))
		for i, s := range h.SnapshotArray {
			out.SnapshotArray[i] = s.Clone()
		}
	}
	return out
}
