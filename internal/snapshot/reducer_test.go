package snapshot_test

import (
	"reflect"
	"testing"

	"github.com/raysh454/eddy/internal/model"
	"github.com/raysh454/eddy/internal/snapshot"
)

func layer(t *testing.T, b *snapshot.Builder, mods ...model.Modification) model.Snapshot {
	t.Helper()
	s, err := b.Build(mods, "")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return s
}

func TestReduce_EmptyHistory(t *testing.T) {
	t.Parallel()
	eff := snapshot.Reduce(model.NewHistoryState())
	if !eff.IsEmpty() {
		t.Fatalf("expected empty effective snapshot, got %+v", eff)
	}

	b := newTestBuilder()
	h := model.HistoryState{
		SnapshotArray:     []model.Snapshot{layer(t, b, model.StyleModification("body", "color", "red"))},
		CurrentSnapshotID: model.NoSnapshot,
	}
	if eff := snapshot.Reduce(h); !eff.IsEmpty() {
		t.Errorf("cursor -1 must render nothing, got %+v", eff)
	}
}

func TestReduce_PropertyLevelMerge(t *testing.T) {
	t.Parallel()
	b := newTestBuilder()
	h := model.HistoryState{
		SnapshotArray: []model.Snapshot{
			layer(t, b, model.StyleModification("body", "color", "red")),
			layer(t, b, model.StyleModification("body", "font-size", "16px")),
		},
		CurrentSnapshotID: 1,
	}

	eff := snapshot.Reduce(h)
	body, ok := eff.ElementBySelector("body")
	if !ok {
		t.Fatalf("no body element in %+v", eff)
	}
	if !body.CSSPropertyMap.Equal(model.NewPropertyMap("color", "red", "font-size", "16px")) {
		t.Errorf("expected union of properties, got %v", body.CSSPropertyMap.Keys())
	}
	if len(eff.Elements) != 1 {
		t.Errorf("expected a single body element, got %d", len(eff.Elements))
	}
}

func TestReduce_PropertyOverrideAndCursor(t *testing.T) {
	t.Parallel()
	b := newTestBuilder()
	h := model.HistoryState{
		SnapshotArray: []model.Snapshot{
			layer(t, b, model.StyleModification("body", "color", "red")),
			layer(t, b, model.StyleModification("body", "color", "blue")),
		},
		CurrentSnapshotID: 1,
	}

	body, _ := snapshot.Reduce(h).ElementBySelector("body")
	if v, _ := body.CSSPropertyMap.Get("color"); v != "blue" {
		t.Errorf("later layer should win, got %q", v)
	}

	h.CurrentSnapshotID = 0
	body, _ = snapshot.Reduce(h).ElementBySelector("body")
	if v, _ := body.CSSPropertyMap.Get("color"); v != "red" {
		t.Errorf("after moving cursor back expected red, got %q", v)
	}
}

func TestReduce_IsDeterministic(t *testing.T) {
	t.Parallel()
	b := newTestBuilder()
	h := model.HistoryState{
		SnapshotArray: []model.Snapshot{
			layer(t, b, model.StyleModification("body", "color", "red"), model.ScriptModification("a()", "p")),
			layer(t, b, model.StyleModification("p", "margin", "0")),
		},
		CurrentSnapshotID: 1,
	}
	first := snapshot.Reduce(h)
	second := snapshot.Reduce(h)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("reduce not deterministic:\n%+v\n%+v", first, second)
	}
}

func TestReduce_RekeysElementsAwayFromLayerIDs(t *testing.T) {
	t.Parallel()
	b := newTestBuilder()
	src := layer(t, b, model.StyleModification("body", "color", "red"))
	h := model.HistoryState{SnapshotArray: []model.Snapshot{src}, CurrentSnapshotID: 0}

	eff := snapshot.Reduce(h)
	if eff.Elements[0].ID == src.Elements[0].ID {
		t.Errorf("effective element aliases layer id %q", src.Elements[0].ID)
	}
	if eff.ID == src.ID {
		t.Errorf("effective snapshot aliases layer id")
	}

	// Reducing must not mutate the layers.
	eff.Elements[0].CSSPropertyMap.Set("color", "green")
	if v, _ := h.SnapshotArray[0].Elements[0].CSSPropertyMap.Get("color"); v != "red" {
		t.Errorf("layer mutated through effective snapshot: %q", v)
	}
}

func TestReduce_ScriptsReplacedWholeByID(t *testing.T) {
	t.Parallel()
	first := model.ScriptSnapshot{ID: "sc", Code: "one()", CreatedElementIDs: []string{"a", "b"}, Timestamp: 1}
	second := model.ScriptSnapshot{ID: "sc", Code: "two()", CreatedElementIDs: []string{"c"}, Timestamp: 2}
	other := model.ScriptSnapshot{ID: "other", Code: "x()", CreatedElementIDs: []string{}, Timestamp: 1}
	h := model.HistoryState{
		SnapshotArray: []model.Snapshot{
			{ID: "l1", Scripts: []model.ScriptSnapshot{first, other}},
			{ID: "l2", Scripts: []model.ScriptSnapshot{second}},
		},
		CurrentSnapshotID: 1,
	}

	eff := snapshot.Reduce(h)
	if len(eff.Scripts) != 2 {
		t.Fatalf("expected 2 scripts, got %d", len(eff.Scripts))
	}
	if !reflect.DeepEqual(eff.Scripts[0], second) {
		t.Errorf("script not replaced verbatim: %+v", eff.Scripts[0])
	}
	if !reflect.DeepEqual(eff.Scripts[1], other) {
		t.Errorf("unrelated script changed: %+v", eff.Scripts[1])
	}
}

func TestReduce_ClampsCursorPastEnd(t *testing.T) {
	t.Parallel()
	b := newTestBuilder()
	h := model.HistoryState{
		SnapshotArray:     []model.Snapshot{layer(t, b, model.StyleModification("a", "b", "c"))},
		CurrentSnapshotID: 5,
	}
	if eff := snapshot.Reduce(h); len(eff.Elements) != 1 {
		t.Errorf("expected clamped replay to include the only layer")
	}
}
