package snapshot_test

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/raysh454/eddy/internal/model"
	"github.com/raysh454/eddy/internal/snapshot"
)

func fixedClock() time.Time { return time.UnixMilli(1_700_000_000_000) }

func newTestBuilder() *snapshot.Builder {
	return snapshot.NewBuilder(
		snapshot.WithIDGenerator(snapshot.SequentialIDs()),
		snapshot.WithClock(fixedClock),
	)
}

func TestBuild_MergesSameSelectorLastValueWins(t *testing.T) {
	t.Parallel()
	b := newTestBuilder()

	snap, err := b.Build([]model.Modification{
		model.StyleModification("body", "color", "red"),
		model.StyleModification("h1", "margin", "0"),
		model.StyleModification("body", "font-size", "16px"),
		model.StyleModification("body", "color", "blue"),
	}, "recolor")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(snap.Elements) != 2 {
		t.Fatalf("expected 2 elements (one per selector), got %d", len(snap.Elements))
	}
	body := snap.Elements[0]
	if body.Selector != "body" {
		t.Fatalf("expected first element for body, got %q", body.Selector)
	}
	want := model.NewPropertyMap("color", "blue", "font-size", "16px")
	if !body.CSSPropertyMap.Equal(want) {
		t.Errorf("body properties: got %v", body.CSSPropertyMap.Keys())
	}
	if snap.UserQuery != "recolor" {
		t.Errorf("userQuery: got %q", snap.UserQuery)
	}
	if snap.Timestamp != fixedClock().UnixMilli() || body.Timestamp != snap.Timestamp {
		t.Errorf("timestamps not taken from clock: snap=%d elem=%d", snap.Timestamp, body.Timestamp)
	}
}

func TestBuild_EmptyBatchIsValidEmptyLayer(t *testing.T) {
	t.Parallel()
	snap, err := newTestBuilder().Build(nil, "")
	if err != nil {
		t.Fatalf("Build(nil): %v", err)
	}
	if !snap.IsEmpty() || snap.ID == "" {
		t.Fatalf("expected empty layer with id, got %+v", snap)
	}
	if snap.Elements == nil || snap.Scripts == nil {
		t.Errorf("expected non-nil empty slices")
	}
}

func TestBuild_RejectsMalformedBatchAtomically(t *testing.T) {
	t.Parallel()
	calls := 0
	b := snapshot.NewBuilder(snapshot.WithIDGenerator(func(kind string) string {
		calls++
		return kind
	}))

	_, err := b.Build([]model.Modification{
		model.StyleModification("body", "color", "red"),
		model.ScriptModification(""),
	}, "broken")
	if !errors.Is(err, model.ErrInvalidModification) {
		t.Fatalf("expected ErrInvalidModification, got %v", err)
	}
	if calls != 0 {
		t.Errorf("expected no ids allocated for a rejected batch, got %d", calls)
	}
}

func TestBuild_ScriptPlaceholdersAreBoundToGeneratedIDs(t *testing.T) {
	t.Parallel()
	b := newTestBuilder()

	code := `var s = document.getElementById("banner-style"); s.textContent = "#x{}"; mark("banner-style");`
	snap, err := b.Build([]model.Modification{
		model.ScriptModification(code, "banner-style"),
	}, "")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(snap.Scripts) != 1 {
		t.Fatalf("expected one script, got %d", len(snap.Scripts))
	}
	script := snap.Scripts[0]
	if !reflect.DeepEqual(script.CreatedElementIDs, []string{"style-1"}) {
		t.Fatalf("created ids: got %v", script.CreatedElementIDs)
	}
	if strings.Contains(script.Code, "banner-style") {
		t.Errorf("placeholder left in code: %s", script.Code)
	}
	if strings.Count(script.Code, `"style-1"`) != 2 {
		t.Errorf("expected both occurrences replaced, code: %s", script.Code)
	}
	if script.ID != "script-1" {
		t.Errorf("script id: got %q", script.ID)
	}
	if len(snap.Elements) != 0 {
		t.Errorf("placeholder elements must not be merged into the style elements")
	}
}

func TestBuild_ScriptIsWrappedWithCleanupListener(t *testing.T) {
	t.Parallel()
	snap, err := newTestBuilder().Build([]model.Modification{
		model.ScriptModification("doThing();"),
	}, "")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	code := snap.Scripts[0].Code
	if !strings.Contains(code, "doThing();") {
		t.Errorf("original code missing from wrapper")
	}
	if !strings.Contains(code, `"`+snapshot.CleanupEventName("script-1")+`"`) {
		t.Errorf("wrapper does not listen for cleanup event: %s", code)
	}
	if snap.Scripts[0].CreatedElementIDs == nil {
		t.Errorf("expected non-nil created ids")
	}
}

func TestBuild_FreshIDsForIdenticalContent(t *testing.T) {
	t.Parallel()
	b := snapshot.NewBuilder()
	mods := []model.Modification{model.StyleModification("body", "color", "red")}

	a, err := b.Build(mods, "q")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	c, err := b.Build(mods, "q")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if a.ID == c.ID || a.Elements[0].ID == c.Elements[0].ID {
		t.Errorf("ids reused across builds: %s / %s", a.ID, c.ID)
	}
}

func TestBindPlaceholders_LongestMatchWins(t *testing.T) {
	t.Parallel()
	got := snapshot.BindPlaceholders("ph1 ph10 ph1.x", map[string]string{
		"ph1":  "A",
		"ph10": "B",
	})
	if got != "A B A.x" {
		t.Errorf("got %q", got)
	}
}

func TestBindPlaceholders_RegexMetacharactersAreLiteral(t *testing.T) {
	t.Parallel()
	got := snapshot.BindPlaceholders("$(a.b*) and a-b", map[string]string{"a.b*": "id-1"})
	if got != "$(id-1) and a-b" {
		t.Errorf("got %q", got)
	}
}
