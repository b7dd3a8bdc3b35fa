package app_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/raysh454/eddy/internal/app"
	"github.com/raysh454/eddy/internal/engine"
	"github.com/raysh454/eddy/internal/model"
	"github.com/raysh454/eddy/internal/store"
	"github.com/raysh454/eddy/internal/testutil"
	"github.com/raysh454/eddy/internal/webclient"
)

func newManager(t *testing.T, st store.EddyStore, web webclient.WebClient) *app.SessionManager {
	t.Helper()
	if st == nil {
		st = store.NewMemoryStore(nil)
	}
	m := app.NewSessionManager(app.DefaultConfig(), st, web, nil, &testutil.DummyLogger{})
	t.Cleanup(func() { _ = m.Close(context.Background()) })
	return m
}

func mustCreate(t *testing.T, m *app.SessionManager, name, url string) *model.Eddy {
	t.Helper()
	e, err := m.Create(context.Background(), name, url)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return e
}

func TestSessionManager_CreateAndListByDomain(t *testing.T) {
	t.Parallel()
	m := newManager(t, nil, nil)
	ctx := context.Background()

	a := mustCreate(t, m, "one", "https://Example.com/docs?x=1")
	mustCreate(t, m, "", "https://other.org/")
	if a.Domain != "example.com" {
		t.Fatalf("domain = %q", a.Domain)
	}

	list, err := m.List(ctx, "http://example.com:8080/elsewhere")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].ID != a.ID {
		t.Fatalf("List(example.com) = %+v", list)
	}
	all, err := m.List(ctx, "")
	if err != nil || len(all) != 2 {
		t.Fatalf("List(all) = %d, %v", len(all), err)
	}
	for _, e := range all {
		if e.Name == "" {
			t.Errorf("unnamed session %+v", e)
		}
	}

	if _, err := m.Create(ctx, "bad", ""); err == nil {
		t.Fatal("expected error for empty url")
	}
}

func TestSessionManager_ApplyUndoPersists(t *testing.T) {
	t.Parallel()
	st := store.NewMemoryStore(nil)
	m := newManager(t, st, nil)
	ctx := context.Background()
	e := mustCreate(t, m, "s", "https://example.com")

	out, err := m.Apply(ctx, e.ID, 0, []model.Modification{model.StyleModification("body", "color", "red")}, "red text")
	if err != nil || !out.Changed || out.Cursor != 0 {
		t.Fatalf("Apply: %+v %v", out, err)
	}
	if _, err := m.Apply(ctx, e.ID, 0, []model.Modification{model.StyleModification("body", "margin", "0")}, "no margin"); err != nil {
		t.Fatal(err)
	}
	if out, err := m.Undo(ctx, e.ID); err != nil || out.Cursor != 0 {
		t.Fatalf("Undo: %+v %v", out, err)
	}

	saved, err := st.Load(ctx, e.ID)
	if err != nil || saved == nil {
		t.Fatalf("Load: %v %v", saved, err)
	}
	if saved.CurrentSnapshotID != 0 || len(saved.SnapshotArray) != 2 {
		t.Fatalf("saved = %+v", saved)
	}

	doc, err := m.Document(ctx, e.ID)
	if err != nil {
		t.Fatal(err)
	}
	eff, _ := m.Effective(ctx, e.ID)
	el := eff.Elements[0]
	if css, ok := doc.Text(el.ID); !ok || !strings.Contains(css, "color: red") || strings.Contains(css, "margin") {
		t.Fatalf("rendered style = %q (%v)", css, ok)
	}

	// a second manager over the same store restores the cursor position
	other := newManager(t, st, nil)
	v, err := other.History(ctx, e.ID)
	if err != nil {
		t.Fatal(err)
	}
	if v.Cursor != 0 || !v.CanRedo || len(v.Entries) != 2 || v.Entries[1].UserQuery != "no margin" {
		t.Fatalf("restored view = %+v", v)
	}
}

func TestSessionManager_StaleToken(t *testing.T) {
	t.Parallel()
	m := newManager(t, nil, nil)
	ctx := context.Background()
	e := mustCreate(t, m, "s", "example.com")

	first, err := m.BeginApply(ctx, e.ID)
	if err != nil {
		t.Fatal(err)
	}
	second, _ := m.BeginApply(ctx, e.ID)
	mods := []model.Modification{model.StyleModification("a", "color", "red")}

	if _, err := m.Apply(ctx, e.ID, first, mods, "q"); !errors.Is(err, engine.ErrStaleApply) {
		t.Fatalf("stale token err = %v", err)
	}
	if _, err := m.Apply(ctx, e.ID, second, mods, "q"); err != nil {
		t.Fatalf("latest token: %v", err)
	}
}

func TestSessionManager_UnknownSession(t *testing.T) {
	t.Parallel()
	m := newManager(t, nil, nil)
	ctx := context.Background()
	if _, err := m.Undo(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Undo err = %v", err)
	}
	if _, err := m.History(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("History err = %v", err)
	}
	if err := m.Delete(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Delete err = %v", err)
	}
}

func TestSessionManager_DeleteClearsRenderedLayers(t *testing.T) {
	t.Parallel()
	st := store.NewMemoryStore(nil)
	m := newManager(t, st, nil)
	ctx := context.Background()
	e := mustCreate(t, m, "s", "example.com")

	out, err := m.Apply(ctx, e.ID, 0, []model.Modification{model.StyleModification("body", "color", "red")}, "q")
	if err != nil {
		t.Fatal(err)
	}
	doc, _ := m.Document(ctx, e.ID)
	id := out.Effective.Elements[0].ID
	if !doc.Has(id) {
		t.Fatal("style not rendered")
	}

	if err := m.Delete(ctx, e.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if doc.Has(id) {
		t.Fatal("style left behind after delete")
	}
	if _, err := m.Get(ctx, e.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Get after delete = %v", err)
	}
	if saved, _ := st.Load(ctx, e.ID); saved != nil {
		t.Fatal("history survived delete")
	}
}

func TestSessionManager_DeleteStopsEnginesAlreadyHandedOut(t *testing.T) {
	t.Parallel()
	st := store.NewMemoryStore(nil)
	m := newManager(t, st, nil)
	ctx := context.Background()
	e := mustCreate(t, m, "s", "example.com")

	eng, err := m.Open(ctx, e.ID)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Delete(ctx, e.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	_, err = eng.Apply(ctx, []model.Modification{model.StyleModification("body", "color", "red")}, "late")
	if !errors.Is(err, engine.ErrClosed) {
		t.Fatalf("Apply after delete = %v, want ErrClosed", err)
	}
	if saved, _ := st.Load(ctx, e.ID); saved != nil {
		t.Fatal("late apply re-created history for a deleted session")
	}
	if _, err := m.Apply(ctx, e.ID, 0, nil, "again"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Apply through the manager = %v, want ErrNotFound", err)
	}
}

func TestSessionManager_Preview(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>t</title></head><body><h1>hi</h1></body></html>`))
	}))
	t.Cleanup(srv.Close)

	web, err := webclient.NewNetHTTPClient(webclient.Config{}, nil, srv.Client())
	if err != nil {
		t.Fatal(err)
	}
	m := newManager(t, nil, web)
	ctx := context.Background()
	e := mustCreate(t, m, "s", srv.URL)
	if _, err := m.Apply(ctx, e.ID, 0, []model.Modification{
		model.StyleModification("h1", "color", "red"),
		model.ScriptModification("document.title = 'x'"),
	}, "q"); err != nil {
		t.Fatal(err)
	}

	page, err := m.Preview(ctx, e.ID, srv.URL+"/page")
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	for _, want := range []string{"<h1>hi</h1>", "color: red", "document.title"} {
		if !strings.Contains(page, want) {
			t.Errorf("preview missing %q:\n%s", want, page)
		}
	}
}

func TestSessionManager_PreviewWithoutWebClient(t *testing.T) {
	t.Parallel()
	m := newManager(t, nil, nil)
	e := mustCreate(t, m, "s", "example.com")
	if _, err := m.Preview(context.Background(), e.ID, ""); !errors.Is(err, app.ErrNoWebClient) {
		t.Fatalf("err = %v", err)
	}
}

func TestPageURL(t *testing.T) {
	t.Parallel()
	e := &model.Eddy{Domain: "example.com"}
	if got, err := app.PageURL(e, ""); err != nil || got != "https://example.com/" {
		t.Errorf("default = %q, %v", got, err)
	}
	if got, err := app.PageURL(e, "HTTP://Example.com:80/a/../b"); err != nil || got != "http://example.com/b" {
		t.Errorf("explicit = %q, %v", got, err)
	}
}
