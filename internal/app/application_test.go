package app_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/raysh454/eddy/internal/app"
	"github.com/raysh454/eddy/internal/bridge"
	"github.com/raysh454/eddy/internal/cli"
	"github.com/raysh454/eddy/internal/model"
	"github.com/raysh454/eddy/internal/store"
	"github.com/raysh454/eddy/internal/testutil"
)

func newApp(t *testing.T, mutate func(*app.Config), args *cli.CLIArgs) *app.Application {
	t.Helper()
	cfg := app.DefaultConfig()
	cfg.Store = store.Config{Backend: store.BackendMemory}
	if mutate != nil {
		mutate(cfg)
	}
	a, err := app.NewApplication(cfg, args, &testutil.DummyLogger{})
	if err != nil {
		t.Fatalf("NewApplication: %v", err)
	}
	t.Cleanup(func() { _ = a.Shutdown(context.Background()) })
	return a
}

func TestApplication_Render(t *testing.T) {
	t.Parallel()
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head></head><body><p>page</p></body></html>`))
	}))
	t.Cleanup(site.Close)

	a := newApp(t, nil, &cli.CLIArgs{Mode: cli.ModeRender})
	ctx := context.Background()
	e, err := a.Sessions.Create(ctx, "s", site.URL)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.Sessions.Apply(ctx, e.ID, 0, []model.Modification{model.StyleModification("p", "color", "red")}, "q"); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := a.Render(ctx, e.ID, site.URL, "", &buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(buf.String(), "p { color: red; }") {
		t.Fatalf("rendered page:\n%s", buf.String())
	}

	out := filepath.Join(t.TempDir(), "page.html")
	if err := a.Render(ctx, e.ID, site.URL, out, nil); err != nil {
		t.Fatalf("Render to file: %v", err)
	}
	b, err := os.ReadFile(out)
	if err != nil || !strings.Contains(string(b), "<p>page</p>") {
		t.Fatalf("file = %q, %v", b, err)
	}
}

func TestApplication_WebsocketBridgeBuildsHub(t *testing.T) {
	t.Parallel()
	a := newApp(t, func(c *app.Config) { c.Bridge.Backend = bridge.BackendWebsocket }, nil)
	if a.Hub == nil {
		t.Fatal("expected a hub for the websocket bridge")
	}
	if a.Hub.Connected() {
		t.Fatal("no extension should be connected")
	}
}

func TestApplication_FSStoreCreatesRoot(t *testing.T) {
	t.Parallel()
	root := filepath.Join(t.TempDir(), "nested", "data")
	a := newApp(t, func(c *app.Config) { c.Store = store.Config{Backend: store.BackendFS, Root: root} }, nil)
	if _, err := os.Stat(root); err != nil {
		t.Fatalf("root not created: %v", err)
	}
	if _, err := a.Sessions.Create(context.Background(), "s", "example.com"); err != nil {
		t.Fatalf("Create: %v", err)
	}
}

func TestApplication_RejectsInvalidConfig(t *testing.T) {
	t.Parallel()
	cfg := app.DefaultConfig()
	cfg.Store.Backend = "nope"
	if _, err := app.NewApplication(cfg, nil, nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestApplication_ServeStopsOnCancel(t *testing.T) {
	t.Parallel()
	a := newApp(t, nil, &cli.CLIArgs{Mode: cli.ModeServe, Addr: "127.0.0.1:0"})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx, nil) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not stop")
	}
}

func TestApplication_SessionMetrics(t *testing.T) {
	t.Parallel()
	a := newApp(t, nil, nil)
	ctx := context.Background()
	e, err := a.Sessions.Create(ctx, "s", "example.com")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.Sessions.Apply(ctx, e.ID, 0, []model.Modification{model.StyleModification("p", "color", "red")}, "q"); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Sessions.Apply(ctx, e.ID, 0, []model.Modification{{Type: model.ModificationStyle}}, "bad"); err == nil {
		t.Fatal("expected malformed batch error")
	}
	_, _ = a.Sessions.Undo(ctx, e.ID)

	expected := `
# HELP eddy_mutations_total History mutations by operation and result.
# TYPE eddy_mutations_total counter
eddy_mutations_total{op="apply",result="invalid"} 1
eddy_mutations_total{op="apply",result="ok"} 1
eddy_mutations_total{op="undo",result="ok"} 1
# HELP eddy_open_sessions Sessions with a live engine.
# TYPE eddy_open_sessions gauge
eddy_open_sessions 1
`
	if err := promtest.GatherAndCompare(a.Metrics.Gatherer(), strings.NewReader(expected),
		"eddy_mutations_total", "eddy_open_sessions"); err != nil {
		t.Fatal(err)
	}
}
