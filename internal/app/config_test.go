package app_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/raysh454/eddy/internal/app"
	"github.com/raysh454/eddy/internal/bridge"
	"github.com/raysh454/eddy/internal/store"
	"github.com/raysh454/eddy/internal/webclient"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "eddy.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadConfig_EmptyPathGivesDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := app.LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	def := app.DefaultConfig()
	if cfg.Store != def.Store || cfg.Server.ListenAddr != def.Server.ListenAddr || cfg.Bridge.Backend != bridge.BackendDocument {
		t.Fatalf("got %+v", cfg)
	}
}

func TestLoadConfig_OverlaysYAML(t *testing.T) {
	t.Parallel()
	p := writeFile(t, `
server:
  listen_addr: ":9090"
store:
  backend: fs
  root: /tmp/eddy-data
engine:
  history:
    max_history: 25
bridge:
  backend: websocket
  exec_timeout: 3s
webclient:
  client: chromedp
`)
	cfg, err := app.LoadConfig(p)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.ListenAddr != ":9090" {
		t.Errorf("listen addr = %q", cfg.Server.ListenAddr)
	}
	if cfg.Store.Backend != store.BackendFS || cfg.Store.Root != "/tmp/eddy-data" {
		t.Errorf("store = %+v", cfg.Store)
	}
	if cfg.Engine.History.MaxHistory != 25 {
		t.Errorf("max history = %d", cfg.Engine.History.MaxHistory)
	}
	if cfg.Bridge.Backend != bridge.BackendWebsocket || cfg.Bridge.ExecTimeout != 3*time.Second {
		t.Errorf("bridge = %+v", cfg.Bridge)
	}
	if cfg.WebClient.Client != webclient.ClientChromedp {
		t.Errorf("webclient = %q", cfg.WebClient.Client)
	}
	// untouched keys keep their defaults
	if cfg.BlankPage == "" || !cfg.Browser.Headless {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadConfig_RejectsUnknownBackends(t *testing.T) {
	t.Parallel()
	p := writeFile(t, "store:\n  backend: postgres\nbridge:\n  backend: carrier-pigeon\n")
	_, err := app.LoadConfig(p)
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"postgres", "carrier-pigeon"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	t.Parallel()
	if _, err := app.LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error")
	}
}
