package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/raysh454/eddy/internal/bridge"
	"github.com/raysh454/eddy/internal/browser"
	"github.com/raysh454/eddy/internal/engine"
	"github.com/raysh454/eddy/internal/server"
	"github.com/raysh454/eddy/internal/store"
	"github.com/raysh454/eddy/internal/webclient"
)

// Config gathers every component's configuration.
type Config struct {
	Server    server.Config    `json:"server" yaml:"server"`
	Store     store.Config     `json:"store" yaml:"store"`
	Engine    engine.Config    `json:"engine" yaml:"engine"`
	Bridge    bridge.Config    `json:"bridge" yaml:"bridge"`
	Browser   browser.Config   `json:"browser" yaml:"browser"`
	WebClient webclient.Config `json:"webclient" yaml:"webclient"`

	// BlankPage seeds the server-side document of a session that has not
	// been previewed against a real page.
	BlankPage string `json:"blank_page,omitempty" yaml:"blank_page"`
}

const defaultBlankPage = `<!DOCTYPE html><html><head></head><body></body></html>`

// DefaultConfig returns a Config populated with sensible development defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: server.Config{
			ListenAddr: "localhost:8080",
		},
		Store: store.Config{
			Backend: store.BackendSQLite,
			Root:    "~/.config/eddy",
		},
		Bridge: bridge.Config{
			Backend:     bridge.BackendDocument,
			ExecTimeout: 10 * time.Second,
		},
		Browser: browser.Config{
			Headless:        true,
			NavigateTimeout: 30 * time.Second,
		},
		WebClient: webclient.Config{
			Client:   webclient.ClientNetHTTP,
			Timeout:  30 * time.Second,
			Headless: true,
		},
		BlankPage: defaultBlankPage,
	}
}

// LoadConfig overlays the YAML file at path on DefaultConfig. An empty path
// returns the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects unknown backends.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Backend {
	case "", store.BackendSQLite, store.BackendFS, store.BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}
	switch c.Bridge.Backend {
	case "", bridge.BackendDocument, bridge.BackendWebsocket:
	default:
		errs = append(errs, fmt.Errorf("unknown bridge backend %q", c.Bridge.Backend))
	}
	switch c.WebClient.Client {
	case "", webclient.ClientNetHTTP, webclient.ClientChromedp:
	default:
		errs = append(errs, fmt.Errorf("unknown webclient %q", c.WebClient.Client))
	}
	if c.Engine.History.MaxHistory < 0 {
		errs = append(errs, errors.New("max_history must not be negative"))
	}
	return errors.Join(errs...)
}

func expandPath(p string) (string, error) {
	if len(p) > 0 && p[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, p[1:]), nil
	}
	return p, nil
}
