package browser

import "time"

// Config controls the Chrome instance used for live rendering.
type Config struct {
	Headless bool `json:"headless" yaml:"headless"`

	// ExecPath overrides the Chrome binary chromedp looks up.
	ExecPath string `json:"exec_path,omitempty" yaml:"exec_path"`

	// NavigateTimeout bounds Navigate. 0 means 30s.
	NavigateTimeout time.Duration `json:"navigate_timeout,omitempty" yaml:"navigate_timeout"`
}
