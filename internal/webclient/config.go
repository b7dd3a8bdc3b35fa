package webclient

import "time"

type Client string

const (
	ClientNetHTTP  Client = "nethttp"
	ClientChromedp Client = "chromedp"
)

// Config selects and tunes the page fetcher.
type Config struct {
	Client Client `json:"client" yaml:"client"`

	// Timeout bounds one fetch. 0 means 30s.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout"`

	// IdleAfter is how long the network must stay quiet before chromedp
	// considers a page loaded. 0 means 2s.
	IdleAfter time.Duration `json:"idle_after,omitempty" yaml:"idle_after"`

	Headless bool `json:"headless" yaml:"headless"`

	// MaxBodyBytes truncates nethttp bodies. 0 means unlimited.
	MaxBodyBytes int64 `json:"max_body_bytes,omitempty" yaml:"max_body_bytes"`

	UserAgent string `json:"user_agent,omitempty" yaml:"user_agent"`
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 30 * time.Second
	}
	return c.Timeout
}

func (c Config) idleAfter() time.Duration {
	if c.IdleAfter <= 0 {
		return 2 * time.Second
	}
	return c.IdleAfter
}
