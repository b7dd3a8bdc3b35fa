package webclient

import (
	"fmt"
	"strings"

	"github.com/raysh454/eddy/internal/logging"
)

// NewWebClient constructs the configured backend. An empty client name
// selects nethttp.
func NewWebClient(cfg Config, logger logging.Logger) (WebClient, error) {
	switch Client(strings.ToLower(strings.TrimSpace(string(cfg.Client)))) {
	case "", ClientNetHTTP:
		return NewNetHTTPClient(cfg, logger, nil)
	case ClientChromedp:
		c, err := NewChromedpClient(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("construct webclient backend %q: %w", cfg.Client, err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("webclient backend %q not available: want %q or %q", cfg.Client, ClientNetHTTP, ClientChromedp)
	}
}
