package bridge

import "time"

type Backend string

const (
	// BackendDocument runs scripts against the in-memory preview document.
	BackendDocument Backend = "document"
	// BackendWebsocket forwards scripts to a connected extension background.
	BackendWebsocket Backend = "websocket"
)

// Config controls the script execution bridge.
type Config struct {
	Backend Backend `json:"backend,omitempty" yaml:"backend"`

	// ExecTimeout bounds a single Execute on the websocket hub. 0 waits until
	// the caller's context is done.
	ExecTimeout time.Duration `json:"exec_timeout,omitempty" yaml:"exec_timeout"`

	// TabID is sent with every request when the caller does not set one.
	TabID int `json:"tab_id,omitempty" yaml:"tab_id"`
}
