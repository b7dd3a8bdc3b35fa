// Package bridge defines the contract with the privileged script execution
// context (the extension's background service) and a websocket transport
// for it.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrScriptFailed wraps every failed execution: transport errors as
	// well as results reporting success=false.
	ErrScriptFailed = errors.New("script execution failed")

	// ErrNoClient is returned when no privileged context is connected.
	ErrNoClient = errors.New("bridge: no client connected")

	// ErrDisconnected is returned to calls in flight when the client goes away.
	ErrDisconnected = errors.New("bridge: client disconnected")
)

// Request asks the privileged context to run code in a tab. ScriptID is
// stable for the script layer so the page can find and remove it later.
type Request struct {
	ID       string `json:"id,omitempty"` // correlation id, set by transports
	TabID    int    `json:"tabId"`
	ScriptID string `json:"scriptId"`
	Code     string `json:"code"`
}

// Result is the reply for a Request.
type Result struct {
	ID      string          `json:"id,omitempty"`
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Bridge executes scripts in a privileged context. Implementations must not
// report success unless the script actually ran.
type Bridge interface {
	Execute(ctx context.Context, req Request) (*Result, error)
}

// Func adapts a function to Bridge.
type Func func(ctx context.Context, req Request) (*Result, error)

func (f Func) Execute(ctx context.Context, req Request) (*Result, error) { return f(ctx, req) }

// Run executes req and folds transport errors and success=false results
// into a single error wrapping ErrScriptFailed.
func Run(ctx context.Context, b Bridge, req Request) (*Result, error) {
	res, err := b.Execute(ctx, req)
	if err != nil {
		return res, fmt.Errorf("%w: script %s: %w", ErrScriptFailed, req.ScriptID, err)
	}
	if res == nil {
		return nil, fmt.Errorf("%w: script %s: empty result", ErrScriptFailed, req.ScriptID)
	}
	if !res.Success {
		msg := res.Error
		if msg == "" {
			msg = "reported failure"
		}
		return res, fmt.Errorf("%w: script %s: %s", ErrScriptFailed, req.ScriptID, msg)
	}
	return res, nil
}
