package bridge

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/raysh454/eddy/internal/logging"
)

// Hub is a Bridge whose privileged context is a websocket client (the
// extension background). One client is active at a time; a new connection
// replaces the previous one.
type Hub struct {
	cfg      Config
	logger   logging.Logger
	upgrader websocket.Upgrader

	mu   sync.Mutex
	conn *websocket.Conn
	// pending calls by the connection their request went out on
	pending map[*websocket.Conn]map[string]chan Result

	writeMu sync.Mutex
}

// NewHub creates a Hub. Mount it as an http.Handler on the bridge endpoint.
func NewHub(cfg Config, logger logging.Logger) *Hub {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &Hub{
		cfg:    cfg,
		logger: logger.With(logging.Field{Key: "component", Value: "bridge-hub"}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// extension origins (chrome-extension://...) are not predictable
				return true
			},
		},
		pending: make(map[*websocket.Conn]map[string]chan Result),
	}
}

var _ Bridge = (*Hub)(nil)

// ServeHTTP upgrades the request and serves the client until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrading bridge websocket", logging.Field{Key: "error", Value: err.Error()})
		return
	}

	h.mu.Lock()
	prev := h.conn
	h.conn = conn
	h.mu.Unlock()
	if prev != nil {
		h.logger.Info("bridge client replaced")
		h.detach(prev)
	}
	h.logger.Info("bridge client connected", logging.Field{Key: "remote", Value: r.RemoteAddr})

	h.readLoop(conn)
}

func (h *Hub) readLoop(conn *websocket.Conn) {
	defer h.detach(conn)
	for {
		var res Result
		if err := conn.ReadJSON(&res); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("bridge read ended", logging.Field{Key: "error", Value: err.Error()})
			}
			return
		}
		h.mu.Lock()
		ch, ok := h.pending[conn][res.ID]
		if ok {
			delete(h.pending[conn], res.ID)
		}
		h.mu.Unlock()
		if !ok {
			h.logger.Warn("bridge result for unknown request", logging.Field{Key: "id", Value: res.ID})
			continue
		}
		ch <- res
	}
}

// detach closes conn and fails every call still waiting on it, whether or
// not conn is still the active client.
func (h *Hub) detach(conn *websocket.Conn) {
	_ = conn.Close()
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.pending[conn] {
		close(ch)
	}
	delete(h.pending, conn)
	if h.conn == conn {
		h.conn = nil
		h.logger.Info("bridge client disconnected")
	}
}

// Connected reports whether a client is attached.
func (h *Hub) Connected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conn != nil
}

// Execute sends req to the client and waits for its result.
func (h *Hub) Execute(ctx context.Context, req Request) (*Result, error) {
	if req.TabID == 0 {
		req.TabID = h.cfg.TabID
	}
	req.ID = uuid.NewString()
	ch := make(chan Result, 1)

	h.mu.Lock()
	conn := h.conn
	if conn == nil {
		h.mu.Unlock()
		return nil, ErrNoClient
	}
	if h.pending[conn] == nil {
		h.pending[conn] = make(map[string]chan Result)
	}
	h.pending[conn][req.ID] = ch
	h.mu.Unlock()

	h.writeMu.Lock()
	err := conn.WriteJSON(req)
	h.writeMu.Unlock()
	if err != nil {
		h.forget(conn, req.ID)
		return nil, fmt.Errorf("bridge: send request: %w", err)
	}

	if h.cfg.ExecTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.cfg.ExecTimeout)
		defer cancel()
	}

	start := time.Now()
	select {
	case res, ok := <-ch:
		if !ok {
			return nil, ErrDisconnected
		}
		h.logger.Debug("bridge executed script",
			logging.Field{Key: "script_id", Value: req.ScriptID},
			logging.Field{Key: "success", Value: res.Success},
			logging.Field{Key: "elapsed", Value: time.Since(start).String()})
		return &res, nil
	case <-ctx.Done():
		h.forget(conn, req.ID)
		return nil, ctx.Err()
	}
}

func (h *Hub) forget(conn *websocket.Conn, id string) {
	h.mu.Lock()
	delete(h.pending[conn], id)
	h.mu.Unlock()
}

// Close disconnects the current client.
func (h *Hub) Close() error {
	h.mu.Lock()
	conn := h.conn
	h.mu.Unlock()
	if conn == nil {
		return nil
	}
	h.writeMu.Lock()
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	h.writeMu.Unlock()
	return conn.Close()
}
