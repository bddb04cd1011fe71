package venue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/arbscan/internal/domain"
)

const (
	// handshakeTimeout bounds the websocket dial.
	handshakeTimeout = 15 * time.Second

	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// readWait is the idle read deadline; ticker feeds are chatty enough
	// that a silent minute means the connection is dead.
	readWait = 60 * time.Second
)

// conn wraps a single gorilla websocket connection shared by all adapters.
// It serializes writes, refreshes the read deadline per message, and makes
// Close idempotent so both the adapter and the supervisor may call it.
type conn struct {
	mu     sync.Mutex
	ws     *websocket.Conn
	closed bool
}

// dial connects to the venue endpoint.
func (c *conn) dial(ctx context.Context, url string) error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	ws, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}

	ws.SetReadDeadline(time.Now().Add(readWait))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(readWait))
		return nil
	})

	c.mu.Lock()
	c.ws = ws
	c.closed = false
	c.mu.Unlock()
	return nil
}

// writeJSON sends one JSON control message (subscriptions).
func (c *conn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ws == nil || c.closed {
		return domain.ErrWSDisconnect
	}
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(v)
}

// readMessage blocks for the next wire message. The read deadline is pushed
// forward on every message, so only a genuinely silent peer times out.
func (c *conn) readMessage() ([]byte, error) {
	c.mu.Lock()
	ws := c.ws
	closed := c.closed
	c.mu.Unlock()
	if ws == nil || closed {
		return nil, domain.ErrWSDisconnect
	}

	_, msg, err := ws.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrWSDisconnect, err)
	}
	ws.SetReadDeadline(time.Now().Add(readWait))
	return msg, nil
}

// close tears down the connection, unblocking any pending read. Idempotent.
func (c *conn) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.ws == nil {
		c.closed = true
		return nil
	}
	c.closed = true
	_ = c.ws.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return c.ws.Close()
}
