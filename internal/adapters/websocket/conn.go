// Package websocket implements ports.Dialer over a WebSocket connection.
// Each frame travels as one binary message; inbound messages are handed
// on as byte chunks so the stream reassembler sees the same input as with
// TCP.
package websocket

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bft-labs/relink/internal/mailbox"
	"github.com/bft-labs/relink/internal/ports"
)

const (
	defaultHandshakeTimeout = 10 * time.Second
	closeGracePeriod        = time.Second
)

// Dialer implements ports.Dialer using gorilla/websocket.
type Dialer struct {
	logger ports.Logger
	path   string
	dialer websocket.Dialer
}

// NewDialer creates a WebSocket dialer connecting to ws://host:port/path.
func NewDialer(logger ports.Logger, path string, handshakeTimeout time.Duration) *Dialer {
	if path == "" {
		path = "/"
	}
	if handshakeTimeout <= 0 {
		handshakeTimeout = defaultHandshakeTimeout
	}
	return &Dialer{
		logger: logger,
		path:   path,
		dialer: websocket.Dialer{
			HandshakeTimeout: handshakeTimeout,
		},
	}
}

// Dial starts the handshake in the background and returns at once.
func (d *Dialer) Dial(host string, port int, h ports.TransportHandler) ports.Transport {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Conn{
		handler: h,
		logger:  d.logger,
		cancel:  cancel,
		out:     mailbox.New[[]byte](),
	}
	u := url.URL{
		Scheme: "ws",
		Host:   net.JoinHostPort(host, strconv.Itoa(port)),
		Path:   d.path,
	}
	go c.run(ctx, &d.dialer, u.String())
	return c
}

// Conn is one WebSocket transport. It is safe for concurrent use.
type Conn struct {
	handler ports.TransportHandler
	logger  ports.Logger
	cancel  context.CancelFunc
	out     *mailbox.Mailbox[[]byte]

	mu     sync.Mutex
	ws     *websocket.Conn
	closed bool

	endOnce sync.Once
}

// Write queues b as one binary message. b must not be modified afterwards.
func (c *Conn) Write(b []byte) {
	c.out.Put(b)
}

// Close sends a close frame, releases the socket and silences every later
// notification.
func (c *Conn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	ws := c.ws
	c.mu.Unlock()

	c.cancel()
	c.out.Close()
	if ws != nil {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod))
		_ = ws.Close()
	}
}

func (c *Conn) run(ctx context.Context, dialer *websocket.Dialer, target string) {
	ws, resp, err := dialer.DialContext(ctx, target, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		c.end(fmt.Errorf("dial %s: %w", target, err))
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = ws.Close()
		return
	}
	c.ws = ws
	c.mu.Unlock()

	c.logger.Debug("websocket connected", ports.String("url", target))
	c.notify(c.handler.OnOpen)

	go c.writeLoop(ws)
	c.readLoop(ws)
}

func (c *Conn) readLoop(ws *websocket.Conn) {
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.end(nil)
			} else {
				c.end(fmt.Errorf("read: %w", err))
			}
			return
		}
		if len(data) > 0 {
			c.notify(func() { c.handler.OnData(data) })
		}
	}
}

func (c *Conn) writeLoop(ws *websocket.Conn) {
	for {
		select {
		case <-c.out.Ready():
			for _, b := range c.out.Drain() {
				if err := ws.WriteMessage(websocket.BinaryMessage, b); err != nil {
					c.end(fmt.Errorf("write: %w", err))
					return
				}
			}
		case <-c.out.Done():
			return
		}
	}
}

// end reports the terminal notification once: OnError when err is set,
// then OnClose.
func (c *Conn) end(err error) {
	c.endOnce.Do(func() {
		if err != nil {
			c.logger.Debug("websocket transport failed", ports.Err(err))
			c.notify(func() { c.handler.OnError(err) })
		}
		c.notify(c.handler.OnClose)

		c.mu.Lock()
		ws := c.ws
		c.mu.Unlock()
		c.out.Close()
		if ws != nil {
			_ = ws.Close()
		}
	})
}

func (c *Conn) notify(fn func()) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return
	}
	fn()
}
