// Package netconn implements ports.Dialer over plain TCP.
package netconn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/bft-labs/relink/internal/mailbox"
	"github.com/bft-labs/relink/internal/ports"
)

const (
	defaultDialTimeout = 10 * time.Second
	readBufferSize     = 32 * 1024
)

// Dialer implements ports.Dialer using TCP sockets.
type Dialer struct {
	logger      ports.Logger
	dialTimeout time.Duration
}

// NewDialer creates a new TCP dialer. A zero dialTimeout uses 10s.
func NewDialer(logger ports.Logger, dialTimeout time.Duration) *Dialer {
	if dialTimeout <= 0 {
		dialTimeout = defaultDialTimeout
	}
	return &Dialer{
		logger:      logger,
		dialTimeout: dialTimeout,
	}
}

// Dial starts connecting in the background and returns at once.
func (d *Dialer) Dial(host string, port int, h ports.TransportHandler) ports.Transport {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Conn{
		handler: h,
		logger:  d.logger,
		cancel:  cancel,
		out:     mailbox.New[[]byte](),
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	go c.run(ctx, addr, d.dialTimeout)
	return c
}

// Conn is one TCP transport. It is safe for concurrent use.
type Conn struct {
	handler ports.TransportHandler
	logger  ports.Logger
	cancel  context.CancelFunc
	out     *mailbox.Mailbox[[]byte]

	mu     sync.Mutex
	nc     net.Conn
	closed bool

	endOnce sync.Once
}

// Write queues b for the writer goroutine. b must not be modified afterwards.
func (c *Conn) Write(b []byte) {
	c.out.Put(b)
}

// Close releases the socket and silences every later notification.
func (c *Conn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	nc := c.nc
	c.mu.Unlock()

	c.cancel()
	c.out.Close()
	if nc != nil {
		_ = nc.Close()
	}
}

func (c *Conn) run(ctx context.Context, addr string, timeout time.Duration) {
	nd := net.Dialer{Timeout: timeout}
	nc, err := nd.DialContext(ctx, "tcp", addr)
	if err != nil {
		c.end(fmt.Errorf("dial %s: %w", addr, err))
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = nc.Close()
		return
	}
	c.nc = nc
	c.mu.Unlock()

	if tcp, ok := nc.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
	}

	c.logger.Debug("tcp connected", ports.String("addr", addr))
	c.notify(c.handler.OnOpen)

	go c.writeLoop(nc)
	c.readLoop(nc)
}

func (c *Conn) readLoop(nc net.Conn) {
	buf := make([]byte, readBufferSize)
	for {
		n, err := nc.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			c.notify(func() { c.handler.OnData(chunk) })
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				c.end(nil)
			} else {
				c.end(fmt.Errorf("read: %w", err))
			}
			return
		}
	}
}

func (c *Conn) writeLoop(nc net.Conn) {
	for {
		select {
		case <-c.out.Ready():
			for _, b := range c.out.Drain() {
				if _, err := nc.Write(b); err != nil {
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
// then OnClose. The socket is torn down afterwards.
func (c *Conn) end(err error) {
	c.endOnce.Do(func() {
		if err != nil {
			c.logger.Debug("tcp transport failed", ports.Err(err))
			c.notify(func() { c.handler.OnError(err) })
		}
		c.notify(c.handler.OnClose)

		c.mu.Lock()
		nc := c.nc
		c.mu.Unlock()
		c.out.Close()
		if nc != nil {
			_ = nc.Close()
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
