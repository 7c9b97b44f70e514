// Package echo implements a reference peer for the relink wire protocol.
// It answers every PING with a PING and every DATA with the same DATA, over
// TCP or WebSocket. It backs the `relink echo` command and the end-to-end
// tests.
package echo

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/bft-labs/relink/internal/app"
	"github.com/bft-labs/relink/internal/ports"
	"github.com/bft-labs/relink/pkg/frame"
)

// Server is an echo peer.
type Server struct {
	logger   ports.Logger
	limits   frame.Limits
	upgrader websocket.Upgrader

	silent atomic.Bool

	mu    sync.Mutex
	conns map[io.Closer]struct{}
	wg    sync.WaitGroup
}

// NewServer creates an echo server enforcing limits on inbound frames.
func NewServer(logger ports.Logger, limits frame.Limits) *Server {
	if limits.MaxPayloadBytes == 0 {
		limits = frame.DefaultLimits()
	}
	return &Server{
		logger: logger,
		limits: limits,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		conns: make(map[io.Closer]struct{}),
	}
}

// SetSilent makes the server keep reading but stop answering. A silent
// peer is what a client's liveness timeout is meant to detect.
func (s *Server) SetSilent(silent bool) {
	s.silent.Store(silent)
}

// DropAll closes every open connection.
func (s *Server) DropAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		_ = c.Close()
	}
}

// Conns returns the number of open connections.
func (s *Server) Conns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Serve accepts TCP connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
		s.DropAll()
	}()

	s.logger.Info("echo server listening", ports.String("addr", ln.Addr().String()))
	for {
		c, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.wg.Wait()
				return nil
			}
			return err
		}
		s.track(c)
		if ctx.Err() != nil {
			s.untrack(c)
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(c)
			s.serveTCP(c)
		}()
	}
}

func (s *Server) serveTCP(c net.Conn) {
	remote := c.RemoteAddr().String()
	s.logger.Debug("peer connected", ports.String("remote", remote))

	r := bufio.NewReader(c)
	w := bufio.NewWriter(c)
	for {
		msg, err := frame.ReadMessage(r, s.limits)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				s.logger.Warn("read failed", ports.String("remote", remote), ports.Err(err))
			}
			return
		}
		if s.silent.Load() {
			continue
		}
		if err := frame.WriteMessage(w, msg); err != nil {
			s.logger.Warn("write failed", ports.String("remote", remote), ports.Err(err))
			return
		}
		if r.Buffered() == 0 {
			if err := w.Flush(); err != nil {
				return
			}
		}
	}
}

// ServeHTTP upgrades the request to a WebSocket and echoes frames back,
// one binary message per frame.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", ports.Err(err))
		return
	}
	s.track(ws)
	defer s.untrack(ws)

	remote := r.RemoteAddr
	s.logger.Debug("websocket peer connected", ports.String("remote", remote))

	inbound := app.NewReassembler(s.limits)
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}

		var writeErr error
		feedErr := inbound.Feed(data, func(msg frame.Message) {
			if writeErr != nil || s.silent.Load() {
				return
			}
			b, err := frame.Encode(msg)
			if err != nil {
				writeErr = err
				return
			}
			writeErr = ws.WriteMessage(websocket.BinaryMessage, b)
		})
		if feedErr != nil {
			s.logger.Warn("malformed frame", ports.String("remote", remote), ports.Err(feedErr))
			return
		}
		if writeErr != nil {
			return
		}
	}
}

func (s *Server) track(c io.Closer) {
	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrack(c io.Closer) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
	_ = c.Close()
}
