// Package relink is the short import path for the relink client session.
//
// Example usage:
//
//	s, err := relink.Dial(ctx, "localhost", 9000, relink.HandlerFuncs{
//	    Data: func(ev relink.DataEvent) error {
//	        fmt.Printf("%s %s\n", ev.CorrelationID, ev.Payload)
//	        return nil
//	    },
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//	_ = s.Send(relink.NewCorrelationID(), []byte("hello"))
//
// The full API, including options and plugins, lives in pkg/relink.
package relink

import (
	"context"

	"github.com/google/uuid"

	"github.com/bft-labs/relink/pkg/relink"
)

// Session is a self-healing client session. See relink.Session in pkg/relink.
type Session = relink.Session

// Config configures a Session.
type Config = relink.Config

// EventHandler receives session events.
type EventHandler = relink.EventHandler

// HandlerFuncs adapts plain functions to EventHandler.
type HandlerFuncs = relink.HandlerFuncs

// DataEvent carries one received DATA message.
type DataEvent = relink.DataEvent

// Option configures optional behavior of a Session.
type Option = relink.Option

// New validates cfg, creates a session and starts connecting in the
// background.
func New(ctx context.Context, cfg Config, opts ...Option) (*Session, error) {
	return relink.New(ctx, cfg, opts...)
}

// Dial starts a session to host:port with default settings and h as its
// only event handler.
func Dial(ctx context.Context, host string, port int, h EventHandler, opts ...Option) (*Session, error) {
	opts = append([]Option{relink.WithEventHandler(h)}, opts...)
	return relink.New(ctx, Config{Host: host, Port: port}, opts...)
}

// NewCorrelationID returns a random correlation id.
func NewCorrelationID() uuid.UUID {
	return relink.NewCorrelationID()
}

// Version is the library version.
const Version = relink.Version
