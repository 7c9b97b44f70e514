package relink_test

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/bft-labs/relink/internal/echo"
	"github.com/bft-labs/relink/pkg/frame"
	"github.com/bft-labs/relink/pkg/log"
	"github.com/bft-labs/relink/pkg/relink"
)

// ExampleNew sends one message to an echo peer and prints the reply.
func ExampleNew() {
	// Start a local echo peer
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		fmt.Printf("listen: %v\n", err)
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = echo.NewServer(log.NewNoopLogger(), frame.DefaultLimits()).Serve(ctx, ln) }()

	replies := make(chan relink.DataEvent, 1)
	handler := relink.HandlerFuncs{
		Data: func(ev relink.DataEvent) error {
			replies <- ev
			return nil
		},
	}

	s, err := relink.New(ctx, relink.Config{
		Host: "127.0.0.1",
		Port: ln.Addr().(*net.TCPAddr).Port,
	}, relink.WithEventHandler(handler))
	if err != nil {
		fmt.Printf("failed to create session: %v\n", err)
		return
	}
	defer s.Close()

	// Sending before the link is up is fine; the message is queued.
	id := relink.NewCorrelationID()
	_ = s.Send(id, []byte("hello"))

	select {
	case ev := <-replies:
		fmt.Printf("reply matches: %v, payload: %s\n", ev.CorrelationID == id, ev.Payload)
	case <-time.After(5 * time.Second):
		fmt.Println("no reply")
	}

	// Output: reply matches: true, payload: hello
}

// Example_eventHandler shows a handler that implements every callback.
func Example_eventHandler() {
	s, err := relink.New(context.Background(), relink.Config{Port: 9000},
		relink.WithEventHandler(&printer{}),
		relink.WithReconnectBackoff(30*time.Second),
	)
	if err != nil {
		fmt.Printf("failed to create session: %v\n", err)
		return
	}
	defer s.Close()

	_ = s // Send messages...
}

// printer implements relink.EventHandler and relink.StateChangeHandler.
type printer struct{}

func (printer) OnConnected() error {
	fmt.Println("connected")
	return nil
}

func (printer) OnClosed() error {
	fmt.Println("closed")
	return nil
}

func (printer) OnData(ev relink.DataEvent) error {
	fmt.Printf("%s: %s\n", ev.CorrelationID, ev.Payload)
	return nil
}

func (printer) OnException(err error) {
	fmt.Printf("error: %v\n", err)
}

func (printer) OnStateChange(ev relink.StateChangeEvent) {
	fmt.Printf("%s -> %s (%s)\n", ev.Previous, ev.Current, ev.Reason)
}
