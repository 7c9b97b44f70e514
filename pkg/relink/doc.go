// Package relink provides a self-healing, message-oriented client session
// over a persistent duplex byte stream.
//
// A [Session] dials a single peer, keeps the link alive with periodic
// heartbeats, drops it when nothing has been heard for a configurable
// number of ticks and redials after a short delay. Messages sent while
// the link is down are queued and flushed in order once it is back.
// Every message carries a 16-byte correlation identifier chosen by the
// sender; the peer echoes it in replies so the caller can match them.
//
// # Basic Usage
//
//	s, err := relink.New(ctx, relink.Config{Host: "localhost", Port: 9000},
//	    relink.WithEventHandler(relink.HandlerFuncs{
//	        Data: func(ev relink.DataEvent) error {
//	            fmt.Printf("%s: %s\n", ev.CorrelationID, ev.Payload)
//	            return nil
//	        },
//	    }),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//
//	_ = s.Send(relink.NewCorrelationID(), []byte("hello"))
//
// # Events
//
// Handlers registered with [WithEventHandler] are told when the link comes
// up (connected), goes down for any reason (closed), when a DATA message
// arrives (data) and when something goes wrong (exception). All callbacks
// run on the session goroutine, one at a time and in order. Handlers may
// call [Session.Send] and [Session.Close] from inside a callback.
//
// An error returned by a handler, or a panic inside one, is reported to
// every handler's OnException as a [*HandlerError].
//
// # Ticks
//
// Liveness is measured in ticks of [Config.TickInterval]. A heartbeat is
// sent every [Config.HeartbeatTicks] ticks while connected; the connection
// is dropped once [Config.TimeoutTicks] ticks pass without inbound bytes.
//
// # Lifecycle
//
// A session is either [StateDisconnected], [StateConnecting] or
// [StateConnected]. [Session.Close], or cancelling the context passed to
// [New], ends the session for good; [Session.Done] is closed once it has
// fully shut down.
package relink
