package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bft-labs/relink/internal/cliconfig"
	"github.com/bft-labs/relink/internal/echo"
	"github.com/bft-labs/relink/pkg/frame"
	"github.com/bft-labs/relink/pkg/log"
)

func (c *cli) echoCommand() *cobra.Command {
	var silent bool

	cmd := &cobra.Command{
		Use:   "echo",
		Short: "Run a peer that answers every frame with itself",
		Long: `Listen on --host:--port and answer every PING with a PING and every DATA
with the same DATA. With --transport websocket the peer serves --ws-path
over HTTP. --silent keeps connections open but never answers, which makes
clients hit their timeout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := c.load(cmd); err != nil {
				return err
			}
			return c.runEcho(silent)
		},
	}
	cmd.Flags().BoolVar(&silent, "silent", false, "read but never answer")
	return cmd
}

func (c *cli) runEcho(silent bool) error {
	logger := log.NewZerologAdapterWithLogger(c.log)
	srv := echo.NewServer(logger, frame.Limits{MaxPayloadBytes: uint32(c.cfg.MaxPayloadBytes)})
	srv.SetSilent(silent)

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
			c.log.Info().Msg("received signal, stopping...")
			cancel()
		case <-ctx.Done():
		}
	}()

	addr := net.JoinHostPort(c.cfg.Host, strconv.Itoa(c.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	c.log.Info().Str("addr", ln.Addr().String()).Str("transport", c.cfg.Transport).Msg("echo peer listening")

	if c.cfg.Transport != cliconfig.TransportWebSocket {
		return srv.Serve(ctx, ln)
	}

	mux := http.NewServeMux()
	mux.Handle(c.cfg.WSPath, srv)
	hs := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- hs.Serve(ln)
	}()

	select {
	case err := <-errCh:
		srv.DropAll()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	err = hs.Shutdown(shutdownCtx)
	// Upgraded connections are hijacked and not closed by Shutdown.
	srv.DropAll()
	return err
}
