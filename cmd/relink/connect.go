package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bft-labs/relink/pkg/log"
	"github.com/bft-labs/relink/pkg/relink"
	"github.com/bft-labs/relink/plugins/configwatcher"
)

func (c *cli) connectCommand() *cobra.Command {
	var linger time.Duration

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Send stdin lines to a peer and print its replies",
		Long: `Connect to a peer and keep the link alive. Every stdin line is sent as
one DATA message under a fresh correlation id; every DATA message received
is printed as "<correlation-id> <payload>". Lines typed while the link is
down are queued and sent once it is back.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile, err := c.load(cmd)
			if err != nil {
				return err
			}
			return c.runConnect(cmd.InOrStdin(), cmd.OutOrStdout(), cfgFile, linger)
		},
	}
	cmd.Flags().DurationVar(&linger, "linger", time.Second, "how long to wait for replies after stdin ends")
	return cmd
}

func (c *cli) runConnect(in io.Reader, out io.Writer, cfgFile string, linger time.Duration) error {
	logger := log.NewZerologAdapterWithLogger(c.log)

	opts := []relink.Option{
		relink.WithLogger(logger),
		relink.WithEventHandler(c.printer(out)),
	}
	if c.cfg.ReconnectMaxDelay > 0 {
		opts = append(opts, relink.WithReconnectBackoff(c.cfg.ReconnectMaxDelay))
	}
	// Reload heartbeat/timeout when the config file changes
	if cfgFile != "" {
		opts = append(opts, configwatcher.WithDefaultConfigWatcher(cfgFile))
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	s, err := relink.New(ctx, c.sessionConfig(), opts...)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	defer s.Close()

	eof := make(chan error, 1)
	go func() {
		eof <- c.pump(s, in)
	}()

	select {
	case <-sigCh:
		c.log.Info().Msg("received signal, stopping...")
	case err := <-eof:
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		c.log.Debug().Dur("linger", linger).Msg("stdin closed, waiting for replies")
		select {
		case <-sigCh:
		case <-time.After(linger):
		}
	}

	s.Close()
	<-s.Done()
	return nil
}

// pump sends every line of in as one DATA message.
func (c *cli) pump(s *relink.Session, in io.Reader) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), c.cfg.MaxPayloadBytes+1)
	for sc.Scan() {
		id := relink.NewCorrelationID()
		if err := s.Send(id, sc.Bytes()); err != nil {
			if errors.Is(err, relink.ErrSessionClosed) {
				return nil
			}
			c.log.Warn().Err(err).Str("correlation_id", id.String()).Msg("message not sent")
			continue
		}
		c.log.Debug().Str("correlation_id", id.String()).Msg("message sent")
	}
	return sc.Err()
}

// printer writes received DATA to out and session events to the log.
func (c *cli) printer(out io.Writer) relink.HandlerFuncs {
	return relink.HandlerFuncs{
		Connected: func() error {
			c.log.Info().Msg("connected")
			return nil
		},
		Closed: func() error {
			c.log.Info().Msg("closed")
			return nil
		},
		Data: func(ev relink.DataEvent) error {
			_, err := fmt.Fprintf(out, "%s %s\n", ev.CorrelationID, ev.Payload)
			return err
		},
		Exception: func(err error) {
			c.log.Warn().Err(err).Msg("exception")
		},
	}
}
