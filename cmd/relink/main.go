package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/relink/internal/cliconfig"
	"github.com/bft-labs/relink/pkg/relink"
)

const helpDescription = `
Keep one framed link to a peer alive across drops.

Highlights:
  - Sends a heartbeat every N ticks and drops the link after M silent ticks.
  - Reconnects on its own and replays messages queued while it was down.
  - Speaks the same frames over TCP or WebSocket; configure via file, env, or flags.

'relink connect' sends each stdin line as a DATA message and prints replies.
'relink echo' runs a peer that answers every frame with itself.
`

var exampleUsage = strings.TrimSpace(`
  relink echo --port 9000
  relink connect --port 9000 --heartbeat 5 --timeout 15
  relink connect --config $HOME/.relink/config.toml --transport websocket
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}

// cli holds state shared by the subcommands.
type cli struct {
	cfg     cliconfig.Config
	cfgPath string
	log     zerolog.Logger
}

func main() {
	c := &cli{
		cfg: cliconfig.DefaultConfig(),
		log: cliconfig.Logger(zerolog.InfoLevel),
	}

	root := &cobra.Command{
		Use:           "relink",
		Short:         "Keep one framed link to a peer alive across drops",
		Long:          strings.TrimSpace(helpDescription),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s (protocol %s) %s/%s", getVersion(), relink.Version, runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Flags
	f := root.PersistentFlags()
	f.StringVar(&c.cfgPath, "config", "", "path to config file (default: $HOME/.relink/config.toml)")
	f.StringVar(&c.cfg.Host, "host", c.cfg.Host, "peer host (listen host for echo)")
	f.IntVar(&c.cfg.Port, "port", c.cfg.Port, "peer port (listen port for echo)")
	f.StringVar(&c.cfg.Transport, "transport", c.cfg.Transport, "transport: tcp or websocket")
	f.StringVar(&c.cfg.WSPath, "ws-path", c.cfg.WSPath, "request path for the websocket transport")

	f.IntVar(&c.cfg.HeartbeatTicks, "heartbeat", c.cfg.HeartbeatTicks, "ticks between heartbeats")
	f.IntVar(&c.cfg.TimeoutTicks, "timeout", c.cfg.TimeoutTicks, "ticks without inbound traffic before reconnecting")
	f.DurationVar(&c.cfg.TickInterval, "tick-interval", c.cfg.TickInterval, "length of one tick")
	f.DurationVar(&c.cfg.ReconnectDelay, "reconnect-delay", c.cfg.ReconnectDelay, "pause before redialing")
	f.DurationVar(&c.cfg.ReconnectMaxDelay, "reconnect-max-delay", c.cfg.ReconnectMaxDelay, "enable exponential reconnect backoff up to this delay")
	f.DurationVar(&c.cfg.DialTimeout, "dial-timeout", c.cfg.DialTimeout, "bound on a single connection attempt")

	f.IntVar(&c.cfg.MaxPending, "max-pending", c.cfg.MaxPending, "bound on messages queued while disconnected (0 = unbounded)")
	f.IntVar(&c.cfg.MaxPayloadBytes, "max-payload-bytes", c.cfg.MaxPayloadBytes, "largest accepted DATA payload")
	f.StringVar(&c.cfg.LogLevel, "log-level", c.cfg.LogLevel, "log level: debug, info, warn, error")

	root.AddCommand(c.connectCommand(), c.echoCommand())

	if err := root.Execute(); err != nil {
		c.log.Error().Err(err).Msg("relink")
		os.Exit(1)
	}
}

// load resolves the configuration: defaults, then the config file, then
// RELINK_* variables, then flags. It returns the config file path when
// one was used.
func (c *cli) load(cmd *cobra.Command) (string, error) {
	// Determine config path
	cfgFile := c.cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	// Build set of changed flags
	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	used := ""
	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return "", fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(&c.cfg, fc, changed); err != nil {
			return "", err
		}
		used = cfgFile
	} else if c.cfgPath != "" {
		return "", fmt.Errorf("config file %s not found", c.cfgPath)
	}

	// Apply environment variables (RELINK_*)
	// These override file config but are overridden by flags (checked via changed map)
	if err := cliconfig.ApplyEnvConfig(&c.cfg, changed); err != nil {
		return "", err
	}

	// Validate and set derived defaults
	if err := c.cfg.Validate(); err != nil {
		return "", err
	}

	lvl, err := cliconfig.ParseLevel(c.cfg.LogLevel)
	if err != nil {
		return "", err
	}
	c.log = cliconfig.Logger(lvl)
	c.log.Info().Interface("config", c.cfg).Str("config_file", used).Msg("configuration")

	return used, nil
}

// sessionConfig converts the CLI configuration into a session Config.
func (c *cli) sessionConfig() relink.Config {
	return relink.Config{
		Host:            c.cfg.Host,
		Port:            c.cfg.Port,
		HeartbeatTicks:  c.cfg.HeartbeatTicks,
		TimeoutTicks:    c.cfg.TimeoutTicks,
		TickInterval:    c.cfg.TickInterval,
		ReconnectDelay:  c.cfg.ReconnectDelay,
		MaxPending:      c.cfg.MaxPending,
		MaxPayloadBytes: c.cfg.MaxPayloadBytes,
		Transport:       relink.TransportKind(c.cfg.Transport),
		WebSocketPath:   c.cfg.WSPath,
		DialTimeout:     c.cfg.DialTimeout,
	}
}
