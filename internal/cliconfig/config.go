package cliconfig

import (
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// Transport names accepted by --transport.
const (
	TransportTCP       = "tcp"
	TransportWebSocket = "websocket"
)

// Config holds CLI configuration for relink.
type Config struct {
	Host      string
	Port      int
	Transport string
	WSPath    string

	HeartbeatTicks    int
	TimeoutTicks      int
	TickInterval      time.Duration
	ReconnectDelay    time.Duration
	ReconnectMaxDelay time.Duration
	DialTimeout       time.Duration

	MaxPending      int
	MaxPayloadBytes int

	LogLevel string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Host:            "localhost",
		Transport:       TransportTCP,
		WSPath:          "/",
		HeartbeatTicks:  20,
		TimeoutTicks:    30,
		TickInterval:    time.Second,
		ReconnectDelay:  200 * time.Millisecond,
		DialTimeout:     10 * time.Second,
		MaxPayloadBytes: 8 << 20, // 8MB
		LogLevel:        "info",
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be in 1..65535, got %d", c.Port)
	}

	switch c.Transport {
	case "":
		c.Transport = TransportTCP
	case TransportTCP, TransportWebSocket:
	default:
		return fmt.Errorf("unknown transport %q (want %s or %s)", c.Transport, TransportTCP, TransportWebSocket)
	}
	if c.WSPath == "" {
		c.WSPath = "/"
	}

	if c.HeartbeatTicks <= 0 {
		return fmt.Errorf("heartbeat ticks must be positive")
	}
	if c.TimeoutTicks <= 0 {
		return fmt.Errorf("timeout ticks must be positive")
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive")
	}
	if c.ReconnectDelay <= 0 {
		return fmt.Errorf("reconnect delay must be positive")
	}
	if c.ReconnectMaxDelay != 0 && c.ReconnectMaxDelay < c.ReconnectDelay {
		return fmt.Errorf("reconnect max delay %s is below reconnect delay %s", c.ReconnectMaxDelay, c.ReconnectDelay)
	}
	if c.DialTimeout <= 0 {
		return fmt.Errorf("dial timeout must be positive")
	}
	if c.MaxPending < 0 {
		return fmt.Errorf("max pending must not be negative")
	}
	if c.MaxPayloadBytes <= 0 {
		return fmt.Errorf("max payload bytes must be positive")
	}

	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel converts a level name into a zerolog level. Empty means info.
func ParseLevel(s string) (zerolog.Level, error) {
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("parse log level: %w", err)
	}
	return lvl, nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}
