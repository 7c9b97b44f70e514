package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Host              string `toml:"host"`
	Port              int    `toml:"port"`
	Transport         string `toml:"transport"`
	WSPath            string `toml:"ws_path"`
	Heartbeat         int    `toml:"heartbeat"`
	Timeout           int    `toml:"timeout"`
	TickInterval      string `toml:"tick_interval"`
	ReconnectDelay    string `toml:"reconnect_delay"`
	ReconnectMaxDelay string `toml:"reconnect_max_delay"`
	DialTimeout       string `toml:"dial_timeout"`
	MaxPending        int    `toml:"max_pending"`
	MaxPayloadBytes   int    `toml:"max_payload_bytes"`
	LogLevel          string `toml:"log_level"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.relink/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".relink", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("host", fc.Host, &cfg.Host)
	s.setString("transport", fc.Transport, &cfg.Transport)
	s.setString("ws-path", fc.WSPath, &cfg.WSPath)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	if err := s.setDuration("tick-interval", fc.TickInterval, &cfg.TickInterval); err != nil {
		return err
	}
	if err := s.setDuration("reconnect-delay", fc.ReconnectDelay, &cfg.ReconnectDelay); err != nil {
		return err
	}
	if err := s.setDuration("reconnect-max-delay", fc.ReconnectMaxDelay, &cfg.ReconnectMaxDelay); err != nil {
		return err
	}

	if err := s.setDuration("dial-timeout", fc.DialTimeout, &cfg.DialTimeout); err != nil {
		return err
	}

	s.setInt("port", fc.Port, &cfg.Port)
	s.setInt("heartbeat", fc.Heartbeat, &cfg.HeartbeatTicks)
	s.setInt("timeout", fc.Timeout, &cfg.TimeoutTicks)
	s.setInt("max-pending", fc.MaxPending, &cfg.MaxPending)
	s.setInt("max-payload-bytes", fc.MaxPayloadBytes, &cfg.MaxPayloadBytes)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
