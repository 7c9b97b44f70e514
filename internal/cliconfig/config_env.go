package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (RELINK_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("host", os.Getenv("RELINK_HOST"), &cfg.Host)
	s.setString("transport", os.Getenv("RELINK_TRANSPORT"), &cfg.Transport)
	s.setString("ws-path", os.Getenv("RELINK_WS_PATH"), &cfg.WSPath)
	s.setString("log-level", os.Getenv("RELINK_LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setDuration("tick-interval", os.Getenv("RELINK_TICK_INTERVAL"), &cfg.TickInterval); err != nil {
		return err
	}
	if err := s.setDuration("reconnect-delay", os.Getenv("RELINK_RECONNECT_DELAY"), &cfg.ReconnectDelay); err != nil {
		return err
	}
	if err := s.setDuration("reconnect-max-delay", os.Getenv("RELINK_RECONNECT_MAX_DELAY"), &cfg.ReconnectMaxDelay); err != nil {
		return err
	}

	if err := s.setDuration("dial-timeout", os.Getenv("RELINK_DIAL_TIMEOUT"), &cfg.DialTimeout); err != nil {
		return err
	}

	if err := s.setIntFromString("port", os.Getenv("RELINK_PORT"), &cfg.Port); err != nil {
		return err
	}
	if err := s.setIntFromString("heartbeat", os.Getenv("RELINK_HEARTBEAT"), &cfg.HeartbeatTicks); err != nil {
		return err
	}
	if err := s.setIntFromString("timeout", os.Getenv("RELINK_TIMEOUT"), &cfg.TimeoutTicks); err != nil {
		return err
	}
	if err := s.setIntFromString("max-pending", os.Getenv("RELINK_MAX_PENDING"), &cfg.MaxPending); err != nil {
		return err
	}
	if err := s.setIntFromString("max-payload-bytes", os.Getenv("RELINK_MAX_PAYLOAD_BYTES"), &cfg.MaxPayloadBytes); err != nil {
		return err
	}

	return nil
}
