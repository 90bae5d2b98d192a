package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (STARTSTOP_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("name", os.Getenv("STARTSTOP_NAME"), &cfg.Name)
	s.setString("addr", os.Getenv("STARTSTOP_ADDR"), &cfg.Addr)
	s.setString("state-dir", os.Getenv("STARTSTOP_STATE_DIR"), &cfg.StateDir)
	s.setString("webhook-url", os.Getenv("STARTSTOP_WEBHOOK_URL"), &cfg.WebhookURL)
	s.setString("auth-token", os.Getenv("STARTSTOP_AUTH_TOKEN"), &cfg.AuthToken)
	s.setString("log-level", os.Getenv("STARTSTOP_LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setIntFromString("webhook-attempts", os.Getenv("STARTSTOP_WEBHOOK_ATTEMPTS"), &cfg.WebhookAttempts); err != nil {
		return err
	}

	if err := s.setDuration("timeout", os.Getenv("STARTSTOP_HTTP_TIMEOUT"), &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("shutdown-timeout", os.Getenv("STARTSTOP_SHUTDOWN_TIMEOUT"), &cfg.ShutdownTimeout); err != nil {
		return err
	}

	s.setBoolFromString("watch", os.Getenv("STARTSTOP_WATCH"), &cfg.Watch)
	s.setBoolFromString("once", os.Getenv("STARTSTOP_ONCE"), &cfg.Once)

	return nil
}
