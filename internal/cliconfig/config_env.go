package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (LOCALDRIVER_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("name", os.Getenv(EnvPrefix+"NAME"), &cfg.Name)
	s.setString("host", os.Getenv(EnvPrefix+"HOST"), &cfg.Host)
	s.setString("routes", resolve(os.Getenv(EnvPrefix+"ROUTES_FILE")), &cfg.RoutesFile)
	s.setString("log-level", os.Getenv(EnvPrefix+"LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setIntFromString("port", os.Getenv(EnvPrefix+"PORT"), &cfg.Port); err != nil {
		return err
	}
	if err := s.setDuration("tts", os.Getenv(EnvPrefix+"TTS"), &cfg.TTS); err != nil {
		return err
	}

	s.setBoolFromString("metrics", os.Getenv(EnvPrefix+"METRICS"), &cfg.Metrics)
	s.setBoolFromString("watch", os.Getenv(EnvPrefix+"WATCH"), &cfg.Watch)

	return nil
}
