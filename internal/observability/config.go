package observability

import (
	appconfig "github.com/salasbeats/marketplace/internal/config"
)

// Config carries the observability-facing subset of application config.
type Config struct {
	ServiceName  string
	Version      string
	Environment  string
	LogLevel     string
	OtelEnabled  bool
	OtelEndpoint string
}

func LoadConfig(cfg appconfig.Config) Config {
	return Config{
		ServiceName:  cfg.AppName,
		Version:      cfg.AppVersion,
		Environment:  cfg.Environment,
		LogLevel:     cfg.LogLevel,
		OtelEnabled:  cfg.OTLPEnabled,
		OtelEndpoint: cfg.OTLPEndpoint,
	}
}

func (c Config) Debug() bool {
	return c.Environment != "production"
}
