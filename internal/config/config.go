// Package config loads server configuration from a YAML file with
// environment-variable overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"
)

// Config is the root configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Engine  EngineConfig  `mapstructure:"engine"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig configures the HTTP/WebSocket listener.
type ServerConfig struct {
	HTTPAddress string `mapstructure:"http_address"`
	// DeltaRatioThreshold is the minimum compression ratio at which the
	// transport sends a delta instead of a full state.
	DeltaRatioThreshold float64 `mapstructure:"delta_ratio_threshold"`
}

// EngineConfig configures the synchronization engine.
type EngineConfig struct {
	HistoryCapacity int `mapstructure:"history_capacity"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads the configuration file at path, applying defaults and
// SYNCSERVER_* environment overrides. A missing file is not an error;
// defaults apply.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.http_address", ":8080")
	v.SetDefault("server.delta_ratio_threshold", 0.3)
	v.SetDefault("engine.history_capacity", 100)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetEnvPrefix("SYNCSERVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	if cfg.Engine.HistoryCapacity < 1 {
		return nil, fmt.Errorf("engine.history_capacity must be positive, got %d", cfg.Engine.HistoryCapacity)
	}
	return &cfg, nil
}
