// Package config loads server settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config controls the duel server process.
type Config struct {
	Addr            string        `env:"DUEL_ARENA_ADDR"             envDefault:":8080"`
	LogSinks        []string      `env:"DUEL_ARENA_LOG_SINKS"        envSeparator:"," envDefault:"console"`
	LogBufferSize   int           `env:"DUEL_ARENA_LOG_BUFFER"       envDefault:"512"`
	LogJSONPath     string        `env:"DUEL_ARENA_LOG_JSON_PATH"`
	LogFlushEvery   time.Duration `env:"DUEL_ARENA_LOG_FLUSH"        envDefault:"2s"`
	LogDebugEvents  bool          `env:"DUEL_ARENA_LOG_DEBUG"        envDefault:"false"`
	ShutdownTimeout time.Duration `env:"DUEL_ARENA_SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// LoadFromEnv parses the environment into a Config.
func LoadFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
