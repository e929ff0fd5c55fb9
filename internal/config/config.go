// Package config loads the service configuration from the environment.
package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

// Config is the process-level configuration. Scenario data is deliberately
// not here: scenarios are explicit inputs, loaded per run.
type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	}
	Logging struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
	Solver struct {
		PopulationSize int     `env:"SOLVER_POPULATION" envDefault:"0"`
		MaxIterations  int     `env:"SOLVER_MAX_ITERATIONS" envDefault:"800"`
		Tolerance      float64 `env:"SOLVER_TOLERANCE" envDefault:"0.01"`
		Boundary       string  `env:"SOLVER_BOUNDARY" envDefault:"reflect"`
		ArchiveSize    int     `env:"SOLVER_ARCHIVE_SIZE" envDefault:"100"`
		ShrinkPop      bool    `env:"SOLVER_SHRINK_POPULATION" envDefault:"true"`
	}
}

// Load parses the environment into a Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if cfg.Environment == "development" && cfg.Logging.Level == "" {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}
