package config

import (
	"errors"
	"fmt"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// DevSSNKey seals SSNs when SSN_KEY is unset. Never use it outside development.
const DevSSNKey = "mcacrm-development-only-ssn-key"

type Config struct {
	Port         string `env:"PORT,default=8081"`
	DBDriver     string `env:"DB_DRIVER,default=sqlite"`
	DBDSN        string `env:"DB_DSN,default=file:mcacrm.db"`
	LogLevel     string `env:"LOG_LEVEL,default=info"`
	LogFile      string `env:"LOG_FILE"`
	AutoMigrate  bool   `env:"AUTO_MIGRATE,default=true"`
	SSNKey       string `env:"SSN_KEY"`
	BodyLimit    int    `env:"BODY_LIMIT,default=1048576"`
	RateLimit    int    `env:"RATE_LIMIT,default=120"`
	TemplatesDir string `env:"TEMPLATES_DIR"`
}

// Load reads an optional .env file, then decodes the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("[config] no .env file loaded")
	}
	return FromEnv()
}

// FromEnv decodes the current environment without touching .env files.
func FromEnv() (Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("decode env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	if cfg.SSNKey == "" {
		log.Warn().Msg("[config] SSN_KEY unset, using development key")
		cfg.SSNKey = DevSSNKey
	}
	log.Info().
		Str("port", cfg.Port).
		Str("db_driver", cfg.DBDriver).
		Bool("auto_migrate", cfg.AutoMigrate).
		Str("log_level", cfg.LogLevel).
		Str("log_file", cfg.LogFile).
		Msg("[config] loaded")
	return cfg, nil
}

func (c Config) validate() error {
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("DB_DRIVER must be sqlite or postgres, got %q", c.DBDriver)
	}
	if c.BodyLimit <= 0 {
		return fmt.Errorf("BODY_LIMIT must be positive, got %d", c.BodyLimit)
	}
	if c.RateLimit <= 0 {
		return fmt.Errorf("RATE_LIMIT must be positive, got %d", c.RateLimit)
	}
	return nil
}

// Addr is the listen address derived from Port.
func (c Config) Addr() string { return ":" + c.Port }
