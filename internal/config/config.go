package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`

	LeadsAPIURL     string        `env:"LEADS_API_URL" envDefault:"http://localhost:8000/api"`
	LeadsAPITimeout time.Duration `env:"LEADS_API_TIMEOUT" envDefault:"30s"`
	ActionTimeout   time.Duration `env:"ACTION_TIMEOUT" envDefault:"2m"`

	SearchGrace     time.Duration `env:"SEARCH_GRACE" envDefault:"5s"`
	CacheTTL        time.Duration `env:"CACHE_TTL" envDefault:"5m"`
	SweepInterval   time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`
	HandleRetention time.Duration `env:"HANDLE_RETENTION" envDefault:"1h"`
	ListLimit       int           `env:"LIST_LIMIT" envDefault:"100"`
	StatsLimit      int           `env:"STATS_LIMIT" envDefault:"10000"`

	RateLimit      int           `env:"RATE_LIMIT" envDefault:"30"`
	RateWindow     time.Duration `env:"RATE_WINDOW" envDefault:"1m"`
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	// Optional integrations; empty disables them.
	DatabaseURL string `env:"DATABASE_URL"`
	AMQPURL     string `env:"AMQP_URL"`

	SMTPHost      string `env:"SMTP_HOST"`
	SMTPPort      int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser      string `env:"SMTP_USER"`
	SMTPPass      string `env:"SMTP_PASS"`
	AlertFrom     string `env:"ALERT_FROM"`
	OperatorEmail string `env:"OPERATOR_EMAIL"`
}

// Load reads an optional .env file and parses the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	u, err := url.Parse(c.LeadsAPIURL)
	if c.LeadsAPIURL == "" || err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("LEADS_API_URL %q is not an absolute url", c.LeadsAPIURL))
	}
	if c.SearchGrace <= 0 {
		errs = append(errs, errors.New("SEARCH_GRACE must be positive"))
	}
	if c.LeadsAPITimeout <= 0 || c.ActionTimeout <= 0 {
		errs = append(errs, errors.New("LEADS_API_TIMEOUT and ACTION_TIMEOUT must be positive"))
	}
	if c.SweepInterval <= 0 {
		errs = append(errs, errors.New("SWEEP_INTERVAL must be positive"))
	}
	if c.RateLimit <= 0 || c.RateWindow <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT and RATE_WINDOW must be positive"))
	}
	return errors.Join(errs...)
}

// AlertsEnabled reports whether failure alerts can be mailed.
func (c *Config) AlertsEnabled() bool {
	return c.SMTPHost != "" && c.OperatorEmail != ""
}
