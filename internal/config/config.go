package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"

	"price-recon/internal/reconcile/model"
)

type Config struct {
	Host         string   `envconfig:"HOST" default:"127.0.0.1"`
	Port         int      `envconfig:"PORT" default:"8082"`
	AllowOrigins []string `envconfig:"ALLOW_ORIGINS" default:"*"`
	LogLevel     string   `envconfig:"LOG_LEVEL" default:"info"`
	LogFile      string   `envconfig:"LOG_FILE" default:"logs/price-recon.log"`
	MaxUploadMB  int      `envconfig:"MAX_UPLOAD_MB" default:"64"`

	DBDriver string `envconfig:"DB_DRIVER" default:"sqlite"`
	DBDSN    string `envconfig:"DB_DSN" default:"file:price-recon.db"`

	CanonicalSource  string `envconfig:"CANONICAL_SOURCE" default:"visuar"`
	AutoAccept       int    `envconfig:"AUTO_ACCEPT" default:"85"`
	MinFloor         int    `envconfig:"MIN_FLOOR" default:"35"`
	CompareThreshold int    `envconfig:"COMPARE_THRESHOLD" default:"90"`

	IngestWorkers    int `envconfig:"INGEST_WORKERS" default:"4"`
	IngestRatePerMin int `envconfig:"INGEST_RATE_PER_MIN" default:"30"`
}

// Load reads the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("read env: %w", err)
	}
	for i, o := range cfg.AllowOrigins {
		cfg.AllowOrigins[i] = strings.TrimSpace(o)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

func (c Config) Thresholds() model.Thresholds {
	return model.Thresholds{AutoAccept: c.AutoAccept, MinFloor: c.MinFloor}
}

func (c Config) Validate() error {
	var errs []error
	if c.DBDriver != "sqlite" && c.DBDriver != "postgres" {
		errs = append(errs, fmt.Errorf("DB_DRIVER must be sqlite or postgres, got %q", c.DBDriver))
	}
	if c.DBDSN == "" {
		errs = append(errs, errors.New("DB_DSN is empty"))
	}
	if c.CanonicalSource == "" {
		errs = append(errs, errors.New("CANONICAL_SOURCE is empty"))
	}
	if err := c.Thresholds().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("MIN_FLOOR/AUTO_ACCEPT: %w", err))
	}
	if c.CompareThreshold < 0 || c.CompareThreshold > 100 {
		errs = append(errs, fmt.Errorf("COMPARE_THRESHOLD out of range: %d", c.CompareThreshold))
	}
	if c.IngestWorkers < 1 {
		errs = append(errs, fmt.Errorf("INGEST_WORKERS must be positive, got %d", c.IngestWorkers))
	}
	if c.IngestRatePerMin < 1 {
		errs = append(errs, fmt.Errorf("INGEST_RATE_PER_MIN must be positive, got %d", c.IngestRatePerMin))
	}
	if c.MaxUploadMB < 1 {
		errs = append(errs, fmt.Errorf("MAX_UPLOAD_MB must be positive, got %d", c.MaxUploadMB))
	}
	return errors.Join(errs...)
}
