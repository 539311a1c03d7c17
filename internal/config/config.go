// internal/config/config.go

// Package config loads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Fine policy names accepted by FINE_POLICY.
const (
	FinePolicyDaily  = "daily"
	FinePolicyGrace  = "grace"
	FinePolicyCapped = "capped"
)

type Config struct {
	HTTPPort     string
	DatabaseURL  string
	LogLevel     string
	LogFormat    string
	ServiceName  string
	OTLPEndpoint string

	LoanPeriod time.Duration

	FinePolicy    string
	FineDailyRate int64
	FineGrace     time.Duration
	FineCap       int64

	OverdueSweepSchedule string
	AuditSchedule        string

	RegistrationRatePerMinute int
}

// Load reads .env files (if present) and then the process environment.
// Variables already set in the environment win over .env entries.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	var p parser
	cfg := &Config{
		HTTPPort:     getEnvOrDefault("HTTP_PORT", "8082"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		LogLevel:     getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:    getEnvOrDefault("LOG_FORMAT", "json"),
		ServiceName:  getEnvOrDefault("SERVICE_NAME", "libralend-circulation"),
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),

		LoanPeriod: p.duration("LOAN_PERIOD", 72*time.Hour),

		FinePolicy:    getEnvOrDefault("FINE_POLICY", FinePolicyDaily),
		FineDailyRate: p.int64("FINE_DAILY_RATE_MINOR", 100),
		FineGrace:     p.duration("FINE_GRACE_PERIOD", 24*time.Hour),
		FineCap:       p.int64("FINE_CAP_MINOR", 2000),

		OverdueSweepSchedule: getEnvOrDefault("OVERDUE_SWEEP_SCHEDULE", "@hourly"),
		AuditSchedule:        getEnvOrDefault("AUDIT_SCHEDULE", "@every 15m"),

		RegistrationRatePerMinute: int(p.int64("REGISTRATION_RATE_PER_MINUTE", 5)),
	}
	if p.err != nil {
		return nil, p.err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values that parse but make no sense.
func (c *Config) Validate() error {
	var problems []error
	if c.LoanPeriod <= 0 {
		problems = append(problems, errors.New("LOAN_PERIOD must be positive"))
	}
	if c.FineDailyRate < 0 {
		problems = append(problems, errors.New("FINE_DAILY_RATE_MINOR must not be negative"))
	}
	if c.FineGrace < 0 {
		problems = append(problems, errors.New("FINE_GRACE_PERIOD must not be negative"))
	}
	if c.FineCap < 0 {
		problems = append(problems, errors.New("FINE_CAP_MINOR must not be negative"))
	}
	if c.RegistrationRatePerMinute <= 0 {
		problems = append(problems, errors.New("REGISTRATION_RATE_PER_MINUTE must be positive"))
	}
	switch c.FinePolicy {
	case FinePolicyDaily, FinePolicyGrace, FinePolicyCapped:
	default:
		problems = append(problems, fmt.Errorf("FINE_POLICY %q is not one of daily, grace, capped", c.FinePolicy))
	}
	return errors.Join(problems...)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parser keeps the first parse error so Load can read every variable in one pass.
type parser struct {
	err error
}

func (p *parser) duration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d
}

func (p *parser) int64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return n
}
