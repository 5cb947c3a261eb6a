package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the API process reads from its environment
type Config struct {
	Port              string
	Env               string
	LogLevel          string
	CORSOrigins       []string
	ScanDelay         time.Duration
	ScanRetention     time.Duration
	ExpiryWarningDays int
	SeedDemo          bool
	DB                DBConfig
}

// DBConfig describes the optional PostgreSQL journal
type DBConfig struct {
	Enabled  bool
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN builds the postgres connection URL with credentials escaped
func (c DBConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, c.Port),
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

// IsDevelopment reports whether logs should be human readable
func (c Config) IsDevelopment() bool {
	return c.Env != "production"
}

// Load reads configs/.env when present, then the process environment
func Load() (Config, error) {
	envFileErr := godotenv.Load("configs/.env")

	cfg := Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:8081,http://localhost:19006")),
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "invexis"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
	}

	var err error
	if cfg.DB.Enabled, err = strconv.ParseBool(getEnv("DB_ENABLED", "false")); err != nil {
		return Config{}, fmt.Errorf("invalid DB_ENABLED: %w", err)
	}
	if cfg.SeedDemo, err = strconv.ParseBool(getEnv("SEED_DEMO", "false")); err != nil {
		return Config{}, fmt.Errorf("invalid SEED_DEMO: %w", err)
	}
	if cfg.ScanDelay, err = time.ParseDuration(getEnv("SCAN_DELAY", "2s")); err != nil {
		return Config{}, fmt.Errorf("invalid SCAN_DELAY: %w", err)
	}
	if cfg.ScanRetention, err = time.ParseDuration(getEnv("SCAN_RETENTION", "30m")); err != nil || cfg.ScanRetention <= 0 {
		return Config{}, fmt.Errorf("invalid SCAN_RETENTION %q", os.Getenv("SCAN_RETENTION"))
	}
	if cfg.ExpiryWarningDays, err = strconv.Atoi(getEnv("EXPIRY_WARNING_DAYS", "7")); err != nil || cfg.ExpiryWarningDays < 0 {
		return Config{}, fmt.Errorf("invalid EXPIRY_WARNING_DAYS %q", os.Getenv("EXPIRY_WARNING_DAYS"))
	}

	if envFileErr != nil && !os.IsNotExist(envFileErr) {
		return cfg, fmt.Errorf("load configs/.env: %w", envFileErr)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
