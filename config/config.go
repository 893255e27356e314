package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Place is one tracked city in the upstream catalog.
type Place struct {
	Name string
	ID   int64
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	CatalogBaseURL string
	CatalogToken   string

	MaxConcurrency int
	RateLimitMs    int
	MaxRetries     int

	FilterTimeoutSec int
	ProbeTimeoutSec  int
	ProbeBudgetSec   int
	DetailTimeoutSec int

	CoverageThreshold float64
	SyncIntervalMin   int
	HTTPPort          string

	Places []Place
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "units"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "units123"),
		PostgresDB:       getEnv("POSTGRES_DB", "units_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		CatalogBaseURL: getEnv("CATALOG_BASE_URL", "https://newapi.masterv.net/api/v3/public"),
		CatalogToken:   getEnv("CATALOG_TOKEN", ""),

		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 3),
		RateLimitMs:    getEnvInt("RATE_LIMIT_MS", 250),
		MaxRetries:     getEnvInt("MAX_RETRIES", 3),

		FilterTimeoutSec: getEnvInt("FILTER_TIMEOUT_SEC", 30),
		ProbeTimeoutSec:  getEnvInt("PROBE_TIMEOUT_SEC", 1),
		ProbeBudgetSec:   getEnvInt("PROBE_BUDGET_SEC", 3),
		DetailTimeoutSec: getEnvInt("DETAIL_TIMEOUT_SEC", 30),

		CoverageThreshold: getEnvFloat("COVERAGE_THRESHOLD", 0.10),
		SyncIntervalMin:   getEnvInt("SYNC_INTERVAL_MIN", 60),
		HTTPPort:          getEnv("HTTP_PORT", "5000"),

		Places: defaultPlaces(),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// defaultPlaces is the fixed set of tracked cities and their upstream ids.
func defaultPlaces() []Place {
	return []Place{
		{"New Cairo", 1},
		{"New Capital", 2},
		{"Al-Mostakbal", 3},
		{"Al-Shorouk", 4},
		{"6th October", 5},
		{"North Coast", 6},
		{"Ain Sokhna", 7},
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}
