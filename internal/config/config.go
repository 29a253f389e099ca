package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds everything the process reads from the environment.
type AppConfig struct {
	// Port the HTTP server listens on.
	Port string

	// DatabaseURL selects the Postgres store when set; the in-memory
	// store is used otherwise.
	DatabaseURL string

	// OpenMeteoBaseURL overrides the upstream endpoint (tests, proxies).
	OpenMeteoBaseURL string

	// FetchCron is the refresh schedule, minute-granularity cron.
	FetchCron string

	// HTTPTimeout bounds outbound provider calls.
	HTTPTimeout time.Duration

	// CORSOrigin is the dashboard origin allowed to call the API.
	CORSOrigin string

	// GeocoderAPIKey enables the address lookup endpoint when set.
	GeocoderAPIKey string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := &AppConfig{}

	cfg.Port = getenvDefault("PORT", "3000")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.OpenMeteoBaseURL = os.Getenv("OPENMETEO_BASE_URL")
	cfg.FetchCron = getenvDefault("FETCH_CRON", "2,17,32,47 * * * *")
	cfg.CORSOrigin = getenvDefault("CORS_ORIGIN", "http://localhost:5173")
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")

	timeoutStr := getenvDefault("HTTP_TIMEOUT", "10s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
