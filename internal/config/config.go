package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

type Config struct {
	ServerAddr   string
	APIURL       string
	APITimeout   time.Duration
	DatabaseURL  string
	RedisAddr    string
	KafkaBrokers []string
	KafkaTopic   string
	JWTSecret    string
	SessionTTL   time.Duration
	Location     *time.Location
	ServiceName  string
}

// Load reads the configuration from the environment. API_URL is the only
// required key.
func Load() (Config, error) {
	cfg := Config{
		ServerAddr:   getenv("SERVER_ADDR", ":8080"),
		APIURL:       strings.TrimSpace(os.Getenv("API_URL")),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		KafkaBrokers: splitCSV(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   getenv("KAFKA_TOPIC", "library.lifecycle"),
		JWTSecret:    getenv("JWT_SECRET", "change-me"),
		ServiceName:  getenv("SERVICE_NAME", "library-admin"),
	}
	if cfg.APIURL == "" {
		return cfg, errors.New("API_URL is required")
	}

	var err error
	if cfg.APITimeout, err = duration("API_TIMEOUT", "15s"); err != nil {
		return cfg, err
	}
	if cfg.SessionTTL, err = duration("SESSION_TTL", "24h"); err != nil {
		return cfg, err
	}

	if cfg.Location, err = Location(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Location is the zone named by TIMEZONE, in which "today" is decided.
func Location() (*time.Location, error) {
	tz := getenv("TIMEZONE", "Asia/Jakarta")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE %q: %w", tz, err)
	}
	return loc, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func duration(k, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenv(k, def))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return d, nil
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
