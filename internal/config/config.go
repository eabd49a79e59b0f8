// Package config loads runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultMaxRetries     = 3
	defaultRetryBackoffMs = 500
	defaultPollMs         = 1000
	defaultReconnectMs    = 5000
)

// Config holds the settings of both binaries.
type Config struct {
	SpotifyClientID     string
	SpotifyClientSecret string
	SpotifyRefreshToken string
	SpotifyBaseURL      string
	MaxRetries          int
	RetryBackoff        time.Duration

	StorageDriver string
	DatabasePath  string
	Addr          string
	LogLevel      string

	DeviceName     string
	PollInterval   time.Duration
	ReconnectDelay time.Duration
}

// Load reads an optional env file (".env" when none is given) and then the
// environment. Variables already set take precedence over the file.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); err == nil {
			files = []string{".env"}
		}
	}
	if len(files) > 0 {
		if err := godotenv.Load(files...); err != nil {
			return Config{}, fmt.Errorf("config: load env file: %w", err)
		}
	}

	return Config{
		SpotifyClientID:     os.Getenv("SPOTIFY_CLIENT_ID"),
		SpotifyClientSecret: os.Getenv("SPOTIFY_CLIENT_SECRET"),
		SpotifyRefreshToken: os.Getenv("SPOTIFY_REFRESH_TOKEN"),
		SpotifyBaseURL:      os.Getenv("SPOTIFY_BASE_URL"),
		MaxRetries:          positiveInt("SPOTIFY_MAX_RETRIES", defaultMaxRetries),
		RetryBackoff:        millis("SPOTIFY_RETRY_BACKOFF_MS", defaultRetryBackoffMs),

		StorageDriver: stringOr("STORAGE_DRIVER", "sqlite"),
		DatabasePath:  stringOr("DATABASE_PATH", "rockdj.db"),
		Addr:          stringOr("ADDR", ":8080"),
		LogLevel:      stringOr("LOG_LEVEL", "info"),

		DeviceName:     os.Getenv("DECK_DEVICE_NAME"),
		PollInterval:   millis("DECK_POLL_INTERVAL_MS", defaultPollMs),
		ReconnectDelay: millis("DECK_RECONNECT_DELAY_MS", defaultReconnectMs),
	}, nil
}

// Validate fails when settings required to talk to Spotify are missing.
func (c Config) Validate() error {
	var errs []error
	if c.SpotifyClientID == "" || c.SpotifyClientSecret == "" {
		errs = append(errs, errors.New("SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET are required"))
	}
	if c.SpotifyRefreshToken == "" {
		errs = append(errs, errors.New("SPOTIFY_REFRESH_TOKEN is required"))
	}
	if c.StorageDriver != "sqlite" {
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.StorageDriver))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func stringOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func positiveInt(key string, fallback int) int {
	if raw := os.Getenv(key); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

func millis(key string, fallback int) time.Duration {
	return time.Duration(positiveInt(key, fallback)) * time.Millisecond
}
