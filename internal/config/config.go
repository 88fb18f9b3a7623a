// Package config loads client settings from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is everything the client needs to reach a Zai server.
type Config struct {
	APIBaseURL  string
	WSBaseURL   string
	AccessToken string
	UserID      string

	HeartbeatInterval    time.Duration
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int
	HandshakeTimeout     time.Duration

	BoardRadius int
	HexSize     float64
}

// Load reads the environment, after merging a .env file if one exists.
func Load() (Config, error) {
	// Missing .env is fine; real deployments set the variables directly.
	_ = godotenv.Load()

	cfg := Config{
		APIBaseURL:           getEnv("ZAI_API_BASE_URL", "http://localhost:8000/api/v1"),
		WSBaseURL:            getEnv("ZAI_WS_BASE_URL", "ws://localhost:8000/ws"),
		AccessToken:          os.Getenv("ZAI_ACCESS_TOKEN"),
		UserID:               os.Getenv("ZAI_USER_ID"),
		HeartbeatInterval:    30 * time.Second,
		ReconnectDelay:       time.Second,
		MaxReconnectAttempts: 5,
		HandshakeTimeout:     10 * time.Second,
		BoardRadius:          5,
		HexSize:              30,
	}

	var err error
	if cfg.HeartbeatInterval, err = getDuration("ZAI_HEARTBEAT_INTERVAL", cfg.HeartbeatInterval); err != nil {
		return Config{}, err
	}
	if cfg.ReconnectDelay, err = getDuration("ZAI_RECONNECT_DELAY", cfg.ReconnectDelay); err != nil {
		return Config{}, err
	}
	if cfg.HandshakeTimeout, err = getDuration("ZAI_HANDSHAKE_TIMEOUT", cfg.HandshakeTimeout); err != nil {
		return Config{}, err
	}
	if cfg.MaxReconnectAttempts, err = getInt("ZAI_MAX_RECONNECT_ATTEMPTS", cfg.MaxReconnectAttempts); err != nil {
		return Config{}, err
	}
	if cfg.BoardRadius, err = getInt("ZAI_BOARD_RADIUS", cfg.BoardRadius); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}
