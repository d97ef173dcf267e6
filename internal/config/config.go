package config

import (
	"os"
	"path/filepath"
	"time"
)

// Client holds client-side configuration loaded from environment variables.
type Client struct {
	// BaseURL is the API base, including the /api prefix.
	BaseURL string
	// StateDir is where the credential and follow cache are persisted.
	StateDir string
	// HTTPTimeout bounds every gateway call.
	HTTPTimeout time.Duration
}

// LoadClientFromEnv loads client configuration from environment variables.
//
// SPACE_API_URL   API base URL (default: http://localhost:5000/api)
// SPACE_STATE_DIR local state directory (default: ~/.space)
// SPACE_HTTP_TIMEOUT request timeout (default: 15s)
func LoadClientFromEnv() *Client {
	return &Client{
		BaseURL:     GetEnvOrDefault("SPACE_API_URL", "http://localhost:5000/api"),
		StateDir:    GetEnvOrDefault("SPACE_STATE_DIR", defaultStateDir()),
		HTTPTimeout: getEnvDuration("SPACE_HTTP_TIMEOUT", 15*time.Second),
	}
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".space"
	}
	return filepath.Join(home, ".space")
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
