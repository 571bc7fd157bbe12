package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Classifier backends selectable with CLASSIFIER_BACKEND.
const (
	BackendFixed     = "fixed"
	BackendHeuristic = "heuristic"
	BackendHTTP      = "http"
	BackendGRPC      = "grpc"
)

// Config is the server configuration, read from the environment.
type Config struct {
	HTTPAddr        string
	GinMode         string
	LogLevel        string
	MaxUploadBytes  int64
	ShutdownTimeout time.Duration

	ClassifierBackend string
	ClassifierDelay   time.Duration
	ClassifierURL     string
	ClassifierAddr    string
	ClassifierTimeout time.Duration
}

// Load reads the configuration and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPAddr:          getEnv("HTTP_ADDR", ":8080"),
		GinMode:           getEnv("GIN_MODE", "release"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		ClassifierBackend: strings.ToLower(getEnv("CLASSIFIER_BACKEND", BackendFixed)),
		ClassifierURL:     os.Getenv("CLASSIFIER_URL"),
		ClassifierAddr:    os.Getenv("CLASSIFIER_ADDR"),
	}

	var err error
	if cfg.MaxUploadBytes, err = getInt64("MAX_UPLOAD_BYTES", 10<<20); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.ClassifierDelay, err = getDuration("CLASSIFIER_DELAY", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.ClassifierTimeout, err = getDuration("CLASSIFIER_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}

	if cfg.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", cfg.MaxUploadBytes)
	}
	switch cfg.ClassifierBackend {
	case BackendFixed, BackendHeuristic:
	case BackendHTTP:
		if cfg.ClassifierURL == "" {
			return nil, fmt.Errorf("CLASSIFIER_URL is required for the %s backend", BackendHTTP)
		}
	case BackendGRPC:
		if cfg.ClassifierAddr == "" {
			return nil, fmt.Errorf("CLASSIFIER_ADDR is required for the %s backend", BackendGRPC)
		}
	default:
		return nil, fmt.Errorf("unknown CLASSIFIER_BACKEND %q", cfg.ClassifierBackend)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getInt64(key string, fallback int64) (int64, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return v, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return v, nil
}
