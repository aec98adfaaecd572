// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full configuration surface of the service.
type Config struct {
	Addr         string // listen address
	PostgresDSN  string
	RedisURI     string
	ExtractorURL string // embedding model sidecar
	JWTKey       string

	AllowedOrigins []string

	// Matching parameters. Threshold and margin have no universally correct
	// value; they are calibrated per deployment against real capture data.
	EmbeddingDim int
	Metric       string  // euclidean | cosine
	Threshold    float64 // max accepted distance
	Margin       float64 // min separation between best and second-best user

	MinEnrollSamples int           // K
	MaxAttempts      int           // frame attempts per login session
	LoginSessionTTL  time.Duration // face+password flow lifetime
	AccessSessionTTL time.Duration // issued session lifetime

	// Password brute-force lockout.
	LimiterWindow   time.Duration
	LimiterMaxFails int
	LimiterBlockFor time.Duration
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Addr:             getEnv("ADDR", ":8080"),
		PostgresDSN:      getEnv("POSTGRES_DSN", "postgres://localhost:5432/facegate?sslmode=disable"),
		RedisURI:         getEnv("REDIS_URI", "redis://localhost:6379/0"),
		ExtractorURL:     getEnv("EXTRACTOR_URL", "http://localhost:5100"),
		JWTKey:           getEnv("JWT_KEY", ""),
		AllowedOrigins:   splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		Metric:           getEnv("MATCH_METRIC", "cosine"),
		EmbeddingDim:     getEnvInt("EMBEDDING_DIM", 128),
		MinEnrollSamples: getEnvInt("MIN_ENROLL_SAMPLES", 5),
		MaxAttempts:      getEnvInt("MAX_FRAME_ATTEMPTS", 30),
		LimiterMaxFails:  getEnvInt("LIMITER_MAX_FAILS", 5),
	}

	var err error
	if cfg.Threshold, err = getEnvFloat("MATCH_THRESHOLD", 0.4); err != nil {
		return nil, err
	}
	if cfg.Margin, err = getEnvFloat("MATCH_MARGIN", 0.05); err != nil {
		return nil, err
	}
	if cfg.LoginSessionTTL, err = getEnvDuration("LOGIN_SESSION_TTL", 2*time.Minute); err != nil {
		return nil, err
	}
	if cfg.AccessSessionTTL, err = getEnvDuration("ACCESS_SESSION_TTL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.LimiterWindow, err = getEnvDuration("LIMITER_WINDOW", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.LimiterBlockFor, err = getEnvDuration("LIMITER_BLOCK_FOR", 15*time.Minute); err != nil {
		return nil, err
	}

	if cfg.JWTKey == "" {
		return nil, fmt.Errorf("JWT_KEY is required")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
