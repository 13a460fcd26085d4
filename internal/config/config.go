package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"faceit-relay/internal/constants"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

type Config struct {
	FaceitAPIKey    string
	DefaultNickname string
	ServerPort      string
	LogLevel        string
	CacheTTL        time.Duration
}

func Load() (*Config, error) {
	// a missing .env is fine, the environment itself takes over
	_ = godotenv.Load()

	cfg := &Config{
		FaceitAPIKey:    getEnv("FACEIT_API_KEY", ""),
		DefaultNickname: getEnv("DEFAULT_NICKNAME", ""),
		ServerPort:      getEnv("SERVER_PORT", "3000"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		CacheTTL:        getEnvMillis("CACHE_TTL_MS", constants.DefaultCacheTTL),
	}

	if cfg.FaceitAPIKey == "" {
		return nil, fmt.Errorf("FACEIT_API_KEY is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvMillis(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	ms, err := strconv.Atoi(v)
	if err != nil || ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}

var Module = fx.Provide(Load)
