package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds process-wide settings. The encryption key and secrets are
// read once at startup and never mutated at runtime.
type Config struct {
	Addr          string
	DBDriver      string
	DBDSN         string
	EncryptionKey string
	CSRFSecret    string
	SessionSecret string
	RedisAddr     string
	OnlineWindow  time.Duration
}

func Load() *Config {
	// .env is optional; real deployments set the environment directly.
	godotenv.Load()

	return &Config{
		Addr:          getEnv("ADDR", ":8080"),
		DBDriver:      getEnv("DB_DRIVER", "sqlite3"),
		DBDSN:         getEnv("DB_DSN", "chatcore.db"),
		EncryptionKey: getEnv("ENCRYPTION_KEY", "chatcore-dev-key-change-me!"),
		CSRFSecret:    getEnv("CSRF_SECRET", "chatcore-dev-csrf-secret"),
		SessionSecret: getEnv("SESSION_SECRET", "chatcore-dev-session-secret"),
		RedisAddr:     os.Getenv("REDIS_URL"),
		OnlineWindow:  getDuration("ONLINE_WINDOW", 60*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}
