package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port                string
	DatabaseURL         string
	AdminPasswordHash   string
	SessionTTL          time.Duration
	RequireCustomerName bool
	BroadcastInterval   time.Duration
	BroadcastBatchSize  int
	RateLimitPerMinute  int
	RateLimitBurst      int
}

func Load() Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	return Config{
		Port:                port,
		DatabaseURL:         os.Getenv("DB_DSN"),
		AdminPasswordHash:   os.Getenv("ADMIN_PASSWORD_HASH"),
		SessionTTL:          readDurationSeconds("SESSION_TTL_SECONDS", 43200),
		RequireCustomerName: readBool("REQUIRE_CUSTOMER_NAME", false),
		BroadcastInterval:   readDurationSeconds("BROADCAST_INTERVAL_SECONDS", 1),
		BroadcastBatchSize:  readInt("BROADCAST_BATCH_SIZE", 50),
		RateLimitPerMinute:  readInt("RATE_LIMIT_PER_MIN", 120),
		RateLimitBurst:      readInt("RATE_LIMIT_BURST", 30),
	}
}

func readDurationSeconds(key string, fallback int) time.Duration {
	value := readInt(key, fallback)
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}

func readInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func readBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}
