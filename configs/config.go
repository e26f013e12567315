package config

import (
	"fmt"
	"os"
)

type Config struct {
	InstagramAppID     string
	InstagramAppSecret string
	TiktokClientKey    string
	TiktokClientSecret string
	PostgresURI        string
	RedisURI           string
	ListenAddr         string
	EncryptionKey      string
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		InstagramAppID:     getEnv("INSTAGRAM_APP_ID", ""),
		InstagramAppSecret: getEnv("INSTAGRAM_APP_SECRET", ""),
		TiktokClientKey:    getEnv("TIKTOK_CLIENT_KEY", ""),
		TiktokClientSecret: getEnv("TIKTOK_CLIENT_SECRET", ""),
		PostgresURI:        getEnv("POSTGRES_URI", ""),
		RedisURI:           getEnv("REDIS_URI", "localhost:6379"),
		ListenAddr:         getEnv("LISTEN_ADDR", ":3000"),
		EncryptionKey:      getEnv("ENCRYPTION_KEY", ""),
	}

	// AES-256 needs exactly 32 key bytes; refuse to boot with anything else.
	if len(cfg.EncryptionKey) != 32 {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be exactly 32 bytes, got %d", len(cfg.EncryptionKey))
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
