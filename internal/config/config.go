package config

import (
	"os"
	"time"

	"github.com/spf13/cast"
)

type Config struct {
	Port        int
	DatabaseURL string
	RedisAddr   string

	// Shared secret for Bearer tokens minted by the identity provider.
	AuthSecret string
	// Shared secrets for inbound webhook signatures.
	VideoWebhookSecret    string
	IdentityWebhookSecret string

	Transcode TranscodeConfig
	Storage   StorageConfig
	GenAI     GenAIConfig

	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// TranscodeConfig points at the external video pipeline.
type TranscodeConfig struct {
	APIBaseURL   string
	ImageBaseURL string
	TrackBaseURL string
	TokenID      string
	TokenSecret  string
}

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	PublicURL string
	UseSSL    bool
}

type GenAIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

func Load() *Config {
	return &Config{
		Port:        envInt("PORT", 8080),
		DatabaseURL: env("DATABASE_URL", "postgres://nextplay:nextplay@db:5432/nextplay?sslmode=disable"),
		RedisAddr:   env("REDIS_ADDR", "localhost:6379"),

		AuthSecret:            env("AUTH_JWT_SECRET", "change-me-in-production"),
		VideoWebhookSecret:    env("VIDEO_WEBHOOK_SECRET", ""),
		IdentityWebhookSecret: env("IDENTITY_WEBHOOK_SECRET", ""),

		Transcode: TranscodeConfig{
			APIBaseURL:   env("TRANSCODE_API_URL", "https://api.mux.com"),
			ImageBaseURL: env("TRANSCODE_IMAGE_URL", "https://image.mux.com"),
			TrackBaseURL: env("TRANSCODE_STREAM_URL", "https://stream.mux.com"),
			TokenID:      env("TRANSCODE_TOKEN_ID", ""),
			TokenSecret:  env("TRANSCODE_TOKEN_SECRET", ""),
		},
		Storage: StorageConfig{
			Endpoint:  env("STORAGE_ENDPOINT", "localhost:9000"),
			AccessKey: env("STORAGE_ACCESS_KEY", ""),
			SecretKey: env("STORAGE_SECRET_KEY", ""),
			Bucket:    env("STORAGE_BUCKET", "next-play"),
			PublicURL: env("STORAGE_PUBLIC_URL", ""),
			UseSSL:    envBool("STORAGE_USE_SSL", false),
		},
		GenAI: GenAIConfig{
			BaseURL: env("GENAI_BASE_URL", "https://generativelanguage.googleapis.com"),
			APIKey:  env("GENAI_API_KEY", ""),
			Model:   env("GENAI_MODEL", "gemini-2.0-flash-exp"),
		},

		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 20),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW_SECONDS", 10)) * time.Second,
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := cast.ToIntE(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := cast.ToBoolE(v); err == nil {
			return b
		}
	}
	return fallback
}
