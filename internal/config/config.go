package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	PublicBaseURL      string
	LogLevel           string
	DatabaseURL        string
	AdminJWTSecret     string
	CORSAllowedOrigins []string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// CuraGenesis vendor API
	CuraGenesisBaseURL       string
	CuraGenesisAPIKey        string
	CuraGenesisAPITimeout    time.Duration
	CuraGenesisWebhookSecret string
	CuraGenesisDryRun        bool

	// Dispatch behaviour
	DispatchLockTTL        time.Duration
	BulkSendBatchSize      int
	IdempotencyReuseWindow time.Duration
	StalePendingAfter      time.Duration

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	DocumentsBucket string

	// Email relay
	EmailProvider    string
	EmailFromAddress string
	EmailFromName    string
	SendGridAPIKey   string

	// SES configuration set for bounce tracking; optional.
	SESConfigurationSet string

	// Rep onboarding
	CorpEmailDomain   string
	InviteTokenSecret string
	InviteTTL         time.Duration

	OutboxPollInterval time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		PublicBaseURL:      strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:3000"), "/"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		CuraGenesisBaseURL:       getEnv("CURAGENESIS_BASE_URL", "https://api.curagenesis.com"),
		CuraGenesisAPIKey:        getEnv("CURAGENESIS_API_KEY", ""),
		CuraGenesisAPITimeout:    time.Duration(getEnvAsInt("CURAGENESIS_API_TIMEOUT_MS", 10000)) * time.Millisecond,
		CuraGenesisWebhookSecret: getEnv("CURAGENESIS_WEBHOOK_SECRET", ""),
		CuraGenesisDryRun:        getEnvAsBool("CURAGENESIS_DRY_RUN", false),

		DispatchLockTTL:        getEnvAsDuration("DISPATCH_LOCK_TTL", 2*time.Minute),
		BulkSendBatchSize:      getEnvAsInt("BULK_SEND_BATCH_SIZE", 5),
		IdempotencyReuseWindow: getEnvAsDuration("IDEMPOTENCY_REUSE_WINDOW", 24*time.Hour),
		StalePendingAfter:      getEnvAsDuration("STALE_PENDING_AFTER", 15*time.Minute),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		DocumentsBucket: getEnv("DOCUMENTS_BUCKET", ""),

		EmailProvider:    strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "stub"))),
		EmailFromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "Practice CRM"),
		SendGridAPIKey:   getEnv("SENDGRID_API_KEY", ""),

		SESConfigurationSet: getEnv("SES_CONFIGURATION_SET", ""),

		CorpEmailDomain:   strings.ToLower(getEnv("CORP_EMAIL_DOMAIN", "example.com")),
		InviteTokenSecret: getEnv("INVITE_TOKEN_SECRET", ""),
		InviteTTL:         getEnvAsDuration("INVITE_TTL", 7*24*time.Hour),

		OutboxPollInterval: getEnvAsDuration("OUTBOX_POLL_INTERVAL", 5*time.Second),
	}
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
