package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("CURAGENESIS_API_TIMEOUT_MS", "")
	t.Setenv("BULK_SEND_BATCH_SIZE", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.CuraGenesisAPITimeout != 10*time.Second {
		t.Fatalf("expected 10s vendor timeout, got %s", cfg.CuraGenesisAPITimeout)
	}
	if cfg.BulkSendBatchSize != 5 {
		t.Fatalf("expected batch size 5, got %d", cfg.BulkSendBatchSize)
	}
	if cfg.IdempotencyReuseWindow != 24*time.Hour {
		t.Fatalf("expected 24h reuse window, got %s", cfg.IdempotencyReuseWindow)
	}
	if cfg.CORSAllowedOrigins != nil {
		t.Fatalf("expected no CORS origins, got %v", cfg.CORSAllowedOrigins)
	}
	if cfg.IsProduction() {
		t.Fatalf("expected development env")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("CURAGENESIS_API_TIMEOUT_MS", "2500")
	t.Setenv("BULK_SEND_BATCH_SIZE", "3")
	t.Setenv("DISPATCH_LOCK_TTL", "45s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("EMAIL_PROVIDER", " SES ")
	t.Setenv("PUBLIC_BASE_URL", "https://crm.example/")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if !cfg.IsProduction() {
		t.Fatalf("expected production env")
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if cfg.CuraGenesisAPITimeout != 2500*time.Millisecond {
		t.Fatalf("expected timeout override, got %s", cfg.CuraGenesisAPITimeout)
	}
	if cfg.BulkSendBatchSize != 3 {
		t.Fatalf("expected batch override, got %d", cfg.BulkSendBatchSize)
	}
	if cfg.DispatchLockTTL != 45*time.Second {
		t.Fatalf("expected lock ttl override, got %s", cfg.DispatchLockTTL)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected CORS origins %v", cfg.CORSAllowedOrigins)
	}
	if cfg.EmailProvider != "ses" {
		t.Fatalf("expected normalized email provider, got %q", cfg.EmailProvider)
	}
	if cfg.PublicBaseURL != "https://crm.example" {
		t.Fatalf("expected trailing slash trimmed, got %s", cfg.PublicBaseURL)
	}
}

func TestLoadInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("CURAGENESIS_API_TIMEOUT_MS", "soon")
	t.Setenv("INVITE_TTL", "a week")
	cfg := Load()
	if cfg.CuraGenesisAPITimeout != 10*time.Second {
		t.Fatalf("expected default timeout, got %s", cfg.CuraGenesisAPITimeout)
	}
	if cfg.InviteTTL != 7*24*time.Hour {
		t.Fatalf("expected default invite ttl, got %s", cfg.InviteTTL)
	}
}
