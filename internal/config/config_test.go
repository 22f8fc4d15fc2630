package config

import (
	"context"
	"os"
	"testing"
	"time"
)

const testSecret = "test-secret-key-that-is-at-least-32-characters-long"

func TestLoad(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	ctx := context.Background()
	cfg, err := Load(ctx)
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Expected Server.Port to be '8080', got '%s'", cfg.Server.Port)
	}

	if cfg.Server.ReadTimeout.Duration != 15*time.Second {
		t.Errorf("Expected Server.ReadTimeout to be 15s, got %v", cfg.Server.ReadTimeout.Duration)
	}

	if cfg.JWT.SessionTTL.Duration != 24*time.Hour {
		t.Errorf("Expected JWT.SessionTTL to be 24h, got %v", cfg.JWT.SessionTTL.Duration)
	}

	if cfg.Verification.EmailTTL.Duration != 24*time.Hour {
		t.Errorf("Expected Verification.EmailTTL to be 24h, got %v", cfg.Verification.EmailTTL.Duration)
	}

	if cfg.Verification.ResetTTL.Duration != time.Hour {
		t.Errorf("Expected Verification.ResetTTL to be 1h, got %v", cfg.Verification.ResetTTL.Duration)
	}

	if cfg.Verification.ResendWindow.Duration != time.Minute {
		t.Errorf("Expected Verification.ResendWindow to be 1m, got %v", cfg.Verification.ResendWindow.Duration)
	}

	if cfg.OAuth.StateTTL.Duration != 10*time.Minute {
		t.Errorf("Expected OAuth.StateTTL to be 10m, got %v", cfg.OAuth.StateTTL.Duration)
	}

	if cfg.OAuth.ExchangeTimeout.Duration != 10*time.Second {
		t.Errorf("Expected OAuth.ExchangeTimeout to be 10s, got %v", cfg.OAuth.ExchangeTimeout.Duration)
	}

	if cfg.Security.BCryptCost != 12 {
		t.Errorf("Expected Security.BCryptCost to be 12, got %d", cfg.Security.BCryptCost)
	}

	if cfg.SMTP.Enabled() {
		t.Error("Expected SMTP to be disabled without SMTP_HOST")
	}

	if cfg.Postgres.AutoMigrate {
		t.Error("Expected Postgres.AutoMigrate to default to false")
	}

	if len(cfg.CORS.AllowedOrigins) == 0 {
		t.Error("Expected CORS.AllowedOrigins to have at least one value")
	}
}

func TestLoadWithCustomValues(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("POSTGRES_HOST", "postgres.example.com")
	t.Setenv("POSTGRES_AUTO_MIGRATE", "true")
	t.Setenv("JWT_SESSION_TTL", "7d")
	t.Setenv("OAUTH_GITHUB_CLIENT_ID", "gh-client")
	t.Setenv("OAUTH_GITHUB_CLIENT_SECRET", "gh-secret")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("ENV", "production")

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Expected Server.Port to be '9090', got '%s'", cfg.Server.Port)
	}

	if cfg.Postgres.Host != "postgres.example.com" {
		t.Errorf("Expected Postgres.Host to be 'postgres.example.com', got '%s'", cfg.Postgres.Host)
	}

	if !cfg.Postgres.AutoMigrate {
		t.Error("Expected Postgres.AutoMigrate to be true")
	}

	if cfg.JWT.SessionTTL.Duration != 7*24*time.Hour {
		t.Errorf("Expected JWT.SessionTTL to be 7d, got %v", cfg.JWT.SessionTTL.Duration)
	}

	if cfg.OAuth.GitHubClientID != "gh-client" {
		t.Errorf("Expected OAuth.GitHubClientID to be 'gh-client', got '%s'", cfg.OAuth.GitHubClientID)
	}

	if !cfg.SMTP.Enabled() {
		t.Error("Expected SMTP to be enabled")
	}

	if cfg.Env != "production" {
		t.Errorf("Expected Env to be 'production', got '%s'", cfg.Env)
	}
}

func TestLoadWithoutJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	os.Unsetenv("JWT_SECRET")

	_, err := Load(context.Background())
	if err == nil {
		t.Error("Expected error when JWT_SECRET is not set")
	}
}

func TestLoadWithShortJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "short")

	_, err := Load(context.Background())
	if err == nil {
		t.Error("Expected error when JWT_SECRET is too short")
	}
}

func TestLoadRejectsClientIDWithoutSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("OAUTH_GOOGLE_CLIENT_ID", "google-client")

	_, err := Load(context.Background())
	if err == nil {
		t.Error("Expected error when OAUTH_GOOGLE_CLIENT_SECRET is missing")
	}
}

func TestLoadRejectsUnknownTLSMode(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("SMTP_TLS_MODE", "ssl3")

	_, err := Load(context.Background())
	if err == nil {
		t.Error("Expected error for unknown SMTP_TLS_MODE")
	}
}

func TestPostgresDSN(t *testing.T) {
	pg := PostgresConfig{
		Host:     "localhost",
		Port:     "5432",
		User:     "test_user",
		Password: "test_password",
		DBName:   "test_db",
		SSLMode:  "disable",
	}

	dsn := pg.DSN()
	expected := "host=localhost port=5432 user=test_user password=test_password dbname=test_db sslmode=disable"
	if dsn != expected {
		t.Errorf("Expected DSN to be '%s', got '%s'", expected, dsn)
	}
}

func TestRedisAddress(t *testing.T) {
	redis := RedisConfig{Host: "localhost", Port: "6379"}

	if addr := redis.Address(); addr != "localhost:6379" {
		t.Errorf("Expected Address to be 'localhost:6379', got '%s'", addr)
	}
}

func TestDurationDays(t *testing.T) {
	var d Duration
	if err := d.EnvDecode(context.Background(), "3d"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Duration != 72*time.Hour {
		t.Errorf("Expected 72h, got %v", d.Duration)
	}

	if err := d.EnvDecode(context.Background(), "xd"); err == nil {
		t.Error("Expected error for invalid day count")
	}
}
