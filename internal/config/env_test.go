package config

import (
	"testing"
	"time"
)

func TestLoadEnv(t *testing.T) {
	t.Setenv("APP_ENV", "test-env")
	t.Setenv("APP_NAME", "test-app")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_HOST", "test-db-host")
	t.Setenv("TOKEN_ACCESS_TTL", "30m")
	t.Setenv("TOKEN_REFRESH_TTL", "720h")
	t.Setenv("ALLOWED_ORIGINS", "https://example.com,https://api.example.com")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "true")
	t.Setenv("HASH_ITERATIONS", "2")
	t.Setenv("HASH_PARALLELISM", "4")
	t.Setenv("RATE_LIMIT_MAX_FAILURES", "5")
	t.Setenv("ADMIN_EMAIL", "root@example.com")

	config := &AppConfig{}
	if err := LoadEnv(config); err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}

	if config.App.Environment != "test-env" {
		t.Errorf("Expected App.Environment = %s, got %s", "test-env", config.App.Environment)
	}
	if config.App.Name != "test-app" {
		t.Errorf("Expected App.Name = %s, got %s", "test-app", config.App.Name)
	}
	if config.Server.Port != 9090 {
		t.Errorf("Expected Server.Port = %d, got %d", 9090, config.Server.Port)
	}
	if config.Database.Host != "test-db-host" {
		t.Errorf("Expected Database.Host = %s, got %s", "test-db-host", config.Database.Host)
	}
	if config.Tokens.AccessTTL != 30*time.Minute {
		t.Errorf("Expected Tokens.AccessTTL = %v, got %v", 30*time.Minute, config.Tokens.AccessTTL)
	}
	if config.Tokens.RefreshTTL != 720*time.Hour {
		t.Errorf("Expected Tokens.RefreshTTL = %v, got %v", 720*time.Hour, config.Tokens.RefreshTTL)
	}
	if len(config.CORS.AllowedOrigins) != 2 ||
		config.CORS.AllowedOrigins[0] != "https://example.com" ||
		config.CORS.AllowedOrigins[1] != "https://api.example.com" {
		t.Errorf("Expected two CORS origins, got %v", config.CORS.AllowedOrigins)
	}
	if !config.CORS.AllowCredentials {
		t.Errorf("Expected CORS.AllowCredentials = true")
	}
	if config.PasswordHash.Iterations != 2 {
		t.Errorf("Expected PasswordHash.Iterations = %d, got %d", 2, config.PasswordHash.Iterations)
	}
	if config.PasswordHash.Parallelism != 4 {
		t.Errorf("Expected PasswordHash.Parallelism = %d, got %d", 4, config.PasswordHash.Parallelism)
	}
	if config.RateLimit.MaxFailures != 5 {
		t.Errorf("Expected RateLimit.MaxFailures = %d, got %d", 5, config.RateLimit.MaxFailures)
	}
	if config.Bootstrap.AdminEmail != "root@example.com" {
		t.Errorf("Expected Bootstrap.AdminEmail = %s, got %s", "root@example.com", config.Bootstrap.AdminEmail)
	}
}

func TestLoadEnv_KeepsUnsetValues(t *testing.T) {
	config := &AppConfig{
		Database: DatabaseSettings{Host: "from-yaml", Port: 5432},
	}
	t.Setenv("DB_PORT", "6543")

	if err := LoadEnv(config); err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}

	if config.Database.Host != "from-yaml" {
		t.Errorf("Expected Database.Host to stay %q, got %q", "from-yaml", config.Database.Host)
	}
	if config.Database.Port != 6543 {
		t.Errorf("Expected Database.Port = %d, got %d", 6543, config.Database.Port)
	}
}

func TestLoadEnv_InvalidValue(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-number")

	if err := LoadEnv(&AppConfig{}); err == nil {
		t.Error("Expected an error for a non numeric port")
	}
}
