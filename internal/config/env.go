package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// LoadEnv overrides configuration values with environment variables.
// Only variables that are set are applied, so values read from the YAML
// file survive unless explicitly overridden.
func LoadEnv(config *AppConfig) error {
	sections := []struct {
		name   string
		target any
	}{
		{"app", &config.App},
		{"database", &config.Database},
		{"redis", &config.Redis},
		{"server", &config.Server},
		{"tokens", &config.Tokens},
		{"logging", &config.Logging},
		{"cors", &config.CORS},
		{"password_hash", &config.PasswordHash},
		{"rate_limit", &config.RateLimit},
		{"notify", &config.Notify},
		{"maintenance", &config.Maintenance},
		{"bootstrap", &config.Bootstrap},
	}

	for _, section := range sections {
		if err := env.Parse(section.target); err != nil {
			return fmt.Errorf("error loading %s settings: %w", section.name, err)
		}
	}

	return nil
}
