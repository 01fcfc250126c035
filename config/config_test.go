package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
heyloyalty:
  api_key: key
  api_secret: secret
  timeout: 10s
subscription:
  concurrency: 2
  lists:
    - id: 5
      label: Nyhedsbrev
      category_field: categories
    - id: 7
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://api.heyloyalty.com/loyalty/v1", cfg.Heyloyalty.URL)
	assert.Equal(t, "key", cfg.Heyloyalty.APIKey)
	assert.Equal(t, "secret", cfg.Heyloyalty.APISecret)
	assert.Equal(t, 10*time.Second, cfg.Heyloyalty.Timeout)
	assert.Equal(t, 2, cfg.Subscription.Concurrency)
	assert.Equal(t, []ListConfig{
		{ID: 5, Label: "Nyhedsbrev", CategoryField: "categories"},
		{ID: 7},
	}, cfg.Subscription.Lists)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.Logging.Color)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, `
heyloyalty:
  api_key: your-api-key-here
  api_secret: your-api-key-here
`)
	t.Setenv("HLSUB_HEYLOYALTY_API_KEY", "env-key")
	t.Setenv("HLSUB_HEYLOYALTY_API_SECRET", "env-secret")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.Heyloyalty.APIKey)
	assert.Equal(t, "env-secret", cfg.Heyloyalty.APISecret)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Heyloyalty: HeyloyaltyConfig{
				URL:       "https://api.heyloyalty.com/loyalty/v1",
				APIKey:    "key",
				APISecret: "secret",
			},
			Subscription: SubscriptionConfig{Concurrency: 4},
			Logging:      LoggingConfig{Level: "info", Format: "console"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(*Config) {},
		},
		{
			name:    "missing URL",
			mutate:  func(c *Config) { c.Heyloyalty.URL = "" },
			wantErr: "heyloyalty.url is required",
		},
		{
			name:    "placeholder key",
			mutate:  func(c *Config) { c.Heyloyalty.APIKey = "your-api-key-here" },
			wantErr: "heyloyalty.api_key",
		},
		{
			name:    "missing secret",
			mutate:  func(c *Config) { c.Heyloyalty.APISecret = "" },
			wantErr: "heyloyalty.api_secret",
		},
		{
			name:    "negative timeout",
			mutate:  func(c *Config) { c.Heyloyalty.Timeout = -time.Second },
			wantErr: "heyloyalty.timeout",
		},
		{
			name:    "zero concurrency",
			mutate:  func(c *Config) { c.Subscription.Concurrency = 0 },
			wantErr: "subscription.concurrency",
		},
		{
			name:    "list without ID",
			mutate:  func(c *Config) { c.Subscription.Lists = []ListConfig{{Label: "x"}} },
			wantErr: "subscription.lists[0].id",
		},
		{
			name:    "duplicate list",
			mutate:  func(c *Config) { c.Subscription.Lists = []ListConfig{{ID: 3}, {ID: 3}} },
			wantErr: "configured twice",
		},
		{
			name:    "invalid level",
			mutate:  func(c *Config) { c.Logging.Level = "trace" },
			wantErr: "invalid logging level",
		},
		{
			name:    "invalid format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "invalid logging format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
