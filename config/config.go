package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to environment overrides, e.g. HLSUB_HEYLOYALTY_API_KEY
const EnvPrefix = "HLSUB"

const placeholderValue = "your-api-key-here"

// Load loads the configuration from file
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config in standard locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		// Check current directory first
		v.AddConfigPath(".")

		// Check home directory
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".hlsub"))
		}

		// Check /etc
		v.AddConfigPath("/etc/hlsub/")
	}

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configPath != "" {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
		// Without a file the environment may still carry everything
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values. Every key needs a default
// so AutomaticEnv can see it during Unmarshal.
func setDefaults(v *viper.Viper) {
	// Heyloyalty defaults
	v.SetDefault("heyloyalty.url", "https://api.heyloyalty.com/loyalty/v1")
	v.SetDefault("heyloyalty.api_key", "")
	v.SetDefault("heyloyalty.api_secret", "")
	v.SetDefault("heyloyalty.timeout", "30s")

	// Subscription defaults
	v.SetDefault("subscription.concurrency", 4)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	if cfg.Heyloyalty.URL == "" {
		return fmt.Errorf("heyloyalty.url is required")
	}

	if cfg.Heyloyalty.APIKey == "" || cfg.Heyloyalty.APIKey == placeholderValue {
		return fmt.Errorf("heyloyalty.api_key must be set to a valid API key")
	}

	if cfg.Heyloyalty.APISecret == "" || cfg.Heyloyalty.APISecret == placeholderValue {
		return fmt.Errorf("heyloyalty.api_secret must be set to a valid API secret")
	}

	if cfg.Heyloyalty.Timeout < 0 {
		return fmt.Errorf("heyloyalty.timeout must not be negative")
	}

	if cfg.Subscription.Concurrency < 1 {
		return fmt.Errorf("subscription.concurrency must be at least 1")
	}

	seen := make(map[int]bool, len(cfg.Subscription.Lists))
	for i, list := range cfg.Subscription.Lists {
		if list.ID <= 0 {
			return fmt.Errorf("subscription.lists[%d].id must be a positive list ID", i)
		}
		if seen[list.ID] {
			return fmt.Errorf("subscription.lists[%d]: list %d is configured twice", i, list.ID)
		}
		seen[list.ID] = true
	}

	// Validate logging level
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}

	// Validate logging format
	validFormats := map[string]bool{
		"console": true,
		"json":    true,
	}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	return nil
}
