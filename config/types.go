package config

import "time"

// Config represents the complete configuration structure
type Config struct {
	Heyloyalty   HeyloyaltyConfig   `mapstructure:"heyloyalty"`
	Subscription SubscriptionConfig `mapstructure:"subscription"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// HeyloyaltyConfig holds Heyloyalty API connection details
type HeyloyaltyConfig struct {
	URL       string        `mapstructure:"url"`
	APIKey    string        `mapstructure:"api_key"`
	APISecret string        `mapstructure:"api_secret"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// SubscriptionConfig lists the lists shown by the status command
type SubscriptionConfig struct {
	Lists       []ListConfig `mapstructure:"lists"`
	Concurrency int          `mapstructure:"concurrency"`
}

// ListConfig describes one list in the status summary
type ListConfig struct {
	ID            int    `mapstructure:"id"`
	Label         string `mapstructure:"label"`
	CategoryField string `mapstructure:"category_field"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Color  bool   `mapstructure:"color"`
}
