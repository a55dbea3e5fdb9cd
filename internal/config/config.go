package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// AWS
	AWSRegion string `mapstructure:"aws-region"`

	// Parameter store namespace: parameters live under /{prefix}/...
	ParameterPrefix string `mapstructure:"param-prefix"`

	// Local paths
	ScratchDir  string `mapstructure:"scratch-dir"`
	JournalPath string `mapstructure:"journal-path"`
	FSMDBPath   string `mapstructure:"fsm-db-path"`

	// Config cache
	CacheTTL time.Duration `mapstructure:"cache-ttl"`

	// Security limits
	MaxKeyLength int `mapstructure:"max-key-length"`
}

// Load reads configuration from environment, config file, and defaults
func Load() (*Config, error) {
	// Set defaults
	viper.SetDefault("aws-region", "us-east-1")
	viper.SetDefault("param-prefix", "gel-exifstrip")
	viper.SetDefault("scratch-dir", "/tmp/exifstrip")
	viper.SetDefault("journal-path", ".artifacts/journal.db")
	viper.SetDefault("fsm-db-path", ".artifacts/fsm.db")
	viper.SetDefault("cache-ttl", "300s")
	viper.SetDefault("max-key-length", 1024)

	// Environment variables (will be EXIFSTRIP_AWS_REGION, etc.)
	viper.SetEnvPrefix("EXIFSTRIP")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// Config file (optional)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.exifstrip")

	// Read config file (ignore if not found)
	_ = viper.ReadInConfig()

	// Unmarshal into config struct
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate checks configuration for errors
func (c *Config) Validate() error {
	if c.AWSRegion == "" {
		return fmt.Errorf("aws-region cannot be empty")
	}
	if c.ParameterPrefix == "" {
		return fmt.Errorf("param-prefix cannot be empty")
	}
	if c.ScratchDir == "" {
		return fmt.Errorf("scratch-dir cannot be empty")
	}
	if c.JournalPath == "" {
		return fmt.Errorf("journal-path cannot be empty")
	}
	if c.FSMDBPath == "" {
		return fmt.Errorf("fsm-db-path cannot be empty")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache-ttl must be positive")
	}
	if c.MaxKeyLength <= 0 {
		return fmt.Errorf("max-key-length must be positive")
	}
	return nil
}
