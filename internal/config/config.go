package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the daemon
type Config struct {
	Host           string        // feed host
	Port           uint16        // feed port (SBS BaseStation output, usually 30003)
	StaleThreshold time.Duration // drop aircraft silent for at least this long
	SweepInterval  time.Duration // how often the eviction sweep runs
	ReferencePath  string        // aircraft reference database (.sqb/.csv/.csv.gz), optional
	WatchReference bool          // reload the reference database when the file changes
	Log            LogConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
}

// Addr returns the feed address in host:port form.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load loads configuration from config file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("host", "localhost")
	v.SetDefault("port", 30003)
	v.SetDefault("stale_threshold", 60)
	v.SetDefault("sweep_interval", 5)
	v.SetDefault("reference_path", "")
	v.SetDefault("watch_reference", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("/etc/skywatch")
	v.AddConfigPath(".")

	// An explicit config file path wins over the search paths.
	if configPath := os.Getenv("SKYWATCH_CONFIG_PATH"); configPath != "" {
		v.SetConfigFile(configPath)
	}

	// Read config file (if it exists)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK - we'll use defaults + env vars
	}

	v.SetEnvPrefix("SKYWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	port := v.GetInt("port")
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid configuration: port %d out of range", port)
	}

	cfg := &Config{
		Host:           v.GetString("host"),
		Port:           uint16(port),
		StaleThreshold: time.Duration(v.GetInt("stale_threshold")) * time.Second,
		SweepInterval:  time.Duration(v.GetInt("sweep_interval")) * time.Second,
		ReferencePath:  v.GetString("reference_path"),
		WatchReference: v.GetBool("watch_reference"),
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// validate validates the configuration values
func validate(cfg *Config) error {
	if cfg.Host == "" {
		return fmt.Errorf("host is required")
	}

	if cfg.StaleThreshold <= 0 {
		return fmt.Errorf("stale_threshold must be greater than 0")
	}

	if cfg.SweepInterval <= 0 {
		return fmt.Errorf("sweep_interval must be greater than 0")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(cfg.Log.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", cfg.Log.Level)
	}

	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[strings.ToLower(cfg.Log.Format)] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", cfg.Log.Format)
	}

	return nil
}
