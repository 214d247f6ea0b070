package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the scraper
type Config struct {
	// Request policy settings
	Fetch FetchConfig `yaml:"fetch" json:"fetch"`

	// Feed resolution settings
	Scrape ScrapeConfig `yaml:"scrape" json:"scrape"`

	// HTTP service settings
	Server ServerConfig `yaml:"server" json:"server"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Media download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Scrape history settings
	History HistoryConfig `yaml:"history" json:"history"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// FetchConfig holds the retry and identity settings of the request policy
type FetchConfig struct {
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" json:"base_delay"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
	// UserAgent pins the identity header. Empty means pick from UserAgents.
	UserAgent  string   `yaml:"user_agent" json:"user_agent"`
	UserAgents []string `yaml:"user_agents" json:"user_agents"`
}

// ScrapeConfig holds feed resolution settings
type ScrapeConfig struct {
	BaseURL      string `yaml:"base_url" json:"base_url"`
	DefaultCount int    `yaml:"default_count" json:"default_count"`
}

// ServerConfig holds HTTP service settings
type ServerConfig struct {
	Addr              string        `yaml:"addr" json:"addr"`
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"`
	Burst             int           `yaml:"burst" json:"burst"`
	ReadTimeout       time.Duration `yaml:"read_timeout" json:"read_timeout"`
}

// OutputConfig holds export settings
type OutputConfig struct {
	Directory string `yaml:"directory" json:"directory"`
	// FileType is one of json, csv, all, na
	FileType string `yaml:"file_type" json:"file_type"`
}

// DownloadConfig holds media download settings
type DownloadConfig struct {
	Concurrent int           `yaml:"concurrent" json:"concurrent"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
}

// HistoryConfig holds scrape history settings
type HistoryConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Directory string `yaml:"directory" json:"directory"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `yaml:"level" json:"level"`
	File       string `yaml:"file" json:"file"`
	MaxSize    int    `yaml:"max_size" json:"max_size"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAge     int    `yaml:"max_age" json:"max_age"`
	Compress   bool   `yaml:"compress" json:"compress"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Fetch: FetchConfig{
			MaxAttempts: 3,
			BaseDelay:   1 * time.Second,
			Timeout:     30 * time.Second,
		},
		Scrape: ScrapeConfig{
			BaseURL:      "https://www.tiktok.com",
			DefaultCount: 10,
		},
		Server: ServerConfig{
			Addr:              ":10000",
			RequestsPerMinute: 30,
			Burst:             5,
			ReadTimeout:       15 * time.Second,
		},
		Output: OutputConfig{
			Directory: ".",
			FileType:  "na",
		},
		Download: DownloadConfig{
			Concurrent: 5,
			Timeout:    60 * time.Second,
		},
		History: HistoryConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level:      "info",
			File:       "",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     7,
			Compress:   false,
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if v := os.Getenv("TTSCRAPER_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("TTSCRAPER_MAX_ATTEMPTS: %w", err))
		} else {
			c.Fetch.MaxAttempts = n
		}
	}
	if v := os.Getenv("TTSCRAPER_BASE_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("TTSCRAPER_BASE_DELAY: %w", err))
		} else {
			c.Fetch.BaseDelay = d
		}
	}
	if v := os.Getenv("TTSCRAPER_USER_AGENT"); v != "" {
		c.Fetch.UserAgent = v
	}
	if v := os.Getenv("TTSCRAPER_BASE_URL"); v != "" {
		c.Scrape.BaseURL = v
	}
	if v := os.Getenv("TTSCRAPER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	// PORT is what most hosting platforms inject
	if v := os.Getenv("PORT"); v != "" && os.Getenv("TTSCRAPER_ADDR") == "" {
		c.Server.Addr = ":" + v
	}
	if v := os.Getenv("TTSCRAPER_OUTPUT_DIR"); v != "" {
		c.Output.Directory = v
	}
	if v := os.Getenv("TTSCRAPER_HISTORY_ENABLED"); v != "" {
		c.History.Enabled = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("TTSCRAPER_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("TTSCRAPER_LOG_FILE"); v != "" {
		c.Logging.File = v
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".ttscraper.yaml",
		".ttscraper.yml",
		filepath.Join(home, ".config", "ttscraper", "config.yaml"),
		filepath.Join(home, ".config", "ttscraper", "config.yml"),
		filepath.Join(home, ".ttscraper.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Fetch.MaxAttempts <= 0 {
		errs = append(errs, errors.New("max attempts must be positive"))
	}
	if c.Fetch.BaseDelay < 0 {
		errs = append(errs, errors.New("base delay cannot be negative"))
	}
	if c.Fetch.Timeout <= 0 {
		errs = append(errs, errors.New("fetch timeout must be positive"))
	}

	if c.Scrape.BaseURL == "" {
		errs = append(errs, errors.New("base url is required"))
	}
	if c.Scrape.DefaultCount <= 0 {
		errs = append(errs, errors.New("default count must be positive"))
	}

	if c.Server.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("requests per minute cannot be negative"))
	}
	if c.Server.RequestsPerMinute > 0 && c.Server.Burst <= 0 {
		errs = append(errs, errors.New("burst must be positive when rate limiting is on"))
	}

	if c.Download.Concurrent <= 0 {
		errs = append(errs, errors.New("concurrent downloads must be positive"))
	}
	if c.Download.Concurrent > 20 {
		errs = append(errs, errors.New("concurrent downloads should not exceed 20"))
	}

	validFileTypes := map[string]bool{
		"json": true, "csv": true, "all": true, "na": true,
	}
	if !validFileTypes[strings.ToLower(c.Output.FileType)] {
		errs = append(errs, fmt.Errorf("invalid output file type %q", c.Output.FileType))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	return errors.Join(errs...)
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only keys present in the map are applied.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["max-attempts"].(int); ok && v > 0 {
		c.Fetch.MaxAttempts = v
	}
	if v, ok := flags["base-delay"].(time.Duration); ok && v >= 0 {
		c.Fetch.BaseDelay = v
	}
	if v, ok := flags["user-agent"].(string); ok && v != "" {
		c.Fetch.UserAgent = v
	}
	if v, ok := flags["base-url"].(string); ok && v != "" {
		c.Scrape.BaseURL = v
	}
	if v, ok := flags["addr"].(string); ok && v != "" {
		c.Server.Addr = v
	}
	if v, ok := flags["filepath"].(string); ok && v != "" {
		c.Output.Directory = v
	}
	if v, ok := flags["filetype"].(string); ok && v != "" {
		c.Output.FileType = strings.ToLower(v)
	}
	if v, ok := flags["concurrent"].(int); ok && v > 0 {
		c.Download.Concurrent = v
	}
	if v, ok := flags["history"].(bool); ok {
		c.History.Enabled = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".ttscraper.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
