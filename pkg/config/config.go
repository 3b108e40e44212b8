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

// Config holds all configuration options for albumscan
type Config struct {
	// Browser launch or attach settings
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Traversal heuristics and limits
	Traversal TraversalConfig `yaml:"traversal" json:"traversal"`

	// Human-like pacing
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Where the finished collection is handed off
	Handoff HandoffConfig `yaml:"handoff" json:"handoff"`

	// Downstream export stage
	Export ExportConfig `yaml:"export" json:"export"`

	// Notification preferences
	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`

	// Prometheus endpoint
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// BrowserConfig holds the Chrome settings
type BrowserConfig struct {
	Headless         bool          `yaml:"headless" json:"headless"`
	ExecPath         string        `yaml:"exec_path" json:"exec_path"`
	RemoteURL        string        `yaml:"remote_url" json:"remote_url"`
	UserDataDir      string        `yaml:"user_data_dir" json:"user_data_dir"`
	UserAgent        string        `yaml:"user_agent" json:"user_agent"`
	WindowWidth      int           `yaml:"window_width" json:"window_width"`
	WindowHeight     int           `yaml:"window_height" json:"window_height"`
	LoadPollInterval time.Duration `yaml:"load_poll_interval" json:"load_poll_interval"`
	LoadAttempts     int           `yaml:"load_attempts" json:"load_attempts"`
	SettleDelay      time.Duration `yaml:"settle_delay" json:"settle_delay"`
}

// TraversalConfig holds the locator, navigator and detector settings
type TraversalConfig struct {
	MaxIterations      int           `yaml:"max_iterations" json:"max_iterations"`
	DuplicateThreshold int           `yaml:"duplicate_threshold" json:"duplicate_threshold"`
	MinItemWidth       float64       `yaml:"min_item_width" json:"min_item_width"`
	WeakKeyParam       string        `yaml:"weak_key_param" json:"weak_key_param"`
	NextSelectors      []string      `yaml:"next_selectors" json:"next_selectors"`
	NavAttempts        int           `yaml:"nav_attempts" json:"nav_attempts"`
	NavPollBase        time.Duration `yaml:"nav_poll_base" json:"nav_poll_base"`
	NavPollJitter      time.Duration `yaml:"nav_poll_jitter" json:"nav_poll_jitter"`
	ReactivateAfter    int           `yaml:"reactivate_after" json:"reactivate_after"`
}

// RateLimitConfig holds pacing configuration
type RateLimitConfig struct {
	MinDelay       time.Duration `yaml:"min_delay" json:"min_delay"`
	MaxDelay       time.Duration `yaml:"max_delay" json:"max_delay"`
	CooldownEvery  int           `yaml:"cooldown_every" json:"cooldown_every"`
	CooldownBase   time.Duration `yaml:"cooldown_base" json:"cooldown_base"`
	CooldownJitter time.Duration `yaml:"cooldown_jitter" json:"cooldown_jitter"`
}

// HandoffConfig selects and configures the handoff store
type HandoffConfig struct {
	Backend       string        `yaml:"backend" json:"backend"`
	Directory     string        `yaml:"directory" json:"directory"`
	RedisAddr     string        `yaml:"redis_addr" json:"redis_addr"`
	RedisPassword string        `yaml:"redis_password" json:"redis_password"`
	RedisDB       int           `yaml:"redis_db" json:"redis_db"`
	TTL           time.Duration `yaml:"ttl" json:"ttl"`
	Retries       int           `yaml:"retries" json:"retries"`
}

// ExportConfig holds the downstream export settings
type ExportConfig struct {
	Auto            bool   `yaml:"auto" json:"auto"`
	Format          string `yaml:"format" json:"format"`
	OutputDir       string `yaml:"output_dir" json:"output_dir"`
	NamePrefix      string `yaml:"name_prefix" json:"name_prefix"`
	Workers         int    `yaml:"workers" json:"workers"`
	LowResThreshold int    `yaml:"low_res_threshold" json:"low_res_threshold"`
}

// NotificationConfig holds notification preferences
type NotificationConfig struct {
	Enabled    bool `yaml:"enabled" json:"enabled"`
	OnComplete bool `yaml:"on_complete" json:"on_complete"`
	OnError    bool `yaml:"on_error" json:"on_error"`
}

// MetricsConfig holds the metrics endpoint address; empty disables it
type MetricsConfig struct {
	Addr string `yaml:"addr" json:"addr"`
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

// Supported values
const (
	HandoffFile  = "file"
	HandoffRedis = "redis"

	FormatPDF = "pdf"
	FormatZIP = "zip"
)

// DefaultNextSelectors are tried in order to find the viewer's next control
var DefaultNextSelectors = []string{
	`div[aria-label="Next photo"]`,
	`div[aria-label="Next"]`,
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless:         false,
			WindowWidth:      1366,
			WindowHeight:     900,
			LoadPollInterval: 100 * time.Millisecond,
			LoadAttempts:     300,
			SettleDelay:      time.Second,
		},
		Traversal: TraversalConfig{
			MaxIterations:      1000,
			DuplicateThreshold: 3,
			MinItemWidth:       300,
			WeakKeyParam:       "fbid",
			NextSelectors:      append([]string(nil), DefaultNextSelectors...),
			NavAttempts:        15,
			NavPollBase:        400 * time.Millisecond,
			NavPollJitter:      200 * time.Millisecond,
			ReactivateAfter:    6,
		},
		RateLimit: RateLimitConfig{
			MinDelay:       400 * time.Millisecond,
			MaxDelay:       900 * time.Millisecond,
			CooldownEvery:  30,
			CooldownBase:   2 * time.Second,
			CooldownJitter: 1500 * time.Millisecond,
		},
		Handoff: HandoffConfig{
			Backend: HandoffFile,
			TTL:     24 * time.Hour,
			Retries: 3,
		},
		Export: ExportConfig{
			Auto:            true,
			Format:          FormatPDF,
			OutputDir:       ".",
			NamePrefix:      "Album",
			Workers:         4,
			LowResThreshold: 600,
		},
		Notifications: NotificationConfig{
			Enabled:    true,
			OnComplete: true,
			OnError:    true,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     7,
		},
	}
}

// LoadFromEnv loads configuration from ALBUMSCAN_* environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if v := os.Getenv("ALBUMSCAN_HEADLESS"); v != "" {
		c.Browser.Headless = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("ALBUMSCAN_CHROME_PATH"); v != "" {
		c.Browser.ExecPath = v
	}
	if v := os.Getenv("ALBUMSCAN_REMOTE_URL"); v != "" {
		c.Browser.RemoteURL = v
	}
	if v := os.Getenv("ALBUMSCAN_USER_DATA_DIR"); v != "" {
		c.Browser.UserDataDir = v
	}
	if v := os.Getenv("ALBUMSCAN_USER_AGENT"); v != "" {
		c.Browser.UserAgent = v
	}

	if v := os.Getenv("ALBUMSCAN_MAX_ITERATIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("ALBUMSCAN_MAX_ITERATIONS: %w", err))
		} else if n > 0 {
			c.Traversal.MaxIterations = n
		}
	}
	if v := os.Getenv("ALBUMSCAN_WEAK_KEY_PARAM"); v != "" {
		c.Traversal.WeakKeyParam = v
	}

	if v := os.Getenv("ALBUMSCAN_MIN_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("ALBUMSCAN_MIN_DELAY: %w", err))
		} else {
			c.RateLimit.MinDelay = d
		}
	}
	if v := os.Getenv("ALBUMSCAN_MAX_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("ALBUMSCAN_MAX_DELAY: %w", err))
		} else {
			c.RateLimit.MaxDelay = d
		}
	}

	if v := os.Getenv("ALBUMSCAN_HANDOFF_BACKEND"); v != "" {
		c.Handoff.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("ALBUMSCAN_HANDOFF_DIR"); v != "" {
		c.Handoff.Directory = v
	}
	if v := os.Getenv("ALBUMSCAN_REDIS_ADDR"); v != "" {
		c.Handoff.RedisAddr = v
	}
	if v := os.Getenv("ALBUMSCAN_REDIS_PASSWORD"); v != "" {
		c.Handoff.RedisPassword = v
	}

	if v := os.Getenv("ALBUMSCAN_OUTPUT_DIR"); v != "" {
		c.Export.OutputDir = v
	}
	if v := os.Getenv("ALBUMSCAN_EXPORT_FORMAT"); v != "" {
		c.Export.Format = strings.ToLower(v)
	}
	if v := os.Getenv("ALBUMSCAN_AUTO_EXPORT"); v != "" {
		c.Export.Auto = strings.ToLower(v) == "true"
	}

	if v := os.Getenv("ALBUMSCAN_NOTIFICATIONS_ENABLED"); v != "" {
		c.Notifications.Enabled = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("ALBUMSCAN_METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}
	if v := os.Getenv("ALBUMSCAN_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("ALBUMSCAN_LOG_FILE"); v != "" {
		c.Logging.File = v
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
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
	locations := []string{
		".albumscan.yaml",
		".albumscan.yml",
	}
	if dir, err := os.UserConfigDir(); err == nil {
		locations = append(locations,
			filepath.Join(dir, "albumscan", "config.yaml"),
			filepath.Join(dir, "albumscan", "config.yml"),
		)
	}
	if home, err := os.UserHomeDir(); err == nil {
		locations = append(locations, filepath.Join(home, ".albumscan.yaml"))
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// DefaultPath is where `config init` writes a new file
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".albumscan.yaml"
	}
	return filepath.Join(dir, "albumscan", "config.yaml")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Browser.RemoteURL == "" && (c.Browser.WindowWidth <= 0 || c.Browser.WindowHeight <= 0) {
		errs = append(errs, errors.New("browser window size must be positive"))
	}
	if c.Browser.LoadPollInterval <= 0 || c.Browser.LoadAttempts <= 0 {
		errs = append(errs, errors.New("page load polling must have a positive interval and attempt count"))
	}
	if c.Browser.SettleDelay < 0 {
		errs = append(errs, errors.New("settle delay cannot be negative"))
	}

	if c.Traversal.MaxIterations <= 0 {
		errs = append(errs, errors.New("max iterations must be positive"))
	}
	if c.Traversal.DuplicateThreshold <= 0 {
		errs = append(errs, errors.New("duplicate threshold must be positive"))
	}
	if c.Traversal.MinItemWidth < 0 {
		errs = append(errs, errors.New("minimum item width cannot be negative"))
	}
	if len(c.Traversal.NextSelectors) == 0 {
		errs = append(errs, errors.New("at least one next selector is required"))
	}
	if c.Traversal.NavAttempts <= 0 {
		errs = append(errs, errors.New("navigation attempts must be positive"))
	}
	if c.Traversal.NavPollBase < 0 || c.Traversal.NavPollJitter < 0 {
		errs = append(errs, errors.New("navigation poll interval cannot be negative"))
	}

	if c.RateLimit.MinDelay < 0 || c.RateLimit.MaxDelay < c.RateLimit.MinDelay {
		errs = append(errs, errors.New("pacing delay range is invalid"))
	}
	if c.RateLimit.CooldownEvery <= 0 {
		errs = append(errs, errors.New("cooldown interval must be positive"))
	}
	if c.RateLimit.CooldownBase < 0 || c.RateLimit.CooldownJitter < 0 {
		errs = append(errs, errors.New("cooldown duration cannot be negative"))
	}

	switch c.Handoff.Backend {
	case HandoffFile:
	case HandoffRedis:
		if c.Handoff.RedisAddr == "" {
			errs = append(errs, errors.New("redis handoff requires redis_addr"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid handoff backend %q", c.Handoff.Backend))
	}
	if c.Handoff.Retries < 0 {
		errs = append(errs, errors.New("handoff retries cannot be negative"))
	}

	if c.Export.Format != FormatPDF && c.Export.Format != FormatZIP {
		errs = append(errs, fmt.Errorf("invalid export format %q", c.Export.Format))
	}
	if c.Export.OutputDir == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if c.Export.Workers <= 0 || c.Export.Workers > 16 {
		errs = append(errs, errors.New("export workers must be between 1 and 16"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
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

// MergeCommandLineFlags merges explicitly set command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["headless"].(bool); ok {
		c.Browser.Headless = v
	}
	if v, ok := flags["chrome-path"].(string); ok && v != "" {
		c.Browser.ExecPath = v
	}
	if v, ok := flags["remote-url"].(string); ok && v != "" {
		c.Browser.RemoteURL = v
	}
	if v, ok := flags["user-data-dir"].(string); ok && v != "" {
		c.Browser.UserDataDir = v
	}
	if v, ok := flags["max-iterations"].(int); ok && v > 0 {
		c.Traversal.MaxIterations = v
	}
	if v, ok := flags["handoff"].(string); ok && v != "" {
		c.Handoff.Backend = v
	}
	if v, ok := flags["redis-addr"].(string); ok && v != "" {
		c.Handoff.RedisAddr = v
	}
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Export.OutputDir = v
	}
	if v, ok := flags["format"].(string); ok && v != "" {
		c.Export.Format = strings.ToLower(v)
	}
	if v, ok := flags["auto-export"].(bool); ok {
		c.Export.Auto = v
	}
	if v, ok := flags["metrics-addr"].(string); ok && v != "" {
		c.Metrics.Addr = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := flags["log-file"].(string); ok && v != "" {
		c.Logging.File = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	if home, err := os.UserHomeDir(); err == nil {
		_ = godotenv.Load(filepath.Join(home, ".albumscan.env"))
	}

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
