package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppName is used for config, data and keyring locations
const AppName = "ttscraper"

// MaxPageSize is the largest page size the listing endpoint has been seen to honour
const MaxPageSize = 50

// Config holds all configuration options for the scraper
type Config struct {
	TikTok    TikTokConfig    `yaml:"tiktok" json:"tiktok"`
	Crawl     CrawlConfig     `yaml:"crawl" json:"crawl"`
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
	HTTP      HTTPConfig      `yaml:"http" json:"http"`
	Output    OutputConfig    `yaml:"output" json:"output"`
	Storage   StorageConfig   `yaml:"storage" json:"storage"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
}

// TikTokConfig holds session and endpoint settings
type TikTokConfig struct {
	Cookie    string `yaml:"cookie" json:"cookie"`
	UserAgent string `yaml:"user_agent" json:"user_agent"`
	BaseURL   string `yaml:"base_url" json:"base_url"`
}

// CrawlConfig controls pagination, retry and termination behaviour
type CrawlConfig struct {
	PageSize           int           `yaml:"page_size" json:"page_size"`
	ItemLimit          int           `yaml:"item_limit" json:"item_limit"` // 0 means unlimited
	MaxAttempts        int           `yaml:"max_attempts" json:"max_attempts"`
	InitialBackoff     time.Duration `yaml:"initial_backoff" json:"initial_backoff"`
	MaxBackoff         time.Duration `yaml:"max_backoff" json:"max_backoff"`
	BackoffFactor      float64       `yaml:"backoff_factor" json:"backoff_factor"`
	BackoffJitter      float64       `yaml:"backoff_jitter" json:"backoff_jitter"`
	InterPageDelay     time.Duration `yaml:"inter_page_delay" json:"inter_page_delay"`
	EmptyPageThreshold int           `yaml:"empty_page_threshold" json:"empty_page_threshold"`
	HardAttemptCeiling int           `yaml:"hard_attempt_ceiling" json:"hard_attempt_ceiling"`
	AdvanceOnEmpty     bool          `yaml:"advance_on_empty" json:"advance_on_empty"`
	Parallel           int           `yaml:"parallel" json:"parallel"`
}

// RateLimitConfig holds the process-wide request budget
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"` // 0 disables limiting
	BurstSize         int `yaml:"burst_size" json:"burst_size"`
}

// HTTPConfig holds transport settings
type HTTPConfig struct {
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
	Proxy   string        `yaml:"proxy" json:"proxy"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory     string `yaml:"base_directory" json:"base_directory"`
	CreateUserFolders bool   `yaml:"create_user_folders" json:"create_user_folders"`
	WriteReport       bool   `yaml:"write_report" json:"write_report"`
}

// StorageConfig holds the optional SQLite database location
type StorageConfig struct {
	DatabasePath string `yaml:"database_path" json:"database_path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		TikTok: TikTokConfig{
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/107.0.0.0 Safari/537.36 Edg/107.0.1418.35",
			BaseURL:   "https://www.tiktok.com",
		},
		Crawl: CrawlConfig{
			PageSize:           20,
			ItemLimit:          0,
			MaxAttempts:        10,
			InitialBackoff:     time.Second,
			MaxBackoff:         5 * time.Second,
			BackoffFactor:      2.0,
			BackoffJitter:      0.1,
			InterPageDelay:     500 * time.Millisecond,
			EmptyPageThreshold: 3,
			HardAttemptCeiling: 50,
			AdvanceOnEmpty:     true,
			Parallel:           1,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
			BurstSize:         5,
		},
		HTTP: HTTPConfig{
			Timeout: 30 * time.Second,
		},
		Output: OutputConfig{
			BaseDirectory:     "./output",
			CreateUserFolders: true,
			WriteReport:       true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if cookie := os.Getenv("TTSCRAPER_COOKIE"); cookie != "" {
		c.TikTok.Cookie = cookie
	}
	if userAgent := os.Getenv("TTSCRAPER_USER_AGENT"); userAgent != "" {
		c.TikTok.UserAgent = userAgent
	}
	if proxy := os.Getenv("TTSCRAPER_PROXY"); proxy != "" {
		c.HTTP.Proxy = proxy
	}
	if outputDir := os.Getenv("TTSCRAPER_OUTPUT_DIR"); outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if dbPath := os.Getenv("TTSCRAPER_DATABASE"); dbPath != "" {
		c.Storage.DatabasePath = dbPath
	}
	if logLevel := os.Getenv("TTSCRAPER_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	intVars := map[string]*int{
		"TTSCRAPER_PAGE_SIZE":           &c.Crawl.PageSize,
		"TTSCRAPER_MAX_ATTEMPTS":        &c.Crawl.MaxAttempts,
		"TTSCRAPER_REQUESTS_PER_MINUTE": &c.RateLimit.RequestsPerMinute,
	}
	for name, target := range intVars {
		raw := os.Getenv(name)
		if raw == "" {
			continue
		}
		val, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		*target = val
	}

	if raw := os.Getenv("TTSCRAPER_INTER_PAGE_DELAY"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("TTSCRAPER_INTER_PAGE_DELAY: %w", err))
		} else {
			c.Crawl.InterPageDelay = d
		}
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
		".ttscraper.yaml",
		".ttscraper.yml",
		filepath.Join(xdg.ConfigHome, AppName, "config.yaml"),
		filepath.Join(xdg.ConfigHome, AppName, "config.yml"),
		filepath.Join(xdg.Home, ".ttscraper.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// DefaultConfigPath is where `config init` writes when no path is given
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Crawl.PageSize <= 0 || c.Crawl.PageSize > MaxPageSize {
		errs = append(errs, fmt.Errorf("page size must be between 1 and %d", MaxPageSize))
	}
	if c.Crawl.ItemLimit < 0 {
		errs = append(errs, errors.New("item limit cannot be negative"))
	}
	if c.Crawl.MaxAttempts <= 0 {
		errs = append(errs, errors.New("max attempts must be positive"))
	}
	if c.Crawl.InitialBackoff < 0 {
		errs = append(errs, errors.New("initial backoff cannot be negative"))
	}
	if c.Crawl.MaxBackoff < c.Crawl.InitialBackoff {
		errs = append(errs, errors.New("max backoff must not be smaller than initial backoff"))
	}
	if c.Crawl.BackoffFactor < 1 {
		errs = append(errs, errors.New("backoff factor must be at least 1"))
	}
	if c.Crawl.BackoffJitter < 0 || c.Crawl.BackoffJitter > 1 {
		errs = append(errs, errors.New("backoff jitter must be between 0 and 1"))
	}
	if c.Crawl.InterPageDelay < 0 {
		errs = append(errs, errors.New("inter-page delay cannot be negative"))
	}
	if c.Crawl.EmptyPageThreshold <= 0 {
		errs = append(errs, errors.New("empty page threshold must be positive"))
	}
	if c.Crawl.HardAttemptCeiling <= 0 {
		errs = append(errs, errors.New("hard attempt ceiling must be positive"))
	}
	if c.Crawl.Parallel <= 0 || c.Crawl.Parallel > 10 {
		errs = append(errs, errors.New("parallel crawls must be between 1 and 10"))
	}

	if c.RateLimit.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("requests per minute cannot be negative"))
	}
	if c.RateLimit.RequestsPerMinute > 0 && c.RateLimit.BurstSize <= 0 {
		errs = append(errs, errors.New("burst size must be positive"))
	}

	if c.HTTP.Timeout <= 0 {
		errs = append(errs, errors.New("http timeout must be positive"))
	}
	if c.HTTP.Proxy != "" {
		u, err := url.Parse(c.HTTP.Proxy)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid proxy URL: %w", err))
		} else if u.Scheme != "http" && u.Scheme != "https" && u.Scheme != "socks5" && u.Scheme != "socks5h" {
			errs = append(errs, fmt.Errorf("unsupported proxy scheme %q", u.Scheme))
		}
	}

	if c.TikTok.BaseURL == "" {
		errs = append(errs, errors.New("base URL is required"))
	}
	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
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
// Only keys present in the map override the loaded values.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if cookie, ok := flags["cookie"].(string); ok && cookie != "" {
		c.TikTok.Cookie = cookie
	}
	if proxy, ok := flags["proxy"].(string); ok && proxy != "" {
		c.HTTP.Proxy = proxy
	}
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if dbPath, ok := flags["database"].(string); ok && dbPath != "" {
		c.Storage.DatabasePath = dbPath
	}
	if pageSize, ok := flags["page-size"].(int); ok && pageSize > 0 {
		c.Crawl.PageSize = pageSize
	}
	if limit, ok := flags["limit"].(int); ok && limit >= 0 {
		c.Crawl.ItemLimit = limit
	}
	if attempts, ok := flags["max-attempts"].(int); ok && attempts > 0 {
		c.Crawl.MaxAttempts = attempts
	}
	if delay, ok := flags["inter-page-delay"].(time.Duration); ok && delay >= 0 {
		c.Crawl.InterPageDelay = delay
	}
	if parallel, ok := flags["parallel"].(int); ok && parallel > 0 {
		c.Crawl.Parallel = parallel
	}
	if rpm, ok := flags["rate-limit"].(int); ok && rpm >= 0 {
		c.RateLimit.RequestsPerMinute = rpm
	}
	if timeout, ok := flags["timeout"].(time.Duration); ok && timeout > 0 {
		c.HTTP.Timeout = timeout
	}
	if report, ok := flags["report"].(bool); ok {
		c.Output.WriteReport = report
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(xdg.Home, ".ttscraper.env"))

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
