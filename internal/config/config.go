package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	NOSPOS  NOSPOSConfig  `mapstructure:"nospos"`
	Browser BrowserConfig `mapstructure:"browser"`
	Crawl   CrawlConfig   `mapstructure:"crawl"`
	Sales   SalesConfig   `mapstructure:"sales"`
	Refund  RefundConfig  `mapstructure:"refund"`
	Audit   AuditConfig   `mapstructure:"audit"`
	Queue   QueueConfig   `mapstructure:"queue"`
}

// NOSPOSConfig holds settings for the remote POS application
type NOSPOSConfig struct {
	BaseURL              string `mapstructure:"base_url"`
	ReportPath           string `mapstructure:"report_path"`
	MaxRetries           int    `mapstructure:"max_retries"`
	RetryDelay           int    `mapstructure:"retry_delay"` // seconds between rate-limit retries
	MaxRequestsPerSecond int    `mapstructure:"max_requests_per_second"`
}

func (c NOSPOSConfig) RetryDelayDuration() time.Duration {
	return time.Duration(c.RetryDelay) * time.Second
}

// BrowserConfig holds settings for the Chromium session
type BrowserConfig struct {
	Headless        bool   `mapstructure:"headless"`
	UserDataDir     string `mapstructure:"user_data_dir"`
	NavTimeoutSec   int    `mapstructure:"nav_timeout"`
	SettleWaitSec   int    `mapstructure:"settle_wait"`
	ElementWaitSec  int    `mapstructure:"element_wait"`
	LoginCheckLimit int    `mapstructure:"login_check_limit"`
}

func (c BrowserConfig) NavTimeout() time.Duration {
	return time.Duration(c.NavTimeoutSec) * time.Second
}

func (c BrowserConfig) SettleWait() time.Duration {
	return time.Duration(c.SettleWaitSec) * time.Second
}

func (c BrowserConfig) ElementWait() time.Duration {
	return time.Duration(c.ElementWaitSec) * time.Second
}

// CrawlConfig holds crawl-mode settings
type CrawlConfig struct {
	OutputDir      string `mapstructure:"output_dir"`
	FirstChildOnly bool   `mapstructure:"first_child_only"` // test mode: explore only the first top-level category
	MinDelayMs     int    `mapstructure:"min_delay_ms"`     // politeness delay before each navigation
	MaxDelayMs     int    `mapstructure:"max_delay_ms"`
}

// SalesConfig holds sales-replay settings
type SalesConfig struct {
	BatchSize  int    `mapstructure:"batch_size"`
	Finalize   bool   `mapstructure:"finalize"` // default dry run: transactions left open
	Cooldown   int    `mapstructure:"cooldown"` // seconds between batches
	ReceiptDir string `mapstructure:"receipt_dir"`
}

func (c SalesConfig) CooldownDuration() time.Duration {
	return time.Duration(c.Cooldown) * time.Second
}

// RefundConfig holds refund-mode settings
type RefundConfig struct {
	SubmitDelayMs int `mapstructure:"submit_delay_ms"` // pause before each card submission
}

func (c RefundConfig) SubmitDelay() time.Duration {
	return time.Duration(c.SubmitDelayMs) * time.Millisecond
}

// AuditConfig holds the optional Postgres sales ledger connection
type AuditConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// QueueConfig holds the optional Redis failure stream connection
type QueueConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	Database int    `mapstructure:"database"`
}

// Load loads configuration from YAML file with environment variable overrides
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil, fmt.Errorf("config.yaml file not found in current directory")
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("nospos.base_url", "https://nospos.com")
	viper.SetDefault("nospos.report_path", "/stock/valuation")
	viper.SetDefault("nospos.max_retries", 5)
	viper.SetDefault("nospos.retry_delay", 30)
	viper.SetDefault("nospos.max_requests_per_second", 1)

	viper.SetDefault("browser.headless", false)
	viper.SetDefault("browser.user_data_dir", "./browser_user_data")
	viper.SetDefault("browser.nav_timeout", 30)
	viper.SetDefault("browser.settle_wait", 15)
	viper.SetDefault("browser.element_wait", 3)
	viper.SetDefault("browser.login_check_limit", 60)

	viper.SetDefault("crawl.output_dir", ".")
	viper.SetDefault("crawl.first_child_only", false)
	viper.SetDefault("crawl.min_delay_ms", 1000)
	viper.SetDefault("crawl.max_delay_ms", 3000)

	viper.SetDefault("sales.batch_size", 20)
	viper.SetDefault("sales.finalize", false)
	viper.SetDefault("sales.cooldown", 5)
	viper.SetDefault("sales.receipt_dir", "./receipts")

	viper.SetDefault("refund.submit_delay_ms", 500)

	viper.SetDefault("audit.enabled", false)
	viper.SetDefault("audit.host", "localhost")
	viper.SetDefault("audit.port", 5432)
	viper.SetDefault("audit.name", "stocktake")
	viper.SetDefault("audit.user", "stocktake_user")
	viper.SetDefault("audit.password", "stocktake_pass")

	viper.SetDefault("queue.enabled", false)
	viper.SetDefault("queue.host", "localhost")
	viper.SetDefault("queue.port", 6379)
	viper.SetDefault("queue.password", "")
	viper.SetDefault("queue.database", 0)
}
