// Package config handles configuration loading for ecoscrape.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/freddycharles/ecoscrape/pkg/models"
)

// Config represents the complete application configuration.
type Config struct {
	Scrape  ScrapeConfig  `mapstructure:"scrape"  yaml:"scrape"`
	Catalog CatalogConfig `mapstructure:"catalog" yaml:"catalog"`
	Analyze AnalyzeConfig `mapstructure:"analyze" yaml:"analyze"`
	Edgar   EdgarConfig   `mapstructure:"edgar"   yaml:"edgar"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// ScrapeConfig holds acquisition-path settings.
type ScrapeConfig struct {
	TimeoutSec      int                       `mapstructure:"timeout_sec"       yaml:"timeout_sec"`
	Concurrency     int                       `mapstructure:"concurrency"       yaml:"concurrency"`
	PerHostRPS      float64                   `mapstructure:"per_host_rps"      yaml:"per_host_rps"`
	MinSuccessRatio float64                   `mapstructure:"min_success_ratio" yaml:"min_success_ratio"`
	UserAgent       string                    `mapstructure:"user_agent"        yaml:"user_agent"`
	DataDir         string                    `mapstructure:"data_dir"          yaml:"data_dir"`
	FinancePatterns []string                  `mapstructure:"finance_patterns"  yaml:"finance_patterns"`
	Metrics         []models.MetricDescriptor `mapstructure:"metrics"           yaml:"metrics"`
}

// Timeout returns the per-request timeout as a duration.
func (s ScrapeConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSec) * time.Second
}

// CatalogConfig holds index-page settings for catalog-wide runs.
type CatalogConfig struct {
	IndexURL string `mapstructure:"index_url" yaml:"index_url"`
}

// AnalyzeConfig holds the ratio-analysis file paths.
type AnalyzeConfig struct {
	InputCSV  string `mapstructure:"input_csv"  yaml:"input_csv"`
	OutputCSV string `mapstructure:"output_csv" yaml:"output_csv"`
}

// EdgarConfig holds regulatory-filing download settings.
type EdgarConfig struct {
	FilingType      string `mapstructure:"filing_type"      yaml:"filing_type"`
	Limit           int    `mapstructure:"limit"            yaml:"limit"`
	DownloadDir     string `mapstructure:"download_dir"     yaml:"download_dir"`
	IdentifiersFile string `mapstructure:"identifiers_file" yaml:"identifiers_file"`
	UserAgent       string `mapstructure:"user_agent"       yaml:"user_agent"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "console" or "json"
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.ecoscrape/config.yaml (home directory)
//  3. /etc/ecoscrape/config.yaml (system)
//
// Environment variables override config file values.
// Format: ECOSCRAPE_<SECTION>_<KEY>, e.g., ECOSCRAPE_SCRAPE_DATA_DIR
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".ecoscrape"))
	v.AddConfigPath("/etc/ecoscrape")

	v.SetEnvPrefix("ECOSCRAPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found — that's fine, use defaults + env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	applyDerived(&cfg)
	return &cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix("ECOSCRAPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	applyDerived(&cfg)
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// Scrape defaults (politeness-first)
	v.SetDefault("scrape.timeout_sec", 10)
	v.SetDefault("scrape.concurrency", 1)
	v.SetDefault("scrape.per_host_rps", 1.0)
	v.SetDefault("scrape.min_success_ratio", 0.0)
	v.SetDefault("scrape.data_dir", "data")

	// Analyze defaults
	v.SetDefault("analyze.input_csv", "input_financials.csv")
	v.SetDefault("analyze.output_csv", "output_ratios.csv")

	// EDGAR defaults
	v.SetDefault("edgar.filing_type", "10-K")
	v.SetDefault("edgar.limit", 3)
	v.SetDefault("edgar.download_dir", "sec_edgar_filings")
	v.SetDefault("edgar.identifiers_file", "tickers.txt")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// applyDerived fills in list-valued defaults viper cannot express well.
func applyDerived(cfg *Config) {
	if len(cfg.Scrape.Metrics) == 0 {
		cfg.Scrape.Metrics = DefaultDescriptors()
	}
}

// DefaultDescriptors is the static metric configuration used when the
// config file does not override it. The selectors target the summary
// table layout of common quote pages.
func DefaultDescriptors() []models.MetricDescriptor {
	return []models.MetricDescriptor{
		{Metric: "MarketCap", Tag: "td", AttrKey: "data-test", AttrValue: "MARKET_CAP-value"},
		{Metric: "PERatio", Tag: "td", AttrKey: "data-test", AttrValue: "PE_RATIO-value"},
		{Metric: "EPS", Tag: "td", AttrKey: "data-test", AttrValue: "EPS_RATIO-value"},
		{Metric: "DividendYield", Tag: "td", AttrKey: "data-test", AttrValue: "DIVIDEND_AND_YIELD-value"},
		{Metric: "PreviousClose", Tag: "td", AttrKey: "data-test", AttrValue: "PREV_CLOSE-value"},
	}
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
