// Package config loads application configuration from file, environment
// and defaults. Any dot-addressed key may be overridden by an environment
// variable named NEWS_COLLECTOR_ followed by the uppercased, underscore
// separated key path.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Defaults   Defaults         `mapstructure:"defaults"`
	Scoring    Scoring          `mapstructure:"scoring"`
	Sources    SourceManagement `mapstructure:"source_management"`
	Dedup      Dedup            `mapstructure:"dedup"`
	Connectors Connectors       `mapstructure:"connectors"`
	Scraper    Scraper          `mapstructure:"scraper"`
	Logging    Logging          `mapstructure:"logging"`
}

// Defaults holds request-level defaults applied when the caller omits a field.
type Defaults struct {
	Locale              string `mapstructure:"locale"`
	Timezone            string `mapstructure:"timezone"`
	Country             string `mapstructure:"country"`
	Language            string `mapstructure:"language"`
	Limit               int    `mapstructure:"limit"`
	Offset              int    `mapstructure:"offset"`
	PopularityType      string `mapstructure:"popularity_type"`
	GroupBy             string `mapstructure:"group_by"`
	Diversity           bool   `mapstructure:"diversity"`
	VerifiedSourcesOnly bool   `mapstructure:"verified_sources_only"`
}

// Scoring holds thresholds used by the policy filter and the diversity cap.
type Scoring struct {
	IntegrityThreshold   float64         `mapstructure:"integrity_threshold"`
	CredibilityThreshold float64         `mapstructure:"credibility_threshold"`
	SourceDiversity      SourceDiversity `mapstructure:"source_diversity"`
}

// SourceDiversity caps how many articles of one source enter the Top-N.
type SourceDiversity struct {
	MaxSameSourceInTopN int `mapstructure:"max_same_source_in_top_n"`
}

// SourceManagement holds registry health-tracking settings.
type SourceManagement struct {
	ManifestPath           string `mapstructure:"manifest_path"`
	MaxConsecutiveFailures int    `mapstructure:"max_consecutive_failures"`
}

// Dedup holds deduplication settings.
type Dedup struct {
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
}

// Connectors holds settings shared by all connectors.
type Connectors struct {
	UserAgent string `mapstructure:"user_agent"`
	Timeout   string `mapstructure:"timeout"`
}

// Scraper holds full-article scraper settings.
type Scraper struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	CacheTTL          string  `mapstructure:"cache_ttl"`
	MaxRetries        int     `mapstructure:"max_retries"`
	MinImageWidth     int     `mapstructure:"min_image_width"`
	MinImageHeight    int     `mapstructure:"min_image_height"`
}

// Logging holds logging configuration.
type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var globalConfig *Config

// Load loads configuration from the given file (or the default search
// path), the environment and built-in defaults, in ascending precedence.
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: error loading .env file: %v\n", err)
		}
	}

	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
		v.SetConfigName(".newscollector")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	v.SetEnvPrefix("NEWS_COLLECTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary.
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

// Reset clears the cached global configuration. Used by tests.
func Reset() {
	globalConfig = nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("defaults.locale", "en-US")
	v.SetDefault("defaults.timezone", "UTC")
	v.SetDefault("defaults.country", "US")
	v.SetDefault("defaults.language", "en")
	v.SetDefault("defaults.limit", 20)
	v.SetDefault("defaults.offset", 0)
	v.SetDefault("defaults.popularity_type", "engagement")
	v.SetDefault("defaults.group_by", "none")
	v.SetDefault("defaults.diversity", true)
	v.SetDefault("defaults.verified_sources_only", false)

	v.SetDefault("scoring.integrity_threshold", 0.5)
	v.SetDefault("scoring.credibility_threshold", 0.6)
	v.SetDefault("scoring.source_diversity.max_same_source_in_top_n", 3)

	v.SetDefault("source_management.manifest_path", "sources.yaml")
	v.SetDefault("source_management.max_consecutive_failures", 5)

	v.SetDefault("dedup.similarity_threshold", 0.55)

	v.SetDefault("connectors.user_agent", "NewsCollector/1.0")
	v.SetDefault("connectors.timeout", "15s")

	v.SetDefault("scraper.requests_per_second", 2.0)
	v.SetDefault("scraper.cache_ttl", "1h")
	v.SetDefault("scraper.max_retries", 2)
	v.SetDefault("scraper.min_image_width", 200)
	v.SetDefault("scraper.min_image_height", 150)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

func validateConfig(config *Config) error {
	if config.Defaults.Limit < 1 || config.Defaults.Limit > 100 {
		return fmt.Errorf("defaults.limit must be between 1 and 100, got %d", config.Defaults.Limit)
	}
	if config.Defaults.Offset < 0 {
		return fmt.Errorf("defaults.offset must be non-negative, got %d", config.Defaults.Offset)
	}
	if t := config.Scoring.IntegrityThreshold; t < 0 || t > 1 {
		return fmt.Errorf("scoring.integrity_threshold must be in [0, 1], got %g", t)
	}
	if t := config.Scoring.CredibilityThreshold; t < 0 || t > 1 {
		return fmt.Errorf("scoring.credibility_threshold must be in [0, 1], got %g", t)
	}
	if n := config.Scoring.SourceDiversity.MaxSameSourceInTopN; n < 1 {
		return fmt.Errorf("scoring.source_diversity.max_same_source_in_top_n must be at least 1, got %d", n)
	}
	if n := config.Sources.MaxConsecutiveFailures; n < 1 {
		return fmt.Errorf("source_management.max_consecutive_failures must be at least 1, got %d", n)
	}
	if t := config.Dedup.SimilarityThreshold; t <= 0 || t > 1 {
		return fmt.Errorf("dedup.similarity_threshold must be in (0, 1], got %g", t)
	}
	return nil
}
