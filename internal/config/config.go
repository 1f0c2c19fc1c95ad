package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/metawrite/metawrite/internal/pipeline"
	"github.com/metawrite/metawrite/internal/scrape"
	"github.com/metawrite/metawrite/internal/search"
)

// Config is the immutable process-wide configuration, loaded once at
// startup and passed explicitly into each component.
type Config struct {
	OpenAIKey    string
	GoogleAPIKey string
	GoogleCSEID  string

	ListenAddr  string
	MetricsAddr string

	TargetSite      string
	ImagePrefix     string
	ExcludedDomains []string

	OpenAIModel       string
	OpenAIMaxTokens   int
	OpenAITemperature float64

	ScrapeTimeout time.Duration
	MaxResults    int
}

// Load reads configuration from the environment and, optionally, a
// config file. Missing credentials are a fatal condition: the service
// refuses to start without them.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("metrics_addr", ":9090")
	v.SetDefault("target_site", pipeline.DefaultTargetSite)
	v.SetDefault("image_prefix", scrape.DefaultImagePrefix)
	v.SetDefault("excluded_domains", search.DefaultExcluded)
	v.SetDefault("openai_model", "gpt-4")
	v.SetDefault("openai_max_tokens", 1000)
	v.SetDefault("openai_temperature", 0.7)
	v.SetDefault("scrape_timeout", 10*time.Second)
	v.SetDefault("max_results", 10)

	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	cfg := &Config{
		OpenAIKey:         v.GetString("openai_api_key"),
		GoogleAPIKey:      v.GetString("google_api_key"),
		GoogleCSEID:       v.GetString("google_cse_id"),
		ListenAddr:        v.GetString("listen_addr"),
		MetricsAddr:       v.GetString("metrics_addr"),
		TargetSite:        v.GetString("target_site"),
		ImagePrefix:       v.GetString("image_prefix"),
		ExcludedDomains:   stringList(v.GetStringSlice("excluded_domains")),
		OpenAIModel:       v.GetString("openai_model"),
		OpenAIMaxTokens:   v.GetInt("openai_max_tokens"),
		OpenAITemperature: v.GetFloat64("openai_temperature"),
		ScrapeTimeout:     v.GetDuration("scrape_timeout"),
		MaxResults:        v.GetInt("max_results"),
	}

	var missing []string
	if cfg.OpenAIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if cfg.GoogleAPIKey == "" {
		missing = append(missing, "GOOGLE_API_KEY")
	}
	if cfg.GoogleCSEID == "" {
		missing = append(missing, "GOOGLE_CSE_ID")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("config: missing required settings: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}

// stringList splits comma-separated values, since env vars arrive as a
// single string.
func stringList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
