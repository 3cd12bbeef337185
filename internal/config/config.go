// Package config loads and validates runtime settings.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/hannahporter1905-jpg/promotional-banner-scraper/internal/fetch"
)

// Config holds all runtime settings. Values come from flags, the
// config file, and environment variables, merged by viper.
type Config struct {
	// FetchOrder is the fallback chain, tried left to right.
	FetchOrder []string `mapstructure:"fetch_order" validate:"min=1,dive,oneof=scrape-api browser static"`

	// APIKey authorizes the scrape API strategy.
	APIKey string `mapstructure:"api_key"`

	// APIBaseURL overrides the scrape API endpoint.
	APIBaseURL string `mapstructure:"api_base_url" validate:"omitempty,url"`

	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" validate:"gt=0"`
	WaitSeconds    int    `mapstructure:"wait_seconds" validate:"gte=0"`

	// Classification settings.
	MinWidth  int     `mapstructure:"min_width" validate:"gt=0"`
	MinHeight int     `mapstructure:"min_height" validate:"gt=0"`
	Threshold float64 `mapstructure:"threshold" validate:"gte=0"`

	// Download settings.
	MaxImageSize string `mapstructure:"max_image_size"`
	MinImageSize string `mapstructure:"min_image_size"`

	OutputRoot  string `mapstructure:"output_root" validate:"required"`
	Concurrency int    `mapstructure:"concurrency" validate:"gt=0"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		FetchOrder:     []string{"scrape-api", "browser", "static"},
		UserAgent:      fetch.DefaultUserAgent,
		TimeoutSeconds: 30,
		WaitSeconds:    0,
		MinWidth:       200,
		MinHeight:      80,
		Threshold:      0.4,
		MaxImageSize:   "10MB",
		MinImageSize:   "500B",
		OutputRoot:     "banners",
		Concurrency:    3,
	}
}

// Load merges viper state over the defaults and validates the result.
func Load(v *viper.Viper) (Config, error) {
	cfg := Default()
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks field constraints and size strings.
func (c Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			e := verrs[0]
			return fmt.Errorf("invalid config: field %s failed %s validation", strings.ToLower(e.Field()), e.Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.MaxImageBytes(); err != nil {
		return err
	}
	if _, err := c.MinImageBytes(); err != nil {
		return err
	}
	return nil
}

// Timeout returns the per-request timeout.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Wait returns the post-load settle time for the browser strategy.
func (c Config) Wait() time.Duration {
	return time.Duration(c.WaitSeconds) * time.Second
}

// MaxImageBytes parses the human-readable size cap (e.g. "10MB").
func (c Config) MaxImageBytes() (int64, error) {
	return parseSize("max_image_size", c.MaxImageSize)
}

// MinImageBytes parses the human-readable size floor (e.g. "500B").
func (c Config) MinImageBytes() (int64, error) {
	return parseSize("min_image_size", c.MinImageSize)
}

// Strategies converts the configured fetch order into fetch kinds.
func (c Config) Strategies() ([]fetch.Kind, error) {
	return fetch.ParseKinds(strings.Join(c.FetchOrder, ","))
}

func parseSize(name, value string) (int64, error) {
	if strings.TrimSpace(value) == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, value, err)
	}
	return int64(n), nil
}
