package commands

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hannahporter1905-jpg/promotional-banner-scraper/internal/classify"
	"github.com/hannahporter1905-jpg/promotional-banner-scraper/internal/config"
	"github.com/hannahporter1905-jpg/promotional-banner-scraper/internal/download"
	"github.com/hannahporter1905-jpg/promotional-banner-scraper/internal/fetch"
	"github.com/hannahporter1905-jpg/promotional-banner-scraper/internal/session"
)

// addScrapeFlags registers the flags shared by extract and batch.
// They are bound to viper per invocation in loadConfig, so file and
// env settings merge underneath whichever command is running.
func addScrapeFlags(cmd *cobra.Command) {
	def := config.Default()
	flags := cmd.Flags()

	flags.String("fetch-order", "scrape-api,browser,static", "comma-separated fetch strategies, tried in order")
	flags.StringP("api-key", "k", "", "scrape API key (or use env var)")
	flags.String("api-base-url", "", "custom scrape API base URL")
	flags.String("user-agent", def.UserAgent, "User-Agent header for requests")
	flags.Int("timeout", def.TimeoutSeconds, "per-request timeout in seconds")
	flags.Int("wait", def.WaitSeconds, "browser settle time after load, in seconds")

	flags.Int("min-width", def.MinWidth, "minimum candidate width in pixels")
	flags.Int("min-height", def.MinHeight, "minimum candidate height in pixels")
	flags.Float64("threshold", def.Threshold, "confidence cutoff for accepting a banner")

	flags.String("max-image-size", def.MaxImageSize, "largest image to download (e.g. 10MB)")
	flags.String("min-image-size", def.MinImageSize, "smallest image to keep (e.g. 500B)")

	flags.StringP("output-root", "o", def.OutputRoot, "directory for per-site banner folders")
	flags.String("format", "text", "summary format: text, json, yaml")
}

// loadConfig merges flags, config file and environment into a
// validated Config. --fetch-order is a comma list, so it is split here
// rather than bound as a viper slice.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	flags := cmd.Flags()
	_ = viper.BindPFlag("api_key", flags.Lookup("api-key"))
	_ = viper.BindPFlag("api_base_url", flags.Lookup("api-base-url"))
	_ = viper.BindPFlag("user_agent", flags.Lookup("user-agent"))
	_ = viper.BindPFlag("timeout_seconds", flags.Lookup("timeout"))
	_ = viper.BindPFlag("wait_seconds", flags.Lookup("wait"))
	_ = viper.BindPFlag("min_width", flags.Lookup("min-width"))
	_ = viper.BindPFlag("min_height", flags.Lookup("min-height"))
	_ = viper.BindPFlag("threshold", flags.Lookup("threshold"))
	_ = viper.BindPFlag("max_image_size", flags.Lookup("max-image-size"))
	_ = viper.BindPFlag("min_image_size", flags.Lookup("min-image-size"))
	_ = viper.BindPFlag("output_root", flags.Lookup("output-root"))

	if cmd.Flags().Changed("fetch-order") {
		raw, _ := cmd.Flags().GetString("fetch-order")
		kinds, err := fetch.ParseKinds(raw)
		if err != nil {
			return config.Config{}, err
		}
		order := make([]string, len(kinds))
		for i, k := range kinds {
			order[i] = string(k)
		}
		viper.Set("fetch_order", order)
	}
	return config.Load(viper.GetViper())
}

// sessionConfig assembles the per-site collaborator settings from the
// validated config. Strategies are built per session by the factory,
// not here.
func sessionConfig(cfg config.Config) (session.Config, error) {
	maxBytes, err := cfg.MaxImageBytes()
	if err != nil {
		return session.Config{}, err
	}
	minBytes, err := cfg.MinImageBytes()
	if err != nil {
		return session.Config{}, err
	}

	classifyCfg := classify.DefaultConfig()
	classifyCfg.MinWidth = cfg.MinWidth
	classifyCfg.MinHeight = cfg.MinHeight
	classifyCfg.Threshold = cfg.Threshold

	downloadCfg := download.DefaultConfig()
	downloadCfg.UserAgent = cfg.UserAgent
	if maxBytes > 0 {
		downloadCfg.MaxBytes = maxBytes
	}
	if minBytes > 0 {
		downloadCfg.MinBytes = minBytes
	}

	return session.Config{
		FetchOpts: fetch.Options{
			UserAgent:    cfg.UserAgent,
			Timeout:      cfg.Timeout(),
			WaitDuration: cfg.Wait(),
		},
		Classify:   classifyCfg,
		Download:   downloadCfg,
		OutputRoot: cfg.OutputRoot,
	}, nil
}

// newSessionFactory returns a factory building a fresh session with
// its own strategy chain. Browser and API clients hold per-session
// state, so nothing is shared between concurrent sites.
func newSessionFactory(cfg config.Config, base session.Config) (func() (*session.Session, error), error) {
	kinds, err := cfg.Strategies()
	if err != nil {
		return nil, err
	}
	fetchCfg := fetch.Config{
		UserAgent:  cfg.UserAgent,
		Timeout:    cfg.Timeout(),
		APIKey:     cfg.APIKey,
		APIBaseURL: cfg.APIBaseURL,
	}
	return func() (*session.Session, error) {
		strategies, err := fetch.NewChain(kinds, fetchCfg)
		if err != nil {
			return nil, err
		}
		sc := base
		sc.Strategies = strategies
		return session.New(sc), nil
	}, nil
}
