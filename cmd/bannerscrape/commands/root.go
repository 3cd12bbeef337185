// Package commands implements the CLI commands for bannerscrape.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "bannerscrape",
	Short: "Promotional banner scraper for e-commerce sites",
	Long: `Bannerscrape finds and downloads promotional banner images from
web pages.

Pages are fetched through a fallback chain of strategies (scrape API,
headless browser, plain HTTP), image candidates are collected from the
markup, scored against banner heuristics, and accepted images are
saved with content-hash deduplication.

Examples:
  # Scrape a single site
  bannerscrape extract "https://shop.example.com"

  # Run a batch of sites with four workers
  bannerscrape batch -f sites.txt -c 4

  # Skip the paid API and go straight to the browser
  bannerscrape extract "https://shop.example.com" \
      --fetch-order browser,static`,
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config file (default $HOME/.bannerscrape.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "suppress progress output")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
}

func initConfig() {
	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".bannerscrape")
		viper.SetConfigType("yaml")
	}

	// Environment variables
	viper.SetEnvPrefix("BANNERSCRAPE")
	viper.AutomaticEnv()

	// Also check common API key env vars
	_ = viper.BindEnv("api_key", "SCRAPEAPI_KEY", "FIRECRAWL_API_KEY")

	// Read config file (ignore error if not found)
	_ = viper.ReadInConfig()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// logError prints an error message to stderr.
func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}

// logInfo prints an info message to stderr (unless quiet mode).
func logInfo(format string, args ...any) {
	if !viper.GetBool("quiet") {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}
