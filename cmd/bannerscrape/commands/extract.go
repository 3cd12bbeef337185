package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hannahporter1905-jpg/promotional-banner-scraper/internal/logger"
	"github.com/hannahporter1905-jpg/promotional-banner-scraper/internal/output"
	"github.com/hannahporter1905-jpg/promotional-banner-scraper/internal/sitelist"
)

var extractCmd = &cobra.Command{
	Use:   "extract <url>",
	Short: "Scrape promotional banners from a single site",
	Long: `Fetch one page, collect its image candidates, classify them and
save the accepted banners under <output-root>/<site>/.

Examples:
  # Default strategy chain
  bannerscrape extract "https://shop.example.com"

  # Plain HTTP only, looser acceptance
  bannerscrape extract "https://shop.example.com" \
      --fetch-order static --threshold 0.3`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
	addScrapeFlags(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	logger.Init(logger.Options{
		Debug: viper.GetBool("debug"),
		Quiet: viper.GetBool("quiet"),
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig(cmd)
	if err != nil {
		logError("%v", err)
		return err
	}

	base, err := sessionConfig(cfg)
	if err != nil {
		logError("%v", err)
		return err
	}

	factory, err := newSessionFactory(cfg, base)
	if err != nil {
		logError("%v", err)
		return err
	}

	sess, err := factory()
	if err != nil {
		logError("creating session: %v", err)
		return err
	}
	defer func() { _ = sess.Close() }()

	url := sitelist.Normalize(args[0])
	logInfo("Scraping %s ...", url)

	summary := sess.Run(ctx, url)

	formatStr, _ := cmd.Flags().GetString("format")
	writer, err := output.NewWriter(os.Stdout, output.Format(formatStr))
	if err != nil {
		logError("%v", err)
		return err
	}
	defer func() { _ = writer.Close() }()

	if err := writer.Write(summary); err != nil {
		return err
	}
	if err := writer.Flush(); err != nil {
		return err
	}

	if !summary.Succeeded() {
		return fmt.Errorf("no banners saved from %s", url)
	}
	logInfo("Saved %d banner(s) to %s", summary.Saved, cfg.OutputRoot)
	return nil
}
