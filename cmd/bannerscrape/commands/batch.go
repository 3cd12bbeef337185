package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hannahporter1905-jpg/promotional-banner-scraper/internal/batch"
	"github.com/hannahporter1905-jpg/promotional-banner-scraper/internal/logger"
	"github.com/hannahporter1905-jpg/promotional-banner-scraper/internal/output"
	"github.com/hannahporter1905-jpg/promotional-banner-scraper/internal/sitelist"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Scrape promotional banners from a list of sites",
	Long: `Read site URLs from a file (one per line, # for comments) and
process them concurrently. Each site gets its own folder under the
output root, and a batch_summary.txt is written next to them.

Examples:
  bannerscrape batch -f sites.txt
  bannerscrape batch -f sites.txt -c 8 --format json`,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)
	addScrapeFlags(batchCmd)

	flags := batchCmd.Flags()
	flags.StringP("file", "f", "", "path to the site list (required)")
	flags.IntP("concurrency", "c", 3, "concurrent sessions")

	_ = batchCmd.MarkFlagRequired("file")
	_ = viper.BindPFlag("concurrency", flags.Lookup("concurrency"))
}

func runBatch(cmd *cobra.Command, args []string) error {
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

	listPath, _ := cmd.Flags().GetString("file")
	urls, err := sitelist.Load(listPath)
	if err != nil {
		logError("loading site list: %v", err)
		return err
	}
	if len(urls) == 0 {
		return fmt.Errorf("site list %s contains no URLs", listPath)
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

	if err := os.MkdirAll(cfg.OutputRoot, 0o755); err != nil {
		logError("creating output root: %v", err)
		return err
	}

	logInfo("Processing %d site(s) with concurrency %d ...", len(urls), cfg.Concurrency)

	coord := batch.New(factory, batch.WithConcurrency(cfg.Concurrency))
	summaries := coord.Run(ctx, urls)

	formatStr, _ := cmd.Flags().GetString("format")
	writer, err := output.NewWriter(os.Stdout, output.Format(formatStr))
	if err != nil {
		logError("%v", err)
		return err
	}
	defer func() { _ = writer.Close() }()

	for _, s := range summaries {
		if s == nil {
			continue
		}
		if err := writer.Write(s); err != nil {
			return err
		}
	}
	if err := writer.Flush(); err != nil {
		return err
	}

	if err := output.WriteSummaryFile(cfg.OutputRoot, summaries); err != nil {
		logError("writing batch summary: %v", err)
		return err
	}

	stats := batch.Aggregate(summaries)
	logInfo("Done: %d/%d sites produced banners, %d saved, %d duplicates skipped",
		stats.SucceededSites, stats.TotalSites, stats.BannersSaved, stats.TotalDuplicates)

	if stats.SucceededSites == 0 {
		return fmt.Errorf("no site produced any banners")
	}
	return nil
}
