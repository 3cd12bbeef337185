package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/hannahporter1905-jpg/promotional-banner-scraper/internal/logger"
)

// Browser renders pages in a headless Chrome instance via chromedp.
// Promotional banners on casino sites are frequently injected by
// JavaScript carousels, so the static backend alone misses them.
type Browser struct {
	config    Config
	allocCtx  context.Context
	cancelCtx context.CancelFunc
}

// NewBrowser creates a headless-browser backend with its own allocator.
// Instances are not shared between sessions; each session owns one.
func NewBrowser(cfg Config) (*Browser, error) {
	logger.Debug("creating browser backend")

	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultOptions().Timeout
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(cfg.UserAgent),
		chromedp.WindowSize(1920, 1080),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Browser{
		config:    cfg,
		allocCtx:  allocCtx,
		cancelCtx: cancelAlloc,
	}, nil
}

// Fetch retrieves page content using a headless browser. A fresh
// browser context is created per fetch and torn down on every exit
// path, including timeout.
func (f *Browser) Fetch(ctx context.Context, targetURL string, opts Options) (Result, error) {
	result := Result{
		URL:       targetURL,
		Status:    StatusError,
		Strategy:  KindBrowser,
		FetchedAt: time.Now(),
	}

	browserCtx, cancelBrowser := chromedp.NewContext(f.allocCtx)
	defer cancelBrowser()

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = f.config.Timeout
	}
	timeoutCtx, cancelTimeout := context.WithTimeout(browserCtx, timeout)
	defer cancelTimeout()

	// Propagate outer cancellation (batch deadline, SIGINT) into the
	// browser run.
	stop := context.AfterFunc(ctx, cancelTimeout)
	defer stop()

	var html string
	actions := []chromedp.Action{
		chromedp.Navigate(targetURL),
		chromedp.WaitVisible("body"),
	}

	// Bounded settle time for lazy-loaded carousels. Never waits past
	// the overall timeout.
	if opts.WaitDuration > 0 {
		actions = append(actions,
			chromedp.Evaluate("window.scrollTo(0, document.body.scrollHeight)", nil),
			chromedp.Sleep(opts.WaitDuration),
		)
	}

	actions = append(actions, chromedp.OuterHTML("html", &html))

	logger.Debug("browser fetch starting", "url", targetURL, "timeout", timeout)
	if err := chromedp.Run(timeoutCtx, actions...); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			result.Status = StatusTimeout
			logger.Debug("browser fetch timed out", "url", targetURL)
			return result, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		logger.Debug("browser fetch failed", "url", targetURL, "error", err)
		return result, fmt.Errorf("browser automation failed: %w", err)
	}

	result.Status = StatusSuccess
	result.HTML = html
	// chromedp doesn't surface the navigation status code; a rendered
	// DOM counts as success.
	result.StatusCode = 200
	logger.Debug("browser fetch complete", "url", targetURL, "bytes", len(html))
	return result, nil
}

// Close tears down the browser allocator.
func (f *Browser) Close() error {
	if f.cancelCtx != nil {
		f.cancelCtx()
	}
	return nil
}

// Kind identifies the backend.
func (f *Browser) Kind() Kind {
	return KindBrowser
}
