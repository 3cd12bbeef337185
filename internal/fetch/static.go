package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/hannahporter1905-jpg/promotional-banner-scraper/internal/logger"
)

// minPlausiblePageBytes is the smallest HTML body we treat as a real
// page. Anti-bot interstitials for casino sites tend to be a short
// challenge stub, far below any genuine landing page.
const minPlausiblePageBytes = 2048

// Static fetches pages with a single plain HTTP request via Colly.
type Static struct {
	config Config
}

// NewStatic creates a plain-HTTP backend.
func NewStatic(cfg Config) *Static {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultOptions().Timeout
	}
	return &Static{config: cfg}
}

// Fetch retrieves page content using Colly.
func (f *Static) Fetch(ctx context.Context, targetURL string, opts Options) (Result, error) {
	result := Result{
		URL:       targetURL,
		Status:    StatusError,
		Strategy:  KindStatic,
		FetchedAt: time.Now(),
	}

	// A fresh collector per request; no shared cookie jar between sites.
	c := colly.NewCollector(
		colly.UserAgent(coalesce(opts.UserAgent, f.config.UserAgent)),
	)

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = f.config.Timeout
	}
	c.SetRequestTimeout(timeout)

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.5")
	})

	var body string
	var fetchErr error

	c.OnResponse(func(r *colly.Response) {
		result.StatusCode = r.StatusCode
		body = string(r.Body)
	})

	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			result.StatusCode = r.StatusCode
		}
		fetchErr = err
	})

	if err := c.Visit(targetURL); err != nil && fetchErr == nil {
		fetchErr = err
	}

	if fetchErr != nil {
		result.Status = classifyTransportError(result.StatusCode, fetchErr)
		logger.Debug("static fetch failed",
			"url", targetURL,
			"status", result.Status,
			"status_code", result.StatusCode,
			"error", fetchErr)
		switch result.Status {
		case StatusBlocked:
			return result, fmt.Errorf("%w: HTTP %d", ErrBlocked, result.StatusCode)
		case StatusTimeout:
			return result, fmt.Errorf("%w: %v", ErrTimeout, fetchErr)
		default:
			return result, fmt.Errorf("static fetch: %w", fetchErr)
		}
	}

	if len(body) < minPlausiblePageBytes {
		result.Status = StatusBlocked
		logger.Debug("static fetch returned anomalously small body",
			"url", targetURL, "bytes", len(body))
		return result, fmt.Errorf("%w: body only %d bytes", ErrBlocked, len(body))
	}

	result.Status = StatusSuccess
	result.HTML = body
	logger.Debug("static fetch complete", "url", targetURL, "bytes", len(body))
	return result, nil
}

// classifyTransportError maps an HTTP status or transport error to a
// fetch status.
func classifyTransportError(statusCode int, err error) Status {
	switch statusCode {
	case 403, 429, 503:
		return StatusBlocked
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return StatusTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return StatusTimeout
	}
	return StatusError
}

// Close releases resources.
func (f *Static) Close() error {
	return nil
}

// Kind identifies the backend.
func (f *Static) Kind() Kind {
	return KindStatic
}
