package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/hannahporter1905-jpg/promotional-banner-scraper/internal/logger"
)

// DefaultScrapeAPIBaseURL is the default endpoint of the remote render
// service.
const DefaultScrapeAPIBaseURL = "https://api.firecrawl.dev/v1/scrape"

// ScrapeAPI delegates rendering to a remote scrape service. The
// service runs its own browser farm and solves soft challenges, so it
// is first in the default chain for bot-protected sites; it costs
// quota, so every failure falls through to the local backends instead
// of retrying here.
type ScrapeAPI struct {
	config     Config
	httpClient *http.Client
}

// scrapeRequest is the request body for the render API.
type scrapeRequest struct {
	URL     string   `json:"url"`
	Formats []string `json:"formats"`
	WaitFor int      `json:"waitFor,omitempty"` // milliseconds
}

// scrapeResponse is the response envelope from the render API.
type scrapeResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    struct {
		HTML     string `json:"html"`
		Metadata struct {
			StatusCode int `json:"statusCode"`
		} `json:"metadata"`
	} `json:"data"`
}

// NewScrapeAPI creates a remote scrape-API backend.
func NewScrapeAPI(cfg Config) *ScrapeAPI {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = DefaultScrapeAPIBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultOptions().Timeout
	}
	return &ScrapeAPI{
		config: cfg,
		httpClient: &http.Client{
			// The service renders server-side and can take a while.
			Timeout: cfg.Timeout + 30*time.Second,
		},
	}
}

// Fetch requests a rendered page from the remote service. A missing
// credential fails immediately without a network call; fallback is the
// session's job.
func (f *ScrapeAPI) Fetch(ctx context.Context, targetURL string, opts Options) (Result, error) {
	result := Result{
		URL:       targetURL,
		Status:    StatusError,
		Strategy:  KindScrapeAPI,
		FetchedAt: time.Now(),
	}

	if f.config.APIKey == "" {
		logger.Debug("scrape API credential not configured", "url", targetURL)
		return result, ErrCredentialMissing
	}

	waitMs := int(opts.WaitDuration / time.Millisecond)
	reqBody := scrapeRequest{
		URL:     targetURL,
		Formats: []string{"html"},
		WaitFor: waitMs,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return result, fmt.Errorf("marshal scrape request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.config.APIBaseURL, bytes.NewReader(jsonBody))
	if err != nil {
		return result, fmt.Errorf("create scrape request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.config.APIKey)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		result.Status = classifyAPITransportError(err)
		logger.Warn("scrape API request failed", "url", targetURL, "error", err)
		if result.Status == StatusTimeout {
			return result, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return result, fmt.Errorf("scrape API unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return result, fmt.Errorf("read scrape API response: %w", err)
	}

	// The API returns JSON bodies on error statuses too.
	var apiResp scrapeResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		logger.Warn("scrape API returned invalid response",
			"url", targetURL, "status_code", resp.StatusCode)
		return result, fmt.Errorf("parse scrape API response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusPaymentRequired, http.StatusForbidden:
		// Auth or quota failure: unusable credential, no retry here.
		logger.Warn("scrape API rejected credential",
			"url", targetURL, "status_code", resp.StatusCode, "message", apiResp.Error)
		return result, fmt.Errorf("scrape API auth failure (HTTP %d): %s", resp.StatusCode, apiResp.Error)
	}

	if !apiResp.Success {
		result.Status = classifyAPIMessage(apiResp.Error)
		logger.Debug("scrape API reported failure",
			"url", targetURL, "status", result.Status, "message", apiResp.Error)
		switch result.Status {
		case StatusBlocked:
			return result, fmt.Errorf("%w: %s", ErrBlocked, apiResp.Error)
		case StatusTimeout:
			return result, fmt.Errorf("%w: %s", ErrTimeout, apiResp.Error)
		default:
			return result, fmt.Errorf("scrape API error: %s", apiResp.Error)
		}
	}

	if apiResp.Data.HTML == "" {
		return result, errors.New("scrape API returned no HTML")
	}

	result.Status = StatusSuccess
	result.HTML = apiResp.Data.HTML
	result.StatusCode = apiResp.Data.Metadata.StatusCode
	if result.StatusCode == 0 {
		result.StatusCode = 200
	}
	logger.Debug("scrape API fetch complete", "url", targetURL, "bytes", len(result.HTML))
	return result, nil
}

// classifyAPITransportError maps client-side request errors.
func classifyAPITransportError(err error) Status {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return StatusTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return StatusTimeout
	}
	return StatusError
}

// classifyAPIMessage maps service error messages to a fetch status.
func classifyAPIMessage(message string) Status {
	msgLower := strings.ToLower(message)

	if strings.Contains(msgLower, "timeout") ||
		strings.Contains(msgLower, "timed out") {
		return StatusTimeout
	}

	if strings.Contains(msgLower, "blocked") ||
		strings.Contains(msgLower, "denied") ||
		strings.Contains(msgLower, "forbidden") ||
		strings.Contains(msgLower, "captcha") ||
		strings.Contains(msgLower, "challenge") ||
		strings.Contains(msgLower, "cloudflare") ||
		strings.Contains(msgLower, "403") {
		return StatusBlocked
	}

	return StatusError
}

// Close releases resources.
func (f *ScrapeAPI) Close() error {
	return nil
}

// Kind identifies the backend.
func (f *ScrapeAPI) Kind() Kind {
	return KindScrapeAPI
}
