// Package fetch handles page retrieval across interchangeable backends.
//
// Each Strategy obtains the raw HTML for one URL. Backends classify
// their own failures into a Result status; the session layer decides
// whether to fall back to the next strategy in the configured chain.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status describes the outcome of a fetch attempt.
type Status string

const (
	StatusSuccess Status = "success"
	StatusBlocked Status = "blocked"
	StatusTimeout Status = "timeout"
	StatusError   Status = "error"
)

// Kind identifies a fetch backend.
type Kind string

const (
	// KindScrapeAPI delegates rendering to a remote scrape service.
	KindScrapeAPI Kind = "scrape-api"
	// KindBrowser renders the page in a local headless browser.
	KindBrowser Kind = "browser"
	// KindStatic issues a plain HTTP GET without rendering.
	KindStatic Kind = "static"
)

// ParseKinds parses a comma-separated strategy list, preserving order.
// Each strategy may appear at most once.
func ParseKinds(s string) ([]Kind, error) {
	parts := strings.Split(s, ",")
	kinds := make([]Kind, 0, len(parts))
	seen := make(map[Kind]bool, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		switch k := Kind(p); k {
		case KindScrapeAPI, KindBrowser, KindStatic:
			if seen[k] {
				return nil, fmt.Errorf("duplicate fetch strategy: %q", p)
			}
			seen[k] = true
			kinds = append(kinds, k)
		default:
			return nil, fmt.Errorf("unknown fetch strategy: %q (use scrape-api, browser or static)", p)
		}
	}
	if len(kinds) == 0 {
		return nil, errors.New("empty fetch strategy list")
	}
	return kinds, nil
}

// Error types for distinguishing failure reasons.
// Check with errors.Is(err, fetch.ErrBlocked).
var (
	// ErrBlocked indicates the site's anti-bot protection rejected the request.
	ErrBlocked = errors.New("blocked by anti-bot protection")
	// ErrTimeout indicates the fetch did not complete within its deadline.
	ErrTimeout = errors.New("fetch timed out")
	// ErrCredentialMissing indicates the scrape API backend has no credential configured.
	ErrCredentialMissing = errors.New("scrape API credential missing")
)

// Result represents fetched page data.
//
// Status is always set; HTML is populated only when Status is
// StatusSuccess, never partially.
type Result struct {
	URL        string
	Status     Status
	HTML       string
	StatusCode int
	Strategy   Kind
	FetchedAt  time.Time
}

// Options controls fetching behavior.
type Options struct {
	UserAgent    string
	Timeout      time.Duration
	WaitDuration time.Duration // Additional settle time after load (rendering backends)
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		UserAgent: DefaultUserAgent,
		Timeout:   30 * time.Second,
	}
}

// DefaultUserAgent is a browser-like user agent. Bot-protected sites
// reject obvious tool agents outright.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// Strategy abstracts page fetching backends.
type Strategy interface {
	// Fetch retrieves page content from a URL. The returned Result
	// always carries a Status; err is non-nil exactly when the Status
	// is not StatusSuccess.
	Fetch(ctx context.Context, url string, opts Options) (Result, error)

	// Close releases any resources (browser instances, etc.).
	Close() error

	// Kind identifies the backend.
	Kind() Kind
}

// Config holds common backend configuration.
type Config struct {
	UserAgent  string
	Timeout    time.Duration
	APIKey     string // scrape API credential
	APIBaseURL string // scrape API endpoint
}

// New creates a backend of the given kind.
func New(kind Kind, cfg Config) (Strategy, error) {
	switch kind {
	case KindScrapeAPI:
		return NewScrapeAPI(cfg), nil
	case KindBrowser:
		return NewBrowser(cfg)
	case KindStatic:
		return NewStatic(cfg), nil
	default:
		return nil, fmt.Errorf("unknown fetch strategy: %s", kind)
	}
}

// NewChain builds one backend per kind, in order. On construction
// failure the already-built backends are closed before returning.
func NewChain(kinds []Kind, cfg Config) ([]Strategy, error) {
	chain := make([]Strategy, 0, len(kinds))
	for _, k := range kinds {
		s, err := New(k, cfg)
		if err != nil {
			for _, built := range chain {
				_ = built.Close()
			}
			return nil, fmt.Errorf("building %s backend: %w", k, err)
		}
		chain = append(chain, s)
	}
	return chain, nil
}

// CloseAll closes every backend in a chain, keeping the first error.
func CloseAll(chain []Strategy) error {
	var firstErr error
	for _, s := range chain {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// coalesce returns the first non-empty string.
func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
