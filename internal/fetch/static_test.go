package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// realisticPage returns an HTML body large enough to clear the
// interstitial heuristic.
func realisticPage() string {
	var sb strings.Builder
	sb.WriteString("<html><head><title>Casino</title></head><body>")
	sb.WriteString(`<img src="/banner.jpg" alt="welcome bonus">`)
	sb.WriteString(strings.Repeat("<p>promotions and games galore</p>\n", 120))
	sb.WriteString("</body></html>")
	return sb.String()
}

func TestStatic_Fetch_Success(t *testing.T) {
	page := realisticPage()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	f := NewStatic(Config{Timeout: 5 * time.Second})
	result, err := f.Fetch(context.Background(), srv.URL, DefaultOptions())
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}

	if result.Status != StatusSuccess {
		t.Errorf("Status = %q, want %q", result.Status, StatusSuccess)
	}
	if result.Strategy != KindStatic {
		t.Errorf("Strategy = %q, want %q", result.Strategy, KindStatic)
	}
	if !strings.Contains(result.HTML, "welcome bonus") {
		t.Error("expected fetched HTML body")
	}
}

func TestStatic_Fetch_ForbiddenIsBlocked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "access denied", http.StatusForbidden)
	}))
	defer srv.Close()

	f := NewStatic(Config{Timeout: 5 * time.Second})
	result, err := f.Fetch(context.Background(), srv.URL, DefaultOptions())
	if err == nil {
		t.Fatal("Fetch() should return an error for 403")
	}

	if result.Status != StatusBlocked {
		t.Errorf("Status = %q, want %q", result.Status, StatusBlocked)
	}
	if !errors.Is(err, ErrBlocked) {
		t.Errorf("error should wrap ErrBlocked, got %v", err)
	}
	if result.HTML != "" {
		t.Error("HTML must stay empty on non-success results")
	}
}

func TestStatic_Fetch_RateLimitedIsBlocked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	f := NewStatic(Config{Timeout: 5 * time.Second})
	result, err := f.Fetch(context.Background(), srv.URL, DefaultOptions())
	if !errors.Is(err, ErrBlocked) {
		t.Errorf("error should wrap ErrBlocked for 429, got %v", err)
	}
	if result.Status != StatusBlocked {
		t.Errorf("Status = %q, want %q", result.Status, StatusBlocked)
	}
}

func TestStatic_Fetch_TinyBodyIsBlocked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body>checking your browser</body></html>"))
	}))
	defer srv.Close()

	f := NewStatic(Config{Timeout: 5 * time.Second})
	result, err := f.Fetch(context.Background(), srv.URL, DefaultOptions())
	if !errors.Is(err, ErrBlocked) {
		t.Errorf("error should wrap ErrBlocked for tiny body, got %v", err)
	}
	if result.Status != StatusBlocked {
		t.Errorf("Status = %q, want %q", result.Status, StatusBlocked)
	}
}

func TestStatic_Fetch_ConnectionRefusedIsError(t *testing.T) {
	// Grab a port that nothing listens on.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadURL := srv.URL
	srv.Close()

	f := NewStatic(Config{Timeout: 2 * time.Second})
	result, err := f.Fetch(context.Background(), deadURL, DefaultOptions())
	if err == nil {
		t.Fatal("Fetch() should fail against a closed port")
	}
	if result.Status != StatusError {
		t.Errorf("Status = %q, want %q", result.Status, StatusError)
	}
}

func TestStatic_SendsBrowserUserAgent(t *testing.T) {
	var gotUA string
	page := realisticPage()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	f := NewStatic(Config{Timeout: 5 * time.Second})
	if _, err := f.Fetch(context.Background(), srv.URL, DefaultOptions()); err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}

	if !strings.Contains(gotUA, "Mozilla/5.0") {
		t.Errorf("expected browser-like user agent, got %q", gotUA)
	}
}
