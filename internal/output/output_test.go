package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hannahporter1905-jpg/promotional-banner-scraper/internal/fetch"
	"github.com/hannahporter1905-jpg/promotional-banner-scraper/internal/session"
)

func sampleSummary(site string) *session.Summary {
	return &session.Summary{
		Site:            site,
		URL:             "https://" + site,
		State:           session.StateDone,
		StrategyUsed:    fetch.KindStatic,
		TotalCandidates: 5,
		Accepted:        2,
		Saved:           2,
		Files:           []string{"banner_001_aabbccdd.png", "banner_002_11223344.jpg"},
		StartedAt:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		FinishedAt:      time.Date(2025, 6, 1, 12, 0, 3, 0, time.UTC),
	}
}

func TestNewWriter_Formats(t *testing.T) {
	var buf bytes.Buffer
	tests := []struct {
		format  Format
		wantErr bool
	}{
		{FormatText, false},
		{FormatJSON, false},
		{FormatYAML, false},
		{Format(""), false},
		{Format("xml"), true},
	}
	for _, tt := range tests {
		_, err := NewWriter(&buf, tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("NewWriter(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
	}
}

func TestTextWriter_SingleSite(t *testing.T) {
	var buf bytes.Buffer
	w := NewTextWriter(&buf)

	if err := w.Write(sampleSummary("example.com")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "SITE") {
		t.Error("missing header row")
	}
	if !strings.Contains(out, "example.com") {
		t.Error("missing site row")
	}
	if strings.Contains(out, "TOTAL") {
		t.Error("single summary should not produce a totals row")
	}
}

func TestTextWriter_BatchTotalsAndErrors(t *testing.T) {
	var buf bytes.Buffer
	w := NewTextWriter(&buf)

	ok := sampleSummary("a.com")
	failed := sampleSummary("b.com")
	failed.State = session.StateFailed
	failed.StrategyUsed = ""
	failed.Saved = 0
	failed.Accepted = 0
	failed.TotalCandidates = 0
	failed.Files = nil
	failed.Errors = []session.StageError{
		{Stage: session.StageFetch, Message: "request blocked"},
	}

	for _, s := range []*session.Summary{ok, failed} {
		if err := w.Write(s); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "TOTAL") {
		t.Error("batch output missing totals row")
	}
	if !strings.Contains(out, "1 without banners") {
		t.Errorf("totals row should count the failed site, got:\n%s", out)
	}
	if !strings.Contains(out, "request blocked") {
		t.Error("error line not rendered")
	}
}

func TestJSONWriter_SingleUnwrapped(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONWriter(&buf)

	if err := w.Write(sampleSummary("example.com")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	var got session.Summary
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("single summary should decode as an object: %v", err)
	}
	if got.Site != "example.com" {
		t.Errorf("Site = %q, want %q", got.Site, "example.com")
	}
	if got.Saved != 2 {
		t.Errorf("Saved = %d, want 2", got.Saved)
	}
}

func TestJSONWriter_MultipleAsArray(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONWriter(&buf)

	for _, site := range []string{"a.com", "b.com"} {
		if err := w.Write(sampleSummary(site)); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	var got []session.Summary
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("multiple summaries should decode as an array: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[1].Site != "b.com" {
		t.Errorf("order not preserved, got[1].Site = %q", got[1].Site)
	}
}

func TestYAMLWriter_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewYAMLWriter(&buf)

	if err := w.Write(sampleSummary("example.com")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	var got session.Summary
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("yaml decode: %v", err)
	}
	if got.Site != "example.com" {
		t.Errorf("Site = %q, want %q", got.Site, "example.com")
	}
	if got.StrategyUsed != fetch.KindStatic {
		t.Errorf("StrategyUsed = %q, want %q", got.StrategyUsed, fetch.KindStatic)
	}
}

func TestWriteSummaryFile(t *testing.T) {
	dir := t.TempDir()

	summaries := []*session.Summary{
		sampleSummary("a.com"),
		nil,
		sampleSummary("b.com"),
	}
	if err := WriteSummaryFile(dir, summaries); err != nil {
		t.Fatalf("WriteSummaryFile() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, SummaryFileName))
	if err != nil {
		t.Fatalf("reading summary file: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "a.com") || !strings.Contains(out, "b.com") {
		t.Errorf("summary file missing site rows:\n%s", out)
	}
	if !strings.Contains(out, "TOTAL") {
		t.Error("summary file missing totals row")
	}
}
