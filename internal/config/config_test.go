package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/hannahporter1905-jpg/promotional-banner-scraper/internal/fetch"
)

func TestDefault_Valid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default() should validate, got %v", err)
	}
	if cfg.Threshold != 0.4 {
		t.Errorf("Threshold = %v, want 0.4", cfg.Threshold)
	}
	if cfg.Timeout() != 30*time.Second {
		t.Errorf("Timeout() = %v, want 30s", cfg.Timeout())
	}
}

func TestLoad_Overrides(t *testing.T) {
	v := viper.New()
	v.Set("fetch_order", []string{"static"})
	v.Set("threshold", 0.7)
	v.Set("min_width", 300)
	v.Set("output_root", "out")
	v.Set("max_image_size", "2MB")

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.FetchOrder) != 1 || cfg.FetchOrder[0] != "static" {
		t.Errorf("FetchOrder = %v, want [static]", cfg.FetchOrder)
	}
	if cfg.Threshold != 0.7 {
		t.Errorf("Threshold = %v, want 0.7", cfg.Threshold)
	}
	if cfg.MinWidth != 300 {
		t.Errorf("MinWidth = %d, want 300", cfg.MinWidth)
	}
	// Unset fields keep their defaults.
	if cfg.MinHeight != 80 {
		t.Errorf("MinHeight = %d, want default 80", cfg.MinHeight)
	}

	maxBytes, err := cfg.MaxImageBytes()
	if err != nil {
		t.Fatalf("MaxImageBytes() error = %v", err)
	}
	if maxBytes != 2_000_000 {
		t.Errorf("MaxImageBytes() = %d, want 2000000", maxBytes)
	}
}

func TestLoad_InvalidStrategy(t *testing.T) {
	v := viper.New()
	v.Set("fetch_order", []string{"carrier-pigeon"})

	if _, err := Load(v); err == nil {
		t.Fatal("Load() should reject unknown fetch strategy")
	}
}

func TestLoad_InvalidSize(t *testing.T) {
	v := viper.New()
	v.Set("max_image_size", "lots")

	_, err := Load(v)
	if err == nil {
		t.Fatal("Load() should reject unparseable size")
	}
	if !strings.Contains(err.Error(), "max_image_size") {
		t.Errorf("error should name the offending field, got %v", err)
	}
}

func TestValidate_BadDimensions(t *testing.T) {
	cfg := Default()
	cfg.MinWidth = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should reject zero min_width")
	}

	cfg = Default()
	cfg.TimeoutSeconds = -1
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should reject negative timeout")
	}

	cfg = Default()
	cfg.OutputRoot = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should reject empty output_root")
	}
}

func TestStrategies_PreservesOrder(t *testing.T) {
	cfg := Default()
	cfg.FetchOrder = []string{"browser", "static"}

	kinds, err := cfg.Strategies()
	if err != nil {
		t.Fatalf("Strategies() error = %v", err)
	}
	want := []fetch.Kind{fetch.KindBrowser, fetch.KindStatic}
	if len(kinds) != len(want) {
		t.Fatalf("got %d kinds, want %d", len(kinds), len(want))
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("kinds[%d] = %q, want %q", i, kinds[i], want[i])
		}
	}
}
