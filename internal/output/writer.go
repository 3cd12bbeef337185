// Package output formats batch results for the console and the
// per-batch summary file.
package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hannahporter1905-jpg/promotional-banner-scraper/internal/session"
)

// Format represents output format types.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Writer serializes site summaries.
type Writer interface {
	// Write outputs a single site summary.
	Write(s *session.Summary) error

	// Flush ensures all data is written, including batch totals.
	Flush() error

	// Close releases resources.
	Close() error
}

// NewWriter creates a writer for the specified format.
func NewWriter(w io.Writer, format Format) (Writer, error) {
	switch format {
	case FormatText, "":
		return NewTextWriter(w), nil
	case FormatJSON:
		return NewJSONWriter(w), nil
	case FormatYAML:
		return NewYAMLWriter(w), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// SummaryFileName is the per-batch record written under the output
// root.
const SummaryFileName = "batch_summary.txt"

// WriteSummaryFile writes the line-oriented batch record to
// output_root/batch_summary.txt.
func WriteSummaryFile(outputRoot string, summaries []*session.Summary) error {
	path := filepath.Join(outputRoot, SummaryFileName)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create summary file: %w", err)
	}
	defer f.Close()

	w := NewTextWriter(f)
	for _, s := range summaries {
		if s == nil {
			continue
		}
		if err := w.Write(s); err != nil {
			return err
		}
	}
	return w.Flush()
}
