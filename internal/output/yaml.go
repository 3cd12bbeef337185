package output

import (
	"bufio"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/hannahporter1905-jpg/promotional-banner-scraper/internal/session"
)

// YAMLWriter writes summaries as a YAML document.
type YAMLWriter struct {
	w     *bufio.Writer
	items []*session.Summary
}

// NewYAMLWriter creates a YAML writer.
func NewYAMLWriter(w io.Writer) *YAMLWriter {
	return &YAMLWriter{
		w:     bufio.NewWriter(w),
		items: make([]*session.Summary, 0),
	}
}

// Write buffers a single summary.
func (w *YAMLWriter) Write(s *session.Summary) error {
	w.items = append(w.items, s)
	return nil
}

// Flush writes the buffered summaries.
func (w *YAMLWriter) Flush() error {
	enc := yaml.NewEncoder(w.w)
	enc.SetIndent(2)

	var err error
	if len(w.items) == 1 {
		err = enc.Encode(w.items[0])
	} else {
		err = enc.Encode(w.items)
	}
	if err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return w.w.Flush()
}

// Close flushes the writer.
func (w *YAMLWriter) Close() error {
	return w.Flush()
}
