package output

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/hannahporter1905-jpg/promotional-banner-scraper/internal/session"
)

// JSONWriter writes summaries as a pretty-printed JSON array.
type JSONWriter struct {
	w     *bufio.Writer
	items []*session.Summary
}

// NewJSONWriter creates a JSON writer.
func NewJSONWriter(w io.Writer) *JSONWriter {
	return &JSONWriter{
		w:     bufio.NewWriter(w),
		items: make([]*session.Summary, 0),
	}
}

// Write buffers a single summary for array output.
func (w *JSONWriter) Write(s *session.Summary) error {
	w.items = append(w.items, s)
	return nil
}

// Flush writes the buffered summaries.
func (w *JSONWriter) Flush() error {
	var output []byte
	var err error

	// A single summary is emitted directly, not as an array.
	if len(w.items) == 1 {
		output, err = json.MarshalIndent(w.items[0], "", "  ")
	} else {
		output, err = json.MarshalIndent(w.items, "", "  ")
	}
	if err != nil {
		return err
	}

	if _, err := w.w.Write(output); err != nil {
		return err
	}
	if _, err := w.w.WriteString("\n"); err != nil {
		return err
	}
	return w.w.Flush()
}

// Close flushes the writer.
func (w *JSONWriter) Close() error {
	return w.Flush()
}
