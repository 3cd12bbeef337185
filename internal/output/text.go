package output

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/hannahporter1905-jpg/promotional-banner-scraper/internal/session"
)

// TextWriter writes summaries as an aligned, line-oriented table with
// batch totals appended on Flush.
type TextWriter struct {
	tw        *tabwriter.Writer
	summaries []*session.Summary
	wroteHead bool
}

// NewTextWriter creates a text writer.
func NewTextWriter(w io.Writer) *TextWriter {
	return &TextWriter{
		tw: tabwriter.NewWriter(w, 0, 4, 2, ' ', 0),
	}
}

// Write outputs one summary row plus its error lines.
func (w *TextWriter) Write(s *session.Summary) error {
	if !w.wroteHead {
		if _, err := fmt.Fprintln(w.tw, "SITE\tSTATE\tSTRATEGY\tCANDIDATES\tACCEPTED\tSAVED\tDUPLICATES\tERRORS"); err != nil {
			return err
		}
		w.wroteHead = true
	}

	strategy := string(s.StrategyUsed)
	if strategy == "" {
		strategy = "-"
	}

	if _, err := fmt.Fprintf(w.tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
		s.Site, s.State, strategy,
		s.TotalCandidates, s.Accepted, s.Saved, s.Duplicates, len(s.Errors)); err != nil {
		return err
	}

	for _, e := range s.Errors {
		if _, err := fmt.Fprintf(w.tw, "  !\t%s\t%s\n", e.Stage, e.Message); err != nil {
			return err
		}
	}

	w.summaries = append(w.summaries, s)
	return nil
}

// Flush writes batch totals and flushes the table.
func (w *TextWriter) Flush() error {
	if len(w.summaries) > 1 {
		var saved, dups, failed int
		for _, s := range w.summaries {
			saved += s.Saved
			dups += s.Duplicates
			if !s.Succeeded() {
				failed++
			}
		}
		if _, err := fmt.Fprintf(w.tw, "TOTAL\t%d sites\t%d without banners\t\t\t%d\t%d\t\n",
			len(w.summaries), failed, saved, dups); err != nil {
			return err
		}
	}
	return w.tw.Flush()
}

// Close flushes the writer.
func (w *TextWriter) Close() error {
	return w.Flush()
}
