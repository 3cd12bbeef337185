// Package batch runs site sessions concurrently with a bounded worker
// pool.
package batch

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hannahporter1905-jpg/promotional-banner-scraper/internal/logger"
	"github.com/hannahporter1905-jpg/promotional-banner-scraper/internal/session"
)

// SessionFactory builds a fresh session per site so no state (browser
// instances, fingerprint sets) leaks between sites.
type SessionFactory func() (*session.Session, error)

// Coordinator fans site URLs out to sessions.
type Coordinator struct {
	factory     SessionFactory
	concurrency int
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithConcurrency caps concurrently running sessions. Default is 3.
func WithConcurrency(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// New creates a Coordinator.
func New(factory SessionFactory, opts ...Option) *Coordinator {
	c := &Coordinator{
		factory:     factory,
		concurrency: 3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run processes every site and returns one summary per input URL, in
// input order. One site's failure never aborts the others; failures
// live inside the summaries.
func (c *Coordinator) Run(ctx context.Context, urls []string) []*session.Summary {
	logger.Info("starting batch",
		"sites", len(urls),
		"concurrency", c.concurrency)
	start := time.Now()

	summaries := make([]*session.Summary, len(urls))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i, url := range urls {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				// Cancelled before starting: still leave a record.
				summaries[i] = &session.Summary{
					URL:   url,
					State: session.StatePending,
					Errors: []session.StageError{
						{Stage: session.StageFetch, Message: ctx.Err().Error()},
					},
				}
				return nil
			default:
			}

			logger.Info("processing site", "url", url, "index", i+1, "total", len(urls))

			s, err := c.factory()
			if err != nil {
				summaries[i] = &session.Summary{
					URL:   url,
					State: session.StateFailed,
					Errors: []session.StageError{
						{Stage: session.StageFetch, Message: err.Error()},
					},
				}
				return nil
			}
			defer func() { _ = s.Close() }()

			summaries[i] = s.Run(ctx, url)
			return nil
		})
	}

	// Workers never return errors; failures are recorded per summary.
	_ = g.Wait()

	logger.Info("batch complete",
		"sites", len(urls),
		"duration", time.Since(start).Round(time.Millisecond))
	return summaries
}

// Stats aggregates a finished batch.
type Stats struct {
	TotalSites      int
	SucceededSites  int
	FailedSites     int
	BannersSaved    int
	TotalDuplicates int
	TotalErrors     int
}

// Aggregate computes batch statistics from summaries.
func Aggregate(summaries []*session.Summary) Stats {
	st := Stats{TotalSites: len(summaries)}
	for _, s := range summaries {
		if s == nil {
			continue
		}
		if s.Succeeded() {
			st.SucceededSites++
		} else {
			st.FailedSites++
		}
		st.BannersSaved += s.Saved
		st.TotalDuplicates += s.Duplicates
		st.TotalErrors += len(s.Errors)
	}
	return st
}
