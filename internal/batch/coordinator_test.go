package batch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/hannahporter1905-jpg/promotional-banner-scraper/internal/classify"
	"github.com/hannahporter1905-jpg/promotional-banner-scraper/internal/download"
	"github.com/hannahporter1905-jpg/promotional-banner-scraper/internal/fetch"
	"github.com/hannahporter1905-jpg/promotional-banner-scraper/internal/session"
)

// countingStrategy tracks concurrent fetches across sessions.
type countingStrategy struct {
	mu      sync.Mutex
	active  int32
	peak    int32
	started chan struct{}
}

func (s *countingStrategy) Fetch(ctx context.Context, url string, opts fetch.Options) (fetch.Result, error) {
	cur := atomic.AddInt32(&s.active, 1)
	s.mu.Lock()
	if cur > s.peak {
		s.peak = cur
	}
	s.mu.Unlock()
	defer atomic.AddInt32(&s.active, -1)

	return fetch.Result{
		URL:      url,
		Status:   fetch.StatusSuccess,
		Strategy: fetch.KindStatic,
		HTML:     "<html><body><p>empty</p></body></html>",
	}, nil
}

func (s *countingStrategy) Close() error     { return nil }
func (s *countingStrategy) Kind() fetch.Kind { return fetch.KindStatic }

func testFactory(t *testing.T, strategy fetch.Strategy) SessionFactory {
	t.Helper()
	root := t.TempDir()
	return func() (*session.Session, error) {
		return session.New(session.Config{
			Strategies: []fetch.Strategy{strategy},
			FetchOpts:  fetch.DefaultOptions(),
			Classify:   classify.DefaultConfig(),
			Download:   download.DefaultConfig(),
			OutputRoot: root,
		}), nil
	}
}

func TestCoordinator_PreservesInputOrder(t *testing.T) {
	strategy := &countingStrategy{}
	c := New(testFactory(t, strategy), WithConcurrency(4))

	urls := []string{
		"https://one.example.com",
		"https://two.example.com",
		"https://three.example.com",
	}
	summaries := c.Run(context.Background(), urls)

	if len(summaries) != len(urls) {
		t.Fatalf("got %d summaries, want %d", len(summaries), len(urls))
	}
	for i, want := range urls {
		if summaries[i] == nil {
			t.Fatalf("summaries[%d] is nil", i)
		}
		if summaries[i].URL != want {
			t.Errorf("summaries[%d].URL = %q, want %q", i, summaries[i].URL, want)
		}
	}
}

func TestCoordinator_OneSiteFailureDoesNotAbortOthers(t *testing.T) {
	var calls int32
	factory := func() (*session.Session, error) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			return nil, errors.New("browser launch failed")
		}
		return session.New(session.Config{
			Strategies: []fetch.Strategy{&countingStrategy{}},
			FetchOpts:  fetch.DefaultOptions(),
			Classify:   classify.DefaultConfig(),
			Download:   download.DefaultConfig(),
			OutputRoot: t.TempDir(),
		}), nil
	}

	c := New(factory, WithConcurrency(1))
	summaries := c.Run(context.Background(), []string{
		"https://bad.example.com",
		"https://good.example.com",
	})

	if summaries[0].State != session.StateFailed {
		t.Errorf("first site State = %q, want %q", summaries[0].State, session.StateFailed)
	}
	if len(summaries[0].Errors) != 1 {
		t.Errorf("first site should record its factory error, got %v", summaries[0].Errors)
	}
	if summaries[1].State != session.StateDone {
		t.Errorf("second site State = %q, want %q", summaries[1].State, session.StateDone)
	}
}

func TestCoordinator_ConcurrencyBound(t *testing.T) {
	strategy := &countingStrategy{}
	c := New(testFactory(t, strategy), WithConcurrency(2))

	urls := make([]string, 8)
	for i := range urls {
		urls[i] = "https://site.example.com"
	}
	c.Run(context.Background(), urls)

	if strategy.peak > 2 {
		t.Errorf("peak concurrent fetches = %d, want <= 2", strategy.peak)
	}
}

func TestCoordinator_CancelledContextLeavesRecords(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(testFactory(t, &countingStrategy{}), WithConcurrency(2))
	summaries := c.Run(ctx, []string{"https://a.example.com", "https://b.example.com"})

	for i, s := range summaries {
		if s == nil {
			t.Fatalf("summaries[%d] is nil after cancellation", i)
		}
		if len(s.Errors) == 0 {
			t.Errorf("summaries[%d] should record the cancellation", i)
		}
	}
}

func TestAggregate(t *testing.T) {
	summaries := []*session.Summary{
		{State: session.StateDone, Saved: 3, Duplicates: 1},
		{State: session.StateDone, Saved: 0},
		{State: session.StateFailed, Errors: []session.StageError{{Stage: "fetch", Message: "blocked"}}},
	}

	st := Aggregate(summaries)
	if st.TotalSites != 3 {
		t.Errorf("TotalSites = %d, want 3", st.TotalSites)
	}
	if st.SucceededSites != 1 {
		t.Errorf("SucceededSites = %d, want 1 (zero saved is not success)", st.SucceededSites)
	}
	if st.FailedSites != 2 {
		t.Errorf("FailedSites = %d, want 2", st.FailedSites)
	}
	if st.BannersSaved != 3 {
		t.Errorf("BannersSaved = %d, want 3", st.BannersSaved)
	}
	if st.TotalDuplicates != 1 {
		t.Errorf("TotalDuplicates = %d, want 1", st.TotalDuplicates)
	}
	if st.TotalErrors != 1 {
		t.Errorf("TotalErrors = %d, want 1", st.TotalErrors)
	}
}
