// Package session drives one site through fetch, collection,
// classification and saving, with ordered fallback between fetch
// strategies.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/hannahporter1905-jpg/promotional-banner-scraper/internal/classify"
	"github.com/hannahporter1905-jpg/promotional-banner-scraper/internal/collect"
	"github.com/hannahporter1905-jpg/promotional-banner-scraper/internal/download"
	"github.com/hannahporter1905-jpg/promotional-banner-scraper/internal/fetch"
	"github.com/hannahporter1905-jpg/promotional-banner-scraper/internal/logger"
)

// State is the session's position in its lifecycle.
type State string

const (
	StatePending     State = "pending"
	StateFetching    State = "fetching"
	StateCollecting  State = "collecting"
	StateClassifying State = "classifying"
	StateSaving      State = "saving"
	StateDone        State = "done"
	// StateFailed is reached only after every configured fetch
	// strategy has been attempted.
	StateFailed State = "failed"
)

// Stage names for summary error entries.
const (
	StageFetch    = "fetch"
	StageCollect  = "collect"
	StageClassify = "classify"
	StageSave     = "save"
)

// StageError is one recorded failure, in occurrence order.
type StageError struct {
	Stage   string `json:"stage" yaml:"stage"`
	Message string `json:"message" yaml:"message"`
}

// Summary is the per-site result record. Finalized once per site and
// read-only afterward.
type Summary struct {
	Site            string       `json:"site" yaml:"site"`
	URL             string       `json:"url" yaml:"url"`
	State           State        `json:"state" yaml:"state"`
	StrategyUsed    fetch.Kind   `json:"fetch_strategy_used,omitempty" yaml:"fetch_strategy_used,omitempty"`
	TotalCandidates int          `json:"total_candidates" yaml:"total_candidates"`
	Accepted        int          `json:"accepted_count" yaml:"accepted_count"`
	Saved           int          `json:"saved_count" yaml:"saved_count"`
	Duplicates      int          `json:"duplicate_count" yaml:"duplicate_count"`
	Files           []string     `json:"files,omitempty" yaml:"files,omitempty"`
	Errors          []StageError `json:"errors,omitempty" yaml:"errors,omitempty"`
	StartedAt       time.Time    `json:"started_at" yaml:"started_at"`
	FinishedAt      time.Time    `json:"finished_at" yaml:"finished_at"`
}

func (s *Summary) recordError(stage, message string) {
	s.Errors = append(s.Errors, StageError{Stage: stage, Message: message})
}

// Succeeded reports whether the session saved at least one banner.
func (s *Summary) Succeeded() bool {
	return s.State == StateDone && s.Saved > 0
}

// Config assembles the session's collaborators. Strategies are owned
// by the session and closed with it; they are never shared between
// concurrent sessions.
type Config struct {
	Strategies []fetch.Strategy
	FetchOpts  fetch.Options
	Classify   classify.Config
	Download   download.Config
	OutputRoot string
}

// Session processes a single site. Stages run sequentially; the only
// suspension points are the network-bound fetch and download calls.
type Session struct {
	cfg        Config
	classifier *classify.Classifier
}

// New creates a session.
func New(cfg Config) *Session {
	return &Session{
		cfg:        cfg,
		classifier: classify.New(cfg.Classify),
	}
}

// Close releases the session's fetch strategies.
func (s *Session) Close() error {
	return fetch.CloseAll(s.cfg.Strategies)
}

// Run processes one site URL and always returns a Summary, whatever
// state it terminated in. Cancellation mid-run flushes the partial
// summary.
func (s *Session) Run(ctx context.Context, rawURL string) *Summary {
	summary := &Summary{
		Site:      download.NormalizeSite(rawURL),
		URL:       rawURL,
		State:     StatePending,
		StartedAt: time.Now(),
	}
	defer func() { summary.FinishedAt = time.Now() }()

	log := logger.With("site", summary.Site)

	// Fetching: walk the strategy chain in order, one at a time.
	summary.State = StateFetching
	result, ok := s.fetchWithFallback(ctx, rawURL, summary)
	if !ok {
		if ctx.Err() != nil {
			// Cancelled mid-chain: flush the partial summary without
			// declaring the site failed.
			return summary
		}
		summary.State = StateFailed
		log.Warn("all fetch strategies exhausted", "errors", len(summary.Errors))
		return summary
	}
	summary.StrategyUsed = result.Strategy
	log.Info("page fetched", "strategy", result.Strategy, "bytes", len(result.HTML))

	if ctx.Err() != nil {
		summary.recordError(StageFetch, ctx.Err().Error())
		return summary
	}

	// Collecting.
	summary.State = StateCollecting
	candidates, err := collect.Collect(result)
	if err != nil {
		// Unparsable document: logged, session still completes with
		// zero candidates.
		summary.recordError(StageCollect, err.Error())
		log.Warn("page could not be parsed", "error", err)
	}
	summary.TotalCandidates = len(candidates)
	log.Info("candidates collected", "count", len(candidates))

	// Classifying: non-suspending, runs even for an empty set.
	summary.State = StateClassifying
	verdicts := s.classifier.ClassifyAll(candidates)
	var accepted []classify.Verdict
	for _, v := range verdicts {
		if v.Accepted {
			accepted = append(accepted, v)
		}
	}
	summary.Accepted = len(accepted)
	log.Info("candidates classified", "accepted", len(accepted), "rejected", len(verdicts)-len(accepted))

	// Saving.
	summary.State = StateSaving
	saver, err := download.NewSaver(s.cfg.OutputRoot, summary.Site, s.cfg.Download)
	if err != nil {
		summary.recordError(StageSave, err.Error())
		summary.State = StateDone
		return summary
	}

	for _, v := range accepted {
		if ctx.Err() != nil {
			summary.recordError(StageSave, fmt.Sprintf("cancelled: %v", ctx.Err()))
			return summary
		}

		banner, dup, err := saver.Save(ctx, v.Candidate.SourceRef)
		switch {
		case err != nil:
			summary.recordError(StageSave, err.Error())
			log.Warn("banner download failed", "ref", v.Candidate.SourceRef, "error", err)
		case dup:
			summary.Duplicates++
		default:
			summary.Saved++
			summary.Files = append(summary.Files, banner.Path)
		}
	}

	if summary.Saved > 0 {
		if err := saver.WriteManifest(summary.URL); err != nil {
			summary.recordError(StageSave, err.Error())
			log.Warn("manifest not written", "error", err)
		}
	}

	summary.State = StateDone
	log.Info("site complete",
		"saved", summary.Saved,
		"duplicates", summary.Duplicates,
		"errors", len(summary.Errors))
	return summary
}

// fetchWithFallback tries each strategy in order until one succeeds.
// Every failed attempt adds exactly one summary error entry.
func (s *Session) fetchWithFallback(ctx context.Context, rawURL string, summary *Summary) (fetch.Result, bool) {
	for _, strategy := range s.cfg.Strategies {
		if ctx.Err() != nil {
			summary.recordError(StageFetch, fmt.Sprintf("cancelled: %v", ctx.Err()))
			return fetch.Result{}, false
		}

		logger.Debug("attempting fetch strategy", "strategy", strategy.Kind(), "url", rawURL)
		result, err := strategy.Fetch(ctx, rawURL, s.cfg.FetchOpts)
		if err == nil && result.Status == fetch.StatusSuccess {
			return result, true
		}

		msg := string(result.Status)
		if err != nil {
			msg = err.Error()
		}
		summary.recordError(StageFetch, fmt.Sprintf("%s: %s", strategy.Kind(), msg))
		logger.Info("fetch strategy failed, falling back",
			"strategy", strategy.Kind(), "status", result.Status, "url", rawURL)
	}
	return fetch.Result{}, false
}
