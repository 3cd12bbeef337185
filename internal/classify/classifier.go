// Package classify decides which image candidates are promotional
// banners.
//
// The decision is a sum of independent signal evaluators, each
// contributing a signed confidence delta and a reason code, thresholded
// at the end. Disqualifying signals short-circuit to a rejection. This
// keeps every heuristic auditable and testable on its own.
package classify

import (
	"strings"

	"github.com/hannahporter1905-jpg/promotional-banner-scraper/internal/collect"
)

// Reason identifies one heuristic signal that fired during
// classification.
type Reason string

const (
	// Disqualifiers
	ReasonTooSmall    Reason = "too_small"
	ReasonSkipPattern Reason = "skip_pattern"

	// Positive signals
	ReasonPromoKeyword Reason = "promo_keyword"
	ReasonPromoPath    Reason = "promo_path"
	ReasonBannerSize   Reason = "banner_size"
	ReasonBannerAspect Reason = "banner_aspect"
	ReasonTopOfPage    Reason = "top_of_page"
	ReasonCarousel     Reason = "carousel"

	// Negative signals
	ReasonSquareAspect Reason = "square_aspect"
	ReasonFooterNav    Reason = "footer_nav"
)

// Verdict is the classification outcome for one candidate.
type Verdict struct {
	Candidate  collect.ImageCandidate
	Accepted   bool
	Confidence float64
	// Reasons records every signal that fired, for diagnostics.
	Reasons []Reason
}

// Config holds the tunables of the heuristic.
type Config struct {
	MinWidth  int
	MinHeight int
	// Threshold is the acceptance cutoff on the 0..1 confidence.
	Threshold float64
	// MinAspect/MaxAspect bound the banner-typical width/height ratio.
	MinAspect float64
	MaxAspect float64
	// FoldCutoff is the highest position index still counted as
	// near the top of the page.
	FoldCutoff int

	PromoKeywords []string
	SkipPatterns  []string
}

// DefaultConfig returns the tuning observed to work on promotional
// pages. Every value is overridable through configuration.
func DefaultConfig() Config {
	return Config{
		MinWidth:   200,
		MinHeight:  80,
		Threshold:  0.4,
		MinAspect:  1.1,
		MaxAspect:  10.0,
		FoldCutoff: 12,
		PromoKeywords: []string{
			"banner", "bonus", "promo", "promotion", "offer", "welcome",
			"deposit", "free", "spin", "jackpot", "casino", "bet", "win",
			"reward", "special", "exclusive", "limited", "cashback",
			"match", "reload", "hero", "slider", "carousel", "campaign",
			"featured", "cta", "signup", "sign-up", "register", "deal",
			"tournament",
		},
		SkipPatterns: []string{
			"favicon", "icon-", "logo-small", "pixel", "spacer", "sprite",
			"1x1", "tracking", "analytics", "badge", "emoji", "avatar",
			"flag-", "payment-", "visa", "mastercard",
		},
	}
}

// signalFunc evaluates one independent heuristic. fired reports whether
// the signal applies; delta is its confidence contribution.
type signalFunc func(cfg Config, c collect.ImageCandidate) (delta float64, reason Reason, fired bool)

// disqualifierFunc is a short-circuit rejection check.
type disqualifierFunc func(cfg Config, c collect.ImageCandidate) (Reason, bool)

// Classifier applies the signal list to candidates.
type Classifier struct {
	cfg           Config
	disqualifiers []disqualifierFunc
	signals       []signalFunc
}

// New builds a classifier from a config.
func New(cfg Config) *Classifier {
	return &Classifier{
		cfg: cfg,
		disqualifiers: []disqualifierFunc{
			belowSizeFloor,
			matchesSkipPattern,
		},
		signals: []signalFunc{
			promoKeyword,
			promoPath,
			bannerSize,
			bannerAspect,
			squareAspect,
			topOfPage,
			inCarousel,
			inFooterOrNav,
		},
	}
}

// Classify produces a verdict for one candidate. A candidate without
// declared dimensions is neither auto-rejected nor auto-accepted;
// dimension signals simply do not fire.
func (cl *Classifier) Classify(c collect.ImageCandidate) Verdict {
	v := Verdict{Candidate: c}

	for _, dq := range cl.disqualifiers {
		if reason, hit := dq(cl.cfg, c); hit {
			v.Reasons = append(v.Reasons, reason)
			return v
		}
	}

	confidence := 0.0
	for _, sig := range cl.signals {
		delta, reason, fired := sig(cl.cfg, c)
		if !fired {
			continue
		}
		confidence += delta
		v.Reasons = append(v.Reasons, reason)
	}

	v.Confidence = clamp01(confidence)
	v.Accepted = v.Confidence >= cl.cfg.Threshold
	return v
}

// ClassifyAll classifies candidates in order.
func (cl *Classifier) ClassifyAll(candidates []collect.ImageCandidate) []Verdict {
	verdicts := make([]Verdict, 0, len(candidates))
	for _, c := range candidates {
		verdicts = append(verdicts, cl.Classify(c))
	}
	return verdicts
}

// hasDims reports whether both dimensions were declared in markup.
func hasDims(c collect.ImageCandidate) bool {
	return c.Width > 0 && c.Height > 0
}

func aspect(c collect.ImageCandidate) float64 {
	return float64(c.Width) / float64(c.Height)
}

// belowSizeFloor rejects icons and avatars: both dimensions declared
// and either one under its floor.
func belowSizeFloor(cfg Config, c collect.ImageCandidate) (Reason, bool) {
	if !hasDims(c) {
		return "", false
	}
	if c.Width < cfg.MinWidth || c.Height < cfg.MinHeight {
		return ReasonTooSmall, true
	}
	return "", false
}

// matchesSkipPattern rejects known non-content paths: sprites,
// favicons, tracking pixels, payment badges.
func matchesSkipPattern(cfg Config, c collect.ImageCandidate) (Reason, bool) {
	ref := strings.ToLower(c.SourceRef)
	for _, p := range cfg.SkipPatterns {
		if strings.Contains(ref, p) {
			return ReasonSkipPattern, true
		}
	}
	return "", false
}

// promoKeyword fires when any promotional term appears in the markup
// signals (alt, title, class, id, link target, roles).
func promoKeyword(cfg Config, c collect.ImageCandidate) (float64, Reason, bool) {
	text := c.SignalText()
	for _, kw := range cfg.PromoKeywords {
		if strings.Contains(text, kw) {
			return 0.45, ReasonPromoKeyword, true
		}
	}
	return 0, "", false
}

// promoPath fires when the source reference itself looks promotional.
func promoPath(cfg Config, c collect.ImageCandidate) (float64, Reason, bool) {
	ref := strings.ToLower(c.SourceRef)
	for _, ind := range []string{"banner", "promo", "bonus", "offer", "campaign", "hero", "slide"} {
		if strings.Contains(ref, ind) {
			return 0.30, ReasonPromoPath, true
		}
	}
	return 0, "", false
}

// bannerSize fires when both declared dimensions clear the floor.
func bannerSize(cfg Config, c collect.ImageCandidate) (float64, Reason, bool) {
	if !hasDims(c) {
		return 0, "", false
	}
	if c.Width >= cfg.MinWidth && c.Height >= cfg.MinHeight {
		return 0.25, ReasonBannerSize, true
	}
	return 0, "", false
}

// bannerAspect fires on wide-and-short or full-bleed shapes.
func bannerAspect(cfg Config, c collect.ImageCandidate) (float64, Reason, bool) {
	if !hasDims(c) {
		return 0, "", false
	}
	r := aspect(c)
	if r >= cfg.MinAspect && r <= cfg.MaxAspect {
		return 0.25, ReasonBannerAspect, true
	}
	return 0, "", false
}

// squareAspect penalizes near-square, logo-like shapes.
func squareAspect(cfg Config, c collect.ImageCandidate) (float64, Reason, bool) {
	if !hasDims(c) {
		return 0, "", false
	}
	r := aspect(c)
	if r >= 0.85 && r <= 1.15 {
		return -0.25, ReasonSquareAspect, true
	}
	return 0, "", false
}

// topOfPage fires for candidates encountered early in the document or
// inside a header/hero container.
func topOfPage(cfg Config, c collect.ImageCandidate) (float64, Reason, bool) {
	if c.Position < cfg.FoldCutoff || c.HasSignal(collect.SignalRoleHeader) {
		return 0.15, ReasonTopOfPage, true
	}
	return 0, "", false
}

// inCarousel fires inside carousel/slider containers.
func inCarousel(cfg Config, c collect.ImageCandidate) (float64, Reason, bool) {
	if c.HasSignal(collect.SignalRoleCarousel) {
		return 0.20, ReasonCarousel, true
	}
	return 0, "", false
}

// inFooterOrNav penalizes footer and navigation chrome.
func inFooterOrNav(cfg Config, c collect.ImageCandidate) (float64, Reason, bool) {
	if c.HasSignal(collect.SignalRoleFooter) || c.HasSignal(collect.SignalRoleNav) {
		return -0.30, ReasonFooterNav, true
	}
	return 0, "", false
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
