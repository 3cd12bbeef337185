// Package collect parses fetched pages into image candidates for
// classification.
package collect

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hannahporter1905-jpg/promotional-banner-scraper/internal/fetch"
	"github.com/hannahporter1905-jpg/promotional-banner-scraper/internal/logger"
)

// Signal tags attached by the collector for container roles. The
// classifier keys on these rather than re-walking the DOM.
const (
	SignalRoleCarousel = "role:carousel"
	SignalRoleHeader   = "role:header"
	SignalRoleFooter   = "role:footer"
	SignalRoleNav      = "role:nav"
)

// ImageCandidate is one image reference found in a page, together with
// the markup context the classifier needs. Immutable once produced.
type ImageCandidate struct {
	// SourceRef is an absolute URL or an inline data: token.
	SourceRef string
	// Width and Height are declared dimensions; 0 means undeclared.
	Width  int
	Height int
	// Signals holds lowercased markup text: alt, title, class, id,
	// link target and role tags.
	Signals []string
	// Position is the order of appearance in the document.
	Position int
}

// SignalText joins all signals for keyword matching.
func (c ImageCandidate) SignalText() string {
	return strings.Join(c.Signals, " ")
}

// HasSignal reports whether an exact signal tag is present.
func (c ImageCandidate) HasSignal(tag string) bool {
	for _, s := range c.Signals {
		if s == tag {
			return true
		}
	}
	return false
}

var (
	styleBGRe = regexp.MustCompile(`background(?:-image)?\s*:[^;]*url\(["']?([^"')\s]+)["']?\)`)
	cssRuleRe = regexp.MustCompile(`([.#][\w-]+)[^{]*\{[^}]*background(?:-image)?\s*:[^;]*url\(["']?([^"')\s]+)["']?\)`)
)

// Collect extracts image candidates from a successful fetch result in
// document order. Non-success results yield no candidates. Malformed
// fragments are skipped; only a document that cannot be parsed at all
// returns an error.
func Collect(result fetch.Result) ([]ImageCandidate, error) {
	if result.Status != fetch.StatusSuccess {
		return nil, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(result.HTML))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	base, err := url.Parse(result.URL)
	if err != nil {
		base = nil
	}

	col := &collector{
		base: base,
		seen: make(map[string]bool),
	}

	// Single pass over every element keeps position indices in
	// document order across the different candidate sources,
	// including background-image rules inside <style> blocks.
	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		node := goquery.NodeName(s)
		switch node {
		case "img":
			col.addImg(s)
		case "source":
			col.addSourceSet(s)
		case "style":
			col.addStyleBlock(s.Text())
		}

		if style, ok := s.Attr("style"); ok {
			col.addInlineStyle(s, style)
		}
	})

	logger.Debug("collected candidates", "url", result.URL, "count", len(col.out))
	return col.out, nil
}

type collector struct {
	base *url.URL
	seen map[string]bool
	out  []ImageCandidate
}

// add records a candidate unless its ref was already seen. First
// occurrence wins so positions stay in document order.
func (c *collector) add(ref string, width, height int, signals []string) {
	if ref == "" || c.seen[ref] {
		return
	}
	c.seen[ref] = true
	c.out = append(c.out, ImageCandidate{
		SourceRef: ref,
		Width:     width,
		Height:    height,
		Signals:   signals,
		Position:  len(c.out),
	})
}

func (c *collector) addImg(s *goquery.Selection) {
	src := firstAttr(s, "src", "data-src", "data-lazy-src")
	signals := c.gatherSignals(s)

	if ref := c.resolve(src); ref != "" {
		c.add(ref, parseDim(s.AttrOr("width", "")), parseDim(s.AttrOr("height", "")), signals)
	}

	for _, entry := range parseSrcset(s.AttrOr("srcset", "")) {
		if ref := c.resolve(entry); ref != "" {
			c.add(ref, 0, 0, signals)
		}
	}
}

func (c *collector) addSourceSet(s *goquery.Selection) {
	signals := c.gatherSignals(s)
	for _, entry := range parseSrcset(s.AttrOr("srcset", "")) {
		if ref := c.resolve(entry); ref != "" {
			c.add(ref, 0, 0, signals)
		}
	}
}

func (c *collector) addInlineStyle(s *goquery.Selection, style string) {
	for _, m := range styleBGRe.FindAllStringSubmatch(style, -1) {
		raw := m[1]
		if strings.HasPrefix(raw, "data:") {
			continue
		}
		if ref := c.resolve(raw); ref != "" {
			c.add(ref, 0, 0, c.gatherSignals(s))
		}
	}
}

func (c *collector) addStyleBlock(css string) {
	for _, m := range cssRuleRe.FindAllStringSubmatch(css, -1) {
		selector, raw := m[1], m[2]
		if strings.HasPrefix(raw, "data:") {
			continue
		}
		if ref := c.resolve(raw); ref != "" {
			c.add(ref, 0, 0, []string{strings.ToLower(selector)})
		}
	}
}

// gatherSignals collects the element's own attributes, its enclosing
// link target and ancestor container roles.
func (c *collector) gatherSignals(s *goquery.Selection) []string {
	var signals []string
	for _, attr := range []string{"alt", "title", "class", "id"} {
		if v := strings.TrimSpace(s.AttrOr(attr, "")); v != "" {
			signals = append(signals, strings.ToLower(v))
		}
	}

	if href := s.Closest("a").AttrOr("href", ""); href != "" {
		signals = append(signals, strings.ToLower(href))
	}

	signals = append(signals, ancestorRoles(s)...)
	return signals
}

// ancestorRoles inspects parent tags and class/id names for container
// roles that sway classification.
func ancestorRoles(s *goquery.Selection) []string {
	var carousel, header, footer, nav bool

	s.Parents().Each(func(_ int, p *goquery.Selection) {
		tag := goquery.NodeName(p)
		ctx := strings.ToLower(p.AttrOr("class", "") + " " + p.AttrOr("id", ""))

		switch tag {
		case "header":
			header = true
		case "footer":
			footer = true
		case "nav":
			nav = true
		}

		if containsAny(ctx, "carousel", "slider", "swiper", "slideshow") {
			carousel = true
		}
		if containsAny(ctx, "hero", "banner") {
			header = true
		}
		if containsAny(ctx, "footer") {
			footer = true
		}
		if containsAny(ctx, "navbar", "nav-menu", "breadcrumb") {
			nav = true
		}
	})

	var roles []string
	if carousel {
		roles = append(roles, SignalRoleCarousel)
	}
	if header {
		roles = append(roles, SignalRoleHeader)
	}
	if footer {
		roles = append(roles, SignalRoleFooter)
	}
	if nav {
		roles = append(roles, SignalRoleNav)
	}
	return roles
}

// resolve turns a raw ref into an absolute URL, keeping data: tokens
// as-is.
func (c *collector) resolve(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "javascript:") || strings.HasPrefix(raw, "#") {
		return ""
	}
	if strings.HasPrefix(raw, "data:") {
		return raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if !u.IsAbs() {
		if c.base == nil {
			return ""
		}
		u = c.base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

// parseDim converts a declared dimension to an int, tolerating "px"
// suffixes and garbage.
func parseDim(val string) int {
	val = strings.TrimSuffix(strings.TrimSpace(val), "px")
	n, err := strconv.Atoi(val)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// parseSrcset extracts the URL part of each srcset entry.
func parseSrcset(srcset string) []string {
	if strings.TrimSpace(srcset) == "" {
		return nil
	}
	var urls []string
	for _, part := range strings.Split(srcset, ",") {
		fields := strings.Fields(strings.TrimSpace(part))
		if len(fields) > 0 {
			urls = append(urls, fields[0])
		}
	}
	return urls
}

// firstAttr returns the first present, non-empty attribute.
func firstAttr(s *goquery.Selection, names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(s.AttrOr(name, "")); v != "" {
			return v
		}
	}
	return ""
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
