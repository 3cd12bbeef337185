// Package download resolves accepted candidates to bytes and persists
// them with per-site deduplication and deterministic naming.
package download

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hannahporter1905-jpg/promotional-banner-scraper/internal/fetch"
	"github.com/hannahporter1905-jpg/promotional-banner-scraper/internal/logger"
)

// SavedBanner records one image persisted to disk.
type SavedBanner struct {
	// Fingerprint is the hex sha256 of the raw bytes; the per-site
	// deduplication key.
	Fingerprint string
	Path        string
	SourceURL   string
	Site        string
	Seq         int
	Bytes       int64
}

// Error is a per-image failure. It is recorded in the site summary and
// never aborts the remaining candidates.
type Error struct {
	Ref    string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("download %s: %s: %v", e.Ref, e.Reason, e.Err)
	}
	return fmt.Sprintf("download %s: %s", e.Ref, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// Config holds downloader tunables.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	// MaxBytes caps a single image; larger downloads are rejected.
	MaxBytes int64
	// MinBytes rejects tracking pixels and corrupt stubs.
	MinBytes int64
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		UserAgent: fetch.DefaultUserAgent,
		Timeout:   15 * time.Second,
		MaxBytes:  10 * 1024 * 1024,
		MinBytes:  500,
	}
}

// ManifestFileName is the per-site record written next to the banners.
const ManifestFileName = "manifest.json"

// Manifest describes everything saved for one site.
type Manifest struct {
	Site    string          `json:"site"`
	PageURL string          `json:"page_url"`
	SavedAt time.Time       `json:"saved_at"`
	Banners []ManifestEntry `json:"banners"`
}

// ManifestEntry is one saved banner.
type ManifestEntry struct {
	File        string `json:"file"`
	SourceURL   string `json:"source_url"`
	Fingerprint string `json:"sha256"`
	Bytes       int64  `json:"bytes"`
}

// Saver downloads and persists banners for one site. Not safe for
// concurrent use; each site session owns exactly one.
type Saver struct {
	cfg    Config
	client *http.Client
	site   string
	dir    string
	seen   map[string]bool // fingerprints already written
	seq    int
	saved  []*SavedBanner
}

// NewSaver creates the site's output directory and a saver for it.
func NewSaver(root, site string, cfg Config) (*Saver, error) {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultConfig().UserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = DefaultConfig().MaxBytes
	}

	dir := filepath.Join(root, site)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create site directory: %w", err)
	}

	return &Saver{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		site:   site,
		dir:    dir,
		seen:   make(map[string]bool),
	}, nil
}

// Dir returns the site's output directory.
func (s *Saver) Dir() string { return s.dir }

// Save resolves ref to bytes, fingerprints them and writes the file
// unless the fingerprint was already seen for this site. The second
// return is true for a discarded duplicate.
func (s *Saver) Save(ctx context.Context, ref string) (*SavedBanner, bool, error) {
	data, contentType, err := s.resolve(ctx, ref)
	if err != nil {
		return nil, false, err
	}

	if int64(len(data)) < s.cfg.MinBytes {
		return nil, false, &Error{Ref: ref, Reason: fmt.Sprintf("only %d bytes", len(data))}
	}

	sum := sha256.Sum256(data)
	fingerprint := hex.EncodeToString(sum[:])
	if s.seen[fingerprint] {
		logger.Debug("duplicate banner skipped", "site", s.site, "ref", ref)
		return nil, true, nil
	}

	s.seq++
	ext := sniffExtension(data, contentType)
	filename := fmt.Sprintf("banner_%03d_%s.%s", s.seq, fingerprint[:8], ext)
	path := filepath.Join(s.dir, filename)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.seq--
		return nil, false, &Error{Ref: ref, Reason: "write file", Err: err}
	}
	s.seen[fingerprint] = true

	logger.Debug("banner saved", "site", s.site, "file", filename, "bytes", len(data))
	banner := &SavedBanner{
		Fingerprint: fingerprint,
		Path:        path,
		SourceURL:   ref,
		Site:        s.site,
		Seq:         s.seq,
		Bytes:       int64(len(data)),
	}
	s.saved = append(s.saved, banner)
	return banner, false, nil
}

// WriteManifest records the saved banners in the site directory as
// manifest.json, keyed by the page they were scraped from.
func (s *Saver) WriteManifest(pageURL string) error {
	m := Manifest{
		Site:    s.site,
		PageURL: pageURL,
		SavedAt: time.Now().UTC(),
		Banners: make([]ManifestEntry, 0, len(s.saved)),
	}
	for _, b := range s.saved {
		m.Banners = append(m.Banners, ManifestEntry{
			File:        filepath.Base(b.Path),
			SourceURL:   b.SourceURL,
			Fingerprint: b.Fingerprint,
			Bytes:       b.Bytes,
		})
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	path := filepath.Join(s.dir, ManifestFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// resolve fetches URL refs over HTTP and decodes inline data: tokens.
func (s *Saver) resolve(ctx context.Context, ref string) ([]byte, string, error) {
	if strings.HasPrefix(ref, "data:") {
		return decodeDataURI(ref)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, "", &Error{Ref: ref, Reason: "build request", Err: err}
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	req.Header.Set("Accept", "image/avif,image/webp,image/*,*/*;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", &Error{Ref: ref, Reason: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", &Error{Ref: ref, Reason: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" &&
		!strings.Contains(contentType, "image") &&
		!strings.Contains(contentType, "octet-stream") {
		return nil, "", &Error{Ref: ref, Reason: fmt.Sprintf("not an image: %s", contentType)}
	}

	// Read one byte past the cap to detect oversize bodies without
	// trusting Content-Length.
	data, err := io.ReadAll(io.LimitReader(resp.Body, s.cfg.MaxBytes+1))
	if err != nil {
		return nil, "", &Error{Ref: ref, Reason: "read body", Err: err}
	}
	if int64(len(data)) > s.cfg.MaxBytes {
		return nil, "", &Error{Ref: ref, Reason: fmt.Sprintf("exceeds %d byte cap", s.cfg.MaxBytes)}
	}

	return data, contentType, nil
}

// decodeDataURI decodes a base64 data: token into bytes.
func decodeDataURI(ref string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(ref, "data:")
	if !ok {
		return nil, "", &Error{Ref: ref, Reason: "not a data URI"}
	}

	meta, payload, found := strings.Cut(rest, ",")
	if !found {
		return nil, "", &Error{Ref: truncateRef(ref), Reason: "malformed data URI"}
	}

	contentType := meta
	if i := strings.Index(meta, ";"); i >= 0 {
		contentType = meta[:i]
	}

	var data []byte
	var err error
	if strings.Contains(meta, "base64") {
		data, err = base64.StdEncoding.DecodeString(payload)
	} else {
		var decoded string
		decoded, err = url.QueryUnescape(payload)
		data = []byte(decoded)
	}
	if err != nil {
		return nil, "", &Error{Ref: truncateRef(ref), Reason: "decode data URI", Err: err}
	}

	return data, contentType, nil
}

// truncateRef keeps error messages readable for long inline tokens.
func truncateRef(ref string) string {
	if len(ref) > 64 {
		return ref[:64] + "..."
	}
	return ref
}

// sniffExtension infers the file extension from magic bytes, falling
// back to the content type.
func sniffExtension(data []byte, contentType string) string {
	switch {
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return "jpg"
	case len(data) >= 4 && string(data[:4]) == "\x89PNG":
		return "png"
	case len(data) >= 6 && (string(data[:6]) == "GIF87a" || string(data[:6]) == "GIF89a"):
		return "gif"
	case len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return "webp"
	case looksLikeSVG(data):
		return "svg"
	}

	ct := strings.ToLower(contentType)
	for _, m := range []struct{ marker, ext string }{
		{"jpeg", "jpg"}, {"jpg", "jpg"}, {"png", "png"},
		{"gif", "gif"}, {"webp", "webp"}, {"svg", "svg"},
	} {
		if strings.Contains(ct, m.marker) {
			return m.ext
		}
	}
	return "jpg"
}

func looksLikeSVG(data []byte) bool {
	head := strings.TrimSpace(string(data[:min(len(data), 256)]))
	return strings.HasPrefix(head, "<svg") || (strings.HasPrefix(head, "<?xml") && strings.Contains(head, "<svg"))
}

// NormalizeSite derives the filesystem-safe site identifier from a URL.
func NormalizeSite(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return sanitizeHost(rawURL)
	}
	return sanitizeHost(u.Host)
}

func sanitizeHost(host string) string {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	replacer := strings.NewReplacer(".", "_", ":", "_", "/", "_")
	return replacer.Replace(host)
}
