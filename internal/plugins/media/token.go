package media

import (
	"fmt"
	"path"
	"regexp"
	"sync"
	"time"
)

// tokenLayout is the date/time part of a token; microseconds are appended
// as a zero-padded six digit suffix.
const tokenLayout = "20060102_150405"

// FormatToken renders t as YYYYMMDD_HHMMSS_ffffff.
func FormatToken(t time.Time) string {
	return fmt.Sprintf("%s_%06d", t.Format(tokenLayout), t.Nanosecond()/int(time.Microsecond))
}

// TokenSource hands out upload tokens. Tokens from one source are strictly
// increasing at microsecond resolution, so two uploads in the same process
// never share a token even within the same microsecond.
type TokenSource struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

// NewTokenSource creates a token source reading the wall clock.
func NewTokenSource() *TokenSource {
	return &TokenSource{now: time.Now}
}

// Next returns a fresh token.
func (s *TokenSource) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.now().Truncate(time.Microsecond)
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return FormatToken(t)
}

var (
	fullTokenRe   = regexp.MustCompile(`(?:webp|miniatura|original)_(\d{8}_\d{6}_\d+)`)
	legacyTokenRe = regexp.MustCompile(`(?:webp|miniatura|original)_(\d{8}_\d{6})`)
)

// TokenFromPath extracts the token from one derivative filename. The full
// microsecond form is tried before the legacy second-resolution form.
func TokenFromPath(p string) string {
	if p == "" {
		return ""
	}
	name := path.Base(p)
	if m := fullTokenRe.FindStringSubmatch(name); m != nil {
		return m[1]
	}
	if m := legacyTokenRe.FindStringSubmatch(name); m != nil {
		return m[1]
	}
	return ""
}

// ExtractToken recovers an image record's token from its WebP, thumbnail,
// then original path. Returns "" when none carries a token.
func ExtractToken(rec *ImageRecord) string {
	for _, p := range []string{rec.PathWebP, rec.PathThumbnail, rec.PathOriginal} {
		if tok := TokenFromPath(p); tok != "" {
			return tok
		}
	}
	return ""
}
