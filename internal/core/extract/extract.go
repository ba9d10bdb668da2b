// Package extract turns a vision model's free-text answer into a validated
// meter reading. The model is prompted to answer with bare digits, or with a
// fixed sentinel token when the image does not show a meter; anything else is
// treated as unrecognized rather than guessed at
package extract

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// DefaultSentinel is the token the vision prompt asks for when no meter is visible
const DefaultSentinel = "ERRO"

// Extractor parses model answers against a configured sentinel
type Extractor struct {
	sentinel string
}

// New returns an Extractor; an empty sentinel falls back to DefaultSentinel
func New(sentinel string) Extractor {
	if sentinel == "" {
		sentinel = DefaultSentinel
	}
	return Extractor{sentinel: sentinel}
}

// Sentinel returns the configured sentinel token
func (e Extractor) Sentinel() string { return e.sentinel }

// Extract returns the non-negative integer reading and ok=true, or ok=false
// when the answer is the sentinel or does not parse as a bare integer.
// Pure function, no side effects
func (e Extractor) Extract(raw string) (int64, bool) {
	s := Sanitize(raw)
	if s == "" || s == e.sentinel {
		return 0, false
	}
	if !allDigits(s) {
		return 0, false
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// all-digit strings can still overflow int64
		return 0, false
	}
	return v, true
}

// Sanitize cleans up OCR-ish model output before parsing: folds fullwidth
// forms to their ASCII equivalents, drops zero-width and control runes, and
// trims surrounding whitespace. The sentinel survives untouched
func Sanitize(s string) string {
	s = width.Fold.String(s)
	s = norm.NFKC.String(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\u200b' || r == '\u200c' || r == '\u200d' || r == '\ufeff':
			// zero-width space, non-joiner, joiner, BOM
		case unicode.IsControl(r):
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}
