// Package normalize canonicalizes free-text channel names for matching.
//
// The same pipeline must run on playlist display names and on EPG
// display names; the two sides only compare equal when normalized
// identically.
package normalize

import (
	"math"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// Quality/codec markers carry no channel identity.
	qualityRe  = regexp.MustCompile(`\b(uhd|fhd|hd|sd|4k|hdr|hevc|h\.265|h265|1080p|720p|2160p)\b`)
	bracketRe  = regexp.MustCompile(`[(\[][^)\]]*[)\]]`)
	nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)
	spaceRe    = regexp.MustCompile(`\s+`)

	// NFKD decomposition followed by removal of combining marks, so
	// "Télé 5" and "Tele 5" normalize to the same key.
	stripMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
)

// Name normalizes a channel name into a comparable lowercase token string.
// Idempotent: Name(Name(s)) == Name(s).
func Name(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	if out, _, err := transform.String(stripMarks, s); err == nil {
		s = out
	}
	s = strings.ReplaceAll(s, "&", " and ")
	s = strings.ReplaceAll(s, "+", " plus ")
	s = qualityRe.ReplaceAllString(s, " ")
	s = bracketRe.ReplaceAllString(s, " ")
	s = nonAlnumRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// Tokens splits the normalized form of s into a set of tokens.
func Tokens(s string) map[string]struct{} {
	fields := strings.Fields(Name(s))
	if len(fields) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		out[f] = struct{}{}
	}
	return out
}

// Compact strips everything but lowercase letters and digits, for
// punctuation-insensitive id comparison and slug building.
func Compact(s string) string {
	return nonAlnumRe.ReplaceAllString(strings.ToLower(s), "")
}

// Jaccard returns |a∩b| / |a∪b|, or 0 when either set is empty.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// Round3 rounds a confidence score to three decimals for stable reporting.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
