// Package slug derives URL-safe page identifiers from free-form titles.
package slug

import (
	"regexp"
	"strings"
)

const (
	// MinLength is the shortest slug accepted.
	MinLength = 3
	// MaxLength is the longest slug accepted.
	MaxLength = 50
)

var validSlug = regexp.MustCompile(`^[a-z0-9-]+$`)

// accentMap folds the accented characters common in French titles to their
// ASCII equivalents before the generic strip pass.
var accentMap = map[rune]rune{
	'à': 'a', 'â': 'a', 'ä': 'a',
	'ç': 'c',
	'é': 'e', 'è': 'e', 'ê': 'e', 'ë': 'e',
	'î': 'i', 'ï': 'i',
	'ô': 'o', 'ö': 'o',
	'ù': 'u', 'û': 'u', 'ü': 'u',
	'ÿ': 'y',
	'À': 'a', 'Â': 'a', 'Ä': 'a',
	'Ç': 'c',
	'É': 'e', 'È': 'e', 'Ê': 'e', 'Ë': 'e',
	'Î': 'i', 'Ï': 'i',
	'Ô': 'o', 'Ö': 'o',
	'Ù': 'u', 'Û': 'u', 'Ü': 'u',
}

// Generate derives a slug from a title: lowercase, accents folded, runs of
// non-alphanumerics collapsed to single hyphens, trimmed to MaxLength.
// Generate is idempotent: Generate(Generate(s)) == Generate(s).
func Generate(title string) string {
	var b strings.Builder
	b.Grow(len(title))

	lastHyphen := true // suppress leading hyphen
	for _, r := range title {
		if folded, ok := accentMap[r]; ok {
			r = folded
		}
		switch {
		case r >= 'A' && r <= 'Z':
			r += 'a' - 'A'
			fallthrough
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}

	s := strings.TrimRight(b.String(), "-")
	if len(s) > MaxLength {
		s = strings.TrimRight(s[:MaxLength], "-")
	}
	return s
}

// Valid reports whether s is an acceptable slug: lowercase alphanumerics and
// hyphens only, within length bounds.
func Valid(s string) bool {
	if len(s) < MinLength || len(s) > MaxLength {
		return false
	}
	return validSlug.MatchString(s)
}
