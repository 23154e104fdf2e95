// CLAUDE:SUMMARY Accent folding, quote normalisation and caps detection shared by the segmenters.
// Package textnorm normalises digest text for matching. Matching is always
// done on folded copies; stored text keeps its original accents.
package textnorm

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// StripAccents removes combining marks: "OPINIÓN" → "OPINION".
func StripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Fold lower-cases, strips accents and collapses whitespace.
func Fold(s string) string {
	return CollapseSpace(strings.ToLower(StripAccents(s)))
}

// Key folds s and drops everything but letters and digits, so that
// "La Jornada", "LAJORNADA" and "la-jornada.png" share one key.
func Key(s string) string {
	s = strings.ToLower(StripAccents(s))
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// ContainsKey reports whether the key of needle occurs in the key of haystack.
func ContainsKey(haystack, needle string) bool {
	k := Key(needle)
	return k != "" && strings.Contains(Key(haystack), k)
}

var quoteReplacer = strings.NewReplacer(
	"“", `"`, "”", `"`, "„", `"`, "‟", `"`,
	"«", `"`, "»", `"`, "″", `"`,
	"‘", "'", "’", "'", "‚", "'", "‛", "'", "′", "'",
	"–", "-", "—", "-",
	"\u00a0", " ",
)

// NormalizeQuotes maps typographic quotes, dashes and no-break spaces to ASCII.
// Every replacement keeps the rune count, so rune offsets survive.
func NormalizeQuotes(s string) string {
	return quoteReplacer.Replace(s)
}

// CollapseSpace trims s and reduces every whitespace run to one space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate returns the first n runes of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// IsCaps reports whether line has at least minLetters letters and no
// lower-case letter.
func IsCaps(line string, minLetters int) bool {
	letters := 0
	for _, r := range line {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			letters++
		}
	}
	return letters >= minLetters
}

// FirstLine returns the first non-empty trimmed line of s.
func FirstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
