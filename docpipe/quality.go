// CLAUDE:SUMMARY Text-layer quality scoring: meaningful chars per page, printable ratio, OCR need.
// CLAUDE:EXPORTS ExtractionQuality, NeedsOCR, MeaningfulChars, computePrintableRatio, computeWordlikeRatio
package docpipe

import (
	"strings"
	"unicode"
)

// ExtractionQuality captures metrics about the text layer of a document.
type ExtractionQuality struct {
	PageCount       int     `json:"page_count"`
	CharsPerPage    float64 `json:"chars_per_page"`
	PrintableRatio  float64 `json:"printable_ratio"`
	WordlikeRatio   float64 `json:"wordlike_ratio"`
	HasImageStreams bool    `json:"has_image_streams"`
	EmptyPages      int     `json:"empty_pages"` // pages with no meaningful text
	ImagePages      int     `json:"image_pages"` // pages referencing image XObjects
}

// NeedsOCR returns true if the document is mostly scanned images.
func (q *ExtractionQuality) NeedsOCR() bool {
	return (q.CharsPerPage < 50 && q.HasImageStreams) || q.PrintableRatio < 0.85
}

// assessQuality computes document metrics from already-read pages.
func assessQuality(pages []Page) *ExtractionQuality {
	q := &ExtractionQuality{PageCount: len(pages)}
	var all strings.Builder
	total := 0
	for _, p := range pages {
		total += p.Chars
		if p.Chars == 0 {
			q.EmptyPages++
		}
		if p.HasImages {
			q.ImagePages++
			q.HasImageStreams = true
		}
		if p.Text != "" {
			all.WriteString(p.Text)
			all.WriteByte('\n')
		}
	}
	if len(pages) > 0 {
		q.CharsPerPage = float64(total) / float64(len(pages))
	}
	text := all.String()
	q.PrintableRatio = computePrintableRatio(text)
	q.WordlikeRatio = computeWordlikeRatio(text)
	return q
}

// MeaningfulChars counts printable, non-space runes, excluding PUA,
// replacement and control characters. This is the count the minimal-text
// heuristic compares against its threshold.
func MeaningfulChars(text string) int {
	n := 0
	for _, r := range text {
		if unicode.IsSpace(r) || isGarbageRune(r) || !unicode.IsPrint(r) {
			continue
		}
		n++
	}
	return n
}

// computePrintableRatio returns the ratio of printable characters in text.
// Excludes PUA U+E000-U+F8FF, control chars < U+0020 (except \n\r\t), U+FFFD.
func computePrintableRatio(text string) float64 {
	if len(text) == 0 {
		return 1.0
	}
	total := 0
	printable := 0
	for _, r := range text {
		total++
		if isGarbageRune(r) {
			continue
		}
		if unicode.IsPrint(r) || r == '\n' || r == '\r' || r == '\t' {
			printable++
		}
	}
	if total == 0 {
		return 1.0
	}
	return float64(printable) / float64(total)
}

func isGarbageRune(r rune) bool {
	// Private Use Area
	if r >= 0xE000 && r <= 0xF8FF {
		return true
	}
	// Replacement character
	if r == 0xFFFD {
		return true
	}
	// Control chars except whitespace
	if r < 0x0020 && r != '\n' && r != '\r' && r != '\t' {
		return true
	}
	return false
}

// computeWordlikeRatio returns the ratio of word-like tokens (length 2-15) to total tokens.
func computeWordlikeRatio(text string) float64 {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0
	}
	wordlike := 0
	for _, f := range fields {
		n := len([]rune(f))
		if n >= 2 && n <= 15 {
			wordlike++
		}
	}
	return float64(wordlike) / float64(len(fields))
}
