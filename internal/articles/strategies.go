// CLAUDE:SUMMARY The three boundary strategies: known-title anchors, caps/byline patterns, blank-line paragraphs.
package articles

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hazyhaar/sintesis/docpipe"
	"github.com/hazyhaar/sintesis/internal/sections"
	"github.com/hazyhaar/sintesis/internal/textnorm"
)

// minParagraphChars drops page numbers, folios and stray captions in the
// generic split.
const minParagraphChars = 20

type line struct {
	text string // untrimmed
	off  int    // byte offset in the section text
}

func splitLines(text string) []line {
	var out []line
	off := 0
	for {
		i := strings.IndexByte(text[off:], '\n')
		if i < 0 {
			out = append(out, line{text: text[off:], off: off})
			return out
		}
		out = append(out, line{text: text[off : off+i], off: off})
		off += i + 1
	}
}

// joinBody joins lines into a body, dropping the section's own header lines.
func (st *sectionText) joinBody(ls []line) string {
	var kept []string
	for _, l := range ls {
		if st.isHeaderLine(l.text) {
			continue
		}
		kept = append(kept, strings.TrimRight(l.text, " \t"))
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// --- strategy 1: known-title anchors ---

type anchorHit struct {
	start, end int
	anchor     Anchor
}

// byAnchors locates each anchor title as a literal, whitespace-tolerant
// substring. Found titles sorted by position open articles; each article
// runs to the next title's start or the end of the text.
func (e *Extractor) byAnchors(st *sectionText, anchors []Anchor) ([]Draft, int) {
	var hits []anchorHit
	for _, a := range anchors {
		title := textnorm.CollapseSpace(textnorm.NormalizeQuotes(a.Title))
		if title == "" {
			continue
		}
		loc := anchorPattern(title).FindStringIndex(st.text)
		if loc == nil {
			continue
		}
		a.Title = title
		hits = append(hits, anchorHit{start: loc[0], end: loc[1], anchor: a})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].start < hits[j].start })

	// Overlapping hits (one title inside another) keep the earlier one.
	kept := hits[:0]
	for _, h := range hits {
		if len(kept) > 0 && h.start < kept[len(kept)-1].end {
			continue
		}
		kept = append(kept, h)
	}

	drafts := make([]Draft, 0, len(kept))
	for i, h := range kept {
		end := len(st.text)
		if i+1 < len(kept) {
			end = kept[i+1].start
		}
		drafts = append(drafts, Draft{
			Title:      h.anchor.Title,
			Content:    st.joinBody(splitLines(st.text[h.end:end])),
			Source:     h.anchor.Source,
			PageNumber: st.pageAt(h.start),
			Strategy:   sections.StrategyAnchors,
		})
	}
	return drafts, len(kept)
}

func anchorPattern(title string) *regexp.Regexp {
	words := strings.Fields(title)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(strings.Join(words, `\s+`))
}

// --- strategy 2a: caps headlines ---

func isCapsTitle(s string) bool {
	s = strings.TrimSpace(s)
	n := utf8.RuneCountInString(s)
	return n >= 10 && n <= 120 && textnorm.IsCaps(s, 4)
}

// byCaps splits on blocks of ALL-CAPS lines (10 to 120 characters), each
// followed by a paragraph. Consecutive caps lines form one title.
func (e *Extractor) byCaps(st *sectionText) []Draft {
	ls := splitLines(st.text)
	var drafts []Draft
	for i := 0; i < len(ls); {
		if st.isHeaderLine(ls[i].text) || !isCapsTitle(ls[i].text) {
			i++
			continue
		}
		start := i
		var title []string
		for i < len(ls) && isCapsTitle(ls[i].text) && !st.isHeaderLine(ls[i].text) {
			title = append(title, strings.TrimSpace(ls[i].text))
			i++
		}
		bodyStart := i
		for i < len(ls) && !(isCapsTitle(ls[i].text) && !st.isHeaderLine(ls[i].text)) {
			i++
		}
		body := st.joinBody(ls[bodyStart:i])
		if utf8.RuneCountInString(body) < e.cfg.MinContentLen {
			continue
		}
		drafts = append(drafts, Draft{
			Title:      strings.Join(title, " "),
			Content:    body,
			PageNumber: st.pageAt(ls[start].off),
			Strategy:   sections.StrategyCaps,
		})
	}
	return drafts
}

// --- strategy 2b: column bylines ---

// bylineRe matches "Nombre Apellido: resto" at the start of a line.
var bylineRe = regexp.MustCompile(`^\s*((?:\p{Lu}[\p{L}'.-]+\s+){1,3}\p{Lu}[\p{L}'.-]+)\s*:\s*(.*)$`)

// byByline splits political columns on "Name Name:" lines. The name is the
// source; the rest of the line, or the next line, is the title.
func (e *Extractor) byByline(st *sectionText) []Draft {
	ls := splitLines(st.text)
	var drafts []Draft
	for i := 0; i < len(ls); {
		m := bylineRe.FindStringSubmatch(ls[i].text)
		if m == nil || st.isHeaderLine(ls[i].text) {
			i++
			continue
		}
		start := i
		name := textnorm.CollapseSpace(m[1])
		title := strings.TrimSpace(m[2])
		i++
		if title == "" {
			for i < len(ls) && strings.TrimSpace(ls[i].text) == "" {
				i++
			}
			if i < len(ls) && bylineRe.FindStringSubmatch(ls[i].text) == nil {
				title = strings.TrimSpace(ls[i].text)
				i++
			}
		}
		bodyStart := i
		for i < len(ls) && bylineRe.FindStringSubmatch(ls[i].text) == nil {
			i++
		}
		body := st.joinBody(ls[bodyStart:i])
		if utf8.RuneCountInString(body) < e.cfg.MinContentLen {
			continue
		}
		if title == "" {
			title = name
		}
		drafts = append(drafts, Draft{
			Title:      title,
			Content:    body,
			Source:     name,
			PageNumber: st.pageAt(ls[start].off),
			Strategy:   sections.StrategyByline,
		})
	}
	return drafts
}

// --- strategy 3: generic paragraphs ---

var (
	blankLineRe   = regexp.MustCompile(`\n[ \t]*\n`)
	sentenceEndRe = regexp.MustCompile(`[.!?]["')»]?(\s|$)`)
)

// byParagraphs splits on blank lines. A short capitalised first line is
// the title; otherwise the first sentence is.
func (e *Extractor) byParagraphs(st *sectionText) []Draft {
	var drafts []Draft
	start := 0
	bounds := append(blankLineRe.FindAllStringIndex(st.text, -1), []int{len(st.text), len(st.text)})
	for _, b := range bounds {
		para := st.joinBody(splitLines(st.text[start:b[0]]))
		off := start
		start = b[1]
		if docpipe.MeaningfulChars(para) < minParagraphChars {
			continue
		}
		title, content := e.splitParagraph(para)
		drafts = append(drafts, Draft{
			Title:      title,
			Content:    content,
			PageNumber: st.pageAt(off),
			Strategy:   sections.StrategyGeneric,
		})
	}
	return drafts
}

func (e *Extractor) splitParagraph(para string) (title, content string) {
	first, rest, multi := strings.Cut(para, "\n")
	first = strings.TrimSpace(first)
	rest = strings.TrimSpace(rest)
	if multi && rest != "" && utf8.RuneCountInString(first) <= e.cfg.MaxTitleLen &&
		startsUpper(first) && !strings.HasSuffix(first, ".") {
		return first, rest
	}

	flat := textnorm.CollapseSpace(para)
	if loc := sentenceEndRe.FindStringIndex(flat); loc != nil && loc[1] < len(flat) {
		end := loc[1]
		return strings.TrimSpace(flat[:end]), strings.TrimSpace(flat[end:])
	}
	return flat, flat
}

func startsUpper(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return unicode.IsUpper(r)
		}
		if unicode.IsDigit(r) {
			return false
		}
	}
	return false
}
