// CLAUDE:SUMMARY Section map builder: header scan, static fallback ranges, minimal-text heuristic, catch-all.
// CLAUDE:DEPENDS docpipe, horosafe, internal/textnorm
// CLAUDE:EXPORTS Definition, Section, Build, Unclassified
package sections

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hazyhaar/sintesis/docpipe"
	"github.com/hazyhaar/sintesis/horosafe"
	"github.com/hazyhaar/sintesis/internal/textnorm"
)

// ContentType is what a section is made of.
type ContentType string

const (
	TypeText  ContentType = "text"
	TypeImage ContentType = "image"
	// TypeMixed is only used by the catch-all section: each page is
	// handled according to whether it has text.
	TypeMixed ContentType = "mixed"
)

// Detection records how a section got its pages.
type Detection string

const (
	DetectedHeader   Detection = "header"
	DetectedFallback Detection = "fallback"
	DetectedCatchAll Detection = "catch_all"
)

// Article extraction strategies, see internal/articles.
const (
	StrategyAnchors    = "anchors"
	StrategyCaps       = "caps"
	StrategyByline     = "byline"
	StrategyGeneric    = "generic"
	StrategyFrontPages = "front_pages"
	StrategySequential = "sequential"
	StrategyCatchAll   = "catch_all"
)

// Unclassified is the id of the catch-all section.
const Unclassified = "unclassified"

// Definition is one row of the section table.
type Definition struct {
	ID      string      `json:"id" yaml:"id"`
	Name    string      `json:"name" yaml:"name"`
	Type    ContentType `json:"type" yaml:"type"`
	Headers []string    `json:"headers" yaml:"headers"`

	// Fallback is the historical [first, last] page range, empty when the
	// section has no fixed position.
	Fallback []int `json:"fallback,omitempty" yaml:"fallback"`

	// Strategy selects the article or image extractor. For text sections an
	// anchor manifest entry always takes priority.
	Strategy string `json:"strategy" yaml:"strategy"`

	// ImageTitle is a fmt pattern with one %d for sequential image sections.
	ImageTitle string `json:"image_title,omitempty" yaml:"image_title"`
}

// Validate checks a definition row.
func (d Definition) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("section: empty id")
	}
	if err := horosafe.ValidateIdentifier(d.ID); err != nil {
		return fmt.Errorf("section %q: %w", d.ID, err)
	}
	if d.ID == Unclassified {
		return fmt.Errorf("section %q: id is reserved", d.ID)
	}
	if d.Type != TypeText && d.Type != TypeImage {
		return fmt.Errorf("section %q: type must be text or image, got %q", d.ID, d.Type)
	}
	if n := len(d.Fallback); n != 0 && n != 2 {
		return fmt.Errorf("section %q: fallback must be [first, last]", d.ID)
	}
	if len(d.Fallback) == 2 && (d.Fallback[0] < 1 || d.Fallback[1] < d.Fallback[0]) {
		return fmt.Errorf("section %q: invalid fallback range %v", d.ID, d.Fallback)
	}
	return nil
}

// Section is a detected section with its pages. Immutable after Build.
type Section struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Type       ContentType `json:"type"`
	Strategy   string      `json:"strategy"`
	ImageTitle string      `json:"image_title,omitempty"`
	Headers    []string    `json:"headers,omitempty"`
	Start      int         `json:"start"`
	End        int         `json:"end"`
	Pages      []int       `json:"pages"`
	Detection  Detection   `json:"detection"`
}

// Diagnostic is a non-fatal finding of the builder.
type Diagnostic struct {
	SectionID string `json:"section_id"`
	Page      int    `json:"page,omitempty"`
	Message   string `json:"message"`
}

// Config tunes detection.
type Config struct {
	// MinimalTextChars: pages with fewer meaningful chars are image candidates.
	MinimalTextChars int
	// HeaderWindow: headers count only within the first N runes of a page. 0 = whole page.
	HeaderWindow int
}

// Build assigns every page of pages to exactly one section.
//
// Order of precedence per page: a header-detected range, then the
// minimal-text heuristic (image sections), then the static fallback range
// of an undetected section, then the catch-all section.
func Build(pages []docpipe.Page, defs []Definition, cfg Config) ([]Section, []Diagnostic) {
	total := len(pages)
	owner := make([]int, total+1) // page → def index+1, 0 = unassigned
	detection := make(map[int]Detection)
	var diags []Diagnostic

	found := scanHeaders(pages, defs, cfg.HeaderWindow)
	opens := make(map[int]int, len(found))
	for _, o := range found {
		opens[o.def] = o.page
	}

	// Range boundaries: detected openings and the fallback starts of
	// undetected sections.
	var bounds []int
	for i, d := range defs {
		if p, ok := opens[i]; ok {
			bounds = append(bounds, p)
		} else if len(d.Fallback) == 2 && d.Fallback[0] <= total {
			bounds = append(bounds, d.Fallback[0])
		}
	}
	sort.Ints(bounds)

	// Openings sharing a page: the first header keeps the page, the last
	// one continues on the following pages, any in between own nothing.
	for k := 0; k < len(found); {
		j := k
		for j < len(found) && found[j].page == found[k].page {
			j++
		}
		open := found[k].page
		end := total
		for _, b := range bounds {
			if b > open {
				end = b - 1
				break
			}
		}
		group := found[k:j]
		for g, o := range group {
			first, last := open, end
			switch {
			case len(group) == 1:
			case g == 0:
				last = open
			case g == len(group)-1:
				first = open + 1
			default:
				first, last = 1, 0
			}
			for p := first; p <= last; p++ {
				if owner[p] == 0 {
					owner[p] = o.def + 1
				}
			}
			detection[o.def] = DetectedHeader
			if len(group) > 1 && g > 0 && first > last {
				diags = append(diags, Diagnostic{
					SectionID: defs[o.def].ID,
					Page:      open,
					Message:   fmt.Sprintf("header shares page %d with %s and no page follows it", open, defs[group[0].def].ID),
				})
			}
		}
		k = j
	}

	// Minimal-text pages go to the nearest header-detected image section.
	for p := 1; p <= total; p++ {
		if owner[p] != 0 || pages[p-1].Chars >= cfg.MinimalTextChars {
			continue
		}
		if i := nearestImageSection(p, owner, defs, opens); i >= 0 {
			owner[p] = i + 1
		}
	}

	for i, d := range defs {
		if _, ok := opens[i]; ok {
			continue
		}
		if len(d.Fallback) != 2 {
			diags = append(diags, Diagnostic{SectionID: d.ID, Message: "header not found and no fallback range"})
			continue
		}
		claimed := 0
		for p := d.Fallback[0]; p <= d.Fallback[1] && p <= total; p++ {
			if owner[p] == 0 {
				owner[p] = i + 1
				claimed++
			}
		}
		diags = append(diags, Diagnostic{
			SectionID: d.ID,
			Message:   fmt.Sprintf("header not found, fallback pages %d-%d (%d claimed)", d.Fallback[0], d.Fallback[1], claimed),
		})
		if claimed > 0 {
			detection[i] = DetectedFallback
		}
	}

	byDef := make(map[int][]int)
	var unclassified []int
	for p := 1; p <= total; p++ {
		if owner[p] == 0 {
			unclassified = append(unclassified, p)
			continue
		}
		byDef[owner[p]-1] = append(byDef[owner[p]-1], p)
	}

	var out []Section
	for i, d := range defs {
		ps := byDef[i]
		if len(ps) == 0 {
			continue
		}
		out = append(out, Section{
			ID:         d.ID,
			Name:       d.Name,
			Type:       d.Type,
			Strategy:   d.Strategy,
			ImageTitle: d.ImageTitle,
			Headers:    d.Headers,
			Start:      ps[0],
			End:        ps[len(ps)-1],
			Pages:      ps,
			Detection:  detection[i],
		})
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Start < out[b].Start })

	if len(unclassified) > 0 {
		out = append(out, Section{
			ID:        Unclassified,
			Name:      "Sin clasificar",
			Type:      TypeMixed,
			Strategy:  StrategyCatchAll,
			Start:     unclassified[0],
			End:       unclassified[len(unclassified)-1],
			Pages:     unclassified,
			Detection: DetectedCatchAll,
		})
	}
	return out, diags
}

// maxHeaderLine bounds the length of a line that starts with a header
// keyword; longer lines are prose that happens to begin with the phrase.
const maxHeaderLine = 80

// opening is a header found for definition def on page, pos runes into
// the page.
type opening struct {
	def, page, pos int
}

// scanHeaders returns the first page whose header window holds one of each
// definition's headers, ordered by page and position on the page. Matching
// ignores case and accents. A line counts when it starts with the header
// and is at most maxHeaderLine runes long, or when it is set entirely in
// capitals and contains the header anywhere.
func scanHeaders(pages []docpipe.Page, defs []Definition, window int) []opening {
	folded := make([][]string, len(defs))
	for i, d := range defs {
		for _, h := range d.Headers {
			if f := textnorm.Fold(h); f != "" {
				folded[i] = append(folded[i], f)
			}
		}
	}

	opened := make(map[int]bool)
	var out []opening
	for _, page := range pages {
		text := page.Text
		if window > 0 {
			text = textnorm.Truncate(text, window)
		}

		var hits []opening
		pos := 0
		for _, line := range strings.Split(text, "\n") {
			lineStart := pos
			pos += utf8.RuneCountInString(line) + 1
			fl := strings.TrimSpace(textnorm.Fold(line))
			if fl == "" {
				continue
			}
			caps := textnorm.IsCaps(line, 3)
			for i := range defs {
				if opened[i] {
					continue
				}
				for _, h := range folded[i] {
					if headerLine(fl, h, caps) {
						hits = append(hits, opening{def: i, page: page.Number, pos: lineStart})
						opened[i] = true
						break
					}
				}
			}
		}
		sort.SliceStable(hits, func(a, b int) bool { return hits[a].pos < hits[b].pos })
		out = append(out, hits...)
	}
	return out
}

// headerLine reports whether the folded line carries header h.
func headerLine(line, h string, caps bool) bool {
	if caps && strings.Contains(line, h) {
		return true
	}
	if !strings.HasPrefix(line, h) || utf8.RuneCountInString(line) > maxHeaderLine {
		return false
	}
	rest := line[len(h):]
	if rest == "" {
		return true
	}
	r, _ := utf8.DecodeRuneInString(rest)
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func nearestImageSection(p int, owner []int, defs []Definition, opens map[int]int) int {
	best, bestDist := -1, 0
	for i, d := range defs {
		if d.Type != TypeImage {
			continue
		}
		if _, ok := opens[i]; !ok {
			continue
		}
		first, last := 0, 0
		for q := 1; q < len(owner); q++ {
			if owner[q] == i+1 {
				if first == 0 {
					first = q
				}
				last = q
			}
		}
		if first == 0 {
			continue
		}
		dist := 0
		switch {
		case p < first:
			dist = first - p
		case p > last:
			dist = p - last
		}
		if best < 0 || dist < bestDist {
			best, bestDist = i, dist
		}
	}
	return best
}

// Text concatenates the text of the section's pages, pages separated by a
// blank line. offsets[i] is the byte offset where Pages[i] starts.
func (s Section) Text(pages []docpipe.Page) (text string, offsets []int) {
	var sb strings.Builder
	offsets = make([]int, len(s.Pages))
	for i, n := range s.Pages {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		offsets[i] = sb.Len()
		if n >= 1 && n <= len(pages) {
			sb.WriteString(pages[n-1].Text)
		}
	}
	return sb.String(), offsets
}

// PageAt maps a byte offset of Text back to a page number.
func (s Section) PageAt(offsets []int, off int) int {
	page := 0
	for i, o := range offsets {
		if o > off {
			break
		}
		page = s.Pages[i]
	}
	return page
}
