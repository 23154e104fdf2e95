// CLAUDE:SUMMARY Article boundary extractor: anchor titles, then caps/byline patterns, then generic paragraphs.
// CLAUDE:DEPENDS internal/sections, internal/textnorm
// CLAUDE:EXPORTS Extractor, Draft, Anchor, Summarize
package articles

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/hazyhaar/sintesis/docpipe"
	"github.com/hazyhaar/sintesis/internal/sections"
	"github.com/hazyhaar/sintesis/internal/textnorm"
)

// Kinds of article.
const (
	KindText        = "text"
	KindImageBacked = "image_backed"
)

// Draft is an extracted article before ids and dates are attached.
type Draft struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	Summary    string `json:"summary"`
	Source     string `json:"source"`
	URL        string `json:"url,omitempty"`
	SectionID  string `json:"section_id"`
	PageNumber int    `json:"page_number,omitempty"`
	Kind       string `json:"kind"`
	Strategy   string `json:"strategy"`
}

// Anchor is a known headline for one issue, loaded from the per-issue manifest.
type Anchor struct {
	Title  string `json:"title" yaml:"title"`
	Source string `json:"source,omitempty" yaml:"source"`
}

// Diagnostic is a recovered boundary problem.
type Diagnostic struct {
	SectionID string `json:"section_id"`
	Page      int    `json:"page,omitempty"`
	Message   string `json:"message"`
}

// Config tunes extraction.
type Config struct {
	MaxTitleLen   int      // longer titles are treated as mis-detected
	MinContentLen int      // pattern fragments shorter than this are noise
	SummaryLen    int      // runes kept by Summarize
	Newspapers    []string // positional source list for the anchors section
}

func (c *Config) defaults() {
	if c.MaxTitleLen <= 0 {
		c.MaxTitleLen = 150
	}
	if c.MinContentLen <= 0 {
		c.MinContentLen = 80
	}
	if c.SummaryLen <= 0 {
		c.SummaryLen = 200
	}
}

// Extractor splits section text into article drafts. Safe for concurrent use.
type Extractor struct {
	cfg    Config
	strict *bluemonday.Policy
}

// New creates an Extractor.
func New(cfg Config) *Extractor {
	cfg.defaults()
	return &Extractor{cfg: cfg, strict: bluemonday.StrictPolicy()}
}

// Summarize derives a summary: the first n runes of content followed by
// "..." when content is longer than n runes, content itself otherwise.
func Summarize(content string, n int) string {
	if utf8.RuneCountInString(content) <= n {
		return content
	}
	return textnorm.Truncate(content, n) + "..."
}

// sectionText is the normalised text of one section with its page offsets.
type sectionText struct {
	sec     sections.Section
	text    string
	offsets []int
	headers []string // folded section headers, stripped from fragments
}

func (st *sectionText) pageAt(off int) int {
	return st.sec.PageAt(st.offsets, off)
}

// Extract runs the strategies for sec in priority order and returns the
// drafts of the first one that succeeds. Zero drafts is a valid result.
func (e *Extractor) Extract(sec sections.Section, pages []docpipe.Page, anchors []Anchor) ([]Draft, []Diagnostic) {
	norm := make([]docpipe.Page, len(pages))
	for i, p := range pages {
		p.Text = textnorm.NormalizeQuotes(p.Text)
		norm[i] = p
	}
	text, offsets := sec.Text(norm)
	st := &sectionText{sec: sec, text: text, offsets: offsets}
	for _, h := range sec.Headers {
		st.headers = append(st.headers, textnorm.Fold(h))
	}

	var diags []Diagnostic
	var drafts []Draft

	if len(anchors) > 0 {
		var found int
		drafts, found = e.byAnchors(st, anchors)
		if found*2 <= len(anchors) {
			diags = append(diags, Diagnostic{
				SectionID: sec.ID,
				Page:      sec.Start,
				Message:   fmt.Sprintf("only %d of %d anchor titles found, falling back to pattern split", found, len(anchors)),
			})
			drafts = nil
		}
	}

	if drafts == nil {
		switch sec.Strategy {
		case sections.StrategyByline:
			drafts = e.byByline(st)
		case sections.StrategyCaps, sections.StrategyAnchors:
			drafts = e.byCaps(st)
		}
		if drafts == nil && sec.Strategy != sections.StrategyGeneric && strings.TrimSpace(text) != "" {
			diags = append(diags, Diagnostic{
				SectionID: sec.ID,
				Page:      sec.Start,
				Message:   fmt.Sprintf("%s pattern found no article, falling back to paragraph split", patternName(sec.Strategy)),
			})
		}
	}

	if drafts == nil {
		drafts = e.byParagraphs(st)
	}

	out := drafts[:0]
	for _, d := range drafts {
		if d, ok := e.finalize(d, sec); ok {
			out = append(out, d)
		}
	}
	e.assignSources(out, sec)
	return out, diags
}

func patternName(strategy string) string {
	switch strategy {
	case sections.StrategyByline:
		return "byline"
	case sections.StrategyCaps, sections.StrategyAnchors:
		return "caps headline"
	}
	return strategy
}

// PageDraft turns one catch-all page into an article: first line as
// title, whole page as content. ok is false for pages without text.
func (e *Extractor) PageDraft(sec sections.Section, page docpipe.Page) (Draft, bool) {
	text := strings.TrimSpace(textnorm.NormalizeQuotes(page.Text))
	if text == "" {
		return Draft{}, false
	}
	d := Draft{
		Title:      textnorm.FirstLine(text),
		Content:    text,
		SectionID:  sec.ID,
		PageNumber: page.Number,
		Strategy:   sections.StrategyCatchAll,
	}
	d, ok := e.finalize(d, sec)
	if ok && d.Source == "" {
		d.Source = sec.Name
	}
	return d, ok
}

// finalize sanitises a draft, caps its title and derives the summary.
// Drafts without both a title and a content are dropped.
func (e *Extractor) finalize(d Draft, sec sections.Section) (Draft, bool) {
	d.Title = textnorm.CollapseSpace(e.sanitize(d.Title))
	d.Content = strings.TrimSpace(e.sanitize(d.Content))
	if d.Title == "" || d.Content == "" {
		return d, false
	}
	if utf8.RuneCountInString(d.Title) > e.cfg.MaxTitleLen {
		// Mis-detected boundary: keep the whole fragment as content.
		whole := d.Title + "\n" + d.Content
		if strings.HasPrefix(d.Content, d.Title) {
			whole = d.Content
		}
		d.Content = whole
		d.Title = textnorm.Truncate(d.Title, e.cfg.MaxTitleLen-1) + "…"
	}
	d.SectionID = sec.ID
	if d.Kind == "" {
		d.Kind = KindText
	}
	d.Summary = Summarize(d.Content, e.cfg.SummaryLen)
	return d, true
}

// sanitize strips any markup the text layer carried; the reader app
// renders stored text as HTML.
func (e *Extractor) sanitize(s string) string {
	if !strings.ContainsAny(s, "<>&") {
		return s
	}
	return html.UnescapeString(e.strict.Sanitize(s))
}

// assignSources fills Source: anchor or byline value first, then the
// positional newspaper list for drafts found by anchor titles, then a
// newspaper named on the first or last line, then the section name.
func (e *Extractor) assignSources(drafts []Draft, sec sections.Section) {
	for i := range drafts {
		d := &drafts[i]
		if d.Source != "" {
			continue
		}
		if d.Strategy == sections.StrategyAnchors && i < len(e.cfg.Newspapers) {
			d.Source = e.cfg.Newspapers[i]
			continue
		}
		if name := e.namedNewspaper(d); name != "" {
			d.Source = name
			continue
		}
		d.Source = sec.Name
	}
}

// namedNewspaper returns the newspaper whose name is the whole first or
// last line of the draft (e.g. a "Reforma" credit line), or "".
func (e *Extractor) namedNewspaper(d *Draft) string {
	lines := strings.Split(d.Content, "\n")
	candidates := []string{d.Title, lines[0], lines[len(lines)-1]}
	for _, c := range candidates {
		c = strings.Trim(strings.TrimSpace(c), "()[]-:. ")
		if utf8.RuneCountInString(c) > 40 {
			continue
		}
		key := textnorm.Key(c)
		for _, n := range e.cfg.Newspapers {
			if key != "" && key == textnorm.Key(n) {
				return n
			}
		}
	}
	return ""
}

// isHeaderLine reports whether line is one of the section's own headers.
func (st *sectionText) isHeaderLine(line string) bool {
	f := textnorm.Fold(line)
	if f == "" {
		return false
	}
	for _, h := range st.headers {
		if f == h {
			return true
		}
	}
	return false
}
