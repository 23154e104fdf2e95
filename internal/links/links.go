// CLAUDE:SUMMARY Link correlator: i-th link annotation to i-th article, regex URL from body as fallback.
// CLAUDE:DEPENDS docpipe, internal/articles, internal/sections
package links

import (
	"regexp"
	"strings"

	"github.com/hazyhaar/sintesis/docpipe"
	"github.com/hazyhaar/sintesis/internal/articles"
	"github.com/hazyhaar/sintesis/internal/sections"
)

// Stats counts how URLs were assigned for one section.
type Stats struct {
	Annotations int `json:"annotations"` // link annotations available
	FromLinks   int `json:"from_links"`
	FromText    int `json:"from_text"`
	Missing     int `json:"missing"`
}

// SectionLinks returns the link annotations on the section's pages, in
// document order.
func SectionLinks(sec sections.Section, pages []docpipe.Page) []docpipe.Link {
	var out []docpipe.Link
	for _, n := range sec.Pages {
		if n < 1 || n > len(pages) {
			continue
		}
		out = append(out, pages[n-1].Links...)
	}
	return out
}

// Correlate sets URL on drafts in place. Annotations are consumed in
// document order, the i-th going to the i-th draft. A draft with no
// annotation at its ordinal gets the first URL found in its own text.
// A draft that already has a URL keeps it. Duplicates across drafts are
// allowed.
func Correlate(drafts []articles.Draft, annots []docpipe.Link) Stats {
	st := Stats{Annotations: len(annots)}
	for i := range drafts {
		d := &drafts[i]
		if d.URL != "" {
			continue
		}
		if i < len(annots) && annots[i].URI != "" {
			d.URL = annots[i].URI
			st.FromLinks++
			continue
		}
		if u := FirstURL(d.Content); u != "" {
			d.URL = u
			st.FromText++
			continue
		}
		if u := FirstURL(d.Title); u != "" {
			d.URL = u
			st.FromText++
			continue
		}
		st.Missing++
	}
	return st
}

var urlRe = regexp.MustCompile(`https?://\S+`)

// FirstURL returns the first http(s) URL in text with trailing
// punctuation removed, or "".
func FirstURL(text string) string {
	for _, m := range urlRe.FindAllString(text, -1) {
		m = strings.TrimRight(m, `.,;:!?)]}>"'»”`)
		if len(m) > len("https://") {
			return m
		}
	}
	return ""
}
