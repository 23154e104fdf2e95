package links

import (
	"testing"

	"github.com/hazyhaar/sintesis/docpipe"
	"github.com/hazyhaar/sintesis/internal/articles"
	"github.com/hazyhaar/sintesis/internal/sections"
)

func TestCorrelate_Positional(t *testing.T) {
	// WHAT: i-th annotation → i-th article; body regex only past the last annotation.
	// WHY: the text layer rarely carries the URL next to the right article.
	drafts := []articles.Draft{
		{Title: "uno", Content: "ver https://texto.example/uno"},
		{Title: "dos", Content: "sin enlace"},
		{Title: "tres", Content: "fuente: https://texto.example/tres."},
		{Title: "cuatro", Content: "nada"},
	}
	annots := []docpipe.Link{
		{Page: 1, URI: "https://a.example/1"},
		{Page: 1, URI: "https://a.example/2"},
	}
	st := Correlate(drafts, annots)

	want := []string{"https://a.example/1", "https://a.example/2", "https://texto.example/tres", ""}
	for i, w := range want {
		if drafts[i].URL != w {
			t.Errorf("draft %d url = %q, want %q", i, drafts[i].URL, w)
		}
	}
	if st.FromLinks != 2 || st.FromText != 1 || st.Missing != 1 || st.Annotations != 2 {
		t.Errorf("stats = %+v", st)
	}
}

func TestCorrelate_KeepsExistingAndAllowsDuplicates(t *testing.T) {
	drafts := []articles.Draft{
		{Title: "a", Content: "x", URL: "https://fijo.example"},
		{Title: "b", Content: "https://dup.example"},
		{Title: "c", Content: "https://dup.example"},
	}
	Correlate(drafts, nil)
	if drafts[0].URL != "https://fijo.example" {
		t.Errorf("existing url overwritten: %q", drafts[0].URL)
	}
	if drafts[1].URL != "https://dup.example" || drafts[2].URL != "https://dup.example" {
		t.Errorf("duplicates must be allowed: %q %q", drafts[1].URL, drafts[2].URL)
	}
}

func TestFirstURL(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", ""},
		{"(https://x.example/a?b=1).", "https://x.example/a?b=1"},
		{"http:// roto y luego http://ok.example", "http://ok.example"},
		{"«https://y.example/nota»", "https://y.example/nota"},
	}
	for _, tt := range tests {
		if got := FirstURL(tt.in); got != tt.want {
			t.Errorf("FirstURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSectionLinks(t *testing.T) {
	pages := []docpipe.Page{
		{Number: 1, Links: []docpipe.Link{{Page: 1, URI: "https://p1"}}},
		{Number: 2, Links: []docpipe.Link{{Page: 2, URI: "https://p2a"}, {Page: 2, URI: "https://p2b"}}},
		{Number: 3, Links: []docpipe.Link{{Page: 3, URI: "https://p3"}}},
	}
	got := SectionLinks(sections.Section{Pages: []int{2, 3}}, pages)
	if len(got) != 3 || got[0].URI != "https://p2a" || got[2].URI != "https://p3" {
		t.Fatalf("links = %+v", got)
	}
}
