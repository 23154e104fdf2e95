package articles

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/hazyhaar/sintesis/docpipe"
	"github.com/hazyhaar/sintesis/internal/sections"
)

var newspapers = []string{"El Universal", "Reforma", "Milenio", "La Jornada"}

// prose returns n bytes of lower-case filler text.
func prose(n int) string {
	s := strings.Repeat("el gobierno federal anuncio nuevas medidas para la economia ", n/40+2)
	return strings.TrimSpace(s[:n])
}

func mkPages(texts ...string) []docpipe.Page {
	pages := make([]docpipe.Page, len(texts))
	for i, t := range texts {
		pages[i] = docpipe.Page{Number: i + 1, Text: t, Chars: docpipe.MeaningfulChars(t)}
	}
	return pages
}

func section(id, strategy string, pages ...int) sections.Section {
	return sections.Section{
		ID:       id,
		Name:     "Sección " + id,
		Type:     sections.TypeText,
		Strategy: strategy,
		Headers:  []string{"OCHO COLUMNAS"},
		Start:    pages[0],
		End:      pages[len(pages)-1],
		Pages:    pages,
	}
}

func newExtractor() *Extractor {
	return New(Config{Newspapers: newspapers})
}

func TestExtract_ScenarioAnchors(t *testing.T) {
	// WHAT: two known titles over three pages yield exactly two articles,
	// each running to the next title's start.
	// WHY: anchor-then-bound is the primary strategy for the front digest.
	pages := mkPages(
		"OCHO COLUMNAS\nEXAMPLE HEADLINE ONE\n"+prose(250),
		prose(150)+"\nEXAMPLE HEADLINE TWO\n"+prose(300),
		"",
	)
	sec := section("ocho-columnas", sections.StrategyAnchors, 1, 2, 3)
	anchors := []Anchor{{Title: "EXAMPLE HEADLINE ONE"}, {Title: "EXAMPLE HEADLINE TWO"}}

	drafts, diags := newExtractor().Extract(sec, pages, anchors)
	if len(diags) != 0 {
		t.Fatalf("diags = %v", diags)
	}
	if len(drafts) != 2 {
		t.Fatalf("drafts = %d, want 2", len(drafts))
	}
	if drafts[0].Title != "EXAMPLE HEADLINE ONE" || drafts[1].Title != "EXAMPLE HEADLINE TWO" {
		t.Fatalf("titles = %q, %q", drafts[0].Title, drafts[1].Title)
	}
	if strings.Contains(drafts[0].Content, "EXAMPLE HEADLINE TWO") {
		t.Error("first article must stop at the second title")
	}
	if n := utf8.RuneCountInString(drafts[0].Content); n < 390 || n > 410 {
		t.Errorf("first content = %d runes, want ~400", n)
	}
	if drafts[0].PageNumber != 1 || drafts[1].PageNumber != 2 {
		t.Errorf("pages = %d, %d", drafts[0].PageNumber, drafts[1].PageNumber)
	}
	if drafts[0].Source != "El Universal" || drafts[1].Source != "Reforma" {
		t.Errorf("sources = %q, %q (positional)", drafts[0].Source, drafts[1].Source)
	}
	for _, d := range drafts {
		if d.Strategy != sections.StrategyAnchors || d.Kind != KindText {
			t.Errorf("draft %q strategy=%s kind=%s", d.Title, d.Strategy, d.Kind)
		}
	}
}

func TestExtract_AnchorSourceOverridesPosition(t *testing.T) {
	pages := mkPages("PRIMER TITULO\n" + prose(120) + "\nSEGUNDO TITULO\n" + prose(120))
	sec := section("ocho-columnas", sections.StrategyAnchors, 1)
	drafts, _ := newExtractor().Extract(sec, pages, []Anchor{
		{Title: "PRIMER TITULO", Source: "La Razón"},
		{Title: "SEGUNDO TITULO"},
	})
	if len(drafts) != 2 || drafts[0].Source != "La Razón" || drafts[1].Source != "Reforma" {
		t.Fatalf("drafts = %+v", drafts)
	}
}

func TestExtract_TypographicQuotes(t *testing.T) {
	// WHAT: anchors match regardless of typographic vs straight quotes and line wraps.
	pages := mkPages("Senado aprueba “plan B”\nen lo general\n" + prose(200))
	sec := section("ocho-columnas", sections.StrategyAnchors, 1)
	drafts, diags := newExtractor().Extract(sec, pages, []Anchor{{Title: `Senado aprueba "plan B" en lo general`}})
	if len(diags) != 0 || len(drafts) != 1 {
		t.Fatalf("drafts=%d diags=%v", len(drafts), diags)
	}
	if !strings.HasPrefix(drafts[0].Content, "el gobierno") {
		t.Errorf("content = %q", drafts[0].Content[:30])
	}
}

func TestExtract_AnchorMinorityFallsThrough(t *testing.T) {
	// WHAT: fewer than a majority of anchors found → caps split + diagnostic.
	// WHY: a stale manifest must not produce a single giant article.
	pages := mkPages("EL SENADO APRUEBA LA REFORMA\n" + prose(200) + "\nHACIENDA RECORTA EL GASTO\n" + prose(200))
	sec := section("ocho-columnas", sections.StrategyAnchors, 1)
	drafts, diags := newExtractor().Extract(sec, pages, []Anchor{
		{Title: "EL SENADO APRUEBA LA REFORMA"},
		{Title: "NO ESTA EN EL TEXTO"},
		{Title: "TAMPOCO ESTE"},
	})
	if len(diags) != 1 || !strings.Contains(diags[0].Message, "1 of 3") {
		t.Fatalf("diags = %v", diags)
	}
	if len(drafts) != 2 || drafts[1].Title != "HACIENDA RECORTA EL GASTO" {
		t.Fatalf("drafts = %+v", drafts)
	}
	if drafts[0].Strategy != sections.StrategyCaps {
		t.Errorf("strategy = %s", drafts[0].Strategy)
	}
}

func TestExtract_FallbackOutputNotPositional(t *testing.T) {
	// WHAT: caps output of the digest section keeps the section name or a
	// newspaper named in its own text, never a newspaper by position.
	// WHY: positional names only hold for the anchored layout; a guessed
	// source would later attract front-page links.
	pages := mkPages("EL SENADO APRUEBA LA REFORMA\n" + prose(200) + "\nMilenio\n\nHACIENDA RECORTA EL GASTO\n" + prose(200))
	sec := section("ocho-columnas", sections.StrategyAnchors, 1)
	drafts, _ := newExtractor().Extract(sec, pages, nil)
	if len(drafts) != 2 {
		t.Fatalf("drafts = %+v", drafts)
	}
	if drafts[0].Strategy != sections.StrategyCaps || drafts[0].Source != "Milenio" {
		t.Errorf("draft 0 strategy=%s source=%q, want caps / Milenio", drafts[0].Strategy, drafts[0].Source)
	}
	if drafts[1].Source != sec.Name {
		t.Errorf("draft 1 source = %q, want %q", drafts[1].Source, sec.Name)
	}
}

func TestExtract_CapsDropsShortFragments(t *testing.T) {
	pages := mkPages(
		"OCHO COLUMNAS\nFOLIO DE PAGINA UNO\ncorto\nLA CORTE INVALIDA EL DECRETO\n" + prose(150),
	)
	sec := section("scjn", sections.StrategyCaps, 1)
	drafts, diags := newExtractor().Extract(sec, pages, nil)
	if len(diags) != 0 {
		t.Fatalf("diags = %v", diags)
	}
	if len(drafts) != 1 || drafts[0].Title != "LA CORTE INVALIDA EL DECRETO" {
		t.Fatalf("drafts = %+v", drafts)
	}
	if drafts[0].Source != "Sección scjn" {
		t.Errorf("source = %q, want section name", drafts[0].Source)
	}
}

func TestExtract_Byline(t *testing.T) {
	pages := mkPages(
		"Salvador García Soto: Serpientes y escaleras\n" + prose(120) + "\n" +
			"Francisco Garfias:\nArsenal\n" + prose(120),
	)
	sec := section("columnas-politicas", sections.StrategyByline, 1)
	drafts, _ := newExtractor().Extract(sec, pages, nil)
	if len(drafts) != 2 {
		t.Fatalf("drafts = %+v", drafts)
	}
	if drafts[0].Source != "Salvador García Soto" || drafts[0].Title != "Serpientes y escaleras" {
		t.Errorf("first = %q by %q", drafts[0].Title, drafts[0].Source)
	}
	if drafts[1].Source != "Francisco Garfias" || drafts[1].Title != "Arsenal" {
		t.Errorf("second = %q by %q", drafts[1].Title, drafts[1].Source)
	}
}

func TestExtract_GenericParagraphs(t *testing.T) {
	pages := mkPages(
		"Inflación se modera en mayo\n" + prose(100) + "\n\n" +
			"El banco central mantuvo la tasa. " + prose(80) + "\n\n" +
			"12",
	)
	sec := section("informacion-general", sections.StrategyGeneric, 1)
	drafts, diags := newExtractor().Extract(sec, pages, nil)
	if len(diags) != 0 {
		t.Fatalf("diags = %v", diags)
	}
	if len(drafts) != 2 {
		t.Fatalf("drafts = %d, want 2 (folio dropped)", len(drafts))
	}
	if drafts[0].Title != "Inflación se modera en mayo" {
		t.Errorf("title 0 = %q", drafts[0].Title)
	}
	if drafts[1].Title != "El banco central mantuvo la tasa." {
		t.Errorf("title 1 = %q", drafts[1].Title)
	}
	if !strings.HasPrefix(drafts[1].Content, "el gobierno") {
		t.Errorf("content 1 = %q", drafts[1].Content)
	}
}

func TestExtract_PatternFallsToGeneric(t *testing.T) {
	pages := mkPages("Sin titulares en mayusculas aqui\n" + prose(100))
	sec := section("scjn", sections.StrategyCaps, 1)
	drafts, diags := newExtractor().Extract(sec, pages, nil)
	if len(diags) != 1 {
		t.Fatalf("diags = %v", diags)
	}
	if len(drafts) != 1 || drafts[0].Strategy != sections.StrategyGeneric {
		t.Fatalf("drafts = %+v", drafts)
	}
}

func TestExtract_EmptySection(t *testing.T) {
	// WHAT: an empty section yields zero drafts and no diagnostic.
	drafts, diags := newExtractor().Extract(section("x", sections.StrategyCaps, 1), mkPages(""), nil)
	if len(drafts) != 0 || len(diags) != 0 {
		t.Fatalf("drafts=%v diags=%v", drafts, diags)
	}
}

func TestFinalize_TitleCap(t *testing.T) {
	// WHAT: an over-long title is a mis-detection: the whole fragment
	// becomes content and the title is a truncated placeholder.
	e := New(Config{MaxTitleLen: 20})
	long := "Este titulo es demasiado largo para ser un titular real"
	d, ok := e.finalize(Draft{Title: long, Content: "cuerpo"}, section("x", "", 1))
	if !ok {
		t.Fatal("dropped")
	}
	if utf8.RuneCountInString(d.Title) != 20 || !strings.HasSuffix(d.Title, "…") {
		t.Errorf("title = %q", d.Title)
	}
	if !strings.HasPrefix(d.Content, long) || !strings.HasSuffix(d.Content, "cuerpo") {
		t.Errorf("content = %q", d.Content)
	}
}

func TestFinalize_RequiresTitleAndContent(t *testing.T) {
	e := newExtractor()
	if _, ok := e.finalize(Draft{Title: "x"}, section("x", "", 1)); ok {
		t.Error("draft without content kept")
	}
	if _, ok := e.finalize(Draft{Content: "x"}, section("x", "", 1)); ok {
		t.Error("draft without title kept")
	}
}

func TestFinalize_StripsMarkup(t *testing.T) {
	d, ok := newExtractor().finalize(Draft{Title: "<b>Hola</b>", Content: "Uno & dos <script>x()</script>"}, section("x", "", 1))
	if !ok {
		t.Fatal("dropped")
	}
	if d.Title != "Hola" {
		t.Errorf("title = %q", d.Title)
	}
	if strings.Contains(d.Content, "<") || !strings.Contains(d.Content, "Uno & dos") {
		t.Errorf("content = %q", d.Content)
	}
}

func TestSummarize(t *testing.T) {
	// WHAT: summary is content when ≤ n runes, else n runes + "...".
	short := strings.Repeat("á", 200)
	if got := Summarize(short, 200); got != short {
		t.Error("200-rune content must be its own summary")
	}
	long := strings.Repeat("é", 201)
	got := Summarize(long, 200)
	if got != strings.Repeat("é", 200)+"..." {
		t.Errorf("summary = %d runes", utf8.RuneCountInString(got))
	}
}

func TestNamedNewspaperSource(t *testing.T) {
	pages := mkPages("EL PESO SE APRECIA FRENTE AL DOLAR\n" + prose(120) + "\nMilenio")
	drafts, _ := newExtractor().Extract(section("scjn", sections.StrategyCaps, 1), pages, nil)
	if len(drafts) != 1 || drafts[0].Source != "Milenio" {
		t.Fatalf("drafts = %+v", drafts)
	}
}

func TestPageDraft(t *testing.T) {
	e := newExtractor()
	sec := sections.Section{ID: sections.Unclassified, Name: "Sin clasificar", Pages: []int{7}}
	d, ok := e.PageDraft(sec, docpipe.Page{Number: 7, Text: "Aviso\n" + prose(50)})
	if !ok || d.Title != "Aviso" || d.PageNumber != 7 || d.Source != "Sin clasificar" {
		t.Fatalf("draft = %+v ok=%v", d, ok)
	}
	if _, ok := e.PageDraft(sec, docpipe.Page{Number: 8}); ok {
		t.Fatal("empty page produced an article")
	}
}
