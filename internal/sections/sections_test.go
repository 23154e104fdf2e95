package sections

import (
	"reflect"
	"strings"
	"testing"

	"github.com/hazyhaar/sintesis/docpipe"
)

func testDefs() []Definition {
	return []Definition{
		{ID: "ocho-columnas", Name: "Ocho Columnas", Type: TypeText, Headers: []string{"OCHO COLUMNAS"}, Fallback: []int{1, 2}, Strategy: StrategyCaps},
		{ID: "primeras-planas", Name: "Primeras Planas", Type: TypeImage, Headers: []string{"PRIMERAS PLANAS"}, Fallback: []int{3, 4}, Strategy: StrategyFrontPages},
		{ID: "opinion", Name: "Artículos de Opinión", Type: TypeImage, Headers: []string{"ARTÍCULOS DE OPINIÓN"}, Fallback: []int{5, 6}, Strategy: StrategySequential},
		{ID: "general", Name: "Información General", Type: TypeText, Headers: []string{"INFORMACIÓN GENERAL"}, Strategy: StrategyGeneric},
	}
}

func mkPages(texts ...string) []docpipe.Page {
	pages := make([]docpipe.Page, len(texts))
	for i, t := range texts {
		pages[i] = docpipe.Page{Number: i + 1, Text: t, Chars: docpipe.MeaningfulChars(t)}
	}
	return pages
}

var longBody = strings.Repeat("Texto del cuerpo de la nota con suficiente contenido. ", 10)

func byID(secs []Section) map[string]Section {
	m := make(map[string]Section)
	for _, s := range secs {
		m[s.ID] = s
	}
	return m
}

// assertPartition checks every page lands in exactly one section.
func assertPartition(t *testing.T, secs []Section, total int) {
	t.Helper()
	seen := make(map[int]string)
	for _, s := range secs {
		for _, p := range s.Pages {
			if prev, dup := seen[p]; dup {
				t.Fatalf("page %d in both %s and %s", p, prev, s.ID)
			}
			seen[p] = s.ID
		}
	}
	if len(seen) != total {
		t.Fatalf("assigned %d pages, want %d", len(seen), total)
	}
}

func TestBuild_HeaderRanges(t *testing.T) {
	// WHAT: a detected header opens a range that closes at the next opening.
	// WHY: digests shift by a page or two daily; headers beat the fixed table.
	pages := mkPages(
		"SÍNTESIS\nOCHO COLUMNAS\n"+longBody,
		longBody,
		longBody,
		"PRIMERAS PLANAS\n",
		"",
		"",
		"ARTÍCULOS DE OPINIÓN",
		"",
	)
	secs, _ := Build(pages, testDefs(), Config{MinimalTextChars: 300, HeaderWindow: 400})
	assertPartition(t, secs, 8)
	m := byID(secs)

	if got := m["ocho-columnas"]; got.Start != 1 || got.End != 3 || got.Detection != DetectedHeader {
		t.Errorf("ocho-columnas = %d-%d (%s), want 1-3 header", got.Start, got.End, got.Detection)
	}
	if got := m["primeras-planas"]; got.Start != 4 || got.End != 6 {
		t.Errorf("primeras-planas = %d-%d, want 4-6", got.Start, got.End)
	}
	if got := m["opinion"]; got.Start != 7 || got.End != 8 {
		t.Errorf("opinion = %d-%d, want 7-8", got.Start, got.End)
	}
	if _, ok := m[Unclassified]; ok {
		t.Error("no page should be unclassified")
	}
}

func TestBuild_FallbackWhenNoHeaders(t *testing.T) {
	// WHAT: zero detections falls back to the static table; leftover pages
	// and sections without a fallback end in the catch-all section.
	// WHY: no page may silently disappear.
	pages := mkPages(longBody, longBody, "", "", "", "", longBody, longBody)
	secs, diags := Build(pages, testDefs(), Config{MinimalTextChars: 300})
	assertPartition(t, secs, 8)
	m := byID(secs)

	if got := m["ocho-columnas"]; got.Start != 1 || got.End != 2 || got.Detection != DetectedFallback {
		t.Errorf("ocho-columnas = %+v", got)
	}
	if got := m["opinion"]; got.Start != 5 || got.End != 6 {
		t.Errorf("opinion = %+v", got)
	}
	if got := m[Unclassified]; len(got.Pages) != 2 || got.Pages[0] != 7 || got.Type != TypeMixed {
		t.Errorf("unclassified = %+v", got)
	}
	if _, ok := m["general"]; ok {
		t.Error("general has no header and no fallback; it must not appear")
	}
	if len(diags) != 4 {
		t.Errorf("diagnostics = %d, want one per undetected section", len(diags))
	}
}

func TestBuild_HeaderOutsideWindow(t *testing.T) {
	pages := mkPages(strings.Repeat("x", 500) + "\nOCHO COLUMNAS")
	secs, _ := Build(pages, testDefs(), Config{HeaderWindow: 400})
	if byID(secs)["ocho-columnas"].Detection == DetectedHeader {
		t.Fatal("header beyond the window must not count")
	}
	secs, _ = Build(pages, testDefs(), Config{HeaderWindow: 0})
	if byID(secs)["ocho-columnas"].Detection != DetectedHeader {
		t.Fatal("window 0 scans the whole page")
	}
}

func TestBuild_ProseDoesNotOpen(t *testing.T) {
	// WHAT: a header phrase inside prose, or opening a long prose line, is
	// not a header.
	pages := mkPages(
		"La sección de información general del diario",
		"Información general: "+longBody,
	)
	secs, _ := Build(pages, testDefs(), Config{})
	if _, ok := byID(secs)["general"]; ok {
		t.Fatal("prose mention opened a section")
	}
}

func TestBuild_TitleCaseHeaders(t *testing.T) {
	// WHAT: headers match whatever their case and accents.
	// WHY: some issues print section titles in title case.
	defs := []Definition{
		{ID: "ocho-columnas", Name: "Ocho Columnas", Type: TypeText, Headers: []string{"OCHO COLUMNAS"}, Strategy: StrategyCaps},
		{ID: "cartones", Name: "Cartones", Type: TypeImage, Headers: []string{"CARTONES"}, Strategy: StrategySequential},
		{ID: "opinion", Name: "Opinión", Type: TypeImage, Headers: []string{"ARTÍCULOS DE OPINIÓN"}, Strategy: StrategySequential},
	}
	pages := mkPages(
		"Ocho Columnas\n"+longBody,
		longBody,
		"  Cartones  \n",
		"Articulos de opinion:",
	)
	secs, _ := Build(pages, defs, Config{HeaderWindow: 400})
	assertPartition(t, secs, 4)
	m := byID(secs)
	if got := m["ocho-columnas"]; got.Detection != DetectedHeader || !reflect.DeepEqual(got.Pages, []int{1, 2}) {
		t.Errorf("ocho-columnas = %+v", got)
	}
	if got := m["cartones"]; got.Detection != DetectedHeader || !reflect.DeepEqual(got.Pages, []int{3}) {
		t.Errorf("cartones = %+v", got)
	}
	if got := m["opinion"]; got.Detection != DetectedHeader || !reflect.DeepEqual(got.Pages, []int{4}) {
		t.Errorf("opinion = %+v", got)
	}
	if _, ok := m[Unclassified]; ok {
		t.Error("no page should be unclassified")
	}
}

func TestBuild_MinimalTextHeuristic(t *testing.T) {
	// WHAT: a low-text page before any header goes to the nearest detected
	// image section instead of its text fallback range.
	defs := []Definition{
		{ID: "texto", Name: "Texto", Type: TypeText, Headers: []string{"TEXTO"}, Fallback: []int{1, 1}},
		{ID: "cartones", Name: "Cartones", Type: TypeImage, Headers: []string{"CARTONES"}},
	}
	pages := mkPages("", "CARTONES", "")
	secs, _ := Build(pages, defs, Config{MinimalTextChars: 300})
	assertPartition(t, secs, 3)
	m := byID(secs)
	if got := m["cartones"]; len(got.Pages) != 3 {
		t.Fatalf("cartones pages = %v, want [1 2 3]", got.Pages)
	}
	if _, ok := m["texto"]; ok {
		t.Fatal("texto should have lost its only page")
	}
}

func TestBuild_HeadersSharingPage(t *testing.T) {
	// WHAT: two headers on one page both open there; the first keeps the
	// page and the second continues on the following pages.
	// WHY: a short section can end on the page where the next one starts.
	pages := mkPages(
		"PRIMERAS PLANAS\n\nOCHO COLUMNAS\n"+longBody,
		longBody,
		longBody,
		"ARTÍCULOS DE OPINIÓN",
	)
	secs, diags := Build(pages, testDefs(), Config{})
	assertPartition(t, secs, 4)
	m := byID(secs)
	if got := m["primeras-planas"]; !reflect.DeepEqual(got.Pages, []int{1}) {
		t.Errorf("primeras-planas = %v, want [1]", got.Pages)
	}
	if got := m["ocho-columnas"]; got.Detection != DetectedHeader || !reflect.DeepEqual(got.Pages, []int{2, 3}) {
		t.Errorf("ocho-columnas = %+v, want header pages [2 3]", got)
	}
	if got := m["opinion"]; !reflect.DeepEqual(got.Pages, []int{4}) {
		t.Errorf("opinion = %v, want [4]", got.Pages)
	}
	for _, d := range diags {
		if d.SectionID == "ocho-columnas" {
			t.Errorf("unexpected diagnostic %+v", d)
		}
	}
}

func TestBuild_SharedLastPage(t *testing.T) {
	// WHAT: a second header on the last page has nothing to continue on;
	// it is reported, and the page stays with the first header.
	pages := mkPages(longBody, "OCHO COLUMNAS\nPRIMERAS PLANAS")
	defs := testDefs()[:2]
	defs[0].Fallback, defs[1].Fallback = nil, nil
	secs, diags := Build(pages, defs, Config{})
	assertPartition(t, secs, 2)
	m := byID(secs)
	if got := m["ocho-columnas"]; !reflect.DeepEqual(got.Pages, []int{2}) {
		t.Errorf("ocho-columnas = %v, want [2]", got.Pages)
	}
	if _, ok := m["primeras-planas"]; ok {
		t.Error("primeras-planas has no page of its own")
	}
	found := false
	for _, d := range diags {
		found = found || (d.SectionID == "primeras-planas" && d.Page == 2)
	}
	if !found {
		t.Errorf("diagnostics = %+v", diags)
	}
}

func TestSectionText(t *testing.T) {
	pages := mkPages("uno", "dos", "tres")
	s := Section{Pages: []int{2, 3}}
	text, offs := s.Text(pages)
	if text != "dos\n\ntres" {
		t.Fatalf("text = %q", text)
	}
	if s.PageAt(offs, 0) != 2 || s.PageAt(offs, strings.Index(text, "tres")) != 3 {
		t.Fatalf("offsets = %v", offs)
	}
}

func TestDefinitionValidate(t *testing.T) {
	bad := []Definition{
		{},
		{ID: Unclassified, Type: TypeText},
		{ID: "../cartones", Type: TypeImage},
		{ID: "x", Type: "video"},
		{ID: "x", Type: TypeText, Fallback: []int{3}},
		{ID: "x", Type: TypeText, Fallback: []int{5, 2}},
	}
	for _, d := range bad {
		if d.Validate() == nil {
			t.Errorf("Validate(%+v) = nil, want error", d)
		}
	}
	for _, d := range testDefs() {
		if err := d.Validate(); err != nil {
			t.Errorf("Validate(%s): %v", d.ID, err)
		}
	}
}
