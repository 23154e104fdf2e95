package docpipe

import "testing"

func TestPrintableRatio_Normal(t *testing.T) {
	// WHAT: Normal text has high printable ratio.
	// WHY: Validates baseline quality scoring.
	ratio := computePrintableRatio("Reforma: el Senado aprueba la reforma judicial en lo general.")
	if ratio < 0.95 {
		t.Errorf("printable ratio = %f, want > 0.95", ratio)
	}
}

func TestPrintableRatio_Garbage(t *testing.T) {
	// WHAT: PUA and control chars produce low printable ratio.
	// WHY: Detects garbled extraction (CIDFont without ToUnicode).
	garbage := "abcdefghi\x01\x02\x03\x04\x05"
	ratio := computePrintableRatio(garbage)
	if ratio >= 0.85 {
		t.Errorf("printable ratio = %f, want < 0.85", ratio)
	}
}

func TestWordlikeRatio_SingleChar(t *testing.T) {
	// WHAT: Single-char tokens produce low wordlike ratio.
	// WHY: Detects broken character-by-character extraction.
	ratio := computeWordlikeRatio("a b c d e f g h i j k l")
	if ratio >= 0.40 {
		t.Errorf("wordlike ratio = %f, want < 0.40", ratio)
	}
}

func TestMeaningfulChars(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"   \n\t ", 0},
		{"Hola mundo", 9},
		{"Opinión�", 7},
		{"a\x01b", 2},
	}
	for _, tt := range tests {
		if got := MeaningfulChars(tt.text); got != tt.want {
			t.Errorf("MeaningfulChars(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestAssessQuality(t *testing.T) {
	// WHAT: Mostly-empty pages with images flag the document for OCR.
	// WHY: Scanned digests have image pages with no text layer.
	pages := []Page{
		{Number: 1, Text: "OCHO COLUMNAS", Chars: 12},
		{Number: 2, HasImages: true},
		{Number: 3, HasImages: true},
	}
	q := assessQuality(pages)
	if q.PageCount != 3 || q.EmptyPages != 2 || q.ImagePages != 2 {
		t.Fatalf("quality = %+v", q)
	}
	if !q.NeedsOCR() {
		t.Error("expected NeedsOCR=true for low chars + images")
	}
}
