// CLAUDE:SUMMARY Page, Link, Document and failure types produced by the page reader.
package docpipe

import (
	"errors"
	"fmt"
)

// Raster engines.
const (
	EnginePoppler = "poppler"
	EngineFitz    = "fitz"
)

var (
	// ErrSourceUnreadable is returned when the input file is missing or not a regular file.
	ErrSourceUnreadable = errors.New("docpipe: source unreadable")

	// ErrNotPDF is returned when pdfcpu cannot parse or validate the file.
	ErrNotPDF = errors.New("docpipe: not a valid PDF")

	// ErrToolUnavailable is returned when an external binary is not on PATH.
	ErrToolUnavailable = errors.New("docpipe: tool unavailable")

	// ErrToolTimeout is returned when an external binary exceeds its timeout (after the retry).
	ErrToolTimeout = errors.New("docpipe: tool timeout")
)

// Link is a URI hyperlink annotation found on a page.
type Link struct {
	Page int     `json:"page"`
	URI  string  `json:"uri"`
	X    float64 `json:"x"` // lower-left corner of the annotation rect
	Y    float64 `json:"y"`
}

// Page is one page of the source PDF. Read-only once returned.
type Page struct {
	Number    int    `json:"number"` // 1-based
	Text      string `json:"text"`
	Chars     int    `json:"chars"` // meaningful characters, see MeaningfulChars
	HasImages bool   `json:"has_images"`
	// ImageNames are the page's image XObject resource names.
	ImageNames []string `json:"image_names,omitempty"`
	Links      []Link   `json:"links,omitempty"`
}

// PageFailure records a per-page extraction failure that did not abort the read.
type PageFailure struct {
	Page int    `json:"page"`
	Tool string `json:"tool"`
	Err  error  `json:"-"`
}

func (f PageFailure) Error() string {
	return fmt.Sprintf("page %d (%s): %v", f.Page, f.Tool, f.Err)
}

// Document is the result of reading a PDF.
type Document struct {
	Path       string             `json:"path"`
	TotalPages int                `json:"total_pages"`
	Pages      []Page             `json:"pages"`
	Quality    *ExtractionQuality `json:"quality,omitempty"`
	Failures   []PageFailure      `json:"-"`
}

// Page returns page n (1-based) or nil.
func (d *Document) Page(n int) *Page {
	if n < 1 || n > len(d.Pages) {
		return nil
	}
	return &d.Pages[n-1]
}

// RasterResult is the outcome of rasterizing one page.
type RasterResult struct {
	Path string
	Err  error
}
