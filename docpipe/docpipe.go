// CLAUDE:SUMMARY Raw page reader: per-page text layer, image detection, links; lazy rasterization and OCR.
// Package docpipe reads a PDF page by page.
//
// The text layer is taken from the first extractor of the chain that yields
// text for a page:
//   - pdftotext: poppler, logical reading order (whole document, split on \f)
//   - pdf-rows: ledongthuc/pdf, glyph rows sorted top to bottom
//   - pdfcpu: raw content-stream operators
//
// Rasterization is never done by ReadPages: callers rasterize only the pages
// they need, through Rasterize. A failing page is recorded in
// Document.Failures and read as empty; only a missing file or an unparseable
// PDF is fatal.
//
// Usage:
//
//	r := docpipe.New(docpipe.Config{})
//	doc, err := r.ReadPages(ctx, "/data/sintesis-2025-06-05.pdf")
//	imgs := r.Rasterize(ctx, doc.Path, []int{3, 4, 5}, "/tmp/raster")
package docpipe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Reader is the page reader.
type Reader struct {
	cfg        Config
	logger     *slog.Logger
	tools      *toolRunner
	extractors []TextExtractor
	raster     Rasterizer
	ocr        OCR
}

// Option customises a Reader.
type Option func(*Reader)

// WithTextExtractors replaces the text extraction chain.
func WithTextExtractors(ex ...TextExtractor) Option {
	return func(r *Reader) { r.extractors = ex }
}

// WithRasterizer replaces the rasterizer selected by Config.Raster.Engine.
func WithRasterizer(rz Rasterizer) Option {
	return func(r *Reader) { r.raster = rz }
}

// WithOCR replaces the tesseract OCR engine.
func WithOCR(o OCR) Option {
	return func(r *Reader) { r.ocr = o }
}

// New creates a Reader with the given configuration.
func New(cfg Config, opts ...Option) *Reader {
	cfg.defaults()
	tools := newToolRunner(cfg.Tools)
	r := &Reader{
		cfg:    cfg,
		logger: cfg.Logger,
		tools:  tools,
		extractors: []TextExtractor{
			&PopplerText{tools: tools, bin: cfg.Tools.Pdftotext},
			LayerText{},
			StreamText{},
		},
		ocr: &Tesseract{tools: tools, bin: cfg.Tools.Tesseract, lang: cfg.Tools.OCRLang},
	}
	switch cfg.Raster.Engine {
	case EngineFitz:
		r.raster = &FitzRaster{dpi: cfg.Raster.DPI}
	default:
		r.raster = &PopplerRaster{
			tools:       tools,
			bin:         cfg.Tools.Pdftoppm,
			dpi:         cfg.Raster.DPI,
			maxParallel: cfg.Raster.MaxParallel,
		}
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// ReadPages reads every page of the PDF at path.
// Errors wrap ErrSourceUnreadable or ErrNotPDF; everything else is per page.
func (r *Reader) ReadPages(ctx context.Context, path string) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnreadable, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s is not a regular file", ErrSourceUnreadable, path)
	}

	pdfCtx, err := readContext(path)
	if err != nil {
		return nil, err
	}

	src := &Source{Path: path, Pages: pdfCtx.PageCount, pdf: pdfCtx}
	defer src.Close()

	r.logger.Debug("docpipe: reading pages", "path", path, "pages", src.Pages)

	doc := &Document{Path: path, TotalPages: src.Pages, Pages: make([]Page, 0, src.Pages)}
	for n := 1; n <= src.Pages; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := Page{Number: n, HasImages: pageHasImages(pdfCtx, n)}

		text, failure := r.pageText(ctx, src, n)
		if failure != nil {
			doc.Failures = append(doc.Failures, *failure)
			r.logger.Warn("docpipe: page text failed", "page", n, "tool", failure.Tool, "error", failure.Err)
		}
		page.Text = text
		page.Chars = MeaningfulChars(text)

		names, err := pageImageNames(pdfCtx, n)
		if err != nil {
			doc.Failures = append(doc.Failures, PageFailure{Page: n, Tool: "xobjects", Err: err})
			r.logger.Warn("docpipe: page image names failed", "page", n, "error", err)
		}
		page.ImageNames = names

		links, err := pageLinks(pdfCtx, n)
		if err != nil {
			doc.Failures = append(doc.Failures, PageFailure{Page: n, Tool: "annotations", Err: err})
			r.logger.Warn("docpipe: page links failed", "page", n, "error", err)
		}
		page.Links = links

		doc.Pages = append(doc.Pages, page)
	}
	doc.Quality = assessQuality(doc.Pages)

	r.logger.Info("docpipe: pages read",
		"path", path,
		"pages", doc.TotalPages,
		"empty_pages", doc.Quality.EmptyPages,
		"failures", len(doc.Failures),
	)
	return doc, nil
}

// pageText runs the extractor chain for one page. A failure is reported
// only when no extractor produced text and at least one of them errored
// for a reason other than its binary being absent.
func (r *Reader) pageText(ctx context.Context, src *Source, n int) (string, *PageFailure) {
	var errs []error
	var tools []string
	for _, ex := range r.extractors {
		text, err := ex.PageText(ctx, src, n)
		if err != nil {
			if errors.Is(err, ErrToolUnavailable) {
				continue
			}
			errs = append(errs, fmt.Errorf("%s: %w", ex.Name(), err))
			tools = append(tools, ex.Name())
			continue
		}
		if strings.TrimSpace(text) != "" {
			return text, nil
		}
	}
	if len(errs) == 0 {
		return "", nil
	}
	return "", &PageFailure{Page: n, Tool: strings.Join(tools, ","), Err: errors.Join(errs...)}
}

// Rasterize renders the given pages into outDir as RasterName(n).
func (r *Reader) Rasterize(ctx context.Context, pdfPath string, pages []int, outDir string) map[int]RasterResult {
	if len(pages) == 0 {
		return map[int]RasterResult{}
	}
	res := r.raster.Rasterize(ctx, pdfPath, pages, outDir)
	failed := 0
	for _, n := range pages {
		if res[n].Err != nil {
			failed++
		}
	}
	r.logger.Debug("docpipe: rasterized", "engine", r.raster.Name(), "pages", len(pages), "failed", failed)
	return res
}

// OCRAvailable reports whether Recognize can run.
func (r *Reader) OCRAvailable() bool {
	return r.ocr != nil && r.ocr.Available()
}

// Recognize runs OCR on an image file.
func (r *Reader) Recognize(ctx context.Context, imagePath string) (string, error) {
	if !r.OCRAvailable() {
		return "", ErrToolUnavailable
	}
	return r.ocr.Recognize(ctx, imagePath)
}
