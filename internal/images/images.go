// CLAUDE:SUMMARY Image associator: rasterize image-section pages, name front pages (filename/OCR/position), placeholders, link or stub articles.
// CLAUDE:DEPENDS docpipe, internal/articles, internal/sections, internal/textnorm
// CLAUDE:EXPORTS Associator, Image, Stub, ArticleRef, SectionResult
package images

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/hazyhaar/sintesis/docpipe"
	"github.com/hazyhaar/sintesis/internal/articles"
	"github.com/hazyhaar/sintesis/internal/sections"
	"github.com/hazyhaar/sintesis/internal/textnorm"
)

// Diagnostic kinds.
const (
	DiagTool        = "tool"        // rasterization or OCR invocation failed
	DiagAssociation = "association" // image could not be named or linked
)

// Image is one persisted page image.
type Image struct {
	Filename    string `json:"filename"` // base name inside <asset_dir>/<date>/
	Path        string `json:"path"`     // <asset_dir>/<date>/<filename>
	Title       string `json:"title"`
	Description string `json:"description"`
	SectionID   string `json:"section_id"`
	PageNumber  int    `json:"page_number"`
	Source      string `json:"source,omitempty"`
	Placeholder bool   `json:"placeholder"`
	ArticleID   string `json:"article_id,omitempty"`
}

// ArticleRef is the read-only view of an already extracted article.
type ArticleRef struct {
	ID        string
	Source    string
	SectionID string
}

// Stub is an image-backed article created for an identified front page.
type Stub struct {
	ID    string
	Draft articles.Draft
}

// Diagnostic is a recovered image problem.
type Diagnostic struct {
	Kind      string `json:"kind"`
	SectionID string `json:"section_id"`
	Page      int    `json:"page,omitempty"`
	Message   string `json:"message"`
}

// SectionResult is the output for one section.
type SectionResult struct {
	Images       []Image
	Stubs        []Stub
	Diags        []Diagnostic
	Placeholders int
}

// Rasterizer is satisfied by *docpipe.Reader.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdfPath string, pages []int, outDir string) map[int]docpipe.RasterResult
}

// OCR is satisfied by *docpipe.Reader.
type OCR interface {
	OCRAvailable() bool
	Recognize(ctx context.Context, imagePath string) (string, error)
}

// Config is scoped to one run.
type Config struct {
	AssetDir    string   // root of the date-scoped tree
	Newspapers  []string // fixed, ordered newspaper list
	CreateStubs bool     // create image-backed articles for unmatched front pages
	SummaryLen  int
	TopFraction float64 // share of the page height cropped for OCR (default 0.2)

	// DigestSections are the text sections whose articles an identified
	// front page may link to.
	DigestSections []string
	// ImageNames maps a page to its embedded image resource names.
	ImageNames map[int][]string
}

// Associator handles the image sections of one run. Not safe for
// concurrent use; create one per run.
type Associator struct {
	cfg    Config
	raster Rasterizer
	ocr    OCR
	newID  func() string
	logger *slog.Logger

	refs []ArticleRef
}

// New creates an Associator over the run's already extracted articles.
func New(cfg Config, raster Rasterizer, ocr OCR, newID func() string, refs []ArticleRef, logger *slog.Logger) *Associator {
	if cfg.TopFraction <= 0 || cfg.TopFraction > 1 {
		cfg.TopFraction = 0.2
	}
	if cfg.SummaryLen <= 0 {
		cfg.SummaryLen = 200
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Associator{
		cfg:    cfg,
		raster: raster,
		ocr:    ocr,
		newID:  newID,
		logger: logger,
		refs:   append([]ArticleRef(nil), refs...),
	}
}

// DateDir returns <asset_dir>/<date>.
func (a *Associator) DateDir(date string) string {
	return filepath.Join(a.cfg.AssetDir, date)
}

// Associate rasterizes pages of sec (all of them, or the given subset for
// the catch-all section) and produces exactly one Image per page.
func (a *Associator) Associate(ctx context.Context, date, pdfPath string, sec sections.Section, pages []int) SectionResult {
	var res SectionResult
	if len(pages) == 0 {
		return res
	}
	dateDir := a.DateDir(date)
	work := filepath.Join(dateDir, ".work-"+sec.ID)
	defer os.RemoveAll(work)

	rasters := a.raster.Rasterize(ctx, pdfPath, pages, work)

	ocrOn := sec.Strategy == sections.StrategyFrontPages && a.ocr != nil && a.ocr.OCRAvailable()
	positional := 0

	for k, n := range pages {
		ordinal := k + 1
		img := Image{SectionID: sec.ID, PageNumber: n}

		rr := rasters[n]
		rasterOK := rr.Err == nil && rr.Path != ""
		if rasterOK {
			img.Filename = fmt.Sprintf("%s-p%03d.png", sec.ID, n)
			img.Path = filepath.Join(dateDir, img.Filename)
			if err := os.Rename(rr.Path, img.Path); err != nil {
				rasterOK = false
				rr.Err = fmt.Errorf("move raster: %w", err)
			}
		}
		if !rasterOK {
			err := rr.Err
			if err == nil {
				err = fmt.Errorf("no raster produced")
			}
			res.Diags = append(res.Diags, Diagnostic{
				Kind: DiagTool, SectionID: sec.ID, Page: n,
				Message: fmt.Sprintf("rasterize page %d: %v", n, err),
			})
		}

		switch sec.Strategy {
		case sections.StrategyFrontPages:
			name, how := a.identify(ctx, img.Path, rasterOK, ocrOn, &res, sec.ID, n)
			if name == "" {
				if ordinal <= len(a.cfg.Newspapers) {
					name = a.cfg.Newspapers[ordinal-1]
				} else {
					name = fmt.Sprintf("Primera plana %d", ordinal)
				}
				how = "position"
				positional++
			}
			img.Source = name
			img.Title = name
			img.Description = fmt.Sprintf("Primera plana de %s, %s (%s)", name, date, how)
			if how != "position" {
				a.link(&img, &res, sec, date)
			}
		case sections.StrategySequential:
			pattern := sec.ImageTitle
			if !strings.Contains(pattern, "%d") {
				pattern = sec.Name + " %d"
			}
			img.Title = fmt.Sprintf(pattern, ordinal)
			img.Description = fmt.Sprintf("%s, página %d", sec.Name, n)
		default:
			img.Title = fmt.Sprintf("Página %d", n)
			img.Description = fmt.Sprintf("%s, página %d", sec.Name, n)
		}

		if !rasterOK {
			a.placeholder(&img, sec, date, &res)
		}
		res.Images = append(res.Images, img)
	}

	if positional > 0 {
		reason := "no filename or OCR match"
		if !ocrOn {
			reason = "OCR unavailable"
		}
		res.Diags = append(res.Diags, Diagnostic{
			Kind: DiagAssociation, SectionID: sec.ID,
			Message: fmt.Sprintf("%d of %d front pages named by position (%s)", positional, len(pages), reason),
		})
	}
	return res
}

// Placeholders produces one placeholder Image per page without touching
// the PDF. Used when association of a section could not complete.
func (a *Associator) Placeholders(date string, sec sections.Section, pages []int) SectionResult {
	var res SectionResult
	for _, n := range pages {
		img := Image{
			SectionID:   sec.ID,
			PageNumber:  n,
			Title:       sec.Name,
			Description: fmt.Sprintf("%s, página %d", sec.Name, n),
		}
		a.placeholder(&img, sec, date, &res)
		res.Images = append(res.Images, img)
	}
	return res
}

// identify names a front page from the names of its embedded images, then
// from OCR of the top band. how is "filename" or "ocr"; name is "" when
// neither matched.
func (a *Associator) identify(ctx context.Context, path string, rasterOK, ocrOn bool, res *SectionResult, secID string, page int) (name, how string) {
	for _, in := range a.cfg.ImageNames[page] {
		if n := a.matchNewspaper(in); n != "" {
			return n, "filename"
		}
	}
	if !rasterOK || !ocrOn {
		return "", ""
	}
	text, err := a.ocrTop(ctx, path)
	if err != nil {
		res.Diags = append(res.Diags, Diagnostic{
			Kind: DiagTool, SectionID: secID, Page: page,
			Message: fmt.Sprintf("ocr page %d: %v", page, err),
		})
		return "", ""
	}
	if n := a.matchNewspaper(text); n != "" {
		return n, "ocr"
	}
	return "", ""
}

// matchNewspaper returns the first configured newspaper whose name occurs
// in text, ignoring case, accents and spacing. Longer names are tried
// first so "El Financiero" is not shadowed by a shorter match.
func (a *Associator) matchNewspaper(text string) string {
	best := ""
	for _, n := range a.cfg.Newspapers {
		if textnorm.ContainsKey(text, n) && len(textnorm.Key(n)) > len(textnorm.Key(best)) {
			best = n
		}
	}
	return best
}

// link attaches img to a digest article, or a stub of this section, with
// the same source, creating an image-backed stub when none exists and stubs
// are enabled.
func (a *Associator) link(img *Image, res *SectionResult, sec sections.Section, date string) {
	key := textnorm.Key(img.Source)
	for _, r := range a.refs {
		if r.ID == "" || textnorm.Key(r.Source) != key {
			continue
		}
		if r.SectionID == sec.ID || slices.Contains(a.cfg.DigestSections, r.SectionID) {
			img.ArticleID = r.ID
			return
		}
	}
	if !a.cfg.CreateStubs || a.newID == nil {
		return
	}
	content := fmt.Sprintf("Primera plana de %s del %s.", img.Source, date)
	stub := Stub{
		ID: a.newID(),
		Draft: articles.Draft{
			Title:      "Primera plana de " + img.Source,
			Content:    content,
			Summary:    articles.Summarize(content, a.cfg.SummaryLen),
			Source:     img.Source,
			SectionID:  sec.ID,
			PageNumber: img.PageNumber,
			Kind:       articles.KindImageBacked,
			Strategy:   sections.StrategyFrontPages,
		},
	}
	res.Stubs = append(res.Stubs, stub)
	a.refs = append(a.refs, ArticleRef{ID: stub.ID, Source: img.Source, SectionID: sec.ID})
	img.ArticleID = stub.ID
}
