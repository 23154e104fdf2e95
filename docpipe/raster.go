// CLAUDE:SUMMARY Page rasterizers: pdftoppm over contiguous ranges (errgroup-bounded) or in-process go-fitz.
// CLAUDE:DEPENDS docpipe/exec.go
package docpipe

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/gen2brain/go-fitz"
	"golang.org/x/sync/errgroup"
)

// Rasterizer renders pages to PNG files named RasterName(page) inside outDir.
// Failures are per page; the map has one entry for every requested page.
type Rasterizer interface {
	Name() string
	Rasterize(ctx context.Context, pdfPath string, pages []int, outDir string) map[int]RasterResult
}

// RasterName is the file name a Rasterizer writes page n to.
func RasterName(n int) string {
	return fmt.Sprintf("page-%03d.png", n)
}

// pageRange is an inclusive run of consecutive page numbers.
type pageRange struct{ first, last int }

// contiguousRanges sorts and deduplicates pages and groups consecutive numbers.
func contiguousRanges(pages []int) []pageRange {
	if len(pages) == 0 {
		return nil
	}
	ps := append([]int(nil), pages...)
	sort.Ints(ps)
	var out []pageRange
	cur := pageRange{ps[0], ps[0]}
	for _, p := range ps[1:] {
		switch {
		case p == cur.last:
		case p == cur.last+1:
			cur.last = p
		default:
			out = append(out, cur)
			cur = pageRange{p, p}
		}
	}
	return append(out, cur)
}

// --- pdftoppm ---

// PopplerRaster invokes pdftoppm once per contiguous page range, at most
// maxParallel processes at a time.
type PopplerRaster struct {
	tools       *toolRunner
	bin         string
	dpi         int
	maxParallel int
}

func (p *PopplerRaster) Name() string { return "pdftoppm" }

func (p *PopplerRaster) Rasterize(ctx context.Context, pdfPath string, pages []int, outDir string) map[int]RasterResult {
	results := make(map[int]RasterResult, len(pages))
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		for _, n := range pages {
			results[n] = RasterResult{Err: fmt.Errorf("mkdir: %w", err)}
		}
		return results
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.maxParallel)

	for _, rg := range contiguousRanges(pages) {
		g.Go(func() error {
			res := p.renderRange(gctx, pdfPath, rg, outDir)
			mu.Lock()
			for n, r := range res {
				results[n] = r
			}
			mu.Unlock()
			return nil
		})
	}
	g.Wait()
	return results
}

func (p *PopplerRaster) renderRange(ctx context.Context, pdfPath string, rg pageRange, outDir string) map[int]RasterResult {
	res := make(map[int]RasterResult, rg.last-rg.first+1)
	fail := func(err error) map[int]RasterResult {
		for n := rg.first; n <= rg.last; n++ {
			res[n] = RasterResult{Err: err}
		}
		return res
	}

	work, err := os.MkdirTemp(outDir, ".raster-")
	if err != nil {
		return fail(fmt.Errorf("workdir: %w", err))
	}
	defer os.RemoveAll(work)

	_, err = p.tools.run(ctx, p.bin,
		"-f", strconv.Itoa(rg.first),
		"-l", strconv.Itoa(rg.last),
		"-png",
		"-r", strconv.Itoa(p.dpi),
		pdfPath,
		filepath.Join(work, "p"))
	if err != nil {
		return fail(fmt.Errorf("pages %d-%d: %w", rg.first, rg.last, err))
	}

	// pdftoppm zero-pads the page number to the width of the document page count.
	entries, err := os.ReadDir(work)
	if err != nil {
		return fail(fmt.Errorf("list output: %w", err))
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "p-") || !strings.HasSuffix(name, ".png") {
			continue
		}
		var num int
		if _, err := fmt.Sscanf(strings.TrimSuffix(strings.TrimPrefix(name, "p-"), ".png"), "%d", &num); err != nil {
			continue
		}
		if num < rg.first || num > rg.last {
			continue
		}
		dst := filepath.Join(outDir, RasterName(num))
		if err := os.Rename(filepath.Join(work, name), dst); err != nil {
			res[num] = RasterResult{Err: fmt.Errorf("move output: %w", err)}
			continue
		}
		res[num] = RasterResult{Path: dst}
	}
	for n := rg.first; n <= rg.last; n++ {
		if _, ok := res[n]; !ok {
			res[n] = RasterResult{Err: fmt.Errorf("pdftoppm produced no image for page %d", n)}
		}
	}
	return res
}

// --- go-fitz ---

// FitzRaster renders pages in-process with MuPDF. A fitz.Document is not
// safe for concurrent use, so pages are rendered sequentially.
type FitzRaster struct {
	dpi int
}

func (f *FitzRaster) Name() string { return "fitz" }

func (f *FitzRaster) Rasterize(ctx context.Context, pdfPath string, pages []int, outDir string) map[int]RasterResult {
	results := make(map[int]RasterResult, len(pages))
	failAll := func(err error) map[int]RasterResult {
		for _, n := range pages {
			results[n] = RasterResult{Err: err}
		}
		return results
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return failAll(fmt.Errorf("mkdir: %w", err))
	}

	doc, err := fitz.New(pdfPath)
	if err != nil {
		return failAll(fmt.Errorf("fitz open: %w", err))
	}
	defer doc.Close()

	for _, rg := range contiguousRanges(pages) {
		for n := rg.first; n <= rg.last; n++ {
			if err := ctx.Err(); err != nil {
				results[n] = RasterResult{Err: err}
				continue
			}
			path, err := f.renderPage(doc, n, outDir)
			results[n] = RasterResult{Path: path, Err: err}
		}
	}
	return results
}

func (f *FitzRaster) renderPage(doc *fitz.Document, n int, outDir string) (string, error) {
	if n < 1 || n > doc.NumPage() {
		return "", fmt.Errorf("page %d out of range", n)
	}
	img, err := doc.ImageDPI(n-1, float64(f.dpi))
	if err != nil {
		return "", fmt.Errorf("render page %d: %w", n, err)
	}
	path := filepath.Join(outDir, RasterName(n))
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(out, img); err != nil {
		out.Close()
		return "", fmt.Errorf("encode page %d: %w", n, err)
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return path, nil
}
