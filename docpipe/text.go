// CLAUDE:SUMMARY Text-layer extraction chain: pdftotext, ledongthuc/pdf rows, pdfcpu content stream.
// CLAUDE:DEPENDS docpipe/exec.go, docpipe/pdf.go
package docpipe

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"sync"

	lpdf "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// TextExtractor returns the text layer of one page in logical reading order.
// An empty string with a nil error means the page has no text layer.
type TextExtractor interface {
	Name() string
	PageText(ctx context.Context, src *Source, page int) (string, error)
}

// Source is a PDF opened for one read. Extractors that work on the whole
// document at once memoize their output through Memo.
type Source struct {
	Path  string
	Pages int

	pdf *model.Context

	mu   sync.Mutex
	memo map[string]memoEntry

	closeMu sync.Mutex
	closers []io.Closer
}

type memoEntry struct {
	val any
	err error
}

// Memo returns the cached result for key, computing it with fn on first use.
func (s *Source) Memo(key string, fn func() (any, error)) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.memo[key]; ok {
		return e.val, e.err
	}
	if s.memo == nil {
		s.memo = make(map[string]memoEntry)
	}
	v, err := fn()
	s.memo[key] = memoEntry{val: v, err: err}
	return v, err
}

// OnClose registers c to be closed when the read finishes.
// Safe to call from inside a Memo function.
func (s *Source) OnClose(c io.Closer) {
	s.closeMu.Lock()
	s.closers = append(s.closers, c)
	s.closeMu.Unlock()
}

// Close releases everything registered with OnClose.
func (s *Source) Close() error {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	s.closers = nil
	return first
}

// --- pdftotext ---

// PopplerText runs pdftotext once per document and splits its output on
// form feeds, one chunk per page.
type PopplerText struct {
	tools *toolRunner
	bin   string
}

func (p *PopplerText) Name() string { return "pdftotext" }

func (p *PopplerText) PageText(ctx context.Context, src *Source, page int) (string, error) {
	v, err := src.Memo("pdftotext", func() (any, error) {
		out, err := p.tools.run(ctx, p.bin, "-enc", "UTF-8", "-q", src.Path, "-")
		if err != nil {
			return nil, err
		}
		return strings.Split(string(out), "\f"), nil
	})
	if err != nil {
		return "", err
	}
	pages := v.([]string)
	if page < 1 || page > len(pages) {
		return "", nil
	}
	return cleanPageText(pages[page-1]), nil
}

// --- ledongthuc/pdf ---

// LayerText reads the text layer with ledongthuc/pdf, row by row.
type LayerText struct{}

func (LayerText) Name() string { return "pdf-rows" }

func (LayerText) PageText(_ context.Context, src *Source, page int) (text string, err error) {
	v, err := src.Memo("pdf-rows", func() (any, error) {
		f, r, err := lpdf.Open(src.Path)
		if err != nil {
			return nil, fmt.Errorf("open: %w", err)
		}
		src.OnClose(f)
		return r, nil
	})
	if err != nil {
		return "", err
	}
	r := v.(*lpdf.Reader)
	if page < 1 || page > r.NumPage() {
		return "", nil
	}

	// ledongthuc/pdf panics on some malformed font dictionaries.
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("pdf-rows: page %d: panic: %v", page, rec)
		}
	}()

	p := r.Page(page)
	if p.V.IsNull() {
		return "", nil
	}
	rows, err := p.GetTextByRow()
	if err != nil {
		return "", fmt.Errorf("pdf-rows: page %d: %w", page, err)
	}
	return cleanPageText(joinRows(rows)), nil
}

// joinRows renders rows top to bottom, inserting a space wherever the gap
// between two glyph runs exceeds a fraction of the font size.
func joinRows(rows lpdf.Rows) string {
	var sb strings.Builder
	for _, row := range rows {
		texts := append([]lpdf.Text(nil), row.Content...)
		sort.SliceStable(texts, func(i, j int) bool { return texts[i].X < texts[j].X })
		var prevEnd float64
		var prevS string
		for i, t := range texts {
			if i > 0 {
				gap := t.X - prevEnd
				threshold := t.FontSize * 0.2
				if threshold <= 0 {
					threshold = 1
				}
				if gap > threshold && !strings.HasSuffix(prevS, " ") && !strings.HasPrefix(t.S, " ") {
					sb.WriteByte(' ')
				}
			}
			sb.WriteString(t.S)
			prevEnd = t.X + t.W
			prevS = t.S
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// --- pdfcpu content stream ---

// StreamText parses the page content stream directly. Last resort: it
// ignores font encodings, so it only yields text for simple fonts.
type StreamText struct{}

func (StreamText) Name() string { return "pdfcpu-stream" }

func (StreamText) PageText(_ context.Context, src *Source, page int) (string, error) {
	if src.pdf == nil {
		return "", nil
	}
	return extractPageText(src.pdf, page)
}

// --- cleanup ---

var (
	trailingSpaceRe = regexp.MustCompile(`[ \t]+\n`)
	blankRunRe      = regexp.MustCompile(`\n{3,}`)
)

// cleanPageText normalises line endings, drops garbage runes and trailing
// spaces, and collapses runs of blank lines. Line structure is kept: the
// segmenters rely on it.
func cleanPageText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var sb strings.Builder
	sb.Grow(len(text))
	for _, r := range text {
		if r == '\n' || r == '\t' {
			sb.WriteRune(r)
			continue
		}
		if isGarbageRune(r) {
			continue
		}
		sb.WriteRune(r)
	}
	text = trailingSpaceRe.ReplaceAllString(sb.String(), "\n")
	text = blankRunRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
