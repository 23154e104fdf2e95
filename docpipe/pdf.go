// CLAUDE:SUMMARY pdfcpu access: validation, per-page image detection and names, URI link annotations, content-stream text.
// CLAUDE:DEPENDS docpipe/quality.go
// CLAUDE:EXPORTS readContext, extractPageText, pageHasImages, pageImageNames, pageLinks
package docpipe

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// readContext parses and validates path with pdfcpu. Any failure is ErrNotPDF.
func readContext(path string) (ctx *model.Context, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnreadable, err)
	}
	defer f.Close()

	defer func() {
		if rec := recover(); rec != nil {
			ctx, err = nil, fmt.Errorf("%w: pdfcpu panic: %v", ErrNotPDF, rec)
		}
	}()

	conf := model.NewDefaultConfiguration()
	ctx, err = api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotPDF, err)
	}
	if ctx.PageCount < 1 {
		return nil, fmt.Errorf("%w: no pages", ErrNotPDF)
	}
	return ctx, nil
}

// extractPageText extracts text from a single PDF page via pdfcpu content stream.
func extractPageText(ctx *model.Context, pageNr int) (string, error) {
	r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
	if err != nil {
		return "", fmt.Errorf("page content: %w", err)
	}
	if r == nil {
		return "", nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read page content: %w", err)
	}
	if len(data) == 0 {
		return "", nil
	}
	return extractTextFromStream(data), nil
}

// pageHasImages reports whether the page references image XObjects.
func pageHasImages(ctx *model.Context, pageNr int) bool {
	if ctx.Optimize == nil {
		return false
	}
	return len(pdfcpu.ImageObjNrs(ctx, pageNr)) > 0
}

// pageImageNames returns the resource names of the image XObjects a page
// declares, sorted. Digest builders often keep the source file name there
// ("/reforma_jpg"); generic names such as "/Im1" are returned as well.
func pageImageNames(ctx *model.Context, pageNr int) ([]string, error) {
	d, _, _, err := ctx.PageDict(pageNr, false)
	if err != nil {
		return nil, fmt.Errorf("page dict: %w", err)
	}
	if d == nil {
		return nil, nil
	}
	res, err := findDict(ctx, d, "Resources")
	if err != nil || res == nil {
		return nil, err
	}
	xobjs, err := findDict(ctx, res, "XObject")
	if err != nil || xobjs == nil {
		return nil, err
	}

	var names []string
	for name, o := range xobjs {
		o, err := ctx.Dereference(o)
		if err != nil {
			continue
		}
		sd, ok := o.(types.StreamDict)
		if !ok || !isName(sd.Dict, "Subtype", "Image") {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// findDict returns d[key] dereferenced as a dictionary, nil when absent.
func findDict(ctx *model.Context, d types.Dict, key string) (types.Dict, error) {
	o, found := d.Find(key)
	if !found || o == nil {
		return nil, nil
	}
	o, err := ctx.Dereference(o)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", strings.ToLower(key), err)
	}
	sub, _ := o.(types.Dict)
	return sub, nil
}

// pageLinks returns the URI link annotations of a page, top to bottom then
// left to right.
func pageLinks(ctx *model.Context, pageNr int) ([]Link, error) {
	d, _, _, err := ctx.PageDict(pageNr, false)
	if err != nil {
		return nil, fmt.Errorf("page dict: %w", err)
	}
	if d == nil {
		return nil, nil
	}
	obj, found := d.Find("Annots")
	if !found || obj == nil {
		return nil, nil
	}
	obj, err = ctx.Dereference(obj)
	if err != nil {
		return nil, fmt.Errorf("annots: %w", err)
	}
	arr, ok := obj.(types.Array)
	if !ok {
		return nil, nil
	}

	var links []Link
	for _, o := range arr {
		o, err := ctx.Dereference(o)
		if err != nil {
			continue
		}
		annot, ok := o.(types.Dict)
		if !ok || !isName(annot, "Subtype", "Link") {
			continue
		}
		uri := linkURI(ctx, annot)
		if uri == "" {
			continue
		}
		l := Link{Page: pageNr, URI: uri}
		l.X, l.Y = rectTopLeft(ctx, annot)
		links = append(links, l)
	}

	sort.SliceStable(links, func(i, j int) bool {
		if links[i].Y != links[j].Y {
			return links[i].Y > links[j].Y
		}
		return links[i].X < links[j].X
	})
	return links, nil
}

func isName(d types.Dict, key, want string) bool {
	o, found := d.Find(key)
	if !found {
		return false
	}
	n, ok := o.(types.Name)
	return ok && string(n) == want
}

// linkURI returns the /URI of a /URI action, or "".
func linkURI(ctx *model.Context, annot types.Dict) string {
	o, found := annot.Find("A")
	if !found {
		return ""
	}
	o, err := ctx.Dereference(o)
	if err != nil {
		return ""
	}
	action, ok := o.(types.Dict)
	if !ok || !isName(action, "S", "URI") {
		return ""
	}
	o, found = action.Find("URI")
	if !found {
		return ""
	}
	o, err = ctx.Dereference(o)
	if err != nil {
		return ""
	}
	switch v := o.(type) {
	case types.StringLiteral:
		return strings.TrimSpace(decodePDFString([]byte(v)))
	case types.HexLiteral:
		b, err := hex.DecodeString(string(v))
		if err != nil {
			return ""
		}
		return strings.TrimSpace(string(b))
	}
	return ""
}

func rectTopLeft(ctx *model.Context, annot types.Dict) (x, y float64) {
	o, found := annot.Find("Rect")
	if !found {
		return 0, 0
	}
	o, err := ctx.Dereference(o)
	if err != nil {
		return 0, 0
	}
	arr, ok := o.(types.Array)
	if !ok || len(arr) != 4 {
		return 0, 0
	}
	n := make([]float64, 4)
	for i, v := range arr {
		n[i] = number(v)
	}
	return min(n[0], n[2]), max(n[1], n[3])
}

func number(o types.Object) float64 {
	switch v := o.(type) {
	case types.Float:
		return float64(v)
	case types.Integer:
		return float64(v)
	}
	return 0
}

// pdfStringRe matches PDF string literals in parentheses: (text here)
var pdfStringRe = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)`)

// extractTextFromStream parses PDF content stream operators for text.
// Vertical moves (Td/TD with a non-zero ty, T*, ') start a new line;
// large TJ kerning gaps become spaces.
func extractTextFromStream(data []byte) string {
	var sb strings.Builder

	newline := func() {
		if sb.Len() > 0 && !strings.HasSuffix(sb.String(), "\n") {
			sb.WriteByte('\n')
		}
	}

	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		switch {
		// Tj operator: (text) Tj
		case bytes.HasSuffix(line, []byte("Tj")):
			for _, m := range pdfStringRe.FindAllSubmatch(line, -1) {
				sb.WriteString(decodePDFString(m[1]))
			}

		// TJ operator: [(text) -100 (more text)] TJ
		case bytes.HasSuffix(line, []byte("TJ")):
			writeTJ(&sb, line)

		// ' operator (move to next line and show text): (text) '
		case bytes.HasSuffix(line, []byte("'")) && bytes.Contains(line, []byte("(")):
			newline()
			for _, m := range pdfStringRe.FindAllSubmatch(line, -1) {
				sb.WriteString(decodePDFString(m[1]))
			}

		// Td/TD operator: tx ty Td
		case bytes.HasSuffix(line, []byte("Td")) || bytes.HasSuffix(line, []byte("TD")):
			f := strings.Fields(string(line))
			if len(f) >= 3 {
				if ty, err := strconv.ParseFloat(f[len(f)-2], 64); err == nil && ty != 0 {
					newline()
					continue
				}
			}
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}

		// T* operator (move to start of next line).
		case bytes.Equal(line, []byte("T*")):
			newline()

		case bytes.Equal(line, []byte("ET")):
			newline()
		}
	}

	return cleanPageText(sb.String())
}

var tjElemRe = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)|(-?\d+(?:\.\d+)?)`)

func writeTJ(sb *strings.Builder, line []byte) {
	start := bytes.IndexByte(line, '[')
	end := bytes.LastIndexByte(line, ']')
	if start < 0 || end <= start {
		return
	}
	for _, m := range tjElemRe.FindAllSubmatch(line[start+1:end], -1) {
		if m[2] != nil {
			// Kerning in thousandths of text space; a wide negative gap is a word break.
			if k, err := strconv.ParseFloat(string(m[2]), 64); err == nil && k < -200 {
				sb.WriteByte(' ')
			}
			continue
		}
		sb.WriteString(decodePDFString(m[1]))
	}
}

// decodePDFString handles basic PDF escape sequences.
func decodePDFString(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] == '\\' && i+1 < len(raw) {
			i++
			switch raw[i] {
			case 'n':
				sb.WriteByte('\n')
			case 'r':
				sb.WriteByte('\r')
			case 't':
				sb.WriteByte('\t')
			case '\\':
				sb.WriteByte('\\')
			case '(':
				sb.WriteByte('(')
			case ')':
				sb.WriteByte(')')
			default:
				// Octal escape (e.g. \040 for space).
				if raw[i] >= '0' && raw[i] <= '7' {
					val := int(raw[i] - '0')
					if i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7' {
						i++
						val = val*8 + int(raw[i]-'0')
						if i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7' {
							i++
							val = val*8 + int(raw[i]-'0')
						}
					}
					// PDFDocEncoding agrees with Latin-1 for the accented letters we care about.
					sb.WriteRune(rune(val))
				} else {
					sb.WriteByte(raw[i])
				}
			}
		} else if raw[i] >= 0x80 {
			sb.WriteRune(rune(raw[i]))
		} else {
			sb.WriteByte(raw[i])
		}
	}
	return sb.String()
}
