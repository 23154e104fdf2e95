// CLAUDE:SUMMARY Optional OCR through the tesseract binary; absence is reported, never an error.
package docpipe

import (
	"context"
	"strings"
)

// OCR recognises text in an image file.
type OCR interface {
	// Available reports whether the engine can run at all.
	Available() bool
	Recognize(ctx context.Context, imagePath string) (string, error)
}

// Tesseract shells out to `tesseract <image> stdout -l <lang>`.
type Tesseract struct {
	tools *toolRunner
	bin   string
	lang  string
}

func (t *Tesseract) Available() bool {
	return t.tools.available(t.bin)
}

func (t *Tesseract) Recognize(ctx context.Context, imagePath string) (string, error) {
	out, err := t.tools.run(ctx, t.bin, imagePath, "stdout", "-l", t.lang)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// NoOCR is an OCR that is never available.
type NoOCR struct{}

func (NoOCR) Available() bool { return false }

func (NoOCR) Recognize(context.Context, string) (string, error) {
	return "", ErrToolUnavailable
}
