// CLAUDE:SUMMARY Configuration for the page reader: external tool binaries, timeouts, raster engine.
package docpipe

import (
	"log/slog"
	"time"
)

// Config configures the page reader.
type Config struct {
	Tools  ToolConfig   `json:"tools" yaml:"tools"`
	Raster RasterConfig `json:"raster" yaml:"raster"`

	// Logger for debug/error messages.
	Logger *slog.Logger `json:"-" yaml:"-"`
}

// ToolConfig names the external binaries and bounds every invocation.
type ToolConfig struct {
	Pdftotext string `json:"pdftotext" yaml:"pdftotext"`
	Pdftoppm  string `json:"pdftoppm" yaml:"pdftoppm"`
	Tesseract string `json:"tesseract" yaml:"tesseract"`

	// Timeout bounds one invocation (default: 60s).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// RetryTimeout is used for the single retry after a timeout (default: 20s).
	// Zero after defaults() is impossible; set a negative value to disable the retry.
	RetryTimeout time.Duration `json:"retry_timeout" yaml:"retry_timeout"`

	// OCRLang is passed to tesseract -l (default: "spa").
	OCRLang string `json:"ocr_lang" yaml:"ocr_lang"`
}

// RasterConfig selects how pages are rasterized.
type RasterConfig struct {
	// Engine is "poppler" (pdftoppm, default) or "fitz" (in-process MuPDF).
	Engine string `json:"engine" yaml:"engine"`

	// DPI of generated page images (default: 150).
	DPI int `json:"dpi" yaml:"dpi"`

	// MaxParallel caps concurrent pdftoppm processes (default: 4).
	MaxParallel int `json:"max_parallel" yaml:"max_parallel"`
}

func (c *Config) defaults() {
	if c.Tools.Pdftotext == "" {
		c.Tools.Pdftotext = "pdftotext"
	}
	if c.Tools.Pdftoppm == "" {
		c.Tools.Pdftoppm = "pdftoppm"
	}
	if c.Tools.Tesseract == "" {
		c.Tools.Tesseract = "tesseract"
	}
	if c.Tools.Timeout <= 0 {
		c.Tools.Timeout = 60 * time.Second
	}
	if c.Tools.RetryTimeout == 0 {
		c.Tools.RetryTimeout = 20 * time.Second
	}
	if c.Tools.OCRLang == "" {
		c.Tools.OCRLang = "spa"
	}
	if c.Raster.Engine == "" {
		c.Raster.Engine = EnginePoppler
	}
	if c.Raster.DPI <= 0 {
		c.Raster.DPI = 150
	}
	if c.Raster.MaxParallel <= 0 {
		c.Raster.MaxParallel = 4
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
