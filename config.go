// CLAUDE:SUMMARY Configuration structs, default section table and newspaper list, YAML loader for sintesis.
package sintesis

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata" // timezone must resolve on minimal containers

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/sintesis/docpipe"
	"github.com/hazyhaar/sintesis/internal/lock"
	"github.com/hazyhaar/sintesis/internal/notify"
	"github.com/hazyhaar/sintesis/internal/sections"
)

// Config holds all sintesis configuration.
type Config struct {
	DBPath      string `yaml:"db_path"`
	PDFDir      string `yaml:"pdf_dir"`
	PDFPattern  string `yaml:"pdf_pattern"` // {date} is replaced by YYYY-MM-DD
	AssetDir    string `yaml:"asset_dir"`
	ManifestDir string `yaml:"manifest_dir"`
	Timezone    string `yaml:"timezone"` // resolves "today" when no date is given
	CreateStubs bool   `yaml:"create_stubs"`

	Tools        docpipe.ToolConfig   `yaml:"tools"`
	Raster       docpipe.RasterConfig `yaml:"raster"`
	Segmentation SegmentationConfig   `yaml:"segmentation"`
	Articles     ArticlesConfig       `yaml:"articles"`

	Newspapers []string              `yaml:"newspapers"`
	Sections   []sections.Definition `yaml:"sections"`

	Lock   lock.RedisConfig `yaml:"lock"`
	Notify notify.Config    `yaml:"notify"`
	Watch  WatchConfig      `yaml:"watch"`
}

// WatchConfig tunes daemon mode: poll today's PDF path and extract once the
// file has stopped changing.
type WatchConfig struct {
	Interval time.Duration `yaml:"interval"` // default 30s
	Debounce time.Duration `yaml:"debounce"` // default 1m
}

// SegmentationConfig tunes the section map builder.
type SegmentationConfig struct {
	// MinimalTextChars is the meaningful-character count under which a page
	// is treated as an image page (default 300).
	MinimalTextChars int `yaml:"minimal_text_chars"`
	// HeaderWindow limits header matching to the first N characters of a
	// page (default 400). Negative scans the whole page.
	HeaderWindow int `yaml:"header_window"`
}

// ArticlesConfig tunes the article boundary extractor.
type ArticlesConfig struct {
	MaxTitleLen   int `yaml:"max_title_len"`
	MinContentLen int `yaml:"min_content_len"`
	SummaryLen    int `yaml:"summary_len"`
}

// DefaultNewspapers is the front-section layout order.
var DefaultNewspapers = []string{
	"El Universal",
	"Reforma",
	"Milenio",
	"La Jornada",
	"Excélsior",
	"El Financiero",
	"El Economista",
	"La Razón",
}

// DefaultSections returns the historical section table.
func DefaultSections() []sections.Definition {
	return []sections.Definition{
		{ID: "ocho-columnas", Name: "Ocho Columnas", Type: sections.TypeText,
			Headers: []string{"OCHO COLUMNAS"}, Fallback: []int{1, 2}, Strategy: sections.StrategyAnchors},
		{ID: "primeras-planas", Name: "Primeras Planas", Type: sections.TypeImage,
			Headers: []string{"PRIMERAS PLANAS"}, Fallback: []int{3, 10}, Strategy: sections.StrategyFrontPages},
		{ID: "columnas-politicas", Name: "Columnas Políticas", Type: sections.TypeText,
			Headers: []string{"COLUMNAS POLÍTICAS", "COLUMNAS POLITICAS"}, Fallback: []int{11, 16}, Strategy: sections.StrategyByline},
		{ID: "opinion", Name: "Artículos de Opinión", Type: sections.TypeImage,
			Headers: []string{"ARTÍCULOS DE OPINIÓN", "OPINIÓN"}, Fallback: []int{17, 24}, Strategy: sections.StrategySequential,
			ImageTitle: "Columna de Opinión %d"},
		{ID: "cartones", Name: "Cartones", Type: sections.TypeImage,
			Headers: []string{"CARTONES"}, Fallback: []int{25, 30}, Strategy: sections.StrategySequential,
			ImageTitle: "Cartón Político %d"},
		{ID: "scjn", Name: "Suprema Corte de Justicia de la Nación", Type: sections.TypeText,
			Headers: []string{"SUPREMA CORTE DE JUSTICIA DE LA NACIÓN"}, Fallback: []int{31, 40}, Strategy: sections.StrategyCaps},
		{ID: "informacion-general", Name: "Información General", Type: sections.TypeText,
			Headers: []string{"INFORMACIÓN GENERAL"}, Strategy: sections.StrategyGeneric},
	}
}

func (c *Config) defaults() {
	if c.DBPath == "" {
		c.DBPath = "sintesis.db"
	}
	if c.PDFDir == "" {
		c.PDFDir = "pdfs"
	}
	if c.PDFPattern == "" {
		c.PDFPattern = "sintesis-{date}.pdf"
	}
	if c.AssetDir == "" {
		c.AssetDir = "images"
	}
	if c.ManifestDir == "" {
		c.ManifestDir = "manifests"
	}
	if c.Timezone == "" {
		c.Timezone = "America/Mexico_City"
	}
	if c.Segmentation.MinimalTextChars <= 0 {
		c.Segmentation.MinimalTextChars = 300
	}
	if c.Segmentation.HeaderWindow == 0 {
		c.Segmentation.HeaderWindow = 400
	}
	if c.Articles.MaxTitleLen <= 0 {
		c.Articles.MaxTitleLen = 150
	}
	if c.Articles.MinContentLen <= 0 {
		c.Articles.MinContentLen = 80
	}
	if c.Articles.SummaryLen <= 0 {
		c.Articles.SummaryLen = 200
	}
	if c.Watch.Interval <= 0 {
		c.Watch.Interval = 30 * time.Second
	}
	if c.Watch.Debounce < 0 {
		c.Watch.Debounce = 0
	} else if c.Watch.Debounce == 0 {
		c.Watch.Debounce = time.Minute
	}
	if len(c.Newspapers) == 0 {
		c.Newspapers = append([]string(nil), DefaultNewspapers...)
	}
	if len(c.Sections) == 0 {
		c.Sections = DefaultSections()
	}
}

// Validate checks the section table and timezone. Call after defaults.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Sections))
	for _, d := range c.Sections {
		if err := d.Validate(); err != nil {
			return err
		}
		if seen[d.ID] {
			return fmt.Errorf("section %q: duplicate id", d.ID)
		}
		seen[d.ID] = true
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	if !strings.Contains(c.PDFPattern, "{date}") {
		return fmt.Errorf("pdf_pattern %q: missing {date}", c.PDFPattern)
	}
	return nil
}

// PDFPath returns the downloaded PDF path for date.
func (c *Config) PDFPath(date string) string {
	return filepath.Join(c.PDFDir, strings.ReplaceAll(c.PDFPattern, "{date}", date))
}

func (c *Config) segmentation() sections.Config {
	window := c.Segmentation.HeaderWindow
	if window < 0 {
		window = 0
	}
	return sections.Config{
		MinimalTextChars: c.Segmentation.MinimalTextChars,
		HeaderWindow:     window,
	}
}

// LoadConfigFile reads a YAML config file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
