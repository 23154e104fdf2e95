package sintesis

import (
	"time"

	"github.com/hazyhaar/sintesis/docpipe"
	"github.com/hazyhaar/sintesis/internal/articles"
	"github.com/hazyhaar/sintesis/internal/sections"
	"github.com/hazyhaar/sintesis/internal/store"
)

// Re-exported types from internal packages for use by cmd/ and external callers.
type (
	Article           = store.Article
	Image             = store.Image
	Run               = store.Run
	Filter            = store.Filter
	SectionCount      = store.SectionCount
	SectionDefinition = sections.Definition
	Anchor            = articles.Anchor
	Quality           = docpipe.ExtractionQuality
)

// State is a step of the per-run state machine.
type State string

const (
	StateReading            State = "reading"
	StateSegmenting         State = "segmenting"
	StateExtractingArticles State = "extracting_articles"
	StateCorrelatingUrls    State = "correlating_urls"
	StateAssociatingImages  State = "associating_images"
	StatePersisting         State = "persisting"
	StateDone               State = "done"
	StateFailed             State = "failed"
)

// SectionResult summarises one section of a run.
type SectionResult struct {
	ID        string               `json:"id"`
	Name      string               `json:"name"`
	Type      sections.ContentType `json:"type"`
	Detection sections.Detection   `json:"detection"`
	Pages     []int                `json:"pages"`
	Processed bool                 `json:"processed"`
	Articles  int                  `json:"articles"`
	Images    int                  `json:"images"`
	URLs      int                  `json:"urls"`
	Errors    int                  `json:"errors"`
}

// ExtractionResult is the run summary returned to the caller.
type ExtractionResult struct {
	RunID         string                    `json:"run_id"`
	Date          string                    `json:"date"`
	PDFPath       string                    `json:"pdf_path"`
	Success       bool                      `json:"success"`
	State         State                     `json:"state"`
	TotalPages    int                       `json:"total_pages"`
	TotalArticles int                       `json:"total_articles"`
	TotalImages   int                       `json:"total_images"`
	Placeholders  int                       `json:"placeholders"`
	Sections      map[string]*SectionResult `json:"sections"`
	Errors        []ErrorRecord             `json:"errors"`
	Quality       *Quality                  `json:"quality,omitempty"`
	StartedAt     time.Time                 `json:"started_at"`
	FinishedAt    time.Time                 `json:"finished_at"`
}
