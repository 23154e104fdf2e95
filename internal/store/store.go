// CLAUDE:SUMMARY SQLite content store for sintesis: date-keyed articles, images and run log with atomic clear-and-replace.
// CLAUDE:DEPENDS dbopen
// CLAUDE:EXPORTS Store, Open, Article, Image, Run, Filter, ErrInvalidArticle, ErrOrphanImage
// Package store provides the SQLite persistence layer for sintesis.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/sintesis/dbopen"
)

var (
	// ErrInvalidArticle is returned when an article lacks a title or content.
	ErrInvalidArticle = errors.New("store: article requires title and content")
	// ErrOrphanImage is returned when an image references an article that is
	// not part of the same date's set.
	ErrOrphanImage = errors.New("store: image references unknown article")
)

// Run statuses.
const (
	RunDone   = "done"
	RunFailed = "failed"
)

// Store is the sintesis database handle.
type Store struct {
	DB *sql.DB
}

// Open opens (or creates) the sintesis SQLite database at path,
// applies pragmas and the schema.
func Open(path string, opts ...dbopen.Option) (*Store, error) {
	allOpts := append([]dbopen.Option{
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(Schema),
	}, opts...)

	db, err := dbopen.Open(path, allOpts...)
	if err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}

// Article is a persisted article.
type Article struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Content         string `json:"content"`
	Summary         string `json:"summary"`
	Source          string `json:"source"`
	URL             string `json:"url,omitempty"`
	SectionID       string `json:"section_id"`
	PublicationDate string `json:"publication_date"`
	PageNumber      int    `json:"page_number,omitempty"`
	Kind            string `json:"kind"`
	Strategy        string `json:"strategy,omitempty"`
	CreatedAt       int64  `json:"created_at"`
}

// Image is a persisted image.
type Image struct {
	ID              string `json:"id"`
	Filename        string `json:"filename"`
	Path            string `json:"path,omitempty"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	ArticleID       string `json:"article_id,omitempty"`
	SectionID       string `json:"section_id"`
	PublicationDate string `json:"publication_date"`
	PageNumber      int    `json:"page_number,omitempty"`
	Placeholder     bool   `json:"placeholder"`
	CreatedAt       int64  `json:"created_at"`
}

// Run is one extraction_runs row. Errors holds the JSON-encoded error list.
type Run struct {
	ID            string `json:"id"`
	Date          string `json:"date"`
	PDFPath       string `json:"pdf_path,omitempty"`
	Status        string `json:"status"`
	TotalArticles int    `json:"total_articles"`
	TotalImages   int    `json:"total_images"`
	Errors        string `json:"errors"`
	StartedAt     int64  `json:"started_at"`
	FinishedAt    int64  `json:"finished_at"`
}

// Filter selects rows for one publication date.
type Filter struct {
	Date      string `json:"date"`
	SectionID string `json:"section_id,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

// ReplaceDate deletes every article and image of date and inserts the new
// set together with the run row, in one transaction. The set is validated
// before anything is deleted; a failure leaves the previous set intact.
func (s *Store) ReplaceDate(ctx context.Context, date string, arts []Article, imgs []Image, run *Run) error {
	if date == "" {
		return fmt.Errorf("store: empty publication date")
	}
	ids := make(map[string]bool, len(arts))
	for i := range arts {
		a := &arts[i]
		if a.Title == "" || a.Content == "" {
			return fmt.Errorf("%w: %s", ErrInvalidArticle, a.ID)
		}
		if a.PublicationDate != date {
			return fmt.Errorf("store: article %s dated %s in set for %s", a.ID, a.PublicationDate, date)
		}
		ids[a.ID] = true
	}
	for i := range imgs {
		im := &imgs[i]
		if im.PublicationDate != date {
			return fmt.Errorf("store: image %s dated %s in set for %s", im.ID, im.PublicationDate, date)
		}
		if im.ArticleID != "" && !ids[im.ArticleID] {
			return fmt.Errorf("%w: image %s -> %s", ErrOrphanImage, im.ID, im.ArticleID)
		}
	}

	now := time.Now().UnixMilli()
	return dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM images WHERE publication_date = ?`, date); err != nil {
			return fmt.Errorf("clear images: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM articles WHERE publication_date = ?`, date); err != nil {
			return fmt.Errorf("clear articles: %w", err)
		}

		artStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO articles (id, title, content, summary, source, url, section_id,
			                      publication_date, page_number, kind, strategy, created_at)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`)
		if err != nil {
			return err
		}
		defer artStmt.Close()
		for i := range arts {
			a := &arts[i]
			if a.CreatedAt == 0 {
				a.CreatedAt = now
			}
			if a.Kind == "" {
				a.Kind = "text"
			}
			if _, err := artStmt.ExecContext(ctx, a.ID, a.Title, a.Content, a.Summary, a.Source, a.URL,
				a.SectionID, a.PublicationDate, a.PageNumber, a.Kind, a.Strategy, a.CreatedAt); err != nil {
				return fmt.Errorf("insert article %s: %w", a.ID, err)
			}
		}

		imgStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO images (id, filename, path, title, description, article_id, section_id,
			                    publication_date, page_number, placeholder, created_at)
			VALUES (?,?,?,?,?,?,?,?,?,?,?)`)
		if err != nil {
			return err
		}
		defer imgStmt.Close()
		for i := range imgs {
			im := &imgs[i]
			if im.CreatedAt == 0 {
				im.CreatedAt = now
			}
			if _, err := imgStmt.ExecContext(ctx, im.ID, im.Filename, im.Path, im.Title, im.Description,
				nullString(im.ArticleID), im.SectionID, im.PublicationDate, im.PageNumber,
				boolInt(im.Placeholder), im.CreatedAt); err != nil {
				return fmt.Errorf("insert image %s: %w", im.ID, err)
			}
		}

		if run != nil {
			if err := insertRun(ctx, tx, run); err != nil {
				return fmt.Errorf("insert run: %w", err)
			}
		}
		return nil
	})
}

// RecordRun writes a run row on its own, for runs that never reached
// persistence.
func (s *Store) RecordRun(ctx context.Context, run *Run) error {
	return insertRun(ctx, s.DB, run)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertRun(ctx context.Context, db execer, r *Run) error {
	if r.Errors == "" {
		r.Errors = "[]"
	}
	if r.FinishedAt == 0 {
		r.FinishedAt = time.Now().UnixMilli()
	}
	if r.StartedAt == 0 {
		r.StartedAt = r.FinishedAt
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO extraction_runs (id, publication_date, pdf_path, status, total_articles,
		                             total_images, errors, started_at, finished_at)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		r.ID, r.Date, r.PDFPath, r.Status, r.TotalArticles, r.TotalImages, r.Errors,
		r.StartedAt, r.FinishedAt,
	)
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
