package store

import (
	"context"
	"database/sql"
	"errors"
)

// ListArticles returns the articles of f.Date, optionally restricted to one
// section, in section then page order.
func (s *Store) ListArticles(ctx context.Context, f Filter) ([]*Article, error) {
	q := `
		SELECT id, title, content, summary, source, url, section_id, publication_date,
		       page_number, kind, strategy, created_at
		FROM articles WHERE publication_date = ?`
	args := []any{f.Date}
	if f.SectionID != "" {
		q += ` AND section_id = ?`
		args = append(args, f.SectionID)
	}
	q += ` ORDER BY section_id, page_number, rowid`
	if f.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Article
	for rows.Next() {
		a := &Article{}
		if err := rows.Scan(&a.ID, &a.Title, &a.Content, &a.Summary, &a.Source, &a.URL,
			&a.SectionID, &a.PublicationDate, &a.PageNumber, &a.Kind, &a.Strategy, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetArticle retrieves an article by ID. Returns nil, nil when absent.
func (s *Store) GetArticle(ctx context.Context, id string) (*Article, error) {
	a := &Article{}
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, title, content, summary, source, url, section_id, publication_date,
		       page_number, kind, strategy, created_at
		FROM articles WHERE id = ?`, id).Scan(
		&a.ID, &a.Title, &a.Content, &a.Summary, &a.Source, &a.URL,
		&a.SectionID, &a.PublicationDate, &a.PageNumber, &a.Kind, &a.Strategy, &a.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListImages returns the images of f.Date, optionally restricted to one
// section, in section then page order.
func (s *Store) ListImages(ctx context.Context, f Filter) ([]*Image, error) {
	q := `
		SELECT id, filename, path, title, description, article_id, section_id,
		       publication_date, page_number, placeholder, created_at
		FROM images WHERE publication_date = ?`
	args := []any{f.Date}
	if f.SectionID != "" {
		q += ` AND section_id = ?`
		args = append(args, f.SectionID)
	}
	q += ` ORDER BY section_id, page_number, rowid`
	if f.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Image
	for rows.Next() {
		im := &Image{}
		var articleID sql.NullString
		var placeholder int
		if err := rows.Scan(&im.ID, &im.Filename, &im.Path, &im.Title, &im.Description, &articleID,
			&im.SectionID, &im.PublicationDate, &im.PageNumber, &placeholder, &im.CreatedAt); err != nil {
			return nil, err
		}
		im.ArticleID = articleID.String
		im.Placeholder = placeholder != 0
		out = append(out, im)
	}
	return out, rows.Err()
}

// ListRuns returns the runs of date, newest first. An empty date lists the
// most recent runs across all dates.
func (s *Store) ListRuns(ctx context.Context, date string, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `
		SELECT id, publication_date, pdf_path, status, total_articles, total_images,
		       errors, started_at, finished_at
		FROM extraction_runs`
	args := []any{}
	if date != "" {
		q += ` WHERE publication_date = ?`
		args = append(args, date)
	}
	q += ` ORDER BY started_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Run
	for rows.Next() {
		r := &Run{}
		if err := rows.Scan(&r.ID, &r.Date, &r.PDFPath, &r.Status, &r.TotalArticles,
			&r.TotalImages, &r.Errors, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SectionCount is the number of rows per section for one date.
type SectionCount struct {
	SectionID string `json:"section_id"`
	Articles  int    `json:"articles"`
	Images    int    `json:"images"`
}

// CountBySection returns per-section row counts for date, keyed by section id.
func (s *Store) CountBySection(ctx context.Context, date string) (map[string]SectionCount, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT section_id, SUM(a), SUM(i) FROM (
			SELECT section_id, 1 AS a, 0 AS i FROM articles WHERE publication_date = ?
			UNION ALL
			SELECT section_id, 0, 1 FROM images WHERE publication_date = ?
		) GROUP BY section_id`, date, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]SectionCount)
	for rows.Next() {
		var c SectionCount
		if err := rows.Scan(&c.SectionID, &c.Articles, &c.Images); err != nil {
			return nil, err
		}
		out[c.SectionID] = c
	}
	return out, rows.Err()
}

// OrphanImages counts images of date whose article_id matches no article of
// the same date.
func (s *Store) OrphanImages(ctx context.Context, date string) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM images i
		WHERE i.publication_date = ? AND i.article_id IS NOT NULL
		  AND NOT EXISTS (SELECT 1 FROM articles a
		                  WHERE a.id = i.article_id AND a.publication_date = i.publication_date)`,
		date).Scan(&n)
	return n, err
}
