package store

// Schema contains the complete DDL for the sintesis tables.
const Schema = `
-- Articles: one extracted news item (or image-backed stub) per row
CREATE TABLE IF NOT EXISTS articles (
    id               TEXT PRIMARY KEY,
    title            TEXT NOT NULL CHECK (title != ''),
    content          TEXT NOT NULL CHECK (content != ''),
    summary          TEXT NOT NULL,
    source           TEXT NOT NULL DEFAULT '',
    url              TEXT NOT NULL DEFAULT '',
    section_id       TEXT NOT NULL,
    publication_date TEXT NOT NULL,
    page_number      INTEGER NOT NULL DEFAULT 0,
    kind             TEXT NOT NULL DEFAULT 'text',
    strategy         TEXT NOT NULL DEFAULT '',
    created_at       INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_articles_section_date ON articles(section_id, publication_date);
CREATE INDEX IF NOT EXISTS idx_articles_date ON articles(publication_date);

-- Images: page rasters and placeholders, optionally linked to one article
CREATE TABLE IF NOT EXISTS images (
    id               TEXT PRIMARY KEY,
    filename         TEXT NOT NULL,
    path             TEXT NOT NULL DEFAULT '',
    title            TEXT NOT NULL DEFAULT '',
    description      TEXT NOT NULL DEFAULT '',
    article_id       TEXT,
    section_id       TEXT NOT NULL,
    publication_date TEXT NOT NULL,
    page_number      INTEGER NOT NULL DEFAULT 0,
    placeholder      INTEGER NOT NULL DEFAULT 0,
    created_at       INTEGER NOT NULL,
    FOREIGN KEY (article_id) REFERENCES articles(id) ON DELETE SET NULL
);
CREATE INDEX IF NOT EXISTS idx_images_section_date ON images(section_id, publication_date);
CREATE INDEX IF NOT EXISTS idx_images_date ON images(publication_date);
CREATE INDEX IF NOT EXISTS idx_images_article ON images(article_id) WHERE article_id IS NOT NULL;

-- Extraction runs: one row per run, written with the data it produced
CREATE TABLE IF NOT EXISTS extraction_runs (
    id               TEXT PRIMARY KEY,
    publication_date TEXT NOT NULL,
    pdf_path         TEXT NOT NULL DEFAULT '',
    status           TEXT NOT NULL,
    total_articles   INTEGER NOT NULL DEFAULT 0,
    total_images     INTEGER NOT NULL DEFAULT 0,
    errors           TEXT NOT NULL DEFAULT '[]',
    started_at       INTEGER NOT NULL,
    finished_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_date ON extraction_runs(publication_date, started_at DESC);
`
