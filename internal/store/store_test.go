package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/sintesis/dbopen"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db := dbopen.OpenMemory(t)
	if _, err := db.Exec(Schema); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return &Store{DB: db}
}

func article(id, date, section string) Article {
	return Article{
		ID: id, Title: "Título " + id, Content: "Contenido de " + id, Summary: "Contenido de " + id,
		Source: "Reforma", SectionID: section, PublicationDate: date, PageNumber: 1, Kind: "text",
	}
}

func image(id, date, section, articleID string) Image {
	return Image{
		ID: id, Filename: id + ".png", Title: "Imagen " + id, SectionID: section,
		PublicationDate: date, PageNumber: 3, ArticleID: articleID,
	}
}

func TestReplaceDate_ClearsOnlyThatDate(t *testing.T) {
	// WHAT: re-running a date deletes its prior rows before inserting; other
	// dates keep theirs.
	// WHY: clear-and-replace is what makes re-extraction idempotent.
	s := testStore(t)
	ctx := context.Background()

	old := []Article{article("a1", "2025-06-05", "ocho-columnas"), article("a2", "2025-06-05", "ocho-columnas")}
	oldImgs := []Image{image("i1", "2025-06-05", "primeras-planas", "a1")}
	if err := s.ReplaceDate(ctx, "2025-06-05", old, oldImgs, &Run{ID: "r1", Date: "2025-06-05", Status: RunDone}); err != nil {
		t.Fatalf("first replace: %v", err)
	}
	other := []Article{article("b1", "2025-06-04", "ocho-columnas")}
	if err := s.ReplaceDate(ctx, "2025-06-04", other, nil, nil); err != nil {
		t.Fatalf("other date: %v", err)
	}

	fresh := []Article{article("a3", "2025-06-05", "ocho-columnas")}
	freshImgs := []Image{image("i2", "2025-06-05", "primeras-planas", ""), image("i3", "2025-06-05", "cartones", "")}
	if err := s.ReplaceDate(ctx, "2025-06-05", fresh, freshImgs, &Run{ID: "r2", Date: "2025-06-05", Status: RunDone}); err != nil {
		t.Fatalf("second replace: %v", err)
	}

	arts, err := s.ListArticles(ctx, Filter{Date: "2025-06-05"})
	if err != nil {
		t.Fatal(err)
	}
	if len(arts) != 1 || arts[0].ID != "a3" {
		t.Fatalf("articles = %+v, want only a3", arts)
	}
	imgs, _ := s.ListImages(ctx, Filter{Date: "2025-06-05"})
	if len(imgs) != 2 {
		t.Fatalf("images = %d, want 2", len(imgs))
	}
	kept, _ := s.ListArticles(ctx, Filter{Date: "2025-06-04"})
	if len(kept) != 1 || kept[0].ID != "b1" {
		t.Fatalf("unrelated date changed: %+v", kept)
	}

	runs, _ := s.ListRuns(ctx, "2025-06-05", 0)
	if len(runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(runs))
	}
}

func TestReplaceDate_RejectsInvalidSetAndKeepsOld(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	if err := s.ReplaceDate(ctx, "2025-06-05", []Article{article("a1", "2025-06-05", "x")}, nil, nil); err != nil {
		t.Fatal(err)
	}

	bad := article("a2", "2025-06-05", "x")
	bad.Content = ""
	err := s.ReplaceDate(ctx, "2025-06-05", []Article{bad}, nil, nil)
	if !errors.Is(err, ErrInvalidArticle) {
		t.Fatalf("err = %v, want ErrInvalidArticle", err)
	}

	err = s.ReplaceDate(ctx, "2025-06-05", []Article{article("a3", "2025-06-05", "x")},
		[]Image{image("i1", "2025-06-05", "x", "missing")}, nil)
	if !errors.Is(err, ErrOrphanImage) {
		t.Fatalf("err = %v, want ErrOrphanImage", err)
	}

	arts, _ := s.ListArticles(ctx, Filter{Date: "2025-06-05"})
	if len(arts) != 1 || arts[0].ID != "a1" {
		t.Fatalf("previous set lost: %+v", arts)
	}
}

func TestReplaceDate_RollbackOnInsertFailure(t *testing.T) {
	// WHAT: a failure mid-transaction leaves the previous set intact.
	s := testStore(t)
	ctx := context.Background()
	if err := s.ReplaceDate(ctx, "2025-06-05", []Article{article("a1", "2025-06-05", "x")}, nil, nil); err != nil {
		t.Fatal(err)
	}
	dup := []Article{article("a2", "2025-06-05", "x"), article("a2", "2025-06-05", "x")}
	if err := s.ReplaceDate(ctx, "2025-06-05", dup, nil, nil); err == nil {
		t.Fatal("duplicate ids should fail")
	}
	arts, _ := s.ListArticles(ctx, Filter{Date: "2025-06-05"})
	if len(arts) != 1 || arts[0].ID != "a1" {
		t.Fatalf("rollback failed: %+v", arts)
	}
}

func TestListFiltersAndCounts(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	var arts []Article
	for i := 0; i < 3; i++ {
		arts = append(arts, article(fmt.Sprintf("a%d", i), "2025-06-05", "ocho-columnas"))
	}
	arts = append(arts, article("s1", "2025-06-05", "scjn"))
	imgs := []Image{
		image("i1", "2025-06-05", "primeras-planas", "a0"),
		image("i2", "2025-06-05", "primeras-planas", ""),
	}
	imgs[1].Placeholder = true
	if err := s.ReplaceDate(ctx, "2025-06-05", arts, imgs, nil); err != nil {
		t.Fatal(err)
	}

	got, _ := s.ListArticles(ctx, Filter{Date: "2025-06-05", SectionID: "scjn"})
	if len(got) != 1 || got[0].ID != "s1" {
		t.Fatalf("section filter = %+v", got)
	}
	got, _ = s.ListArticles(ctx, Filter{Date: "2025-06-05", Limit: 2})
	if len(got) != 2 {
		t.Fatalf("limit = %d", len(got))
	}

	ims, _ := s.ListImages(ctx, Filter{Date: "2025-06-05", SectionID: "primeras-planas"})
	if len(ims) != 2 || ims[0].ArticleID != "a0" || ims[1].ArticleID != "" || !ims[1].Placeholder {
		t.Fatalf("images = %+v", ims)
	}

	counts, err := s.CountBySection(ctx, "2025-06-05")
	if err != nil {
		t.Fatal(err)
	}
	if counts["ocho-columnas"].Articles != 3 || counts["primeras-planas"].Images != 2 || counts["scjn"].Articles != 1 {
		t.Fatalf("counts = %+v", counts)
	}
	if n, err := s.OrphanImages(ctx, "2025-06-05"); err != nil || n != 0 {
		t.Fatalf("orphans = %d, %v", n, err)
	}

	a, err := s.GetArticle(ctx, "a1")
	if err != nil || a == nil || a.Source != "Reforma" {
		t.Fatalf("get = %+v, %v", a, err)
	}
	if a, err := s.GetArticle(ctx, "nope"); a != nil || err != nil {
		t.Fatalf("missing = %+v, %v", a, err)
	}
}

func TestRecordRunAndOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "sintesis.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	ctx := context.Background()
	if err := s.RecordRun(ctx, &Run{ID: "r1", Date: "2025-06-05", Status: RunFailed, Errors: `[{"kind":"SourceUnreadable"}]`}); err != nil {
		t.Fatal(err)
	}
	runs, err := s.ListRuns(ctx, "", 10)
	if err != nil || len(runs) != 1 || runs[0].Status != RunFailed {
		t.Fatalf("runs = %+v, %v", runs, err)
	}
}
