// CLAUDE:SUMMARY Per-run state machine Reading → Segmenting → ExtractingArticles → CorrelatingUrls → AssociatingImages → Persisting → Done|Failed.
// CLAUDE:DEPENDS docpipe, internal/sections, internal/articles, internal/links, internal/images, internal/store, idgen
package sintesis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/hazyhaar/sintesis/docpipe"
	"github.com/hazyhaar/sintesis/idgen"
	"github.com/hazyhaar/sintesis/internal/articles"
	"github.com/hazyhaar/sintesis/internal/images"
	"github.com/hazyhaar/sintesis/internal/links"
	"github.com/hazyhaar/sintesis/internal/sections"
	"github.com/hazyhaar/sintesis/internal/store"
)

// RunExtraction extracts the downloaded PDF of date (today in the configured
// timezone when empty) and replaces every stored record of that date.
func (s *Service) RunExtraction(ctx context.Context, date string) (*ExtractionResult, error) {
	if date == "" {
		date = s.Today()
	}
	return s.RunExtractionFile(ctx, date, s.cfg.PDFPath(date))
}

// RunExtractionFile is RunExtraction with an explicit PDF path.
//
// Non-fatal problems are collected in the result's Errors and the run
// still succeeds. A missing or invalid PDF, a storage failure or a run
// already holding the date returns a *RunError with the partial result.
func (s *Service) RunExtractionFile(ctx context.Context, date, pdfPath string) (*ExtractionResult, error) {
	runID := idgen.Run()
	res := &ExtractionResult{
		RunID:     runID,
		Date:      date,
		PDFPath:   pdfPath,
		State:     StateReading,
		Sections:  make(map[string]*SectionResult),
		Errors:    []ErrorRecord{},
		StartedAt: s.now(),
	}
	if err := checkDate(date); err != nil {
		res.State = StateFailed
		res.FinishedAt = s.now()
		return res, &RunError{Kind: KindSourceUnreadable, Stage: StateReading, Err: err}
	}

	logger := s.logger.With("date", date, "run_id", runID)

	release, err := s.locker.Lock(ctx, date)
	if err != nil {
		res.State = StateFailed
		res.FinishedAt = s.now()
		logger.Warn("sintesis: date is locked by another run", "error", err)
		return res, &RunError{Kind: KindRunInProgress, Stage: StateReading, Err: err}
	}
	defer release()

	r := &run{s: s, res: res, logger: logger}
	if err := r.execute(ctx); err != nil {
		res.State = StateFailed
		res.FinishedAt = s.now()
		r.recordFailure(err)
		logger.Error("sintesis: run failed", "error", err, "errors", len(res.Errors))
		return res, err
	}

	res.State = StateDone
	res.Success = true
	res.FinishedAt = s.now()
	logger.Info("sintesis: run done",
		"articles", res.TotalArticles,
		"images", res.TotalImages,
		"placeholders", res.Placeholders,
		"errors", len(res.Errors),
		"duration_ms", res.FinishedAt.Sub(res.StartedAt).Milliseconds(),
	)

	if err := s.pub.Publish(ctx, date, res, map[string]string{"run_id": runID}); err != nil {
		logger.Warn("sintesis: publish result failed", "error", err)
	}
	return res, nil
}

// run carries the state of one extraction.
type run struct {
	s      *Service
	res    *ExtractionResult
	logger *slog.Logger

	doc      *docpipe.Document
	secs     []sections.Section
	text     []*textSection
	textless []int // catch-all pages that become images

	arts []store.Article
	imgs []store.Image
}

// textSection holds drafts of one section with their pre-assigned ids.
type textSection struct {
	sec    sections.Section
	drafts []articles.Draft
	ids    []string
}

func (r *run) execute(ctx context.Context) error {
	if err := r.read(ctx); err != nil {
		return err
	}
	r.enter(StateSegmenting)
	r.segment()
	r.enter(StateExtractingArticles)
	r.extractArticles()
	r.enter(StateCorrelatingUrls)
	r.correlate()
	r.enter(StateAssociatingImages)
	r.associate(ctx)
	r.enter(StatePersisting)
	return r.persist(ctx)
}

func (r *run) enter(st State) {
	r.res.State = st
	r.logger.Debug("sintesis: stage", "stage", st)
}

func (r *run) record(kind ErrorKind, sectionID string, page int, msg string) {
	r.res.Errors = append(r.res.Errors, ErrorRecord{
		Kind: kind, Stage: r.res.State, SectionID: sectionID, Page: page, Message: msg,
	})
	if sr := r.res.Sections[sectionID]; sr != nil {
		sr.Errors++
	}
}

// guard runs fn and turns a panic into a recorded error of kind.
func (r *run) guard(kind ErrorKind, sectionID string, fn func()) (ok bool) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("sintesis: stage panic recovered",
				"stage", r.res.State, "section", sectionID, "panic", p, "stack", string(debug.Stack()))
			r.record(kind, sectionID, 0, fmt.Sprintf("panic: %v", p))
			ok = false
		}
	}()
	fn()
	return true
}

// --- Reading ---

func (r *run) read(ctx context.Context) error {
	doc, err := r.s.reader.ReadPages(ctx, r.res.PDFPath)
	if err != nil {
		return &RunError{Kind: KindSourceUnreadable, Stage: StateReading, Err: err}
	}
	r.doc = doc
	r.res.TotalPages = doc.TotalPages
	r.res.Quality = doc.Quality
	for _, f := range doc.Failures {
		r.record(KindToolInvocationFailed, "", f.Page, f.Error())
	}
	return nil
}

// --- Segmenting ---

func (r *run) segment() {
	var diags []sections.Diagnostic
	ok := r.guard(KindSectionNotDetected, "", func() {
		r.secs, diags = sections.Build(r.doc.Pages, r.s.cfg.Sections, r.s.cfg.segmentation())
	})
	if !ok {
		// Nothing segmented: every page goes to the catch-all section.
		all := sections.Section{
			ID: sections.Unclassified, Name: "Sin clasificar", Type: sections.TypeMixed,
			Strategy: sections.StrategyCatchAll, Detection: sections.DetectedCatchAll,
			Start: 1, End: r.doc.TotalPages,
		}
		for _, p := range r.doc.Pages {
			all.Pages = append(all.Pages, p.Number)
		}
		r.secs = []sections.Section{all}
	}
	for _, sec := range r.secs {
		r.res.Sections[sec.ID] = &SectionResult{
			ID: sec.ID, Name: sec.Name, Type: sec.Type, Detection: sec.Detection, Pages: sec.Pages,
		}
	}
	for _, d := range diags {
		r.record(KindSectionNotDetected, d.SectionID, d.Page, d.Message)
	}
	r.logger.Info("sintesis: sections built", "sections", len(r.secs), "not_detected", len(diags))
}

// --- ExtractingArticles ---

func (r *run) extractArticles() {
	manifest, err := LoadManifest(r.s.cfg.ManifestDir, r.res.Date)
	if err != nil {
		r.record(KindManifestInvalid, "", 0, err.Error())
	}

	for _, sec := range r.secs {
		sr := r.res.Sections[sec.ID]
		switch sec.Type {
		case sections.TypeText:
			ts := &textSection{sec: sec}
			r.guard(KindArticleBoundaryAmbiguous, sec.ID, func() {
				drafts, diags := r.s.extractor.Extract(sec, r.doc.Pages, manifest.Anchors[sec.ID])
				ts.drafts = drafts
				for _, d := range diags {
					r.record(KindArticleBoundaryAmbiguous, d.SectionID, d.Page, d.Message)
				}
			})
			r.text = append(r.text, ts)
			sr.Processed = true
		case sections.TypeMixed:
			ts := &textSection{sec: sec}
			for _, n := range sec.Pages {
				page := r.doc.Page(n)
				if page == nil {
					continue
				}
				var d articles.Draft
				var ok bool
				r.guard(KindArticleBoundaryAmbiguous, sec.ID, func() {
					d, ok = r.s.extractor.PageDraft(sec, *page)
				})
				if ok {
					ts.drafts = append(ts.drafts, d)
				} else {
					r.textless = append(r.textless, n)
				}
			}
			r.text = append(r.text, ts)
			sr.Processed = true
		}
	}

	total := 0
	for _, ts := range r.text {
		ts.ids = make([]string, len(ts.drafts))
		for i := range ts.drafts {
			ts.ids[i] = idgen.Article()
		}
		total += len(ts.drafts)
	}
	r.logger.Info("sintesis: articles extracted", "articles", total)
}

// --- CorrelatingUrls ---

func (r *run) correlate() {
	var st links.Stats
	for _, ts := range r.text {
		if len(ts.drafts) == 0 {
			continue
		}
		r.guard(KindToolInvocationFailed, ts.sec.ID, func() {
			s := links.Correlate(ts.drafts, links.SectionLinks(ts.sec, r.doc.Pages))
			st.Annotations += s.Annotations
			st.FromLinks += s.FromLinks
			st.FromText += s.FromText
			st.Missing += s.Missing
			r.res.Sections[ts.sec.ID].URLs = s.FromLinks + s.FromText
		})
	}
	r.logger.Info("sintesis: urls correlated",
		"annotations", st.Annotations, "from_links", st.FromLinks, "from_text", st.FromText, "missing", st.Missing)
}

// --- AssociatingImages ---

func (r *run) associate(ctx context.Context) {
	cfg := r.s.cfg
	var refs []images.ArticleRef
	for _, ts := range r.text {
		for i, d := range ts.drafts {
			refs = append(refs, images.ArticleRef{ID: ts.ids[i], Source: d.Source, SectionID: d.SectionID})
		}
	}
	var digest []string
	for _, d := range cfg.Sections {
		if d.Strategy == sections.StrategyAnchors {
			digest = append(digest, d.ID)
		}
	}
	names := make(map[int][]string)
	for _, p := range r.doc.Pages {
		if len(p.ImageNames) > 0 {
			names[p.Number] = p.ImageNames
		}
	}
	assoc := images.New(images.Config{
		AssetDir:       cfg.AssetDir,
		Newspapers:     cfg.Newspapers,
		CreateStubs:    cfg.CreateStubs,
		SummaryLen:     cfg.Articles.SummaryLen,
		DigestSections: digest,
		ImageNames:     names,
	}, r.s.reader, r.s.reader, idgen.Article, refs, r.logger)

	for _, sec := range r.secs {
		var pages []int
		switch sec.Type {
		case sections.TypeImage:
			pages = sec.Pages
		case sections.TypeMixed:
			pages = r.textless
		}
		if len(pages) == 0 {
			continue
		}

		var out images.SectionResult
		ok := r.guard(KindImageAssociationFailed, sec.ID, func() {
			out = assoc.Associate(ctx, r.res.Date, r.res.PDFPath, sec, pages)
		})
		if !ok || len(out.Images) != len(pages) {
			out = assoc.Placeholders(r.res.Date, sec, pages)
		}

		for _, d := range out.Diags {
			kind := KindImageAssociationFailed
			if d.Kind == images.DiagTool {
				kind = KindToolInvocationFailed
			}
			r.record(kind, d.SectionID, d.Page, d.Message)
		}
		for _, im := range out.Images {
			r.imgs = append(r.imgs, store.Image{
				ID:              idgen.Image(),
				Filename:        im.Filename,
				Path:            im.Path,
				Title:           im.Title,
				Description:     im.Description,
				ArticleID:       im.ArticleID,
				SectionID:       im.SectionID,
				PublicationDate: r.res.Date,
				PageNumber:      im.PageNumber,
				Placeholder:     im.Placeholder,
			})
		}
		if len(out.Stubs) > 0 {
			ts := &textSection{sec: sec}
			for _, st := range out.Stubs {
				ts.drafts = append(ts.drafts, st.Draft)
				ts.ids = append(ts.ids, st.ID)
			}
			r.text = append(r.text, ts)
		}
		r.res.Placeholders += out.Placeholders
		r.res.Sections[sec.ID].Processed = true
	}
	r.logger.Info("sintesis: images associated", "images", len(r.imgs), "placeholders", r.res.Placeholders)
}

// --- Persisting ---

func (r *run) persist(ctx context.Context) error {
	for _, ts := range r.text {
		for i, d := range ts.drafts {
			r.arts = append(r.arts, store.Article{
				ID:              ts.ids[i],
				Title:           d.Title,
				Content:         d.Content,
				Summary:         d.Summary,
				Source:          d.Source,
				URL:             d.URL,
				SectionID:       d.SectionID,
				PublicationDate: r.res.Date,
				PageNumber:      d.PageNumber,
				Kind:            d.Kind,
				Strategy:        d.Strategy,
			})
		}
	}

	r.res.TotalArticles = len(r.arts)
	r.res.TotalImages = len(r.imgs)
	for _, a := range r.arts {
		if sr := r.res.Sections[a.SectionID]; sr != nil {
			sr.Articles++
		}
	}
	for _, im := range r.imgs {
		if sr := r.res.Sections[im.SectionID]; sr != nil {
			sr.Images++
		}
	}

	row := r.runRow(store.RunDone)
	if err := r.s.store.ReplaceDate(ctx, r.res.Date, r.arts, r.imgs, row); err != nil {
		return &RunError{Kind: KindPersistenceFailed, Stage: StatePersisting, Err: err}
	}
	r.logger.Info("sintesis: persisted", "articles", len(r.arts), "images", len(r.imgs))
	return nil
}

func (r *run) runRow(status string) *store.Run {
	errs, err := json.Marshal(r.res.Errors)
	if err != nil {
		errs = []byte("[]")
	}
	return &store.Run{
		ID:            r.res.RunID,
		Date:          r.res.Date,
		PDFPath:       r.res.PDFPath,
		Status:        status,
		TotalArticles: r.res.TotalArticles,
		TotalImages:   r.res.TotalImages,
		Errors:        string(errs),
		StartedAt:     r.res.StartedAt.UnixMilli(),
		FinishedAt:    r.s.now().UnixMilli(),
	}
}

// recordFailure logs a failed run outside the domain transaction. The
// date's previous records are untouched.
func (r *run) recordFailure(err error) {
	rec := ErrorRecord{Kind: KindPersistenceFailed, Stage: StatePersisting, Message: err.Error()}
	var re *RunError
	if errors.As(err, &re) {
		rec.Kind, rec.Stage = re.Kind, re.Stage
	}
	r.res.Errors = append(r.res.Errors, rec)

	row := r.runRow(store.RunFailed)
	row.TotalArticles, row.TotalImages = 0, 0
	if werr := r.s.store.RecordRun(context.Background(), row); werr != nil {
		r.logger.Warn("sintesis: run log write failed", "error", werr)
	}
	r.res.TotalArticles, r.res.TotalImages = 0, 0
}
