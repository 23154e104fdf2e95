// CLAUDE:SUMMARY sintesis Service: wires page reader, store, locks and publisher; trigger and query entry points.
// CLAUDE:DEPENDS docpipe, idgen, internal/store, internal/lock, internal/notify, internal/articles
// CLAUDE:EXPORTS Service, New, Option, PageReader, WithReader, WithStore, WithLocker, WithPublisher, WithClock
package sintesis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/sintesis/docpipe"
	"github.com/hazyhaar/sintesis/idgen"
	"github.com/hazyhaar/sintesis/internal/articles"
	"github.com/hazyhaar/sintesis/internal/lock"
	"github.com/hazyhaar/sintesis/internal/notify"
	"github.com/hazyhaar/sintesis/internal/store"
)

// PageReader is the raw page reader contract; *docpipe.Reader satisfies it.
type PageReader interface {
	ReadPages(ctx context.Context, path string) (*docpipe.Document, error)
	Rasterize(ctx context.Context, pdfPath string, pages []int, outDir string) map[int]docpipe.RasterResult
	OCRAvailable() bool
	Recognize(ctx context.Context, imagePath string) (string, error)
}

// Service runs extractions and serves their results.
type Service struct {
	cfg       *Config
	logger    *slog.Logger
	loc       *time.Location
	reader    PageReader
	store     *store.Store
	extractor *articles.Extractor
	local     *lock.Local
	locker    lock.Locker
	redis     *lock.Redis
	pub       notify.Publisher
	now       func() time.Time
	ownsStore bool
}

// Option customises a Service.
type Option func(*Service)

// WithReader replaces the docpipe page reader.
func WithReader(r PageReader) Option { return func(s *Service) { s.reader = r } }

// WithStore uses an already opened store; Close will not close it.
func WithStore(st *store.Store) Option { return func(s *Service) { s.store = st } }

// WithLocker replaces the per-date locker (in-process mutex plus Redis when
// configured).
func WithLocker(l lock.Locker) Option { return func(s *Service) { s.locker = l } }

// WithPublisher replaces the result publisher.
func WithPublisher(p notify.Publisher) Option { return func(s *Service) { s.pub = p } }

// WithClock sets the time source used for "today" and timestamps.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// New creates a Service. cfg is completed with defaults and validated.
func New(cfg *Config, logger *slog.Logger, opts ...Option) (*Service, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg.defaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("sintesis: config: %w", err)
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, err
	}

	s := &Service{
		cfg:    cfg,
		logger: logger,
		loc:    loc,
		local:  &lock.Local{},
		now:    time.Now,
		extractor: articles.New(articles.Config{
			MaxTitleLen:   cfg.Articles.MaxTitleLen,
			MinContentLen: cfg.Articles.MinContentLen,
			SummaryLen:    cfg.Articles.SummaryLen,
			Newspapers:    cfg.Newspapers,
		}),
	}
	for _, o := range opts {
		o(s)
	}

	if s.reader == nil {
		s.reader = docpipe.New(docpipe.Config{Tools: cfg.Tools, Raster: cfg.Raster, Logger: logger})
	}
	if s.store == nil {
		st, err := store.Open(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("sintesis: open store: %w", err)
		}
		s.store = st
		s.ownsStore = true
	}
	if s.locker == nil {
		s.locker = s.local
		if cfg.Lock.Addr != "" {
			r, err := lock.NewRedis(context.Background(), cfg.Lock, logger)
			if err != nil {
				s.Close()
				return nil, fmt.Errorf("sintesis: redis lock: %w", err)
			}
			s.redis = r
			s.locker = lock.Chain{s.local, r}
		}
	}
	if s.pub == nil {
		s.pub = notify.New(cfg.Notify, logger)
	}
	return s, nil
}

// Today returns the current date in the configured timezone.
func (s *Service) Today() string {
	return s.now().In(s.loc).Format(time.DateOnly)
}

// Sections returns the configured section table.
func (s *Service) Sections() []SectionDefinition {
	return append([]SectionDefinition(nil), s.cfg.Sections...)
}

// Articles lists persisted articles.
func (s *Service) Articles(ctx context.Context, f Filter) ([]*Article, error) {
	if err := checkDate(f.Date); err != nil {
		return nil, err
	}
	return s.store.ListArticles(ctx, f)
}

// Article returns one persisted article by id, nil when absent.
func (s *Service) Article(ctx context.Context, id string) (*Article, error) {
	if _, err := idgen.Parse(id); err != nil {
		return nil, fmt.Errorf("sintesis: %w", err)
	}
	return s.store.GetArticle(ctx, id)
}

// Images lists persisted images.
func (s *Service) Images(ctx context.Context, f Filter) ([]*Image, error) {
	if err := checkDate(f.Date); err != nil {
		return nil, err
	}
	return s.store.ListImages(ctx, f)
}

// Runs lists extraction runs for date, or the latest runs when date is empty.
func (s *Service) Runs(ctx context.Context, date string) ([]*Run, error) {
	if date != "" {
		if err := checkDate(date); err != nil {
			return nil, err
		}
	}
	return s.store.ListRuns(ctx, date, 0)
}

// Counts returns per-section row counts for date.
func (s *Service) Counts(ctx context.Context, date string) (map[string]SectionCount, error) {
	if err := checkDate(date); err != nil {
		return nil, err
	}
	return s.store.CountBySection(ctx, date)
}

// Close releases the store, lock and publisher.
func (s *Service) Close() error {
	var errs []error
	if s.pub != nil {
		errs = append(errs, s.pub.Close())
	}
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	if s.ownsStore && s.store != nil {
		errs = append(errs, s.store.Close())
	}
	return errors.Join(errs...)
}

func checkDate(date string) error {
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		return fmt.Errorf("sintesis: invalid date %q (want YYYY-MM-DD)", date)
	}
	return nil
}
