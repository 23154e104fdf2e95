// CLAUDE:SUMMARY Daemon mode: watch today's PDF path and run the extraction once the download settles.
// CLAUDE:DEPENDS watch
package sintesis

import (
	"context"

	"github.com/hazyhaar/sintesis/watch"
)

// Watch blocks until ctx is cancelled, extracting today's digest each time
// its PDF appears or changes and then stays unchanged for the debounce
// window. A failed extraction is retried on the next poll.
func (s *Service) Watch(ctx context.Context) {
	w := watch.New(watch.Options{
		Interval: s.cfg.Watch.Interval,
		Debounce: s.cfg.Watch.Debounce,
		Detector: watch.FileVersion(func() string { return s.cfg.PDFPath(s.Today()) }),
		Logger:   s.logger.With("component", "watch"),
	})
	w.OnChange(ctx, func(ctx context.Context) error {
		_, err := s.RunExtraction(ctx, "")
		return err
	})
}
