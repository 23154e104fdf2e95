// CLAUDE:SUMMARY Poll a version token, debounce changes, run an action; file detector for the PDF inbox.
// Package watch provides a "poll, detect change, debounce, act" loop.
//
// Typical usage:
//
//	w := watch.New(watch.Options{
//		Interval: 5 * time.Second,
//		Debounce: 30 * time.Second,
//		Detector: watch.FileVersion(func() string { return todayPDF() }),
//	})
//	go w.OnChange(ctx, func(ctx context.Context) error { return extract(ctx) })
package watch

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"sync/atomic"
	"time"
)

// Detector reads a version token. Two calls that return different values
// mean "something changed". Zero means "nothing there": it is recorded but
// never acted on.
type Detector func(ctx context.Context) (int64, error)

// Options tunes the watcher behaviour.
type Options struct {
	// Interval is the polling frequency. Default: 5s.
	Interval time.Duration
	// Debounce is the quiet period after a change before the action fires.
	// Further changes during the window restart it. 0 fires immediately.
	Debounce time.Duration
	// Detector is required.
	Detector Detector
	Logger   *slog.Logger
}

func (o *Options) defaults() {
	if o.Interval <= 0 {
		o.Interval = 5 * time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Watcher polls a Detector and runs an action when the token changes and
// then stays stable for the debounce window.
type Watcher struct {
	opts Options

	// version is the last token acted on (or recorded as absent).
	version atomic.Int64

	checks  atomic.Int64
	changes atomic.Int64
	errors  atomic.Int64
	fires   atomic.Int64
	fireNs  atomic.Int64
}

// Stats are point-in-time counters.
type Stats struct {
	Checks          int64         `json:"checks"`
	ChangesDetected int64         `json:"changes_detected"`
	Errors          int64         `json:"errors"`
	Fires           int64         `json:"fires"`
	AvgFireTime     time.Duration `json:"avg_fire_time"`
}

// New creates a Watcher. Call OnChange to start the loop.
func New(opts Options) *Watcher {
	opts.defaults()
	return &Watcher{opts: opts}
}

// Stats returns the current counters.
func (w *Watcher) Stats() Stats {
	s := Stats{
		Checks:          w.checks.Load(),
		ChangesDetected: w.changes.Load(),
		Errors:          w.errors.Load(),
		Fires:           w.fires.Load(),
	}
	if s.Fires > 0 {
		s.AvgFireTime = time.Duration(w.fireNs.Load() / s.Fires)
	}
	return s
}

// Version returns the last token acted on.
func (w *Watcher) Version() int64 { return w.version.Load() }

// OnChange blocks until ctx is cancelled. The initial token is zero, so a
// target already present at start counts as a change.
//
// If action returns an error the version is not advanced and the action
// runs again once the next poll sees the token.
func (w *Watcher) OnChange(ctx context.Context, action func(context.Context) error) {
	log := w.opts.Logger
	if w.opts.Detector == nil {
		log.Error("watch: no detector")
		return
	}

	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	var debounceTimer *time.Timer
	var debounceCh <-chan time.Time
	pending := int64(-1)

	log.Info("watch: started", "interval", w.opts.Interval, "debounce", w.opts.Debounce)

	for {
		select {
		case <-ctx.Done():
			log.Info("watch: stopped")
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case <-ticker.C:
			w.checks.Add(1)
			cur, err := w.opts.Detector(ctx)
			if err != nil {
				w.errors.Add(1)
				log.Warn("watch: version check failed", "error", err)
				continue
			}
			if cur == w.version.Load() || cur == pending {
				continue
			}
			w.changes.Add(1)
			pending = cur
			if w.opts.Debounce <= 0 {
				w.fire(ctx, action, pending)
				pending = -1
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.NewTimer(w.opts.Debounce)
			debounceCh = debounceTimer.C
			log.Debug("watch: change detected, debouncing", "pending_version", cur)

		case <-debounceCh:
			debounceCh = nil
			if pending >= 0 {
				w.fire(ctx, action, pending)
				pending = -1
			}
		}
	}
}

func (w *Watcher) fire(ctx context.Context, action func(context.Context) error, ver int64) {
	log := w.opts.Logger
	if ver == 0 {
		w.version.Store(0)
		return
	}
	log.Info("watch: change settled", "old_version", w.version.Load(), "new_version", ver)
	start := time.Now()
	if err := action(ctx); err != nil {
		w.errors.Add(1)
		log.Error("watch: action failed", "error", err, "version", ver)
		return
	}
	elapsed := time.Since(start)
	w.fires.Add(1)
	w.fireNs.Add(int64(elapsed))
	w.version.Store(ver)
	log.Info("watch: action complete", "version", ver, "duration", elapsed)
}

// FileVersion returns a Detector over the file named by path, re-evaluated
// on every poll so the target can follow the calendar. The token combines
// modification time and size; a missing file is zero.
func FileVersion(path func() string) Detector {
	return func(context.Context) (int64, error) {
		fi, err := os.Stat(path())
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		if err != nil {
			return 0, err
		}
		v := fi.ModTime().UnixNano()*31 + fi.Size()
		if v <= 0 {
			v = 1
		}
		return v, nil
	}
}
