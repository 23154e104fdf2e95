package sintesis

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestWatch_ExtractsWhenPDFLands(t *testing.T) {
	// WHAT: daemon mode runs today's extraction once the PDF shows up.
	clock := func() time.Time { return time.Date(2025, 6, 5, 15, 0, 0, 0, time.UTC) }
	env := newTestEnv(t, digestDoc(), WithClock(clock))
	env.cfg.Watch.Interval = 10 * time.Millisecond
	env.cfg.Watch.Debounce = 0

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		env.svc.Watch(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	time.Sleep(50 * time.Millisecond)
	if n := len(env.reader.readPaths()); n != 0 {
		t.Fatalf("extracted %d times before the PDF exists", n)
	}

	if err := os.MkdirAll(env.cfg.PDFDir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := env.cfg.PDFPath(testDate)
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && env.pub.count() == 0 {
		time.Sleep(10 * time.Millisecond)
	}
	if env.pub.count() != 1 {
		t.Fatalf("published = %d, want 1", env.pub.count())
	}
	if paths := env.reader.readPaths(); len(paths) != 1 || paths[0] != path {
		t.Errorf("read %v, want %s", paths, path)
	}
}
