// CLAUDE:SUMMARY Bounded subprocess runner for pdftotext/pdftoppm/tesseract with one retry on timeout.
package docpipe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// toolRunner invokes external binaries. Lookups are cached per binary name.
type toolRunner struct {
	timeout      time.Duration
	retryTimeout time.Duration

	mu    sync.Mutex
	paths map[string]string
	miss  map[string]error
}

func newToolRunner(cfg ToolConfig) *toolRunner {
	return &toolRunner{
		timeout:      cfg.Timeout,
		retryTimeout: cfg.RetryTimeout,
		paths:        make(map[string]string),
		miss:         make(map[string]error),
	}
}

// lookPath resolves name on PATH, wrapping failures in ErrToolUnavailable.
func (t *toolRunner) lookPath(name string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.paths[name]; ok {
		return p, nil
	}
	if err, ok := t.miss[name]; ok {
		return "", err
	}
	p, err := exec.LookPath(name)
	if err != nil {
		err = fmt.Errorf("%w: %s", ErrToolUnavailable, name)
		t.miss[name] = err
		return "", err
	}
	t.paths[name] = p
	return p, nil
}

// available reports whether name resolves on PATH.
func (t *toolRunner) available(name string) bool {
	_, err := t.lookPath(name)
	return err == nil
}

// run executes name with args and returns stdout. A timed-out attempt is
// retried once with the shorter retry timeout; any other failure is final.
func (t *toolRunner) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	bin, err := t.lookPath(name)
	if err != nil {
		return nil, err
	}
	out, err := t.runOnce(ctx, bin, t.timeout, args)
	if errors.Is(err, ErrToolTimeout) && t.retryTimeout > 0 && ctx.Err() == nil {
		out, err = t.runOnce(ctx, bin, t.retryTimeout, args)
	}
	return out, err
}

func (t *toolRunner) runOnce(ctx context.Context, bin string, timeout time.Duration, args []string) ([]byte, error) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(cctx, bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if errors.Is(cctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w: %s after %s", ErrToolTimeout, bin, timeout)
		}
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 300 {
			msg = msg[:300]
		}
		if msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", bin, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", bin, err)
	}
	return stdout.Bytes(), nil
}
