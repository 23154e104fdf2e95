// Package idgen generates record identifiers for sintesis.
//
// Identifiers are UUIDv7 (RFC 9562) with a short type prefix, so rows sort by
// creation time and an id alone tells which table it belongs to:
//
//	art_0190f3c2-…   articles
//	img_0190f3c2-…   images
//	run_0190f3c2-…   extraction runs
package idgen

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator func() string

// UUIDv7 returns a Generator of time-sortable UUID v7 strings.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Prefixed wraps gen and prepends prefix to every ID.
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// Sequence returns a deterministic Generator ("<prefix>1", "<prefix>2", …).
// Not safe for concurrent use; meant for tests and golden output.
func Sequence(prefix string) Generator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

// Default is UUIDv7.
var Default Generator = UUIDv7()

// New produces an ID using Default.
func New() string {
	return Default()
}

// Article, Image and Run are the prefixed generators used by the store.
var (
	Article = Prefixed("art_", Default)
	Image   = Prefixed("img_", Default)
	Run     = Prefixed("run_", Default)
)

// Parse validates a (possibly prefixed) identifier and returns its UUID part.
func Parse(id string) (string, error) {
	raw := id
	if i := strings.IndexByte(id, '_'); i >= 0 {
		raw = id[i+1:]
	}
	u, err := uuid.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("idgen: invalid id %q: %w", id, err)
	}
	return u.String(), nil
}
