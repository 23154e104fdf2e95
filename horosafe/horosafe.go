// CLAUDE:SUMMARY Path and identifier guards for names that end up in file paths (section ids, dates).
// Package horosafe guards values from configuration or callers before they
// are joined into file system paths.
package horosafe

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrPathTraversal is returned when a caller-supplied path escapes its base.
var ErrPathTraversal = errors.New("horosafe: path traversal detected")

// SafePath joins base and rel and verifies the result stays under base.
func SafePath(base, rel string) (string, error) {
	if strings.Contains(rel, "..") {
		return "", ErrPathTraversal
	}
	cleaned := filepath.Join(base, filepath.Clean("/"+rel))
	root := filepath.Clean(base)
	if cleaned != root && !strings.HasPrefix(cleaned, root+string(filepath.Separator)) {
		return "", ErrPathTraversal
	}
	return cleaned, nil
}

// ValidateIdentifier accepts ids usable as file name components: ASCII
// letters, digits, underscore, hyphen and dot, starting with a letter or
// digit, at most 64 bytes.
func ValidateIdentifier(s string) error {
	if s == "" {
		return fmt.Errorf("horosafe: identifier must not be empty")
	}
	if len(s) > 64 {
		return fmt.Errorf("horosafe: identifier too long (max 64)")
	}
	for i, r := range s {
		if !isIdentChar(r) || (i == 0 && !isAlnum(r)) {
			return fmt.Errorf("horosafe: invalid character %q in identifier %q", r, s)
		}
	}
	return nil
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func isIdentChar(r rune) bool {
	return isAlnum(r) || r == '_' || r == '-' || r == '.'
}
