// CLAUDE:SUMMARY Per-issue manifest: known anchor titles per section, loaded from <manifest_dir>/<date>.yaml.
package sintesis

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/sintesis/horosafe"
	"github.com/hazyhaar/sintesis/internal/articles"
)

// Manifest is the reference title set of one issue.
type Manifest struct {
	Date    string                       `yaml:"date"`
	Anchors map[string][]articles.Anchor `yaml:"anchors"`
}

// ManifestPath returns <dir>/<date>.yaml.
func ManifestPath(dir, date string) string {
	return filepath.Join(dir, date+".yaml")
}

// LoadManifest reads the manifest for date. A missing file yields an empty
// manifest and no error.
func LoadManifest(dir, date string) (*Manifest, error) {
	m := &Manifest{Date: date}
	if dir == "" {
		return m, nil
	}
	path, err := horosafe.SafePath(dir, date+".yaml")
	if err != nil {
		return m, fmt.Errorf("manifest %s: %w", date, err)
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return m, err
	}
	if err := yaml.Unmarshal(data, m); err != nil {
		return &Manifest{Date: date}, fmt.Errorf("manifest %s: %w", date, err)
	}
	if m.Date != "" && m.Date != date {
		return &Manifest{Date: date}, fmt.Errorf("manifest %s: dated %s", date, m.Date)
	}
	m.Date = date
	return m, nil
}
