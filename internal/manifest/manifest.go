// Package manifest reads the fields of package.json the compile step cares about.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Manifest is the subset of package.json consulted by the pipeline.
// Absent fields and JSON nulls both decode to empty strings.
type Manifest struct {
	Engines struct {
		Node string `json:"node"`
		Npm  string `json:"npm"`
	} `json:"engines"`
	Scripts struct {
		Start string `json:"start"`
	} `json:"scripts"`
}

// Read parses the manifest at path. The file must exist.
func Read(path string) (*Manifest, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	return Parse(contents)
}

// Parse decodes manifest contents.
func Parse(contents []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(contents, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	return &m, nil
}

// NodeRange returns engines.node, or "" when unset.
func (m *Manifest) NodeRange() string {
	return m.Engines.Node
}

// NpmRange returns engines.npm, or "" when unset.
func (m *Manifest) NpmRange() string {
	return m.Engines.Npm
}

// StartScript returns scripts.start, or "" when unset.
func (m *Manifest) StartScript() string {
	return m.Scripts.Start
}
