// Package envfile imports KEY=VALUE assignments handed to the compile step.
package envfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/hashicorp/go-envparse"
)

// denied are never imported: they would break the tools the build itself runs.
//
//nolint:gochecknoglobals // Fixed list, read only.
var denied = map[string]struct{}{
	"PATH":         {},
	"GIT_DIR":      {},
	"CPATH":        {},
	"CPPATH":       {},
	"LD_PRELOAD":   {},
	"LIBRARY_PATH": {},
}

// Denied reports whether key is filtered out on import.
func Denied(key string) bool {
	_, ok := denied[key]
	return ok
}

// Read parses the env file at path and returns the allowed assignments as
// KEY=VALUE entries sorted by key. An empty path or a missing file yields nothing.
// Values are taken verbatim: $VAR and ${VAR} references are not expanded.
func Read(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}

	file, err := os.Open(filepath.Clean(path))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("open env file: %w", err)
	}

	defer func() {
		_ = file.Close()
	}()

	env, err := envparse.Parse(file)
	if err != nil {
		return nil, fmt.Errorf("parse env file: %w", err)
	}

	return Filter(env), nil
}

// Filter drops denied keys and renders the rest as KEY=VALUE.
func Filter(env map[string]string) []string {
	result := make([]string, 0, len(env))

	keys := make([]string, 0, len(env))
	for key := range env {
		keys = append(keys, key)
	}

	slices.Sort(keys)

	for _, key := range keys {
		if Denied(key) {
			continue
		}

		result = append(result, key+"="+env[key])
	}

	return result
}
