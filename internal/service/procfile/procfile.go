// Package procfile declares the web process of an application that has none.
package procfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/oshokin/nodejs-buildpack/internal/domain/build"
	"github.com/oshokin/nodejs-buildpack/internal/logger"
	"github.com/oshokin/nodejs-buildpack/internal/manifest"
)

const (
	// WebEntry is the whole Procfile written for the application.
	WebEntry = "web: npm start\n"

	// DefaultFileMode is used for the generated Procfile.
	DefaultFileMode os.FileMode = 0o644
)

var errManifestNotSet = errors.New("manifest is not set")

// Declare writes WebEntry to <build>/Procfile when the file is absent and npm
// start has something to run: a start script, or defaultEntry in the build
// directory. It reports whether the file was written. When neither is there a
// tip is logged and nothing is written; an existing Procfile is never touched.
func Declare(ctx context.Context, paths build.Paths, m *manifest.Manifest, defaultEntry string) (bool, error) {
	if m == nil {
		return false, errManifestNotSet
	}

	exists, err := fileExists(paths.Procfile())
	if err != nil {
		return false, err
	}

	if exists {
		logger.DebugKV(ctx, "Keeping existing Procfile", "path", paths.Procfile())
		return false, nil
	}

	startable := m.StartScript() != ""

	if !startable && defaultEntry != "" {
		if startable, err = fileExists(filepath.Join(paths.BuildDir, defaultEntry)); err != nil {
			return false, err
		}
	}

	if !startable {
		logger.Tip(ctx, "No Procfile and no package.json start script")
		return false, nil
	}

	if err = os.WriteFile(paths.Procfile(), []byte(WebEntry), DefaultFileMode); err != nil {
		return false, fmt.Errorf("write Procfile: %w", err)
	}

	logger.InfoKV(ctx, "Created Procfile", "entry", strings.TrimSpace(WebEntry))

	return true, nil
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("stat %s: %w", filepath.Base(path), err)
	}
}
