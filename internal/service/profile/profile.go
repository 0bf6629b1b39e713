// Package profile writes the startup hook that puts the runtime on PATH.
package profile

import (
	"fmt"
	"os"

	"github.com/oshokin/nodejs-buildpack/internal/domain/build"
)

// DefaultFileMode is used for the hook script.
const DefaultFileMode os.FileMode = 0o644

// Script returns the hook contents. $HOME is the build directory at runtime.
func Script() string {
	return fmt.Sprintf("export PATH=\"%s:$HOME/bin:$HOME/node_modules/.bin:$PATH\";\n", build.DeployedNodeBinDir())
}

// Write (over)writes <build>/.profile.d/nodejs.sh. The result does not depend
// on previous runs.
func Write(paths build.Paths) error {
	if err := os.MkdirAll(paths.ProfileDir(), 0o755); err != nil {
		return fmt.Errorf("create profile directory: %w", err)
	}

	if err := os.WriteFile(paths.ProfileScript(), []byte(Script()), DefaultFileMode); err != nil {
		return fmt.Errorf("write profile script: %w", err)
	}

	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(paths.ProfileScript(), DefaultFileMode); err != nil {
		return fmt.Errorf("chmod profile script: %w", err)
	}

	return nil
}
