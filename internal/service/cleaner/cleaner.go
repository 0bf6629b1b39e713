// Package cleaner removes what npm and node-gyp leave in the build directory.
package cleaner

import (
	"context"
	"fmt"
	"os"

	"github.com/oshokin/nodejs-buildpack/internal/domain/build"
	"github.com/oshokin/nodejs-buildpack/internal/logger"
)

// Clean removes <build>/.node-gyp, <build>/.npm and every extra directory.
// Missing directories are fine, so calling it twice is harmless.
func Clean(ctx context.Context, paths build.Paths, extra ...string) error {
	for _, dir := range append(paths.ScratchDirs(), extra...) {
		if dir == "" {
			continue
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		logger.DebugKV(ctx, "Removing scratch directory", "path", dir)

		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("remove %s: %w", dir, err)
		}
	}

	return nil
}
