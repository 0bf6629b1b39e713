package compile

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/nodejs-buildpack/internal/cache"
	"github.com/oshokin/nodejs-buildpack/internal/config"
	"github.com/oshokin/nodejs-buildpack/internal/service/common"
	"github.com/oshokin/nodejs-buildpack/internal/service/common/mocks"
	"github.com/oshokin/nodejs-buildpack/internal/testutil"
)

func newConfig(dist *testutil.Dist) *config.Config {
	cfg := config.Default()
	cfg.ResolverURL = dist.URL
	cfg.DownloadURL = dist.DownloadTemplate()

	return cfg
}

func writeManifest(t *testing.T, dir, contents string) {
	t.Helper()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte(contents), 0o600))
}

// TestRun_Pipeline runs every stage against fakes.
func TestRun_Pipeline(t *testing.T) {
	t.Parallel()

	dist := testutil.NewDist(t, map[string]string{"node": "0.10.28"})
	dist.AddArchive(cache.Key("0.10.28", "linux-x64"), testutil.NodeTarball(t, "0.10.28", "linux-x64"))

	buildDir := t.TempDir()
	cacheDir := filepath.Join(t.TempDir(), "cache")
	writeManifest(t, buildDir, `{"engines":{"node":"0.10.x"},"scripts":{"start":"node app.js"}}`)

	runner := mocks.NewMockRunner(gomock.NewController(t))
	runner.EXPECT().
		Run(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, cmd common.Command) error {
			require.Equal(t, filepath.Join(buildDir, "vendor", "node", "bin"), cmd.SearchPath[0])
			require.Equal(t, "/usr/bin", cmd.SearchPath[1])

			// npm leaves scratch directories behind.
			require.NoError(t, os.MkdirAll(filepath.Join(buildDir, ".npm", "_cacache"), 0o755))
			require.NoError(t, os.MkdirAll(filepath.Join(buildDir, "node_modules"), 0o755))

			return nil
		})

	err := Run(context.Background(), &Options{
		BuildDir:   buildDir,
		CacheDir:   cacheDir,
		Config:     newConfig(dist),
		Runner:     runner,
		SearchPath: []string{"/usr/bin"},
		Output:     new(bytes.Buffer),
	})
	require.NoError(t, err)

	require.Equal(t, []string{"0.10.x"}, dist.Ranges("node"))
	require.FileExists(t, filepath.Join(cacheDir, cache.Key("0.10.28", "linux-x64")))
	require.FileExists(t, filepath.Join(buildDir, "vendor", "node", "bin", "node"))
	require.DirExists(t, filepath.Join(buildDir, "node_modules"))
	require.NoDirExists(t, filepath.Join(buildDir, ".npm"))

	procfile, err := os.ReadFile(filepath.Join(buildDir, "Procfile"))
	require.NoError(t, err)
	require.Equal(t, "web: npm start\n", string(procfile))
	require.FileExists(t, filepath.Join(buildDir, ".profile.d", "nodejs.sh"))
}

// TestRun_StopsAtFirstFailure leaves later stages undone.
func TestRun_StopsAtFirstFailure(t *testing.T) {
	t.Parallel()

	dist := testutil.NewDist(t, map[string]string{"node": "0.10.28"})
	dist.AddArchive(cache.Key("0.10.28", "linux-x64"), testutil.NodeTarball(t, "0.10.28", "linux-x64"))

	buildDir := t.TempDir()
	writeManifest(t, buildDir, `{"scripts":{"start":"node app.js"}}`)

	runner := mocks.NewMockRunner(gomock.NewController(t))
	runner.EXPECT().Run(gomock.Any(), gomock.Any()).Return(os.ErrPermission)

	err := Run(context.Background(), &Options{
		BuildDir: buildDir,
		CacheDir: t.TempDir(),
		Config:   newConfig(dist),
		Runner:   runner,
		Output:   new(bytes.Buffer),
	})
	require.ErrorIs(t, err, os.ErrPermission)

	// The runtime stays in place; nothing after the install ran.
	require.DirExists(t, filepath.Join(buildDir, "vendor", "node"))
	require.NoFileExists(t, filepath.Join(buildDir, "Procfile"))
	require.NoDirExists(t, filepath.Join(buildDir, ".profile.d"))
}

// TestRun_Preconditions rejects bad inputs before any network call.
func TestRun_Preconditions(t *testing.T) {
	t.Parallel()

	dist := testutil.NewDist(t, map[string]string{"node": "0.10.28"})
	ctx := context.Background()

	require.ErrorIs(t, Run(ctx, nil), errOptionsNotSet)

	err := Run(ctx, &Options{BuildDir: t.TempDir(), Config: newConfig(dist)})
	require.ErrorIs(t, err, errCacheDirNotSet)

	err = Run(ctx, &Options{
		BuildDir: filepath.Join(t.TempDir(), "missing"),
		CacheDir: t.TempDir(),
		Config:   newConfig(dist),
	})
	require.ErrorIs(t, err, errBuildDirMissing)

	// No package.json.
	err = Run(ctx, &Options{BuildDir: t.TempDir(), CacheDir: t.TempDir(), Config: newConfig(dist)})
	require.ErrorIs(t, err, os.ErrNotExist)
	require.Empty(t, dist.Ranges("node"))

	bad := newConfig(dist)
	bad.DownloadURL = "https://example.com/node.tar.gz"

	err = Run(ctx, &Options{BuildDir: t.TempDir(), CacheDir: t.TempDir(), Config: bad})
	require.Error(t, err)
}
