package build

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestPaths checks the fixed layout of the build directory.
func TestPaths(t *testing.T) {
	t.Parallel()

	p := NewPaths("/tmp/build/", "/tmp/cache")

	require.Equal(t, "/tmp/build/package.json", p.Manifest())
	require.Equal(t, "/tmp/build/Procfile", p.Procfile())
	require.Equal(t, "/tmp/build/vendor/node/bin", p.NodeBinDir())
	require.Equal(t, "/tmp/build/.profile.d/nodejs.sh", p.ProfileScript())
	require.Equal(t, []string{"/tmp/build/.node-gyp", "/tmp/build/.npm"}, p.ScratchDirs())
	require.Equal(t, "$HOME/vendor/node/bin", DeployedNodeBinDir())
}

// TestSearchPathPrepend ensures Prepend does not alias the receiver.
func TestSearchPathPrepend(t *testing.T) {
	t.Parallel()

	base := ParseSearchPath("/usr/bin:/bin")
	next := base.Prepend("/app/vendor/node/bin")

	require.Equal(t, SearchPath{"/usr/bin", "/bin"}, base)
	require.Equal(t, SearchPath{"/app/vendor/node/bin", "/usr/bin", "/bin"}, next)
	require.Equal(t, "PATH=/app/vendor/node/bin:/usr/bin:/bin", next.Env())
	require.Empty(t, ParseSearchPath(""))
}

// TestSearchPathLookup resolves executables in order.
func TestSearchPathLookup(t *testing.T) {
	t.Parallel()

	first := t.TempDir()
	second := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(second, "npm"), []byte("#!/bin/sh\n"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(first, "npm"), []byte("not executable"), 0o644))

	found, err := SearchPath{first, second}.Lookup("npm")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(second, "npm"), found)

	_, err = SearchPath{first}.Lookup("npm")
	require.ErrorIs(t, err, ErrExecutableNotFound)
}

// TestVersionsWantsNpm covers the bundled-npm convention.
func TestVersionsWantsNpm(t *testing.T) {
	t.Parallel()

	require.False(t, Versions{Node: "18.0.0"}.WantsNpm())
	require.True(t, Versions{Node: "18.0.0", Npm: "9.1.0"}.WantsNpm())
}
