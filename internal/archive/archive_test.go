package archive

import (
	"archive/tar"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/nodejs-buildpack/internal/testutil"
)

// TestExtract_NodeRelease unpacks a release-shaped archive.
func TestExtract_NodeRelease(t *testing.T) {
	t.Parallel()

	dest := t.TempDir()
	data := testutil.NodeTarball(t, "0.10.28", "linux-x64")

	require.NoError(t, Extract(context.Background(), bytes.NewReader(data), dest))

	root := filepath.Join(dest, "node-v0.10.28-linux-x64")

	node, err := os.ReadFile(filepath.Join(root, "bin", "node"))
	require.NoError(t, err)
	require.Contains(t, string(node), "v0.10.28")

	link, err := os.Readlink(filepath.Join(root, "bin", "npm"))
	require.NoError(t, err)
	require.Equal(t, "../lib/node_modules/npm/bin/npm-cli.js", link)

	cli, err := os.ReadFile(filepath.Join(root, "bin", "npm"))
	require.NoError(t, err)
	require.Equal(t, "// npm\n", string(cli))
}

// TestExtractFile reads the archive from disk.
func TestExtractFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "node.tar.gz")
	require.NoError(t, os.WriteFile(path, testutil.NodeTarball(t, "4.2.6", "linux-x64"), 0o600))

	dest := filepath.Join(dir, "out")
	require.NoError(t, ExtractFile(context.Background(), path, dest))
	require.FileExists(t, filepath.Join(dest, "node-v4.2.6-linux-x64", "README.md"))

	require.Error(t, ExtractFile(context.Background(), filepath.Join(dir, "missing.tar.gz"), dest))
}

// TestExtract_HardLink resolves hard links relative to dest.
func TestExtract_HardLink(t *testing.T) {
	t.Parallel()

	dest := t.TempDir()
	data := testutil.Tarball(t,
		testutil.Entry{Name: "pkg/a.txt", Body: "same"},
		testutil.Entry{Name: "pkg/b.txt", Type: tar.TypeLink, Linkname: "pkg/a.txt"},
	)

	require.NoError(t, Extract(context.Background(), bytes.NewReader(data), dest))

	body, err := os.ReadFile(filepath.Join(dest, "pkg", "b.txt"))
	require.NoError(t, err)
	require.Equal(t, "same", string(body))
}

// TestExtract_RejectsEscapes refuses entries and links leaving dest.
func TestExtract_RejectsEscapes(t *testing.T) {
	t.Parallel()

	cases := map[string][]testutil.Entry{
		"path":    {{Name: "../evil.txt", Body: "x"}},
		"symlink": {{Name: "link", Type: tar.TypeSymlink, Linkname: "../../etc/passwd"}},
		"abs":     {{Name: "link", Type: tar.TypeSymlink, Linkname: "/etc/passwd"}},
		"hard":    {{Name: "link", Type: tar.TypeLink, Linkname: "../outside"}},
	}

	for name, entries := range cases {
		dest := t.TempDir()
		data := testutil.Tarball(t, entries...)

		err := Extract(context.Background(), bytes.NewReader(data), dest)
		require.Error(t, err, name)
	}

	require.ErrorIs(t,
		Extract(context.Background(), bytes.NewReader(testutil.Tarball(t, cases["path"]...)), t.TempDir()),
		errUnsafePath)
}

// TestExtract_Cancelled stops before the first entry.
func TestExtract_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	data := testutil.NodeTarball(t, "0.10.28", "linux-x64")
	require.ErrorIs(t, Extract(ctx, bytes.NewReader(data), t.TempDir()), context.Canceled)
}

// TestExtract_NotGzip reports a corrupt stream.
func TestExtract_NotGzip(t *testing.T) {
	t.Parallel()

	require.Error(t, Extract(context.Background(), bytes.NewReader([]byte("plain text")), t.TempDir()))
}
