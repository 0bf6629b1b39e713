package testutil

import (
	"archive/tar"
	"bytes"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
)

// Entry is one member of a fake tarball.
type Entry struct {
	Name     string
	Body     string
	Mode     int64
	Linkname string
	Type     byte
}

// Tarball builds a .tar.gz archive from entries.
func Tarball(t testing.TB, entries ...Entry) []byte {
	t.Helper()

	var buf bytes.Buffer

	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	for _, e := range entries {
		typeflag := e.Type
		if typeflag == 0 {
			typeflag = tar.TypeReg
		}

		mode := e.Mode
		if mode == 0 {
			mode = 0o644
			if typeflag == tar.TypeDir {
				mode = 0o755
			}
		}

		header := &tar.Header{
			Name:     e.Name,
			Mode:     mode,
			Typeflag: typeflag,
			Linkname: e.Linkname,
		}

		if typeflag == tar.TypeReg {
			header.Size = int64(len(e.Body))
		}

		require.NoError(t, tw.WriteHeader(header))

		if typeflag == tar.TypeReg {
			_, err := tw.Write([]byte(e.Body))
			require.NoError(t, err)
		}
	}

	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())

	return buf.Bytes()
}

// NodeTarball mimics a Node.js release archive: a single top-level directory
// node-v<version>-<platform> with bin/node, bin/npm and a bundled npm package.
// The bin entries are stored without execute bits, which the fetcher must fix.
func NodeTarball(t testing.TB, version, platform string) []byte {
	t.Helper()

	root := "node-v" + version + "-" + platform + "/"

	return Tarball(t,
		Entry{Name: root, Type: tar.TypeDir},
		Entry{Name: root + "bin/", Type: tar.TypeDir},
		Entry{Name: root + "bin/node", Body: "#!/bin/sh\necho v" + version + "\n", Mode: 0o644},
		Entry{Name: root + "lib/node_modules/npm/bin/npm-cli.js", Body: "// npm\n", Mode: 0o644},
		Entry{Name: root + "bin/npm", Type: tar.TypeSymlink, Linkname: "../lib/node_modules/npm/bin/npm-cli.js"},
		Entry{Name: root + "README.md", Body: "Node.js " + version + "\n"},
	)
}
