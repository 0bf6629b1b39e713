// Package archive unpacks gzip-compressed tarballs such as Node.js release archives.
package archive

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

var (
	errUnsafePath = errors.New("archive entry escapes destination")
	errUnsafeLink = errors.New("archive link escapes destination")
)

// ExtractFile unpacks the .tar.gz file at path into dest.
func ExtractFile(ctx context.Context, path, dest string) error {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}

	defer func() {
		_ = file.Close()
	}()

	return Extract(ctx, file, dest)
}

// Extract unpacks a .tar.gz stream into dest, creating it if needed.
// Regular files, directories, symlinks and hard links are supported; other
// entry types are skipped. Entries resolving outside dest are rejected.
func Extract(ctx context.Context, r io.Reader, dest string) error {
	dest = filepath.Clean(dest)

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("create destination: %w", err)
	}

	gz, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("creating gzip reader: %w", err)
	}

	defer func() {
		_ = gz.Close()
	}()

	tr := tar.NewReader(gz)

	for {
		if err = ctx.Err(); err != nil {
			return err
		}

		header, nextErr := tr.Next()
		if errors.Is(nextErr, io.EOF) {
			return nil
		}

		if nextErr != nil {
			return fmt.Errorf("reading tar entry: %w", nextErr)
		}

		if err = extractEntry(tr, header, dest); err != nil {
			return err
		}
	}
}

// extractEntry writes a single tar entry below dest.
func extractEntry(tr *tar.Reader, header *tar.Header, dest string) error {
	target, err := within(dest, header.Name)
	if err != nil {
		return err
	}

	mode := header.FileInfo().Mode().Perm()

	switch header.Typeflag {
	case tar.TypeDir:
		return os.MkdirAll(target, mode|0o700)
	case tar.TypeReg:
		return writeFile(tr, target, mode)
	case tar.TypeSymlink:
		linkTarget := header.Linkname
		if !filepath.IsAbs(linkTarget) {
			linkTarget = filepath.Join(filepath.Dir(target), linkTarget)
		}

		if _, err = within(dest, mustRel(dest, linkTarget)); err != nil {
			return fmt.Errorf("%s -> %s: %w", header.Name, header.Linkname, errUnsafeLink)
		}

		if err = os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}

		_ = os.Remove(target)

		return os.Symlink(header.Linkname, target)
	case tar.TypeLink:
		source, linkErr := within(dest, header.Linkname)
		if linkErr != nil {
			return fmt.Errorf("%s -> %s: %w", header.Name, header.Linkname, errUnsafeLink)
		}

		if err = os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}

		_ = os.Remove(target)

		return os.Link(source, target)
	default:
		return nil
	}
}

// writeFile copies the current entry to target.
func writeFile(r io.Reader, target string, mode os.FileMode) (err error) {
	if err = os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	file, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}

	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if _, err = io.Copy(file, r); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}

	return nil
}

// within joins name onto dest and rejects results outside dest.
func within(dest, name string) (string, error) {
	target := filepath.Join(dest, filepath.FromSlash(name))
	if target != dest && !strings.HasPrefix(target, dest+string(filepath.Separator)) {
		return "", fmt.Errorf("%s: %w", name, errUnsafePath)
	}

	return target, nil
}

// mustRel returns path relative to base, or path itself when no relative form exists.
func mustRel(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return path
	}

	return rel
}
