package cache

import (
	"context"
	"crypto"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"strings"

	goupdate "github.com/doitdistributed/go-update"
	"github.com/zeebo/blake3"

	"github.com/oshokin/nodejs-buildpack/internal/logger"

	// Ensure SHA512 available for commit verification.
	_ "crypto/sha512"
)

const (
	// DigestSuffix names the BLAKE3 sidecar of an entry.
	DigestSuffix = ".blake3"

	// DefaultFileMode is used for committed entries and sidecars.
	DefaultFileMode os.FileMode = 0o644

	// CommitChecksumFunction verifies that the committed bytes are the streamed bytes.
	CommitChecksumFunction crypto.Hash = crypto.SHA512

	// partialMarker is part of the name of in-flight downloads.
	partialMarker = ".partial-"
)

var (
	errHashUnavailable = errors.New("hash function unavailable")
	errEntryClosed     = errors.New("cache entry already closed")
)

// Key returns the entry name of a runtime archive, e.g. node-v0.10.28-linux-x64.tar.gz.
func Key(version, platform string) string {
	return fmt.Sprintf("node-v%s-%s.tar.gz", version, platform)
}

// Store is a directory of cache entries.
type Store struct {
	// dir is the cache directory supplied by the caller.
	dir string
	// verify enables the sidecar digest check in Lookup.
	verify bool
}

// Option configures the store.
type Option func(*Store)

// WithVerification toggles the sidecar digest check on lookups.
func WithVerification(enabled bool) Option {
	return func(s *Store) {
		s.verify = enabled
	}
}

// NewStore opens the cache rooted at dir. Verification is on by default.
func NewStore(dir string, opts ...Option) *Store {
	store := &Store{
		dir:    filepath.Clean(dir),
		verify: true,
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

// Path returns the location of the entry named key.
func (s *Store) Path(key string) string {
	return filepath.Join(s.dir, key)
}

// Lookup returns the path of a usable entry. Empty entries and entries whose
// sidecar digest does not match are removed and reported as misses; entries
// without a sidecar are trusted.
func (s *Store) Lookup(ctx context.Context, key string) (string, bool, error) {
	path := s.Path(key)

	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}

	if err != nil {
		return "", false, fmt.Errorf("stat cache entry: %w", err)
	}

	if info.Size() == 0 {
		logger.WarnKV(ctx, "Ignoring empty cache entry", "path", path)
		return "", false, s.evict(key)
	}

	if !s.verify {
		return path, true, nil
	}

	expected, err := os.ReadFile(path + DigestSuffix)
	if errors.Is(err, os.ErrNotExist) {
		return path, true, nil
	}

	if err != nil {
		return "", false, fmt.Errorf("read cache digest: %w", err)
	}

	actual, err := fileDigest(path)
	if err != nil {
		return "", false, err
	}

	if strings.TrimSpace(string(expected)) != actual {
		logger.WarnKV(ctx, "Ignoring corrupted cache entry", "path", path)
		return "", false, s.evict(key)
	}

	return path, true, nil
}

// Create starts a new entry. Bytes written to it land in a partial file until Commit.
// Partial files of the same key left behind by an interrupted compile are removed first.
func (s *Store) Create(key string) (*Entry, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	if !CommitChecksumFunction.Available() {
		return nil, fmt.Errorf("commit verification not possible: %w", errHashUnavailable)
	}

	if err := s.removePartials(key); err != nil {
		return nil, err
	}

	file, err := os.CreateTemp(s.dir, partialPattern(key))
	if err != nil {
		return nil, fmt.Errorf("create partial cache entry: %w", err)
	}

	return &Entry{
		target:   s.Path(key),
		file:     file,
		checksum: CommitChecksumFunction.New(),
		digest:   blake3.New(),
	}, nil
}

// removePartials deletes the stale partial files of key.
func (s *Store) removePartials(key string) error {
	stale, err := filepath.Glob(filepath.Join(s.dir, partialPattern(key)))
	if err != nil {
		return fmt.Errorf("list partial cache entries: %w", err)
	}

	for _, name := range stale {
		if err = os.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove partial cache entry: %w", err)
		}
	}

	return nil
}

// partialPattern matches the partial files of key, e.g. .node-v0.10.28-linux-x64.tar.gz.partial-123.
func partialPattern(key string) string {
	return "." + key + partialMarker + "*"
}

// evict removes an entry and its sidecar.
func (s *Store) evict(key string) error {
	path := s.Path(key)

	for _, name := range []string{path, path + DigestSuffix} {
		if err := os.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("evict cache entry: %w", err)
		}
	}

	return nil
}

// Entry is an in-flight cache entry.
type Entry struct {
	// target is the final entry path.
	target string
	// file is the partial file receiving the bytes.
	file *os.File
	// checksum hashes the stream for the commit verification.
	checksum hash.Hash
	// digest hashes the stream for the sidecar.
	digest *blake3.Hasher
}

// Write implements io.Writer.
func (e *Entry) Write(p []byte) (int, error) {
	if e.file == nil {
		return 0, errEntryClosed
	}

	n, err := e.file.Write(p)

	// hash.Hash writes never fail.
	_, _ = e.checksum.Write(p[:n])
	_, _ = e.digest.Write(p[:n])

	return n, err
}

// Commit atomically publishes the entry under its final name and writes the sidecar.
func (e *Entry) Commit() error {
	if e.file == nil {
		return errEntryClosed
	}

	partial := e.file.Name()

	defer func() {
		_ = os.Remove(partial)
	}()

	err := e.file.Close()
	e.file = nil

	if err != nil {
		return fmt.Errorf("close partial cache entry: %w", err)
	}

	// go-update renames the current target aside, so it has to exist.
	if _, err = os.Stat(e.target); errors.Is(err, os.ErrNotExist) {
		var placeholder *os.File

		if placeholder, err = os.OpenFile(e.target, os.O_CREATE|os.O_WRONLY, DefaultFileMode); err != nil {
			return fmt.Errorf("create cache entry: %w", err)
		}

		_ = placeholder.Close()
	}

	source, err := os.Open(partial)
	if err != nil {
		return fmt.Errorf("open partial cache entry: %w", err)
	}

	defer func() {
		_ = source.Close()
	}()

	options := goupdate.Options{
		TargetPath: e.target,
		TargetMode: DefaultFileMode,
		Checksum:   e.checksum.Sum(nil),
		Hash:       CommitChecksumFunction,
	}

	if err = goupdate.Apply(source, options); err != nil {
		return fmt.Errorf("commit cache entry: %w", err)
	}

	sum := hex.EncodeToString(e.digest.Sum(nil))
	if err = os.WriteFile(e.target+DigestSuffix, []byte(sum+"\n"), DefaultFileMode); err != nil {
		return fmt.Errorf("write cache digest: %w", err)
	}

	return nil
}

// Abort discards the partial file. It is safe to call after Commit.
func (e *Entry) Abort() error {
	if e.file == nil {
		return nil
	}

	partial := e.file.Name()
	_ = e.file.Close()
	e.file = nil

	if err := os.Remove(partial); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	return nil
}

// fileDigest returns the hex BLAKE3 digest of the file at path.
func fileDigest(path string) (string, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("open cache entry: %w", err)
	}

	defer func() {
		_ = file.Close()
	}()

	hasher := blake3.New()
	if _, err = io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("hash cache entry: %w", err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
