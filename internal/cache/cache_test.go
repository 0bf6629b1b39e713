package cache

import (
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zeebo/blake3"
)

func commit(t *testing.T, store *Store, key string, body []byte) {
	t.Helper()

	entry, err := store.Create(key)
	require.NoError(t, err)

	_, err = entry.Write(body)
	require.NoError(t, err)
	require.NoError(t, entry.Commit())
}

func partialFiles(t *testing.T, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var partials []string

	for _, e := range entries {
		if strings.Contains(e.Name(), partialMarker) {
			partials = append(partials, e.Name())
		}
	}

	return partials
}

// TestKey matches the archive naming of the download mirror.
func TestKey(t *testing.T) {
	t.Parallel()

	require.Equal(t, "node-v0.10.28-linux-x64.tar.gz", Key("0.10.28", "linux-x64"))
	require.NotEqual(t, Key("0.10.28", "linux-x64"), Key("0.10.29", "linux-x64"))
}

// TestCommitAndLookup publishes an entry with its sidecar and finds it again.
func TestCommitAndLookup(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := NewStore(dir)
	key := Key("0.10.28", "linux-x64")
	body := []byte("archive-bytes")

	_, hit, err := store.Lookup(context.Background(), key)
	require.NoError(t, err)
	require.False(t, hit)

	commit(t, store, key, body)

	path, hit, err := store.Lookup(context.Background(), key)
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, filepath.Join(dir, key), path)

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, body, contents)

	sum := blake3.Sum256(body)
	sidecar, err := os.ReadFile(path + DigestSuffix)
	require.NoError(t, err)
	require.Equal(t, hex.EncodeToString(sum[:])+"\n", string(sidecar))

	require.Empty(t, partialFiles(t, dir))
}

// TestCommitReplacesExisting overwrites an entry in place.
func TestCommitReplacesExisting(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := NewStore(dir)
	key := Key("4.2.6", "linux-x64")

	commit(t, store, key, []byte("first"))
	commit(t, store, key, []byte("second"))

	contents, err := os.ReadFile(store.Path(key))
	require.NoError(t, err)
	require.Equal(t, "second", string(contents))

	_, hit, err := store.Lookup(context.Background(), key)
	require.NoError(t, err)
	require.True(t, hit)
}

// TestLookupWithoutSidecar trusts pre-populated entries.
func TestLookupWithoutSidecar(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := NewStore(dir)
	key := Key("0.10.28", "linux-x64")

	require.NoError(t, os.WriteFile(store.Path(key), []byte("seeded"), 0o644))

	_, hit, err := store.Lookup(context.Background(), key)
	require.NoError(t, err)
	require.True(t, hit)
}

// TestLookupEvictsBadEntries treats empty and corrupted entries as misses.
func TestLookupEvictsBadEntries(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := NewStore(dir)
	key := Key("0.10.28", "linux-x64")

	require.NoError(t, os.WriteFile(store.Path(key), nil, 0o644))

	_, hit, err := store.Lookup(context.Background(), key)
	require.NoError(t, err)
	require.False(t, hit)
	require.NoFileExists(t, store.Path(key))

	commit(t, store, key, []byte("good"))
	require.NoError(t, os.WriteFile(store.Path(key), []byte("bitrot"), 0o644))

	_, hit, err = store.Lookup(context.Background(), key)
	require.NoError(t, err)
	require.False(t, hit)
	require.NoFileExists(t, store.Path(key))
	require.NoFileExists(t, store.Path(key)+DigestSuffix)

	// Without verification the digest is not consulted.
	commit(t, store, key, []byte("good"))
	require.NoError(t, os.WriteFile(store.Path(key), []byte("bitrot"), 0o644))

	_, hit, err = NewStore(dir, WithVerification(false)).Lookup(context.Background(), key)
	require.NoError(t, err)
	require.True(t, hit)
}

// TestCreateRemovesStalePartials cleans up after an interrupted download of the same key.
func TestCreateRemovesStalePartials(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := NewStore(dir)
	key := Key("0.10.28", "linux-x64")
	other := Key("4.2.6", "linux-x64")

	stale := filepath.Join(dir, "."+key+partialMarker+"1234")
	unrelated := filepath.Join(dir, "."+other+partialMarker+"5678")

	require.NoError(t, os.WriteFile(stale, []byte("trunc"), 0o600))
	require.NoError(t, os.WriteFile(unrelated, []byte("trunc"), 0o600))

	commit(t, store, key, []byte("archive-bytes"))

	require.NoFileExists(t, stale)
	require.Equal(t, []string{filepath.Base(unrelated)}, partialFiles(t, dir))
}

// TestAbort leaves neither a partial file nor an entry behind.
func TestAbort(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "nested"))
	key := Key("0.10.28", "linux-x64")

	entry, err := store.Create(key)
	require.NoError(t, err)

	_, err = entry.Write([]byte("trunc"))
	require.NoError(t, err)
	require.NoError(t, entry.Abort())
	require.NoError(t, entry.Abort())

	_, err = entry.Write([]byte("more"))
	require.ErrorIs(t, err, errEntryClosed)
	require.ErrorIs(t, entry.Commit(), errEntryClosed)

	require.NoFileExists(t, store.Path(key))
	require.Empty(t, partialFiles(t, filepath.Join(dir, "nested")))
}
