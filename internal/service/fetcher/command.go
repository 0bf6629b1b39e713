package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/oshokin/nodejs-buildpack/internal/archive"
	"github.com/oshokin/nodejs-buildpack/internal/cache"
	"github.com/oshokin/nodejs-buildpack/internal/domain/build"
	"github.com/oshokin/nodejs-buildpack/internal/logger"
	"github.com/oshokin/nodejs-buildpack/internal/service/common"
)

const (
	// npmExecutable is resolved against the search path after the runtime is installed.
	npmExecutable = "npm"

	// executableBits are added to everything in vendor/node/bin.
	executableBits os.FileMode = 0o111
)

var (
	errBadHTTPStatus  = errors.New("unexpected http status")
	errNoNodeVersion  = errors.New("node version is not resolved")
	errArchiveLayout  = errors.New("archive does not contain the expected directory")
	errSettingsNotSet = errors.New("archive url template is not set")
)

// URLFunc renders the download URL of a runtime version.
type URLFunc func(version string) string

// Fetcher downloads, caches and installs the runtime.
type Fetcher struct {
	// store holds downloaded archives between runs.
	store *cache.Store
	// archiveURL renders the download URL.
	archiveURL URLFunc
	// platform is part of the cache key and of the extracted directory name.
	platform string
	// httpClient downloads archives.
	httpClient *http.Client
	// runner executes npm.
	runner common.Runner
	// output receives indented npm diagnostics.
	output io.Writer
}

// Option configures the fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(f *Fetcher) {
		if httpClient != nil {
			f.httpClient = httpClient
		}
	}
}

// WithTimeout bounds the download. Zero keeps it unbounded.
func WithTimeout(timeout time.Duration) Option {
	return func(f *Fetcher) {
		if timeout > 0 {
			f.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// WithRunner replaces the command runner.
func WithRunner(runner common.Runner) Option {
	return func(f *Fetcher) {
		if runner != nil {
			f.runner = runner
		}
	}
}

// WithOutput redirects npm diagnostics, os.Stderr by default.
func WithOutput(w io.Writer) Option {
	return func(f *Fetcher) {
		if w != nil {
			f.output = w
		}
	}
}

// New creates a fetcher storing archives in store.
func New(store *cache.Store, archiveURL URLFunc, platform string, opts ...Option) *Fetcher {
	fetcher := &Fetcher{
		store:      store,
		archiveURL: archiveURL,
		platform:   platform,
		httpClient: http.DefaultClient,
		runner:     common.NewExecRunner(),
		output:     os.Stderr,
	}

	for _, opt := range opts {
		opt(fetcher)
	}

	return fetcher
}

// Install puts the runtime into <build>/vendor/node and returns search with
// its bin directory in front. Nothing is rolled back on failure.
func (f *Fetcher) Install(
	ctx context.Context,
	versions build.Versions,
	paths build.Paths,
	search build.SearchPath,
) (build.SearchPath, error) {
	if versions.Node == "" {
		return nil, errNoNodeVersion
	}

	if f.archiveURL == nil {
		return nil, errSettingsNotSet
	}

	key := cache.Key(versions.Node, f.platform)

	cached, hit, err := f.store.Lookup(ctx, key)
	if err != nil {
		return nil, err
	}

	if hit {
		logger.Status(ctx, "Using cached node %s", versions.Node)
		logger.DebugKV(ctx, "Cache hit", "path", cached)

		if err = archive.ExtractFile(ctx, cached, paths.BuildDir); err != nil {
			return nil, fmt.Errorf("extract cached node %s: %w", versions.Node, err)
		}
	} else {
		logger.Status(ctx, "Downloading and installing node %s...", versions.Node)

		if err = f.download(ctx, key, f.archiveURL(versions.Node), paths.BuildDir); err != nil {
			return nil, fmt.Errorf("download node %s: %w", versions.Node, err)
		}
	}

	if err = f.relocate(key, paths); err != nil {
		return nil, err
	}

	search = search.Prepend(paths.NodeBinDir())

	if versions.WantsNpm() {
		if err = f.installNpm(ctx, versions.Npm, paths, search); err != nil {
			return nil, err
		}
	}

	return search, nil
}

// download streams the archive once, fanning every chunk out to the cache
// entry and to the extractor. The entry is committed only when both succeed.
func (f *Fetcher) download(ctx context.Context, key, archiveURL, dest string) error {
	response, err := f.get(ctx, archiveURL)
	if response != nil {
		defer func() {
			_ = response.Body.Close()
		}()
	}

	if err != nil {
		return err
	}

	entry, err := f.store.Create(key)
	if err != nil {
		return err
	}

	defer func() {
		_ = entry.Abort()
	}()

	pipeReader, pipeWriter := io.Pipe()
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		_, copyErr := io.Copy(io.MultiWriter(entry, pipeWriter), response.Body)
		pipeWriter.CloseWithError(copyErr)

		return copyErr
	})

	group.Go(func() error {
		extractErr := archive.Extract(groupCtx, pipeReader, dest)
		if extractErr == nil {
			// Trailing tar padding still has to reach the cache.
			_, extractErr = io.Copy(io.Discard, pipeReader)
		}

		pipeReader.CloseWithError(extractErr)

		return extractErr
	})

	if err = group.Wait(); err != nil {
		return err
	}

	if err = entry.Commit(); err != nil {
		return err
	}

	logger.DebugKV(ctx, "Cached node archive", "path", f.store.Path(key))

	return nil
}

// get issues the download request.
func (f *Fetcher) get(ctx context.Context, archiveURL string) (*http.Response, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, archiveURL, http.NoBody)
	if err != nil {
		return nil, err
	}

	response, err := f.httpClient.Do(request)
	if err != nil {
		return response, err
	}

	if response.StatusCode != http.StatusOK {
		return response, fmt.Errorf("%s, %s: %w", archiveURL, response.Status, errBadHTTPStatus)
	}

	return response, nil
}

// relocate moves the extracted node-v<version>-<platform> tree to vendor/node
// and marks everything in its bin directory executable.
func (f *Fetcher) relocate(key string, paths build.Paths) error {
	extracted := filepath.Join(paths.BuildDir, strings.TrimSuffix(key, ".tar.gz"))

	info, err := os.Stat(extracted)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%s: %w", filepath.Base(extracted), errArchiveLayout)
	}

	nodeDir := paths.NodeDir()

	if err = os.RemoveAll(nodeDir); err != nil {
		return fmt.Errorf("remove previous runtime: %w", err)
	}

	if err = os.MkdirAll(filepath.Dir(nodeDir), 0o755); err != nil {
		return fmt.Errorf("create vendor directory: %w", err)
	}

	if err = os.Rename(extracted, nodeDir); err != nil {
		return fmt.Errorf("move runtime into place: %w", err)
	}

	entries, err := os.ReadDir(paths.NodeBinDir())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("list runtime binaries: %w", err)
	}

	for _, entry := range entries {
		binary := filepath.Join(paths.NodeBinDir(), entry.Name())

		// Stat follows symlinks, so bin/npm marks npm-cli.js.
		target, statErr := os.Stat(binary)
		if statErr != nil {
			return fmt.Errorf("stat %s: %w", entry.Name(), statErr)
		}

		if err = os.Chmod(binary, target.Mode().Perm()|executableBits); err != nil {
			return fmt.Errorf("chmod %s: %w", entry.Name(), err)
		}
	}

	return nil
}

// installNpm replaces the bundled npm when the requested version differs.
func (f *Fetcher) installNpm(ctx context.Context, want string, paths build.Paths, search build.SearchPath) error {
	stderr := common.NewIndentWriter(f.output)

	current, err := f.runner.Output(ctx, common.Command{
		Name:       npmExecutable,
		Args:       []string{"--version"},
		Dir:        paths.BuildDir,
		SearchPath: search,
		Stderr:     stderr,
	})
	if err != nil {
		return fmt.Errorf("detect bundled npm: %w", err)
	}

	if current == want {
		logger.Status(ctx, "Using npm %s bundled with node", current)
		return nil
	}

	logger.Status(ctx, "Downloading and installing npm %s (replacing version %s)...", want, current)

	// npm prints its own summary on stdout, which would repeat the status line.
	err = f.runner.Run(ctx, common.Command{
		Name:       npmExecutable,
		Args:       []string{"install", "--quiet", "-g", "npm@" + want},
		Dir:        paths.BuildDir,
		SearchPath: search,
		Stdout:     io.Discard,
		Stderr:     stderr,
	})
	if err != nil {
		return fmt.Errorf("install npm %s: %w", want, err)
	}

	return nil
}
