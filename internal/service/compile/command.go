package compile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/oshokin/nodejs-buildpack/internal/cache"
	"github.com/oshokin/nodejs-buildpack/internal/config"
	"github.com/oshokin/nodejs-buildpack/internal/domain/build"
	"github.com/oshokin/nodejs-buildpack/internal/logger"
	"github.com/oshokin/nodejs-buildpack/internal/manifest"
	"github.com/oshokin/nodejs-buildpack/internal/resolver"
	"github.com/oshokin/nodejs-buildpack/internal/service/cleaner"
	"github.com/oshokin/nodejs-buildpack/internal/service/common"
	"github.com/oshokin/nodejs-buildpack/internal/service/fetcher"
	"github.com/oshokin/nodejs-buildpack/internal/service/installer"
	"github.com/oshokin/nodejs-buildpack/internal/service/procfile"
	"github.com/oshokin/nodejs-buildpack/internal/service/profile"
)

var (
	errOptionsNotSet   = errors.New("options are not set")
	errBuildDirMissing = errors.New("build directory does not exist")
	errCacheDirNotSet  = errors.New("cache directory is not set")
)

// Options are inputs accepted by the compile entry point.
type Options struct {
	// BuildDir is the application tree to compile.
	BuildDir string
	// CacheDir keeps runtime archives between runs; created when missing.
	CacheDir string
	// EnvFile is an optional KEY=VALUE file imported into npm install.
	EnvFile string
	// ConfigPath is the optional path to a settings YAML file.
	ConfigPath string
	// Config overrides ConfigPath when set.
	Config *config.Config
	// Runner executes npm; nil uses os/exec.
	Runner common.Runner
	// SearchPath is the initial executable search path; nil reads PATH once.
	SearchPath build.SearchPath
	// Output receives the indented output of external commands; nil means os.Stdout.
	Output io.Writer
}

// runner holds the state of a single compile execution.
type runner struct {
	cfg      *config.Config
	paths    build.Paths
	envFile  string
	search   build.SearchPath
	commands common.Runner
	output   io.Writer
}

// Run executes the compile step and is the public entry point for the CLI.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "nodejs-compile")
	ctx = logger.WithKV(ctx, "build_id", uuid.NewString())

	r, err := newRunner(opts)
	if err != nil {
		logger.ErrorKV(ctx, "Compile setup failed", "error", err)
		return err
	}

	if err = r.run(ctx); err != nil {
		logger.ErrorKV(ctx, "Compile failed", "error", err)
		return err
	}

	logger.DebugKV(ctx, "Compile completed", "build_dir", r.paths.BuildDir)

	return nil
}

// newRunner validates the inputs and loads the settings.
func newRunner(opts *Options) (*runner, error) {
	if opts == nil {
		return nil, errOptionsNotSet
	}

	if opts.CacheDir == "" {
		return nil, errCacheDirNotSet
	}

	info, err := os.Stat(opts.BuildDir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", opts.BuildDir, errBuildDirMissing)
	}

	cfg := opts.Config
	if cfg == nil {
		if cfg, err = config.Load(opts.ConfigPath); err != nil {
			return nil, err
		}
	} else if err = config.Validate(cfg); err != nil {
		return nil, err
	}

	buildDir, err := filepath.Abs(opts.BuildDir)
	if err != nil {
		return nil, err
	}

	cacheDir, err := filepath.Abs(opts.CacheDir)
	if err != nil {
		return nil, err
	}

	r := &runner{
		cfg:      cfg,
		paths:    build.NewPaths(buildDir, cacheDir),
		envFile:  opts.EnvFile,
		search:   opts.SearchPath,
		commands: opts.Runner,
		output:   opts.Output,
	}

	if r.search == nil {
		r.search = build.FromEnvironment()
	}

	if r.commands == nil {
		r.commands = common.NewExecRunner()
	}

	if r.output == nil {
		r.output = os.Stdout
	}

	return r, nil
}

// run executes the stages in order.
func (r *runner) run(ctx context.Context) error {
	m, err := manifest.Read(r.paths.Manifest())
	if err != nil {
		return err
	}

	versions, err := resolver.New(r.cfg.ResolverURL, resolver.WithTimeout(r.cfg.Timeout)).
		ResolveVersions(ctx, m)
	if err != nil {
		return fmt.Errorf("resolve versions: %w", err)
	}

	store := cache.NewStore(r.paths.CacheDir, cache.WithVerification(r.cfg.VerifyCache))
	node := fetcher.New(store, r.cfg.ArchiveURL, r.cfg.Platform,
		fetcher.WithTimeout(r.cfg.Timeout),
		fetcher.WithRunner(r.commands),
		fetcher.WithOutput(r.output),
	)

	search, err := node.Install(ctx, versions, r.paths, r.search)
	if err != nil {
		return err
	}

	dependencies := installer.New(
		installer.WithRunner(r.commands),
		installer.WithOutput(r.output),
	)

	if err = dependencies.Install(ctx, r.paths, r.envFile, search); err != nil {
		return err
	}

	logger.Status(ctx, "Cleaning up node-gyp and npm artifacts")

	if err = cleaner.Clean(ctx, r.paths); err != nil {
		return err
	}

	if _, err = procfile.Declare(ctx, r.paths, m, r.cfg.DefaultEntry); err != nil {
		return err
	}

	logger.Status(ctx, "Building runtime environment")

	return profile.Write(r.paths)
}
