package installer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/oshokin/nodejs-buildpack/internal/domain/build"
	"github.com/oshokin/nodejs-buildpack/internal/envfile"
	"github.com/oshokin/nodejs-buildpack/internal/logger"
	"github.com/oshokin/nodejs-buildpack/internal/service/common"
)

const (
	// npmExecutable runs the install.
	npmExecutable = "npm"
	// scratchPattern names the private temporary directory of npm.
	scratchPattern = "npm-install-"
)

var errRunnerNotSet = errors.New("command runner is not set")

// Installer runs npm install for an application.
type Installer struct {
	// runner executes npm.
	runner common.Runner
	// output receives the indented npm output.
	output io.Writer
	// tempRoot is where scratch directories are created; empty means os.TempDir.
	tempRoot string
}

// Option configures the installer.
type Option func(*Installer)

// WithRunner replaces the command runner.
func WithRunner(runner common.Runner) Option {
	return func(i *Installer) {
		i.runner = runner
	}
}

// WithOutput redirects the npm output, os.Stdout by default.
func WithOutput(w io.Writer) Option {
	return func(i *Installer) {
		if w != nil {
			i.output = w
		}
	}
}

// WithTempRoot creates scratch directories below dir.
func WithTempRoot(dir string) Option {
	return func(i *Installer) {
		i.tempRoot = dir
	}
}

// New creates an installer.
func New(opts ...Option) *Installer {
	installer := &Installer{
		runner: common.NewExecRunner(),
		output: os.Stdout,
	}

	for _, opt := range opts {
		opt(installer)
	}

	return installer
}

// scratch is a temporary directory removed exactly once.
type scratch struct {
	dir  string
	once sync.Once
}

func newScratch(root string) (*scratch, error) {
	dir, err := os.MkdirTemp(root, scratchPattern)
	if err != nil {
		return nil, fmt.Errorf("create temporary directory: %w", err)
	}

	return &scratch{dir: dir}, nil
}

// release removes the directory; later calls do nothing.
func (s *scratch) release(ctx context.Context) {
	s.once.Do(func() {
		if err := os.RemoveAll(s.dir); err != nil {
			logger.WarnKV(ctx, "Failed to remove temporary directory", "path", s.dir, "error", err)
		}
	})
}

// Install runs npm install --production in the build directory. The env file
// assignments that survive filtering are visible to this command only. The
// scratch directory handed to npm as TMPDIR is gone when Install returns,
// whatever the outcome.
func (i *Installer) Install(ctx context.Context, paths build.Paths, envFile string, search build.SearchPath) error {
	if i.runner == nil {
		return errRunnerNotSet
	}

	imported, err := envfile.Read(envFile)
	if err != nil {
		return err
	}

	tmp, err := newScratch(i.tempRoot)
	if err != nil {
		return err
	}

	defer tmp.release(ctx)

	logger.Status(ctx, "Installing dependencies")

	env := append([]string(nil), imported...)
	env = append(env, "TMPDIR="+tmp.dir)

	output := common.NewIndentWriter(i.output)

	err = i.runner.Run(ctx, common.Command{
		Name:       npmExecutable,
		Args:       []string{"install", "--userconfig", paths.Npmrc(), "--production"},
		Dir:        paths.BuildDir,
		Env:        common.MergeEnv(os.Environ(), env...),
		SearchPath: search,
		Stdout:     output,
		Stderr:     output,
	})
	if err != nil {
		return fmt.Errorf("install dependencies: %w", err)
	}

	return nil
}
