//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/oshokin/nodejs-buildpack/internal/domain/build"
)

//go:generate mockgen -destination=mocks/mock_runner.go -package=mocks github.com/oshokin/nodejs-buildpack/internal/service/common Runner

// DefaultWaitDelay bounds how long Wait keeps copying output after the process is killed.
const DefaultWaitDelay = 5 * time.Second

var errNameRequired = errors.New("command name must be provided")

// Command describes one invocation of an external program.
type Command struct {
	// Name is looked up in SearchPath unless it contains a path separator.
	Name string
	// Args are passed verbatim.
	Args []string
	// Dir is the working directory; empty means the current one.
	Dir string
	// Env is the complete environment; nil inherits the current process environment.
	Env []string
	// SearchPath resolves Name and becomes the PATH of the command.
	// Nil falls back to the inherited PATH.
	SearchPath build.SearchPath
	// Stdout and Stderr receive the output; nil discards it.
	Stdout io.Writer
	Stderr io.Writer
}

// String renders the command line for logs.
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Runner executes external commands.
type Runner interface {
	// Run executes the command and waits for it.
	Run(ctx context.Context, cmd Command) error
	// Output executes the command and returns its trimmed stdout.
	Output(ctx context.Context, cmd Command) (string, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	// waitDelay is applied to every command, see exec.Cmd.WaitDelay.
	waitDelay time.Duration
}

// RunnerOption configures ExecRunner.
type RunnerOption func(*ExecRunner)

// WithWaitDelay overrides DefaultWaitDelay.
func WithWaitDelay(delay time.Duration) RunnerOption {
	return func(r *ExecRunner) {
		if delay > 0 {
			r.waitDelay = delay
		}
	}
}

var _ Runner = (*ExecRunner)(nil)

// NewExecRunner creates a runner backed by os/exec.
func NewExecRunner(opts ...RunnerOption) *ExecRunner {
	runner := &ExecRunner{
		waitDelay: DefaultWaitDelay,
	}

	for _, opt := range opts {
		opt(runner)
	}

	return runner
}

// Run executes cmd. A non-zero exit is returned as a wrapped *exec.ExitError.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) error {
	execCmd, err := r.command(ctx, cmd)
	if err != nil {
		return err
	}

	execCmd.Stdout = cmd.Stdout
	execCmd.Stderr = cmd.Stderr

	if err = execCmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", cmd, err)
	}

	return nil
}

// Output executes cmd and returns its stdout without surrounding whitespace.
func (r *ExecRunner) Output(ctx context.Context, cmd Command) (string, error) {
	execCmd, err := r.command(ctx, cmd)
	if err != nil {
		return "", err
	}

	var stdout bytes.Buffer

	execCmd.Stdout = &stdout
	execCmd.Stderr = cmd.Stderr

	if err = execCmd.Run(); err != nil {
		return "", fmt.Errorf("%s: %w", cmd, err)
	}

	return strings.TrimSpace(stdout.String()), nil
}

// command builds the exec.Cmd, resolving the executable against the search path.
func (r *ExecRunner) command(ctx context.Context, cmd Command) (*exec.Cmd, error) {
	if cmd.Name == "" {
		return nil, errNameRequired
	}

	env := cmd.Env
	if env == nil {
		env = os.Environ()
	}

	var (
		path string
		err  error
	)

	if cmd.SearchPath != nil {
		path, err = cmd.SearchPath.Lookup(cmd.Name)
		env = MergeEnv(env, cmd.SearchPath.Env())
	} else {
		path, err = exec.LookPath(cmd.Name)
	}

	if err != nil {
		return nil, err
	}

	execCmd := exec.CommandContext(ctx, path, cmd.Args...)
	execCmd.Dir = cmd.Dir
	execCmd.Env = env
	execCmd.WaitDelay = r.waitDelay
	execCmd.Cancel = func() error {
		return terminateProcessTree(execCmd.Process.Pid)
	}

	return execCmd, nil
}
