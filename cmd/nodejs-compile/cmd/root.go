package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/nodejs-buildpack/internal/config"
	"github.com/oshokin/nodejs-buildpack/internal/logger"
	"github.com/oshokin/nodejs-buildpack/internal/service/compile"
	"github.com/oshokin/nodejs-buildpack/internal/version"
)

var errUnknownLogLevel = errors.New("unknown log level")

var (
	// configPath to the optional settings YAML file.
	configPath string
	// logLevel overrides the configured log level.
	logLevel string

	// rootCmd represents the base command for compiling a Node.js application.
	rootCmd = &cobra.Command{
		Use:   "nodejs-compile BUILD_DIR CACHE_DIR [ENV_FILE]",
		Short: "Install Node.js, npm and the production dependencies of an application.",
		Long: `Compiles a Node.js application in BUILD_DIR.

The node and npm versions are read from package.json (engines.node, engines.npm)
and resolved through the semver service. The runtime archive is cached in
CACHE_DIR and extracted into BUILD_DIR/vendor/node, then "npm install --production"
runs with the assignments of ENV_FILE, if given. Finally a Procfile is declared
when missing and .profile.d/nodejs.sh puts the runtime on PATH at startup.

Settings come from the --config file and NODEJS_BUILDPACK_* environment variables.`,
		Args:         cobra.RangeArgs(2, 3), //nolint:mnd // BUILD_DIR CACHE_DIR [ENV_FILE].
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			options := &compile.Options{
				BuildDir: args[0],
				CacheDir: args[1],
				Config:   cfg,
			}

			if len(args) > 2 { //nolint:mnd // ENV_FILE is optional.
				options.EnvFile = args[2]
			}

			return compile.Run(ctx, options)
		},
	}

	// configCmd prints the effective settings.
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Print the effective settings as YAML.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			data, err := config.Dump(cfg)
			if err != nil {
				return err
			}

			_, err = cmd.OutOrStdout().Write(data)

			return err
		},
	}
)

// Execute runs the nodejs-compile CLI. A failed external command passes its
// exit code through; every other failure exits with 1.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitCode(err))
	}
}

// ExitCode maps an error returned by the compile step to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
		return exitErr.ExitCode()
	}

	return 1
}

// loadConfig reads the settings and applies the log level.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	level, ok := logger.ParseLogLevel(cfg.LogLevel)
	if !ok {
		return nil, fmt.Errorf("%s: %w", cfg.LogLevel, errUnknownLogLevel)
	}

	logger.SetLevel(level)

	return cfg, nil
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to settings file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")

	rootCmd.AddCommand(configCmd)
}
