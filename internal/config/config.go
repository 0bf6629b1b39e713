package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds the settings of the compile step.
type Config struct {
	// ResolverURL is the base URL of the semver resolution service.
	// Ranges are resolved at <ResolverURL>/<subject>/resolve?range=<range>.
	ResolverURL string `mapstructure:"resolver_url" yaml:"resolver_url"`
	// DownloadURL is the runtime archive URL template.
	// {version} and {platform} are substituted before the request.
	DownloadURL string `mapstructure:"download_url" yaml:"download_url"`
	// Platform is the archive platform tag, part of the cache key.
	Platform string `mapstructure:"platform" yaml:"platform"`
	// DefaultEntry is the file whose presence implies "npm start" works without a start script.
	DefaultEntry string `mapstructure:"default_entry" yaml:"default_entry"`
	// Timeout bounds every HTTP call; zero leaves calls unbounded.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// VerifyCache enables the BLAKE3 sidecar check on cache hits.
	VerifyCache bool `mapstructure:"verify_cache" yaml:"verify_cache"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

const (
	// EnvPrefix prefixes environment overrides, e.g. NODEJS_BUILDPACK_RESOLVER_URL.
	EnvPrefix = "NODEJS_BUILDPACK"

	// DefaultResolverURL is the public semver resolution service.
	DefaultResolverURL = "https://semver.io"

	// DefaultDownloadURL is the runtime archive mirror.
	DefaultDownloadURL = "https://s3pository.heroku.com/node/v{version}/node-v{version}-{platform}.tar.gz"

	// DefaultPlatform is the only platform the archives are built for.
	DefaultPlatform = "linux-x64"

	// DefaultEntry is the conventional entry file of a node application.
	DefaultEntry = "server.js"

	// DefaultLogLevel is used when nothing else is configured.
	DefaultLogLevel = "info"

	// VersionPlaceholder and PlatformPlaceholder are substituted in DownloadURL.
	VersionPlaceholder  = "{version}"
	PlatformPlaceholder = "{platform}"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errVersionPlaceholder is returned when the download template cannot vary by version.
	errVersionPlaceholder = errors.New("download url must contain " + VersionPlaceholder)
	// errNegativeTimeout is returned for timeouts below zero.
	errNegativeTimeout = errors.New("timeout must not be negative")
)

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		ResolverURL:  DefaultResolverURL,
		DownloadURL:  DefaultDownloadURL,
		Platform:     DefaultPlatform,
		DefaultEntry: DefaultEntry,
		VerifyCache:  true,
		LogLevel:     DefaultLogLevel,
	}
}

// Load layers the defaults, an optional YAML file at path and NODEJS_BUILDPACK_* variables.
// An empty path skips the file; a path that does not exist is an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	defaults := Default()
	v.SetDefault("resolver_url", defaults.ResolverURL)
	v.SetDefault("download_url", defaults.DownloadURL)
	v.SetDefault("platform", defaults.Platform)
	v.SetDefault("default_entry", defaults.DefaultEntry)
	v.SetDefault("timeout", defaults.Timeout)
	v.SetDefault("verify_cache", defaults.VerifyCache)
	v.SetDefault("log_level", defaults.LogLevel)

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("read settings: %w", err)
		}

		v.SetConfigFile(filepath.Clean(path))
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read settings: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the settings and fills in defaults for empty fields.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.ResolverURL == "" {
		cfg.ResolverURL = DefaultResolverURL
	}

	if cfg.DownloadURL == "" {
		cfg.DownloadURL = DefaultDownloadURL
	}

	if cfg.Platform == "" {
		cfg.Platform = DefaultPlatform
	}

	if cfg.DefaultEntry == "" {
		cfg.DefaultEntry = DefaultEntry
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	if cfg.Timeout < 0 {
		return errNegativeTimeout
	}

	if _, err := url.ParseRequestURI(cfg.ResolverURL); err != nil {
		return fmt.Errorf("invalid resolver url: %w", err)
	}

	if !strings.Contains(cfg.DownloadURL, VersionPlaceholder) {
		return errVersionPlaceholder
	}

	if _, err := url.ParseRequestURI(cfg.ArchiveURL("0.0.0")); err != nil {
		return fmt.Errorf("invalid download url: %w", err)
	}

	return nil
}

// ArchiveURL renders DownloadURL for a resolved runtime version.
func (c *Config) ArchiveURL(version string) string {
	return strings.NewReplacer(
		VersionPlaceholder, version,
		PlatformPlaceholder, c.Platform,
	).Replace(c.DownloadURL)
}

// Dump renders the settings as YAML, the same shape Load accepts.
func Dump(cfg *Config) ([]byte, error) {
	if cfg == nil {
		return nil, errConfigIsNotSet
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal settings: %w", err)
	}

	return data, nil
}
