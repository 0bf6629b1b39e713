package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// TestValidate checks defaults and format validations.
func TestValidate(t *testing.T) {
	t.Parallel()

	require.Error(t, Validate(nil))

	// Empty settings are filled with defaults.
	cfg := new(Config)
	require.NoError(t, Validate(cfg))
	require.Equal(t, DefaultResolverURL, cfg.ResolverURL)
	require.Equal(t, DefaultPlatform, cfg.Platform)
	require.Equal(t, DefaultEntry, cfg.DefaultEntry)

	// Template without a version placeholder.
	cfg = &Config{DownloadURL: "https://example.com/node.tar.gz"}
	require.ErrorIs(t, Validate(cfg), errVersionPlaceholder)

	// Bad resolver.
	cfg = &Config{ResolverURL: "not a url"}
	require.Error(t, Validate(cfg))

	cfg = &Config{Timeout: -time.Second}
	require.ErrorIs(t, Validate(cfg), errNegativeTimeout)
}

// TestArchiveURL renders the download template.
func TestArchiveURL(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.Equal(t,
		"https://s3pository.heroku.com/node/v0.10.28/node-v0.10.28-linux-x64.tar.gz",
		cfg.ArchiveURL("0.10.28"))
}

// TestLoadDefaults loads without a settings file.
func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, DefaultDownloadURL, cfg.DownloadURL)
	require.True(t, cfg.VerifyCache)
	require.Zero(t, cfg.Timeout)
}

// TestLoadFile reads a YAML settings file over the defaults.
func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	contents := "resolver_url: http://127.0.0.1:8080\ntimeout: 30s\nverify_cache: false\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "http://127.0.0.1:8080", cfg.ResolverURL)
	require.Equal(t, 30*time.Second, cfg.Timeout)
	require.False(t, cfg.VerifyCache)
	require.Equal(t, DefaultPlatform, cfg.Platform)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

// TestLoadEnvOverride ensures NODEJS_BUILDPACK_* variables win over the file.
func TestLoadEnvOverride(t *testing.T) {
	t.Setenv(EnvPrefix+"_PLATFORM", "linux-arm64")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "linux-arm64", cfg.Platform)
}

// TestDump renders settings that Load can read back.
func TestDump(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Timeout = time.Minute

	data, err := Dump(cfg)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	require.Equal(t, "1m0s", decoded["timeout"])
	require.Equal(t, DefaultResolverURL, decoded["resolver_url"])

	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, loaded)
}
