package build

import "path/filepath"

const (
	// ManifestFilename is the application manifest read by the pipeline.
	ManifestFilename = "package.json"
	// ProcfileFilename is the process-declaration file.
	ProcfileFilename = "Procfile"
	// NpmrcFilename is the npm user config passed to npm install.
	NpmrcFilename = ".npmrc"

	// vendorNodeDir is where the runtime lives inside the build directory.
	vendorNodeDir = "vendor/node"
	// profileDir holds startup hooks sourced by the launcher.
	profileDir = ".profile.d"
	// profileFilename is the hook written by this buildpack.
	profileFilename = "nodejs.sh"
)

// Paths resolves the locations of one compile run.
type Paths struct {
	// BuildDir is the application tree being compiled.
	BuildDir string
	// CacheDir persists across compile runs.
	CacheDir string
}

// NewPaths cleans the directories supplied by the caller.
func NewPaths(buildDir, cacheDir string) Paths {
	return Paths{
		BuildDir: filepath.Clean(buildDir),
		CacheDir: filepath.Clean(cacheDir),
	}
}

// Manifest returns <build>/package.json.
func (p Paths) Manifest() string {
	return filepath.Join(p.BuildDir, ManifestFilename)
}

// Procfile returns <build>/Procfile.
func (p Paths) Procfile() string {
	return filepath.Join(p.BuildDir, ProcfileFilename)
}

// Npmrc returns <build>/.npmrc.
func (p Paths) Npmrc() string {
	return filepath.Join(p.BuildDir, NpmrcFilename)
}

// NodeDir returns <build>/vendor/node.
func (p Paths) NodeDir() string {
	return filepath.Join(p.BuildDir, filepath.FromSlash(vendorNodeDir))
}

// NodeBinDir returns <build>/vendor/node/bin.
func (p Paths) NodeBinDir() string {
	return filepath.Join(p.NodeDir(), "bin")
}

// ProfileDir returns <build>/.profile.d.
func (p Paths) ProfileDir() string {
	return filepath.Join(p.BuildDir, profileDir)
}

// ProfileScript returns <build>/.profile.d/nodejs.sh.
func (p Paths) ProfileScript() string {
	return filepath.Join(p.ProfileDir(), profileFilename)
}

// ScratchDirs lists the directories npm and node-gyp leave behind.
func (p Paths) ScratchDirs() []string {
	return []string{
		filepath.Join(p.BuildDir, ".node-gyp"),
		filepath.Join(p.BuildDir, ".npm"),
	}
}

// DeployedNodeBinDir is the runtime bin directory as seen by the running app,
// where the build directory becomes $HOME.
func DeployedNodeBinDir() string {
	return "$HOME/" + vendorNodeDir + "/bin"
}
