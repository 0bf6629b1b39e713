package build

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrExecutableNotFound is returned when no search path entry holds the executable.
var ErrExecutableNotFound = errors.New("executable not found in search path")

// SearchPath is an ordered list of directories searched for executables.
// Earlier entries win.
type SearchPath []string

// ParseSearchPath splits a PATH-style value.
func ParseSearchPath(value string) SearchPath {
	if value == "" {
		return SearchPath{}
	}

	return SearchPath(filepath.SplitList(value))
}

// FromEnvironment reads the inherited PATH once, at the start of a run.
func FromEnvironment() SearchPath {
	return ParseSearchPath(os.Getenv("PATH"))
}

// Prepend returns a copy with dir in front. The receiver is left untouched.
func (s SearchPath) Prepend(dir string) SearchPath {
	result := make(SearchPath, 0, len(s)+1)
	result = append(result, dir)

	return append(result, s...)
}

// String renders the list as a PATH value.
func (s SearchPath) String() string {
	return strings.Join(s, string(os.PathListSeparator))
}

// Env renders the list as a PATH=... environment entry.
func (s SearchPath) Env() string {
	return "PATH=" + s.String()
}

// Lookup finds the first executable regular file called name.
// Names containing a separator are returned as-is when they exist.
func (s SearchPath) Lookup(name string) (string, error) {
	if strings.ContainsRune(name, filepath.Separator) {
		if isExecutable(name) {
			return name, nil
		}

		return "", fmt.Errorf("%s: %w", name, ErrExecutableNotFound)
	}

	for _, dir := range s {
		if dir == "" {
			dir = "."
		}

		candidate := filepath.Join(dir, name)
		if isExecutable(candidate) {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%s: %w", name, ErrExecutableNotFound)
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	return info.Mode().IsRegular() && info.Mode().Perm()&0o111 != 0
}
