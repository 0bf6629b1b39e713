//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import "strings"

// MergeEnv returns base with overrides applied. Later entries win; the position
// of the first occurrence of a key is kept.
func MergeEnv(base []string, overrides ...string) []string {
	result := make([]string, 0, len(base)+len(overrides))
	index := make(map[string]int, len(base)+len(overrides))

	for _, entry := range append(append([]string(nil), base...), overrides...) {
		key, _, _ := strings.Cut(entry, "=")

		if i, ok := index[key]; ok {
			result[i] = entry
			continue
		}

		index[key] = len(result)
		result = append(result, entry)
	}

	return result
}

// LookupEnv returns the value of key in env.
func LookupEnv(env []string, key string) (string, bool) {
	for i := len(env) - 1; i >= 0; i-- {
		k, v, _ := strings.Cut(env[i], "=")
		if k == key {
			return v, true
		}
	}

	return "", false
}
