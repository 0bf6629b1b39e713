// Package resolver turns version ranges from package.json into concrete
// versions by asking an external semver resolution service, and flags ranges
// that are likely to break future builds.
package resolver
