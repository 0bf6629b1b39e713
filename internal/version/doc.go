// Package version exposes build metadata of the nodejs-compile binary.
//
// Version, Commit and BuildTime are injected with -ldflags "-X ..." at release
// time; local builds keep the defaults.
package version
