// Package common holds helpers shared by the compile stages.
//
// It runs external commands against an explicit search path, terminates the
// whole process tree of a command when its context is cancelled, merges
// environment variables and indents command output the way build logs expect.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
