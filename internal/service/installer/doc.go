// Package installer runs the production dependency install of the application.
package installer
