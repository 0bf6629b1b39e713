// Package config defines the settings of the compile step and loads them from
// built-in defaults, an optional YAML file and NODEJS_BUILDPACK_* environment
// variables, in that order of precedence (last wins).
package config
