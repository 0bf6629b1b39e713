// Package build contains the domain types shared by the compile stages.
//
// Paths names every location the pipeline reads or writes, Versions carries
// the resolved runtime and package-manager versions, and SearchPath is the
// ordered list of executable directories handed from stage to stage instead
// of mutating the process PATH.
package build
