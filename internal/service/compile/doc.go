// Package compile runs the Node.js compile step against a build directory.
//
// The stages run strictly in order and the first failure ends the run:
// read package.json, resolve versions, install the runtime, install
// dependencies, clean scratch directories, declare the web process and write
// the startup hook. Stages that already finished are not rolled back.
package compile
