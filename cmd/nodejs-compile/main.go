package main

import "github.com/oshokin/nodejs-buildpack/cmd/nodejs-compile/cmd"

func main() {
	cmd.Execute()
}
