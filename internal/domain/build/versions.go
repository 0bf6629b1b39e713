package build

// Versions holds the concrete versions resolved for one run.
type Versions struct {
	// Node is the runtime version, without a leading "v".
	Node string
	// Npm is the requested npm version; empty means "keep the bundled one".
	Npm string
}

// WantsNpm reports whether an npm version other than the bundled one may be needed.
func (v Versions) WantsNpm() bool {
	return v.Npm != ""
}
