package resolver

import (
	"context"
	"strings"

	"github.com/oshokin/nodejs-buildpack/internal/logger"
)

// Advice classifies a runtime version range. At most one advice applies to a range.
type Advice int

const (
	// AdviceNone means the range looks fine.
	AdviceNone Advice = iota
	// AdviceUnset means engines.node is missing.
	AdviceUnset
	// AdviceWildcard means the range is "*".
	AdviceWildcard
	// AdviceGreaterThan means the range starts with ">".
	AdviceGreaterThan
)

// supportURL is appended to every tip.
const supportURL = "https://devcenter.heroku.com/articles/nodejs-support"

// Advise classifies rng.
func Advise(rng string) Advice {
	switch {
	case rng == "":
		return AdviceUnset
	case rng == "*":
		return AdviceWildcard
	case strings.HasPrefix(rng, ">"):
		return AdviceGreaterThan
	default:
		return AdviceNone
	}
}

// Message returns the tip text, or "" for AdviceNone.
func (a Advice) Message() string {
	switch a {
	case AdviceUnset:
		return "Specify a node version in package.json"
	case AdviceWildcard:
		return "Avoid using semver ranges like '*' in engines.node"
	case AdviceGreaterThan:
		return "Avoid using semver ranges starting with '>' in engines.node"
	case AdviceNone:
		return ""
	default:
		return ""
	}
}

// Log emits the tip, if any.
func (a Advice) Log(ctx context.Context) {
	message := a.Message()
	if message == "" {
		return
	}

	logger.Tip(ctx, "%s. See %s", message, supportURL)
}
