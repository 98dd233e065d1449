package version

import "fmt"

// product is the name reported in the User-Agent header.
const product = "server-launcher"

var (
	// Version is the semantic version of the build. It can be overridden via ldflags.
	Version = "1.0.0"
	// Commit is the short git SHA embedded at build time (or "none").
	Commit = "none"
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
)

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// Full returns a human-readable version string with commit and build time.
func Full() string {
	return fmt.Sprintf("version: %s, commit: %s, built at: %s", Version, Commit, BuildTime)
}

// UserAgent returns the value sent as User-Agent on outgoing HTTP requests.
// GitHub's API rejects requests without one.
func UserAgent() string {
	return product + "/" + Version
}
