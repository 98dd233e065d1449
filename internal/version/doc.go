// Package version exposes build metadata for the launcher.
//
// Version, Commit and BuildTime are injected at build time via Go ldflags.
// UserAgent renders the identifier sent to the release feed.
package version
