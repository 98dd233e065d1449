// Package common holds helpers shared by several services.
//
// It provides a small HTTP client used for the release feed and for downloads, and
// detection of the current system actor (hostname/username) for the run history.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
