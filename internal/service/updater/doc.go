// Package updater keeps the local server artifact in place.
//
// The Coordinator treats an existing artifact file as current. When it is missing the
// release feed is queried, the first asset of the latest release is downloaded, and the
// artifact file is replaced atomically. No version comparison is performed: once the
// file exists the feed is not consulted again unless the "always" mode is configured.
package updater
