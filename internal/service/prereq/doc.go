// Package prereq makes sure the runtime the server needs is available.
//
// The Checker probes the runtime by running its version query; the Installer downloads
// the runtime distribution archive and extracts it into a local directory without
// touching PATH. ResolveExecutable lets later runs find that local copy.
package prereq
