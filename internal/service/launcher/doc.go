// Package launcher drives one launcher run.
//
// A run probes the runtime and installs it when missing, makes sure the server artifact
// is present, loads the launch config and starts the server, waiting until it exits.
// Install and fetch failures are tolerated when their stage is configured to fail open.
package launcher
