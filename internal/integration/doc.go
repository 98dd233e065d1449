// Package integration holds end-to-end tests of the launcher run against local HTTP
// servers and shell-script runtimes.
package integration
