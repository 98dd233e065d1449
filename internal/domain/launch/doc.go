// Package launch contains the core domain types of a launcher run.
//
// Error is the tagged union every stage failure is reported through, and ExitCode maps
// it to the launcher's process exit status. Run and Actor describe one launcher
// invocation for the run history, with Clone helpers to avoid leaking references.
package launch
