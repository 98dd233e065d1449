// Package history implements persistence for launcher runs.
//
// The SQLRepository records every invocation in a local SQLite database so operators
// can see when the server was started, whether the runtime or the artifact had to be
// fetched and how the run ended.
package history
