// Package supervisor starts the server as a child process and waits for it.
//
// The child inherits the launcher's console streams, runs in the launcher's working
// directory and is never killed by the launcher: when the wait is interrupted the
// supervisor gives up waiting and leaves the child running.
package supervisor
