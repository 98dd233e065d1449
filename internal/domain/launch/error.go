package launch

import (
	"errors"
	"fmt"
)

// Kind identifies the stage an Error originates from.
type Kind int

const (
	// KindProbe means the runtime probe failed and could not be recovered.
	KindProbe Kind = iota + 1
	// KindInstall means downloading or extracting the runtime failed.
	KindInstall
	// KindFetch means querying the release feed or downloading the artifact failed.
	KindFetch
	// KindConfig means the launch config could not be read, parsed or written.
	KindConfig
	// KindSpawn means the server process could not be created.
	KindSpawn
	// KindWaitInterrupted means the launcher stopped waiting for a running server.
	KindWaitInterrupted
)

// Process exit codes of the launcher.
const (
	ExitOK              = 0
	ExitFailure         = 1
	ExitProbe           = 2
	ExitInstall         = 3
	ExitFetch           = 4
	ExitConfig          = 5
	ExitSpawn           = 6
	ExitWaitInterrupted = 7
	ExitChildFailed     = 8
)

// String returns the stage name used in logs and the run history.
func (k Kind) String() string {
	switch k {
	case KindProbe:
		return "probe"
	case KindInstall:
		return "install"
	case KindFetch:
		return "fetch"
	case KindConfig:
		return "config"
	case KindSpawn:
		return "spawn"
	case KindWaitInterrupted:
		return "wait_interrupted"
	default:
		return "unknown"
	}
}

// ExitCode returns the launcher exit status reserved for the kind.
func (k Kind) ExitCode() int {
	switch k {
	case KindProbe:
		return ExitProbe
	case KindInstall:
		return ExitInstall
	case KindFetch:
		return ExitFetch
	case KindConfig:
		return ExitConfig
	case KindSpawn:
		return ExitSpawn
	case KindWaitInterrupted:
		return ExitWaitInterrupted
	default:
		return ExitFailure
	}
}

// Error is a stage failure of the launch sequence.
type Error struct {
	// Kind is the failing stage.
	Kind Kind
	// Err is the underlying cause.
	Err error
}

// NewError wraps err as a failure of the given kind. A nil err yields nil.
func NewError(kind Kind, err error) error {
	if err == nil {
		return nil
	}

	return &Error{Kind: kind, Err: err}
}

// Error implements error.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// ChildExitError reports a server process that terminated with a non-zero status.
type ChildExitError struct {
	// Status is the child's exit status.
	Status int
}

// Error implements error.
func (e *ChildExitError) Error() string {
	return fmt.Sprintf("server exited with status %d", e.Status)
}

// KindOf returns the kind carried by err, or zero when err is not an *Error.
func KindOf(err error) Kind {
	var launchErr *Error
	if errors.As(err, &launchErr) {
		return launchErr.Kind
	}

	return 0
}

// ExitCode maps the outcome of a run to the launcher's process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var childErr *ChildExitError
	if errors.As(err, &childErr) {
		return ExitChildFailed
	}

	return KindOf(err).ExitCode()
}
