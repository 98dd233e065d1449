package launch

import (
	"errors"
	"time"
)

// Outcome values stored in Run.Outcome.
const (
	OutcomeRunning = "running"
	OutcomeExited  = "exited"
	OutcomeFailed  = "failed"
)

// Actor identifies who started the launcher.
type Actor struct {
	// Hostname is the machine the launcher ran on.
	Hostname string
	// Username is the system user running the launcher.
	Username string
}

// Clone returns a deep copy of the actor.
func (a *Actor) Clone() *Actor {
	if a == nil {
		return nil
	}

	cloned := *a

	return &cloned
}

// Run summarises one launcher invocation.
type Run struct {
	// ID identifies the run in logs and the history.
	ID string
	// StartedAt is when the sequence began.
	StartedAt time.Time
	// FinishedAt is when the sequence ended; zero while running.
	FinishedAt time.Time
	// Actor is who started the launcher.
	Actor *Actor
	// RuntimeInstalled is set when the installer ran successfully.
	RuntimeInstalled bool
	// ArtifactFetched is set when a new artifact was downloaded.
	ArtifactFetched bool
	// DownloadURL is the artifact URL taken from the release feed, if any.
	DownloadURL string
	// Outcome is one of the Outcome constants.
	Outcome string
	// ExitCode is the launcher exit status.
	ExitCode int
	// Message is the failure message, empty on success.
	Message string
}

// Clone returns a copy of the run to avoid leaking internal references.
func (r *Run) Clone() *Run {
	if r == nil {
		return nil
	}

	cloned := *r
	cloned.Actor = r.Actor.Clone()

	return &cloned
}

// Finish records the terminal outcome derived from err.
func (r *Run) Finish(at time.Time, err error) {
	r.FinishedAt = at
	r.ExitCode = ExitCode(err)
	r.Outcome = OutcomeExited
	r.Message = ""

	if err != nil {
		r.Message = err.Error()

		var childErr *ChildExitError
		if !errors.As(err, &childErr) {
			r.Outcome = OutcomeFailed
		}
	}
}
