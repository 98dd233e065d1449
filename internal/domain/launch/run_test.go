package launch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestRunClone verifies Clone deep-copies the actor and handles nil safely.
func TestRunClone(t *testing.T) {
	t.Parallel()

	require.Nil(t, (*Run)(nil).Clone())
	require.Nil(t, (*Actor)(nil).Clone())

	r := &Run{
		ID:        "run-1",
		StartedAt: time.Unix(100, 0),
		Actor: &Actor{
			Hostname: "build-host",
			Username: "minecraft",
		},
		Outcome: OutcomeRunning,
	}

	c := r.Clone()
	require.Equal(t, r, c)
	require.NotSame(t, r.Actor, c.Actor)
}

// TestRunFinish checks outcomes derived from the run error.
func TestRunFinish(t *testing.T) {
	t.Parallel()

	at := time.Unix(200, 0)

	r := new(Run)
	r.Finish(at, nil)
	require.Equal(t, OutcomeExited, r.Outcome)
	require.Equal(t, ExitOK, r.ExitCode)
	require.Empty(t, r.Message)
	require.Equal(t, at, r.FinishedAt)

	r.Finish(at, &ChildExitError{Status: 1})
	require.Equal(t, OutcomeExited, r.Outcome)
	require.Equal(t, ExitChildFailed, r.ExitCode)
	require.NotEmpty(t, r.Message)

	r.Finish(at, NewError(KindConfig, errTestCause))
	require.Equal(t, OutcomeFailed, r.Outcome)
	require.Equal(t, ExitConfig, r.ExitCode)
	require.Equal(t, "config: test cause", r.Message)
}
