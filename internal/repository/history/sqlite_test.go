package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/server-launcher/internal/domain/launch"
)

func openRepository(t *testing.T) *SQLRepository {
	t.Helper()

	repo, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)

	t.Cleanup(func() { _ = repo.Close() })

	return repo
}

// TestSQLRepository_StartFinish verifies a run is stored as running and then completed.
func TestSQLRepository_StartFinish(t *testing.T) {
	t.Parallel()

	repo := openRepository(t)
	ctx := context.Background()

	started := time.Now().UTC().Truncate(time.Millisecond)
	run := &launch.Run{
		ID:        "run-1",
		StartedAt: started,
		Actor:     &launch.Actor{Hostname: "host", Username: "operator"},
		Outcome:   launch.OutcomeRunning,
	}

	require.NoError(t, repo.Start(ctx, run))

	runs, err := repo.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, launch.OutcomeRunning, runs[0].Outcome)
	require.True(t, runs[0].FinishedAt.IsZero())
	require.Equal(t, run.Actor, runs[0].Actor)

	run.ArtifactFetched = true
	run.DownloadURL = "https://example.com/server.jar"
	run.Finish(started.Add(time.Minute), &launch.ChildExitError{Status: 2})

	require.NoError(t, repo.Finish(ctx, run))

	runs, err = repo.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	got := runs[0]
	require.Equal(t, started, got.StartedAt)
	require.Equal(t, started.Add(time.Minute), got.FinishedAt)
	require.True(t, got.ArtifactFetched)
	require.False(t, got.RuntimeInstalled)
	require.Equal(t, run.DownloadURL, got.DownloadURL)
	require.Equal(t, launch.OutcomeExited, got.Outcome)
	require.Equal(t, launch.ExitChildFailed, got.ExitCode)
	require.NotEmpty(t, got.Message)
}

// TestSQLRepository_RecentOrderAndLimit verifies the newest runs are returned first.
func TestSQLRepository_RecentOrderAndLimit(t *testing.T) {
	t.Parallel()

	repo := openRepository(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Start(ctx, &launch.Run{
			ID:        id,
			StartedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	runs, err := repo.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, "c", runs[0].ID)
	require.Equal(t, "b", runs[1].ID)
	require.Nil(t, runs[0].Actor)

	runs, err = repo.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
}

// TestSQLRepository_Reopen verifies runs survive closing the database.
func TestSQLRepository_Reopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "history.db")

	repo, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, repo.Start(context.Background(), &launch.Run{ID: "kept", StartedAt: time.Now()}))
	require.NoError(t, repo.Close())

	repo, err = Open(path)
	require.NoError(t, err)

	defer repo.Close()

	runs, err := repo.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, "kept", runs[0].ID)
}

// TestSQLRepository_InvalidRuns verifies rejected inputs.
func TestSQLRepository_InvalidRuns(t *testing.T) {
	t.Parallel()

	repo := openRepository(t)
	ctx := context.Background()

	require.ErrorIs(t, repo.Start(ctx, nil), errRunIsNotSet)
	require.ErrorIs(t, repo.Finish(ctx, &launch.Run{}), errRunIDEmpty)

	anonymous := &launch.Run{StartedAt: time.Now()}
	require.NoError(t, repo.Start(ctx, anonymous))
	require.NotEmpty(t, anonymous.ID)
	require.ErrorIs(t, repo.Finish(ctx, &launch.Run{ID: "ghost", Outcome: launch.OutcomeExited}), errRunUnknown)

	require.NoError(t, repo.Start(ctx, &launch.Run{ID: "dup", StartedAt: time.Now()}))
	require.Error(t, repo.Start(ctx, &launch.Run{ID: "dup", StartedAt: time.Now()}))
}

// TestSQLRepository_ClosedDatabase verifies failures are reported, not panics.
func TestSQLRepository_ClosedDatabase(t *testing.T) {
	t.Parallel()

	repo, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	err = repo.Start(context.Background(), &launch.Run{ID: "late", StartedAt: time.Now()})
	require.Error(t, err)
	require.False(t, errors.Is(err, errRunIDEmpty))
}
