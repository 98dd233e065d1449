package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/server-launcher/internal/config"
	"github.com/oshokin/server-launcher/internal/domain/launch"
	"github.com/oshokin/server-launcher/internal/repository/history"
)

// writeSettings stores settings whose run history lives in dir.
func writeSettings(t *testing.T, dir string, enabled bool) (string, string) {
	t.Helper()

	settings := config.Default()
	settings.History.Path = filepath.Join(dir, "history.db")
	settings.History.Enabled = &enabled

	path := filepath.Join(dir, config.DefaultConfigFilename)
	require.NoError(t, config.Save(path, settings))

	return path, settings.History.Path
}

// TestShowHistory_MissingDatabase verifies nothing is created when no run was recorded.
func TestShowHistory_MissingDatabase(t *testing.T) {
	t.Parallel()

	settingsFile, databaseFile := writeSettings(t, t.TempDir(), true)

	var out bytes.Buffer

	require.NoError(t, showHistory(context.Background(), &out, settingsFile, 5))
	require.Equal(t, "No runs recorded.\n", out.String())
	require.NoFileExists(t, databaseFile)
}

// TestShowHistory_ListsRuns verifies recorded runs are printed.
func TestShowHistory_ListsRuns(t *testing.T) {
	t.Parallel()

	settingsFile, databaseFile := writeSettings(t, t.TempDir(), true)

	repo, err := history.Open(databaseFile)
	require.NoError(t, err)

	run := &launch.Run{
		ID:        "run-42",
		StartedAt: time.Now(),
		Actor:     &launch.Actor{Hostname: "host", Username: "operator"},
	}
	require.NoError(t, repo.Start(context.Background(), run))

	run.Finish(run.StartedAt.Add(time.Second), nil)
	require.NoError(t, repo.Finish(context.Background(), run))
	require.NoError(t, repo.Close())

	var out bytes.Buffer

	require.NoError(t, showHistory(context.Background(), &out, settingsFile, 5))
	require.Contains(t, out.String(), "RUN ID")
	require.Contains(t, out.String(), "run-42")
	require.Contains(t, out.String(), "operator@host")
	require.Contains(t, out.String(), launch.OutcomeExited)
}

// TestShowHistory_Disabled verifies a disabled history is reported.
func TestShowHistory_Disabled(t *testing.T) {
	t.Parallel()

	settingsFile, databaseFile := writeSettings(t, t.TempDir(), false)

	err := showHistory(context.Background(), &bytes.Buffer{}, settingsFile, 5)
	require.ErrorIs(t, err, errHistoryDisabled)
	require.NoFileExists(t, databaseFile)
}
