package launcher

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestMarker_AcquireRelease verifies the marker holds our PID and is removed afterwards.
func TestMarker_AcquireRelease(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "launcher.marker")
	marker := NewMarker(path)

	require.NoError(t, marker.Acquire(context.Background()))

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, strconv.Itoa(os.Getpid())+"\n", string(contents))

	marker.Release(context.Background())
	require.NoFileExists(t, path)
}

// TestMarker_LiveOwnerBlocks verifies a marker held by a running process is respected.
func TestMarker_LiveOwnerBlocks(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "launcher.marker")
	owner := strconv.Itoa(os.Getppid())
	require.NoError(t, os.WriteFile(path, []byte(owner+"\n"), 0o600))

	err := NewMarker(path).Acquire(context.Background())
	require.ErrorIs(t, err, errAlreadyRunning)

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, owner+"\n", string(contents))
}

// TestMarker_StaleOwnerReplaced verifies dead, unreadable and self-owned markers are replaced.
func TestMarker_StaleOwnerReplaced(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		contents string
	}{
		{name: "dead pid", contents: "2147483646\n"},
		{name: "garbage", contents: "not a pid"},
		{name: "empty", contents: ""},
		{name: "own pid", contents: strconv.Itoa(os.Getpid())},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "launcher.marker")
			require.NoError(t, os.WriteFile(path, []byte(tt.contents), 0o600))

			marker := NewMarker(path)
			require.NoError(t, marker.Acquire(context.Background()))

			contents, err := os.ReadFile(path)
			require.NoError(t, err)
			require.Equal(t, strconv.Itoa(os.Getpid())+"\n", string(contents))

			marker.Release(context.Background())
			require.NoFileExists(t, path)
		})
	}
}

// TestMarker_ReleaseLeavesForeignMarker verifies a marker rewritten by someone else survives.
func TestMarker_ReleaseLeavesForeignMarker(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "launcher.marker")
	marker := NewMarker(path)
	require.NoError(t, marker.Acquire(context.Background()))

	require.NoError(t, os.WriteFile(path, []byte("1\n"), 0o600))

	marker.Release(context.Background())
	require.FileExists(t, path)
}

// TestMarker_ReleaseWithoutAcquire is a no-op.
func TestMarker_ReleaseWithoutAcquire(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "launcher.marker")
	require.NoError(t, os.WriteFile(path, []byte("1\n"), 0o600))

	NewMarker(path).Release(context.Background())
	require.FileExists(t, path)
}
