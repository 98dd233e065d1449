//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/server-launcher/internal/version"
)

// TestClient_Fetch verifies headers are sent and the body returned.
func TestClient_Fetch(t *testing.T) {
	t.Parallel()

	headers := make(chan http.Header, 1)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Clone()

		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer ts.Close()

	body, err := NewClient().Fetch(context.Background(), ts.URL, "application/json")
	require.NoError(t, err)
	require.JSONEq(t, `{"ok":true}`, string(body))

	got := <-headers
	require.Equal(t, version.UserAgent(), got.Get("User-Agent"))
	require.Equal(t, "application/json", got.Get("Accept"))
}

// TestClient_BadStatus ensures non-200 responses are errors.
func TestClient_BadStatus(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	_, err := NewClient().Fetch(context.Background(), ts.URL, "")
	require.ErrorIs(t, err, errBadHTTPStatus)

	_, err = NewClient().Fetch(context.Background(), "", "")
	require.ErrorIs(t, err, errURLRequired)
}

// TestClient_Download writes the body to a nested path and overwrites old contents.
func TestClient_Download(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("archive-bytes"))
	}))
	defer ts.Close()

	path := filepath.Join(t.TempDir(), "nested", "file.zip")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), DefaultDirMode))
	require.NoError(t, os.WriteFile(path, []byte("old contents that are longer"), 0o600))

	written, err := NewClient(WithUserAgent("test/1")).Download(context.Background(), ts.URL, path)
	require.NoError(t, err)
	require.EqualValues(t, len("archive-bytes"), written)

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "archive-bytes", string(contents))
	require.True(t, FileExists(path))
	require.False(t, FileExists(filepath.Dir(path)))
}

// TestClient_callContext checks timeout vs cancel-only behavior of callContext.
func TestClient_callContext(t *testing.T) {
	t.Parallel()

	c := NewClient()

	ctx, cancel := c.callContext(context.Background())
	cancel()

	_, ok := ctx.Deadline()
	require.False(t, ok)

	c = NewClient(WithCallTimeout(10*time.Millisecond), WithCallTimeout(-time.Second))

	ctx, cancel = c.callContext(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	require.WithinDuration(t, time.Now().Add(10*time.Millisecond), deadline, 30*time.Millisecond)
}
