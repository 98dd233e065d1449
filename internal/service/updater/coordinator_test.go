package updater

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/server-launcher/internal/config"
	"github.com/oshokin/server-launcher/internal/service/common"
)

// feedServer serves a release feed and two assets, counting hits per path.
type feedServer struct {
	*httptest.Server

	feedHits   atomic.Int32
	firstHits  atomic.Int32
	secondHits atomic.Int32

	// feedStatus, feedBody and assetStatus are fixed before the server starts.
	// "{base}" in feedBody expands to the server base URL.
	feedStatus  int
	feedBody    string
	assetStatus int
}

// defaultFeedBody lists /first.jar then /second.jar.
const defaultFeedBody = `{"tag_name":"v1.2.0","assets":[` +
	`{"name":"server.jar","browser_download_url":"{base}/first.jar"},` +
	`{"name":"sources.jar","browser_download_url":"{base}/second.jar"}]}`

// newFeedServer starts a feed server after letting mutate adjust its responses.
func newFeedServer(t *testing.T, mutate func(*feedServer)) *feedServer {
	t.Helper()

	fs := &feedServer{
		feedStatus:  http.StatusOK,
		feedBody:    defaultFeedBody,
		assetStatus: http.StatusOK,
	}

	if mutate != nil {
		mutate(fs)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/releases/latest", func(w http.ResponseWriter, r *http.Request) {
		fs.feedHits.Add(1)
		w.WriteHeader(fs.feedStatus)
		_, _ = w.Write([]byte(strings.ReplaceAll(fs.feedBody, "{base}", "http://"+r.Host)))
	})
	mux.HandleFunc("/first.jar", func(w http.ResponseWriter, _ *http.Request) {
		fs.firstHits.Add(1)
		w.WriteHeader(fs.assetStatus)
		_, _ = w.Write([]byte("first-artifact"))
	})
	mux.HandleFunc("/second.jar", func(w http.ResponseWriter, _ *http.Request) {
		fs.secondHits.Add(1)
		_, _ = w.Write([]byte("second-artifact"))
	})

	fs.Server = httptest.NewServer(mux)
	t.Cleanup(fs.Close)

	return fs
}

func newTestCoordinator(fs *feedServer, artifactPath, mode string) *Coordinator {
	return NewCoordinator(&config.Update{
		FeedURL:      fs.URL + "/releases/latest",
		ArtifactPath: artifactPath,
		Mode:         mode,
	}, common.NewClient())
}

// TestIsArtifactCurrent checks the presence-only rule and the always mode.
func TestIsArtifactCurrent(t *testing.T) {
	t.Parallel()

	fs := newFeedServer(t, nil)
	artifact := filepath.Join(t.TempDir(), "server.jar")

	presence := newTestCoordinator(fs, artifact, config.UpdateModePresence)
	always := newTestCoordinator(fs, artifact, config.UpdateModeAlways)

	require.False(t, presence.IsArtifactCurrent())

	// Any file counts, even an empty one.
	require.NoError(t, os.WriteFile(artifact, nil, 0o600))
	require.True(t, presence.IsArtifactCurrent())
	require.False(t, always.IsArtifactCurrent())

	// The feed is never consulted by the check.
	require.Zero(t, fs.feedHits.Load())
}

// TestFetchLatestArtifact_DownloadsFirstAsset verifies one download of assets[0].
func TestFetchLatestArtifact_DownloadsFirstAsset(t *testing.T) {
	t.Parallel()

	fs := newFeedServer(t, nil)
	artifact := filepath.Join(t.TempDir(), "server.jar")

	url, err := newTestCoordinator(fs, artifact, config.UpdateModePresence).FetchLatestArtifact(context.Background())
	require.NoError(t, err)
	require.Equal(t, fs.URL+"/first.jar", url)

	contents, err := os.ReadFile(artifact)
	require.NoError(t, err)
	require.Equal(t, "first-artifact", string(contents))

	require.EqualValues(t, 1, fs.feedHits.Load())
	require.EqualValues(t, 1, fs.firstHits.Load())
	require.Zero(t, fs.secondHits.Load())
}

// TestFetchLatestArtifact_OverwritesExisting ensures an old artifact is replaced.
func TestFetchLatestArtifact_OverwritesExisting(t *testing.T) {
	t.Parallel()

	fs := newFeedServer(t, nil)
	artifact := filepath.Join(t.TempDir(), "server.jar")
	require.NoError(t, os.WriteFile(artifact, []byte("stale-artifact-with-longer-body"), 0o600))

	_, err := newTestCoordinator(fs, artifact, config.UpdateModeAlways).FetchLatestArtifact(context.Background())
	require.NoError(t, err)

	contents, err := os.ReadFile(artifact)
	require.NoError(t, err)
	require.Equal(t, "first-artifact", string(contents))
}

// TestFetchLatestArtifact_Failures leaves no file behind when the fetch fails.
func TestFetchLatestArtifact_Failures(t *testing.T) {
	t.Parallel()

	cases := map[string]func(fs *feedServer){
		"feed status":  func(fs *feedServer) { fs.feedStatus = http.StatusForbidden },
		"invalid json": func(fs *feedServer) { fs.feedBody = "<html>" },
		"no assets":    func(fs *feedServer) { fs.feedBody = `{"tag_name":"v1","assets":[]}` },
		"asset status": func(fs *feedServer) { fs.assetStatus = http.StatusNotFound },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			fs := newFeedServer(t, mutate)

			artifact := filepath.Join(t.TempDir(), "server.jar")

			_, err := newTestCoordinator(fs, artifact, config.UpdateModePresence).FetchLatestArtifact(context.Background())
			require.Error(t, err)

			_, err = os.Stat(artifact)
			require.True(t, os.IsNotExist(err), "artifact must not exist after a failed fetch")
		})
	}
}

// TestParseRelease covers the descriptor fields and the empty-asset case.
func TestParseRelease(t *testing.T) {
	t.Parallel()

	descriptor, err := ParseRelease([]byte(`{"tag_name":"v2","assets":[{"browser_download_url":"https://x/a.jar"}]}`))
	require.NoError(t, err)
	require.Equal(t, "v2", descriptor.TagName)

	url, err := descriptor.DownloadURL()
	require.NoError(t, err)
	require.Equal(t, "https://x/a.jar", url)

	descriptor, err = ParseRelease([]byte(`{"tag_name":"v3"}`))
	require.NoError(t, err)

	_, err = descriptor.DownloadURL()
	require.ErrorIs(t, err, errNoAssets)

	_, err = ParseRelease([]byte(`{"assets":`))
	require.ErrorIs(t, err, errInvalidFeed)
}
