package updater

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/oshokin/server-launcher/internal/config"
	"github.com/oshokin/server-launcher/internal/logger"
	"github.com/oshokin/server-launcher/internal/service/common"
)

const (
	// DefaultFileMode is applied to the downloaded artifact.
	DefaultFileMode os.FileMode = 0o644

	// feedAccept asks the GitHub API for its stable JSON representation.
	feedAccept = "application/vnd.github+json"
)

// Coordinator decides whether the artifact must be fetched and fetches it.
type Coordinator struct {
	// client performs the feed query and the download.
	client *common.Client
	// feedURL is the latest-release endpoint.
	feedURL string
	// artifactPath is the local artifact file.
	artifactPath string
	// mode is config.UpdateModePresence or config.UpdateModeAlways.
	mode string
}

// NewCoordinator creates a Coordinator from the update settings.
func NewCoordinator(settings *config.Update, client *common.Client) *Coordinator {
	return &Coordinator{
		client:       client,
		feedURL:      settings.FeedURL,
		artifactPath: filepath.Clean(settings.ArtifactPath),
		mode:         settings.Mode,
	}
}

// IsArtifactCurrent reports whether the artifact file exists. No version is compared.
// In the always mode nothing is ever current.
func (c *Coordinator) IsArtifactCurrent() bool {
	if c.mode == config.UpdateModeAlways {
		return false
	}

	return common.FileExists(c.artifactPath)
}

// LatestRelease queries the release feed once.
func (c *Coordinator) LatestRelease(ctx context.Context) (*ReleaseDescriptor, error) {
	body, err := c.client.Fetch(ctx, c.feedURL, feedAccept)
	if err != nil {
		return nil, fmt.Errorf("query release feed: %w", err)
	}

	return ParseRelease(body)
}

// FetchLatestArtifact downloads the first asset of the latest release over the artifact
// file and returns the URL it was downloaded from. There is exactly one download attempt.
func (c *Coordinator) FetchLatestArtifact(ctx context.Context) (string, error) {
	release, err := c.LatestRelease(ctx)
	if err != nil {
		return "", err
	}

	downloadURL, err := release.DownloadURL()
	if err != nil {
		return "", err
	}

	logger.InfoKV(ctx, "Downloading server artifact",
		"release", release.TagName, "url", downloadURL, "path", c.artifactPath)

	err = c.client.Stream(ctx, downloadURL, func(body io.Reader) error {
		return replaceFile(c.artifactPath, body)
	})
	if err != nil {
		return downloadURL, fmt.Errorf("download artifact: %w", err)
	}

	logger.InfoKV(ctx, "Server artifact updated", "path", c.artifactPath)

	return downloadURL, nil
}

// replaceFile swaps target for the contents of body using go-update, which writes the
// new file next to the target and renames it into place.
func replaceFile(target string, body io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(target), common.DefaultDirMode); err != nil {
		return err
	}

	// go-update renames the current target away first, so it has to exist.
	placeholder := false

	if _, err := os.Stat(target); errors.Is(err, os.ErrNotExist) {
		file, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, DefaultFileMode)
		if err != nil {
			return err
		}

		if err = file.Close(); err != nil {
			return err
		}

		placeholder = true
	}

	options := goupdate.Options{
		TargetPath: target,
		TargetMode: DefaultFileMode,
	}

	if err := goupdate.Apply(body, options); err != nil {
		// An empty placeholder would pass the presence check on the next run.
		if placeholder {
			_ = os.Remove(target)
		}

		return err
	}

	return nil
}
