package updater

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

var (
	// errInvalidFeed is returned when the release feed body is not JSON.
	errInvalidFeed = errors.New("release feed is not valid JSON")
	// errNoAssets is returned when the latest release lists no downloadable asset.
	errNoAssets = errors.New("latest release has no downloadable assets")
)

// ReleaseDescriptor is the part of the release feed the launcher consumes.
type ReleaseDescriptor struct {
	// TagName is the release tag, used for logging only.
	TagName string
	// AssetURLs lists browser_download_url of every asset in feed order.
	AssetURLs []string
}

// ParseRelease extracts the release descriptor from a release feed JSON document.
func ParseRelease(data []byte) (*ReleaseDescriptor, error) {
	if !gjson.ValidBytes(data) {
		return nil, errInvalidFeed
	}

	result := gjson.ParseBytes(data)
	descriptor := &ReleaseDescriptor{
		TagName: result.Get("tag_name").String(),
	}

	for _, asset := range result.Get("assets").Array() {
		descriptor.AssetURLs = append(descriptor.AssetURLs, asset.Get("browser_download_url").String())
	}

	return descriptor, nil
}

// DownloadURL returns the first asset's download URL. Assets are not filtered by name,
// so a release publishing several assets must list the server artifact first.
func (d *ReleaseDescriptor) DownloadURL() (string, error) {
	if len(d.AssetURLs) == 0 || d.AssetURLs[0] == "" {
		return "", fmt.Errorf("release %q: %w", d.TagName, errNoAssets)
	}

	return d.AssetURLs[0], nil
}
