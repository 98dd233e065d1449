package prereq

import (
	"context"
	"fmt"

	"github.com/oshokin/server-launcher/internal/config"
	"github.com/oshokin/server-launcher/internal/logger"
	"github.com/oshokin/server-launcher/internal/service/common"
)

// Installer downloads and unpacks the runtime distribution.
type Installer struct {
	// client performs the download.
	client *common.Client
	// archiveURL is the distribution archive.
	archiveURL string
	// archivePath is where the archive is saved.
	archivePath string
	// installDir is where the archive is extracted.
	installDir string
}

// NewInstaller creates an Installer from the runtime settings.
func NewInstaller(settings *config.Runtime, client *common.Client) *Installer {
	return &Installer{
		client:      client,
		archiveURL:  settings.ArchiveURL,
		archivePath: settings.ArchivePath,
		installDir:  settings.InstallDir,
	}
}

// InstallRuntime downloads the archive once and extracts it into the install directory.
func (i *Installer) InstallRuntime(ctx context.Context) error {
	logger.InfoKV(ctx, "Downloading runtime", "url", i.archiveURL, "path", i.archivePath)

	written, err := i.client.Download(ctx, i.archiveURL, i.archivePath)
	if err != nil {
		return fmt.Errorf("download runtime: %w", err)
	}

	logger.InfoKV(ctx, "Extracting runtime", "bytes", written, "destination", i.installDir)

	entries, err := Unzip(i.archivePath, i.installDir)
	if err != nil {
		return fmt.Errorf("extract runtime: %w", err)
	}

	logger.InfoKV(ctx, "Runtime installed", "entries", entries, "destination", i.installDir)

	return nil
}
