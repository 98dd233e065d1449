package launcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/server-launcher/internal/domain/launch"
	"github.com/oshokin/server-launcher/internal/launchconfig"
	"github.com/oshokin/server-launcher/internal/logger"
)

// RuntimeChecker probes whether the runtime can be started.
type RuntimeChecker interface {
	IsRuntimeInstalled(ctx context.Context) bool
}

// RuntimeInstaller installs the runtime into a local directory.
type RuntimeInstaller interface {
	InstallRuntime(ctx context.Context) error
}

// ArtifactUpdater keeps the server artifact present.
type ArtifactUpdater interface {
	IsArtifactCurrent() bool
	FetchLatestArtifact(ctx context.Context) (string, error)
}

// ConfigLoader produces the launch config.
type ConfigLoader interface {
	LoadConfig(ctx context.Context) (*launchconfig.LaunchConfig, error)
}

// ServerSupervisor starts the server and waits for it.
type ServerSupervisor interface {
	LaunchServer(ctx context.Context, cfg *launchconfig.LaunchConfig) (int, error)
}

// Stages are the collaborators of a run, called in field order.
type Stages struct {
	Checker    RuntimeChecker
	Installer  RuntimeInstaller
	Updater    ArtifactUpdater
	Loader     ConfigLoader
	Supervisor ServerSupervisor
}

// Policy decides how stage failures are handled.
type Policy struct {
	// InstallRuntime enables the install stage; when false a failed probe aborts the run.
	InstallRuntime bool
	// InstallFailOpen logs install failures and continues.
	InstallFailOpen bool
	// FetchFailOpen logs fetch failures and continues.
	FetchFailOpen bool
}

// errRuntimeMissing is reported when the probe fails and installing is disabled.
var errRuntimeMissing = errors.New("runtime is not installed and installing it is disabled")

// Execute runs the stages in order and records what happened in run.
// It returns nil when the server exits with status 0, a *launch.ChildExitError for any
// other status and a *launch.Error when a stage aborts the run.
func Execute(ctx context.Context, stages *Stages, policy Policy, run *launch.Run) error {
	// Stage 1: make sure the runtime can be started.
	if err := ensureRuntime(ctx, stages, policy, run); err != nil {
		return err
	}

	// Stage 2: make sure the artifact is present.
	if err := ensureArtifact(ctx, stages, policy, run); err != nil {
		return err
	}

	// Stage 3: read or create the launch config.
	cfg, err := stages.Loader.LoadConfig(ctx)
	if err != nil {
		return launch.NewError(launch.KindConfig, err)
	}

	logger.DebugKV(ctx, "Heap sizes", "xmx", cfg.MaxHeap(), "xms", cfg.InitialHeap())

	// A signal received before the server started must not leave an unmanaged child behind.
	if err = ctx.Err(); err != nil {
		return launch.NewError(launch.KindWaitInterrupted, err)
	}

	// Stage 4: start the server and wait.
	status, err := stages.Supervisor.LaunchServer(ctx, cfg)
	if err != nil {
		if launch.KindOf(err) == 0 {
			err = launch.NewError(launch.KindSpawn, err)
		}

		return err
	}

	if status != 0 {
		return &launch.ChildExitError{Status: status}
	}

	return nil
}

func ensureRuntime(ctx context.Context, stages *Stages, policy Policy, run *launch.Run) error {
	if stages.Checker.IsRuntimeInstalled(ctx) {
		logger.Debug(ctx, "Runtime is installed")

		return nil
	}

	if err := ctx.Err(); err != nil {
		return launch.NewError(launch.KindProbe, err)
	}

	if !policy.InstallRuntime {
		return launch.NewError(launch.KindProbe, errRuntimeMissing)
	}

	logger.Info(ctx, "Runtime not found, installing")

	err := stages.Installer.InstallRuntime(ctx)
	if err == nil {
		run.RuntimeInstalled = true

		logger.Info(ctx, "Runtime installed")

		return nil
	}

	if !policy.InstallFailOpen || ctx.Err() != nil {
		return launch.NewError(launch.KindInstall, err)
	}

	logger.WarnKV(ctx, "Runtime install failed, continuing", "error", err)

	return nil
}

func ensureArtifact(ctx context.Context, stages *Stages, policy Policy, run *launch.Run) error {
	if stages.Updater.IsArtifactCurrent() {
		logger.Info(ctx, "Server artifact present, skipping update")

		return nil
	}

	logger.Info(ctx, "Server artifact missing, fetching latest release")

	downloadURL, err := stages.Updater.FetchLatestArtifact(ctx)
	run.DownloadURL = downloadURL

	if err == nil {
		run.ArtifactFetched = true

		return nil
	}

	err = fmt.Errorf("fetch latest artifact: %w", err)
	if !policy.FetchFailOpen || ctx.Err() != nil {
		return launch.NewError(launch.KindFetch, err)
	}

	logger.WarnKV(ctx, "Artifact fetch failed, continuing", "error", err)

	return nil
}
