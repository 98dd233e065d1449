package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/oshokin/server-launcher/internal/config"
	"github.com/oshokin/server-launcher/internal/domain/launch"
	"github.com/oshokin/server-launcher/internal/launchconfig"
	"github.com/oshokin/server-launcher/internal/logger"
	"github.com/oshokin/server-launcher/internal/repository/history"
	"github.com/oshokin/server-launcher/internal/service/common"
	"github.com/oshokin/server-launcher/internal/service/prereq"
	"github.com/oshokin/server-launcher/internal/service/supervisor"
	"github.com/oshokin/server-launcher/internal/service/updater"
	"github.com/oshokin/server-launcher/internal/version"
)

// Options controls a launcher run.
type Options struct {
	// SettingsPath specifies the path to the settings YAML file.
	SettingsPath string
	// LaunchConfigPath overrides launch.config_path from the settings.
	LaunchConfigPath string
	// UpdateMode overrides update.mode from the settings.
	UpdateMode string
	// FailClosed makes install and fetch failures abort the run.
	FailClosed bool
	// Stdin is passed to the server; nil means os.Stdin.
	Stdin io.Reader
	// Stdout is passed to the server; nil means os.Stdout.
	Stdout io.Writer
	// Stderr is passed to the server; nil means os.Stderr.
	Stderr io.Writer
}

// Run performs one launcher run and blocks until the server exits.
// The returned error maps to the process exit code through launch.ExitCode.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "server-launcher")

	settings, err := loadSettings(opts)
	if err != nil {
		logger.ErrorKV(ctx, "Launcher failed", "error", err)

		return err
	}

	run := &launch.Run{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		Outcome:   launch.OutcomeRunning,
	}

	ctx = logger.WithKV(ctx, "run_id", run.ID)

	// Detect current system actor for the run history.
	if run.Actor, err = common.DetectActor(); err != nil {
		logger.WarnKV(ctx, "Failed to detect actor", "error", err)
	}

	marker := NewMarker(settings.MarkerFile)
	if err = marker.Acquire(ctx); err != nil {
		logger.ErrorKV(ctx, "Launcher failed", "error", err)

		return err
	}

	defer marker.Release(ctx)

	repo := openHistory(ctx, &settings.History)
	if repo != nil {
		defer func() {
			_ = repo.Close()
		}()

		if err = repo.Start(ctx, run.Clone()); err != nil {
			logger.WarnKV(ctx, "Failed to record run start", "error", err)
		}
	}

	logger.InfoKV(ctx, "Launcher started",
		"version", version.Version, "update_mode", settings.Update.Mode, "artifact", settings.Update.ArtifactPath)

	err = Execute(ctx, newStages(settings, opts), newPolicy(settings), run)

	run.Finish(time.Now(), err)
	logResult(ctx, run, err)

	if repo != nil {
		// The run context may already be cancelled; the final record is written anyway.
		if finishErr := repo.Finish(context.WithoutCancel(ctx), run.Clone()); finishErr != nil {
			logger.WarnKV(ctx, "Failed to record run result", "error", finishErr)
		}
	}

	return err
}

// loadSettings reads the settings file and applies the command line overrides.
func loadSettings(opts *Options) (*config.Config, error) {
	settings, err := config.Load(opts.SettingsPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	if opts.LaunchConfigPath != "" {
		settings.Launch.ConfigPath = opts.LaunchConfigPath
	}

	if opts.UpdateMode != "" {
		settings.Update.Mode = opts.UpdateMode
	}

	if opts.FailClosed {
		settings.SetFailOpen(false)
	}

	if err = config.Validate(settings); err != nil {
		return nil, fmt.Errorf("validate settings: %w", err)
	}

	return settings, nil
}

// newStages wires the production stage implementations.
func newStages(settings *config.Config, opts *Options) *Stages {
	client := common.NewClient(
		common.WithUserAgent(version.UserAgent()),
		common.WithCallTimeout(settings.HTTPTimeout),
	)

	stdin, stdout, stderr := opts.Stdin, opts.Stdout, opts.Stderr
	if stdin == nil {
		stdin = os.Stdin
	}

	if stdout == nil {
		stdout = os.Stdout
	}

	if stderr == nil {
		stderr = os.Stderr
	}

	return &Stages{
		Checker:    prereq.NewChecker(&settings.Runtime),
		Installer:  prereq.NewInstaller(&settings.Runtime, client),
		Updater:    updater.NewCoordinator(&settings.Update, client),
		Loader:     launchconfig.NewLoader(settings.Launch.ConfigPath),
		Supervisor: supervisor.New(settings, supervisor.WithStreams(stdin, stdout, stderr)),
	}
}

func newPolicy(settings *config.Config) Policy {
	return Policy{
		InstallRuntime:  settings.Runtime.InstallEnabled(),
		InstallFailOpen: settings.Runtime.InstallFailOpen(),
		FetchFailOpen:   settings.Update.FetchFailOpen(),
	}
}

// openHistory opens the run history. Failures are logged and disable the history.
func openHistory(ctx context.Context, settings *config.History) history.Repository {
	if !settings.IsEnabled() {
		return nil
	}

	repo, err := history.Open(settings.Path)
	if err != nil {
		logger.WarnKV(ctx, "Run history unavailable", "path", settings.Path, "error", err)

		return nil
	}

	return repo
}

func logResult(ctx context.Context, run *launch.Run, err error) {
	duration := run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String()

	if err == nil {
		logger.InfoKV(ctx, "Launcher finished", "duration", duration)

		return
	}

	var childErr *launch.ChildExitError
	if errors.As(err, &childErr) {
		logger.ErrorKV(ctx, "Server exited with a non-zero status",
			"status", childErr.Status, "exit_code", run.ExitCode, "duration", duration)

		return
	}

	logger.ErrorKV(ctx, "Launcher failed",
		"stage", launch.KindOf(err).String(), "exit_code", run.ExitCode, "duration", duration, "error", err)
}
