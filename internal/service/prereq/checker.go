package prereq

import (
	"context"
	"errors"
	"os/exec"

	"github.com/oshokin/server-launcher/internal/config"
	"github.com/oshokin/server-launcher/internal/logger"
)

// Checker probes whether the runtime can be executed.
type Checker struct {
	// command is the runtime executable name.
	command string
	// versionArgs are the arguments of the probe.
	versionArgs []string
	// installDir is searched when command is not in PATH.
	installDir string
}

// NewChecker creates a Checker from the runtime settings.
func NewChecker(settings *config.Runtime) *Checker {
	return &Checker{
		command:     settings.Command,
		versionArgs: append([]string(nil), settings.VersionArgs...),
		installDir:  settings.InstallDir,
	}
}

// IsRuntimeInstalled runs the version query once and waits for it. Any exit status
// counts as installed; failing to start, or being interrupted while waiting, does not.
func (c *Checker) IsRuntimeInstalled(ctx context.Context) bool {
	executable := ResolveExecutable(c.command, c.installDir)

	// Output is discarded: only the ability to run matters.
	err := exec.CommandContext(ctx, executable, c.versionArgs...).Run()
	if err == nil {
		logger.DebugKV(ctx, "Runtime probe succeeded", "executable", executable)

		return true
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		logger.DebugKV(ctx, "Runtime probe exited with non-zero status",
			"executable", executable, "status", exitErr.ExitCode())

		return true
	}

	logger.InfoKV(ctx, "Runtime probe failed", "executable", executable, "error", err)

	return false
}
