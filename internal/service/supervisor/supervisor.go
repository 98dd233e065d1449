package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/oshokin/server-launcher/internal/config"
	"github.com/oshokin/server-launcher/internal/domain/launch"
	"github.com/oshokin/server-launcher/internal/launchconfig"
	"github.com/oshokin/server-launcher/internal/logger"
	"github.com/oshokin/server-launcher/internal/service/common"
	"github.com/oshokin/server-launcher/internal/service/prereq"
)

// errArtifactMissing is returned when the artifact path does not resolve to a file.
var errArtifactMissing = errors.New("server artifact not found")

// Supervisor launches the server and waits for it to exit.
type Supervisor struct {
	// runtimeCommand is the runtime executable name before resolution.
	runtimeCommand string
	// installDir is where a locally installed runtime is looked up.
	installDir string
	// artifactPath is the server artifact passed after -jar.
	artifactPath string
	// modeFlag is the trailing non-interactive argument.
	modeFlag string
	// workDir is the child's working directory; empty means the launcher's own.
	workDir string

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	state *stateMachine
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithStreams replaces the inherited console streams.
func WithStreams(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(s *Supervisor) {
		s.stdin = stdin
		s.stdout = stdout
		s.stderr = stderr
	}
}

// WithWorkDir runs the child in dir instead of the launcher's working directory.
func WithWorkDir(dir string) Option {
	return func(s *Supervisor) {
		s.workDir = dir
	}
}

// New creates a Supervisor from the launcher settings. By default the child shares
// the launcher's stdin, stdout and stderr.
func New(settings *config.Config, opts ...Option) *Supervisor {
	s := &Supervisor{
		runtimeCommand: settings.Runtime.Command,
		installDir:     settings.Runtime.InstallDir,
		artifactPath:   settings.Update.ArtifactPath,
		modeFlag:       settings.Launch.ModeFlag,
		stdin:          os.Stdin,
		stdout:         os.Stdout,
		stderr:         os.Stderr,
		state:          newStateMachine(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Args returns the runtime arguments: heap flags, -jar, the artifact and the mode flag.
func Args(cfg *launchconfig.LaunchConfig, artifactPath, modeFlag string) []string {
	return []string{
		"-Xmx" + cfg.MaxHeap() + "M",
		"-Xms" + cfg.InitialHeap() + "M",
		"-jar",
		artifactPath,
		modeFlag,
	}
}

// State returns the lifecycle state of the child.
func (s *Supervisor) State() State {
	return s.state.Current()
}

// Transitions returns the lifecycle history of the child.
func (s *Supervisor) Transitions() []Transition {
	return s.state.History()
}

// LaunchServer spawns the server and blocks until it exits, returning its exit status.
// Cancelling ctx ends the wait with a WaitInterrupted error but leaves the child running.
func (s *Supervisor) LaunchServer(ctx context.Context, cfg *launchconfig.LaunchConfig) (int, error) {
	if err := s.state.Transition(StateSpawning); err != nil {
		return -1, launch.NewError(launch.KindSpawn, err)
	}

	defer s.logLifecycle(ctx)

	cmd, err := s.spawn(ctx, cfg)
	if err != nil {
		_ = s.state.Transition(StateSpawnFailed)

		return -1, launch.NewError(launch.KindSpawn, err)
	}

	_ = s.state.Transition(StateRunning)

	logger.InfoKV(ctx, "Server started", "pid", cmd.Process.Pid)

	done := make(chan error, 1)

	go func() {
		done <- cmd.Wait()
	}()

	select {
	case err = <-done:
		_ = s.state.Transition(StateExited)

		var exitErr *exec.ExitError
		if err != nil && !errors.As(err, &exitErr) {
			// The child exited but copying its output failed.
			logger.WarnKV(ctx, "Server output was not fully forwarded", "error", err)
		}

		status := cmd.ProcessState.ExitCode()
		logger.InfoKV(ctx, "Server exited", "status", status)

		return status, nil
	case <-ctx.Done():
		_ = s.state.Transition(StateInterrupted)

		logger.WarnKV(ctx, "Stopped waiting for the server, it keeps running",
			"pid", cmd.Process.Pid, "reason", ctx.Err())

		return -1, launch.NewError(launch.KindWaitInterrupted, ctx.Err())
	}
}

// Lifecycle returns the states the child went through, starting with StateNotStarted.
func (s *Supervisor) Lifecycle() []State {
	transitions := s.Transitions()

	states := make([]State, 0, len(transitions)+1)
	states = append(states, StateNotStarted)

	for _, transition := range transitions {
		states = append(states, transition.To)
	}

	return states
}

func (s *Supervisor) logLifecycle(ctx context.Context) {
	states := s.Lifecycle()

	names := make([]string, 0, len(states))
	for _, state := range states {
		names = append(names, string(state))
	}

	logger.DebugKV(ctx, "Server lifecycle", "states", strings.Join(names, " -> "))
}

// spawn builds and starts the command.
func (s *Supervisor) spawn(ctx context.Context, cfg *launchconfig.LaunchConfig) (*exec.Cmd, error) {
	if !common.FileExists(s.artifactPath) {
		return nil, fmt.Errorf("%s: %w", s.artifactPath, errArtifactMissing)
	}

	executable := prereq.ResolveExecutable(s.runtimeCommand, s.installDir)
	args := Args(cfg, s.artifactPath, s.modeFlag)

	// exec.Command rather than CommandContext: cancelling ctx must not kill the server.
	cmd := exec.Command(executable, args...) //nolint:gosec,noctx // The command line comes from the launcher settings.
	cmd.Dir = s.workDir
	cmd.Stdin = s.stdin
	cmd.Stdout = s.stdout
	cmd.Stderr = s.stderr

	logger.InfoKV(ctx, "Starting server", "executable", executable, "args", args)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", executable, err)
	}

	return cmd, nil
}
