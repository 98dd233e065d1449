package launcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	ps "github.com/mitchellh/go-ps"

	"github.com/oshokin/server-launcher/internal/config"
	"github.com/oshokin/server-launcher/internal/logger"
)

// errAlreadyRunning is returned when another live launcher holds the marker.
var errAlreadyRunning = errors.New("another launcher is running in this directory")

// Marker is a PID file that keeps two launchers from working in the same directory.
type Marker struct {
	// path is the marker file location.
	path string
	// pid is the process ID written to the marker.
	pid int
	// held is set once the marker has been created by this process.
	held bool
}

// NewMarker returns a marker for the current process.
func NewMarker(path string) *Marker {
	return &Marker{
		path: path,
		pid:  os.Getpid(),
	}
}

// Acquire creates the marker. A marker left by a process that is no longer running is
// replaced; one held by a live process makes Acquire fail.
func (m *Marker) Acquire(ctx context.Context) error {
	// Two attempts: the second one follows the removal of a stale marker.
	for range 2 {
		err := m.create()
		if err == nil {
			m.held = true

			logger.DebugKV(ctx, "Run marker acquired", "path", m.path, "pid", m.pid)

			return nil
		}

		if !errors.Is(err, os.ErrExist) {
			return fmt.Errorf("create run marker: %w", err)
		}

		owner, alive := m.owner()
		if alive {
			return fmt.Errorf("%w: pid %d holds %s", errAlreadyRunning, owner, m.path)
		}

		logger.WarnKV(ctx, "Replacing stale run marker", "path", m.path, "pid", owner)

		if err = os.Remove(m.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove stale run marker: %w", err)
		}
	}

	return fmt.Errorf("%w: %s keeps reappearing", errAlreadyRunning, m.path)
}

// Release removes the marker if this process still owns it.
func (m *Marker) Release(ctx context.Context) {
	if !m.held {
		return
	}

	m.held = false

	if owner, _ := m.owner(); owner != m.pid {
		logger.WarnKV(ctx, "Run marker was taken over, leaving it", "path", m.path, "pid", owner)

		return
	}

	if err := os.Remove(m.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.WarnKV(ctx, "Failed to remove run marker", "path", m.path, "error", err)
	}
}

func (m *Marker) create() error {
	file, err := os.OpenFile(m.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, config.DefaultFilePermissions)
	if err != nil {
		return err
	}

	_, err = file.WriteString(strconv.Itoa(m.pid) + "\n")
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		_ = os.Remove(m.path)

		return err
	}

	return nil
}

// owner reads the PID stored in the marker and reports whether that process is alive.
// Our own PID is never considered alive: it can only be left over from a previous run.
func (m *Marker) owner() (int, bool) {
	contents, err := os.ReadFile(m.path)
	if err != nil {
		return 0, false
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(contents)))
	if err != nil || pid <= 0 {
		return 0, false
	}

	if pid == m.pid {
		return pid, false
	}

	process, err := ps.FindProcess(pid)
	if err != nil || process == nil {
		return pid, false
	}

	return pid, true
}
