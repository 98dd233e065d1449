package supervisor

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// State is a step of the child process lifecycle.
type State string

const (
	// StateNotStarted is the initial state.
	StateNotStarted State = "not_started"
	// StateSpawning means the command is being created.
	StateSpawning State = "spawning"
	// StateRunning means the child is running and being waited for.
	StateRunning State = "running"
	// StateExited means the child terminated and its status is known.
	StateExited State = "exited"
	// StateSpawnFailed means the child could not be created.
	StateSpawnFailed State = "spawn_failed"
	// StateInterrupted means the wait was abandoned; the child is no longer managed.
	StateInterrupted State = "interrupted"
)

// errInvalidTransition is returned for transitions outside the lifecycle.
var errInvalidTransition = errors.New("invalid state transition")

// validTransitions lists the allowed next states. Exited, SpawnFailed and
// Interrupted are terminal.
//
//nolint:gochecknoglobals // Read-only lookup table.
var validTransitions = map[State][]State{
	StateNotStarted: {StateSpawning},
	StateSpawning:   {StateRunning, StateSpawnFailed},
	StateRunning:    {StateExited, StateInterrupted},
}

// Transition records one state change.
type Transition struct {
	From      State
	To        State
	Timestamp time.Time
}

// stateMachine tracks the lifecycle of a single child process.
type stateMachine struct {
	mu          sync.RWMutex
	current     State
	transitions []Transition
}

func newStateMachine() *stateMachine {
	return &stateMachine{current: StateNotStarted}
}

// Current returns the current state.
func (m *stateMachine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.current
}

// History returns a copy of the recorded transitions.
func (m *stateMachine) History() []Transition {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]Transition(nil), m.transitions...)
}

// Transition moves to the next state if the lifecycle allows it.
func (m *stateMachine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, allowed := range validTransitions[m.current] {
		if allowed != to {
			continue
		}

		m.transitions = append(m.transitions, Transition{
			From:      m.current,
			To:        to,
			Timestamp: time.Now(),
		})
		m.current = to

		return nil
	}

	return fmt.Errorf("%w: from %q to %q", errInvalidTransition, m.current, to)
}
