// Package session owns the client's authentication lifecycle: hydrating a
// session from stored credentials, establishing and tearing it down, and
// deciding whether a protected view may render.
package session

import (
	"sync"

	"github.com/theirongolddev/budget/internal/model"
)

// Status is the lifecycle phase of the session.
type Status int

const (
	Uninitialized Status = iota
	Verifying
	Authenticated
	Anonymous
)

func (s Status) String() string {
	switch s {
	case Verifying:
		return "verifying"
	case Authenticated:
		return "authenticated"
	case Anonymous:
		return "anonymous"
	default:
		return "uninitialized"
	}
}

// Snapshot is an immutable copy of the session state. Identity is non-nil
// exactly when Status is Authenticated.
type Snapshot struct {
	Status           Status
	Identity         *model.User
	FinancialProfile *model.FinancialProfile
}

// Authenticated reports whether a verified identity is present.
func (s Snapshot) Authenticated() bool {
	return s.Status == Authenticated && s.Identity != nil
}

// View is read-only access to the current session.
type View interface {
	Snapshot() Snapshot
}

// State holds the process's single session. Only Controller writes to it.
type State struct {
	mu   sync.RWMutex
	snap Snapshot
	// gen identifies the latest hydration; older hydrations may not commit.
	gen uint64
}

// NewState returns an uninitialized session.
func NewState() *State {
	return &State{snap: Snapshot{Status: Uninitialized}}
}

func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// begin starts a hydration and returns its generation.
func (s *State) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.snap = Snapshot{Status: Verifying}
	return s.gen
}

// commit installs snap if gen is still the latest generation. onCommit, if
// set, runs under the lock so it cannot interleave with a newer writer.
func (s *State) commit(gen uint64, snap Snapshot, onCommit func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return false
	}
	s.snap = snap
	if onCommit != nil {
		onCommit()
	}
	return true
}

// supersede invalidates any in-flight hydration, runs fn under the lock and,
// if next is non-nil, installs it whatever fn returned.
func (s *State) supersede(next *Snapshot, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	var err error
	if fn != nil {
		err = fn()
	}
	if next != nil {
		s.snap = *next
	}
	return err
}
