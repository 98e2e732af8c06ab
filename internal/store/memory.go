package store

import (
	"errors"
	"sync"

	"github.com/theirongolddev/budget/internal/model"
)

// Memory is an in-process credential store. The zero value is empty and
// ready to use.
type Memory struct {
	mu    sync.Mutex
	creds model.Credentials
	ok    bool
}

// NewMemory returns a store preloaded with creds if non-empty.
func NewMemory(creds model.Credentials) *Memory {
	return &Memory{creds: creds, ok: !creds.Empty()}
}

func (m *Memory) Load() (model.Credentials, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creds, m.ok, nil
}

func (m *Memory) Save(creds model.Credentials) error {
	if creds.Empty() {
		return errors.New("refusing to store empty access token")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds, m.ok = creds, true
	return nil
}

func (m *Memory) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds, m.ok = model.Credentials{}, false
	return nil
}
