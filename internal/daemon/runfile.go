package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// ErrNotRunning means no live monitor owns the run file.
var ErrNotRunning = errors.New("daemon: not running")

// RunState is what a running monitor records about itself.
type RunState struct {
	PID       int       `json:"pid"`
	Addr      string    `json:"addr"`
	Source    string    `json:"source"`
	Interval  string    `json:"interval"`
	StartedAt time.Time `json:"started_at"`
}

// RunFile is the JSON file a monitor holds while it runs. It replaces a bare
// pid file so status and stop also learn the listen address.
type RunFile struct {
	Path  string
	alive func(pid int) bool
}

// NewRunFile returns a RunFile at path.
func NewRunFile(path string) RunFile {
	return RunFile{Path: path, alive: processAlive}
}

func (f RunFile) isAlive(pid int) bool {
	if f.alive == nil {
		return processAlive(pid)
	}
	return f.alive(pid)
}

// Live returns the state of the monitor holding the file. A missing file or
// one left behind by a dead process yields ErrNotRunning; the stale file is
// removed.
func (f RunFile) Live() (RunState, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return RunState{}, ErrNotRunning
	}
	if err != nil {
		return RunState{}, fmt.Errorf("read run file: %w", err)
	}
	var st RunState
	if err := json.Unmarshal(data, &st); err != nil || st.PID <= 0 {
		_ = os.Remove(f.Path)
		return RunState{}, ErrNotRunning
	}
	if !f.isAlive(st.PID) {
		_ = os.Remove(f.Path)
		return RunState{}, ErrNotRunning
	}
	return st, nil
}

// Claim records st unless another live monitor already holds the file.
func (f RunFile) Claim(st RunState) error {
	if held, err := f.Live(); err == nil {
		return fmt.Errorf("daemon already running (pid %d on %s)", held.PID, held.Addr)
	} else if !errors.Is(err, ErrNotRunning) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o750); err != nil {
		return fmt.Errorf("create run directory: %w", err)
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("write run file: %w", err)
	}
	return os.Rename(tmp, f.Path)
}

// Release removes the file if pid still owns it.
func (f RunFile) Release(pid int) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return
	}
	var st RunState
	if json.Unmarshal(data, &st) == nil && st.PID == pid {
		_ = os.Remove(f.Path)
	}
}

// Stop sends SIGTERM to the live monitor and waits for it to exit.
func (f RunFile) Stop(ctx context.Context, wait time.Duration) (RunState, error) {
	st, err := f.Live()
	if err != nil {
		return RunState{}, err
	}
	proc, err := os.FindProcess(st.PID)
	if err != nil {
		return st, fmt.Errorf("find daemon process: %w", err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return st, fmt.Errorf("signal daemon process: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	tick := time.NewTicker(150 * time.Millisecond)
	defer tick.Stop()
	for {
		if !f.isAlive(st.PID) {
			_ = os.Remove(f.Path)
			return st, nil
		}
		select {
		case <-ctx.Done():
			return st, fmt.Errorf("daemon (pid %d) did not exit in time", st.PID)
		case <-tick.C:
		}
	}
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}
