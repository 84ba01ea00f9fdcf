// Package procmgr manages shell commands that persist across agent turns:
// spawn, stream output, write stdin, kill, list, and periodic cleanup of
// finished processes.
package procmgr

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/nestmesh/nest/internal/logging"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// maxBuffer bounds stdout/stderr retention per process, so a chatty
// long-running command can't exhaust memory.
const maxBuffer = 1 << 20

// cleanupAfter is how long after its start a process's record is kept;
// Cleanup removes records older than this once the process is no longer
// running.
const cleanupAfter = 30 * time.Minute

// foregroundTimeout bounds how long RunForeground waits before killing the
// command and returning an error.
const foregroundTimeout = 60 * time.Second

const foregroundPollInterval = 100 * time.Millisecond

// Info describes one managed process for listing.
type Info struct {
	SessionID string
	Command   string
	IsRunning bool
	ExitCode  *int
	StartedAt time.Time
}

// process is the manager's internal bookkeeping for one spawned command.
type process struct {
	command   string
	startedAt time.Time

	mu        sync.Mutex
	stdout    bytes.Buffer
	stderr    bytes.Buffer
	isRunning bool
	exitCode  *int

	stdin io.WriteCloser
	cmd   *exec.Cmd
}

// Manager tracks every background process spawned during the supervisor's
// lifetime. Grounded on original_source/crates/bat-gateway/src/
// process_manager.rs, with tokio's per-process reader/waiter tasks replaced
// by plain goroutines over the same *exec.Cmd.
type Manager struct {
	mu        sync.Mutex
	processes map[string]*process

	cron *cron.Cron
}

// NewManager creates an empty manager and starts its periodic cleanup job.
func NewManager() *Manager {
	m := &Manager{processes: make(map[string]*process), cron: cron.New()}
	_, err := m.cron.AddFunc("@every 5m", m.Cleanup)
	if err != nil {
		logging.Error("failed to schedule process cleanup", zap.Error(err))
	}
	m.cron.Start()
	return m
}

// Stop halts the periodic cleanup job. It does not touch running processes.
func (m *Manager) Stop() {
	m.cron.Stop()
}

func genID() (string, error) {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return fmt.Sprintf("%06x", buf), nil
}

// Spawn starts command in a shell and begins tracking its output and
// lifetime, returning a short session ID used by the rest of this API.
func (m *Manager) Spawn(command, workdir string) (string, error) {
	sessionID, err := genID()
	if err != nil {
		return "", fmt.Errorf("generating process session id: %w", err)
	}

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.Command("cmd", "/C", command)
	} else {
		cmd = exec.Command("sh", "-c", command)
	}
	if workdir != "" {
		cmd.Dir = workdir
	}
	applyPlatformAttrs(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return "", fmt.Errorf("attaching stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("attaching stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", fmt.Errorf("attaching stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("spawning %q: %w", command, err)
	}

	proc := &process{command: command, startedAt: time.Now(), isRunning: true, stdin: stdin, cmd: cmd}

	go drainInto(&proc.mu, &proc.stdout, stdout)
	go drainInto(&proc.mu, &proc.stderr, stderr)
	go func() {
		err := cmd.Wait()
		proc.mu.Lock()
		proc.isRunning = false
		if exitErr, ok := err.(*exec.ExitError); ok {
			code := exitErr.ExitCode()
			proc.exitCode = &code
		} else if err == nil {
			code := 0
			proc.exitCode = &code
		}
		proc.mu.Unlock()
	}()

	logging.Info("process spawned", zap.String("session_id", sessionID), zap.String("command", command))

	m.mu.Lock()
	m.processes[sessionID] = proc
	m.mu.Unlock()

	return sessionID, nil
}

// drainInto copies r into buf (bounded to maxBuffer) under mu, until r is
// exhausted or the read fails.
func drainInto(mu *sync.Mutex, buf *bytes.Buffer, r io.Reader) {
	tmp := make([]byte, 4096)
	for {
		n, err := r.Read(tmp)
		if n > 0 {
			mu.Lock()
			if buf.Len() < maxBuffer {
				take := n
				if buf.Len()+take > maxBuffer {
					take = maxBuffer - buf.Len()
				}
				buf.Write(tmp[:take])
			}
			mu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

// GetOutput returns a process's accumulated stdout/stderr, running status,
// and exit code (nil while still running).
func (m *Manager) GetOutput(sessionID string) (stdout, stderr string, isRunning bool, exitCode *int, err error) {
	proc, err := m.lookup(sessionID)
	if err != nil {
		return "", "", false, nil, err
	}
	proc.mu.Lock()
	defer proc.mu.Unlock()
	return proc.stdout.String(), proc.stderr.String(), proc.isRunning, proc.exitCode, nil
}

// WriteStdin writes data to a running process's stdin.
func (m *Manager) WriteStdin(sessionID, data string) error {
	proc, err := m.lookup(sessionID)
	if err != nil {
		return err
	}
	proc.mu.Lock()
	stdin := proc.stdin
	proc.mu.Unlock()
	if stdin == nil {
		return fmt.Errorf("process stdin not available")
	}
	if _, err := io.WriteString(stdin, data); err != nil {
		return fmt.Errorf("writing stdin: %w", err)
	}
	return nil
}

// Kill terminates a running process.
func (m *Manager) Kill(sessionID string) error {
	proc, err := m.lookup(sessionID)
	if err != nil {
		return err
	}
	if err := proc.cmd.Process.Kill(); err != nil {
		return fmt.Errorf("killing process: %w", err)
	}
	logging.Info("process killed", zap.String("session_id", sessionID))
	return nil
}

// List returns every managed process, running or finished-but-not-yet-
// cleaned-up.
func (m *Manager) List() []Info {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Info, 0, len(m.processes))
	for id, proc := range m.processes {
		proc.mu.Lock()
		out = append(out, Info{
			SessionID: id,
			Command:   proc.command,
			IsRunning: proc.isRunning,
			ExitCode:  proc.exitCode,
			StartedAt: proc.startedAt,
		})
		proc.mu.Unlock()
	}
	return out
}

// RunForeground spawns command and blocks until it exits or
// foregroundTimeout elapses, polling at foregroundPollInterval. On timeout
// the process is killed and removed.
func (m *Manager) RunForeground(ctx context.Context, command, workdir string) (stdout, stderr string, exitCode *int, err error) {
	sessionID, err := m.Spawn(command, workdir)
	if err != nil {
		return "", "", nil, err
	}

	deadline := time.Now().Add(foregroundTimeout)
	ticker := time.NewTicker(foregroundPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.forceRemove(sessionID)
			return "", "", nil, ctx.Err()
		case <-ticker.C:
			out, errOut, running, code, getErr := m.GetOutput(sessionID)
			if getErr != nil {
				return "", "", nil, getErr
			}
			if !running {
				m.mu.Lock()
				delete(m.processes, sessionID)
				m.mu.Unlock()
				return out, errOut, code, nil
			}
			if time.Now().After(deadline) {
				_ = m.Kill(sessionID)
				m.forceRemove(sessionID)
				return "", "", nil, fmt.Errorf("command timed out after %s", foregroundTimeout)
			}
		}
	}
}

func (m *Manager) forceRemove(sessionID string) {
	m.mu.Lock()
	delete(m.processes, sessionID)
	m.mu.Unlock()
}

// Cleanup removes finished processes older than cleanupAfter. Unlike
// process_manager.rs's hand-rolled background task, this is invoked by a
// github.com/robfig/cron/v3 schedule set up in NewManager.
func (m *Manager) Cleanup() {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, proc := range m.processes {
		proc.mu.Lock()
		finished := !proc.isRunning
		started := proc.startedAt
		proc.mu.Unlock()
		if finished && now.Sub(started) > cleanupAfter {
			delete(m.processes, id)
			removed++
		}
	}
	if removed > 0 {
		logging.Info("cleaned up finished processes", zap.Int("count", removed))
	}
}

func (m *Manager) lookup(sessionID string) (*process, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	proc, ok := m.processes[sessionID]
	if !ok {
		return nil, fmt.Errorf("no process with session_id: %s", sessionID)
	}
	return proc, nil
}
