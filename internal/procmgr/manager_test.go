package procmgr

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func echoCommand() string {
	if runtime.GOOS == "windows" {
		return "echo hello"
	}
	return "echo hello"
}

func TestSpawnAndGetOutput(t *testing.T) {
	m := NewManager()
	defer m.Stop()

	sessionID, err := m.Spawn(echoCommand(), "")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, _, running, _, err := m.GetOutput(sessionID)
		return err == nil && !running
	}, 2*time.Second, 10*time.Millisecond)

	stdout, _, running, code, err := m.GetOutput(sessionID)
	require.NoError(t, err)
	require.False(t, running)
	require.NotNil(t, code)
	require.Equal(t, 0, *code)
	require.Contains(t, stdout, "hello")
}

func TestGetOutputUnknownSession(t *testing.T) {
	m := NewManager()
	defer m.Stop()

	_, _, _, _, err := m.GetOutput("missing")
	require.Error(t, err)
}

func TestRunForegroundReturnsOutput(t *testing.T) {
	m := NewManager()
	defer m.Stop()

	stdout, _, code, err := m.RunForeground(context.Background(), echoCommand(), "")
	require.NoError(t, err)
	require.NotNil(t, code)
	require.Equal(t, 0, *code)
	require.Contains(t, stdout, "hello")
}

func TestListReportsSpawnedProcesses(t *testing.T) {
	m := NewManager()
	defer m.Stop()

	sessionID, err := m.Spawn(echoCommand(), "")
	require.NoError(t, err)

	infos := m.List()
	found := false
	for _, info := range infos {
		if info.SessionID == sessionID {
			found = true
		}
	}
	require.True(t, found)
}

func TestKillStopsRunningProcess(t *testing.T) {
	m := NewManager()
	defer m.Stop()

	cmd := "sleep 30"
	if runtime.GOOS == "windows" {
		cmd = "ping -t 127.0.0.1"
	}
	sessionID, err := m.Spawn(cmd, "")
	require.NoError(t, err)

	require.NoError(t, m.Kill(sessionID))

	require.Eventually(t, func() bool {
		_, _, running, _, err := m.GetOutput(sessionID)
		return err == nil && !running
	}, 2*time.Second, 10*time.Millisecond)
}
