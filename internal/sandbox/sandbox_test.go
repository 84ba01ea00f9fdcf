package sandbox

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.EqualValues(t, 512, cfg.MemoryLimitMB)
	require.Contains(t, cfg.AllowedEndpoints, "api.anthropic.com:443")
}

func TestApplyAndPreSpawnSetupDoNotPanic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AllowedPaths = []PathGrant{{Path: "/tmp", Writable: true}}

	handle, err := Apply(os.Getpid(), cfg)
	require.NoError(t, err)
	require.NoError(t, handle.Close())

	_, err = PreSpawnSetup(cfg)
	require.NoError(t, err)
}

func TestApplyWithZeroMemoryLimitIsNoop(t *testing.T) {
	cfg := Config{}
	handle, err := Apply(os.Getpid(), cfg)
	require.NoError(t, err)
	require.NoError(t, handle.Close())
}
