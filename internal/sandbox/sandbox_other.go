//go:build !linux && !darwin && !windows

package sandbox

import (
	"github.com/nestmesh/nest/internal/logging"
)

// Apply is a no-op on platforms with no sandbox backend, logged so the
// absence of isolation is visible rather than silent.
func Apply(pid int, cfg Config) (Handle, error) {
	logging.Warn("no sandbox support for this OS")
	return noopHandle{}, nil
}

func PreSpawnSetup(cfg Config) (PreSpawnConfig, error) {
	return PreSpawnConfig{}, nil
}
