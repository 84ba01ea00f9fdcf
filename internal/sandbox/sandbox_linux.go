//go:build linux

package sandbox

import (
	"fmt"
	"os"

	"github.com/nestmesh/nest/internal/logging"
	"go.uber.org/zap"
)

// Apply writes a cgroup v2 memory.max limit for pid and assigns it to a
// per-process cgroup, mirroring sandbox.rs's apply_linux_sandbox. Cgroup
// creation requires root or a delegated subtree; failure is logged and
// treated as best-effort, matching the original's behavior.
func Apply(pid int, cfg Config) (Handle, error) {
	if cfg.MemoryLimitMB == 0 {
		return noopHandle{}, nil
	}

	cgroupPath := fmt.Sprintf("/sys/fs/cgroup/nest/agent-%d", pid)
	if err := os.MkdirAll(cgroupPath, 0o755); err != nil {
		logging.Warn("failed to create cgroup dir (may need root)", zap.Error(err))
		return noopHandle{}, nil
	}

	memBytes := cfg.MemoryLimitMB * 1024 * 1024
	if err := os.WriteFile(cgroupPath+"/memory.max", []byte(fmt.Sprintf("%d", memBytes)), 0o644); err != nil {
		logging.Warn("failed to set cgroup memory limit", zap.Error(err))
	}
	if err := os.WriteFile(cgroupPath+"/cgroup.procs", []byte(fmt.Sprintf("%d", pid)), 0o644); err != nil {
		logging.Warn("failed to assign pid to cgroup", zap.Error(err))
	}

	logging.Info("linux cgroup sandbox applied", zap.Int("pid", pid), zap.Uint64("memory_limit_mb", cfg.MemoryLimitMB))
	return &linuxHandle{path: cgroupPath}, nil
}

type linuxHandle struct {
	path string
}

func (h *linuxHandle) Close() error {
	return os.RemoveAll(h.path)
}

// PreSpawnSetup has nothing to contribute on Linux: isolation is applied
// post-spawn via Apply once the PID is known.
func PreSpawnSetup(cfg Config) (PreSpawnConfig, error) {
	return PreSpawnConfig{}, nil
}
