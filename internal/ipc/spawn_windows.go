//go:build windows

package ipc

import (
	"bufio"
	"io"
	"os/exec"
	"syscall"

	"github.com/nestmesh/nest/internal/logging"
	"go.uber.org/zap"
)

// createNoWindow prevents the spawned agent from flashing a console
// window on Windows.
const createNoWindow = 0x08000000

func applyPlatformSpawnAttrs(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: createNoWindow}
}

func drainStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		logging.Warn("agent stderr", zap.String("line", scanner.Text()))
	}
}
