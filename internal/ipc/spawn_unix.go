//go:build !windows

package ipc

import (
	"bufio"
	"io"
	"os/exec"

	"github.com/nestmesh/nest/internal/logging"
	"go.uber.org/zap"
)

func applyPlatformSpawnAttrs(cmd *exec.Cmd) {}

func drainStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		logging.Warn("agent stderr", zap.String("line", scanner.Text()))
	}
}
