//go:build windows

package procmgr

import (
	"os/exec"
	"syscall"
)

const createNoWindow = 0x08000000

func applyPlatformAttrs(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: createNoWindow}
}
