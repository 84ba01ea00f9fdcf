//go:build !windows

package procmgr

import "os/exec"

func applyPlatformAttrs(cmd *exec.Cmd) {}
