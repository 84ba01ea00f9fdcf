//go:build windows

package sandbox

import (
	"fmt"
	"unsafe"

	"github.com/nestmesh/nest/internal/logging"
	"go.uber.org/zap"
	"golang.org/x/sys/windows"
)

// Apply creates a Windows Job Object with a memory limit and assigns pid to
// it, mirroring sandbox.rs's apply_windows_sandbox (windows_sys there,
// golang.org/x/sys/windows here — same Win32 API surface).
func Apply(pid int, cfg Config) (Handle, error) {
	job, err := windows.CreateJobObject(nil, nil)
	if err != nil {
		return nil, fmt.Errorf("creating job object: %w", err)
	}

	if cfg.MemoryLimitMB > 0 {
		info := windows.JOBOBJECT_EXTENDED_LIMIT_INFORMATION{
			BasicLimitInformation: windows.JOBOBJECT_BASIC_LIMIT_INFORMATION{
				LimitFlags: windows.JOB_OBJECT_LIMIT_PROCESS_MEMORY,
			},
			ProcessMemoryLimit: uintptr(cfg.MemoryLimitMB * 1024 * 1024),
		}
		if err := windows.SetInformationJobObject(
			job,
			windows.JobObjectExtendedLimitInformation,
			uintptr(unsafe.Pointer(&info)),
			uint32(unsafe.Sizeof(info)),
		); err != nil {
			windows.CloseHandle(job)
			return nil, fmt.Errorf("setting job object memory limit: %w", err)
		}
	}

	proc, err := windows.OpenProcess(windows.PROCESS_ALL_ACCESS, false, uint32(pid))
	if err != nil {
		windows.CloseHandle(job)
		return nil, fmt.Errorf("opening process %d for job object: %w", pid, err)
	}
	defer windows.CloseHandle(proc)

	if err := windows.AssignProcessToJobObject(job, proc); err != nil {
		windows.CloseHandle(job)
		return nil, fmt.Errorf("assigning process to job object: %w", err)
	}

	logging.Info("windows job object sandbox applied", zap.Int("pid", pid), zap.Uint64("memory_limit_mb", cfg.MemoryLimitMB))
	return &windowsHandle{job: job}, nil
}

type windowsHandle struct {
	job windows.Handle
}

func (h *windowsHandle) Close() error {
	if h.job == 0 {
		return nil
	}
	err := windows.CloseHandle(h.job)
	h.job = 0
	return err
}

// PreSpawnSetup has nothing to contribute on Windows: the Job Object is
// assigned post-spawn, once the PID is known.
func PreSpawnSetup(cfg Config) (PreSpawnConfig, error) {
	return PreSpawnConfig{}, nil
}
