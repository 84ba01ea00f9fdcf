package ipc

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// SpawnAgent starts the per-turn agent process pointed at pipeAddr, passing
// the model API key through the environment rather than the command line.
// stderr is piped back so the supervisor can log agent-side failures.
func SpawnAgent(pipeAddr, apiKey string) (*exec.Cmd, error) {
	agentExe, err := findAgentBinary()
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(agentExe, "--pipe", pipeAddr)
	cmd.Env = append(os.Environ(), "ANTHROPIC_API_KEY="+apiKey)
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("creating agent stderr pipe: %w", err)
	}
	cmd.Stdout = nil

	applyPlatformSpawnAttrs(cmd)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("spawning agent at %s: %w", agentExe, err)
	}
	go drainStderr(stderrPipe)
	return cmd, nil
}

// findAgentBinary looks for the nest-agent binary next to the currently
// running supervisor binary, then in a conventional resources/ subdirectory
// for packaged installs.
func findAgentBinary() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("determining current executable path: %w", err)
	}
	dir := filepath.Dir(exe)

	name := "nest-agent"
	if runtime.GOOS == "windows" {
		name = "nest-agent.exe"
	}

	candidates := []string{
		filepath.Join(dir, name),
		filepath.Join(dir, "resources", name),
	}
	if runtime.GOOS == "darwin" {
		candidates = append(candidates, filepath.Join(dir, "..", "Resources", name))
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", fmt.Errorf("nest-agent binary not found next to %s or its resources/ subdirectory; build it first", dir)
}
