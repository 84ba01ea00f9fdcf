//go:build darwin

package sandbox

import (
	"fmt"
	"strings"

	"github.com/nestmesh/nest/internal/logging"
	"go.uber.org/zap"
)

// Apply is a no-op on macOS, mirroring sandbox.rs's apply_macos_sandbox: a
// Seatbelt profile only takes effect when the process is started under
// sandbox-exec. PreSpawnSetup generates that profile, but ipc.SpawnAgent
// does not start the agent under sandbox-exec, so agent processes on macOS
// run without a Seatbelt profile.
func Apply(pid int, cfg Config) (Handle, error) {
	logging.Info("macos seatbelt sandbox", zap.Int("allowed_paths", len(cfg.AllowedPaths)))
	return noopHandle{}, nil
}

// PreSpawnSetup generates the Seatbelt profile text a caller should pass to
// sandbox-exec when spawning the agent process.
func PreSpawnSetup(cfg Config) (PreSpawnConfig, error) {
	return PreSpawnConfig{SeatbeltProfile: generateSeatbeltProfile(cfg)}, nil
}

func generateSeatbeltProfile(cfg Config) string {
	var b strings.Builder
	b.WriteString("(version 1)\n(deny default)\n")
	b.WriteString("(allow process-exec)\n")
	b.WriteString("(allow process-fork)\n")
	b.WriteString("(allow sysctl-read)\n")
	b.WriteString("(allow mach-lookup)\n")

	for _, grant := range cfg.AllowedPaths {
		fmt.Fprintf(&b, "(allow file-read* (subpath %q))\n", grant.Path)
		if grant.Writable {
			fmt.Fprintf(&b, "(allow file-write* (subpath %q))\n", grant.Path)
		}
	}

	for _, endpoint := range cfg.AllowedEndpoints {
		fmt.Fprintf(&b, "(allow network-outbound (remote tcp %q))\n", endpoint)
	}

	b.WriteString("(allow network-outbound (remote udp \"*:53\"))\n")
	b.WriteString("(allow file-read* file-write* (subpath \"/tmp\"))\n")
	b.WriteString("(allow file-read* file-write* (subpath \"/private/tmp\"))\n")

	return b.String()
}
