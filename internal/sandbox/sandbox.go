// Package sandbox applies OS-native process isolation to spawned agent
// processes: Linux cgroup v2 memory limits, macOS Seatbelt profiles, and
// Windows Job Objects. Grounded on original_source/crates/bat-gateway/src/
// sandbox.rs.
package sandbox

// Config configures the isolation applied to one agent process.
type Config struct {
	// MemoryLimitMB caps resident memory; 0 means unlimited.
	MemoryLimitMB uint64
	// AllowedPaths are (path, writable) pairs the sandboxed process may
	// touch. Only the macOS Seatbelt profile reads them; DefaultConfig
	// leaves them empty and nothing fills them from the path policies.
	AllowedPaths []PathGrant
	// AllowedEndpoints are host:port pairs the sandbox permits outbound
	// network access to.
	AllowedEndpoints []string
}

// PathGrant is one filesystem path the sandbox should allow, read-only or
// read-write.
type PathGrant struct {
	Path     string
	Writable bool
}

// DefaultConfig mirrors SandboxConfig::default in sandbox.rs: a modest
// memory ceiling and access to the Anthropic API only.
func DefaultConfig() Config {
	return Config{
		MemoryLimitMB:    512,
		AllowedEndpoints: []string{"api.anthropic.com:443"},
	}
}

// PreSpawnConfig carries isolation setup that must be applied at spawn
// time rather than after, because the OS mechanism requires cooperation
// from the exec call itself (e.g. a Seatbelt profile passed to
// sandbox-exec). Empty on every OS except macOS.
type PreSpawnConfig struct {
	SeatbeltProfile string
}

// Handle releases sandbox resources tied to one process. Close is
// idempotent and safe to call on the zero value.
type Handle interface {
	Close() error
}

// noopHandle is used on OSes (or code paths) with no sandbox resources to
// release.
type noopHandle struct{}

func (noopHandle) Close() error { return nil }
