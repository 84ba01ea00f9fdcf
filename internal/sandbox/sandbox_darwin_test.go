//go:build darwin

package sandbox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateSeatbeltProfileIncludesAllowedPaths(t *testing.T) {
	cfg := Config{
		AllowedPaths:     []PathGrant{{Path: "/tmp/workspace", Writable: true}, {Path: "/etc", Writable: false}},
		AllowedEndpoints: []string{"api.anthropic.com:443"},
	}
	profile := generateSeatbeltProfile(cfg)

	require.Contains(t, profile, "(deny default)")
	require.Contains(t, profile, `(allow file-read* (subpath "/tmp/workspace"))`)
	require.Contains(t, profile, `(allow file-write* (subpath "/tmp/workspace"))`)
	require.Contains(t, profile, `(allow file-read* (subpath "/etc"))`)
	require.NotContains(t, profile, `(allow file-write* (subpath "/etc"))`)
	require.Contains(t, profile, `(allow network-outbound (remote tcp "api.anthropic.com:443"))`)
}
