// Package pathpolicy decides whether an agent may read or write a given
// filesystem path under a set of operator-configured policies.
package pathpolicy

import (
	"path/filepath"
	"runtime"
	"strings"
)

// AccessLevel controls which operations a Policy grants on its path.
type AccessLevel string

const (
	ReadOnly  AccessLevel = "read-only"
	ReadWrite AccessLevel = "read-write"
	WriteOnly AccessLevel = "write-only"
)

// Policy grants access to everything under (or directly inside, if not
// Recursive) Path.
type Policy struct {
	Path        string
	Access      AccessLevel
	Recursive   bool
	Description string
}

// stripWinPrefix removes the `\\?\` extended-length prefix Windows adds to
// canonicalized paths so they compare correctly against user-supplied ones.
func stripWinPrefix(p string) string {
	const prefix = `\\?\`
	return strings.TrimPrefix(p, prefix)
}

// normalize makes a path comparable: strip the Windows extended prefix and,
// on Windows only, lowercase it to match that OS's case-insensitive
// filesystem semantics.
func normalize(p string) string {
	p = stripWinPrefix(p)
	if runtime.GOOS == "windows" {
		return strings.ToLower(p)
	}
	return p
}

// Allows reports whether this policy permits the given operation on target.
func (p Policy) Allows(target string, write bool) bool {
	normTarget := normalize(target)
	normPolicy := normalize(p.Path)

	var matches bool
	if p.Recursive {
		matches = normTarget == normPolicy || strings.HasPrefix(normTarget, normPolicy+string(filepath.Separator))
	} else {
		matches = filepath.Dir(normTarget) == normPolicy
	}
	if !matches {
		return false
	}

	switch p.Access {
	case ReadWrite:
		return true
	case ReadOnly:
		return !write
	case WriteOnly:
		return write
	default:
		return false
	}
}

// CheckAccess reports whether any policy in the set allows the operation.
// Policies are OR-aggregated: a single matching grant is sufficient.
func CheckAccess(policies []Policy, target string, write bool) bool {
	for _, p := range policies {
		if p.Allows(target, write) {
			return true
		}
	}
	return false
}
