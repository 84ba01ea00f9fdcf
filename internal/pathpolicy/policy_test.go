package pathpolicy

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func policy(path string, access AccessLevel, recursive bool) Policy {
	return Policy{Path: path, Access: access, Recursive: recursive}
}

func TestReadWriteAllowsBoth(t *testing.T) {
	p := policy("/tmp/test", ReadWrite, true)
	assert.True(t, p.Allows("/tmp/test/file.txt", false))
	assert.True(t, p.Allows("/tmp/test/file.txt", true))
}

func TestReadOnlyDeniesWrite(t *testing.T) {
	p := policy("/tmp/test", ReadOnly, true)
	assert.True(t, p.Allows("/tmp/test/file.txt", false))
	assert.False(t, p.Allows("/tmp/test/file.txt", true))
}

func TestWriteOnlyDeniesRead(t *testing.T) {
	p := policy("/tmp/test", WriteOnly, true)
	assert.False(t, p.Allows("/tmp/test/file.txt", false))
	assert.True(t, p.Allows("/tmp/test/file.txt", true))
}

func TestNonRecursiveOnlyDirectChildren(t *testing.T) {
	p := policy("/tmp/test", ReadWrite, false)
	assert.True(t, p.Allows("/tmp/test/file.txt", false))
	assert.False(t, p.Allows("/tmp/test/sub/file.txt", false))
}

func TestOutsidePathDenied(t *testing.T) {
	p := policy("/tmp/test", ReadWrite, true)
	assert.False(t, p.Allows("/tmp/other/file.txt", false))
}

func TestSiblingPrefixNotConfused(t *testing.T) {
	// /tmp/test-other must not match a recursive policy rooted at /tmp/test.
	p := policy("/tmp/test", ReadWrite, true)
	assert.False(t, p.Allows("/tmp/test-other/file.txt", false))
}

func TestCheckAccessMultiplePolicies(t *testing.T) {
	policies := []Policy{
		policy("/tmp/read", ReadOnly, true),
		policy("/tmp/write", WriteOnly, true),
	}
	assert.True(t, CheckAccess(policies, "/tmp/read/file.txt", false))
	assert.False(t, CheckAccess(policies, "/tmp/read/file.txt", true))
	assert.True(t, CheckAccess(policies, "/tmp/write/file.txt", true))
	assert.False(t, CheckAccess(policies, "/tmp/other/file.txt", false))
}

func TestCaseInsensitiveMatchWindows(t *testing.T) {
	if runtime.GOOS != "windows" {
		t.Skip("windows-only case folding behavior")
	}
	p := policy(`C:\Users\Test\Documents`, ReadWrite, true)
	assert.True(t, p.Allows(`C:\users\test\documents\file.txt`, true))
}

func TestWinPrefixStrippedWindows(t *testing.T) {
	if runtime.GOOS != "windows" {
		t.Skip("windows-only extended-prefix stripping")
	}
	p := policy(`C:\Users\Test`, ReadWrite, true)
	assert.True(t, p.Allows(`\\?\C:\Users\Test\file.txt`, true))
}
