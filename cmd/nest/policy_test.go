package main

import (
	"testing"

	"github.com/nestmesh/nest/internal/pathpolicy"
	"github.com/nestmesh/nest/internal/store"
	"github.com/stretchr/testify/require"
)

func TestStorePathJoinsWorkspace(t *testing.T) {
	require.Equal(t, "/tmp/ws/nest.db", storePath("/tmp/ws"))
}

func TestRunPolicyAddRejectsInvalidAccess(t *testing.T) {
	cfg.Workspace = t.TempDir()
	policyAccess = "not-a-real-level"
	policyRecursive = true
	policyDescription = ""
	defer func() { policyAccess = string(pathpolicy.ReadWrite) }()

	err := runPolicyAdd(policyAddCmd, []string{"/tmp/whatever"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid --access")
}

func TestRunPolicyAddSavesAndIsLoadable(t *testing.T) {
	cfg.Workspace = t.TempDir()
	policyAccess = string(pathpolicy.ReadOnly)
	policyRecursive = false
	policyDescription = "test grant"
	defer func() { policyAccess = string(pathpolicy.ReadWrite); policyRecursive = true }()

	require.NoError(t, runPolicyAdd(policyAddCmd, []string{"/tmp/project"}))

	st, err := store.Open(storePath(cfg.Workspace))
	require.NoError(t, err)
	defer st.Close()

	policies, err := st.LoadPolicies()
	require.NoError(t, err)
	require.Len(t, policies, 1)
	require.Equal(t, "/tmp/project", policies[0].Path)
	require.Equal(t, pathpolicy.ReadOnly, policies[0].Access)
	require.False(t, policies[0].Recursive)
	require.Equal(t, "test grant", policies[0].Description)
}
