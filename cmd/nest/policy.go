package main

import (
	"fmt"

	"github.com/nestmesh/nest/internal/pathpolicy"
	"github.com/nestmesh/nest/internal/store"
	"github.com/spf13/cobra"
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "manage path policies that gate agent filesystem access",
}

var policyAddCmd = &cobra.Command{
	Use:   "add <path>",
	Short: "grant the agent access to a filesystem path",
	Args:  cobra.ExactArgs(1),
	RunE:  runPolicyAdd,
}

var (
	policyAccess      string
	policyRecursive   bool
	policyDescription string
)

func init() {
	policyAddCmd.Flags().StringVar(&policyAccess, "access", string(pathpolicy.ReadWrite), "access level: read-only, read-write, write-only")
	policyAddCmd.Flags().BoolVar(&policyRecursive, "recursive", true, "grant access to everything under the path, not just direct children")
	policyAddCmd.Flags().StringVar(&policyDescription, "description", "", "human-readable note about why this grant exists")
	policyCmd.AddCommand(policyAddCmd)
}

func runPolicyAdd(cmd *cobra.Command, args []string) error {
	st, err := store.Open(storePath(cfg.Workspace))
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	access := pathpolicy.AccessLevel(policyAccess)
	switch access {
	case pathpolicy.ReadOnly, pathpolicy.ReadWrite, pathpolicy.WriteOnly:
	default:
		return fmt.Errorf("invalid --access %q: must be read-only, read-write, or write-only", policyAccess)
	}

	id, err := st.SavePolicy(pathpolicy.Policy{
		Path:        args[0],
		Access:      access,
		Recursive:   policyRecursive,
		Description: policyDescription,
	}, "")
	if err != nil {
		return fmt.Errorf("saving policy: %w", err)
	}
	fmt.Printf("saved policy %s: %s [%s]\n", id, args[0], access)
	return nil
}
