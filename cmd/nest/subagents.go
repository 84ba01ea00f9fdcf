package main

import (
	"fmt"

	"github.com/nestmesh/nest/internal/llm"
	"github.com/nestmesh/nest/internal/procmgr"
	"github.com/nestmesh/nest/internal/reflection"
	"github.com/nestmesh/nest/internal/sandbox"
	"github.com/nestmesh/nest/internal/store"
	"github.com/nestmesh/nest/internal/supervisor"
	"github.com/spf13/cobra"
)

var subagentsCmd = &cobra.Command{
	Use:   "subagents",
	Short: "list background subagents tracked by this process's scheduler",
	RunE:  runSubagentsList,
}

func init() {
	rootCmd.AddCommand(subagentsCmd)
}

// runSubagentsList opens a throwaway Supervisor purely to reuse its
// scheduler's bookkeeping view. Subagent state lives only in the memory of
// the process that spawned it, and this command does not read subagent
// sessions from the store, so the freshly created scheduler here always
// reports an empty list.
func runSubagentsList(cmd *cobra.Command, args []string) error {
	st, err := store.Open(storePath(cfg.Workspace))
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	procs := procmgr.NewManager()
	defer procs.Stop()

	memory := reflection.NewStore(cfg.Workspace)
	reflector := reflection.NewReflector(llm.NewClient(llm.Config{APIKey: cfg.AnthropicAPIKey, Model: cfg.ReflectionModel}), memory)

	sup := supervisor.New(st, procs, reflector, cfg.AnthropicAPIKey, cfg.Workspace, "nest", sandbox.DefaultConfig())

	infos := sup.Subagents().List()
	if len(infos) == 0 {
		fmt.Println("no subagents running")
		return nil
	}
	for _, info := range infos {
		fmt.Printf("%-12s %-8s %-8s %s\n", info.Key, info.Phase, info.Status, info.Label)
		if info.Summary != "" {
			fmt.Printf("             summary: %s\n", info.Summary)
		}
	}
	return nil
}
