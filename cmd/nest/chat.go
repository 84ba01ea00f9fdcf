package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/nestmesh/nest/internal/llm"
	"github.com/nestmesh/nest/internal/logging"
	"github.com/nestmesh/nest/internal/procmgr"
	"github.com/nestmesh/nest/internal/reflection"
	"github.com/nestmesh/nest/internal/sandbox"
	"github.com/nestmesh/nest/internal/store"
	"github.com/nestmesh/nest/internal/supervisor"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

func storePath(workspace string) string {
	return filepath.Join(workspace, "nest.db")
}

// runChat wires every long-lived component and drives an interactive
// session against the main session, following cmd/loom/main.go's
// connect-then-run-a-client-loop shape, generalized from a gRPC client
// loop to driving Supervisor.RunTurn directly in-process.
func runChat(cmd *cobra.Command, args []string) error {
	production := cfg.LogFormat == "json"
	if err := logging.Init(cfg.LogLevel, production); err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}
	defer logging.Sync() //nolint:errcheck

	if cfg.AnthropicAPIKey == "" {
		return fmt.Errorf("no Anthropic API key configured; set --anthropic-key or ANTHROPIC_API_KEY")
	}
	if err := os.MkdirAll(cfg.Workspace, 0o755); err != nil {
		return fmt.Errorf("creating workspace %s: %w", cfg.Workspace, err)
	}

	st, err := store.Open(storePath(cfg.Workspace))
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	procs := procmgr.NewManager()
	defer procs.Stop()

	reflectClient := llm.NewClient(llm.Config{
		APIKey: cfg.AnthropicAPIKey,
		Model:  cfg.ReflectionModel,
	})
	memory := reflection.NewStore(cfg.Workspace)
	reflector := reflection.NewReflector(reflectClient, memory)

	sandboxCfg := sandbox.DefaultConfig()
	sandboxCfg.MemoryLimitMB = uint64(cfg.SandboxMemoryLimitMB)

	sup := supervisor.New(st, procs, reflector, cfg.AnthropicAPIKey, cfg.Workspace, "nest", sandboxCfg)
	sup.Human().Bind()
	defer sup.Human().Unbind()

	sess, err := st.GetOrCreateMain(cfg.DefaultModel)
	if err != nil {
		return fmt.Errorf("loading main session: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sub := sup.Events().Subscribe()
	defer sub.Close()
	go printEvents(sub.Events())

	fmt.Printf("nest %s — workspace %s — model %s\n", sess.ID, cfg.Workspace, sess.Model)
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Println("(non-interactive terminal: reading one message per line from stdin)")
	}

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	fmt.Print("> ")
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			fmt.Print("> ")
			continue
		}
		if err := sup.RunTurn(ctx, sess, line); err != nil {
			logging.Error("turn failed", zap.Error(err))
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		fmt.Print("> ")
	}
	return scanner.Err()
}

// printEvents renders the supervisor's live TurnEvent stream to stdout, a
// stand-in for the TUI/bridge adapters spec.md §1 scopes out as external
// collaborators.
func printEvents(events <-chan supervisor.TurnEvent) {
	for evt := range events {
		switch evt.Kind {
		case supervisor.EventTextDelta:
			fmt.Print(evt.Text)
		case supervisor.EventToolCallStart:
			if evt.ToolCall != nil {
				fmt.Printf("\n[tool] %s %s\n", evt.ToolCall.Name, compactJSON(evt.ToolCall.Input))
			}
		case supervisor.EventToolCallResult:
			if evt.ToolResult != nil {
				status := "ok"
				if evt.ToolResult.IsError {
					status = "error"
				}
				fmt.Printf("[tool result %s] %s\n", status, evt.ToolResult.Content)
			}
		case supervisor.EventTurnComplete:
			fmt.Println()
		case supervisor.EventError:
			fmt.Printf("\n[error] %s\n", evt.Text)
		case supervisor.EventQuestion:
			fmt.Printf("\n[subagent %s asks] %s\n", evt.SessionKey, evt.Text)
		}
	}
}

func compactJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	return string(raw)
}
