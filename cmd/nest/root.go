package main

import (
	"fmt"
	"os"

	"github.com/nestmesh/nest/internal/config"
	"github.com/nestmesh/nest/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	cfg     config.Config
)

// rootCmd is nest's default action: drop straight into an interactive
// chat against the main session, following cmd/loom/main.go's
// Run-on-the-root-command shape rather than requiring a subcommand.
var rootCmd = &cobra.Command{
	Use:     "nest",
	Short:   "nest - a hierarchical LLM agent orchestrator",
	Long:    `nest runs a supervisor process that spawns sandboxed per-turn agent processes, persists conversation and audit history, and delegates work to background subagents.`,
	Version: version.Get(),
	RunE:    runChat,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml, else $HOME/.nest/config.yaml)")
	rootCmd.PersistentFlags().String("workspace", "", "workspace directory (IDENTITY.md/MEMORY.md/SKILLS.md live here)")
	rootCmd.PersistentFlags().String("model", "", "default model for new sessions")
	rootCmd.PersistentFlags().String("anthropic-key", "", "Anthropic API key (or ANTHROPIC_API_KEY env var)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "emit JSON structured logs instead of console-formatted ones")

	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("default_model", rootCmd.PersistentFlags().Lookup("model"))
	_ = viper.BindPFlag("anthropic_api_key", rootCmd.PersistentFlags().Lookup("anthropic-key"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(policyCmd)
}

func initConfig() {
	v := viper.GetViper()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	}

	loaded, err := config.Load(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}
	if jsonLogs, _ := rootCmd.PersistentFlags().GetBool("log-json"); jsonLogs {
		loaded.LogFormat = "json"
	}
	cfg = loaded
}
