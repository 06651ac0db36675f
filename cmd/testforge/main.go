package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/testforge/testforge/cmd/testforge/commands"
	"github.com/testforge/testforge/logger"
)

var rootCmd = &cobra.Command{
	Use:   "testforge",
	Short: "TestForge - LLM-assisted test generation and execution service",
	Long: `TestForge generates automated tests from source code with a local LLM
and runs them asynchronously: Maven builds of generated Java tests,
remote browser checks, and Gatling/JMeter load tests.

Available commands:
  serve   - Start the HTTP API server
  am      - Manage TestForge configuration ("I am")
  version - Show version information

Examples:
  testforge serve            # Start the API on the configured port
  testforge am show          # Show current configuration
  testforge serve --db-path tmp/dev.db`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize global logger before any command runs
		if cmd.Name() != "show" {
			if err := logger.Initialize(false); err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
