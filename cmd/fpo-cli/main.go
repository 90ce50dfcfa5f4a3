package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/promptpool/fpo/cmd/fpo-cli/internal/commands"
)

var rootCmd = &cobra.Command{
	Use:   "fpo-cli",
	Short: "Manage and run federated prompt optimization",
	Long: `A command-line interface for the federated prompt optimization engine.
It keeps a persistent registry of prompt candidates, scores them against
evaluation cases with a model-backed evaluator, and evolves better prompts
over time.

The CLI provides:
- Registry seeding from a YAML or JSON template file
- Optimization runs against JSON or Parquet case files
- Registry inspection, human readable or JSON`,
	Version: "0.1.0",
}

func init() {
	rootCmd.AddCommand(commands.NewSeedCommand())
	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(commands.NewStatusCommand())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
