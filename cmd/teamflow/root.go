package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "teamflow",
	Short: "Multi-agent workflow orchestrator",
	Long: `Teamflow executes a declared set of tasks, each bound to an agent,
honoring the declared dependency graph while streaming a fully ordered
workflow log.

Agents come in two kinds: ReAct agents drive a language model through a
bounded think/act/observe loop with tool use, and workflow-driven agents
execute a declarative step graph deterministically. Teams are declared in a
YAML file; see 'teamflow run --help' to execute one.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func main() {
	Execute()
}
