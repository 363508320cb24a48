package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/teamflow/internal/config"
	"github.com/ShayCichocki/teamflow/internal/queue"
	"github.com/ShayCichocki/teamflow/pkg/models"
)

var validateCmd = &cobra.Command{
	Use:   "validate <team-file>",
	Short: "Validate a team definition without running it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tf, err := config.LoadTeamFile(args[0])
		if err != nil {
			return err
		}

		values := make([]models.Task, 0, len(tf.Tasks))
		for _, task := range tf.BuildTasks() {
			values = append(values, *task)
		}
		if _, err := queue.BuildGraph(values); err != nil {
			return fmt.Errorf("dependency graph: %w", err)
		}

		color.Green("%s: %d agents, %d tasks, dependency graph OK", tf.Name, len(tf.Agents), len(tf.Tasks))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
