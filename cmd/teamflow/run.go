package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/teamflow/internal/agent"
	"github.com/ShayCichocki/teamflow/internal/config"
	"github.com/ShayCichocki/teamflow/internal/llm"
	"github.com/ShayCichocki/teamflow/internal/state"
	"github.com/ShayCichocki/teamflow/internal/team"
	"github.com/ShayCichocki/teamflow/internal/tool"
	"github.com/ShayCichocki/teamflow/internal/tui"
	"github.com/ShayCichocki/teamflow/pkg/models"
)

var (
	runTUI      bool
	runEnvWatch string
	runInputs   []string
	runDebugLog string
)

var runCmd = &cobra.Command{
	Use:   "run <team-file>",
	Short: "Run a team workflow from a YAML definition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTeam(args[0])
	},
}

func init() {
	runCmd.Flags().BoolVar(&runTUI, "tui", false, "Render a live dashboard")
	runCmd.Flags().StringVar(&runEnvWatch, "env-watch", "", "Watch a dotenv file and apply changes via SetEnv")
	runCmd.Flags().StringArrayVar(&runInputs, "input", nil, "Workflow input as key=value (repeatable)")
	runCmd.Flags().StringVar(&runDebugLog, "debug-log", "", "Write a diagnostic log to this file")
	rootCmd.AddCommand(runCmd)
}

// buildTeam assembles a team from a definition file.
func buildTeam(path string, cfg *config.Config) (*team.Team, func(), error) {
	tf, err := config.LoadTeamFile(path)
	if err != nil {
		return nil, nil, err
	}
	tf.ApplyDefaults(cfg.Defaults)
	env := config.ResolveEnv(tf.Env)

	var cleanups []func()
	cleanup := func() {
		for _, fn := range cleanups {
			fn()
		}
	}

	registry := tool.NewRegistry(tool.NewCalculator())
	for _, server := range tf.MCPServers {
		tools, closeFn, err := tool.ConnectMCP(context.Background(), tool.MCPServerConfig{
			Command: server.Command,
			Args:    server.Args,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connect MCP server %s: %w", server.Name, err)
		}
		cleanups = append(cleanups, func() { _ = closeFn() })
		for _, t := range tools {
			registry.Register(t)
		}
	}

	var agents []*agent.Agent
	for _, spec := range tf.Agents {
		if spec.Kind == models.AgentKindReact && !spec.LLM.UseBedrock {
			if err := config.RequireKey(spec.LLM.Provider, env); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("agent %s: %w", spec.Name, err)
			}
		}
		provider, err := llm.NewProvider(spec.LLM, env)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("agent %s: %w", spec.Name, err)
		}
		bound, err := registry.Subset(spec.Tools)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("agent %s: %w", spec.Name, err)
		}
		agents = append(agents, agent.NewAgent(spec, provider, bound, env))
	}

	logger := team.NopLogger()
	logPath := runDebugLog
	if logPath == "" {
		logPath = cfg.Debug.LogPath
	}
	if logPath != "" {
		logger, err = team.NewDebugLogger(logPath)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		cleanups = append(cleanups, func() { _ = logger.Close() })
	}

	tm, err := team.New(team.Config{
		Name:        tf.Name,
		Agents:      agents,
		Tasks:       tf.BuildTasks(),
		Inputs:      tf.Inputs,
		Env:         env,
		LogLevel:    tf.LogLevel,
		LLMTimeout:  cfg.Timeouts.LLMCall,
		ToolTimeout: cfg.Timeouts.ToolCall,
		Logger:      logger,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	cleanups = append(cleanups, tm.Close)
	return tm, cleanup, nil
}

func runTeam(path string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	tm, cleanup, err := buildTeam(path, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	inputs, err := parseInputs(runInputs)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if runEnvWatch != "" {
		go func() {
			_ = config.WatchEnvFile(ctx, runEnvWatch, tm.SetEnv)
		}()
	}

	if runTUI {
		if err := tui.Run(tm, inputs); err != nil {
			return err
		}
	} else {
		unsub := tm.Subscribe(
			func(snap state.Snapshot) any { return len(snap.Logs) },
			func(n any) { printNewEntries(tm, n) },
		)
		defer unsub()

		go func() {
			<-ctx.Done()
			_ = tm.Stop()
		}()

		if _, err := tm.Run(context.Background(), inputs); err != nil {
			return err
		}
	}

	return printSummary(tm)
}

var printedSeq int

// printNewEntries streams freshly appended log entries to stdout.
func printNewEntries(tm *team.Team, _ any) {
	for _, e := range tm.Logs() {
		if e.Seq < printedSeq {
			continue
		}
		printedSeq = e.Seq + 1
		switch e.LogType {
		case models.LogWorkflowStatusUpdate:
			color.Cyan("workflow → %s", e.WorkflowStatus)
		case models.LogTaskStatusUpdate:
			color.Yellow("task %s → %s", e.TaskID, e.TaskStatus)
		case models.LogAgentStatusUpdate:
			color.White("  %s: %s", e.AgentName, e.AgentStatus)
		}
	}
}

// printSummary renders the final state and sets the process outcome.
func printSummary(tm *team.Team) error {
	snap := tm.CleanedState()

	fmt.Println()
	switch snap.Status {
	case models.WorkflowFinished:
		color.Green("workflow finished")
		fmt.Println(snap.WorkflowResult)
	case models.WorkflowStopped:
		color.Yellow("workflow stopped")
	case models.WorkflowBlocked:
		color.Red("workflow blocked")
		for _, t := range snap.Tasks {
			if t.Status == models.TaskBlocked {
				fmt.Printf("  %s: %s\n", t.ID, t.BlockedReason)
			}
		}
		return fmt.Errorf("workflow blocked")
	case models.WorkflowErrored:
		color.Red("workflow errored")
		for _, t := range snap.Tasks {
			if t.Status == models.TaskErrored {
				fmt.Printf("  %s [%s]: %s\n", t.ID, t.ErrorKind, t.Error)
			}
		}
		return fmt.Errorf("workflow errored")
	}
	return nil
}

// parseInputs turns repeated key=value flags into the inputs map.
func parseInputs(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	inputs := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid --input %q, want key=value", pair)
		}
		inputs[key] = value
	}
	return inputs, nil
}
