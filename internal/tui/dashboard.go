// Package tui renders a live dashboard over the workflow log.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ShayCichocki/teamflow/internal/state"
	"github.com/ShayCichocki/teamflow/internal/team"
	"github.com/ShayCichocki/teamflow/pkg/models"
)

// maxLogLines is how many recent log entries the footer shows.
const maxLogLines = 8

// snapshotMsg delivers a fresh cleaned-state projection to the model.
type snapshotMsg state.CleanedState

// Model is the bubbletea model for the dashboard.
type Model struct {
	tm      *team.Team
	spinner spinner.Model
	snap    state.CleanedState
	width   int
	quit    bool
}

// NewModel creates the dashboard model over a team.
func NewModel(tm *team.Team) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{tm: tm, spinner: sp, snap: tm.CleanedState()}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case snapshotMsg:
		m.snap = state.CleanedState(msg)
		if m.snap.Status.Terminal() {
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quit = true
			return m, tea.Quit
		case "p":
			_ = m.tm.Pause()
		case "r":
			_ = m.tm.Resume()
		case "s":
			_ = m.tm.Stop()
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	header := fmt.Sprintf("%s — %s", m.snap.Name, m.snap.Status)
	if !m.snap.Status.Terminal() {
		header = m.spinner.View() + " " + header
	}
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	b.WriteString(headerStyle.Render(fmt.Sprintf("  %-10s %-14s %-10s %s", "TASK", "AGENT", "STATUS", "DESCRIPTION")))
	b.WriteString("\n")
	for _, task := range m.snap.Tasks {
		style := taskStyle(task.Status)
		desc := task.Description
		if len(desc) > 48 {
			desc = desc[:45] + "..."
		}
		b.WriteString(style.Render(fmt.Sprintf("  %-10s %-14s %-10s %s", task.ID, task.Agent, task.Status, desc)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	logs := m.snap.Logs
	start := 0
	if len(logs) > maxLogLines {
		start = len(logs) - maxLogLines
	}
	for _, e := range logs[start:] {
		b.WriteString(logStyle.Render("  " + formatEntry(e)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("  p pause · r resume · s stop · q quit"))
	b.WriteString("\n")
	return b.String()
}

// formatEntry renders one log entry as a single dashboard line.
func formatEntry(e models.LogEntry) string {
	switch e.LogType {
	case models.LogWorkflowStatusUpdate:
		return fmt.Sprintf("#%d workflow → %s", e.Seq, e.WorkflowStatus)
	case models.LogTaskStatusUpdate:
		return fmt.Sprintf("#%d task %s → %s", e.Seq, e.TaskID, e.TaskStatus)
	default:
		return fmt.Sprintf("#%d %s: %s", e.Seq, e.AgentName, e.AgentStatus)
	}
}

// Run starts the workflow and drives the dashboard until the workflow
// reaches a terminal status or the user quits.
func Run(tm *team.Team, inputs map[string]string) error {
	if err := tm.Start(inputs); err != nil {
		return err
	}

	p := tea.NewProgram(NewModel(tm))

	unsub := tm.Subscribe(
		func(snap state.Snapshot) any { return len(snap.Logs) },
		func(any) { p.Send(snapshotMsg(tm.CleanedState())) },
	)
	defer unsub()

	_, err := p.Run()
	return err
}
