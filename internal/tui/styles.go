package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/teamflow/pkg/models"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	doingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("34"))

	doneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	pausedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	erroredStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	logStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

// taskStyle picks a style for a task status.
func taskStyle(status models.TaskStatus) lipgloss.Style {
	switch status {
	case models.TaskDoing, models.TaskResumed:
		return doingStyle
	case models.TaskDone:
		return doneStyle
	case models.TaskPaused:
		return pausedStyle
	case models.TaskErrored, models.TaskBlocked:
		return erroredStyle
	default:
		return helpStyle
	}
}
