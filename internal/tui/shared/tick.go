package shared

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// RefreshInterval is how often the dashboard redraws elapsed times.
const RefreshInterval = time.Second

// TickMsg is a message sent on each refresh interval
type TickMsg time.Time

// TickCmd returns a command that sends a TickMsg after RefreshInterval
func TickCmd() tea.Cmd {
	return tea.Tick(RefreshInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
