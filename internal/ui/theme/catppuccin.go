package theme

import "github.com/charmbracelet/lipgloss"

var (
	Subtext0 = lipgloss.Color("#a6adc8")
	Lavender = lipgloss.Color("#b4befe")
	Sapphire = lipgloss.Color("#74c7ec")
	Green    = lipgloss.Color("#a6e3a1")
	Peach    = lipgloss.Color("#fab387")
	Red      = lipgloss.Color("#f38ba8")
	Yellow   = lipgloss.Color("#f9e2af")

	Title    = lipgloss.NewStyle().Foreground(Sapphire).Bold(true)
	Muted    = lipgloss.NewStyle().Foreground(Subtext0)
	Hot      = lipgloss.NewStyle().Foreground(Peach).Bold(true)
	Room     = lipgloss.NewStyle().Foreground(Lavender)
	Favorite = lipgloss.NewStyle().Foreground(Yellow).Bold(true)
	OK       = lipgloss.NewStyle().Foreground(Green)
	Failure  = lipgloss.NewStyle().Foreground(Red).Bold(true)
)
