package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	Primary = lipgloss.Color("#22d3ee") // cyan
	Accent  = lipgloss.Color("#7C3AED") // violet
	Success = lipgloss.Color("#10B981") // emerald
	Warning = lipgloss.Color("#F59E0B") // amber
	Error   = lipgloss.Color("#EF4444") // red
	Muted   = lipgloss.Color("#6B7280") // gray
)

// Text styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary).
			MarginBottom(1)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(Success).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(Warning)

	MutedStyle = lipgloss.NewStyle().
			Foreground(Muted)
)

// Chat roles get distinct visual treatment: self, remote, system.
var (
	SelfLabelStyle   = lipgloss.NewStyle().Bold(true).Foreground(Primary)
	RemoteLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(Accent)
	SystemStyle      = lipgloss.NewStyle().Italic(true).Foreground(Muted)
)

// PrintSelf renders a locally echoed chat message.
func PrintSelf(text string) {
	fmt.Printf("%s %s\n", SelfLabelStyle.Render("You:"), text)
}

// PrintRemote renders an inbound chat message.
func PrintRemote(label, text string) {
	fmt.Printf("%s %s\n", RemoteLabelStyle.Render(label+":"), text)
}

// PrintSystem renders a system notice.
func PrintSystem(text string) {
	fmt.Println(SystemStyle.Render("· " + text))
}

// PrintError renders an error message.
func PrintError(msg string) {
	fmt.Printf("%s %s\n", ErrorStyle.Render("✗"), ErrorStyle.Render(msg))
}

// PrintErrorf renders a formatted error message.
func PrintErrorf(format string, args ...any) {
	PrintError(fmt.Sprintf(format, args...))
}

// PrintSuccess renders a success message.
func PrintSuccess(msg string) {
	fmt.Printf("%s %s\n", SuccessStyle.Render("✓"), msg)
}

// FormatSize renders a byte count for humans.
func FormatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGT"[exp])
}
