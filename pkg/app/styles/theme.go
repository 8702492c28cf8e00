package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/kerbaras/tachireader/pkg/reader"
)

var (
	// Color palette
	Primary    = lipgloss.Color("#FF6B9D")
	Secondary  = lipgloss.Color("#C792EA")
	Success    = lipgloss.Color("#C3E88D")
	Warning    = lipgloss.Color("#FFCB6B")
	Error      = lipgloss.Color("#F07178")
	Info       = lipgloss.Color("#82AAFF")
	Muted      = lipgloss.Color("#546E7A")
	Background = lipgloss.Color("#263238")
	Foreground = lipgloss.Color("#EEFFFF")

	RoundedBorder = lipgloss.RoundedBorder()
)

var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true).
			MarginBottom(1)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(Secondary).
			Italic(true)

	TextStyle = lipgloss.NewStyle().
			Foreground(Foreground)

	MutedStyle = lipgloss.NewStyle().
			Foreground(Muted)

	CardStyle = lipgloss.NewStyle().
			Border(RoundedBorder).
			BorderForeground(Secondary).
			Padding(1, 2).
			MarginBottom(1)

	// Page states
	StatusLoading = lipgloss.NewStyle().
			Foreground(Info).
			Bold(true)

	StatusReady = lipgloss.NewStyle().
			Foreground(Success).
			Bold(true)

	StatusError = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	CurrentPageStyle = lipgloss.NewStyle().
				Foreground(Background).
				Background(Primary).
				Bold(true)

	ProgressBarStyle = lipgloss.NewStyle().
				Foreground(Primary)

	ProgressEmptyStyle = lipgloss.NewStyle().
				Foreground(Muted)

	NoticeStyle = lipgloss.NewStyle().
			Foreground(Warning)

	HelpStyle = lipgloss.NewStyle().
			Foreground(Muted).
			Italic(true).
			MarginTop(1)
)

// StatusStyle picks the style for a page in the given state. loading marks a
// queued page that a worker is fetching right now.
func StatusStyle(status reader.Status, loading bool) lipgloss.Style {
	switch {
	case status == reader.StatusReady:
		return StatusReady
	case status == reader.StatusError:
		return StatusError
	case loading:
		return StatusLoading
	default:
		return MutedStyle
	}
}
