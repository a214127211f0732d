package console

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var (
	colorError   = lipgloss.Color("#EF4444")
	colorSuccess = lipgloss.Color("#10B981")
	colorLabel   = lipgloss.Color("#06B6D4")
	colorMuted   = lipgloss.Color("#6B7280")
)

var (
	ErrorStyle = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(colorSuccess)

	HighlightStyle = lipgloss.NewStyle().
			Bold(true)

	LabelStyle = lipgloss.NewStyle().
			Foreground(colorLabel).
			Bold(true)

	MutedStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Italic(true)
)

// DisableColor makes every style render plain text.
func DisableColor() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

// Success renders msg behind a check mark.
func Success(msg string) string {
	return SuccessStyle.Render("✓") + " " + msg
}

// Error renders msg in the error colour.
func Error(msg string) string {
	return ErrorStyle.Render(msg)
}

func Highlight(s string) string { return HighlightStyle.Render(s) }

func Label(s string) string { return LabelStyle.Render(s) }

func Muted(s string) string { return MutedStyle.Render(s) }
