package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Title is the main header text style.
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(White)

	// Label is used for field names in detail views.
	Label = lipgloss.NewStyle().
		Foreground(Gray).
		Bold(true)

	// Value is used for field values in detail views.
	Value = lipgloss.NewStyle().
		Foreground(White)

	MutedText = lipgloss.NewStyle().
			Foreground(Muted)

	ErrorText = lipgloss.NewStyle().
			Foreground(Red).
			Bold(true)

	SuccessText = lipgloss.NewStyle().
			Foreground(Green).
			Bold(true)

	WarningText = lipgloss.NewStyle().
			Foreground(Yellow).
			Bold(true)
)

// OutcomeStyle returns the style for a sync outcome or record status.
func OutcomeStyle(outcome string) lipgloss.Style {
	switch outcome {
	case "synced", "success", "logged in":
		return lipgloss.NewStyle().Foreground(Green).Bold(true)
	case "throttled", "skipped", "pending":
		return lipgloss.NewStyle().Foreground(Yellow)
	case "failed", "canceled", "not logged in":
		return lipgloss.NewStyle().Foreground(Red)
	default:
		return lipgloss.NewStyle().Foreground(Gray)
	}
}

// OutcomeIndicator returns a small dot + outcome text with appropriate color.
func OutcomeIndicator(outcome string) string {
	style := OutcomeStyle(outcome)
	return style.Render("●") + " " + style.Render(outcome)
}

// Card is a rounded-border panel for content sections.
var Card = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(DimGray).
	Padding(0, 2)
