package tui

import (
	"fmt"
	"strings"
	"time"

	"nathanbeddoewebdev/promptsync/internal/history"
	"nathanbeddoewebdev/promptsync/internal/synclog"
	"nathanbeddoewebdev/promptsync/internal/tui/styles"

	"github.com/charmbracelet/lipgloss"
)

// SyncStatus is everything shown by "sync status".
type SyncStatus struct {
	Provider      string         `json:"provider"`
	Authenticated bool           `json:"authenticated"`
	SyncEnabled   bool           `json:"sync_enabled"`
	DeviceID      string         `json:"device_id"`
	Stats         history.Stats  `json:"stats"`
	LastPush      *synclog.Entry `json:"last_push,omitempty"`
	LastPull      *synclog.Entry `json:"last_pull,omitempty"`
	LastAttemptAt *time.Time     `json:"last_attempt_at,omitempty"`
}

// RenderSyncStatus formats status as a bordered card.
func RenderSyncStatus(s SyncStatus) string {
	login := "not logged in"
	if s.Authenticated {
		login = "logged in"
	}
	enabled := "disabled"
	if s.SyncEnabled {
		enabled = "enabled"
	}

	rows := [][2]string{
		{"Provider", s.Provider},
		{"Account", styles.OutcomeIndicator(login)},
		{"Cloud sync", enabled},
		{"Device", s.DeviceID},
		{"Records", fmt.Sprintf("%d total, %d pending, %d synced, %d deleted",
			s.Stats.Total, s.Stats.Pending, s.Stats.Synced, s.Stats.Deleted)},
		{"Last synced", formatOptionalTime(s.Stats.LastSyncedAt)},
		{"Last push", formatEntry(s.LastPush)},
		{"Last pull", formatEntry(s.LastPull)},
		{"Last attempt", formatOptionalTime(s.LastAttemptAt)},
	}

	width := 0
	for _, r := range rows {
		width = max(width, len(r[0]))
	}

	var b strings.Builder
	b.WriteString(styles.Title.Render("Sync status"))
	b.WriteString("\n\n")
	for i, r := range rows {
		label := styles.Label.Render(fmt.Sprintf("%-*s", width, r[0]))
		b.WriteString(label + "  " + styles.Value.Render(r[1]))
		if i < len(rows)-1 {
			b.WriteString("\n")
		}
	}
	return styles.Card.Render(b.String())
}

func formatEntry(e *synclog.Entry) string {
	if e == nil {
		return styles.MutedText.Render("never")
	}
	out := e.Timestamp.Local().Format("2006-01-02 15:04:05") + "  " + styles.OutcomeIndicator(e.Outcome)
	if e.Records > 0 {
		out += fmt.Sprintf(" (%d)", e.Records)
	}
	return out
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return styles.MutedText.Render("never")
	}
	return lipgloss.NewStyle().Render(t.Local().Format("2006-01-02 15:04:05"))
}
