package sync

import (
	"encoding/json"
	"fmt"

	"nathanbeddoewebdev/promptsync/internal/app"
	"nathanbeddoewebdev/promptsync/internal/services/auth"
	"nathanbeddoewebdev/promptsync/internal/synclog"
	"nathanbeddoewebdev/promptsync/internal/tui"

	"github.com/spf13/cobra"
)

func StatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show sync state for this device",
		Long: `Show the sync account state, record counts and the latest push and pull.

Examples:
  promptsync sync status
  promptsync sync status -o json`,
		Args:         cobra.NoArgs,
		RunE:         runStatus,
		SilenceUsage: true,
	}

	cmd.Flags().StringP("output", "o", "", "Output format: text or json (default styled when interactive)")

	return cmd
}

func runStatus(cmd *cobra.Command, args []string) error {
	c, err := openContainer(cmd, app.Options{})
	if err != nil {
		return err
	}
	defer c.Close()

	stats, err := c.History.Stats(cmd.Context())
	if err != nil {
		return err
	}
	lastPush, err := latest(c.SyncLog, synclog.DirectionPush)
	if err != nil {
		return err
	}
	lastPull, err := latest(c.SyncLog, synclog.DirectionPull)
	if err != nil {
		return err
	}
	lastAttempt, err := c.SyncState.LastAttempt(cmd.Context())
	if err != nil {
		return err
	}

	status := tui.SyncStatus{
		Provider:      c.Cloud.Name(),
		Authenticated: auth.IsAuthenticated(c.Auth, auth.CloudTokenKey),
		SyncEnabled:   c.Config.CloudSync,
		DeviceID:      c.DeviceID,
		Stats:         stats,
		LastPush:      lastPush,
		LastPull:      lastPull,
	}
	if !lastAttempt.IsZero() {
		status.LastAttemptAt = &lastAttempt
	}

	output, _ := cmd.Flags().GetString("output")
	switch output {
	case "json":
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(status)
	case "":
		if isTerminal(cmd.OutOrStdout()) {
			fmt.Fprintln(cmd.OutOrStdout(), tui.RenderSyncStatus(status))
			return nil
		}
	case "text":
	default:
		return fmt.Errorf("unsupported output format %q", output)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "provider: %s\n", status.Provider)
	fmt.Fprintf(out, "authenticated: %t\n", status.Authenticated)
	fmt.Fprintf(out, "cloud-sync: %t\n", status.SyncEnabled)
	fmt.Fprintf(out, "device-id: %s\n", status.DeviceID)
	fmt.Fprintf(out, "records: %d total, %d pending, %d synced, %d deleted\n",
		stats.Total, stats.Pending, stats.Synced, stats.Deleted)
	if stats.LastSyncedAt != nil {
		fmt.Fprintf(out, "last-synced: %s\n", stats.LastSyncedAt.Local().Format("2006-01-02 15:04:05"))
	}
	if status.LastAttemptAt != nil {
		fmt.Fprintf(out, "last-attempt: %s\n", status.LastAttemptAt.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}

func latest(repo *synclog.SQLiteRepository, direction string) (*synclog.Entry, error) {
	entries, err := repo.ListByDirection(direction, 1)
	if err != nil || len(entries) == 0 {
		return nil, err
	}
	return &entries[0], nil
}
