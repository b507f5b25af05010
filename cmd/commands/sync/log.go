package sync

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"nathanbeddoewebdev/promptsync/internal/app"
	"nathanbeddoewebdev/promptsync/internal/synclog"

	"github.com/spf13/cobra"
)

func LogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "List recent sync attempts",
		Long: `List push and pull attempts recorded on this device.

Examples:
  promptsync sync log
  promptsync sync log --direction pull --limit 50
  promptsync sync log -o json
  promptsync sync log prune --older-than 30d`,
		Args:         cobra.NoArgs,
		RunE:         runLog,
		SilenceUsage: true,
	}

	cmd.Flags().Int("limit", 25, "Number of entries to display")
	cmd.Flags().String("direction", "", "Filter by direction: push or pull")
	cmd.Flags().StringP("output", "o", "table", "Output format: table or json")

	cmd.AddCommand(PruneCommand())

	return cmd
}

func runLog(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	if limit <= 0 {
		return fmt.Errorf("limit must be greater than 0")
	}
	direction, _ := cmd.Flags().GetString("direction")
	switch direction {
	case "", synclog.DirectionPush, synclog.DirectionPull:
	default:
		return fmt.Errorf("direction must be push or pull, got %q", direction)
	}
	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = "table"
	}

	c, err := openContainer(cmd, app.Options{})
	if err != nil {
		return err
	}
	defer c.Close()

	var entries []synclog.Entry
	if direction != "" {
		entries, err = c.SyncLog.ListByDirection(direction, limit)
	} else {
		entries, err = c.SyncLog.List(limit)
	}
	if err != nil {
		return err
	}

	if output == "json" {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(entries)
	}
	if output != "table" {
		return fmt.Errorf("unsupported output format %q", output)
	}

	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No sync attempts recorded.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tDIRECTION\tOUTCOME\tRECORDS\tPROVIDER\tDURATION\tDETAIL")
	fmt.Fprintln(w, "----\t---------\t-------\t-------\t--------\t--------\t------")
	for _, entry := range entries {
		detail := entry.Detail
		if detail == "" {
			detail = "-"
		}
		provider := entry.Provider
		if provider == "" {
			provider = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			entry.Timestamp.Local().Format("2006-01-02 15:04:05"),
			entry.Direction,
			entry.Outcome,
			entry.Records,
			provider,
			formatDuration(entry.DurationMs),
			detail,
		)
	}
	return w.Flush()
}

func PruneCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete sync log entries older than a duration",
		Long: `Delete sync log entries older than a duration.

Examples:
  promptsync sync log prune --older-than 30d
  promptsync sync log prune --older-than 72h`,
		Args:         cobra.NoArgs,
		RunE:         runPrune,
		SilenceUsage: true,
	}

	cmd.Flags().String("older-than", "", "Remove entries older than this duration (e.g. 30d, 72h)")

	return cmd
}

func runPrune(cmd *cobra.Command, args []string) error {
	olderThanRaw, _ := cmd.Flags().GetString("older-than")
	olderThanRaw = strings.TrimSpace(olderThanRaw)
	if olderThanRaw == "" {
		return fmt.Errorf("--older-than is required")
	}

	olderThan, err := parseDuration(olderThanRaw)
	if err != nil {
		return err
	}

	c, err := openContainer(cmd, app.Options{})
	if err != nil {
		return err
	}
	defer c.Close()

	removed, err := c.SyncLog.Prune(olderThan)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d sync log entr(y/ies).\n", removed)
	return nil
}

func formatDuration(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	d := time.Duration(ms) * time.Millisecond
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm", int(d.Minutes()))
}

// parseDuration accepts Go durations plus a whole-day "d" suffix.
func parseDuration(input string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(input, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", input)
		}
		if n < 0 {
			return 0, fmt.Errorf("duration must be positive")
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}

	d, err := time.ParseDuration(input)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", input)
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must be positive")
	}
	return d, nil
}
