package history

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"nathanbeddoewebdev/promptsync/internal/app"
	"nathanbeddoewebdev/promptsync/internal/history"

	"github.com/spf13/cobra"
)

// newContainer is swapped in tests.
var newContainer = app.Build

// NewCommand returns the "history" parent command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect local execution history",
		Long: "Inspect and manage execution records stored on this device.\n\n" +
			"History is stored locally in ~/.config/promptsync/promptsync.db.",
		SilenceUsage: true,
	}

	cmd.AddCommand(ListCommand())
	cmd.AddCommand(ShowCommand())
	cmd.AddCommand(PendingCommand())
	cmd.AddCommand(PurgeCommand())

	return cmd
}

func openContainer(cmd *cobra.Command) (*app.Container, error) {
	level, _ := cmd.Flags().GetString("log-level")
	return newContainer(app.Options{LogLevel: level})
}

func addOutputFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", "table", "Output format: table or json")
}

// printRecords writes records in the format selected by --output.
func printRecords(cmd *cobra.Command, records []history.ExecutionRecord, empty string) error {
	output, _ := cmd.Flags().GetString("output")
	switch output {
	case "json":
		return writeJSON(cmd.OutOrStdout(), records)
	case "table", "":
	default:
		return fmt.Errorf("unsupported output format %q", output)
	}

	if len(records) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), empty)
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEXECUTED\tENGINE\tSTATUS\tFALLBACK\tSYNCED")
	fmt.Fprintln(w, "--\t--------\t------\t------\t--------\t------")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.ID,
			rec.ExecutedAt.Local().Format("2006-01-02 15:04:05"),
			rec.EngineID,
			rec.Status,
			yesNo(rec.UsedFallback),
			yesNo(rec.IsSynced),
		)
	}
	return w.Flush()
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
