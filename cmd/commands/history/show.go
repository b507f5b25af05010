package history

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func ShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one execution record",
		Long: `Show every field of a single execution record.

Examples:
  promptsync history show 0195a1b2-...
  promptsync history show 0195a1b2-... -o json`,
		Args:         cobra.ExactArgs(1),
		RunE:         runShow,
		SilenceUsage: true,
	}

	addOutputFlag(cmd)

	return cmd
}

func runShow(cmd *cobra.Command, args []string) error {
	c, err := openContainer(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	rec, err := c.History.GetByID(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("no execution record with id %q", args[0])
	}

	output, _ := cmd.Flags().GetString("output")
	switch output {
	case "json":
		return writeJSON(cmd.OutOrStdout(), rec)
	case "table", "":
	default:
		return fmt.Errorf("unsupported output format %q", output)
	}

	synced := "-"
	if rec.SyncedAt != nil {
		synced = rec.SyncedAt.Local().Format(time.RFC3339)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID:\t%s\n", rec.ID)
	fmt.Fprintf(w, "Engine:\t%s\n", rec.EngineID)
	fmt.Fprintf(w, "Status:\t%s\n", rec.Status)
	fmt.Fprintf(w, "Fallback:\t%s\n", yesNo(rec.UsedFallback))
	fmt.Fprintf(w, "Device:\t%s\n", rec.DeviceID)
	fmt.Fprintf(w, "Executed:\t%s\n", rec.ExecutedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(w, "Updated:\t%s\n", rec.UpdatedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(w, "Synced:\t%s\n", synced)
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n", rec.CompiledPrompt)
	return nil
}
