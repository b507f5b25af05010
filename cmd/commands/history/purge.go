package history

import (
	"fmt"

	"github.com/spf13/cobra"
)

func PurgeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purge <id>",
		Short: "Remove a record from local history",
		Long: `Remove a record from this device's history.

The cloud copy, if any, is not affected.

Example:
  promptsync history purge 0195a1b2-...`,
		Args:         cobra.ExactArgs(1),
		RunE:         runPurge,
		SilenceUsage: true,
	}

	return cmd
}

func runPurge(cmd *cobra.Command, args []string) error {
	c, err := openContainer(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx := cmd.Context()
	rec, err := c.History.GetByID(ctx, args[0])
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("no execution record with id %q", args[0])
	}

	if err := c.History.Delete(ctx, rec.ID); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s.\n", rec.ID)
	return nil
}
