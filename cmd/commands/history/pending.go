package history

import "github.com/spf13/cobra"

func PendingCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "pending",
		Short:        "List records not yet pushed to the cloud",
		Args:         cobra.NoArgs,
		RunE:         runPending,
		SilenceUsage: true,
	}

	addOutputFlag(cmd)

	return cmd
}

func runPending(cmd *cobra.Command, args []string) error {
	c, err := openContainer(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	records, err := c.History.GetPendingSync(cmd.Context())
	if err != nil {
		return err
	}
	return printRecords(cmd, records, "Nothing pending.")
}
