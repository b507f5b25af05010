package history

import (
	"fmt"

	"github.com/spf13/cobra"
)

func ListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent executions",
		Long: `List the most recent execution records, newest first.

Examples:
  promptsync history list
  promptsync history list --limit 100
  promptsync history list -o json`,
		Args:         cobra.NoArgs,
		RunE:         runList,
		SilenceUsage: true,
	}

	cmd.Flags().Int("limit", 25, "Number of records to display")
	addOutputFlag(cmd)

	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	if limit <= 0 {
		return fmt.Errorf("limit must be greater than 0")
	}

	c, err := openContainer(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	records, err := c.History.ListRecent(cmd.Context(), limit)
	if err != nil {
		return err
	}
	return printRecords(cmd, records, "No executions recorded.")
}
