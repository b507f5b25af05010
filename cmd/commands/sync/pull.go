package sync

import (
	"fmt"

	"nathanbeddoewebdev/promptsync/internal/app"
	"nathanbeddoewebdev/promptsync/internal/services/syncer"

	"github.com/spf13/cobra"
)

func PullCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Import records created on other devices",
		Long: `Fetch cloud records updated since the last pull and import the ones
missing locally. Records already present on this device are left as is.

Example:
  promptsync sync pull`,
		Args:         cobra.NoArgs,
		RunE:         runPull,
		SilenceUsage: true,
	}

	return cmd
}

func runPull(cmd *cobra.Command, args []string) error {
	c, err := openContainer(cmd, app.Options{})
	if err != nil {
		return err
	}
	defer c.Close()

	res := c.Syncer.Pull(cmd.Context())
	fmt.Fprintf(cmd.OutOrStdout(), "Pull %s\n", res)
	if res.Outcome == syncer.OutcomeFailed {
		return fmt.Errorf("pull failed: %w", res.Err)
	}
	return nil
}
