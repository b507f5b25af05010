package sync

import (
	"nathanbeddoewebdev/promptsync/internal/app"

	"github.com/spf13/cobra"
)

// newContainer is swapped in tests.
var newContainer = app.Build

// NewCommand returns the "sync" parent command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize execution history with the cloud",
		Long: `Push pending execution records to the cloud document store and pull
records produced on other devices.

Sync requires a stored token (promptsync auth login) and cloud-sync
enabled (promptsync config set cloud-sync true).`,
		SilenceUsage: true,
	}

	cmd.AddCommand(RunCommand())
	cmd.AddCommand(PullCommand())
	cmd.AddCommand(WatchCommand())
	cmd.AddCommand(StatusCommand())
	cmd.AddCommand(LogCommand())

	return cmd
}

func openContainer(cmd *cobra.Command, opts app.Options) (*app.Container, error) {
	opts.LogLevel, _ = cmd.Flags().GetString("log-level")
	return newContainer(opts)
}
