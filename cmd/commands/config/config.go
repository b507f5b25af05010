package config

import (
	"nathanbeddoewebdev/promptsync/internal/config"

	"github.com/spf13/cobra"
)

// NewCommand returns the "config" parent command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage promptsync configuration",
		Long: "View and modify persistent promptsync settings.\n\n" +
			"Configuration is stored at ~/.config/promptsync/config.json.\n" +
			"PROMPTSYNC_* environment variables override file values when reading.\n\n" +
			config.KeysHelp(),
	}

	cmd.AddCommand(SetCommand())
	cmd.AddCommand(GetCommand())

	return cmd
}
