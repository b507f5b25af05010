package auth

import (
	"errors"
	"fmt"

	"nathanbeddoewebdev/promptsync/internal/services/auth"

	"github.com/spf13/cobra"
)

func LogoutCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored cloud sync token",
		Long: `Remove the stored cloud sync token. Local history is kept and records
stay pending until the next login.

Example:
  promptsync auth logout`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := defaultStore().DeleteToken(auth.CloudTokenKey)
			if errors.Is(err, auth.ErrTokenNotFound) {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in.")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Removed cloud sync token.")
			return nil
		},
		SilenceUsage: true,
	}

	return cmd
}
