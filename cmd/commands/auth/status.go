package auth

import (
	"errors"
	"fmt"

	"nathanbeddoewebdev/promptsync/internal/services/auth"

	"github.com/spf13/cobra"
)

func StatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether a cloud sync token is stored",
		Long: `Show whether a cloud sync token is stored.

Example:
  promptsync auth status`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := defaultStore().GetToken(auth.CloudTokenKey)
			switch {
			case err == nil && token != "":
				fmt.Fprintln(cmd.OutOrStdout(), "cloud: logged in")
			case err == nil, errors.Is(err, auth.ErrTokenNotFound):
				fmt.Fprintln(cmd.OutOrStdout(), "cloud: not logged in")
			default:
				fmt.Fprintf(cmd.OutOrStdout(), "cloud: error (%v)\n", err)
			}
			return nil
		},
		SilenceUsage: true,
	}

	return cmd
}
