package auth

import (
	"nathanbeddoewebdev/promptsync/internal/services/auth"

	"github.com/spf13/cobra"
)

// defaultStore is swapped in tests.
var defaultStore = auth.DefaultStore

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the cloud sync login",
		Long: `Manage the token this device uses to reach the cloud document store.

Tokens are kept in the OS keychain.`,
	}

	cmd.AddCommand(LoginCommand())
	cmd.AddCommand(StatusCommand())
	cmd.AddCommand(LogoutCommand())

	return cmd
}
