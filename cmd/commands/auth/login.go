package auth

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"nathanbeddoewebdev/promptsync/internal/services/auth"
	"nathanbeddoewebdev/promptsync/internal/tui"

	"golang.org/x/term"

	"github.com/spf13/cobra"
)

func LoginCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store the cloud sync token",
		Long: `Store the cloud sync token in the local keychain.

Without --token, the token is prompted for when stdin is a terminal and
read from stdin otherwise.

Examples:
  promptsync auth login
  promptsync auth login --token "$PROMPTSYNC_TOKEN"
  echo "$TOKEN" | promptsync auth login`,
		Args:         cobra.NoArgs,
		RunE:         runLogin,
		SilenceUsage: true,
	}

	cmd.Flags().String("token", "", "Sync token (optional, overrides prompt)")

	return cmd
}

func runLogin(cmd *cobra.Command, args []string) error {
	token, _ := cmd.Flags().GetString("token")
	token = strings.TrimSpace(token)

	if token == "" {
		var err error
		token, err = readToken(cmd)
		if err != nil {
			if errors.Is(err, tui.ErrAborted) {
				fmt.Fprintln(cmd.ErrOrStderr(), "Login cancelled.")
				return nil
			}
			return err
		}
	}

	if token == "" {
		return fmt.Errorf("token cannot be empty")
	}

	if err := defaultStore().SetToken(auth.CloudTokenKey, token); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Saved cloud sync token.")
	return nil
}

func readToken(cmd *cobra.Command) (string, error) {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return tui.PromptToken(os.Getenv("ACCESSIBLE") != "")
	}

	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read token from stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
