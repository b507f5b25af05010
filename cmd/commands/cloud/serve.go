package cloud

import (
	"fmt"
	"strings"

	"nathanbeddoewebdev/promptsync/internal/cloud/docserver"
	"nathanbeddoewebdev/promptsync/internal/logging"

	"github.com/spf13/cobra"
)

func ServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run an in-memory document server",
		Long: `Run an in-memory document server for execution history.

Documents are partitioned by bearer token. With --token, only the listed
tokens are accepted. Data is lost on exit.

Examples:
  promptsync cloud serve
  promptsync cloud serve --addr :9000 --token alice-laptop --token alice-desktop`,
		Args:         cobra.NoArgs,
		RunE:         runServe,
		SilenceUsage: true,
	}

	cmd.Flags().String("addr", ":8787", "Listen address")
	cmd.Flags().StringSlice("token", nil, "Accepted bearer token (repeatable)")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	if strings.TrimSpace(addr) == "" {
		return fmt.Errorf("--addr is required")
	}
	tokens, _ := cmd.Flags().GetStringSlice("token")

	level, _ := cmd.Flags().GetString("log-level")
	if level == "" {
		level = "info"
	}
	log, err := logging.New(level)
	if err != nil {
		return err
	}
	defer log.Sync()

	srv := docserver.New(docserver.WithLogger(log), docserver.WithTokens(tokens...))
	fmt.Fprintf(cmd.ErrOrStderr(), "Serving documents on %s. Press Ctrl+C to stop.\n", addr)
	return srv.ListenAndServe(cmd.Context(), addr)
}
