package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"nathanbeddoewebdev/promptsync/cmd/commands/auth"
	cloudcmd "nathanbeddoewebdev/promptsync/cmd/commands/cloud"
	cfgcmd "nathanbeddoewebdev/promptsync/cmd/commands/config"
	historycmd "nathanbeddoewebdev/promptsync/cmd/commands/history"
	"nathanbeddoewebdev/promptsync/cmd/commands/record"
	synccmd "nathanbeddoewebdev/promptsync/cmd/commands/sync"
	"nathanbeddoewebdev/promptsync/internal/cloud"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands.
func rootCmd() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "promptsync",
		Short: "Record prompt executions and sync them across devices",
		Long: `promptsync keeps a local history of prompts sent to AI engines and
synchronizes it with a cloud document store so every device sees the same
history.

Records are always written locally first. Sync is best effort: records
stay pending until a push succeeds.

Quick start:
  promptsync config set cloud-provider http
  promptsync config set cloud-endpoint https://sync.example.com
  promptsync auth login                  # Store your sync token
  promptsync record --engine claude --prompt "hello"
  promptsync sync status`,
	}

	cmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error (overrides config)")

	cmd.AddCommand(record.NewCommand())
	cmd.AddCommand(historycmd.NewCommand())
	cmd.AddCommand(synccmd.NewCommand())
	cmd.AddCommand(auth.NewCommand())
	cmd.AddCommand(cfgcmd.NewCommand())
	cmd.AddCommand(cloudcmd.NewCommand())

	return cmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cloud.RegisterHTTP()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var root = rootCmd()
	err := root.ExecuteContext(ctx)
	if err != nil {
		stop()
		os.Exit(1)
	}
}
