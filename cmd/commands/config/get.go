package config

import (
	"fmt"
	"strings"

	"nathanbeddoewebdev/promptsync/internal/config"
	"nathanbeddoewebdev/promptsync/internal/util"

	"github.com/spf13/cobra"
)

// GetCommand returns the "config get" command.
func GetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get [key]",
		Short: "Get a configuration value",
		Long: "Get a persistent configuration value.\n\n" +
			"Without a key, every value is listed.\n\n" +
			config.KeysHelp() +
			"\nExamples:\n" +
			"  promptsync config get\n" +
			"  promptsync config get cloud-sync",
		Args:         cobra.MaximumNArgs(1),
		RunE:         runGet,
		SilenceUsage: true,
	}

	return cmd
}

func runGet(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if len(args) == 0 {
		for _, spec := range config.Keys {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", spec.Name, displayValue(spec.Get(cfg)))
		}
		return nil
	}

	spec := config.Lookup(util.NormalizeKey(args[0]))
	if spec == nil {
		return fmt.Errorf("unknown configuration key %q (valid: %s)", args[0], strings.Join(config.KeyNames(), ", "))
	}

	fmt.Fprintln(cmd.OutOrStdout(), displayValue(spec.Get(cfg)))
	return nil
}

func displayValue(v string) string {
	if v == "" {
		return "not set"
	}
	return v
}
