package record

import (
	"fmt"
	"io"
	"os"
	"strings"

	"nathanbeddoewebdev/promptsync/internal/app"
	"nathanbeddoewebdev/promptsync/internal/history"
	"nathanbeddoewebdev/promptsync/internal/services/recorder"
	"nathanbeddoewebdev/promptsync/internal/services/syncer"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// newContainer is swapped in tests.
var newContainer = app.Build

// NewCommand returns the "record" command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a prompt execution",
		Long: `Record one attempt to send a compiled prompt to an AI engine.

The record is stored locally first. Unless --no-sync is given, one push
attempt follows; a failed push leaves the record pending for the next run.

When --prompt is omitted and stdin is not a terminal, the prompt is read
from stdin.

Examples:
  promptsync record --engine claude --prompt "Summarize this file"
  promptsync record --engine gpt-4o --status failed --fallback < prompt.txt`,
		Args:         cobra.NoArgs,
		RunE:         runRecord,
		SilenceUsage: true,
	}

	cmd.Flags().String("engine", "", "Engine identifier (required)")
	cmd.Flags().String("prompt", "", "Compiled prompt text")
	cmd.Flags().String("status", string(history.StatusSuccess), "Execution status: success or failed")
	cmd.Flags().Bool("fallback", false, "A fallback delivery path was used")
	cmd.Flags().Bool("no-sync", false, "Store locally without attempting a push")
	cmd.MarkFlagRequired("engine")

	return cmd
}

func runRecord(cmd *cobra.Command, args []string) error {
	engine, _ := cmd.Flags().GetString("engine")
	prompt, _ := cmd.Flags().GetString("prompt")
	statusRaw, _ := cmd.Flags().GetString("status")
	fallback, _ := cmd.Flags().GetBool("fallback")
	noSync, _ := cmd.Flags().GetBool("no-sync")

	status, err := history.ParseStatus(statusRaw)
	if err != nil {
		return err
	}

	if !cmd.Flags().Changed("prompt") && !isTerminal(cmd.InOrStdin()) {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read prompt from stdin: %w", err)
		}
		prompt = strings.TrimRight(string(data), "\n")
	}

	level, _ := cmd.Flags().GetString("log-level")
	c, err := newContainer(app.Options{LogLevel: level})
	if err != nil {
		return err
	}
	defer c.Close()

	ctx := cmd.Context()
	rec, err := c.Recorder.RecordExecution(ctx, recorder.Outcome{Status: status, UsedFallback: fallback}, engine, prompt)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s (%s, %s)\n", rec.ID, rec.EngineID, rec.Status)

	if noSync {
		return nil
	}
	res := c.Syncer.Attempt(ctx)
	switch res.Outcome {
	case syncer.OutcomeSynced:
		fmt.Fprintf(cmd.ErrOrStderr(), "Sync: %s\n", res)
	case syncer.OutcomeFailed, syncer.OutcomeCanceled:
		fmt.Fprintf(cmd.ErrOrStderr(), "Sync: %s (record kept locally)\n", res)
	}
	return nil
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
