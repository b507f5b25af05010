package sync

import (
	"fmt"
	"io"
	"os"

	"nathanbeddoewebdev/promptsync/internal/app"
	"nathanbeddoewebdev/promptsync/internal/services/syncer"

	"github.com/charmbracelet/huh/spinner"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func RunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Push pending records once",
		Long: `Run one push attempt: every pending record is sent to the cloud in a
single batch and marked synced on success. Failed pushes leave records
pending.

Example:
  promptsync sync run`,
		Args:         cobra.NoArgs,
		RunE:         runSync,
		SilenceUsage: true,
	}

	return cmd
}

func runSync(cmd *cobra.Command, args []string) error {
	c, err := openContainer(cmd, app.Options{})
	if err != nil {
		return err
	}
	defer c.Close()

	ctx := cmd.Context()
	var res syncer.Result
	if isTerminal(cmd.ErrOrStderr()) {
		spinErr := spinner.New().
			Title("Syncing execution history...").
			Accessible(os.Getenv("ACCESSIBLE") != "").
			Output(cmd.ErrOrStderr()).
			Context(ctx).
			Action(func() {
				res = c.Syncer.Attempt(ctx)
			}).
			Run()
		if spinErr != nil {
			return spinErr
		}
	} else {
		res = c.Syncer.Attempt(ctx)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Sync %s\n", res)
	if res.Outcome == syncer.OutcomeFailed {
		return fmt.Errorf("sync failed: %w", res.Err)
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
