package cloud

import (
	"github.com/spf13/cobra"
)

// NewCommand returns the "cloud" parent command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cloud",
		Short: "Cloud document store tools",
		Long: `Tools for the cloud side of sync.

"cloud serve" runs a self-hostable document server that speaks the same
HTTP protocol as the http cloud provider.`,
	}

	cmd.AddCommand(ServeCommand())

	return cmd
}
