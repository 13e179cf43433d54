package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/crmstore/internal/sqlite"
)

// Version is the crmstore release.
const Version = "0.1.0"

const modulePath = "github.com/mesh-intelligence/crmstore"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the crmstore version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "crmstore v%s\nmodule: %s\nschema: %s\n", Version, modulePath, sqlite.SchemaVersion)
			return nil
		},
	}
}
