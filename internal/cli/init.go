package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInitCmd(a *app) *cobra.Command {
	var recreate bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create or migrate the offline store",
		Long:  "Open the store in the data directory, creating the schema on first run\nand adding any columns newer releases need.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.attach()
			if err != nil {
				return err
			}
			defer store.Detach()

			if recreate {
				if err := store.Recreate(); err != nil {
					return fmt.Errorf("recreate store: %w", err)
				}
			} else if err := store.UpdateDDL(); err != nil {
				return fmt.Errorf("update schema: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "store initialized (schema %s)\n", store.DataModelVersion())
			return nil
		},
	}

	cmd.Flags().BoolVar(&recreate, "recreate", false, "delete the database file and create a fresh schema")
	return cmd
}
