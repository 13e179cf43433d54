package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newIndexCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage indexes on info-area tables",
	}
	cmd.AddCommand(newIndexCreateCmd(a))
	return cmd
}

func newIndexCreateCmd(a *app) *cobra.Command {
	var prefix string

	cmd := &cobra.Command{
		Use:   "create <infoarea> <fieldid|column>...",
		Short: "Create an index on fields or columns of an info area",
		Long:  "Create an index on an info area. A single numeric argument names a field;\notherwise the arguments are column names, and a leading \"d\" sorts a column\ndescending.",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.attach()
			if err != nil {
				return err
			}
			defer store.Detach()

			var created bool
			if fieldID, convErr := strconv.Atoi(args[1]); convErr == nil && len(args) == 2 {
				created, err = store.CreateIndexFor(args[0], fieldID, prefix)
			} else {
				created, err = store.CreateIndex(args[0], prefix, args[1:])
			}
			if err != nil {
				return err
			}

			if created {
				fmt.Fprintln(cmd.OutOrStdout(), "index created")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "index already exists")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", "", "index name prefix (default: IX)")
	return cmd
}
