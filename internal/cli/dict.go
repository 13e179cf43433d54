package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/crmstore/internal/sqlite"
	"github.com/mesh-intelligence/crmstore/pkg/types"
)

func newDictCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dict",
		Short: "Import or export the data dictionary",
	}
	cmd.AddCommand(newDictImportCmd(a))
	cmd.AddCommand(newDictExportCmd(a))
	return cmd
}

func newDictImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.jsonl>",
		Short: "Replace the stored data model with a dictionary file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dict, err := sqlite.ReadDictionaryJSONL(args[0])
			if err != nil {
				return err
			}

			store, err := a.attach()
			if err != nil {
				return err
			}
			defer store.Detach()

			if err := store.StoreDataDictionary(dict); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d tables, %d catalogs, %d catalog values\n",
				len(dict.Tables), len(dict.Catalogs), len(dict.CatalogValues))
			return nil
		},
	}
}

func newDictExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file.jsonl>",
		Short: "Write the stored data model to a dictionary file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.attach()
			if err != nil {
				return err
			}
			defer store.Detach()

			dict := &types.DataDictionary{}
			for _, id := range store.InfoAreaIDs() {
				if t, ok := store.TableInfo(id); ok {
					dict.Tables = append(dict.Tables, *t)
				}
			}
			if err := sqlite.WriteDictionaryJSONL(args[0], dict); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d tables\n", len(dict.Tables))
			return nil
		},
	}
}
