package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/crmstore/pkg/types"
)

func newTablesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List the info areas of the data model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.attach()
			if err != nil {
				return err
			}
			defer store.Detach()

			var tables []types.TableInfo
			for _, id := range store.InfoAreaIDs() {
				if t, ok := store.TableInfo(id); ok {
					tables = append(tables, *t)
				}
			}
			if a.flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), tables)
			}

			tw := table.NewWriter()
			tw.SetOutputMirror(cmd.OutOrStdout())
			tw.SetStyle(table.StyleLight)
			tw.AppendHeader(table.Row{"Info Area", "Root", "Name", "Fields", "Links", "Lookup"})
			for _, t := range tables {
				tw.AppendRow(table.Row{t.InfoAreaID, t.RootInfoAreaID, t.Name, len(t.Fields), len(t.Links), t.HasLookup})
			}
			tw.Render()
			return nil
		},
	}
}

func newFieldsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fields <infoarea>",
		Short: "List the fields and links of an info area",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.attach()
			if err != nil {
				return err
			}
			defer store.Detach()

			t, ok := store.TableInfo(args[0])
			if !ok {
				return fmt.Errorf("%w: %s", types.ErrUnknownInfoArea, args[0])
			}
			if a.flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), t)
			}

			fw := table.NewWriter()
			fw.SetOutputMirror(cmd.OutOrStdout())
			fw.SetStyle(table.StyleLight)
			fw.AppendHeader(table.Row{"Field", "Column", "XML Name", "Name", "Type", "Len", "Catalog", "Sub-fields"})
			for _, f := range t.Fields {
				cat := ""
				switch {
				case f.FixCatalog > 0:
					cat = fmt.Sprintf("fix %d", f.FixCatalog)
				case f.VarCatalog > 0:
					cat = fmt.Sprintf("var %d", f.VarCatalog)
				}
				sub := ""
				if f.IsArrayField() {
					sub = f.ArrayFieldIndicesString()
				}
				fw.AppendRow(table.Row{f.FieldID, f.ColumnName(), f.XMLName, f.Name, f.Type.String(), f.Length, cat, sub})
			}
			fw.Render()

			if len(t.Links) == 0 {
				return nil
			}
			lw := table.NewWriter()
			lw.SetOutputMirror(cmd.OutOrStdout())
			lw.SetStyle(table.StyleLight)
			lw.AppendHeader(table.Row{"Target", "Link", "Column", "Generic", "Physical"})
			for _, l := range t.Links {
				lw.AppendRow(table.Row{l.TargetInfoAreaID, l.LinkID, l.ColumnName(), l.IsGeneric(), l.HasColumn()})
			}
			lw.Render()
			return nil
		},
	}
}
