package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/crmstore/pkg/types"
)

func newSyncCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Record or show dataset sync checkpoints",
	}
	cmd.AddCommand(newSyncReportCmd(a))
	cmd.AddCommand(newSyncShowCmd(a))
	return cmd
}

func newSyncReportCmd(a *app) *cobra.Command {
	var (
		count      int
		full       string
		last       string
		infoAreaID string
	)

	cmd := &cobra.Command{
		Use:   "report <dataset>",
		Short: "Record a sync of a dataset",
		Long:  "Record a sync of a dataset. Passing --full rebases the record count and\ninfo area; otherwise only the last sync timestamp moves.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.attach()
			if err != nil {
				return err
			}
			defer store.Detach()

			if err := store.ReportSync(args[0], count, full, last, infoAreaID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sync of %s recorded\n", args[0])
			return nil
		},
	}

	cmd.Flags().IntVar(&count, "count", 0, "number of records synchronized")
	cmd.Flags().StringVar(&full, "full", "", "full sync timestamp")
	cmd.Flags().StringVar(&last, "last", "", "last sync timestamp (default: --full)")
	cmd.Flags().StringVar(&infoAreaID, "info-area", "", "info area of the dataset")
	return cmd
}

func newSyncShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show [dataset]",
		Short: "Show sync checkpoints",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.attach()
			if err != nil {
				return err
			}
			defer store.Detach()

			var recs []types.SyncRecord
			if len(args) == 1 {
				rec, ok, err := store.SyncRecordOf(args[0])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("%w: dataset %s", types.ErrNotFound, args[0])
				}
				recs = append(recs, rec)
			} else if recs, err = store.SyncRecords(); err != nil {
				return err
			}

			if a.flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), recs)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(cmd.OutOrStdout())
			tw.SetStyle(table.StyleLight)
			tw.AppendHeader(table.Row{"Dataset", "Records", "Full Sync", "Last Sync", "Info Area"})
			for _, r := range recs {
				tw.AppendRow(table.Row{r.DatasetName, r.RecordCount, r.FullSyncTimestamp, r.SyncTimestamp, r.InfoAreaID})
			}
			tw.Render()
			return nil
		},
	}
}
