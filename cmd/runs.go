package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/crash-cli/internal/export"
	"github.com/sells-group/crash-cli/internal/model"
	"github.com/sells-group/crash-cli/internal/store"
	"github.com/sells-group/crash-cli/internal/summary"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect persisted analysis runs",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent analysis runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		limit, _ := cmd.Flags().GetInt("limit")
		kind, _ := cmd.Flags().GetString("kind")
		status, _ := cmd.Flags().GetString("status")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Kind:   model.AnalysisKind(kind),
			Status: model.RunStatus(status),
			Limit:  limit,
		})
		if err != nil {
			return err
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a run and its summary rows",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return err
		}
		rows, err := st.GetSummaries(ctx, run.ID)
		if err != nil {
			return err
		}
		return showRun(os.Stdout, run, rows)
	},
}

func init() {
	runsListCmd.Flags().Int("limit", 20, "maximum number of runs to show")
	runsListCmd.Flags().String("kind", "", "filter by kind (districts, corridor, zone)")
	runsListCmd.Flags().String("status", "", "filter by status (running, complete, failed)")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}

func formatRunsList(out io.Writer, runs []model.Run) {
	if len(runs) == 0 {
		_, _ = fmt.Fprintln(out, "No runs found.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tKIND\tGROUP\tSTATUS\tRECORDS\tMEMBERS\tSTARTED")
	_, _ = fmt.Fprintln(w, "--\t----\t----\t-----\t------\t-------\t-------\t-------")

	for _, r := range runs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			truncateID(r.ID),
			r.Name,
			r.Kind,
			r.GroupBy,
			r.Status,
			r.Records,
			r.Members,
			r.StartedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// showRun prints the run as indented JSON followed by its summary table.
func showRun(out io.Writer, run *model.Run, rows []model.DistrictSummary) error {
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(out, string(data))
	if len(rows) == 0 {
		return nil
	}

	by, err := summary.ParseGroupBy(run.GroupBy)
	if err != nil {
		by = summary.GroupNone
	}
	_, _ = fmt.Fprintln(out)
	return export.WriteSummaryCSV(out, by, rows)
}

func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
