package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"sdmeta/internal/pipeline"
	"sdmeta/internal/report"
)

func newReportCommand(ctx *commandContext) *cobra.Command {
	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Browse saved conversion runs",
	}
	reportCmd.AddCommand(newReportListCommand(ctx))
	reportCmd.AddCommand(newReportShowCommand(ctx))
	reportCmd.AddCommand(newReportDeleteCommand(ctx))
	return reportCmd
}

func newReportListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(store *report.Store) error {
				runs, err := store.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if jsonOut {
					if runs == nil {
						runs = []report.Run{}
					}
					return writeJSON(cmd, runs)
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						shortID(run.ID),
						humanize.Time(run.StartedAt),
						run.Root,
						run.Format + "/" + run.Layout,
						strconv.Itoa(run.Summary.Succeeded) + "/" + strconv.Itoa(run.Summary.Total),
						strconv.Itoa(run.Summary.Failed),
						strconv.Itoa(run.Summary.Inconsistent),
						humanize.Bytes(uint64(run.Summary.BytesWritten)),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Run", "Started", "Root", "Target", "Converted", "Failed", "Inconsistent", "Written"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to show (0 for all)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print runs as JSON")
	return cmd
}

func newReportShowCommand(ctx *commandContext) *cobra.Command {
	var problemsOnly bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the ledger of one run (a unique id prefix is enough)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(store *report.Store) error {
				run, err := store.FindRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				results, err := store.Results(cmd.Context(), run.ID)
				if err != nil {
					return err
				}
				if problemsOnly {
					filtered := results[:0]
					for _, r := range results {
						if !r.Succeeded || !r.Consistent {
							filtered = append(filtered, r)
						}
					}
					results = filtered
				}
				if jsonOut {
					if results == nil {
						results = []pipeline.Result{}
					}
					return writeJSON(cmd, struct {
						Run     report.Run        `json:"run"`
						Results []pipeline.Result `json:"results"`
					}{run, results})
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderFields("Run "+run.ID, [][2]string{
					{"Root", run.Root},
					{"Target", run.Format + " (" + run.Layout + ")"},
					{"Started", run.StartedAt.Local().Format(time.DateTime)},
					{"Duration", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String()},
					{"Converted", fmt.Sprintf("%d of %d", run.Summary.Succeeded, run.Summary.Total)},
					{"Failed", strconv.Itoa(run.Summary.Failed)},
					{"Inconsistent", strconv.Itoa(run.Summary.Inconsistent)},
					{"Written", humanize.Bytes(uint64(run.Summary.BytesWritten))},
				}))
				if len(results) == 0 {
					return nil
				}
				rows := make([][]string, 0, len(results))
				for _, r := range results {
					status := "ok"
					detail := truncate(r.OriginalFlattened, maxCellWidth)
					switch {
					case !r.Succeeded:
						status, detail = "failed", r.Error
					case !r.Consistent:
						status = "inconsistent"
					}
					rows = append(rows, []string{
						relPath(run.Root, r.SourcePath),
						status,
						humanize.Bytes(uint64(r.BytesWritten)),
						detail,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Source", "Status", "Written", "Metadata / error"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&problemsOnly, "problems", false, "Only show failed or inconsistent files")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the run as JSON")
	return cmd
}

func newReportDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a saved run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(store *report.Store) error {
				run, err := store.FindRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if err := store.DeleteRun(cmd.Context(), run.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", run.ID)
				return nil
			})
		},
	}
}
