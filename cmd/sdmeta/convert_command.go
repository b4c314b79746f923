package main

import (
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"sdmeta/internal/exiftag"
	"sdmeta/internal/imageconv"
	"sdmeta/internal/logging"
	"sdmeta/internal/pathmap"
	"sdmeta/internal/pipeline"
	"sdmeta/internal/report"
)

type convertOutput struct {
	RunID   string            `json:"run_id"`
	Root    string            `json:"root"`
	Format  string            `json:"format"`
	Layout  string            `json:"layout"`
	Summary pipeline.Summary  `json:"summary"`
	Results []pipeline.Result `json:"results"`
	Report  string            `json:"report,omitempty"`
}

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var (
		formatFlag string
		layoutFlag string
		workers    int
		legacyEXIF bool
		stamp      bool
		noReport   bool
		jsonOut    bool
	)

	cmd := &cobra.Command{
		Use:   "convert <root>",
		Short: "Convert every PNG under root to JPEG or WebP, keeping generation metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			formatValue := cfg.Convert.Format
			if cmd.Flags().Changed("format") {
				formatValue = formatFlag
			}
			format, err := imageconv.ParseFormat(formatValue)
			if err != nil {
				return err
			}
			layoutValue := cfg.Convert.Layout
			if cmd.Flags().Changed("layout") {
				layoutValue = layoutFlag
			}
			layout, err := pathmap.ParseLayout(layoutValue)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("workers") {
				workers = cfg.Convert.Workers
			}
			if workers < 0 {
				return fmt.Errorf("--workers must be >= 0, got %d", workers)
			}

			mode := exiftag.ModeStandard
			if legacyEXIF || (!cmd.Flags().Changed("legacy-exif") && cfg.Convert.LegacyEXIF) {
				mode = exiftag.ModeLegacy
			}
			if !cmd.Flags().Changed("stamp") {
				stamp = cfg.Convert.StampFromFilename
			}

			opts := pipeline.Options{
				Root:              args[0],
				Format:            format,
				Layout:            layout,
				Workers:           workers,
				ExcludeDirs:       cfg.Convert.ExcludeDirs,
				JPEGQuality:       cfg.Convert.JPEGQuality,
				EXIFMode:          mode,
				Reducer:           ctx.reducer(),
				StampFromFilename: stamp,
				LockPath:          cfg.LockPath(),
				Logger:            logger,
			}

			errOut := cmd.ErrOrStderr()
			var progress *progressReporter
			if !jsonOut && isTerminal(errOut) {
				progress = newProgressReporter(errOut)
				opts.Progress = progress.observe
			}

			ledger, err := pipeline.Run(cmd.Context(), opts)
			if progress != nil {
				progress.finish()
			}
			if err != nil {
				return err
			}

			var reportPath string
			if cfg.Report.Enabled && !noReport {
				if err := ctx.withStore(cmd.Context(), func(store *report.Store) error {
					reportPath = store.Path()
					return store.SaveRun(cmd.Context(), ledger)
				}); err != nil {
					logging.WarnWithContext(logger, "report not saved", "report_save_failed",
						logging.String(logging.FieldRunID, ledger.RunID),
						logging.Error(err),
						logging.String(logging.FieldErrorHint, "check state_dir permissions or delete reports.db"),
						logging.String(logging.FieldImpact, "run finished but is missing from sdmeta report"),
					)
					reportPath = ""
				}
			}

			summary := ledger.Summary()
			if jsonOut {
				return writeJSON(cmd, convertOutput{
					RunID:   ledger.RunID,
					Root:    ledger.Root,
					Format:  ledger.Format.String(),
					Layout:  ledger.Layout.String(),
					Summary: summary,
					Results: ledger.Results(),
					Report:  reportPath,
				})
			}

			out := cmd.OutOrStdout()
			if rows := problemRows(ledger.Root, ledger.Results()); len(rows) > 0 {
				fmt.Fprintln(out, renderTable(
					[]string{"Source", "Status", "Detail"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft},
				))
			}
			fmt.Fprintf(out, "Run %s: %d/%d converted, %d failed, %d inconsistent, %s written\n",
				ledger.RunID, summary.Succeeded, summary.Total, summary.Failed, summary.Inconsistent,
				humanize.Bytes(uint64(summary.BytesWritten)))
			if reportPath != "" {
				fmt.Fprintf(out, "Report saved; view with `sdmeta report show %s`\n", shortID(ledger.RunID))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&formatFlag, "format", "f", "", "Target format: jpg or webp (default from config)")
	cmd.Flags().StringVarP(&layoutFlag, "layout", "l", "", "Destination layout: mirror or subfolder (default from config)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Parallel workers (0 uses one per CPU)")
	cmd.Flags().BoolVar(&legacyEXIF, "legacy-exif", false, "Write UTF-8 EXIF text for readers that mishandle UTF-16")
	cmd.Flags().BoolVar(&stamp, "stamp", false, "Set output file times from timestamps in source filenames")
	cmd.Flags().BoolVar(&noReport, "no-report", false, "Do not save the run to the report database")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the run ledger as JSON")
	return cmd
}

// problemRows lists failed and inconsistent results, relative to root.
func problemRows(root string, results []pipeline.Result) [][]string {
	var rows [][]string
	for _, r := range results {
		var status, detail string
		switch {
		case !r.Succeeded:
			status, detail = "failed", r.Error
		case !r.Consistent:
			status, detail = "inconsistent", "metadata changed after re-read"
		default:
			continue
		}
		rows = append(rows, []string{relPath(root, r.SourcePath), status, detail})
	}
	return rows
}

func relPath(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil {
		return rel
	}
	return path
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
