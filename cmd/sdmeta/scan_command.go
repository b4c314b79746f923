package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"sdmeta/internal/scan"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "scan <path>...",
		Short: "List generation metadata for images in files or directories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			entries, err := scan.Paths(cmd.Context(), args, scan.Options{
				ExcludeDirs: cfg.Convert.ExcludeDirs,
				Reducer:     ctx.reducer(),
				Logger:      logger,
			})
			if err != nil {
				return err
			}
			if jsonOut {
				if entries == nil {
					entries = []scan.Entry{}
				}
				return writeJSON(cmd, entries)
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No images found")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			found := 0
			for _, e := range entries {
				if e.Record.Found() {
					found++
				}
				rows = append(rows, []string{
					e.Path,
					e.CreatedDate,
					e.Record.Model,
					truncate(e.Record.CoreTerm, 40),
					strconv.Itoa(e.Record.PositiveLength),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Image", "Created", "Model", "Core term", "Prompt chars"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
			))
			fmt.Fprintf(out, "%d images, %d with generation info\n", len(entries), found)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print records as JSON")
	return cmd
}
