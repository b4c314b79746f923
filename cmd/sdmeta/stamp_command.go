package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"sdmeta/internal/filestamp"
	"sdmeta/internal/logging"
)

func newStampCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "stamp <file>...",
		Short: "Set file times from the timestamp embedded in each filename",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			logger = logging.NewComponentLogger(logger, "stamp")

			out := cmd.OutOrStdout()
			var stamped, skipped, failed int
			for _, path := range args {
				t, ok := filestamp.ParseFilename(filepath.Base(path), filestamp.DefaultLayout)
				if !ok {
					skipped++
					fmt.Fprintf(out, "skip   %s (no timestamp in name)\n", path)
					continue
				}
				when := t.Format(time.DateTime)
				if dryRun {
					stamped++
					fmt.Fprintf(out, "would  %s -> %s\n", path, when)
					continue
				}
				if err := filestamp.Set(path, t); err != nil {
					failed++
					logger.Warn("stamp failed",
						logging.String(logging.FieldSource, path),
						logging.String(logging.FieldEventType, "stamp_failed"),
						logging.Error(err),
					)
					fmt.Fprintf(out, "failed %s: %v\n", path, err)
					continue
				}
				stamped++
				fmt.Fprintf(out, "set    %s -> %s\n", path, when)
			}

			fmt.Fprintf(out, "%d stamped, %d skipped, %d failed\n", stamped, skipped, failed)
			if failed > 0 {
				return fmt.Errorf("%d of %d files could not be stamped", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Show the times that would be set without changing files")
	return cmd
}
