package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"sdmeta/internal/container"
	"sdmeta/internal/fileutil"
	"sdmeta/internal/genmeta"
	"sdmeta/internal/textdecode"
)

type inspectCandidate struct {
	Label   string `json:"label"`
	Valid   bool   `json:"valid"`
	Cleaned string `json:"cleaned"`
}

type inspectBlob struct {
	Kind       string             `json:"kind"`
	Size       int                `json:"size"`
	Marker     bool               `json:"marker"`
	Candidates []inspectCandidate `json:"candidates"`
}

type inspectOutput struct {
	Path      string         `json:"path"`
	Container string         `json:"container"`
	Size      int64          `json:"size"`
	SHA256    string         `json:"sha256"`
	Blobs     []inspectBlob  `json:"blobs"`
	Record    genmeta.Record `json:"record"`
	Warning   string         `json:"warning,omitempty"`
}

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Show every metadata blob and decode attempt for one image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := inspectFile(args[0], ctx.reducer())
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, result)
			}
			printInspect(cmd, result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the inspection as JSON")
	return cmd
}

func inspectFile(path string, reducer *genmeta.Reducer) (inspectOutput, error) {
	info, err := os.Stat(path)
	if err != nil {
		return inspectOutput{}, err
	}
	digest, err := fileutil.HashFile(path)
	if err != nil {
		return inspectOutput{}, err
	}

	out := inspectOutput{Path: path, Size: info.Size(), SHA256: digest}
	kind, blobs, err := container.ReadBlobs(path)
	out.Container = kind.String()
	if err != nil {
		if kind == container.KindUnknown {
			return inspectOutput{}, err
		}
		out.Warning = err.Error()
	}

	for _, blob := range blobs {
		ib := inspectBlob{
			Kind:       blob.Kind.String(),
			Size:       len(blob.Data),
			Marker:     textdecode.HasMarker(blob.Data),
			Candidates: []inspectCandidate{},
		}
		for _, cand := range textdecode.Ordered(blob.Kind, textdecode.Decode(blob)) {
			cleaned := genmeta.Clean(cand.Text)
			ib.Candidates = append(ib.Candidates, inspectCandidate{
				Label:   cand.Label,
				Valid:   genmeta.Extract(cand.Text).Found(),
				Cleaned: cleaned,
			})
		}
		out.Blobs = append(out.Blobs, ib)
	}
	out.Record = genmeta.FromBlobs(blobs, reducer)
	return out, nil
}

func printInspect(cmd *cobra.Command, r inspectOutput) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderFields("File", [][2]string{
		{"Path", r.Path},
		{"Container", r.Container},
		{"Size", humanize.Bytes(uint64(r.Size))},
		{"SHA-256", r.SHA256},
	}))
	if r.Warning != "" {
		fmt.Fprintf(out, "Warning: %s\n", r.Warning)
	}
	if len(r.Blobs) == 0 {
		fmt.Fprintln(out, "No metadata blobs found")
	}
	for i, blob := range r.Blobs {
		fmt.Fprintf(out, "\nBlob %d: %s, %d bytes, UNICODE marker: %s\n", i+1, blob.Kind, blob.Size, yesNo(blob.Marker))
		rows := make([][]string, 0, len(blob.Candidates))
		for j, cand := range blob.Candidates {
			rows = append(rows, []string{
				strconv.Itoa(j + 1),
				cand.Label,
				yesNo(cand.Valid),
				truncate(genmeta.Flatten(cand.Cleaned), maxCellWidth),
			})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"#", "Decoding", "Valid", "Cleaned text"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
		))
	}

	fmt.Fprintln(out)
	source := r.Record.Source
	if source == "" {
		source = "-"
	}
	fmt.Fprintln(out, renderFields("Generation record", [][2]string{
		{"Source", source},
		{"Model", r.Record.Model},
		{"Positive", r.Record.Positive},
		{"Negative", r.Record.Negative},
		{"Settings", r.Record.Settings},
		{"Prompt chars", strconv.Itoa(r.Record.PositiveLength)},
		{"Core term", r.Record.CoreTerm},
	}))
}
