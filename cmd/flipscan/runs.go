package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"flipscan/internal/manifest"
	"flipscan/internal/services"
	"flipscan/internal/workspace"
)

type runsOptions struct {
	dest   string
	limit  int
	failed bool
}

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var opts runsOptions

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show conversion runs recorded for a destination",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dest, err := ctx.destination(opts.dest)
			if err != nil {
				return err
			}
			path := workspace.Open(dest).ManifestPath()
			if _, err := os.Stat(path); err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return fmt.Errorf("%w: no manifest found at %s; run convert first", services.ErrConfiguration, path)
				}
				return fmt.Errorf("stat manifest: %w", err)
			}
			store, err := manifest.Open(path)
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if opts.failed {
				return renderFailedSectors(cmd, out, store)
			}
			runs, err := store.Runs(cmd.Context(), opts.limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			fmt.Fprintln(out, renderRunsTable(runs))
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.dest, "dest", "", "Artifact destination (default: output.dest_dir or the working directory)")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "Maximum number of runs to show, newest first")
	cmd.Flags().BoolVar(&opts.failed, "failed", false, "List failed and skipped sectors of the latest run")
	return cmd
}

func renderRunsTable(runs []*manifest.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		elapsed := "-"
		if run.FinishedAt != nil {
			elapsed = run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String()
		}
		rows = append(rows, []string{
			shortID(run.ID),
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			humanize.Time(run.StartedAt),
			statusLabel(string(run.Status)),
			strconv.Itoa(run.Total),
			strconv.Itoa(run.Succeeded),
			strconv.Itoa(run.Failed),
			strconv.Itoa(run.Skipped),
			elapsed,
		})
	}
	return renderTable(
		[]string{"Run", "Started", "Age", "Status", "Total", "OK", "Failed", "Skipped", "Elapsed"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
	)
}

func renderFailedSectors(cmd *cobra.Command, out io.Writer, store *manifest.Store) error {
	ctx := cmd.Context()
	run, err := store.LatestRun(ctx)
	if err != nil {
		return err
	}
	if run == nil {
		fmt.Fprintln(out, "No runs recorded")
		return nil
	}
	records, err := store.SectorResults(ctx, run.ID, manifest.SectorFailed, manifest.SectorSkipped)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Run %s (%s): %d failed, %d skipped\n", shortID(run.ID), statusLabel(string(run.Status)), run.Failed, run.Skipped)
	if len(records) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			strconv.FormatUint(rec.Sector, 10),
			statusLabel(rec.Status),
			rec.ErrorKind,
			rec.Error,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Sector", "Status", "Kind", "Error"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
	))
	return nil
}
