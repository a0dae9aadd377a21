package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"flipscan/internal/config"
	"flipscan/internal/dispatch"
	"flipscan/internal/geometry"
	"flipscan/internal/logging"
	"flipscan/internal/manifest"
	"flipscan/internal/preflight"
	"flipscan/internal/sector"
	"flipscan/internal/services"
	"flipscan/internal/workspace"
)

const (
	staleTempAge   = time.Hour
	maxFailureRows = 20
)

type convertOptions struct {
	pre           string
	post          string
	dest          string
	workers       int
	sectors       string
	retryFailed   bool
	stopOnFailure bool
}

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var opts convertOptions

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert pre and post readouts into per-sector artifacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			if opts.dest, err = ctx.destination(opts.dest); err != nil {
				return err
			}
			if opts.pre, err = config.ExpandPath(strings.TrimSpace(opts.pre)); err != nil {
				return fmt.Errorf("resolve --pre: %w", err)
			}
			if opts.post, err = config.ExpandPath(strings.TrimSpace(opts.post)); err != nil {
				return fmt.Errorf("resolve --post: %w", err)
			}
			if !cmd.Flags().Changed("workers") {
				opts.workers = cfg.Dispatch.Workers
			}
			opts.stopOnFailure = opts.stopOnFailure || cfg.Dispatch.StopOnFailure
			if opts.retryFailed && strings.TrimSpace(opts.sectors) != "" {
				return fmt.Errorf("%w: --retry-failed and --sectors are mutually exclusive", services.ErrConfiguration)
			}
			return runConvert(cmd, cfg, opts, logging.NewComponentLogger(logger, "convert"))
		},
	}

	cmd.Flags().StringVar(&opts.pre, "pre", "", "Directory of pre-exposure readout files")
	cmd.Flags().StringVar(&opts.post, "post", "", "Directory of post-exposure readout files")
	cmd.Flags().StringVar(&opts.dest, "dest", "", "Artifact destination (default: output.dest_dir or the working directory)")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "Worker pool size (0 = one per CPU)")
	cmd.Flags().StringVar(&opts.sectors, "sectors", "", "Comma-separated sector ids to convert (default: all)")
	cmd.Flags().BoolVar(&opts.retryFailed, "retry-failed", false, "Reconvert only sectors that failed or were skipped in the latest run")
	cmd.Flags().BoolVar(&opts.stopOnFailure, "stop-on-failure", false, "Stop submitting sectors after the first failure")
	_ = cmd.MarkFlagRequired("pre")
	_ = cmd.MarkFlagRequired("post")
	return cmd
}

func runConvert(cmd *cobra.Command, cfg *config.Config, opts convertOptions, logger *slog.Logger) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	sectors := dispatch.AllSectors(cfg.Geometry)
	if strings.TrimSpace(opts.sectors) != "" {
		parsed, err := dispatch.ParseSectors(cfg.Geometry, opts.sectors)
		if err != nil {
			return err
		}
		sectors = parsed
	}

	checks := preflight.RunAll(cfg, preflight.Request{
		PreDir:  opts.pre,
		PostDir: opts.post,
		Dest:    opts.dest,
		Sectors: len(sectors),
	})
	if err := preflight.Err(checks); err != nil {
		return err
	}

	ws, err := workspace.Prepare(opts.dest)
	if err != nil {
		return err
	}
	lock, err := ws.Lock()
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("release destination lock failed", logging.Error(err))
		}
	}()

	cleanup := ws.CleanStale(ctx, staleTempAge, logger)
	if len(cleanup.Removed) > 0 {
		logger.Info("removed stale temp files", logging.Int("count", len(cleanup.Removed)))
	}

	store, err := manifest.Open(ws.ManifestPath())
	if err != nil {
		return err
	}
	defer store.Close()

	if opts.retryFailed {
		retry, err := retrySectors(cmd, cfg.Geometry, store)
		if err != nil {
			return err
		}
		if len(retry) == 0 {
			fmt.Fprintln(out, "No failed or skipped sectors to retry")
			return nil
		}
		sectors = retry
	}

	inputs := sector.Inputs{PreDir: opts.pre, PostDir: opts.post}
	proc, err := sector.NewProcessor(cfg, inputs, ws, logger)
	if err != nil {
		return err
	}

	progress := newProgressReporter(cmd.ErrOrStderr(), "convert", len(sectors), logger)
	d := dispatch.New(proc,
		dispatch.WithWorkers(opts.workers),
		dispatch.WithStopOnFailure(opts.stopOnFailure),
		dispatch.WithRecorder(store, inputs),
		dispatch.WithLogger(logger),
		dispatch.WithProgress(func(p dispatch.Progress) {
			progress.update(p.Completed, p.Total)
		}),
	)

	report, runErr := d.Run(ctx, sectors)
	progress.finish()
	if report == nil {
		return runErr
	}

	renderConvertReport(out, opts.dest, report)

	var errs []error
	if runErr != nil {
		errs = append(errs, runErr)
	}
	switch {
	case report.Canceled:
		errs = append(errs, ctx.Err())
	case report.Failed > 0:
		errs = append(errs, fmt.Errorf("%d of %d sectors failed; rerun with --retry-failed", report.Failed, report.Total()))
	case report.Skipped > 0:
		errs = append(errs, fmt.Errorf("%d of %d sectors skipped", report.Skipped, report.Total()))
	}
	return errors.Join(errs...)
}

func retrySectors(cmd *cobra.Command, layout geometry.Layout, store *manifest.Store) ([]geometry.SectorID, error) {
	run, ids, err := store.RetrySectors(cmd.Context())
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("%w: no previous run recorded in %s", services.ErrConfiguration, store.Path())
	}
	if len(ids) == 0 {
		return nil, nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Retrying %d sectors from run %s\n", len(ids), shortID(run.ID))
	return dispatch.ResolveSectors(layout, ids)
}

func renderConvertReport(out io.Writer, dest string, report *dispatch.Report) {
	fmt.Fprintln(out, renderSummary([][2]string{
		{"Run", shortID(report.RunID)},
		{"Destination", dest},
		{"Status", statusLabel(string(report.Status()))},
		{"Sectors", strconv.Itoa(report.Total())},
		{"Succeeded", strconv.Itoa(report.Succeeded)},
		{"Failed", strconv.Itoa(report.Failed)},
		{"Skipped", strconv.Itoa(report.Skipped)},
		{"Written", humanize.IBytes(uint64(report.Bytes))},
		{"Elapsed", report.Duration.Round(time.Millisecond).String()},
	}))

	failures := report.Failures()
	if len(failures) == 0 {
		return
	}
	rows := make([][]string, 0, len(failures))
	for i, res := range failures {
		if i == maxFailureRows {
			break
		}
		rows = append(rows, []string{
			strconv.FormatUint(uint64(res.Sector), 10),
			res.ErrorKind(),
			errorText(res.Err),
		})
	}
	fmt.Fprintln(out, "Failed sectors:")
	fmt.Fprintln(out, renderTable([]string{"Sector", "Kind", "Error"}, rows, []columnAlignment{alignRight, alignLeft, alignLeft}))
	if len(failures) > maxFailureRows {
		fmt.Fprintf(out, "... and %d more (see `flipscan runs --failed`)\n", len(failures)-maxFailureRows)
	}
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
