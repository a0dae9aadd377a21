package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"flipscan/internal/config"
	"flipscan/internal/histogram"
	"flipscan/internal/logging"
	"flipscan/internal/scan"
	"flipscan/internal/workspace"
)

type histogramOptions struct {
	path    string
	output  string
	filter  bool
	sectors string
}

func newHistogramCommand(ctx *commandContext) *cobra.Command {
	var opts histogramOptions

	cmd := &cobra.Command{
		Use:   "histogram",
		Short: "Accumulate pre, post, and diff voltage distributions",
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
			if opts.path, err = config.ExpandPath(strings.TrimSpace(opts.path)); err != nil {
				return fmt.Errorf("resolve --path: %w", err)
			}
			if opts.output, err = config.ExpandPath(strings.TrimSpace(opts.output)); err != nil {
				return fmt.Errorf("resolve --output: %w", err)
			}
			if err := scan.ValidateOutputPath(opts.output); err != nil {
				return err
			}
			if err := checkArtifactDir(opts.path); err != nil {
				return err
			}
			sectors, err := selectSectors(cfg.Geometry, opts.sectors)
			if err != nil {
				return err
			}

			var accOpts []histogram.Option
			if cmd.Flags().Changed("filter") {
				accOpts = append(accOpts, histogram.WithFilter(opts.filter))
			}
			acc := histogram.NewAccumulator(cfg, workspace.Open(opts.path), logger, accOpts...)
			progress := newProgressReporter(cmd.ErrOrStderr(), "histogram", len(sectors), logger)
			set, err := acc.Run(cmd.Context(), sectors, progress.update)
			progress.finish()
			if err != nil {
				return err
			}
			if err := histogram.WriteFile(opts.output, set); err != nil {
				return err
			}
			logging.NewComponentLogger(logger, "histogram").Info("histograms written",
				logging.Int("sectors", set.Sectors),
				logging.Int("missing", len(set.Missing)),
				logging.String("output", opts.output),
			)
			renderHistogramSet(cmd.OutOrStdout(), opts.output, set)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.path, "path", "p", "", "Artifact directory written by convert")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "CSV file to write")
	cmd.Flags().BoolVar(&opts.filter, "filter", false, "Drop cells outside the configured voltage bands (default: histogram.filter)")
	cmd.Flags().StringVar(&opts.sectors, "sectors", "", "Comma-separated sector ids to include (default: all)")
	_ = cmd.MarkFlagRequired("path")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func renderHistogramSet(out io.Writer, output string, set *histogram.Set) {
	fmt.Fprintln(out, renderSummary([][2]string{
		{"Sectors", strconv.Itoa(set.Sectors)},
		{"Bad sectors skipped", strconv.Itoa(set.BadSkipped)},
		{"Sectors missing", strconv.Itoa(len(set.Missing))},
		{"Cells filtered", humanize.Comma(set.Filtered)},
		{"Cells never set", humanize.Comma(set.Unobserved)},
		{"Output", output},
	}))

	rows := make([][]string, 0, 3)
	for _, h := range set.Series() {
		rows = append(rows, []string{
			h.Name,
			humanize.Comma(h.Entries()),
			strconv.FormatFloat(h.Mean(), 'f', 1, 64),
			humanize.Comma(h.Underflow),
			humanize.Comma(h.Overflow),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Series", "Entries", "Mean (mV)", "Underflow", "Overflow"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight},
	))
	if len(set.Missing) > 0 {
		fmt.Fprintf(out, "Missing artifacts for sectors: %s\n", joinSectors(set.Missing))
	}
}
