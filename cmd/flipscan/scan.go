package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"flipscan/internal/config"
	"flipscan/internal/dispatch"
	"flipscan/internal/geometry"
	"flipscan/internal/logging"
	"flipscan/internal/preflight"
	"flipscan/internal/scan"
	"flipscan/internal/services"
	"flipscan/internal/workspace"
)

const topSectorRows = 10

type scanOptions struct {
	path      string
	output    string
	threshold int
	strict    bool
	sectors   string
}

func newScanCommand(ctx *commandContext) *cobra.Command {
	var opts scanOptions

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Count bit flips per sector from diff artifacts",
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

			scanOpts := []scan.Option{scan.WithStrict(opts.strict)}
			if cmd.Flags().Changed("threshold") {
				scanOpts = append(scanOpts, scan.WithThreshold(opts.threshold))
			}
			scanner := scan.NewScanner(cfg, workspace.Open(opts.path), logger, scanOpts...)
			result, err := scanner.Scan(cmd.Context(), sectors)
			if err != nil {
				return err
			}
			if err := scan.WriteFile(opts.output, result.Rows); err != nil {
				return err
			}
			logging.NewComponentLogger(logger, "scan").Info("scan complete",
				logging.Int("sectors", len(result.Rows)),
				logging.Int("missing", len(result.Missing)),
				logging.Int("bit_flips", result.TotalFlips()),
				logging.String("output", opts.output),
			)
			renderScanResult(cmd.OutOrStdout(), opts.output, scanner.Threshold(), result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.path, "path", "p", "", "Artifact directory written by convert")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "CSV file to write")
	cmd.Flags().IntVar(&opts.threshold, "threshold", 0, "Count diff entries strictly below this shift in mV (default: scan.threshold_mv)")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Fail when a sector's diff artifact is missing")
	cmd.Flags().StringVar(&opts.sectors, "sectors", "", "Comma-separated sector ids to scan (default: all)")
	_ = cmd.MarkFlagRequired("path")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func checkArtifactDir(path string) error {
	if res := preflight.CheckReadableDir("Artifact directory", path); !res.Passed {
		return fmt.Errorf("%w: %s: %s", services.ErrConfiguration, res.Name, res.Detail)
	}
	return nil
}

func selectSectors(layout geometry.Layout, list string) ([]geometry.SectorID, error) {
	if strings.TrimSpace(list) == "" {
		return dispatch.AllSectors(layout), nil
	}
	return dispatch.ParseSectors(layout, list)
}

func renderScanResult(out io.Writer, output string, threshold int, result *scan.Result) {
	fmt.Fprintln(out, renderSummary([][2]string{
		{"Threshold", fmt.Sprintf("%d mV", threshold)},
		{"Sectors scanned", strconv.Itoa(len(result.Rows))},
		{"Sectors missing", strconv.Itoa(len(result.Missing))},
		{"Bit flips", strconv.Itoa(result.TotalFlips())},
		{"Output", output},
	}))

	top := make([]scan.Row, 0, len(result.Rows))
	for _, row := range result.Rows {
		if row.Flips > 0 {
			top = append(top, row)
		}
	}
	if len(top) > 0 {
		sort.SliceStable(top, func(i, j int) bool { return top[i].Flips > top[j].Flips })
		if len(top) > topSectorRows {
			top = top[:topSectorRows]
		}
		rows := make([][]string, 0, len(top))
		for _, row := range top {
			rows = append(rows, []string{strconv.FormatUint(uint64(row.Sector), 10), strconv.Itoa(row.Flips)})
		}
		fmt.Fprintln(out, "Most affected sectors:")
		fmt.Fprintln(out, renderTable([]string{"Sector", "Bit flips"}, rows, []columnAlignment{alignRight, alignRight}))
	}

	if len(result.Missing) > 0 {
		fmt.Fprintf(out, "Missing diff artifacts for sectors: %s\n", joinSectors(result.Missing))
	}
}

func joinSectors(ids []geometry.SectorID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(uint64(id), 10)
	}
	return strings.Join(parts, ", ")
}
