package sector

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"flipscan/internal/artifact"
	"flipscan/internal/config"
	"flipscan/internal/flipmap"
	"flipscan/internal/geometry"
	"flipscan/internal/logging"
	"flipscan/internal/readout"
	"flipscan/internal/services"
	"flipscan/internal/workspace"
)

// Inputs names the readout directories of a run.
type Inputs struct {
	PreDir  string
	PostDir string
}

// Processor converts sectors. It holds only immutable configuration and is
// safe for concurrent use on distinct sectors.
type Processor struct {
	reader *readout.Reader
	pre    readout.Source
	post   readout.Source
	ws     *workspace.Workspace
	writer *artifact.SetWriter
	logger *slog.Logger
}

// NewProcessor validates the sweeps and codec from cfg and returns a
// processor writing into ws.
func NewProcessor(cfg *config.Config, in Inputs, ws *workspace.Workspace, logger *slog.Logger) (*Processor, error) {
	if cfg == nil || ws == nil {
		return nil, fmt.Errorf("%w: processor requires config and workspace", services.ErrConfiguration)
	}
	if err := cfg.Geometry.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", services.ErrConfiguration, err)
	}
	if err := cfg.Sweep.Pre.Validate(); err != nil {
		return nil, fmt.Errorf("%w: pre sweep: %w", services.ErrConfiguration, err)
	}
	if err := cfg.Sweep.Post.Validate(); err != nil {
		return nil, fmt.Errorf("%w: post sweep: %w", services.ErrConfiguration, err)
	}
	compression, err := artifact.ParseCompression(cfg.Output.Compression)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", services.ErrConfiguration, err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	writer, err := artifact.NewSetWriter(compression, logging.NewComponentLogger(logger, "artifact"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", services.ErrConfiguration, err)
	}
	return &Processor{
		reader: readout.NewReader(cfg.Geometry, logger),
		pre:    readout.Source{Dir: in.PreDir, Sweep: cfg.Sweep.Pre},
		post:   readout.Source{Dir: in.PostDir, Sweep: cfg.Sweep.Post},
		ws:     ws,
		writer: writer,
		logger: logging.NewComponentLogger(logger, "processor"),
	}, nil
}

// Paths returns where the artifacts of id are written.
func (p *Processor) Paths(id geometry.SectorID) Paths {
	return Paths{
		Pre:  p.ws.ArtifactPath(artifact.KindPre, id),
		Post: p.ws.ArtifactPath(artifact.KindPost, id),
		Diff: p.ws.ArtifactPath(artifact.KindDiff, id),
	}
}

// Process reads both sweeps for id, computes the diff and writes the three
// artifacts. Running it twice on unchanged input produces identical files.
func (p *Processor) Process(ctx context.Context, id geometry.SectorID) Result {
	start := time.Now()
	result := Result{Sector: id, Paths: p.Paths(id)}
	finish := func(status Status, err error) Result {
		result.Status = status
		result.Err = err
		result.Duration = time.Since(start)
		return result
	}

	if err := ctx.Err(); err != nil {
		return Skipped(id, err)
	}
	ctx = services.WithSector(ctx, uint64(id))
	logger := logging.WithContext(ctx, p.logger)

	pre, err := p.reader.ReadSector(ctx, readout.Pre, id, p.pre)
	if err != nil {
		return p.fail(logger, finish, id, "read pre", err)
	}
	post, err := p.reader.ReadSector(ctx, readout.Post, id, p.post)
	if err != nil {
		return p.fail(logger, finish, id, "read post", err)
	}
	diff, err := flipmap.Diff(pre, post)
	if err != nil {
		return p.fail(logger, finish, id, "diff", fmt.Errorf("%w: %w", services.ErrMalformedInput, err))
	}
	if err := ctx.Err(); err != nil {
		return p.fail(logger, finish, id, "write artifacts", err)
	}

	written, err := p.writer.WriteSet(id, []artifact.Member{
		{Kind: artifact.KindPre, Path: result.Paths.Pre, Matrix: pre},
		{Kind: artifact.KindPost, Path: result.Paths.Post, Matrix: post},
		{Kind: artifact.KindDiff, Path: result.Paths.Diff, Matrix: diff},
	})
	if err != nil {
		return p.fail(logger, finish, id, "write artifacts", fmt.Errorf("%w: %w", services.ErrSerialization, err))
	}
	result.Bytes = written

	if logger.Enabled(ctx, slog.LevelDebug) {
		tally, _ := flipmap.Observe(pre, post)
		logger.Debug("sector converted",
			logging.Int64("bytes", written),
			logging.Int("both", tally.Both),
			logging.Int("pre_only", tally.PreOnly),
			logging.Int("post_only", tally.PostOnly),
			logging.Int("unobserved", tally.Unobserved),
			logging.Duration("elapsed", time.Since(start)),
		)
	}
	return finish(StatusSucceeded, nil)
}

func (p *Processor) fail(logger *slog.Logger, finish func(Status, error) Result, id geometry.SectorID, op string, err error) Result {
	err = fmt.Errorf("sector %s: %s: %w", formatSector(id), op, err)
	if services.Canceled(err) {
		logger.Debug("sector interrupted", logging.String("operation", op))
		return finish(StatusSkipped, err)
	}
	logging.WarnWithContext(logger, "sector failed", "sector_failed",
		logging.String("operation", op),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, hintFor(err)),
		logging.String(logging.FieldImpact, "sector has no artifacts from this run"),
	)
	return finish(StatusFailed, err)
}

func hintFor(err error) string {
	switch services.Kind(err) {
	case services.KindMissingInput:
		return "check that the sweep covers every voltage file for this sector"
	case services.KindMalformedInput:
		return "inspect the named readout file for truncation or stray characters"
	case services.KindSerialization:
		return "check destination permissions and free space"
	default:
		return "rerun with --log-level debug for details"
	}
}

func formatSector(id geometry.SectorID) string {
	return strconv.FormatUint(uint64(id), 10)
}
