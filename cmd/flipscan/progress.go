package main

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"flipscan/internal/logging"
)

// progressReporter renders sector progress either as a terminal bar or as
// sampled log lines when stderr is not a terminal.
type progressReporter struct {
	phase   string
	bar     *progressbar.ProgressBar
	sampler *logging.ProgressSampler
	logger  *slog.Logger
	done    int
}

func newProgressReporter(w io.Writer, phase string, total int, logger *slog.Logger) *progressReporter {
	p := &progressReporter{phase: phase, logger: logger}
	if isTerminal(w) && total > 0 {
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription(phase),
			progressbar.OptionShowCount(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
		return p
	}
	p.sampler = logging.NewProgressSampler(10)
	return p
}

func (p *progressReporter) update(done, total int) {
	if p == nil {
		return
	}
	if p.bar != nil {
		_ = p.bar.Add(done - p.done)
		p.done = done
		return
	}
	p.done = done
	if total <= 0 || p.logger == nil {
		return
	}
	percent := float64(done) / float64(total) * 100
	if !p.sampler.ShouldLog(percent, p.phase) {
		return
	}
	p.logger.Info(p.phase+" progress",
		logging.Int("completed", done),
		logging.Int("total", total),
		logging.Float64("percent", percent),
		logging.String(logging.FieldEventType, "progress"),
	)
}

func (p *progressReporter) finish() {
	if p == nil || p.bar == nil {
		return
	}
	_ = p.bar.Finish()
}

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
