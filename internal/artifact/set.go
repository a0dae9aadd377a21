package artifact

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"flipscan/internal/fileutil"
	"flipscan/internal/flipmap"
	"flipscan/internal/geometry"
	"flipscan/internal/logging"
)

// Member is one artifact of a set.
type Member struct {
	Kind   Kind
	Path   string
	Matrix *flipmap.Matrix
}

// syncDir is replaceable in tests.
var syncDir = fileutil.SyncDir

// SetWriter writes a sector's artifacts as a unit. It is safe for concurrent
// use on distinct sectors.
type SetWriter struct {
	compression Compression
	logger      *slog.Logger
}

// NewSetWriter returns a writer encoding payloads with c.
func NewSetWriter(c Compression, logger *slog.Logger) (*SetWriter, error) {
	if _, err := GetCodec(c); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &SetWriter{compression: c, logger: logger}, nil
}

// Compression returns the codec used for new artifacts.
func (w *SetWriter) Compression() Compression { return w.compression }

// WriteSet stages every member to a synced temporary file, moves any previous
// artifacts aside, then renames the new members into place. When a step
// fails the new members are removed and the previous ones restored, so a
// sector holds either its old complete set, its new complete set, or nothing.
// It returns the total bytes written.
func (w *SetWriter) WriteSet(sector geometry.SectorID, members []Member) (int64, error) {
	staged := make([]*fileutil.Staged, 0, len(members))
	discard := func() {
		for _, s := range staged {
			s.Discard()
		}
	}

	for _, member := range members {
		s, err := fileutil.Stage(member.Path, 0o644, func(out io.Writer) error {
			_, err := Encode(out, member.Kind, sector, member.Matrix, w.compression)
			return err
		})
		if err != nil {
			discard()
			return 0, fmt.Errorf("write %s artifact: %w", member.Kind, err)
		}
		staged = append(staged, s)
	}

	backups := make([]string, 0, len(staged))
	restore := func() error {
		var errs []error
		for i, backup := range backups {
			errs = append(errs, fileutil.Restore(backup, staged[i].Target))
		}
		return errors.Join(errs...)
	}
	for i, s := range staged {
		backup, err := fileutil.SetAside(s.Target)
		if err != nil {
			discard()
			return 0, errors.Join(fmt.Errorf("replace %s artifact: %w", members[i].Kind, err), restore())
		}
		backups = append(backups, backup)
	}

	var total int64
	for i, s := range staged {
		if err := s.Commit(); err != nil {
			for _, done := range staged[:i] {
				_ = os.Remove(done.Target)
			}
			for _, pending := range staged[i+1:] {
				pending.Discard()
			}
			return 0, errors.Join(fmt.Errorf("commit %s artifact: %w", members[i].Kind, err), restore())
		}
		total += s.Size
	}

	for _, backup := range backups {
		if backup != "" {
			_ = os.Remove(backup)
		}
	}

	// The set is complete on disk at this point; a failed directory sync only
	// weakens crash durability.
	synced := make(map[string]struct{}, len(staged))
	for _, s := range staged {
		dir := filepath.Dir(s.Target)
		if _, ok := synced[dir]; ok {
			continue
		}
		synced[dir] = struct{}{}
		if err := syncDir(dir); err != nil {
			logging.WarnWithContext(w.logger, "artifact directory sync failed", "artifact_sync_failed",
				logging.Sector(uint64(sector)),
				logging.String("dir", dir),
				logging.Error(err),
				logging.String(logging.FieldImpact, "artifacts are written but may not survive a power loss"),
			)
		}
	}
	return total, nil
}
