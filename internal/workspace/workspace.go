package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"flipscan/internal/artifact"
	"flipscan/internal/geometry"
)

const (
	lockFileName     = ".flipscan.lock"
	manifestFileName = "manifest.db"
)

// ErrLocked reports that another process holds the destination lock.
var ErrLocked = errors.New("destination is locked by another flipscan run")

// Workspace is a destination root containing one subfolder per artifact kind.
type Workspace struct {
	Root string
}

// Open returns a workspace rooted at dest without touching the filesystem.
func Open(dest string) *Workspace {
	return &Workspace{Root: filepath.Clean(dest)}
}

// Prepare creates dest and its artifact subfolders when absent.
func Prepare(dest string) (*Workspace, error) {
	dest = strings.TrimSpace(dest)
	if dest == "" {
		return nil, errors.New("destination directory is empty")
	}
	ws := Open(dest)
	for _, kind := range artifact.Kinds {
		dir := filepath.Join(ws.Root, kind.Dir())
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return ws, nil
}

// ArtifactPath returns the file path for the artifact of kind for sector.
func (w *Workspace) ArtifactPath(kind artifact.Kind, sector geometry.SectorID) string {
	return filepath.Join(w.Root, kind.Dir(), kind.FileName(sector))
}

// ManifestPath returns the run manifest database path.
func (w *Workspace) ManifestPath() string {
	return filepath.Join(w.Root, manifestFileName)
}

// LockPath returns the path of the destination lock file.
func (w *Workspace) LockPath() string {
	return filepath.Join(w.Root, lockFileName)
}

// Lock is a held destination lock.
type Lock struct {
	lock *flock.Flock
}

// Lock acquires the destination lock without blocking. It returns ErrLocked
// when another process already holds it.
func (w *Workspace) Lock() (*Lock, error) {
	fl := flock.New(w.LockPath())
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, w.LockPath())
	}
	return &Lock{lock: fl}, nil
}

// Unlock releases the destination lock.
func (l *Lock) Unlock() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}
