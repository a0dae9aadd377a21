package fileutil

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Staged is a fully written and synced temporary file waiting to replace its
// target. Either Commit or Discard must be called.
type Staged struct {
	Target string
	Temp   string
	Size   int64
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// Stage writes content produced by write into a temporary file next to target,
// flushes it to stable storage, and returns a handle for the pending rename.
// The temporary file is removed on any error.
func Stage(target string, mode os.FileMode, write func(io.Writer) error) (*Staged, error) {
	dir := filepath.Dir(target)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create temp for %s: %w", target, err)
	}
	tmpPath := tmp.Name()
	fail := func(err error) (*Staged, error) {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return nil, err
	}

	counter := &countingWriter{w: tmp}
	buf := bufio.NewWriterSize(counter, 256*1024)
	if err := write(buf); err != nil {
		return fail(err)
	}
	if err := buf.Flush(); err != nil {
		return fail(fmt.Errorf("flush %s: %w", tmpPath, err))
	}
	if err := tmp.Chmod(mode); err != nil {
		return fail(fmt.Errorf("chmod %s: %w", tmpPath, err))
	}
	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("sync %s: %w", tmpPath, err))
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("close %s: %w", tmpPath, err)
	}
	return &Staged{Target: target, Temp: tmpPath, Size: counter.n}, nil
}

// Commit renames the staged file over its target.
func (s *Staged) Commit() error {
	if err := os.Rename(s.Temp, s.Target); err != nil {
		_ = os.Remove(s.Temp)
		return fmt.Errorf("rename %s: %w", s.Target, err)
	}
	return nil
}

// Discard removes the staged temporary file.
func (s *Staged) Discard() {
	_ = os.Remove(s.Temp)
}

// SetAside moves the regular file at target to a hidden sibling so a failed
// replacement can put it back with Restore. It returns "" when target does
// not exist or is not a regular file; such targets are left in place.
func SetAside(target string) (string, error) {
	info, err := os.Lstat(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("stat %s: %w", target, err)
	}
	if !info.Mode().IsRegular() {
		return "", nil
	}
	holder, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*.prev.tmp")
	if err != nil {
		return "", fmt.Errorf("reserve backup for %s: %w", target, err)
	}
	backup := holder.Name()
	_ = holder.Close()
	if err := os.Rename(target, backup); err != nil {
		_ = os.Remove(backup)
		return "", fmt.Errorf("set aside %s: %w", target, err)
	}
	return backup, nil
}

// Restore moves a file returned by SetAside back to target. An empty backup
// is a no-op.
func Restore(backup, target string) error {
	if backup == "" {
		return nil
	}
	if err := os.Rename(backup, target); err != nil {
		return fmt.Errorf("restore %s: %w", target, err)
	}
	return nil
}

// WriteAtomic replaces target with the output of write so readers never see a
// partially written file.
func WriteAtomic(target string, mode os.FileMode, write func(io.Writer) error) error {
	staged, err := Stage(target, mode, write)
	if err != nil {
		return err
	}
	if err := staged.Commit(); err != nil {
		return err
	}
	return SyncDir(filepath.Dir(target))
}

// SyncDir flushes directory entries so completed renames survive a crash.
// Filesystems that reject fsync on directories are tolerated.
func SyncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		if errors.Is(err, unix.EINVAL) || errors.Is(err, unix.EPERM) {
			return nil
		}
		return err
	}
	return nil
}
