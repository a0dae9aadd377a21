package preflight

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"

	"flipscan/internal/artifact"
	"flipscan/internal/geometry"
)

// CheckReadableDir verifies that the directory exists and can be listed and read.
func CheckReadableDir(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.X_OK, "read ok")
}

// CheckWritableDir verifies that the directory exists and is readable/writable.
func CheckWritableDir(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.W_OK|unix.X_OK, "read/write ok")
}

func checkDirectory(name, path string, mode uint32, okDetail string) Result {
	if path == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, mode); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, okDetail)}
}

// CheckDestination verifies that dest is writable, or can be created under
// its nearest existing ancestor.
func CheckDestination(name, dest string) Result {
	existing, err := nearestExisting(dest)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", dest, err)}
	}
	res := CheckWritableDir(name, existing)
	if res.Passed && existing != filepath.Clean(dest) {
		res.Detail = fmt.Sprintf("%s (will be created under %s)", dest, existing)
	}
	return res
}

// CheckFreeSpace compares the available bytes on the filesystem holding path
// with need.
func CheckFreeSpace(name, path string, need uint64) Result {
	existing, err := nearestExisting(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	avail, err := availableBytes(existing)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", existing, err)}
	}
	if avail < need {
		return Result{Name: name, Detail: fmt.Sprintf("%s free, estimated %s needed", humanize.IBytes(avail), humanize.IBytes(need))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s free, estimated %s needed", humanize.IBytes(avail), humanize.IBytes(need))}
}

// EstimateArtifactBytes bounds the disk usage of a conversion. Uncompressed
// artifacts are exact; compressed ones are assumed to shrink by half, which
// sparse first-flip data comfortably beats.
func EstimateArtifactBytes(layout geometry.Layout, sectors int, c artifact.Compression) uint64 {
	perArtifact := uint64(artifact.HeaderSize) + uint64(layout.CellsPerSector)*uint64(layout.BitsPerCell)*4
	if c != artifact.CompressionNone {
		perArtifact /= 2
	}
	return perArtifact * 3 * uint64(sectors)
}

func availableBytes(path string) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, err
	}
	return st.Bavail * uint64(st.Bsize), nil
}

func nearestExisting(path string) (string, error) {
	if path == "" {
		return "", errors.New("empty path")
	}
	current := filepath.Clean(path)
	for {
		if _, err := os.Stat(current); err == nil {
			return current, nil
		} else if !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("no existing ancestor of %s", path)
		}
		current = parent
	}
}
