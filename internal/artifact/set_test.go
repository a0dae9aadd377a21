package artifact

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"flipscan/internal/flipmap"
)

func setMembers(t *testing.T, root string) []Member {
	t.Helper()
	for _, kind := range Kinds {
		require.NoError(t, os.MkdirAll(filepath.Join(root, kind.Dir()), 0o755))
	}
	pre := sampleMatrix()
	post := sampleMatrix()
	diff, err := flipmap.Diff(pre, post)
	require.NoError(t, err)

	matrices := map[Kind]*flipmap.Matrix{KindPre: pre, KindPost: post, KindDiff: diff}
	members := make([]Member, 0, len(Kinds))
	for _, kind := range Kinds {
		members = append(members, Member{
			Kind:   kind,
			Path:   filepath.Join(root, kind.Dir(), kind.FileName(65536)),
			Matrix: matrices[kind],
		})
	}
	return members
}

func TestWriteSet(t *testing.T) {
	root := t.TempDir()
	members := setMembers(t, root)

	w, err := NewSetWriter(CompressionZstd, nil)
	require.NoError(t, err)

	written, err := w.WriteSet(65536, members)
	require.NoError(t, err)

	var total int64
	for _, member := range members {
		info, err := os.Stat(member.Path)
		require.NoError(t, err)
		total += info.Size()

		m, err := LoadKind(member.Path, member.Kind)
		require.NoError(t, err)
		require.Equal(t, member.Matrix.Values, m.Values)
	}
	require.Equal(t, total, written)
}

func TestWriteSetOverwritesIdentically(t *testing.T) {
	root := t.TempDir()
	members := setMembers(t, root)
	w, err := NewSetWriter(CompressionLZ4, nil)
	require.NoError(t, err)

	_, err = w.WriteSet(65536, members)
	require.NoError(t, err)
	first, err := os.ReadFile(members[2].Path)
	require.NoError(t, err)

	_, err = w.WriteSet(65536, members)
	require.NoError(t, err)
	second, err := os.ReadFile(members[2].Path)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestWriteSetFailureLeavesNothing(t *testing.T) {
	root := t.TempDir()
	members := setMembers(t, root)
	members[2].Path = filepath.Join(root, "missing_dir", "diff-data-65536")

	w, err := NewSetWriter(CompressionNone, nil)
	require.NoError(t, err)

	_, err = w.WriteSet(65536, members)
	require.Error(t, err)

	for _, kind := range Kinds {
		entries, err := os.ReadDir(filepath.Join(root, kind.Dir()))
		require.NoError(t, err)
		require.Empty(t, entries, kind.Dir())
	}
}

func TestWriteSetInvalidMatrix(t *testing.T) {
	root := t.TempDir()
	members := setMembers(t, root)
	members[1].Matrix = &flipmap.Matrix{Cells: 1, Bits: 1}

	w, err := NewSetWriter(CompressionS2, nil)
	require.NoError(t, err)
	_, err = w.WriteSet(65536, members)
	require.Error(t, err)

	_, statErr := os.Stat(members[0].Path)
	require.True(t, os.IsNotExist(statErr))
}

func TestNewSetWriterUnknownCompression(t *testing.T) {
	_, err := NewSetWriter(Compression(9), nil)
	require.Error(t, err)
}

func TestWriteSetCommitFailureRestoresPreviousSet(t *testing.T) {
	root := t.TempDir()
	members := setMembers(t, root)
	w, err := NewSetWriter(CompressionZstd, nil)
	require.NoError(t, err)

	_, err = w.WriteSet(65536, members)
	require.NoError(t, err)
	oldPre, err := os.ReadFile(members[0].Path)
	require.NoError(t, err)
	oldPost, err := os.ReadFile(members[1].Path)
	require.NoError(t, err)

	// A non-empty directory at the diff target makes its rename fail after
	// pre and post have already been committed.
	diffPath := members[2].Path
	require.NoError(t, os.Remove(diffPath))
	require.NoError(t, os.MkdirAll(filepath.Join(diffPath, "occupied"), 0o755))

	next := make([]Member, len(members))
	copy(next, members)
	shifted := flipmap.New(8, 16)
	for i := range shifted.Values {
		shifted.Values[i] = 4000
	}
	next[0].Matrix = shifted
	next[1].Matrix = shifted

	_, err = w.WriteSet(65536, next)
	require.Error(t, err)

	gotPre, err := os.ReadFile(members[0].Path)
	require.NoError(t, err)
	require.Equal(t, oldPre, gotPre)
	gotPost, err := os.ReadFile(members[1].Path)
	require.NoError(t, err)
	require.Equal(t, oldPost, gotPost)

	for _, kind := range []Kind{KindPre, KindPost} {
		entries, err := os.ReadDir(filepath.Join(root, kind.Dir()))
		require.NoError(t, err)
		require.Len(t, entries, 1, "leftover files in %s", kind.Dir())
	}
}

func TestWriteSetSyncFailureKeepsSet(t *testing.T) {
	root := t.TempDir()
	members := setMembers(t, root)
	w, err := NewSetWriter(CompressionS2, nil)
	require.NoError(t, err)

	orig := syncDir
	syncDir = func(string) error { return errors.New("fsync unsupported") }
	t.Cleanup(func() { syncDir = orig })

	written, err := w.WriteSet(65536, members)
	require.NoError(t, err)
	require.Positive(t, written)
	for _, member := range members {
		_, err := LoadKind(member.Path, member.Kind)
		require.NoError(t, err)
	}
}
