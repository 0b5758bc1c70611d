package torrentcreator_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	torrentcreator "github.com/yotomir/torrent-creator"
)

func TestFiles_TotalLength(t *testing.T) {
	files := torrentcreator.Files{
		{Path: []string{"a"}, Size: 2},
		{Path: []string{"b"}, Size: 3},
	}
	assert.Equal(t, int64(5), files.TotalLength())
}

func TestFiles_PieceCount(t *testing.T) {
	files := torrentcreator.Files{{Path: []string{"a"}, Size: 9}}
	assert.Equal(t, 3, files.PieceCount(4))
}

func TestFilesFromPath_SingleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	files, err := torrentcreator.FilesFromPath(path)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, []string{"a.txt"}, files[0].Path)
	assert.Equal(t, int64(5), files[0].Size)
}

func TestFilesFromPath_DirectoryIsSortedByPath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("bb"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o644))

	files, err := torrentcreator.FilesFromPath(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, []string{"a.txt"}, files[0].Path)
	assert.Equal(t, []string{"b.txt"}, files[1].Path)
}

func TestFilesFromPath_OpenReadsBackContents(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o644))

	files, err := torrentcreator.FilesFromPath(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)

	rc, err := files[0].Open()
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}
