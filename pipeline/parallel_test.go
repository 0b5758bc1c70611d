package pipeline_test

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yotomir/torrent-creator/pipeline"
)

// seekableFile wraps a bytes.Reader so the parallel reader's seek path
// is exercised; memFile (pipeline_test.go) deliberately hides Seek.
type seekableFile struct {
	*bytes.Reader
}

func (seekableFile) Close() error { return nil }

func seekableFileOf(name string, data []byte) pipeline.FileEntry {
	return pipeline.FileEntry{
		Path: []string{name},
		Size: int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return seekableFile{bytes.NewReader(data)}, nil
		},
	}
}

func patterned(n int, seed byte) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i)*7 + seed
	}
	return data
}

func TestCalculateHashes_ParallelMatchesSequential(t *testing.T) {
	const pieceLen = 1024
	a := patterned(10_000, 1)
	b := patterned(333, 2)
	c := patterned(50_000, 3)
	all := append(append(append([]byte{}, a...), b...), c...)

	seq := pipeline.New(4)
	seq.SetReadMode(pipeline.ReadDisabled)
	files := []pipeline.FileEntry{
		seekableFileOf("a", a),
		seekableFileOf("b", b),
		seekableFileOf("c", c),
	}
	want, err := seq.CalculateHashes(files, int64(len(all)), pieceLen, 1, active(1), pipeline.Callbacks{})
	require.NoError(t, err)

	par := pipeline.New(4)
	par.SetReadMode(pipeline.ReadEnabled)
	got, err := par.CalculateHashes(files, int64(len(all)), pieceLen, 1, active(1), pipeline.Callbacks{})
	require.NoError(t, err)

	assert.Equal(t, want, got)
	assert.Equal(t, expectedPieceTable(all, pieceLen), got)
}

func TestCalculateHashes_ParallelWithNonSeekableStreams(t *testing.T) {
	// forcing parallel mode on one-shot streams exercises the
	// discard-based forward skip.
	const pieceLen = 512
	data := patterned(20_000, 9)

	p := pipeline.New(4)
	p.SetReadMode(pipeline.ReadEnabled)
	table, err := p.CalculateHashes([]pipeline.FileEntry{fileOf(data)}, int64(len(data)), pieceLen, 1, active(1), pipeline.Callbacks{})
	require.NoError(t, err)
	assert.Equal(t, expectedPieceTable(data, pieceLen), table)
}

func TestCalculateHashes_ReadAutoFallsBackForTinyInputs(t *testing.T) {
	// two pieces cannot keep multiple workers busy; auto mode must
	// still produce a correct table via the sequential path.
	const pieceLen = 4
	data := []byte("abcdefgh")

	p := pipeline.New(4)
	p.SetReadMode(pipeline.ReadAuto)
	table, err := p.CalculateHashes([]pipeline.FileEntry{seekableFileOf("f", data)}, int64(len(data)), pieceLen, 1, active(1), pipeline.Callbacks{})
	require.NoError(t, err)
	assert.Equal(t, expectedPieceTable(data, pieceLen), table)
}

func TestCalculateHashes_ReadAutoUsesParallelForLargeSeekableInputs(t *testing.T) {
	const pieceLen = 1024
	data := patterned(64*1024, 5) // 64 pieces, plenty per worker

	p := pipeline.New(4)
	p.SetReadMode(pipeline.ReadAuto)
	table, err := p.CalculateHashes([]pipeline.FileEntry{seekableFileOf("f", data)}, int64(len(data)), pieceLen, 1, active(1), pipeline.Callbacks{})
	require.NoError(t, err)
	assert.Equal(t, expectedPieceTable(data, pieceLen), table)
}

func TestCalculateHashes_ParallelCallbacksReportFullTotals(t *testing.T) {
	const pieceLen = 1024
	data := patterned(32*1024, 6)

	var mu sync.Mutex
	var readTotal, hashedTotal int64
	var opened []string
	cb := pipeline.Callbacks{
		OnBytesRead: func(n int64) {
			mu.Lock()
			readTotal += n
			mu.Unlock()
		},
		OnBytesHashed: func(n int64) {
			mu.Lock()
			hashedTotal += n
			mu.Unlock()
		},
		OnFileOpen: func(path string) {
			mu.Lock()
			opened = append(opened, path)
			mu.Unlock()
		},
	}

	p := pipeline.New(4)
	p.SetReadMode(pipeline.ReadEnabled)
	_, err := p.CalculateHashes([]pipeline.FileEntry{seekableFileOf("f", data)}, int64(len(data)), pieceLen, 1, active(1), cb)
	require.NoError(t, err)

	assert.EqualValues(t, len(data), readTotal)
	assert.EqualValues(t, len(data), hashedTotal)
	assert.Equal(t, []string{"f"}, opened)
}

func TestCalculateHashes_ParallelCancelledReturnsCancelled(t *testing.T) {
	const pieceLen = 1024
	data := patterned(32*1024, 7)

	p := pipeline.New(4)
	p.SetReadMode(pipeline.ReadEnabled)
	table, err := p.CalculateHashes([]pipeline.FileEntry{seekableFileOf("f", data)}, int64(len(data)), pieceLen, 1, active(99), pipeline.Callbacks{})
	assert.ErrorIs(t, err, pipeline.ErrCancelled)
	assert.Nil(t, table)
}

func TestCalculateHashes_ParallelOpenFailureReturnsIoError(t *testing.T) {
	const pieceLen = 1024
	boom := errors.New("gone")
	f := pipeline.FileEntry{
		Path: []string{"bad"},
		Size: 32 * 1024,
		Open: func() (io.ReadCloser, error) { return nil, boom },
	}

	p := pipeline.New(4)
	p.SetReadMode(pipeline.ReadEnabled)
	table, err := p.CalculateHashes([]pipeline.FileEntry{f}, 32*1024, pieceLen, 1, active(1), pipeline.Callbacks{})
	require.Error(t, err)
	assert.Nil(t, table)

	var ioErr *pipeline.IoError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "bad", ioErr.Path)
	assert.ErrorIs(t, err, boom)
}
