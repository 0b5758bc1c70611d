package pipeline_test

import (
	"bytes"
	"crypto/sha1"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yotomir/torrent-creator/digest"
	"github.com/yotomir/torrent-creator/pipeline"
)

type memFile struct {
	io.Reader
}

func (memFile) Close() error { return nil }

func fileOf(data []byte) pipeline.FileEntry {
	return pipeline.FileEntry{
		Path: []string{"f"},
		Size: int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return memFile{bytes.NewReader(data)}, nil
		},
	}
}

func expectedPieceTable(data []byte, pieceLen int64) []byte {
	var out []byte
	for i := int64(0); i < int64(len(data)); i += pieceLen {
		end := i + pieceLen
		if end > int64(len(data)) {
			end = int64(len(data))
		}
		sum := sha1.Sum(data[i:end])
		out = append(out, sum[:]...)
	}
	return out
}

func active(id int64) func() int64 {
	return func() int64 { return id }
}

func TestCalculateHashes_SingleFileExactMultipleOfPieceLength(t *testing.T) {
	// total size is an exact multiple of the piece length, so the final
	// piece is full.
	const pieceLen = 4
	data := []byte("abcdefgh") // 2 pieces of 4 bytes

	p := pipeline.New(2)
	table, err := p.CalculateHashes([]pipeline.FileEntry{fileOf(data)}, int64(len(data)), pieceLen, 1, active(1), pipeline.Callbacks{})
	require.NoError(t, err)
	assert.Equal(t, expectedPieceTable(data, pieceLen), table)
	assert.Len(t, table, 2*digest.Size)
}

func TestCalculateHashes_TotalSizeOfOneByte(t *testing.T) {
	// smallest possible non-empty input.
	const pieceLen = 16384
	data := []byte{0x42}

	p := pipeline.New(1)
	table, err := p.CalculateHashes([]pipeline.FileEntry{fileOf(data)}, int64(len(data)), pieceLen, 1, active(1), pipeline.Callbacks{})
	require.NoError(t, err)
	assert.Equal(t, expectedPieceTable(data, pieceLen), table)
	assert.Len(t, table, digest.Size)
}

func TestCalculateHashes_AccumulatorBoundaryPlusOneByte(t *testing.T) {
	// total size crosses the 16 MiB macro-accumulator boundary by one
	// byte, forcing a second dispatch with a single trailing piece.
	const pieceLen = 1 << 20 // 1 MiB pieces
	data := make([]byte, pipeline.MacroChunkSize+1)
	for i := range data {
		data[i] = byte(i)
	}

	p := pipeline.New(4)
	table, err := p.CalculateHashes([]pipeline.FileEntry{fileOf(data)}, int64(len(data)), pieceLen, 1, active(1), pipeline.Callbacks{})
	require.NoError(t, err)
	assert.Equal(t, expectedPieceTable(data, pieceLen), table)
}

func TestCalculateHashes_MultipleFilesConcatenatedAcrossBoundaries(t *testing.T) {
	const pieceLen = 5
	a := []byte("abc")          // 3 bytes
	b := []byte("defghijk")     // 8 bytes
	c := []byte("lmnopqrstuvw") // 12 bytes
	all := append(append(append([]byte{}, a...), b...), c...)

	p := pipeline.New(3)
	files := []pipeline.FileEntry{fileOf(a), fileOf(b), fileOf(c)}
	table, err := p.CalculateHashes(files, int64(len(all)), pieceLen, 1, active(1), pipeline.Callbacks{})
	require.NoError(t, err)
	assert.Equal(t, expectedPieceTable(all, pieceLen), table)
}

func TestCalculateHashes_ZeroSizeFilesDoNotAdvancePieceCounter(t *testing.T) {
	const pieceLen = 4
	data := []byte("abcdefgh")

	zero := pipeline.FileEntry{
		Path: []string{"empty"},
		Size: 0,
		Open: func() (io.ReadCloser, error) {
			t.Fatal("Open should never be called for a zero-size file")
			return nil, nil
		},
	}

	p := pipeline.New(2)
	files := []pipeline.FileEntry{zero, fileOf(data), zero}
	table, err := p.CalculateHashes(files, int64(len(data)), pieceLen, 1, active(1), pipeline.Callbacks{})
	require.NoError(t, err)
	assert.Equal(t, expectedPieceTable(data, pieceLen), table)
}

func TestCalculateHashes_CallbacksReportCumulativeTotals(t *testing.T) {
	const pieceLen = 4
	data := []byte("abcdefgh")

	var readTotal, hashedTotal int64
	var openedPaths []string
	cb := pipeline.Callbacks{
		OnBytesRead:   func(n int64) { readTotal += n },
		OnBytesHashed: func(n int64) { hashedTotal += n },
		OnFileOpen:    func(path string) { openedPaths = append(openedPaths, path) },
	}

	p := pipeline.New(2)
	_, err := p.CalculateHashes([]pipeline.FileEntry{fileOf(data)}, int64(len(data)), pieceLen, 1, active(1), cb)
	require.NoError(t, err)

	assert.EqualValues(t, len(data), readTotal)
	assert.EqualValues(t, len(data), hashedTotal)
	assert.Equal(t, []string{"f"}, openedPaths)
}

func TestCalculateHashes_CancelledBeforeStart(t *testing.T) {
	const pieceLen = 4
	data := []byte("abcdefgh")

	p := pipeline.New(2)
	table, err := p.CalculateHashes([]pipeline.FileEntry{fileOf(data)}, int64(len(data)), pieceLen, 1, active(2), pipeline.Callbacks{})
	assert.ErrorIs(t, err, pipeline.ErrCancelled)
	assert.Nil(t, table)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk yanked") }
func (failingReader) Close() error              { return nil }

func TestCalculateHashes_ReadFailureReturnsIoError(t *testing.T) {
	const pieceLen = 4
	f := pipeline.FileEntry{
		Path: []string{"bad"},
		Size: 10,
		Open: func() (io.ReadCloser, error) { return failingReader{}, nil },
	}

	p := pipeline.New(1)
	table, err := p.CalculateHashes([]pipeline.FileEntry{f}, 10, pieceLen, 1, active(1), pipeline.Callbacks{})
	require.Error(t, err)
	assert.Nil(t, table)

	var ioErr *pipeline.IoError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "bad", ioErr.Path)
}
