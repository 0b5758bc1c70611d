// Package pipeline implements the streaming piece-hashing pipeline:
// read input files sequentially, accumulate bytes into a fixed 16 MiB
// macro-chunk decoupled from file boundaries and piece size, and
// dispatch piece-sliced buffers to a hasher.Pool to build the
// contiguous piece table.
package pipeline

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/yotomir/torrent-creator/digest"
	"github.com/yotomir/torrent-creator/hasher"
)

// MacroChunkSize is the fixed size of the orchestrator-level read
// accumulator, independent of piece size.
const MacroChunkSize = 16 * 1024 * 1024

// ErrCancelled is returned when the job id supplied to CalculateHashes
// is superseded before or during the run.
var ErrCancelled = errors.New("pipeline: job cancelled")

// IoError wraps a file read failure with a fixed user-facing message.
type IoError struct {
	Path string
	Err  error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("Error reading file: %s. The file might be inaccessible, or might have been modified, moved, or deleted.", e.Path)
}

func (e *IoError) Unwrap() error { return e.Err }

// FileEntry is the pipeline's view of one input file: an ordered path
// (verbatim path segments), its size, and a lazily-opened byte source so
// large trees can be handed over without holding every file open at
// once.
type FileEntry struct {
	Path []string
	Size int64
	Open func() (io.ReadCloser, error)
}

// Callbacks groups the progress hooks the pipeline emits. Any of them
// may be nil.
type Callbacks struct {
	OnBytesRead   func(n int64)
	OnBytesHashed func(n int64)
	OnFileOpen    func(path string)
}

func (c Callbacks) bytesRead(n int64) {
	if c.OnBytesRead != nil {
		c.OnBytesRead(n)
	}
}

func (c Callbacks) bytesHashed(n int64) {
	if c.OnBytesHashed != nil {
		c.OnBytesHashed(n)
	}
}

func (c Callbacks) fileOpen(path string) {
	if c.OnFileOpen != nil {
		c.OnFileOpen(path)
	}
}

// Pipeline owns the worker pool and buffer pools used to turn a file
// stream into a piece table. It holds no per-run state, so one Pipeline
// can drive many sequential CalculateHashes calls.
type Pipeline struct {
	pool        *hasher.Pool
	readMode    ReadMode
	macroBuf    sync.Pool
	pieceBuf    sync.Pool
	parallelBuf sync.Pool
}

// New creates a Pipeline backed by a worker pool of the given size
// (clamped to hasher.MaxWorkers). The read mode defaults to ReadAuto;
// use SetReadMode to pin it.
func New(workers int) *Pipeline {
	return &Pipeline{
		pool:     hasher.NewPool(workers),
		readMode: ReadAuto,
		parallelBuf: sync.Pool{
			New: func() any {
				b := make([]byte, parallelReadSize)
				return &b
			},
		},
		macroBuf: sync.Pool{
			New: func() any {
				b := make([]byte, MacroChunkSize)
				return &b
			},
		},
		pieceBuf: sync.Pool{
			New: func() any {
				b := make([]byte, 0, MacroChunkSize)
				return &b
			},
		},
	}
}

// SetReadMode selects between the sequential macro-accumulator reader
// and the parallel piece-range reader for subsequent CalculateHashes
// calls. Both produce an identical piece table.
func (p *Pipeline) SetReadMode(m ReadMode) {
	p.readMode = m
}

// CalculateHashes preallocates the piece table, streams every
// non-empty file into the 16 MiB accumulator, dispatches full (or, at
// the very end, partial) accumulators to the worker pool, and writes
// the resulting digests at their pre-reserved offsets.
//
// getActiveJobID is polled before every dispatch and once more after the
// final barrier; on a mismatch against jobID the call returns
// ErrCancelled. A file read failure returns *IoError wrapping the
// underlying error.
func (p *Pipeline) CalculateHashes(
	files []FileEntry,
	totalSize int64,
	pieceLength int64,
	jobID int64,
	getActiveJobID func() int64,
	cb Callbacks,
) ([]byte, error) {
	p.pool.SetActiveJobID(jobID)

	if getActiveJobID != nil && getActiveJobID() != jobID {
		return nil, ErrCancelled
	}

	totalPieces := int((totalSize + pieceLength - 1) / pieceLength)
	pieceTable := make([]byte, totalPieces*digest.Size)
	nextPieceIndex := 0

	if p.readMode.shouldReadParallel(files, p.pool.Workers(), totalPieces) {
		if err := p.calculateParallel(files, totalSize, pieceLength, totalPieces, jobID, getActiveJobID, cb, pieceTable); err != nil {
			return nil, err
		}
		return pieceTable, nil
	}

	accPtr := p.macroBuf.Get().(*[]byte)
	acc := (*accPtr)[:MacroChunkSize]
	w := 0

	releaseAcc := func() {
		*accPtr = acc[:MacroChunkSize]
		p.macroBuf.Put(accPtr)
	}

	for _, f := range files {
		if f.Size == 0 {
			continue
		}

		pathStr := joinPath(f.Path)
		cb.fileOpen(pathStr)
		log.Debug().Str("module", "pipeline").Str("path", pathStr).Msg("opening file")

		stream, err := f.Open()
		if err != nil {
			releaseAcc()
			return nil, &IoError{Path: pathStr, Err: err}
		}

		var remaining int64 = f.Size
		for remaining > 0 {
			if getActiveJobID != nil && getActiveJobID() != jobID {
				_ = stream.Close()
				releaseAcc()
				return nil, ErrCancelled
			}

			// Read directly into the tail of the accumulator, so the
			// single reusable 16 MiB buffer is both the read target and
			// the accumulator. A read can never overrun it because the
			// request is capped to the space left.
			toRead := int64(MacroChunkSize - w)
			if toRead > remaining {
				toRead = remaining
			}

			n, err := stream.Read(acc[w : w+int(toRead)])
			if n > 0 {
				cb.bytesRead(int64(n))
				w += n
				remaining -= int64(n)

				if w == MacroChunkSize {
					if cancelErr := p.dispatch(acc[:w], &nextPieceIndex, pieceTable, pieceLength, jobID, getActiveJobID, cb); cancelErr != nil {
						_ = stream.Close()
						releaseAcc()
						return nil, cancelErr
					}
					w = 0
				}
			}
			if err != nil {
				if err == io.EOF {
					break
				}
				_ = stream.Close()
				releaseAcc()
				return nil, &IoError{Path: pathStr, Err: err}
			}
		}

		if err := stream.Close(); err != nil {
			releaseAcc()
			return nil, &IoError{Path: pathStr, Err: err}
		}
	}

	if w > 0 {
		if cancelErr := p.dispatch(acc[:w], &nextPieceIndex, pieceTable, pieceLength, jobID, getActiveJobID, cb); cancelErr != nil {
			releaseAcc()
			return nil, cancelErr
		}
	}

	releaseAcc()

	if getActiveJobID != nil && getActiveJobID() != jobID {
		return nil, ErrCancelled
	}

	return pieceTable, nil
}

// dispatch slices a filled (or final partial) accumulator segment into
// piece-length chunks, hands them to the worker pool, and writes the
// resulting digests into pieceTable at the pre-reserved offset.
func (p *Pipeline) dispatch(
	segment []byte,
	nextPieceIndex *int,
	pieceTable []byte,
	pieceLength int64,
	jobID int64,
	getActiveJobID func() int64,
	cb Callbacks,
) error {
	if getActiveJobID != nil && getActiveJobID() != jobID {
		return ErrCancelled
	}

	m := int64(len(segment))
	k := int((m + pieceLength - 1) / pieceLength)
	startIndex := *nextPieceIndex
	*nextPieceIndex += k

	pieces := make([][]byte, k)
	for i := 0; i < k; i++ {
		start := int64(i) * pieceLength
		end := start + pieceLength
		if end > m {
			end = m
		}

		bufPtr := p.pieceBuf.Get().(*[]byte)
		buf := (*bufPtr)[:0]
		buf = append(buf, segment[start:end]...)
		pieces[i] = buf
	}

	digests, returned, ok := p.pool.ComputeHashes(jobID, pieces)

	for _, buf := range returned {
		b := buf[:0]
		p.pieceBuf.Put(&b)
	}

	if !ok {
		return ErrCancelled
	}

	copy(pieceTable[startIndex*digest.Size:], digests)
	cb.bytesHashed(m)
	log.Debug().Str("module", "pipeline").Int("pieces", k).Int64("bytes", m).Msg("dispatched accumulator")

	return nil
}

func joinPath(segments []string) string {
	out := ""
	for i, s := range segments {
		if i > 0 {
			out += "/"
		}
		out += s
	}
	return out
}
