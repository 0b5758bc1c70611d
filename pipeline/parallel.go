package pipeline

import (
	"errors"
	"io"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/yotomir/torrent-creator/digest"
)

// ReadMode selects how the pipeline reads file data. The sequential mode
// streams every file through the 16 MiB macro-accumulator; the parallel
// mode splits the piece range across workers, each reading its own slice
// of the input directly. Both produce an identical piece table.
type ReadMode int

const (
	// ReadDisabled forces the sequential macro-accumulator reader
	// (better for spinning disks and one-shot streams).
	ReadDisabled ReadMode = iota
	// ReadEnabled forces the parallel piece-range reader (improves
	// throughput on seekable, fast sources).
	ReadEnabled
	// ReadAuto picks the parallel reader when the input is seekable and
	// large enough to keep every worker busy.
	ReadAuto
)

// parallelReadSize is the per-worker read buffer size for the parallel
// reader. Kept well below MacroChunkSize since every worker holds one.
const parallelReadSize = 1 << 20

// shouldReadParallel resolves the mode against the actual input: workers
// available, pieces to fill them, and whether the first file's stream
// can seek (a one-shot stream would force every worker to re-read the
// whole prefix of its range).
func (m ReadMode) shouldReadParallel(files []FileEntry, workers, totalPieces int) bool {
	logger := log.Logger.With().Str("module", "pipeline").Logger()

	switch m {
	case ReadDisabled:
		logger.Debug().Msg("disabling parallel method for reading files")
		return false
	case ReadEnabled:
		logger.Debug().Msg("forcing parallel method for reading files")
		return true
	case ReadAuto:
		if workers > 1 && totalPieces >= workers*2 && firstFileSeekable(files) {
			logger.Debug().Msg("seekable input detected, using parallel method for reading files")
			return true
		}
		logger.Debug().Msg("using sequential method for reading files")
		return false
	default:
		return false
	}
}

// firstFileSeekable probes the first non-empty file's stream for seek
// support. The probe stream is opened and closed without reading.
func firstFileSeekable(files []FileEntry) bool {
	for _, f := range files {
		if f.Size == 0 {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return false
		}
		_, seekable := rc.(io.Seeker)
		_ = rc.Close()
		return seekable
	}
	return false
}

// fileSpan pins one non-empty file to its absolute offset within the
// concatenated input stream, so a worker can locate the files a piece
// overlaps without walking sizes repeatedly.
type fileSpan struct {
	entry    FileEntry
	offset   int64
	path     string
	openOnce *sync.Once
}

// rangeReader tracks an open stream's position so sequential piece reads
// within a worker's range avoid redundant seeks.
type rangeReader struct {
	rc  io.ReadCloser
	pos int64
}

// calculateParallel fills pieceTable by splitting the piece range evenly
// across the pool's workers, each hashing its pieces directly from the
// source files. Piece index ranges are disjoint, so workers write to the
// table without locking; completion order does not affect the result.
//
// Unlike the sequential path, progress callbacks fire from worker
// goroutines and must be safe for concurrent use.
func (p *Pipeline) calculateParallel(
	files []FileEntry,
	totalSize int64,
	pieceLength int64,
	totalPieces int,
	jobID int64,
	getActiveJobID func() int64,
	cb Callbacks,
	pieceTable []byte,
) error {
	numWorkers := p.pool.Workers()
	piecesPerWorker := (totalPieces + numWorkers - 1) / numWorkers

	spans := make([]*fileSpan, 0, len(files))
	var offset int64
	for _, f := range files {
		if f.Size == 0 {
			continue
		}
		spans = append(spans, &fileSpan{
			entry:    f,
			offset:   offset,
			path:     joinPath(f.Path),
			openOnce: &sync.Once{},
		})
		offset += f.Size
	}

	var (
		wg        sync.WaitGroup
		errorOnce sync.Once
		firstErr  error
	)

	for i := 0; i < numWorkers; i++ {
		start := i * piecesPerWorker
		end := min(start+piecesPerWorker, totalPieces)
		if start >= end {
			break
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			err := p.processPieceRange(spans, start, end, totalSize, pieceLength, jobID, getActiveJobID, cb, pieceTable)
			if err != nil {
				errorOnce.Do(func() { firstErr = err })
			}
		}(start, end)
	}

	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	if getActiveJobID != nil && getActiveJobID() != jobID {
		return ErrCancelled
	}
	return nil
}

// processPieceRange hashes pieces [startPiece, endPiece) into pieceTable.
// Streams are opened lazily per worker and positions tracked so that the
// ascending piece order within a range never seeks backwards; one-shot
// streams are skipped forward by discarding.
func (p *Pipeline) processPieceRange(
	spans []*fileSpan,
	startPiece, endPiece int,
	totalSize int64,
	pieceLength int64,
	jobID int64,
	getActiveJobID func() int64,
	cb Callbacks,
	pieceTable []byte,
) error {
	bufPtr := p.parallelBuf.Get().(*[]byte)
	buf := *bufPtr
	defer p.parallelBuf.Put(bufPtr)

	h := digest.New()

	readers := make(map[int]*rangeReader)
	defer func() {
		for _, r := range readers {
			_ = r.rc.Close()
		}
	}()

	for pieceIndex := startPiece; pieceIndex < endPiece; pieceIndex++ {
		if getActiveJobID != nil && getActiveJobID() != jobID {
			return ErrCancelled
		}

		pieceOffset := int64(pieceIndex) * pieceLength
		length := pieceLength
		if remaining := totalSize - pieceOffset; remaining < length {
			length = remaining
		}

		h.Reset()
		if err := hashPieceData(spans, readers, pieceOffset, length, h, buf, jobID, getActiveJobID, cb); err != nil {
			return err
		}

		copy(pieceTable[pieceIndex*digest.Size:], h.Sum(nil))
		cb.bytesHashed(length)
	}

	return nil
}

// hashPieceData feeds the bytes of one piece, possibly spanning several
// files, into h.
func hashPieceData(
	spans []*fileSpan,
	readers map[int]*rangeReader,
	pieceOffset, pieceLength int64,
	h *digest.Hasher,
	buf []byte,
	jobID int64,
	getActiveJobID func() int64,
	cb Callbacks,
) error {
	remainingPiece := pieceLength

	for i, span := range spans {
		if pieceOffset >= span.offset+span.entry.Size {
			continue
		}
		if remainingPiece <= 0 {
			break
		}

		readStart := pieceOffset - span.offset
		if readStart < 0 {
			readStart = 0
		}
		readLength := span.entry.Size - readStart
		if readLength > remainingPiece {
			readLength = remainingPiece
		}

		reader, ok := readers[i]
		if !ok {
			span.openOnce.Do(func() { cb.fileOpen(span.path) })
			rc, err := span.entry.Open()
			if err != nil {
				return &IoError{Path: span.path, Err: err}
			}
			reader = &rangeReader{rc: rc}
			readers[i] = reader
		}

		if reader.pos != readStart {
			if err := advanceTo(reader, readStart); err != nil {
				return &IoError{Path: span.path, Err: err}
			}
		}

		remaining := readLength
		for remaining > 0 {
			if getActiveJobID != nil && getActiveJobID() != jobID {
				return ErrCancelled
			}

			toRead := int(remaining)
			if toRead > len(buf) {
				toRead = len(buf)
			}

			n, err := io.ReadFull(reader.rc, buf[:toRead])
			if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
				return &IoError{Path: span.path, Err: err}
			}
			if n == 0 {
				return &IoError{Path: span.path, Err: io.ErrUnexpectedEOF}
			}

			_, _ = h.Write(buf[:n])
			cb.bytesRead(int64(n))

			remaining -= int64(n)
			remainingPiece -= int64(n)
			reader.pos += int64(n)
			pieceOffset += int64(n)
		}

		// release the handle once the range has consumed this file
		if pieceOffset >= span.offset+span.entry.Size {
			_ = reader.rc.Close()
			delete(readers, i)
		}
	}

	return nil
}

// advanceTo positions r at offset, seeking when the stream supports it
// and discarding bytes otherwise. Ranges only ever move forward, so a
// non-seekable stream never needs to rewind.
func advanceTo(r *rangeReader, offset int64) error {
	if seeker, ok := r.rc.(io.Seeker); ok {
		if _, err := seeker.Seek(offset, io.SeekStart); err != nil {
			return err
		}
		r.pos = offset
		return nil
	}

	if offset < r.pos {
		return errors.New("cannot rewind a non-seekable stream")
	}
	if _, err := io.CopyN(io.Discard, r.rc, offset-r.pos); err != nil {
		return err
	}
	r.pos = offset
	return nil
}
