package torrentcreator

import (
	"errors"

	"github.com/yotomir/torrent-creator/pipeline"
)

// ValidationError is returned by the validator before any hashing
// begins. Its message is the exact, user-facing first-failure text;
// callers should surface it verbatim rather than wrapping it.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// IoError wraps a file read failure encountered by the pipeline. Fatal
// for the job it occurred in.
type IoError = pipeline.IoError

// Cancelled is returned when a job id was superseded before the job
// completed. It carries no payload: cancellation is a silent, neutral
// result rather than a diagnostic.
var Cancelled = pipeline.ErrCancelled

// ErrEmptyFileList is the Cancelled-equivalent neutral result returned
// when the caller promises files but supplies none.
var ErrEmptyFileList = errors.New("torrentcreator: no files to hash")
