package torrentcreator

import (
	"errors"
	"fmt"
	"time"

	"github.com/f4n4t/go-release/pkg/utils"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/yotomir/torrent-creator/bencode"
	"github.com/yotomir/torrent-creator/pipeline"
)

// Module names every log line emitted by this package.
const Module = "torrentcreator"

// Service orchestrates validation, piece hashing, and metainfo
// assembly into a single Create call. It owns the worker pool backing
// its pipeline, so one Service should be reused across jobs rather
// than rebuilt per call.
type Service struct {
	createdBy    string
	hashThreads  int
	parallelRead pipeline.ReadMode
	log          zerolog.Logger
	pipeline     *pipeline.Pipeline
}

// ServiceBuilder constructs a Service with defaults overridable via its
// With* methods.
type ServiceBuilder struct {
	service Service
}

// NewServiceBuilder creates a ServiceBuilder with default values.
func NewServiceBuilder() *ServiceBuilder {
	return &ServiceBuilder{
		Service{
			createdBy:    CreatedBy,
			hashThreads:  0,
			parallelRead: pipeline.ReadAuto,
			log:          log.Logger.With().Str("module", Module).Logger(),
		},
	}
}

// WithCreatedBy overrides the "created by" field; primarily useful for
// tests that need deterministic output independent of CreatedBy.
func (b *ServiceBuilder) WithCreatedBy(createdBy string) *ServiceBuilder {
	b.service.createdBy = createdBy
	return b
}

// WithHashThreads sets the worker pool size; 0 lets the pool pick its
// own default.
func (b *ServiceBuilder) WithHashThreads(n int) *ServiceBuilder {
	b.service.hashThreads = max(0, n)
	return b
}

// WithParallelFileRead selects the pipeline's file read mode: the
// sequential macro-accumulator reader, the parallel piece-range reader,
// or automatic selection based on the input.
func (b *ServiceBuilder) WithParallelFileRead(m pipeline.ReadMode) *ServiceBuilder {
	b.service.parallelRead = m
	return b
}

// Build finalizes the Service, constructing its pipeline.
func (b *ServiceBuilder) Build() *Service {
	s := b.service
	s.pipeline = pipeline.New(s.hashThreads)
	s.pipeline.SetReadMode(s.parallelRead)
	return &s
}

// Request is everything Create needs beyond the Service's own
// configuration: the file list, the build parameters, and the
// cancellation and progress plumbing.
type Request struct {
	Files          Files
	Params         Params
	SingleFile     bool
	JobID          int64
	GetActiveJobID func() int64
	OnBytesRead    func(n int64)
	OnBytesHashed  func(n int64)
	OnFileOpen     func(path string)
}

// Result is Create's successful output: the Bencoded metainfo document
// ready to write as "<name>.torrent", plus its info-hash.
type Result struct {
	Bytes    []byte
	InfoHash string
}

// Create validates req, runs the file list through the piece-hashing
// pipeline, and assembles the resulting metainfo document. Validation
// errors surface as *ValidationError before any hashing begins; a
// superseded job returns Cancelled; a file read failure returns
// *IoError.
func (s *Service) Create(req Request) (*Result, error) {
	startTime := time.Now()

	if len(req.Files) == 0 {
		return nil, ErrEmptyFileList
	}

	if err := ValidateName(req.Params.Name); err != nil {
		return nil, err
	}
	trackers, err := ValidateTrackers(req.Params.Trackers)
	if err != nil {
		return nil, err
	}
	webSeeds, err := ValidateWebSeeds(req.Params.WebSeeds)
	if err != nil {
		return nil, err
	}

	totalSize := req.Files.TotalLength()
	pieceLength := req.Params.PieceSize.Resolve(totalSize)

	s.log.Info().
		Str("size", utils.Bytes(totalSize)).
		Str("pieceLength", utils.Bytes(pieceLength)).
		Int("totalPieces", req.Files.PieceCount(pieceLength)).
		Msg("generating pieces")

	pieces, err := s.pipeline.CalculateHashes(
		req.Files.toPipelineEntries(),
		totalSize,
		pieceLength,
		req.JobID,
		req.GetActiveJobID,
		pipeline.Callbacks{
			OnBytesRead:   req.OnBytesRead,
			OnBytesHashed: req.OnBytesHashed,
			OnFileOpen:    req.OnFileOpen,
		},
	)
	if err != nil {
		if errors.Is(err, pipeline.ErrCancelled) {
			return nil, Cancelled
		}
		var ioErr *pipeline.IoError
		if errors.As(err, &ioErr) {
			return nil, ioErr
		}
		return nil, fmt.Errorf("calculate hashes: %w", err)
	}

	info := Assemble(req.Files, pieces, pieceLength, req.Params, req.SingleFile)

	mi := MetaInfo{
		Info:      info,
		Trackers:  trackers,
		WebSeeds:  webSeeds,
		Comment:   req.Params.Comment,
		CreatedBy: s.createdBy,
	}
	if req.Params.SetCreationDate {
		mi.CreationDate = time.Now().Unix()
	}

	data := bencode.Marshal(mi.ToBencode())
	infoHash := InfoHash(info)

	s.log.Info().
		Str("dur", time.Since(startTime).String()).
		Str("infoHash", infoHash).
		Msg("torrent created")

	return &Result{Bytes: data, InfoHash: infoHash}, nil
}
