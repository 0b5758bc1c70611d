// Command torrentcreate builds a .torrent file from a single file or a
// directory tree. It is a thin demonstration of the torrentcreator
// library: path collection, flag parsing, and progress rendering live
// here; every hashing and assembly decision lives in the library.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/f4n4t/go-release/pkg/progress"
	"github.com/f4n4t/go-release/pkg/utils"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	torrentcreator "github.com/yotomir/torrent-creator"
	"github.com/yotomir/torrent-creator/pipeline"
)

func main() {
	if err := run(); err != nil {
		log.Error().Err(err).Msg("torrentcreate failed")
		os.Exit(1)
	}
}

func run() error {
	startTime := time.Now()

	var (
		outPath      = flag.String("out", "", "output .torrent path (default: <name>.torrent)")
		name         = flag.String("name", "", "torrent name (default: base name of the input path)")
		trackers     = flag.String("trackers", "", "whitespace-separated list of tracker announce URLs")
		webSeeds     = flag.String("web-seeds", "", "whitespace-separated list of web seed URLs")
		comment      = flag.String("comment", "", "torrent comment")
		source       = flag.String("source", "", "torrent source tag")
		private      = flag.Bool("private", false, "mark the torrent private")
		setDate      = flag.Bool("date", true, "set the creation date field")
		pieceLength  = flag.Int64("piece-length", 0, "explicit piece length in bytes (0 = auto)")
		hashThreads  = flag.Int("threads", 0, "hashing worker count (0 = pool default)")
		parallelRead = flag.String("parallel-read", "auto", "parallel file reading: auto, on, or off")
		showProgress = flag.Bool("progress", true, "show a progress bar")
		verbose      = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		return fmt.Errorf("usage: torrentcreate [flags] <path>")
	}
	inputPath := flag.Arg(0)

	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	files, err := torrentcreator.FilesFromPath(inputPath)
	if err != nil {
		return fmt.Errorf("collect files: %w", err)
	}

	info, err := os.Stat(inputPath)
	if err != nil {
		return fmt.Errorf("stat input path: %w", err)
	}
	singleFile := !info.IsDir()

	torrentName := *name
	if torrentName == "" {
		absPath, err := filepath.Abs(inputPath)
		if err != nil {
			return fmt.Errorf("resolve input path: %w", err)
		}
		torrentName = filepath.Base(absPath)
	}

	pieceSize := torrentcreator.AutoPieceSize()
	if *pieceLength != 0 {
		pieceSize = torrentcreator.ExplicitPieceSize(*pieceLength)
	}

	readMode, err := resolveReadMode(*parallelRead, inputPath)
	if err != nil {
		return err
	}

	svc := torrentcreator.NewServiceBuilder().
		WithHashThreads(*hashThreads).
		WithParallelFileRead(readMode).
		Build()

	totalSize := files.TotalLength()
	bar := progress.NewProgressBar(*showProgress, totalSize, true)

	var jobID int64 = 1
	activeJobID := jobID

	var bytesRead, bytesHashed atomic.Int64
	updateBar := func() {
		// progress(t) = (read_bytes + hashed_bytes) / (2 * total_size)
		_ = bar.Set64((bytesRead.Load() + bytesHashed.Load()) / 2)
	}

	result, err := svc.Create(torrentcreator.Request{
		Files: files,
		Params: torrentcreator.Params{
			Name:            torrentName,
			PieceSize:       pieceSize,
			Private:         *private,
			SetCreationDate: *setDate,
			Trackers:        *trackers,
			WebSeeds:        *webSeeds,
			Comment:         *comment,
			Source:          *source,
		},
		SingleFile:     singleFile,
		JobID:          jobID,
		GetActiveJobID: func() int64 { return activeJobID },
		OnBytesRead: func(n int64) {
			bytesRead.Add(n)
			updateBar()
		},
		OnBytesHashed: func(n int64) {
			bytesHashed.Add(n)
			updateBar()
		},
		OnFileOpen: func(path string) {
			log.Debug().Str("module", "torrentcreate").Str("path", path).Msg("opening file")
		},
	})
	if err != nil {
		bar.Cancel()
		return fmt.Errorf("create torrent: %w", err)
	}

	_ = bar.Finish()

	target := *outPath
	if target == "" {
		target = torrentName + ".torrent"
	}

	if err := os.WriteFile(target, result.Bytes, 0o644); err != nil {
		return fmt.Errorf("write torrent file: %w", err)
	}

	log.Info().
		Str("output", target).
		Str("size", utils.Bytes(totalSize)).
		Str("infoHash", result.InfoHash).
		Str("elapsed", time.Since(startTime).String()).
		Msg("torrent created")

	return nil
}

// resolveReadMode maps the -parallel-read flag onto a pipeline read
// mode. "auto" probes the input path for an SSD, mirroring the
// heuristic that parallel reads help flash storage and hurt spinning
// disks; the library's own ReadAuto then still falls back to sequential
// for inputs too small to keep the workers busy.
func resolveReadMode(value, path string) (pipeline.ReadMode, error) {
	switch value {
	case "on":
		return pipeline.ReadEnabled, nil
	case "off":
		return pipeline.ReadDisabled, nil
	case "auto":
		if utils.IsSSD(path) {
			log.Debug().Msg("detected ssd, allowing parallel file reading")
			return pipeline.ReadAuto, nil
		}
		log.Debug().Msg("could not detect ssd, using sequential file reading")
		return pipeline.ReadDisabled, nil
	default:
		return 0, fmt.Errorf("invalid -parallel-read value %q (want auto, on, or off)", value)
	}
}
