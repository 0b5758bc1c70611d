// Package torrentcreator implements the core engine of a torrent
// metainfo (.torrent) file builder: validating user-supplied parameters,
// streaming an ordered file list through the piece-hashing pipeline, and
// assembling the resulting Bencoded metainfo document and info-hash.
package torrentcreator

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yotomir/torrent-creator/pipeline"
)

// FileEntry is one input file: its path segments preserved verbatim,
// its size, and a lazily-opened byte source, so large trees can be
// handed over without holding every file open at once.
type FileEntry struct {
	Path []string
	Size int64
	Open func() (io.ReadCloser, error)
}

// BuildFullPath joins root with the entry's path segments, mirroring how
// a caller would locate the file on disk if it has one.
func (fe FileEntry) BuildFullPath(root ...string) string {
	return filepath.Join(append(root, fe.Path...)...)
}

// Files is a helper type to use methods on an ordered file list.
type Files []FileEntry

// TotalLength sums every entry's size.
func (files Files) TotalLength() int64 {
	var total int64
	for _, f := range files {
		total += f.Size
	}
	return total
}

// PieceCount returns the number of pieces the files split into,
// including a trailing partial piece.
func (files Files) PieceCount(pieceLength int64) int {
	return int((files.TotalLength() + pieceLength - 1) / pieceLength)
}

// toPipelineEntries converts Files into the pipeline's own FileEntry
// type. Kept as a narrow seam rather than sharing one type across
// packages, since torrentcreator's FileEntry additionally carries
// filesystem convenience helpers the pipeline has no use for.
func (files Files) toPipelineEntries() []pipeline.FileEntry {
	out := make([]pipeline.FileEntry, len(files))
	for i, f := range files {
		out[i] = pipeline.FileEntry{Path: f.Path, Size: f.Size, Open: f.Open}
	}
	return out
}

// FilesFromPath walks root and returns every entry that is not a
// directory, sorted by path. If root itself is not a directory, Files
// contains that single entry.
func FilesFromPath(root string) (Files, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("get absolute path: %w", err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", absRoot, err)
	}

	if !info.IsDir() {
		return Files{fileEntryFromDisk(absRoot, info.Name(), info.Size())}, nil
	}

	var files Files

	walkErr := filepath.WalkDir(absRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil {
			return fmt.Errorf("get relative path: %w", err)
		}

		fi, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}

		files = append(files, fileEntryFromDisk(path, relPath, fi.Size()))
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	sort.Slice(files, func(i, j int) bool {
		return strings.Join(files[i].Path, "/") < strings.Join(files[j].Path, "/")
	})

	return files, nil
}

func fileEntryFromDisk(fullPath, relPath string, size int64) FileEntry {
	return FileEntry{
		Path: strings.Split(relPath, string(filepath.Separator)),
		Size: size,
		Open: func() (io.ReadCloser, error) { return os.Open(fullPath) },
	}
}
