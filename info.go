package torrentcreator

import (
	"github.com/yotomir/torrent-creator/bencode"
)

// CreatedBy is the default value of the metainfo "created by" field.
const CreatedBy = "kimbatt.github.io/torrent-creator"

// Params carries everything the caller supplies besides the file list
// itself: the torrent name, piece-size choice, and optional metadata.
type Params struct {
	Name            string
	PieceSize       PieceSize
	Private         bool
	SetCreationDate bool
	Trackers        string
	WebSeeds        string
	Comment         string
	Source          string
}

// Info is the torrent's info dictionary in Go-native form. ToBencode
// is a pure function of its fields, so recomputing the info-hash after
// changing Name, Private, or Source never touches Pieces.
type Info struct {
	Name        string
	Private     bool
	Source      string
	PieceLength int64
	Pieces      []byte
	// SingleFile is true when the root input was itself a file rather
	// than a directory; it selects between the length and files shape
	// of the info dict.
	SingleFile bool
	Length     int64 // used when SingleFile
	Files      Files // used when !SingleFile
}

// ToBencode builds the Bencode value for the info dictionary. Optional
// keys are omitted entirely when unset, never emitted empty.
func (info Info) ToBencode() bencode.Value {
	d := bencode.Dict().
		Set("name", bencode.String(info.Name)).
		Set("piece length", bencode.Int(info.PieceLength)).
		Set("pieces", bencode.Bytes(info.Pieces))

	if info.SingleFile {
		d = d.Set("length", bencode.Int(info.Length))
	} else {
		items := make([]bencode.Value, len(info.Files))
		for i, f := range info.Files {
			pathItems := make([]bencode.Value, len(f.Path))
			for j, seg := range f.Path {
				pathItems[j] = bencode.String(seg)
			}
			items[i] = bencode.Dict().
				Set("length", bencode.Int(f.Size)).
				Set("path", bencode.List(pathItems...))
		}
		d = d.Set("files", bencode.List(items...))
	}

	if info.Private {
		d = d.Set("private", bencode.Int(1))
	}
	if info.Source != "" {
		d = d.Set("source", bencode.String(info.Source))
	}

	return d
}

// MetaInfo is the outer dictionary wrapping Info.
type MetaInfo struct {
	Info         Info
	Trackers     []string
	WebSeeds     []string
	Comment      string
	CreatedBy    string
	CreationDate int64 // unix seconds; zero means omit
}

// ToBencode builds the Bencode value for the outer dictionary. The
// first tracker doubles as announce; announce-list holds every tracker
// as a single-element tier, preserving order.
func (mi MetaInfo) ToBencode() bencode.Value {
	d := bencode.Dict().Set("info", mi.Info.ToBencode())

	if len(mi.Trackers) > 0 {
		d = d.Set("announce", bencode.String(mi.Trackers[0]))

		announceList := make([]bencode.Value, len(mi.Trackers))
		for i, t := range mi.Trackers {
			announceList[i] = bencode.List(bencode.String(t))
		}
		d = d.Set("announce-list", bencode.List(announceList...))
	}

	if len(mi.WebSeeds) > 0 {
		seeds := make([]bencode.Value, len(mi.WebSeeds))
		for i, s := range mi.WebSeeds {
			seeds[i] = bencode.String(s)
		}
		d = d.Set("url-list", bencode.List(seeds...))
	}

	if mi.Comment != "" {
		d = d.Set("comment", bencode.String(mi.Comment))
	}
	if mi.CreationDate != 0 {
		d = d.Set("creation date", bencode.Int(mi.CreationDate))
	}
	if mi.CreatedBy != "" {
		d = d.Set("created by", bencode.String(mi.CreatedBy))
	}

	return d
}

// Assemble builds the Info value from validated parameters, the file
// listing, and the computed piece table. singleFile must be true iff
// the input root was a bare file rather than a directory.
func Assemble(files Files, pieces []byte, pieceLength int64, params Params, singleFile bool) Info {
	info := Info{
		Name:        params.Name,
		Private:     params.Private,
		Source:      params.Source,
		PieceLength: pieceLength,
		Pieces:      pieces,
		SingleFile:  singleFile,
	}

	if singleFile {
		info.Length = files.TotalLength()
	} else {
		info.Files = files
	}

	return info
}
