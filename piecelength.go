package torrentcreator

import "math"

// MinPieceLength and MaxPieceLength bound the piece length to a power
// of two in [2^14, 2^24] bytes.
const (
	MinPieceLength int64 = 1 << 14
	MaxPieceLength int64 = 1 << 24
)

// AutoPieceLength derives the piece length for a given total size:
// target roughly 1200 pieces by rounding log2(totalSize / 1200) and
// clamping the exponent to [14, 24]. Inputs of 19200 bytes or less all
// collapse to the minimum 16 KiB piece length.
func AutoPieceLength(totalSize int64) int64 {
	exponent := 14.0
	if totalSize > 0 {
		exponent = math.Round(math.Log2(float64(totalSize) / 1200))
	}

	if exponent < 14 {
		exponent = 14
	}
	if exponent > 24 {
		exponent = 24
	}

	return int64(1) << int64(exponent)
}

// PieceSize is the caller's piece-size choice: either the auto rule or
// an explicit power-of-two override.
type PieceSize struct {
	explicit int64 // 0 means "use the auto rule"
}

// AutoPieceSize requests the auto rule.
func AutoPieceSize() PieceSize { return PieceSize{} }

// ExplicitPieceSize pins the piece length to n, which must be a power of
// two in [MinPieceLength, MaxPieceLength]; Resolve does not validate
// this, callers are expected to only construct valid values.
func ExplicitPieceSize(n int64) PieceSize { return PieceSize{explicit: n} }

// Resolve returns the concrete piece length for the given total size.
func (ps PieceSize) Resolve(totalSize int64) int64 {
	if ps.explicit != 0 {
		return ps.explicit
	}
	return AutoPieceLength(totalSize)
}
