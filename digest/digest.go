// Package digest implements the SHA-1 compute kernel used to hash torrent
// pieces. It is deliberately self-contained: the torrent-creator info-hash
// and piece table must be bit-identical across platforms and across the
// two internal block-processing strategies this package selects between,
// so the algorithm is implemented directly from FIPS 180-4 rather than
// delegated to crypto/sha1.
package digest

import "encoding/binary"

// Size is the length in bytes of a SHA-1 digest.
const Size = 20

// BlockSize is the size in bytes of a SHA-1 processing block.
const BlockSize = 64

const (
	h0 = 0x67452301
	h1 = 0xEFCDAB89
	h2 = 0x98BADCFE
	h3 = 0x10325476
	h4 = 0xC3D2E1F0
)

// blockFunc processes zero or more complete 64-byte blocks of p, updating
// the running hash state in h. It is swapped out at init time between a
// portable implementation and one tuned for the detected CPU, per the
// capability probe in cpu.go. Both must agree bit-for-bit.
type blockFunc func(h *[5]uint32, p []byte)

// block is resolved once at package init by the capability probe.
var block blockFunc = blockGeneric

// Hasher is a streaming SHA-1 hasher, modeled after hash.Hash but
// intentionally narrower: its streaming consumers (the hasher worker
// pool and the pipeline's parallel reader) need only Write, Sum and
// Reset, so that is all it exposes.
type Hasher struct {
	h   [5]uint32
	buf [BlockSize]byte
	nx  int   // bytes buffered in buf
	len uint64 // total bytes written
}

// New returns a Hasher ready to accept Write calls.
func New() *Hasher {
	d := &Hasher{}
	d.Reset()
	return d
}

// Reset restores the hasher to its initial state so it can be reused,
// avoiding an allocation per piece when pulled from a sync.Pool.
func (d *Hasher) Reset() {
	d.h[0], d.h[1], d.h[2], d.h[3], d.h[4] = h0, h1, h2, h3, h4
	d.nx = 0
	d.len = 0
}

// Write implements io.Writer, feeding p into the running digest.
func (d *Hasher) Write(p []byte) (n int, err error) {
	n = len(p)
	d.len += uint64(n)

	if d.nx > 0 {
		c := copy(d.buf[d.nx:], p)
		d.nx += c
		p = p[c:]
		if d.nx == BlockSize {
			block(&d.h, d.buf[:])
			d.nx = 0
		}
	}

	if len(p) >= BlockSize {
		nb := len(p) &^ (BlockSize - 1)
		block(&d.h, p[:nb])
		p = p[nb:]
	}

	if len(p) > 0 {
		d.nx = copy(d.buf[:], p)
	}

	return
}

// Sum appends the current digest to b and returns the resulting slice,
// without mutating the hasher's running state for the already-written
// bytes (the pending tail is padded into a scratch copy).
func (d *Hasher) Sum(b []byte) []byte {
	dup := *d
	hash := dup.checkSum()
	return append(b, hash[:]...)
}

func (d *Hasher) checkSum() [Size]byte {
	length := d.len

	// Append 0x80, zero-pad to 56 mod 64, then the 64-bit big-endian
	// bit length.
	var tmp [BlockSize + 8]byte
	tmp[0] = 0x80
	var pad int
	if d.nx < 56 {
		pad = 56 - d.nx
	} else {
		pad = 64 + 56 - d.nx
	}
	binary.BigEndian.PutUint64(tmp[pad:pad+8], length*8)

	d.Write(tmp[:pad+8])
	if d.nx != 0 {
		panic("digest: internal error: non-empty buffer after padding")
	}

	var out [Size]byte
	binary.BigEndian.PutUint32(out[0:], d.h[0])
	binary.BigEndian.PutUint32(out[4:], d.h[1])
	binary.BigEndian.PutUint32(out[8:], d.h[2])
	binary.BigEndian.PutUint32(out[12:], d.h[3])
	binary.BigEndian.PutUint32(out[16:], d.h[4])
	return out
}

// Sum computes the SHA-1 digest of p in one call.
func Sum(p []byte) [Size]byte {
	d := New()
	d.Write(p)
	return d.checkSum()
}
