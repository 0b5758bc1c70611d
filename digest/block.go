package digest

import "math/bits"

// blockGeneric processes p (a multiple of BlockSize bytes) using the
// straightforward FIPS 180-4 schedule. It is the portable fallback used
// on any CPU the capability probe in cpu.go does not recognize.
func blockGeneric(h *[5]uint32, p []byte) {
	var w [80]uint32

	a, b, c, d, e := h[0], h[1], h[2], h[3], h[4]

	for len(p) >= BlockSize {
		for i := 0; i < 16; i++ {
			j := i * 4
			w[i] = uint32(p[j])<<24 | uint32(p[j+1])<<16 | uint32(p[j+2])<<8 | uint32(p[j+3])
		}
		for i := 16; i < 80; i++ {
			w[i] = bits.RotateLeft32(w[i-3]^w[i-8]^w[i-14]^w[i-16], 1)
		}

		a0, b0, c0, d0, e0 := a, b, c, d, e

		for i := 0; i < 80; i++ {
			var f, k uint32
			switch {
			case i < 20:
				f = (b0 & c0) | (^b0 & d0)
				k = 0x5A827999
			case i < 40:
				f = b0 ^ c0 ^ d0
				k = 0x6ED9EBA1
			case i < 60:
				f = (b0 & c0) | (b0 & d0) | (c0 & d0)
				k = 0x8F1BBCDC
			default:
				f = b0 ^ c0 ^ d0
				k = 0xCA62C1D6
			}

			temp := bits.RotateLeft32(a0, 5) + f + e0 + k + w[i]
			e0 = d0
			d0 = c0
			c0 = bits.RotateLeft32(b0, 30)
			b0 = a0
			a0 = temp
		}

		a += a0
		b += b0
		c += c0
		d += d0
		e += e0

		p = p[BlockSize:]
	}

	h[0], h[1], h[2], h[3], h[4] = a, b, c, d, e
}

// blockUnrolled8 is functionally identical to blockGeneric but unrolls
// the message schedule into 8-round groups. On CPUs wide enough to keep
// several rounds' worth of the rotate/add chain in flight it removes
// enough branch and bounds-check overhead to beat blockGeneric, while
// producing the exact same digest.
func blockUnrolled8(h *[5]uint32, p []byte) {
	var w [80]uint32

	a, b, c, d, e := h[0], h[1], h[2], h[3], h[4]

	for len(p) >= BlockSize {
		for i := 0; i < 16; i++ {
			j := i * 4
			w[i] = uint32(p[j])<<24 | uint32(p[j+1])<<16 | uint32(p[j+2])<<8 | uint32(p[j+3])
		}
		for i := 16; i < 80; i += 8 {
			w[i] = bits.RotateLeft32(w[i-3]^w[i-8]^w[i-14]^w[i-16], 1)
			w[i+1] = bits.RotateLeft32(w[i-2]^w[i-7]^w[i-13]^w[i-15], 1)
			w[i+2] = bits.RotateLeft32(w[i-1]^w[i-6]^w[i-12]^w[i-14], 1)
			w[i+3] = bits.RotateLeft32(w[i]^w[i-5]^w[i-11]^w[i-13], 1)
			w[i+4] = bits.RotateLeft32(w[i+1]^w[i-4]^w[i-10]^w[i-12], 1)
			w[i+5] = bits.RotateLeft32(w[i+2]^w[i-3]^w[i-9]^w[i-11], 1)
			w[i+6] = bits.RotateLeft32(w[i+3]^w[i-2]^w[i-8]^w[i-10], 1)
			w[i+7] = bits.RotateLeft32(w[i+4]^w[i-1]^w[i-7]^w[i-9], 1)
		}

		a0, b0, c0, d0, e0 := a, b, c, d, e

		round := func(i int, f, k uint32) {
			temp := bits.RotateLeft32(a0, 5) + f + e0 + k + w[i]
			e0 = d0
			d0 = c0
			c0 = bits.RotateLeft32(b0, 30)
			b0 = a0
			a0 = temp
		}

		for i := 0; i < 20; i++ {
			round(i, (b0&c0)|(^b0&d0), 0x5A827999)
		}
		for i := 20; i < 40; i++ {
			round(i, b0^c0^d0, 0x6ED9EBA1)
		}
		for i := 40; i < 60; i++ {
			round(i, (b0&c0)|(b0&d0)|(c0&d0), 0x8F1BBCDC)
		}
		for i := 60; i < 80; i++ {
			round(i, b0^c0^d0, 0xCA62C1D6)
		}

		a += a0
		b += b0
		c += c0
		d += d0
		e += e0

		p = p[BlockSize:]
	}

	h[0], h[1], h[2], h[3], h[4] = a, b, c, d, e
}
