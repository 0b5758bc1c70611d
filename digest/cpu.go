package digest

import "golang.org/x/sys/cpu"

// init runs the capability probe exactly once at process start;
// callers never observe which block function is in use.
func init() {
	if hasWideVectorUnits() {
		block = blockUnrolled8
	}
}

// hasWideVectorUnits reports whether the current CPU exposes SIMD
// register widths that make the 8-round-unrolled block function worth
// its larger code size (AVX2 on amd64, the SHA-1 instruction extension
// on arm64). The block function itself remains scalar Go; the unrolling
// is only a net win on cores with enough out-of-order resources to
// hide its longer dependency chains.
func hasWideVectorUnits() bool {
	switch {
	case cpu.X86.HasAVX2:
		return true
	case cpu.ARM64.HasSHA1:
		return true
	default:
		return false
	}
}
