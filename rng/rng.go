// Package rng provides the 64-bit random sources used by the picker.
//
// Production callers use System, which reads from crypto/rand. Simulations
// and tests use XorShift, a seeded xorshift64* generator that replays the
// same sequence for the same seed.
package rng

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"math/bits"
)

// Source produces uniformly distributed 64-bit values. Implementations are
// single-owner and not safe for concurrent use.
type Source interface {
	Next() uint64
}

// zeroSeedFallback replaces a zero seed, which would lock xorshift at zero.
const zeroSeedFallback uint64 = 0x9E3779B97F4A7C15

// XorShift is a deterministic xorshift64* generator.
type XorShift struct {
	state uint64
}

// NewXorShift returns a generator seeded with seed.
func NewXorShift(seed uint64) *XorShift {
	if seed == 0 {
		seed = zeroSeedFallback
	}
	return &XorShift{state: seed}
}

func (x *XorShift) Next() uint64 {
	s := x.state
	s ^= s >> 12
	s ^= s << 25
	s ^= s >> 27
	x.state = s
	return s * 0x2545F4914F6CDD1D
}

// System draws from the operating system entropy pool.
type System struct {
	fallback *XorShift
}

// NewSystem returns a Source backed by crypto/rand.
func NewSystem() *System {
	return &System{}
}

func (s *System) Next() uint64 {
	var buf [8]byte
	if _, err := cryptorand.Read(buf[:]); err != nil {
		// crypto/rand does not fail on supported platforms
		if s.fallback == nil {
			s.fallback = NewXorShift(zeroSeedFallback)
		}
		return s.fallback.Next()
	}
	return binary.BigEndian.Uint64(buf[:])
}

// Float64 returns a value in [0, 1) using the top 53 bits of src.Next().
func Float64(src Source) float64 {
	return float64(src.Next()>>11) / (1 << 53)
}

// Uniform returns a value in [lo, hi).
func Uniform(src Source, lo, hi float64) float64 {
	return lo + (hi-lo)*Float64(src)
}

// Intn returns a uniform value in [0, n). It returns 0 when n <= 0.
//
// It uses Lemire's multiply-shift with rejection, so every value is equally
// likely and most calls consume a single draw.
func Intn(src Source, n int) int {
	if n <= 0 {
		return 0
	}
	bound := uint64(n)
	hi, lo := bits.Mul64(src.Next(), bound)
	if lo < bound {
		threshold := -bound % bound
		for lo < threshold {
			hi, lo = bits.Mul64(src.Next(), bound)
		}
	}
	return int(hi)
}

// Reader adapts a Source to io.Reader, for consumers such as ULID entropy.
type Reader struct {
	src  Source
	buf  [8]byte
	left int
}

// NewReader returns an io.Reader producing bytes from src.
func NewReader(src Source) *Reader {
	return &Reader{src: src}
}

func (r *Reader) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if r.left == 0 {
			binary.BigEndian.PutUint64(r.buf[:], r.src.Next())
			r.left = len(r.buf)
		}
		c := copy(p[n:], r.buf[len(r.buf)-r.left:])
		r.left -= c
		n += c
	}
	return n, nil
}
