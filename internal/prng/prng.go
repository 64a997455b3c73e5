// Package prng provides a reproducible pseudo-random stream seeded from a
// string. Identical seeds always yield identical sequences, which keeps
// prediction options and mock data stable across reloads and devices.
package prng

import "unicode/utf16"

const (
	foldOffset = 2166136261
	foldPrime  = 16777619
	twoTo32    = 4294967296.0
)

// Stream is a xorshift32 generator. It is not safe for concurrent use.
type Stream struct {
	x uint32
}

// New seeds a stream by folding the UTF-16 code units of seed through a
// multiplicative hash.
func New(seed string) *Stream {
	h := uint32(foldOffset)
	for _, u := range utf16.Encode([]rune(seed)) {
		h ^= uint32(u)
		h *= foldPrime
	}
	return &Stream{x: h}
}

// Float64 returns the next draw in [0, 1).
func (s *Stream) Float64() float64 {
	s.x ^= s.x << 13
	s.x ^= s.x >> 17
	s.x ^= s.x << 5
	return float64(s.x) / twoTo32
}

// Intn returns the next draw scaled to [0, n). n must be positive.
func (s *Stream) Intn(n int) int {
	i := int(s.Float64() * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}

// CreateStream returns the stream as a bare draw function.
func CreateStream(seed string) func() float64 {
	return New(seed).Float64
}
