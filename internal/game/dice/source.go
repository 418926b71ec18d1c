package dice

import (
	"crypto/rand"
	"math/big"
	mrand "math/rand/v2"
)

// cryptoSource implements Source using crypto/rand.
//
// Invariant: safe for concurrent use; values are uniform in [0, n).
type cryptoSource struct{}

// NewCryptoSource returns a Source backed by crypto/rand. Runs built on it are
// not reproducible.
func NewCryptoSource() Source {
	return &cryptoSource{}
}

// Intn returns a cryptographically secure random int in [0, n).
//
// Precondition: n > 0. Panics with "dice: Intn called with n <= 0" if n <= 0.
func (c *cryptoSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	val, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("dice: crypto/rand failure: " + err.Error())
	}
	return int(val.Int64())
}

// seededSource is a deterministic PCG stream. It is not safe for concurrent use.
type seededSource struct {
	rng *mrand.Rand
}

// NewSeededSource returns a deterministic Source. Two sources built from the
// same seed produce the same sequence.
//
// A zero seed is normalised to 1 so the zero value of a request still yields
// a usable, reproducible stream.
func NewSeededSource(seed int64) Source {
	if seed == 0 {
		seed = 1
	}
	return &seededSource{rng: mrand.New(mrand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))}
}

// Intn returns a deterministic int in [0, n).
//
// Precondition: n > 0.
func (s *seededSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	return s.rng.IntN(n)
}

// DeriveSeed mixes a base seed with a stream index (an iteration number) so
// that each stream gets an independent, reproducible seed.
//
// Postcondition: the result depends only on (base, stream).
func DeriveSeed(base, stream int64) int64 {
	z := uint64(base) + uint64(stream+1)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	z ^= z >> 31
	return int64(z >> 1)
}

// Sequence is a Source that replays fixed values. Each call returns the next
// value modulo n and wraps around when exhausted. It exists for tests and
// scripted replays.
//
// Precondition: len(values) > 0.
type Sequence struct {
	values []int
	next   int
}

// NewSequence returns a Sequence that replays values in order. Values are
// zero-based, so 19 on Intn(20) reads as a natural 20.
func NewSequence(values ...int) *Sequence {
	if len(values) == 0 {
		panic("dice: NewSequence requires at least one value")
	}
	return &Sequence{values: values}
}

// Intn returns the next replayed value reduced into [0, n).
func (s *Sequence) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	v := s.values[s.next%len(s.values)]
	s.next++
	return ((v % n) + n) % n
}
