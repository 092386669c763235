// Package lcrand contains utilities for random numbers, used primarily for
// jittering recheck intervals.
package lcrand

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"sync"
	"time"
)

// Reader is a ChaCha8-based cryptographically strong random number reader.
// It's safe for concurrent use.
type Reader struct {
	// mu protects reader.
	mu *sync.Mutex

	reader *rand.ChaCha8
}

// NewReader returns a new properly initialized *Reader seeded with the given
// seed.
func NewReader(seed [32]byte) (r *Reader) {
	return &Reader{
		mu:     &sync.Mutex{},
		reader: rand.NewChaCha8(seed),
	}
}

// Read generates len(p) random bytes and writes them into p.  It always returns
// len(p) and a nil error.  It's safe for concurrent use.
func (r *Reader) Read(p []byte) (n int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.reader.Read(p)
}

// LockedSource is an implementation of [rand.Source] that is concurrency-safe.
type LockedSource struct {
	// mu protects src.
	mu *sync.Mutex

	src rand.Source
}

// NewLockedSource returns new properly initialized *LockedSource.
func NewLockedSource(src rand.Source) (s *LockedSource) {
	return &LockedSource{
		mu:  &sync.Mutex{},
		src: src,
	}
}

// type check
var _ rand.Source = (*LockedSource)(nil)

// Uint64 implements the [rand.Source] interface for *LockedSource.
func (s *LockedSource) Uint64() (r uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.src.Uint64()
}

// MustNewSeed returns new 32 byte seed for pseudorandom generators.  Panics on
// errors.
func MustNewSeed() (seed [32]byte) {
	_, err := cryptorand.Read(seed[:])
	if err != nil {
		// Don't wrap the error, because it's informative enough as is.
		panic(err)
	}

	return seed
}

// Rand is a concurrency-safe source of uniform floats, used to
// compute jittered recheck deadlines.
type Rand struct {
	rnd *rand.Rand
}

// NewRand returns a new *Rand seeded with a cryptographically random seed.
func NewRand() (r *Rand) {
	seed := MustNewSeed()

	src := rand.NewPCG(
		binary.LittleEndian.Uint64(seed[0:8]),
		binary.LittleEndian.Uint64(seed[8:16]),
	)

	return &Rand{
		rnd: rand.New(NewLockedSource(src)),
	}
}

// Float64 returns a pseudorandom number in [0.0,1.0).  It's safe for
// concurrent use.
func (r *Rand) Float64() (f float64) {
	return r.rnd.Float64()
}

// UniformDuration returns a pseudorandom duration uniformly distributed in
// [min,max).  If max <= min, it returns min unchanged.
func (r *Rand) UniformDuration(min, max time.Duration) (d time.Duration) {
	if max <= min {
		return min
	}

	span := max - min

	return min + time.Duration(r.Float64()*float64(span))
}
