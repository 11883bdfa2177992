// Package random provides the standard-normal draw sources consumed by the
// Monte Carlo simulator.
package random

import (
	"sync"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mathext/prng"

	"github.com/bcdannyboy/cmdty/errs"
)

// NormalGenerator fills buffers with independent normal draws.
type NormalGenerator interface {
	// Generate fills buf with draws from N(mean, stdDev²).
	Generate(buf []float64, mean, stdDev float64) error

	// Reset restores the stream to its initial state.
	Reset()

	// MatchesDimensions reports whether the generator can produce buffers of
	// n draws. Fixed-dimension sequences (quasi-random) only match their own
	// dimension.
	MatchesDimensions(n int) bool
}

// Reseeder is the optional capability of generators that can be reseeded.
type Reseeder interface {
	ResetSeed(seed uint64)
	ResetRandomSeed()
}

// ResetSeed reseeds g if it supports the Reseeder capability.
func ResetSeed(g NormalGenerator, seed uint64) error {
	r, ok := g.(Reseeder)
	if !ok {
		return errs.Capability("ResetSeed", g)
	}
	r.ResetSeed(seed)
	return nil
}

// ResetRandomSeed reseeds g from entropy if it supports the Reseeder
// capability.
func ResetRandomSeed(g NormalGenerator) error {
	r, ok := g.(Reseeder)
	if !ok {
		return errs.Capability("ResetRandomSeed", g)
	}
	r.ResetRandomSeed()
	return nil
}

// MersenneOption configures a MersenneNormal.
type MersenneOption func(*MersenneNormal)

// WithAntithetic makes every second call return the mirror image, about the
// mean, of the draws returned by the call before it.
func WithAntithetic() MersenneOption {
	return func(m *MersenneNormal) {
		m.antithetic = true
	}
}

// WithThreadSafe guards every operation with a mutex so one generator can be
// shared between goroutines.
func WithThreadSafe() MersenneOption {
	return func(m *MersenneNormal) {
		m.threadSafe = true
	}
}

// MersenneNormal draws normals with a 64-bit Mersenne Twister (MT19937-64)
// engine, seeded with the full 64-bit seed.
type MersenneNormal struct {
	mu         sync.Mutex
	threadSafe bool

	src  *prng.MT19937_64
	rng  *rand.Rand
	seed uint64

	antithetic bool
	pending    bool      // next call returns the mirror of last
	last       []float64 // standard draws of the previous fresh call
}

// NewMersenneNormal creates a generator seeded with seed.
func NewMersenneNormal(seed uint64, opts ...MersenneOption) *MersenneNormal {
	src := prng.NewMT19937_64()
	src.Seed(seed)
	m := &MersenneNormal{
		src:  src,
		rng:  rand.New(src),
		seed: seed,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewRandomMersenneNormal creates a generator seeded from the clock.
func NewRandomMersenneNormal(opts ...MersenneOption) *MersenneNormal {
	return NewMersenneNormal(entropySeed(), opts...)
}

func entropySeed() uint64 {
	return uint64(time.Now().UnixNano())
}

func (m *MersenneNormal) lock() func() {
	if !m.threadSafe {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

// Seed returns the seed the stream restarts from on Reset.
func (m *MersenneNormal) Seed() uint64 {
	defer m.lock()()
	return m.seed
}

func (m *MersenneNormal) Generate(buf []float64, mean, stdDev float64) error {
	defer m.lock()()

	if m.antithetic && m.pending {
		if len(buf) != len(m.last) {
			return errs.Config("buffer", "antithetic draw needs %d elements, got %d", len(m.last), len(buf))
		}
		for i, z := range m.last {
			buf[i] = mean + stdDev*(-z)
		}
		m.pending = false
		return nil
	}

	if m.antithetic {
		if cap(m.last) < len(buf) {
			m.last = make([]float64, len(buf))
		}
		m.last = m.last[:len(buf)]
		for i := range buf {
			z := m.rng.NormFloat64()
			m.last[i] = z
			buf[i] = mean + stdDev*z
		}
		m.pending = true
		return nil
	}

	for i := range buf {
		buf[i] = mean + stdDev*m.rng.NormFloat64()
	}
	return nil
}

func (m *MersenneNormal) Reset() {
	defer m.lock()()
	m.reseed(m.seed)
}

func (m *MersenneNormal) ResetSeed(seed uint64) {
	defer m.lock()()
	m.seed = seed
	m.reseed(seed)
}

func (m *MersenneNormal) ResetRandomSeed() {
	m.ResetSeed(entropySeed())
}

func (m *MersenneNormal) reseed(seed uint64) {
	m.src.Seed(seed)
	m.pending = false
	m.last = m.last[:0]
}

func (m *MersenneNormal) MatchesDimensions(int) bool { return true }
