// Package random provides the injectable randomness used for synthetic paths
// and fallback exposure values, so tests can pin it with a seed.
package random

import (
	"math/rand/v2"
	"sync"
)

// Source yields uniformly distributed values in [0, 1).
type Source interface {
	Float64() float64
}

// Default returns a Source backed by the process-wide generator.
func Default() Source {
	return globalSource{}
}

type globalSource struct{}

func (globalSource) Float64() float64 {
	return rand.Float64() //nolint:gosec // not security sensitive
}

// Locked is a seeded Source safe for concurrent use.
type Locked struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSeeded returns a deterministic Source for the given seed.
func NewSeeded(seed uint64) *Locked {
	return &Locked{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))} //nolint:gosec // not security sensitive
}

// Float64 returns the next value in [0, 1).
func (l *Locked) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rng.Float64()
}

// Uniform returns a value in [minVal, maxVal) drawn from src.
func Uniform(src Source, minVal, maxVal float64) float64 {
	return minVal + src.Float64()*(maxVal-minVal)
}

// Sequence replays a fixed list of values, cycling when exhausted.
// Useful when a test needs exact fallback values.
type Sequence struct {
	mu     sync.Mutex
	values []float64
	next   int
}

// NewSequence creates a Sequence over values, which must be in [0, 1).
func NewSequence(values ...float64) *Sequence {
	return &Sequence{values: values}
}

// Float64 returns the next value in the sequence.
func (s *Sequence) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.values) == 0 {
		return 0
	}
	v := s.values[s.next%len(s.values)]
	s.next++
	return v
}
