// Package dice provides the injectable randomness source for mining and combat.
package dice

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Dice returns an integer uniformly drawn from the inclusive range [lo, hi].
// Implementations swap lo and hi when given in the wrong order.
type Dice interface {
	Roll(lo, hi int) int
}

// Seeded is a deterministic Dice backed by a PCG generator. It is safe for
// concurrent use.
type Seeded struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSeeded creates a Dice whose rolls are fully determined by seed.
func NewSeeded(seed uint64) *Seeded {
	return &Seeded{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewRandom creates a Seeded dice from the current time.
func NewRandom() *Seeded {
	return NewSeeded(uint64(time.Now().UnixNano()))
}

// Roll implements Dice.
func (s *Seeded) Roll(lo, hi int) int {
	if lo > hi {
		lo, hi = hi, lo
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo + s.rng.IntN(hi-lo+1)
}

// Scripted replays a fixed sequence of values, clamped into each requested
// range. Once the script is exhausted it returns lo. Used to drive encounters
// and mining through exact scenarios.
type Scripted struct {
	mu     sync.Mutex
	values []int
	next   int
}

// NewScripted creates a Dice that yields values in order.
func NewScripted(values ...int) *Scripted {
	return &Scripted{values: values}
}

// Roll implements Dice.
func (s *Scripted) Roll(lo, hi int) int {
	if lo > hi {
		lo, hi = hi, lo
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next >= len(s.values) {
		return lo
	}
	v := s.values[s.next]
	s.next++
	return max(lo, min(hi, v))
}

// Remaining reports how many scripted values have not been consumed.
func (s *Scripted) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values) - s.next
}
