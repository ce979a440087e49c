package bot

import (
	"math/rand"
	"time"
)

// Rng is the random source used for candidate reordering. It is an
// interface so tests can force specific branches deterministically.
type Rng interface {
	// Float64 returns a uniform value in [0,1).
	Float64() float64
	// Intn returns a uniform value in [0,n).
	Intn(n int) int
}

type mathRng struct {
	r *rand.Rand
}

func (m *mathRng) Float64() float64 { return m.r.Float64() }
func (m *mathRng) Intn(n int) int   { return m.r.Intn(n) }

// NewRng returns a time-seeded random source for production use.
func NewRng() Rng {
	return &mathRng{r: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NewSeededRng returns a deterministic source for reproducible runs.
func NewSeededRng(seed int64) Rng {
	return &mathRng{r: rand.New(rand.NewSource(seed))}
}
