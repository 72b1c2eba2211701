// Package particle holds the particle population in structure-of-arrays
// layout. Fields are exported: the transport kernel mutates them by index on
// the hot path, and each index is owned by exactly one worker within a step.
package particle

// Store is a structure-of-arrays particle population.
type Store struct {
	// Key seeds the particle's random-number stream.
	Key []uint64

	// Position in world coordinates (cm).
	X, Y []float64

	// Direction cosines, unit length.
	OmegaX, OmegaY []float64

	// Kinetic energy in eV.
	Energy []float64

	// Statistical weight in (0, 1].
	Weight []float64

	// Global mesh cell indices.
	CellX, CellY []int32

	// Seconds remaining to census in the current step.
	DtToCensus []float64

	// Mean free paths remaining until the next collision.
	MfpToCollision []float64

	// Alive is cleared when a particle falls below the energy threshold.
	Alive []bool
}

// NewStore allocates a population of n particles, all dead until injected.
func NewStore(n int) *Store {
	return &Store{
		Key:            make([]uint64, n),
		X:              make([]float64, n),
		Y:              make([]float64, n),
		OmegaX:         make([]float64, n),
		OmegaY:         make([]float64, n),
		Energy:         make([]float64, n),
		Weight:         make([]float64, n),
		CellX:          make([]int32, n),
		CellY:          make([]int32, n),
		DtToCensus:     make([]float64, n),
		MfpToCollision: make([]float64, n),
		Alive:          make([]bool, n),
	}
}

// Len returns the population size.
func (s *Store) Len() int { return len(s.X) }

// AliveCount returns the number of particles still being tracked.
func (s *Store) AliveCount() int {
	n := 0
	for _, a := range s.Alive {
		if a {
			n++
		}
	}
	return n
}
