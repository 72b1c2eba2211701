// Package transport implements the per-timestep particle-tracking kernel:
// injection, the collision/facet/census event state machine, and the
// parallel driver that dispatches particles across workers.
package transport

import (
	"errors"

	"github.com/pthm-cable/neutron/mesh"
	"github.com/pthm-cable/neutron/xs"
)

var (
	// ErrArithmetic reports a non-finite intermediate (NaN speed, zero
	// facet denominator) detected by strict checks.
	ErrArithmetic = errors.New("transport: arithmetic")

	// ErrInvariant reports a negative time-to-census or mfp residual
	// detected by strict checks.
	ErrInvariant = errors.New("transport: invariant violation")
)

// Material holds the single-nuclide material parameters governing collision
// physics.
type Material struct {
	// MassNo is the mass number A of the scattering nuclide.
	MassNo float64

	// MolarMass in g/mol, used for number density.
	MolarMass float64

	// MinEnergy is the eV threshold below which particles are dropped.
	MinEnergy float64
}

// Problem bundles the immutable inputs shared by all workers: the mesh
// view, the two cross-section tables, and the material.
type Problem struct {
	Mesh     *mesh.Mesh
	Scatter  *xs.Table
	Absorb   *xs.Table
	Material Material
}

// StepContext carries the per-timestep parameters. Step uses MasterKey as
// given; the caller (sim.Simulation) advances it between steps so each
// step's random draws are disjoint from prior steps.
type StepContext struct {
	// MasterKey distinguishes this step's RNG streams.
	MasterKey uint64

	// Dt is the timestep length in seconds.
	Dt float64

	// NTotalParticles scales tally contributions; zero means the store
	// length.
	NTotalParticles int

	// Initial marks the first step, triggering the mean-free-path seed
	// draw for particles with zero residual.
	Initial bool

	// StrictChecks enables per-transition arithmetic and invariant
	// assertions. Violations abort the step with a diagnostic naming the
	// particle key and RNG counter.
	StrictChecks bool
}

// Counters aggregates event counts across one step.
type Counters struct {
	Facets     uint64
	Collisions uint64
	Processed  uint64
}

// Merge adds another worker's counts into c.
func (c *Counters) Merge(o Counters) {
	c.Facets += o.Facets
	c.Collisions += o.Collisions
	c.Processed += o.Processed
}
