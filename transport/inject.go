package transport

import (
	"fmt"
	"math"

	"github.com/pthm-cable/neutron/particle"
	"github.com/pthm-cable/neutron/rng"
)

// Source is the rectangular injection region and the fixed initial energy
// of injected particles.
type Source struct {
	X0, Y0 float64
	X1, Y1 float64

	// Energy in eV.
	Energy float64
}

// Inject seeds every slot of the store with a fresh particle: position
// uniform in the source rectangle, isotropic 2D direction, unit weight and
// zero mean-free-path residual so the first step samples a fresh flight.
//
// The slot index is the particle key; draws come from the injection stream
// rng(key, 0, 0) with word 0 placing x, word 1 placing y and word 2 setting
// the direction angle.
func Inject(p *Problem, store *particle.Store, src Source, dt float64) error {
	if src.X1 < src.X0 || src.Y1 < src.Y0 {
		return fmt.Errorf("transport: inverted source rectangle (%g,%g)-(%g,%g)", src.X0, src.Y0, src.X1, src.Y1)
	}

	for i := 0; i < store.Len(); i++ {
		pid := uint64(i)
		u := rng.Uniform4(pid, 0, 0)

		x := src.X0 + u[0]*(src.X1-src.X0)
		y := src.Y0 + u[1]*(src.Y1-src.Y0)
		cellx, celly, err := p.Mesh.FindCell(x, y)
		if err != nil {
			return fmt.Errorf("transport: injecting particle %d: %w", i, err)
		}

		theta := 2.0 * math.Pi * u[2]

		store.Key[i] = pid
		store.X[i] = x
		store.Y[i] = y
		store.OmegaX[i] = math.Cos(theta)
		store.OmegaY[i] = math.Sin(theta)
		store.Energy[i] = src.Energy
		store.Weight[i] = 1.0
		store.CellX[i] = int32(cellx)
		store.CellY[i] = int32(celly)
		store.DtToCensus[i] = dt
		store.MfpToCollision[i] = 0.0
		store.Alive[i] = true
	}
	return nil
}
