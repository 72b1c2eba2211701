package transport

import (
	"fmt"
	"math"

	"github.com/pthm-cable/neutron/particle"
	"github.com/pthm-cable/neutron/physics"
	"github.com/pthm-cable/neutron/rng"
	"github.com/pthm-cable/neutron/tally"
)

// nextEvent is the outcome of one distance comparison.
type nextEvent int

const (
	eventCollision nextEvent = iota
	eventFacet
	eventCensus
)

// engine tracks the particles of one worker's range. It holds only
// read-only shared state plus the store and tally handles; per-particle
// scratch lives on the stack of track.
type engine struct {
	problem *Problem
	store   *particle.Store
	tally   *tally.Tally
	ctx     StepContext

	invNTotal float64
}

func (en *engine) trackRange(i0, i1 int, c *Counters) error {
	for i := i0; i < i1; i++ {
		if err := en.track(i, c); err != nil {
			return err
		}
	}
	return nil
}

// track advances one particle to census or death, accumulating event counts
// and energy deposition. One 4-word RNG draw is consumed per collision and
// one to seed the initial mean free path; the per-step counter makes every
// draw a pure function of (key, master key, counter).
func (en *engine) track(i int, c *Counters) error {
	s := en.store
	if !s.Alive[i] {
		return nil
	}
	c.Processed++

	m := en.problem.Mesh
	mat := en.problem.Material
	key := s.Key[i]
	var ctr uint64

	cellx := int(s.CellX[i])
	celly := int(s.CellY[i])
	e := s.Energy[i]

	numDen := physics.NumberDensity(m.Density(cellx, celly), mat.MolarMass)
	sigS, _, err := en.problem.Scatter.Lookup(e)
	if err != nil {
		return fmt.Errorf("particle key=%d: %w", key, err)
	}
	sigA, _, err := en.problem.Absorb.Lookup(e)
	if err != nil {
		return fmt.Errorf("particle key=%d: %w", key, err)
	}
	macroS := numDen * sigS * physics.Barns
	macroA := numDen * sigA * physics.Barns

	// Each step grants a fresh time allotment; everything else carries
	// over from the previous census.
	s.DtToCensus[i] = en.ctx.Dt

	if en.ctx.Initial && s.MfpToCollision[i] == 0 {
		u := rng.Uniform4(key, en.ctx.MasterKey, ctr)
		ctr++
		s.MfpToCollision[i] = -math.Log(u[0]) / macroS
	}

	speed := physics.Speed(e)
	edLocal := 0.0

	for {
		macroTotal := macroS + macroA

		cellMfp := math.Inf(1)
		pAbsorb := 0.0
		distCollision := math.Inf(1)
		if macroTotal > 0 {
			cellMfp = 1.0 / macroTotal
			pAbsorb = macroA * cellMfp
			distCollision = s.MfpToCollision[i] * cellMfp
		}

		// Distance to the cell edge the particle is heading toward on
		// each axis. The open-bound correction keeps a backward target
		// strictly inside the lower cell.
		var targetX, targetY float64
		if s.OmegaX[i] >= 0 {
			targetX = m.EdgeX(cellx + 1)
		} else {
			targetX = m.EdgeX(cellx) - physics.OpenBoundCorrection
		}
		if s.OmegaY[i] >= 0 {
			targetY = m.EdgeY(celly + 1)
		} else {
			targetY = m.EdgeY(celly) - physics.OpenBoundCorrection
		}
		dtX := (targetX - s.X[i]) / (s.OmegaX[i] * speed)
		dtY := (targetY - s.Y[i]) / (s.OmegaY[i] * speed)

		xFacet := dtX < dtY
		minDt := dtY
		if xFacet {
			minDt = dtX
		}
		distFacet := speed * minDt

		distCensus := speed * s.DtToCensus[i]

		if en.ctx.StrictChecks {
			if math.IsNaN(speed) || speed <= 0 || math.IsNaN(distFacet) || math.IsNaN(distCensus) {
				return fmt.Errorf("%w: particle key=%d counter=%d speed=%g facet=%g census=%g",
					ErrArithmetic, key, ctr, speed, distFacet, distCensus)
			}
		}

		var event nextEvent
		switch {
		case distCollision < distFacet && distCollision < distCensus:
			event = eventCollision
		case distFacet < distCensus:
			event = eventFacet
		default:
			event = eventCensus
		}

		switch event {
		case eventCollision:
			c.Collisions++

			s.X[i] += distCollision * s.OmegaX[i]
			s.Y[i] += distCollision * s.OmegaY[i]
			s.DtToCensus[i] -= distCollision / speed
			edLocal += segmentDeposit(s.Weight[i], distCollision, e, sigS+sigA, pAbsorb, numDen, mat.MassNo)

			u := rng.Uniform4(key, en.ctx.MasterKey, ctr)
			ctr++

			if u[0] < pAbsorb {
				// Implicit capture: reduce weight, keep energy.
				s.Weight[i] *= 1.0 - pAbsorb
			} else {
				eNew, cosT := elasticExit(e, mat.MassNo, 1.0-2.0*u[1])
				s2 := 1.0 - cosT*cosT
				if s2 < 0 {
					s2 = 0
				}
				sinT := math.Sqrt(s2)
				ox, oy := s.OmegaX[i], s.OmegaY[i]
				s.OmegaX[i] = ox*cosT - oy*sinT
				s.OmegaY[i] = ox*sinT + oy*cosT
				e = eNew
				s.Energy[i] = e
				speed = physics.Speed(e)
			}

			if e < mat.MinEnergy {
				en.flush(&edLocal, cellx, celly)
				s.Alive[i] = false
				return nil
			}

			sigS, _, err = en.problem.Scatter.Lookup(e)
			if err != nil {
				return fmt.Errorf("particle key=%d counter=%d: %w", key, ctr, err)
			}
			sigA, _, err = en.problem.Absorb.Lookup(e)
			if err != nil {
				return fmt.Errorf("particle key=%d counter=%d: %w", key, ctr, err)
			}
			macroS = numDen * sigS * physics.Barns
			macroA = numDen * sigA * physics.Barns

			s.MfpToCollision[i] = -math.Log(u[2]) / macroS

		case eventFacet:
			c.Facets++

			s.X[i] += distFacet * s.OmegaX[i]
			s.Y[i] += distFacet * s.OmegaY[i]
			s.MfpToCollision[i] -= distFacet * macroTotal
			s.DtToCensus[i] -= distFacet / speed
			edLocal += segmentDeposit(s.Weight[i], distFacet, e, sigS+sigA, pAbsorb, numDen, mat.MassNo)
			en.flush(&edLocal, cellx, celly)

			if xFacet {
				if s.OmegaX[i] >= 0 {
					if cellx == m.GlobalNX()-1 {
						s.OmegaX[i] = -s.OmegaX[i]
					} else {
						cellx++
					}
				} else {
					if cellx == 0 {
						s.OmegaX[i] = -s.OmegaX[i]
					} else {
						cellx--
					}
				}
			} else {
				if s.OmegaY[i] >= 0 {
					if celly == m.GlobalNY()-1 {
						s.OmegaY[i] = -s.OmegaY[i]
					} else {
						celly++
					}
				} else {
					if celly == 0 {
						s.OmegaY[i] = -s.OmegaY[i]
					} else {
						celly--
					}
				}
			}
			s.CellX[i] = int32(cellx)
			s.CellY[i] = int32(celly)

			numDen = physics.NumberDensity(m.Density(cellx, celly), mat.MolarMass)
			macroS = numDen * sigS * physics.Barns
			macroA = numDen * sigA * physics.Barns

			if err := en.checkResiduals(i, key, ctr); err != nil {
				return err
			}

		case eventCensus:
			s.X[i] += distCensus * s.OmegaX[i]
			s.Y[i] += distCensus * s.OmegaY[i]
			s.MfpToCollision[i] -= distCensus * macroTotal
			s.DtToCensus[i] = 0
			edLocal += segmentDeposit(s.Weight[i], distCensus, e, sigS+sigA, pAbsorb, numDen, mat.MassNo)
			en.flush(&edLocal, cellx, celly)

			if err := en.checkResiduals(i, key, ctr); err != nil {
				return err
			}
			return nil
		}
	}
}

// Residual tolerances for strict checks; both quantities only decrease
// during a step and may undershoot zero by round-off.
const (
	epsMfp  = 1e-9
	epsTime = 1e-12
)

func (en *engine) checkResiduals(i int, key, ctr uint64) error {
	if !en.ctx.StrictChecks {
		return nil
	}
	s := en.store
	if s.MfpToCollision[i] < -epsMfp || s.DtToCensus[i] < -epsTime*en.ctx.Dt {
		return fmt.Errorf("%w: particle key=%d counter=%d mfp=%g dt=%g",
			ErrInvariant, key, ctr, s.MfpToCollision[i], s.DtToCensus[i])
	}
	return nil
}

// elasticExit returns the exit energy and lab-frame scattering cosine for an
// elastic collision off a nuclide of mass number a, given the
// centre-of-mass cosine mu in [-1, 1].
func elasticExit(e, a, mu float64) (eNew, cosT float64) {
	eNew = e * (a*a + 2.0*a*mu + 1.0) / ((a + 1.0) * (a + 1.0))
	cosT = 0.5 * ((a+1.0)*math.Sqrt(eNew/e) - (a-1.0)*math.Sqrt(e/eNew))
	return eNew, cosT
}

// segmentDeposit is the energy deposited along a segment of length l: the
// collision density times the average energy lost per reaction, with the
// scatter channel crediting the mean elastic exit energy and absorption
// depositing the full particle energy.
func segmentDeposit(w, l, e, sigTotal, pAbsorb, numDen, a float64) float64 {
	scatterHeat := (1.0 - pAbsorb) * e * (a*a + a + 1.0) / ((a + 1.0) * (a + 1.0))
	return w * l * (sigTotal * physics.Barns) * (e - scatterHeat) * numDen
}

// flush moves the per-particle deposition accumulator into the shared tally.
func (en *engine) flush(ed *float64, cellx, celly int) {
	if *ed != 0 {
		en.tally.Add(cellx, celly, *ed*en.invNTotal)
	}
	*ed = 0
}
