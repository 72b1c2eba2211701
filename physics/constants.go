// Package physics holds the physical constants and unit conversions used by
// the transport kernel. Lengths are in cm, energies in eV, time in seconds.
package physics

import "math"

const (
	// EVToJ converts electron volts to joules.
	EVToJ = 1.602176634e-19

	// ParticleMass is the neutron rest mass in kg.
	ParticleMass = 1.67492749804e-27

	// Avogadros is the Avogadro constant in atoms per mole.
	Avogadros = 6.02214076e23

	// Barns is the area of one barn in cm^2.
	Barns = 1.0e-24

	// OpenBoundCorrection nudges a backward facet target just inside the
	// lower cell edge so positions respect the half-open cell convention
	// [edge[i], edge[i+1]).
	OpenBoundCorrection = 1.0e-14
)

// Speed returns the particle speed for a kinetic energy in eV.
func Speed(energyEV float64) float64 {
	return math.Sqrt(2.0 * energyEV * EVToJ / ParticleMass)
}

// NumberDensity returns atoms per cm^3 for a density in g/cm^3 and a molar
// mass in g/mol.
func NumberDensity(density, molarMass float64) float64 {
	return density * Avogadros / molarMass
}
