// Package sim orchestrates the multi-timestep simulation: it owns the mesh,
// cross-section tables, particle population and tally, advances the RNG
// master key between steps, and feeds telemetry.
package sim

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/pthm-cable/neutron/config"
	"github.com/pthm-cable/neutron/mesh"
	"github.com/pthm-cable/neutron/particle"
	"github.com/pthm-cable/neutron/tally"
	"github.com/pthm-cable/neutron/telemetry"
	"github.com/pthm-cable/neutron/transport"
	"github.com/pthm-cable/neutron/xs"
)

// Simulation holds one run's state. Construct with New, seed with
// InjectParticles, then call AdvanceOneStep per timestep or Run for the
// whole configured schedule.
type Simulation struct {
	cfg     *config.Config
	problem *transport.Problem
	store   *particle.Store
	tal     *tally.Tally

	masterKey uint64
	step      int
	simTime   float64
	injected  bool
	totals    transport.Counters

	perf   *telemetry.PerfCollector
	output *telemetry.OutputManager
	onStep []func(telemetry.StepStats)
}

// New builds a simulation from configuration: uniform mesh, cross-section
// tables from the configured CSV paths or the embedded defaults, and an
// empty particle population.
func New(cfg *config.Config, output *telemetry.OutputManager) (*Simulation, error) {
	m, err := mesh.Uniform(cfg.Mesh.NX, cfg.Mesh.NY, cfg.Mesh.Width, cfg.Mesh.Height, cfg.Material.Density)
	if err != nil {
		return nil, fmt.Errorf("sim: building mesh: %w", err)
	}

	scatter := xs.DefaultScatter()
	if cfg.CrossSections.ScatterPath != "" {
		if scatter, err = xs.ReadFile(cfg.CrossSections.ScatterPath); err != nil {
			return nil, fmt.Errorf("sim: scatter table: %w", err)
		}
	}
	absorb := xs.DefaultAbsorb()
	if cfg.CrossSections.AbsorbPath != "" {
		if absorb, err = xs.ReadFile(cfg.CrossSections.AbsorbPath); err != nil {
			return nil, fmt.Errorf("sim: absorb table: %w", err)
		}
	}

	return &Simulation{
		cfg: cfg,
		problem: &transport.Problem{
			Mesh:    m,
			Scatter: scatter,
			Absorb:  absorb,
			Material: transport.Material{
				MassNo:    cfg.Material.MassNo,
				MolarMass: cfg.Material.MolarMass,
				MinEnergy: cfg.Material.MinEnergy,
			},
		},
		store:     particle.NewStore(cfg.Particles.Count),
		tal:       tally.New(cfg.Mesh.NX, cfg.Mesh.NY),
		masterKey: cfg.Physics.MasterKey,
		perf:      telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow),
		output:    output,
	}, nil
}

// OnStep registers a hook called with each completed step's stats.
func (s *Simulation) OnStep(fn func(telemetry.StepStats)) {
	s.onStep = append(s.onStep, fn)
}

// InjectParticles seeds the population from the configured source region.
func (s *Simulation) InjectParticles() error {
	src := transport.Source{
		X0: s.cfg.Source.X0, Y0: s.cfg.Source.Y0,
		X1: s.cfg.Source.X1, Y1: s.cfg.Source.Y1,
		Energy: s.cfg.Source.Energy,
	}
	if err := transport.Inject(s.problem, s.store, src, s.cfg.Time.Dt); err != nil {
		return err
	}
	s.injected = true
	slog.Info("injected", "particles", s.store.Len(), "energy", s.cfg.Source.Energy)
	return nil
}

// AdvanceOneStep runs one timestep across all workers, advances the master
// key, and returns the reduced event counters.
func (s *Simulation) AdvanceOneStep() (transport.Counters, error) {
	if !s.injected {
		if err := s.InjectParticles(); err != nil {
			return transport.Counters{}, err
		}
	}

	ctx := transport.StepContext{
		MasterKey:       s.masterKey,
		Dt:              s.cfg.Time.Dt,
		NTotalParticles: s.store.Len(),
		Initial:         s.step == 0,
		StrictChecks:    s.cfg.Physics.StrictChecks,
	}
	counters, err := transport.Step(s.problem, s.store, s.tal, ctx, s.cfg.Physics.Workers)
	if err != nil {
		return counters, fmt.Errorf("sim: step %d: %w", s.step, err)
	}

	s.masterKey++
	s.step++
	s.simTime += s.cfg.Time.Dt
	s.totals.Merge(counters)
	return counters, nil
}

// ReadTally returns a snapshot of the energy-deposition grid. Call only
// between steps.
func (s *Simulation) ReadTally() []float64 { return s.tal.Read() }

// TallySum returns the total deposition so far.
func (s *Simulation) TallySum() float64 { return s.tal.Sum() }

// Step returns the number of completed steps.
func (s *Simulation) Step() int { return s.step }

// Store exposes the particle population for read-only inspection between
// steps.
func (s *Simulation) Store() *particle.Store { return s.store }

// Mesh exposes the mesh view.
func (s *Simulation) Mesh() *mesh.Mesh { return s.problem.Mesh }

// Totals returns the event counters accumulated over all steps.
func (s *Simulation) Totals() transport.Counters { return s.totals }

// CollectStats aggregates population and tally state after a step.
func (s *Simulation) CollectStats(counters transport.Counters) telemetry.StepStats {
	energies := make([]float64, 0, s.store.Len())
	weights := make([]float64, 0, s.store.Len())
	alive := 0
	for i := 0; i < s.store.Len(); i++ {
		if !s.store.Alive[i] {
			continue
		}
		alive++
		energies = append(energies, s.store.Energy[i])
		weights = append(weights, s.store.Weight[i])
	}

	mean, p10, p50, p90 := telemetry.ComputeEnergyStats(energies)
	return telemetry.StepStats{
		Step:       s.step,
		SimTime:    s.simTime,
		Particles:  s.store.Len(),
		Alive:      alive,
		Facets:     counters.Facets,
		Collisions: counters.Collisions,
		Processed:  counters.Processed,
		TallySum:   s.tal.Sum(),
		EnergyMean: mean,
		EnergyP10:  p10,
		EnergyP50:  p50,
		EnergyP90:  p90,
		WeightMean: telemetry.Mean(weights),
	}
}

// Run executes the configured number of timesteps headless, logging and
// recording telemetry per step, then writes the final tally and validates.
func (s *Simulation) Run() error {
	if err := s.output.WriteConfig(s.cfg); err != nil {
		return fmt.Errorf("sim: %w", err)
	}

	s.perf.StartStep()
	s.perf.StartPhase(telemetry.PhaseInject)
	if err := s.InjectParticles(); err != nil {
		return err
	}
	s.perf.EndStep()

	for i := 0; i < s.cfg.Time.Steps; i++ {
		s.perf.StartStep()
		s.perf.StartPhase(telemetry.PhaseTransport)
		counters, err := s.AdvanceOneStep()
		if err != nil {
			return err
		}

		s.perf.StartPhase(telemetry.PhaseReduce)
		stats := s.CollectStats(counters)

		s.perf.StartPhase(telemetry.PhaseTelemetry)
		stats.LogStats()
		if err := s.output.WriteStep(stats); err != nil {
			return fmt.Errorf("sim: %w", err)
		}
		for _, fn := range s.onStep {
			fn(stats)
		}
		s.perf.EndStep()
	}

	perfStats := s.perf.Stats()
	perfStats.LogStats()
	if err := s.output.WritePerf(perfStats, s.step); err != nil {
		return fmt.Errorf("sim: %w", err)
	}
	if err := s.output.WriteTally(s.cfg.Mesh.NX, s.cfg.Mesh.NY, s.ReadTally()); err != nil {
		return fmt.Errorf("sim: %w", err)
	}

	slog.Info("run complete",
		"steps", s.step,
		"nfacets", s.totals.Facets,
		"ncollisions", s.totals.Collisions,
		"nprocessed", s.totals.Processed,
		"tally_sum", s.tal.Sum(),
	)

	return s.Validate()
}

// Validate compares the aggregate tally against the configured expected
// value within a relative tolerance. An expected value of zero disables the
// check.
func (s *Simulation) Validate() error {
	expected := s.cfg.Validation.Expected
	if expected == 0 {
		return nil
	}

	got := s.tal.Sum()
	rel := math.Abs(got-expected) / math.Abs(expected)
	if rel > s.cfg.Validation.Tolerance {
		slog.Error("validation failed", "expected", expected, "got", got, "rel_err", rel)
		return fmt.Errorf("sim: validation failed: tally %g vs expected %g (rel err %g > %g)",
			got, expected, rel, s.cfg.Validation.Tolerance)
	}
	slog.Info("validation passed", "expected", expected, "got", got, "rel_err", rel)
	return nil
}
