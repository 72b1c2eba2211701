// Package config provides configuration loading and access for the
// simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/neutron/physics"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Mesh          MeshConfig          `yaml:"mesh"`
	Source        SourceConfig        `yaml:"source"`
	Particles     ParticlesConfig     `yaml:"particles"`
	Time          TimeConfig          `yaml:"time"`
	Material      MaterialConfig      `yaml:"material"`
	CrossSections CrossSectionsConfig `yaml:"cross_sections"`
	Physics       PhysicsConfig       `yaml:"physics"`
	Validation    ValidationConfig    `yaml:"validation"`
	Telemetry     TelemetryConfig     `yaml:"telemetry"`
	Screen        ScreenConfig        `yaml:"screen"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// MeshConfig describes the global mesh: cell counts and physical extent in
// cm.
type MeshConfig struct {
	NX     int     `yaml:"nx"`
	NY     int     `yaml:"ny"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// SourceConfig is the rectangular injection region and initial particle
// energy in eV.
type SourceConfig struct {
	X0     float64 `yaml:"x0"`
	Y0     float64 `yaml:"y0"`
	X1     float64 `yaml:"x1"`
	Y1     float64 `yaml:"y1"`
	Energy float64 `yaml:"energy"`
}

// ParticlesConfig holds the population size.
type ParticlesConfig struct {
	Count int `yaml:"count"`
}

// TimeConfig holds the timestep parameters.
type TimeConfig struct {
	Dt    float64 `yaml:"dt"`
	Steps int     `yaml:"steps"`
}

// MaterialConfig holds the single-nuclide material parameters.
type MaterialConfig struct {
	MassNo    float64 `yaml:"mass_no"`
	MolarMass float64 `yaml:"molar_mass"`
	Density   float64 `yaml:"density"`
	MinEnergy float64 `yaml:"min_energy"`
}

// CrossSectionsConfig points at CSV tables; empty paths select the
// embedded defaults.
type CrossSectionsConfig struct {
	ScatterPath string `yaml:"scatter_path"`
	AbsorbPath  string `yaml:"absorb_path"`
}

// PhysicsConfig holds kernel switches.
type PhysicsConfig struct {
	StrictChecks bool   `yaml:"strict_checks"`
	Workers      int    `yaml:"workers"` // 0 = GOMAXPROCS
	MasterKey    uint64 `yaml:"master_key"`
}

// ValidationConfig compares the final tally total against an expected
// value. Expected 0 disables the check.
type ValidationConfig struct {
	Expected  float64 `yaml:"expected"`
	Tolerance float64 `yaml:"tolerance"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	PerfWindow int `yaml:"perf_window"`
}

// ScreenConfig holds display settings for the live viewer.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	NumberDensity float64 // atoms per cm^3
	SourceSpeed   float64 // speed at the initial energy
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults
// if path is empty. Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded
// defaults. If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

// WriteYAML saves the configuration to a file for run reproduction.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.Mesh.NX < 1 || c.Mesh.NY < 1 {
		return fmt.Errorf("config: mesh must have at least one cell, got %dx%d", c.Mesh.NX, c.Mesh.NY)
	}
	if c.Mesh.Width <= 0 || c.Mesh.Height <= 0 {
		return fmt.Errorf("config: mesh extent must be positive, got %gx%g", c.Mesh.Width, c.Mesh.Height)
	}
	if c.Particles.Count < 1 {
		return fmt.Errorf("config: need at least one particle, got %d", c.Particles.Count)
	}
	if c.Time.Dt <= 0 {
		return fmt.Errorf("config: dt must be positive, got %g", c.Time.Dt)
	}
	if c.Material.Density < 0 || c.Material.MolarMass <= 0 {
		return fmt.Errorf("config: bad material (density %g, molar mass %g)", c.Material.Density, c.Material.MolarMass)
	}
	if c.Source.Energy <= 0 {
		return fmt.Errorf("config: source energy must be positive, got %g", c.Source.Energy)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.NumberDensity = physics.NumberDensity(c.Material.Density, c.Material.MolarMass)
	c.Derived.SourceSpeed = physics.Speed(c.Source.Energy)
}
