package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}

	if cfg.Mesh.NX < 1 || cfg.Mesh.NY < 1 {
		t.Errorf("defaults have empty mesh: %dx%d", cfg.Mesh.NX, cfg.Mesh.NY)
	}
	if cfg.Time.Dt <= 0 {
		t.Errorf("defaults have non-positive dt: %g", cfg.Time.Dt)
	}
	if cfg.Derived.NumberDensity <= 0 {
		t.Errorf("derived number density not computed: %g", cfg.Derived.NumberDensity)
	}
	if cfg.Derived.SourceSpeed <= 0 {
		t.Errorf("derived source speed not computed: %g", cfg.Derived.SourceSpeed)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "mesh:\n  nx: 16\ntime:\n  dt: 5.0e-7\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}

	if cfg.Mesh.NX != 16 {
		t.Errorf("nx = %d, want 16", cfg.Mesh.NX)
	}
	if cfg.Time.Dt != 5.0e-7 {
		t.Errorf("dt = %g, want 5e-7", cfg.Time.Dt)
	}
	// Untouched fields keep their defaults.
	if cfg.Mesh.NY != 64 {
		t.Errorf("ny = %d, want default 64", cfg.Mesh.NY)
	}
}

func TestLoadRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"zero cells", "mesh:\n  nx: 0\n"},
		{"negative dt", "time:\n  dt: -1.0\n"},
		{"no particles", "particles:\n  count: 0\n"},
		{"zero molar mass", "material:\n  molar_mass: 0\n"},
		{"garbage yaml", "mesh: [1,2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.body), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Mesh.NX = 7

	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("writing: %v", err)
	}

	back, err := Load(path)
	if err != nil {
		t.Fatalf("reloading: %v", err)
	}
	if back.Mesh.NX != 7 {
		t.Errorf("round trip lost nx: got %d", back.Mesh.NX)
	}
}
