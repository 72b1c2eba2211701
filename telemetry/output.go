package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"

	"github.com/pthm-cable/neutron/config"
)

// OutputManager handles structured run output with CSV logging. Each run is
// tagged with a fresh id so repeated runs into the same directory tree never
// collide.
type OutputManager struct {
	dir   string
	runID string

	stepsFile *os.File
	perfFile  *os.File

	stepsHeaderWritten bool
	perfHeaderWritten  bool
}

// TallyCell is one row of the final tally export.
type TallyCell struct {
	CellX int     `csv:"cellx"`
	CellY int     `csv:"celly"`
	Value float64 `csv:"energy_deposition"`
}

// NewOutputManager creates a new output manager rooted at dir/<run id>.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	runID := uuid.NewString()
	runDir := filepath.Join(dir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: runDir, runID: runID}

	stepsPath := filepath.Join(runDir, "steps.csv")
	f, err := os.Create(stepsPath)
	if err != nil {
		return nil, fmt.Errorf("creating steps.csv: %w", err)
	}
	om.stepsFile = f

	perfPath := filepath.Join(runDir, "perf.csv")
	f, err = os.Create(perfPath)
	if err != nil {
		om.stepsFile.Close()
		return nil, fmt.Errorf("creating perf.csv: %w", err)
	}
	om.perfFile = f

	return om, nil
}

// WriteConfig saves the current configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	configPath := filepath.Join(om.dir, "config.yaml")
	return cfg.WriteYAML(configPath)
}

// WriteStep writes a step stats record to steps.csv.
func (om *OutputManager) WriteStep(stats StepStats) error {
	if om == nil {
		return nil
	}

	records := []StepStats{stats}

	if !om.stepsHeaderWritten {
		// First write includes headers
		if err := gocsv.Marshal(records, om.stepsFile); err != nil {
			return fmt.Errorf("writing steps: %w", err)
		}
		om.stepsHeaderWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(records, om.stepsFile); err != nil {
			return fmt.Errorf("writing steps: %w", err)
		}
	}

	return nil
}

// WritePerf writes a performance stats record to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, step int) error {
	if om == nil {
		return nil
	}

	records := []PerfStatsCSV{stats.ToCSV(step)}

	if !om.perfHeaderWritten {
		if err := gocsv.Marshal(records, om.perfFile); err != nil {
			return fmt.Errorf("writing perf: %w", err)
		}
		om.perfHeaderWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(records, om.perfFile); err != nil {
			return fmt.Errorf("writing perf: %w", err)
		}
	}

	return nil
}

// WriteTally saves the final tally grid as tally.csv, one row per cell.
func (om *OutputManager) WriteTally(nx, ny int, cells []float64) error {
	if om == nil {
		return nil
	}
	if len(cells) != nx*ny {
		return fmt.Errorf("writing tally: %d cells for %dx%d grid", len(cells), nx, ny)
	}

	rows := make([]TallyCell, 0, len(cells))
	for cy := 0; cy < ny; cy++ {
		for cx := 0; cx < nx; cx++ {
			rows = append(rows, TallyCell{CellX: cx, CellY: cy, Value: cells[cy*nx+cx]})
		}
	}

	path := filepath.Join(om.dir, "tally.csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating tally.csv: %w", err)
	}
	defer f.Close()

	if err := gocsv.Marshal(rows, f); err != nil {
		return fmt.Errorf("writing tally: %w", err)
	}
	return nil
}

// RunID returns the unique id of this run.
func (om *OutputManager) RunID() string {
	if om == nil {
		return ""
	}
	return om.runID
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}

	var firstErr error

	if om.stepsFile != nil {
		if err := om.stepsFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if om.perfFile != nil {
		if err := om.perfFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
