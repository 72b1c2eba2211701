// Package xs provides microscopic cross-section tables keyed by energy.
// Tables are immutable after load; lookups interpolate linearly between the
// bracketing table points.
package xs

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gocarina/gocsv"
)

// ErrOutOfRange reports an energy outside the table's key range.
var ErrOutOfRange = errors.New("xs: energy outside table range")

// Table maps energy (eV) to a microscopic cross section (barns) by linear
// interpolation over strictly increasing keys.
type Table struct {
	keys   []float64
	values []float64
}

// New builds a table from parallel key/value slices. Keys must be strictly
// increasing and at least two points long.
func New(keys, values []float64) (*Table, error) {
	if len(keys) != len(values) {
		return nil, fmt.Errorf("xs: %d keys but %d values", len(keys), len(values))
	}
	if len(keys) < 2 {
		return nil, fmt.Errorf("xs: need at least 2 points, got %d", len(keys))
	}
	for i := 1; i < len(keys); i++ {
		if keys[i] <= keys[i-1] {
			return nil, fmt.Errorf("xs: keys not strictly increasing at index %d (%g after %g)", i, keys[i], keys[i-1])
		}
	}

	t := &Table{
		keys:   make([]float64, len(keys)),
		values: make([]float64, len(values)),
	}
	copy(t.keys, keys)
	copy(t.values, values)
	return t, nil
}

// Len returns the number of table points.
func (t *Table) Len() int { return len(t.keys) }

// MinEnergy returns the lowest tabulated energy.
func (t *Table) MinEnergy() float64 { return t.keys[0] }

// MaxEnergy returns the highest tabulated energy.
func (t *Table) MaxEnergy() float64 { return t.keys[len(t.keys)-1] }

// Lookup returns the interpolated cross section at energy e together with
// the index of the bracketing interval [keys[ix], keys[ix+1]).
//
// The search starts at the table midpoint and steps by a width that halves
// each iteration, clamped to 1, so it converges on the containing interval
// from any starting guess.
func (t *Table) Lookup(e float64) (float64, int, error) {
	last := len(t.keys) - 1
	if e < t.keys[0] || e >= t.keys[last] {
		return 0, 0, fmt.Errorf("%w: e=%g outside [%g, %g)", ErrOutOfRange, e, t.keys[0], t.keys[last])
	}

	ix := last / 2
	width := ix / 2
	if width < 1 {
		width = 1
	}
	for !(t.keys[ix] <= e && e < t.keys[ix+1]) {
		if e < t.keys[ix] {
			ix -= width
		} else {
			ix += width
		}
		if ix < 0 {
			ix = 0
		} else if ix > last-1 {
			ix = last - 1
		}
		if width > 1 {
			width /= 2
		}
	}

	frac := (e - t.keys[ix]) / (t.keys[ix+1] - t.keys[ix])
	return t.values[ix] + frac*(t.values[ix+1]-t.values[ix]), ix, nil
}

// csvRow is the on-disk record layout for cross-section files.
type csvRow struct {
	Energy float64 `csv:"energy"`
	Barns  float64 `csv:"barns"`
}

// Read parses a cross-section table from CSV with "energy,barns" columns.
func Read(r io.Reader) (*Table, error) {
	var rows []csvRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("xs: parsing table: %w", err)
	}

	keys := make([]float64, len(rows))
	values := make([]float64, len(rows))
	for i, row := range rows {
		keys[i] = row.Energy
		values[i] = row.Barns
	}
	return New(keys, values)
}

// ReadFile loads a cross-section table from a CSV file.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("xs: opening table: %w", err)
	}
	defer f.Close()

	t, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("xs: %s: %w", path, err)
	}
	return t, nil
}
