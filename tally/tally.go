// Package tally accumulates per-cell energy deposition. Workers write
// concurrently through atomic adds; reads happen only after the step
// barrier.
package tally

import (
	"math"
	"sync/atomic"
	"unsafe"

	"gonum.org/v1/gonum/floats"
)

// Tally is a cell-indexed accumulator of energy deposition.
type Tally struct {
	nx, ny int
	cells  []float64
}

// New creates a zeroed tally over nx by ny cells.
func New(nx, ny int) *Tally {
	return &Tally{nx: nx, ny: ny, cells: make([]float64, nx*ny)}
}

// NX returns the cell count along x.
func (t *Tally) NX() int { return t.nx }

// NY returns the cell count along y.
func (t *Tally) NY() int { return t.ny }

// Add atomically accumulates delta into cell (cellx, celly). Safe for
// concurrent use from any number of workers.
//
// Go has no atomic float64 add, so this reinterprets the slot's bits and
// retries a compare-and-swap until the addition lands. The unsafe pointer is
// taken fresh on each use and never stored.
func (t *Tally) Add(cellx, celly int, delta float64) {
	addr := (*uint64)(unsafe.Pointer(&t.cells[celly*t.nx+cellx]))
	for {
		old := atomic.LoadUint64(addr)
		next := math.Float64bits(math.Float64frombits(old) + delta)
		if atomic.CompareAndSwapUint64(addr, old, next) {
			return
		}
	}
}

// At returns the accumulated deposition for one cell. Call only after the
// step barrier.
func (t *Tally) At(cellx, celly int) float64 {
	return t.cells[celly*t.nx+cellx]
}

// Read returns a copy of the full cell grid in row-major order (y outer).
// Call only after the step barrier.
func (t *Tally) Read() []float64 {
	out := make([]float64, len(t.cells))
	copy(out, t.cells)
	return out
}

// Sum returns the total deposition across all cells. Call only after the
// step barrier.
func (t *Tally) Sum() float64 {
	return floats.Sum(t.cells)
}
