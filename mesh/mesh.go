// Package mesh provides the read-only Cartesian mesh view consumed by the
// transport kernel: cell-edge coordinates and cell density on a tile that
// may be offset inside the global grid and padded by ghost cells.
//
// All accessors take global cell indices; the pad and offset arithmetic is
// internal so kernel code never sees padded coordinates.
package mesh

import (
	"errors"
	"fmt"
)

// ErrInvalidMesh reports non-monotone edges, a zero-width cell, or a
// negative density.
var ErrInvalidMesh = errors.New("mesh: invalid mesh")

// Mesh is an immutable view of a rectangular mesh tile.
type Mesh struct {
	globalNX, globalNY int
	nx, ny             int
	xOff, yOff         int
	pad                int
	edgeX, edgeY       []float64
	density            []float64
}

// Params describes a mesh tile. EdgeX must have nx+2*pad+1 entries and EdgeY
// ny+2*pad+1; Density must have (nx+2*pad)*(ny+2*pad) entries in row-major
// order (y outer).
type Params struct {
	GlobalNX, GlobalNY int
	NX, NY             int
	XOff, YOff         int
	Pad                int
	EdgeX, EdgeY       []float64
	Density            []float64
}

// New validates the tile description and returns a mesh view over it.
func New(p Params) (*Mesh, error) {
	if p.NX < 1 || p.NY < 1 || p.GlobalNX < p.NX || p.GlobalNY < p.NY {
		return nil, fmt.Errorf("%w: tile %dx%d in global %dx%d", ErrInvalidMesh, p.NX, p.NY, p.GlobalNX, p.GlobalNY)
	}
	if p.Pad < 0 {
		return nil, fmt.Errorf("%w: negative pad %d", ErrInvalidMesh, p.Pad)
	}
	if want := p.NX + 2*p.Pad + 1; len(p.EdgeX) != want {
		return nil, fmt.Errorf("%w: edgex has %d entries, want %d", ErrInvalidMesh, len(p.EdgeX), want)
	}
	if want := p.NY + 2*p.Pad + 1; len(p.EdgeY) != want {
		return nil, fmt.Errorf("%w: edgey has %d entries, want %d", ErrInvalidMesh, len(p.EdgeY), want)
	}
	if want := (p.NX + 2*p.Pad) * (p.NY + 2*p.Pad); len(p.Density) != want {
		return nil, fmt.Errorf("%w: density has %d entries, want %d", ErrInvalidMesh, len(p.Density), want)
	}
	for i := 1; i < len(p.EdgeX); i++ {
		if p.EdgeX[i] <= p.EdgeX[i-1] {
			return nil, fmt.Errorf("%w: edgex not strictly increasing at %d", ErrInvalidMesh, i)
		}
	}
	for i := 1; i < len(p.EdgeY); i++ {
		if p.EdgeY[i] <= p.EdgeY[i-1] {
			return nil, fmt.Errorf("%w: edgey not strictly increasing at %d", ErrInvalidMesh, i)
		}
	}
	for i, d := range p.Density {
		if d < 0 {
			return nil, fmt.Errorf("%w: negative density %g at cell %d", ErrInvalidMesh, d, i)
		}
	}

	m := &Mesh{
		globalNX: p.GlobalNX, globalNY: p.GlobalNY,
		nx: p.NX, ny: p.NY,
		xOff: p.XOff, yOff: p.YOff,
		pad:     p.Pad,
		edgeX:   make([]float64, len(p.EdgeX)),
		edgeY:   make([]float64, len(p.EdgeY)),
		density: make([]float64, len(p.Density)),
	}
	copy(m.edgeX, p.EdgeX)
	copy(m.edgeY, p.EdgeY)
	copy(m.density, p.Density)
	return m, nil
}

// Uniform builds an unpadded single-tile mesh of nx by ny equal cells
// spanning [0, width] x [0, height] with constant density.
func Uniform(nx, ny int, width, height, density float64) (*Mesh, error) {
	if nx < 1 || ny < 1 || width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: uniform %dx%d over %gx%g", ErrInvalidMesh, nx, ny, width, height)
	}

	edgeX := make([]float64, nx+1)
	for i := range edgeX {
		edgeX[i] = width * float64(i) / float64(nx)
	}
	edgeY := make([]float64, ny+1)
	for j := range edgeY {
		edgeY[j] = height * float64(j) / float64(ny)
	}
	dens := make([]float64, nx*ny)
	for i := range dens {
		dens[i] = density
	}

	return New(Params{
		GlobalNX: nx, GlobalNY: ny,
		NX: nx, NY: ny,
		EdgeX: edgeX, EdgeY: edgeY,
		Density: dens,
	})
}

// GlobalNX returns the global cell count along x.
func (m *Mesh) GlobalNX() int { return m.globalNX }

// GlobalNY returns the global cell count along y.
func (m *Mesh) GlobalNY() int { return m.globalNY }

// NX returns the tile cell count along x.
func (m *Mesh) NX() int { return m.nx }

// NY returns the tile cell count along y.
func (m *Mesh) NY() int { return m.ny }

// XOff returns the tile's global x offset.
func (m *Mesh) XOff() int { return m.xOff }

// YOff returns the tile's global y offset.
func (m *Mesh) YOff() int { return m.yOff }

// EdgeX returns the x coordinate of global edge index i,
// xOff-pad <= i <= xOff+nx+pad.
func (m *Mesh) EdgeX(i int) float64 { return m.edgeX[i-m.xOff+m.pad] }

// EdgeY returns the y coordinate of global edge index j,
// yOff-pad <= j <= yOff+ny+pad.
func (m *Mesh) EdgeY(j int) float64 { return m.edgeY[j-m.yOff+m.pad] }

// Density returns the cell density for global cell (cellx, celly).
func (m *Mesh) Density(cellx, celly int) float64 {
	lx := cellx - m.xOff + m.pad
	ly := celly - m.yOff + m.pad
	return m.density[ly*(m.nx+2*m.pad)+lx]
}

// FindCell locates the global cell containing (x, y) by scanning the edge
// arrays, so non-uniform meshes are handled. The convention is half-open:
// a point on an edge belongs to the cell above it.
func (m *Mesh) FindCell(x, y float64) (cellx, celly int, err error) {
	lx, ok := findInterval(m.edgeX, x)
	if !ok {
		return 0, 0, fmt.Errorf("mesh: x=%g outside tile [%g, %g)", x, m.edgeX[0], m.edgeX[len(m.edgeX)-1])
	}
	ly, ok := findInterval(m.edgeY, y)
	if !ok {
		return 0, 0, fmt.Errorf("mesh: y=%g outside tile [%g, %g)", y, m.edgeY[0], m.edgeY[len(m.edgeY)-1])
	}
	return lx + m.xOff - m.pad, ly + m.yOff - m.pad, nil
}

func findInterval(edges []float64, v float64) (int, bool) {
	for i := 0; i < len(edges)-1; i++ {
		if edges[i] <= v && v < edges[i+1] {
			return i, true
		}
	}
	return 0, false
}
