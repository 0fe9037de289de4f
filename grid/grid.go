/*
Copyright © 2024 the Rangeland authors.
This file is part of Rangeland.

Rangeland is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Rangeland is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Rangeland.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package grid implements the raster algebra primitive used throughout the
// model: equal-shape dense float64 grids with a per-grid no-data sentinel,
// and element-wise application of pure functions across aligned grids with
// sentinel propagation.
package grid

import (
	"fmt"
	"math"

	"github.com/ctessum/sparse"
)

// Conventional no-data sentinels. State variables, monthly intermediates,
// and target outputs each use a distinct sentinel so that a value leaking
// between grid classes is recognizable in output rasters.
const (
	NoDataState        = -999.
	NoDataIntermediate = -1.0e38
	NoDataTarget       = -9999.
)

// Grid is a two-dimensional raster of float64 values with an associated
// no-data sentinel. Cells equal to the sentinel are outside the modeled
// area and must never contribute to, nor receive, computed values.
type Grid struct {
	data   *sparse.DenseArray
	noData float64
}

// New returns a grid of the given shape with every cell set to the
// no-data sentinel.
func New(rows, cols int, noData float64) *Grid {
	g := &Grid{data: sparse.ZerosDense(rows, cols), noData: noData}
	for i := range g.data.Elements {
		g.data.Elements[i] = noData
	}
	return g
}

// Full returns a grid of the given shape with every cell set to v.
func Full(v float64, rows, cols int, noData float64) *Grid {
	g := &Grid{data: sparse.ZerosDense(rows, cols), noData: noData}
	for i := range g.data.Elements {
		g.data.Elements[i] = v
	}
	return g
}

// Zeros returns a grid of the given shape with every cell set to zero.
func Zeros(rows, cols int, noData float64) *Grid {
	return Full(0, rows, cols, noData)
}

// FromDense wraps an existing dense array. The array is not copied.
func FromDense(d *sparse.DenseArray, noData float64) (*Grid, error) {
	if len(d.Shape) != 2 {
		return nil, fmt.Errorf("grid: need a 2-d array, got %d dimensions", len(d.Shape))
	}
	return &Grid{data: d, noData: noData}, nil
}

// Rows returns the number of rows.
func (g *Grid) Rows() int { return g.data.Shape[0] }

// Cols returns the number of columns.
func (g *Grid) Cols() int { return g.data.Shape[1] }

// NoData returns the grid's no-data sentinel.
func (g *Grid) NoData() float64 { return g.noData }

// Elements exposes the underlying cell values in row-major order.
func (g *Grid) Elements() []float64 { return g.data.Elements }

// Get returns the value at (row, col).
func (g *Grid) Get(row, col int) float64 { return g.data.Get(row, col) }

// Set sets the value at (row, col).
func (g *Grid) Set(v float64, row, col int) { g.data.Set(v, row, col) }

// IsNoData reports whether the value at (row, col) is the sentinel.
func (g *Grid) IsNoData(row, col int) bool {
	return isSentinel(g.data.Get(row, col), g.noData)
}

// Copy returns a deep copy of g, keeping the same sentinel.
func (g *Grid) Copy() *Grid {
	out := &Grid{data: sparse.ZerosDense(g.data.Shape...), noData: g.noData}
	copy(out.data.Elements, g.data.Elements)
	return out
}

// CopyFrom overwrites g's cells with those of src. Shapes must match;
// sentinels are translated from src's convention to g's.
func (g *Grid) CopyFrom(src *Grid) error {
	if err := sameShape(g, src); err != nil {
		return err
	}
	for i, v := range src.data.Elements {
		if isSentinel(v, src.noData) {
			g.data.Elements[i] = g.noData
		} else {
			g.data.Elements[i] = v
		}
	}
	return nil
}

// Fill sets every valid and no-data cell to v.
func (g *Grid) Fill(v float64) {
	for i := range g.data.Elements {
		g.data.Elements[i] = v
	}
}

// Sum returns the sum over all valid cells.
func (g *Grid) Sum() float64 {
	var s float64
	for _, v := range g.data.Elements {
		if !isSentinel(v, g.noData) {
			s += v
		}
	}
	return s
}

// CountValid returns the number of cells not equal to the sentinel.
func (g *Grid) CountValid() int {
	var n int
	for _, v := range g.data.Elements {
		if !isSentinel(v, g.noData) {
			n++
		}
	}
	return n
}

// Apply computes out[i] = f(ins[0][i], ins[1][i], ...) for every cell i,
// writing out's sentinel wherever any input cell is that input's sentinel.
// It is the single execution primitive for all point-process functions: f
// must be pure, and f is never invoked for a no-data cell.
//
// out may alias one of the inputs; inputs are read before the output cell
// is written.
func Apply(f func(vals ...float64) float64, out *Grid, ins ...*Grid) error {
	if len(ins) == 0 {
		return fmt.Errorf("grid: Apply requires at least one input")
	}
	for k, in := range ins {
		if err := sameShape(out, in); err != nil {
			return fmt.Errorf("grid: Apply input %d: %w", k, err)
		}
	}
	vals := make([]float64, len(ins))
	n := len(out.data.Elements)
	for i := 0; i < n; i++ {
		valid := true
		for k, in := range ins {
			v := in.data.Elements[i]
			if isSentinel(v, in.noData) {
				valid = false
				break
			}
			vals[k] = v
		}
		if !valid {
			out.data.Elements[i] = out.noData
			continue
		}
		out.data.Elements[i] = f(vals...)
	}
	return nil
}

// Apply2 is Apply specialized for two inputs, avoiding the variadic
// slice in tight loops.
func Apply2(f func(a, b float64) float64, out, a, b *Grid) error {
	if err := sameShape(out, a); err != nil {
		return err
	}
	if err := sameShape(out, b); err != nil {
		return err
	}
	for i := range out.data.Elements {
		av, bv := a.data.Elements[i], b.data.Elements[i]
		if isSentinel(av, a.noData) || isSentinel(bv, b.noData) {
			out.data.Elements[i] = out.noData
			continue
		}
		out.data.Elements[i] = f(av, bv)
	}
	return nil
}

// ApplyK computes a multi-output point function across aligned grids:
// f receives the input cell values and writes its results into res
// (len(res) == len(outs)). Outputs computed together avoid recomputing
// shared intermediates for each named output.
func ApplyK(f func(vals []float64, res []float64), outs []*Grid, ins ...*Grid) error {
	if len(ins) == 0 || len(outs) == 0 {
		return fmt.Errorf("grid: ApplyK requires inputs and outputs")
	}
	for k, in := range ins {
		if err := sameShape(outs[0], in); err != nil {
			return fmt.Errorf("grid: ApplyK input %d: %w", k, err)
		}
	}
	for k, out := range outs {
		if err := sameShape(outs[0], out); err != nil {
			return fmt.Errorf("grid: ApplyK output %d: %w", k, err)
		}
	}
	vals := make([]float64, len(ins))
	res := make([]float64, len(outs))
	n := len(outs[0].data.Elements)
	for i := 0; i < n; i++ {
		valid := true
		for k, in := range ins {
			v := in.data.Elements[i]
			if isSentinel(v, in.noData) {
				valid = false
				break
			}
			vals[k] = v
		}
		if !valid {
			for _, out := range outs {
				out.data.Elements[i] = out.noData
			}
			continue
		}
		f(vals, res)
		for k, out := range outs {
			out.data.Elements[i] = res[k]
		}
	}
	return nil
}

func sameShape(a, b *Grid) error {
	if a.Rows() != b.Rows() || a.Cols() != b.Cols() {
		return fmt.Errorf("grid: shape mismatch (%d,%d) vs (%d,%d)",
			a.Rows(), a.Cols(), b.Rows(), b.Cols())
	}
	return nil
}

// isSentinel compares against the sentinel with a relative tolerance so
// that sentinels surviving float32 raster round-trips still match.
func isSentinel(v, sentinel float64) bool {
	if v == sentinel {
		return true
	}
	if sentinel == 0 {
		return false
	}
	return math.Abs(v-sentinel) < math.Abs(sentinel)*1e-7
}
