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

package rangelandutil

import (
	"fmt"
	"os"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"

	"github.com/spatialmodel/rangeland/grid"
)

// rasterNoData is the no-data sentinel used in input and output NetCDF
// rasters. Input cells equal to it become no-data in the model grids;
// model no-data cells become it on output.
const rasterNoData = grid.NoDataTarget

// readNCF reads the named two-dimensional variable out of NetCDF file
// ff into a raster with the given model no-data sentinel.
func readNCF(name string, ff *cdf.File, noData float64) (*grid.Grid, error) {
	dims := ff.Header.Lengths(name)
	if len(dims) == 0 {
		return nil, fmt.Errorf("rangeland: read netcdf: variable %v not in file", name)
	}
	if len(dims) != 2 {
		return nil, fmt.Errorf("rangeland: read netcdf: variable %v has %d dimensions, want 2",
			name, len(dims))
	}
	nread := dims[0] * dims[1]
	r := ff.Reader(name, nil, nil)
	buf := r.Zero(nread)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("rangeland: read netcdf variable %s: %v", name, err)
	}
	data := sparse.ZerosDense(dims...)
	for i, val := range buf.([]float32) {
		v := float64(val)
		if v == rasterNoData {
			v = noData
		}
		data.Elements[i] = v
	}
	return grid.FromDense(data, noData)
}

// writeNCF writes a raster into NetCDF file f under the already-defined
// variable Var, translating model no-data cells to the raster sentinel.
func writeNCF(f *cdf.File, Var string, g *grid.Grid) error {
	data32 := make([]float32, 0, g.Rows()*g.Cols())
	for r := 0; r < g.Rows(); r++ {
		for c := 0; c < g.Cols(); c++ {
			if g.IsNoData(r, c) {
				data32 = append(data32, float32(rasterNoData))
				continue
			}
			data32 = append(data32, float32(g.Get(r, c)))
		}
	}
	end := f.Header.Lengths(Var)
	start := make([]int, len(end))
	w := f.Writer(Var, start, end)
	if _, err := w.Write(data32); err != nil {
		return err
	}
	return nil
}

// writeRasterFile creates a NetCDF file holding the named rasters, all
// of which must share one shape.
func writeRasterFile(path string, names []string, grids []*grid.Grid) error {
	if len(names) != len(grids) {
		return fmt.Errorf("rangeland: write netcdf: %d names for %d rasters", len(names), len(grids))
	}
	if len(grids) == 0 {
		return fmt.Errorf("rangeland: write netcdf: no rasters to write")
	}
	rows, cols := grids[0].Rows(), grids[0].Cols()
	h := cdf.NewHeader([]string{"y", "x"}, []int{rows, cols})
	h.AddAttribute("", "comment", "Rangeland model output")
	h.AddAttribute("", "no_data", []float64{rasterNoData})
	for _, name := range names {
		h.AddVariable(name, []string{"y", "x"}, []float32{0})
	}
	h.Define()

	w, err := os.Create(path)
	if err != nil {
		return err
	}
	defer w.Close()
	f, err := cdf.Create(w, h)
	if err != nil {
		return err
	}
	for i, name := range names {
		if grids[i].Rows() != rows || grids[i].Cols() != cols {
			return fmt.Errorf("rangeland: write netcdf: raster %s is %dx%d, file is %dx%d",
				name, grids[i].Rows(), grids[i].Cols(), rows, cols)
		}
		if err := writeNCF(f, name, grids[i]); err != nil {
			return fmt.Errorf("rangeland: write netcdf variable %s: %v", name, err)
		}
	}
	return cdf.UpdateNumRecs(w)
}
