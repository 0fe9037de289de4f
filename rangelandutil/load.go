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
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ctessum/cdf"
	"github.com/sirupsen/logrus"

	"github.com/spatialmodel/rangeland"
	"github.com/spatialmodel/rangeland/grid"
	"github.com/spatialmodel/rangeland/science/decomp"
	"github.com/spatialmodel/rangeland/science/grazing"
	"github.com/spatialmodel/rangeland/science/production"
	"github.com/spatialmodel/rangeland/science/soilwater"
)

// Static raster variables expected in the input NetCDF file. Latitude
// is in decimal degrees; the soil fractions are unitless and bulk
// density is g/cm3.
var staticRasterVars = []string{
	"site_index", "sand", "silt", "clay", "bulk_density", "ph", "latitude",
}

// Monthly driver variables follow a name_index convention:
// precip_<absolute month>, min_temperature_<1..12>,
// max_temperature_<1..12>, veg_fraction_pft_<pft>_<absolute month>, and
// animal_density_<animal id>, where the absolute month index is
// year*12+month-1.
const (
	precipPrefix  = "precip_"
	tminPrefix    = "min_temperature_"
	tmaxPrefix    = "max_temperature_"
	vegPrefix     = "veg_fraction_pft_"
	densityPrefix = "animal_density_"
)

// BuildModel assembles a ready-to-run model from the configured
// parameter tables and the input raster file.
func BuildModel(cfg *RunConfig, log *logrus.Logger) (*rangeland.Model, error) {
	sites, err := rangeland.LoadSiteTable(cfg.SiteTable)
	if err != nil {
		return nil, err
	}
	pftTable, err := rangeland.LoadPFTTable(cfg.PFTTable)
	if err != nil {
		return nil, err
	}
	animals, err := rangeland.LoadAnimalTable(cfg.AnimalTable)
	if err != nil {
		return nil, err
	}
	pfts := make([]int, 0, len(pftTable))
	for id := range pftTable {
		pfts = append(pfts, id)
	}
	sort.Ints(pfts)

	f, err := os.Open(cfg.InputFile)
	if err != nil {
		return nil, fmt.Errorf("rangeland: opening input rasters: %v", err)
	}
	defer f.Close()
	ff, err := cdf.Open(f)
	if err != nil {
		return nil, fmt.Errorf("rangeland: reading input rasters %s: %v", cfg.InputFile, err)
	}

	m := &rangeland.Model{
		Sites:      sites,
		PFTs:       pfts,
		PFTTable:   pftTable,
		Animals:    animals,
		StartYear:  cfg.StartYear,
		StartMonth: cfg.StartMonth,
		Log:        log,
	}
	if err := readStaticRasters(ff, m); err != nil {
		return nil, err
	}
	if m.Drivers, m.Density, err = readDrivers(ff, m.Rows, m.Cols); err != nil {
		return nil, err
	}

	siteInit, pftInit, err := rangeland.LoadInitialTables(cfg.SiteInitialTable, cfg.PFTInitialTable)
	if err != nil {
		return nil, err
	}
	if m.Prev, err = rangeland.InitialState(m, siteInit, pftInit); err != nil {
		return nil, err
	}

	n := m.MaxNLayer()
	m.Pipeline, err = rangeland.NewPipeline(
		rangeland.RequiredStateKeys(n, pfts),
		rangeland.YearlyKeys(pfts),
		soilwater.Stage(n),
		production.Stage(pfts),
		grazing.SenescenceStage(pfts),
		grazing.GrazingStage(pfts),
		decomp.Stage(n),
	)
	if err != nil {
		return nil, err
	}
	if err := m.Init(cfg.Months); err != nil {
		return nil, err
	}
	return m, nil
}

// readStaticRasters fills the model's site index and soil rasters, and
// sets the model shape from the site index.
func readStaticRasters(ff *cdf.File, m *rangeland.Model) error {
	grids := make(map[string]*grid.Grid, len(staticRasterVars))
	for _, name := range staticRasterVars {
		g, err := readNCF(name, ff, grid.NoDataState)
		if err != nil {
			return err
		}
		grids[name] = g
	}
	m.SiteIndex = grids["site_index"]
	m.Rows, m.Cols = m.SiteIndex.Rows(), m.SiteIndex.Cols()
	for _, name := range staticRasterVars {
		if g := grids[name]; g.Rows() != m.Rows || g.Cols() != m.Cols {
			return fmt.Errorf("rangeland: raster %s is %dx%d, site index is %dx%d",
				name, g.Rows(), g.Cols(), m.Rows, m.Cols)
		}
	}
	lat := grids["latitude"]
	if err := grid.Apply(func(vals ...float64) float64 {
		return vals[0] * math.Pi / 180
	}, lat, lat); err != nil {
		return err
	}
	m.Soil = rangeland.Soil{
		Sand:     grids["sand"],
		Silt:     grids["silt"],
		Clay:     grids["clay"],
		BulkD:    grids["bulk_density"],
		PH:       grids["ph"],
		Latitude: lat,
	}
	return nil
}

// readDrivers scans the input file's variable names for the monthly
// driver and stocking-density rasters.
func readDrivers(ff *cdf.File, rows, cols int) (*rangeland.Drivers, map[int]*grid.Grid, error) {
	d := &rangeland.Drivers{
		Precip:  make(map[int]*grid.Grid),
		TmpMin:  make(map[time.Month]*grid.Grid),
		TmpMax:  make(map[time.Month]*grid.Grid),
		VegFrac: make(map[rangeland.VegKey]*grid.Grid),
	}
	density := make(map[int]*grid.Grid)
	for _, name := range ff.Header.Variables() {
		var abs, mo, pft, animal int
		var err error
		switch {
		case strings.HasPrefix(name, precipPrefix):
			if abs, err = strconv.Atoi(strings.TrimPrefix(name, precipPrefix)); err != nil {
				return nil, nil, fmt.Errorf("rangeland: driver raster %s: bad month index", name)
			}
			if d.Precip[abs], err = readDriver(ff, name, rows, cols); err != nil {
				return nil, nil, err
			}
		case strings.HasPrefix(name, tminPrefix):
			if mo, err = calendarMonth(strings.TrimPrefix(name, tminPrefix)); err != nil {
				return nil, nil, fmt.Errorf("rangeland: driver raster %s: %v", name, err)
			}
			if d.TmpMin[time.Month(mo)], err = readDriver(ff, name, rows, cols); err != nil {
				return nil, nil, err
			}
		case strings.HasPrefix(name, tmaxPrefix):
			if mo, err = calendarMonth(strings.TrimPrefix(name, tmaxPrefix)); err != nil {
				return nil, nil, fmt.Errorf("rangeland: driver raster %s: %v", name, err)
			}
			if d.TmpMax[time.Month(mo)], err = readDriver(ff, name, rows, cols); err != nil {
				return nil, nil, err
			}
		case strings.HasPrefix(name, vegPrefix):
			parts := strings.Split(strings.TrimPrefix(name, vegPrefix), "_")
			if len(parts) != 2 {
				return nil, nil, fmt.Errorf("rangeland: driver raster %s: want %s<pft>_<month index>", name, vegPrefix)
			}
			if pft, err = strconv.Atoi(parts[0]); err != nil {
				return nil, nil, fmt.Errorf("rangeland: driver raster %s: bad PFT id", name)
			}
			if abs, err = strconv.Atoi(parts[1]); err != nil {
				return nil, nil, fmt.Errorf("rangeland: driver raster %s: bad month index", name)
			}
			k := rangeland.VegKey{PFT: pft, AbsMonth: abs}
			if d.VegFrac[k], err = readDriver(ff, name, rows, cols); err != nil {
				return nil, nil, err
			}
		case strings.HasPrefix(name, densityPrefix):
			if animal, err = strconv.Atoi(strings.TrimPrefix(name, densityPrefix)); err != nil {
				return nil, nil, fmt.Errorf("rangeland: driver raster %s: bad animal id", name)
			}
			if density[animal], err = readDriver(ff, name, rows, cols); err != nil {
				return nil, nil, err
			}
		}
	}
	return d, density, nil
}

func readDriver(ff *cdf.File, name string, rows, cols int) (*grid.Grid, error) {
	g, err := readNCF(name, ff, grid.NoDataState)
	if err != nil {
		return nil, err
	}
	if g.Rows() != rows || g.Cols() != cols {
		return nil, fmt.Errorf("rangeland: driver raster %s is %dx%d, site index is %dx%d",
			name, g.Rows(), g.Cols(), rows, cols)
	}
	return g, nil
}

func calendarMonth(s string) (int, error) {
	mo, err := strconv.Atoi(s)
	if err != nil || mo < 1 || mo > 12 {
		return 0, fmt.Errorf("bad calendar month %q", s)
	}
	return mo, nil
}
