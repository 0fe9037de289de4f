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

package rangeland

import (
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/spatialmodel/rangeland/grid"
)

// BiomassPerCarbon converts carbon pools [g C/m2] to dry-matter biomass
// [g/m2].
const BiomassPerCarbon = 2.5

// heightPerBiomass converts standing biomass [g/m2] to a sward-height
// proxy [cm].
const heightPerBiomass = 0.035

// summarize derives the per-month reporting grids from the finalized
// current state: total standing biomass, live fraction, pasture height.
// Grid-wide aggregates are logged.
func (m *Model) summarize() error {
	biomass, err := m.Month.Provide(K(StandingBiomass))
	if err != nil {
		return err
	}
	liveFrac, err := m.Month.Provide(K(LiveFrac))
	if err != nil {
		return err
	}
	height, err := m.Month.Provide(K(PastureHeight))
	if err != nil {
		return err
	}

	var liveGrids, totalGrids []*grid.Grid
	for _, pft := range m.PFTs {
		ag, err := m.Cur.Grid(KP(AGLivC, pft))
		if err != nil {
			return err
		}
		sd, err := m.Cur.Grid(KP(StdedC, pft))
		if err != nil {
			return err
		}
		liveGrids = append(liveGrids, ag)
		totalGrids = append(totalGrids, ag, sd)
	}
	if err := grid.Apply(func(vals ...float64) float64 {
		return floats.Sum(vals) * BiomassPerCarbon
	}, biomass, totalGrids...); err != nil {
		return err
	}
	live := grid.Zeros(m.Rows, m.Cols, grid.NoDataIntermediate)
	if err := grid.Apply(func(vals ...float64) float64 {
		return floats.Sum(vals) * BiomassPerCarbon
	}, live, liveGrids...); err != nil {
		return err
	}
	if err := grid.Apply2(func(l, tot float64) float64 {
		if tot <= 0 {
			return 0
		}
		return l / tot
	}, liveFrac, live, biomass); err != nil {
		return err
	}
	if err := grid.Apply(func(vals ...float64) float64 {
		return vals[0] * heightPerBiomass
	}, height, biomass); err != nil {
		return err
	}

	fields := logrus.Fields{}
	addStats(fields, "biomass", biomass)
	if m.Month.Has(K(DietSuff)) {
		ds, err := m.Month.Grid(K(DietSuff))
		if err != nil {
			return err
		}
		addStats(fields, "diet_sufficiency", ds)
	}
	m.Log.WithFields(fields).Debug("monthly summary")
	return nil
}

// addStats appends mean and standard deviation of a grid's valid cells
// to a log field set.
func addStats(fields logrus.Fields, name string, g *grid.Grid) {
	var vals []float64
	for r := 0; r < g.Rows(); r++ {
		for c := 0; c < g.Cols(); c++ {
			if !g.IsNoData(r, c) {
				vals = append(vals, g.Get(r, c))
			}
		}
	}
	if len(vals) == 0 {
		return
	}
	mean, std := stat.MeanStdDev(vals, nil)
	fields[name+"_mean"] = mean
	fields[name+"_std"] = std
}
