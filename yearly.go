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
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/spatialmodel/rangeland/grid"
)

// yearlyTasks recomputes the quantities held constant over a calendar
// year: annual precipitation over the surrounding twelve months,
// baseline atmospheric N deposition, and residue lignin fractions.
func (m *Model) yearlyTasks() error {
	m.Year = NewReg(m.Rows, m.Cols, grid.NoDataIntermediate)

	window, err := m.Drivers.PrecipWindow(m.CurrentYear, m.CurrentMonth)
	if err != nil {
		return err
	}
	aprecip, err := m.Year.Provide(K(AnnualPrecip))
	if err != nil {
		return err
	}
	if err := grid.Apply(func(vals ...float64) float64 {
		return floats.Sum(vals)
	}, aprecip, window...); err != nil {
		return err
	}

	// N deposition saturates at 80 cm of annual precipitation.
	ndep, err := m.Year.Provide(K(BaseNDep))
	if err != nil {
		return err
	}
	epnfa1 := m.SiteGrid(func(s *SiteParams) float64 { return s.Epnfa1 })
	epnfa2 := m.SiteGrid(func(s *SiteParams) float64 { return s.Epnfa2 })
	if err := grid.Apply(func(vals ...float64) float64 {
		return math.Max(vals[0]+vals[1]*math.Min(vals[2], 80), 0)
	}, ndep, epnfa1, epnfa2, aprecip); err != nil {
		return err
	}

	for _, pft := range m.PFTs {
		p, err := m.PFT(pft)
		if err != nil {
			return err
		}
		above, err := m.Year.Provide(KP(PltLigAbove, pft))
		if err != nil {
			return err
		}
		below, err := m.Year.Provide(KP(PltLigBelow, pft))
		if err != nil {
			return err
		}
		if err := grid.Apply(func(vals ...float64) float64 {
			return clampLignin(p.FligniAbove[0] + p.FligniAbove[1]*vals[0])
		}, above, aprecip); err != nil {
			return err
		}
		if err := grid.Apply(func(vals ...float64) float64 {
			return clampLignin(p.FligniBelow[0] + p.FligniBelow[1]*vals[0])
		}, below, aprecip); err != nil {
			return err
		}
	}
	return nil
}

// clampLignin bounds a lignin fraction to its physical range.
func clampLignin(v float64) float64 {
	if v < 0.02 {
		return 0.02
	}
	if v > 0.5 {
		return 0.5
	}
	return v
}
