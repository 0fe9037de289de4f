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
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/spatialmodel/rangeland/grid"
)

// VegKey identifies a vegetation-fraction driver grid: one PFT in one
// absolute month.
type VegKey struct {
	PFT      int
	AbsMonth int
}

// Drivers holds the externally supplied, pre-aligned climate and
// vegetation rasters. Precipitation and vegetation fraction are monthly
// time series keyed by absolute month index; temperatures are
// climatological, keyed by calendar month.
type Drivers struct {
	Precip  map[int]*grid.Grid
	TmpMin  map[time.Month]*grid.Grid
	TmpMax  map[time.Month]*grid.Grid
	VegFrac map[VegKey]*grid.Grid
}

// precipWindowOffsets spans the year surrounding a month: five months
// back through six months forward.
const (
	precipWindowBack    = 5
	precipWindowForward = 6
)

// Validate checks that every simulated month has its drivers: min/max
// temperature for all twelve calendar months, vegetation fraction for
// every PFT and month, and precipitation for the full surrounding-year
// window of every month (required by the yearly tasks). All missing
// inputs are reported in one error.
func (d *Drivers) Validate(startYear int, startMonth time.Month, months int, pfts []int) error {
	var missing []string
	for mo := time.January; mo <= time.December; mo++ {
		if _, ok := d.TmpMin[mo]; !ok {
			missing = append(missing, fmt.Sprintf("min_temperature_%d", int(mo)))
		}
		if _, ok := d.TmpMax[mo]; !ok {
			missing = append(missing, fmt.Sprintf("max_temperature_%d", int(mo)))
		}
	}
	start := AbsMonth(startYear, startMonth)
	needPrecip := make(map[int]bool)
	for step := 0; step < months; step++ {
		abs := start + step
		for off := -precipWindowBack; off <= precipWindowForward; off++ {
			needPrecip[abs+off] = true
		}
		for _, pft := range pfts {
			if _, ok := d.VegFrac[VegKey{PFT: pft, AbsMonth: abs}]; !ok {
				y, mo := abs/12, abs%12+1
				missing = append(missing, fmt.Sprintf("veg_fraction_pft_%d_%d-%02d", pft, y, mo))
			}
		}
	}
	for abs := range needPrecip {
		if _, ok := d.Precip[abs]; !ok {
			y, mo := abs/12, abs%12+1
			missing = append(missing, fmt.Sprintf("precip_%d-%02d", y, mo))
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("rangeland: %d missing driver inputs: %s",
			len(missing), strings.Join(missing, ", "))
	}
	return nil
}

// PrecipWindow returns the twelve precipitation grids spanning the year
// surrounding the given month, oldest first. Incomplete coverage is a
// hard error enumerating the absent months.
func (d *Drivers) PrecipWindow(year int, month time.Month) ([]*grid.Grid, error) {
	center := AbsMonth(year, month)
	out := make([]*grid.Grid, 0, 12)
	var missing []string
	for off := -precipWindowBack; off <= precipWindowForward; off++ {
		g, ok := d.Precip[center+off]
		if !ok {
			abs := center + off
			missing = append(missing, fmt.Sprintf("%d-%02d", abs/12, abs%12+1))
			continue
		}
		out = append(out, g)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("rangeland: precipitation drivers missing for months: %s",
			strings.Join(missing, ", "))
	}
	return out, nil
}

// MonthPrecip returns the precipitation grid for the model's current month.
func (m *Model) MonthPrecip() (*grid.Grid, error) {
	g, ok := m.Drivers.Precip[AbsMonth(m.CurrentYear, m.CurrentMonth)]
	if !ok {
		return nil, fmt.Errorf("rangeland: no precipitation driver for %d-%02d",
			m.CurrentYear, m.CurrentMonth)
	}
	return g, nil
}

// MonthTemps returns the climatological min and max temperature grids
// for the model's current calendar month.
func (m *Model) MonthTemps() (tmin, tmax *grid.Grid, err error) {
	tmin, ok := m.Drivers.TmpMin[m.CurrentMonth]
	if !ok {
		return nil, nil, fmt.Errorf("rangeland: no min temperature driver for month %d", int(m.CurrentMonth))
	}
	tmax, ok = m.Drivers.TmpMax[m.CurrentMonth]
	if !ok {
		return nil, nil, fmt.Errorf("rangeland: no max temperature driver for month %d", int(m.CurrentMonth))
	}
	return tmin, tmax, nil
}

// MonthVegFrac returns the vegetation-fraction grid for one PFT in the
// model's current month.
func (m *Model) MonthVegFrac(pft int) (*grid.Grid, error) {
	g, ok := m.Drivers.VegFrac[VegKey{PFT: pft, AbsMonth: AbsMonth(m.CurrentYear, m.CurrentMonth)}]
	if !ok {
		return nil, fmt.Errorf("rangeland: no vegetation fraction driver for PFT %d, %d-%02d",
			pft, m.CurrentYear, m.CurrentMonth)
	}
	return g, nil
}

// columnName is the initial-conditions column for a key: the key's
// external name with the PFT suffix removed, because PFT-level tables
// are already keyed by PFT id.
func (k Key) columnName() string {
	info := varTable[k.Var]
	parts := []string{info.name}
	if info.hasLayer {
		parts = append(parts, fmt.Sprintf("%d", k.Layer))
	}
	if info.hasElem {
		parts = append(parts, k.Elem.String())
	}
	return strings.Join(parts, "_")
}

// InitialState builds the starting state registry from the site-level and
// PFT-level initial-conditions tables. Site-level variables take their
// per-cell value from the record of the cell's site id; PFT-level
// variables are uniform over valid cells. A missing entry for any
// required variable is a hard error enumerating exactly which variables
// are absent.
func InitialState(m *Model, siteInit map[int]ParamRow, pftInit map[int]ParamRow) (*Reg, error) {
	required := RequiredStateKeys(m.MaxNLayer(), m.PFTs)
	var missing []string
	siteVals := make(map[Key]map[int]float64)
	pftVals := make(map[Key]float64)

	for _, k := range required {
		col := strings.ToLower(k.columnName())
		if varTable[k.Var].hasPFT {
			row, ok := pftInit[k.PFT]
			if !ok {
				missing = append(missing, fmt.Sprintf("%s (no PFT row %d)", k.String(), k.PFT))
				continue
			}
			s, ok := row[col]
			if !ok || strings.TrimSpace(s) == "" {
				missing = append(missing, k.String())
				continue
			}
			v, err := cast.ToFloat64E(strings.TrimSpace(s))
			if err != nil {
				return nil, fmt.Errorf("rangeland: PFT initial conditions, PFT %d, %s: bad value %q", k.PFT, col, s)
			}
			pftVals[k] = v
			continue
		}
		vals := make(map[int]float64)
		complete := len(siteInit) > 0
		for id, row := range siteInit {
			s, ok := row[col]
			if !ok || strings.TrimSpace(s) == "" {
				complete = false
				break
			}
			v, err := cast.ToFloat64E(strings.TrimSpace(s))
			if err != nil {
				return nil, fmt.Errorf("rangeland: site initial conditions, site %d, %s: bad value %q", id, col, s)
			}
			vals[id] = v
		}
		if !complete {
			missing = append(missing, k.String())
			continue
		}
		siteVals[k] = vals
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("rangeland: initial-conditions tables are missing %d state variables: %s",
			len(missing), strings.Join(missing, ", "))
	}

	reg := NewReg(m.Rows, m.Cols, grid.NoDataState)
	for _, k := range required {
		g := grid.Zeros(m.Rows, m.Cols, grid.NoDataState)
		if varTable[k.Var].hasPFT {
			v := pftVals[k]
			if err := grid.Apply(func(vals ...float64) float64 { return v },
				g, m.SiteIndex); err != nil {
				return nil, err
			}
		} else {
			vals := siteVals[k]
			if err := grid.Apply(func(cells ...float64) float64 {
				v, ok := vals[int(cells[0])]
				if !ok {
					return grid.NoDataState
				}
				return v
			}, g, m.SiteIndex); err != nil {
				return nil, err
			}
		}
		if err := reg.Set(k, g); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// LoadInitialTables loads the site- and PFT-level initial-conditions
// workbooks, keyed by "site" and "pft" columns respectively.
func LoadInitialTables(sitePath, pftPath string) (map[int]ParamRow, map[int]ParamRow, error) {
	siteInit, err := readSheet(sitePath, "site")
	if err != nil {
		return nil, nil, err
	}
	pftInit, err := readSheet(pftPath, "pft")
	if err != nil {
		return nil, nil, err
	}
	return siteInit, pftInit, nil
}
