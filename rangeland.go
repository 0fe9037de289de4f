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
	"time"

	"github.com/sirupsen/logrus"

	"github.com/spatialmodel/rangeland/grid"
)

// Soil holds the static soil-property and location rasters. All grids
// share the model shape and the state no-data sentinel.
type Soil struct {
	Sand     *grid.Grid // sand fraction
	Silt     *grid.Grid // silt fraction
	Clay     *grid.Grid // clay fraction
	BulkD    *grid.Grid // bulk density [g/cm3]
	PH       *grid.Grid
	Latitude *grid.Grid // [radians]
}

// Model holds the full state of a simulation: static inputs, parameter
// tables, the previous/current state registries, and the monthly pipeline.
type Model struct {
	Rows, Cols int

	// SiteIndex maps each cell to an integer site id; Sites holds the
	// site parameter record for each id.
	SiteIndex *grid.Grid
	Sites     map[int]*SiteParams

	// PFTs lists the modeled plant functional types; PFTTable holds
	// their trait records.
	PFTs     []int
	PFTTable map[int]*PFTParams

	// Animals holds grazing-animal trait records; Density maps animal id
	// to a stocking-density grid [animals/ha].
	Animals map[int]*AnimalParams
	Density map[int]*grid.Grid

	Soil    Soil
	Drivers *Drivers

	StartYear  int
	StartMonth time.Month

	// Prev is the finalized state of the previous month; Cur is the
	// in-progress state of the current month. Stages read Prev, write
	// Cur, and never mutate Prev. Month and Year hold intra-month and
	// intra-year derived quantities.
	Prev  *Reg
	Cur   *Reg
	Month *Reg
	Year  *Reg

	// Calendar position of the month being simulated.
	CurrentYear  int
	CurrentMonth time.Month
	StepIndex    int

	Pipeline *Pipeline

	Log *logrus.Logger
}

// Stage is one phase of the monthly simulation. Requires lists the
// monthly-intermediate keys the stage reads; Provides lists the keys it
// writes into the month registry. State-registry and yearly keys are
// implicitly available to every stage.
type Stage struct {
	Name     string
	Requires []Key
	Provides []Key
	Run      func(m *Model) error
}

// Pipeline is a validated, ordered sequence of stages. Construction
// fails if any stage requires a key that no earlier stage provides, so
// an accidental reordering is caught before the first month runs.
type Pipeline struct {
	Stages []Stage
}

// NewPipeline validates stage ordering. stateKeys and yearlyKeys are
// treated as available from the start.
func NewPipeline(stateKeys, yearlyKeys []Key, stages ...Stage) (*Pipeline, error) {
	available := make(map[Key]bool)
	for _, k := range stateKeys {
		available[k] = true
	}
	for _, k := range yearlyKeys {
		available[k] = true
	}
	provider := make(map[Key]string)
	for _, st := range stages {
		for _, k := range st.Requires {
			if !available[k] {
				return nil, fmt.Errorf("rangeland: pipeline: stage %q requires %q, which no earlier stage provides",
					st.Name, k.String())
			}
		}
		for _, k := range st.Provides {
			if prev, ok := provider[k]; ok {
				return nil, fmt.Errorf("rangeland: pipeline: %q provided by both %q and %q",
					k.String(), prev, st.Name)
			}
			provider[k] = st.Name
			available[k] = true
		}
	}
	return &Pipeline{Stages: stages}, nil
}

// AbsMonth converts a calendar position to an absolute month index used
// to key monthly driver inputs.
func AbsMonth(year int, month time.Month) int {
	return year*12 + int(month) - 1
}

// calendarAt returns the calendar position of simulation step.
func calendarAt(startYear int, startMonth time.Month, step int) (int, time.Month) {
	abs := AbsMonth(startYear, startMonth) + step
	return abs / 12, time.Month(abs%12 + 1)
}

// MaxNLayer returns the largest soil layer count across the site table.
func (m *Model) MaxNLayer() int {
	n := 0
	for _, s := range m.Sites {
		if s.NLayer > n {
			n = s.NLayer
		}
	}
	return n
}

// SiteGrid materializes a per-cell raster of one site-level parameter by
// looking each cell's site id up in the site table. Cells whose site id
// has no record become no-data; Init has already verified that none exist.
func (m *Model) SiteGrid(f func(*SiteParams) float64) *grid.Grid {
	out := grid.Zeros(m.Rows, m.Cols, grid.NoDataIntermediate)
	// error ignored: out is shaped to match SiteIndex.
	grid.Apply(func(vals ...float64) float64 {
		s, ok := m.Sites[int(vals[0])]
		if !ok {
			return grid.NoDataIntermediate
		}
		return f(s)
	}, out, m.SiteIndex)
	return out
}

// EachCell calls f for every cell that carries a valid site id, passing
// the cell's site parameter record. Cells outside the study area are
// skipped; stage outputs there keep their no-data fill.
func (m *Model) EachCell(f func(r, c int, site *SiteParams) error) error {
	for r := 0; r < m.Rows; r++ {
		for c := 0; c < m.Cols; c++ {
			if m.SiteIndex.IsNoData(r, c) {
				continue
			}
			site, ok := m.Sites[int(m.SiteIndex.Get(r, c))]
			if !ok {
				continue
			}
			if err := f(r, c, site); err != nil {
				return err
			}
		}
	}
	return nil
}

// PFT returns the trait record for a PFT id.
func (m *Model) PFT(id int) (*PFTParams, error) {
	p, ok := m.PFTTable[id]
	if !ok {
		return nil, fmt.Errorf("rangeland: no trait record for PFT %d", id)
	}
	return p, nil
}

// Init validates the model before the first month: initial conditions
// must supply every required state variable, drivers must cover the run,
// every site id on the grid must have a parameter record, and a pipeline
// must be installed. Validation failures are permanent; there is no
// retry or partial-run mode.
func (m *Model) Init(months int) error {
	if m.Log == nil {
		m.Log = logrus.StandardLogger()
	}
	if m.Pipeline == nil {
		return fmt.Errorf("rangeland: no pipeline installed")
	}
	if m.Prev == nil {
		return fmt.Errorf("rangeland: no initial state registry")
	}
	required := RequiredStateKeys(m.MaxNLayer(), m.PFTs)
	if missing := m.Prev.Missing(required); len(missing) > 0 {
		names := make([]string, len(missing))
		for i, k := range missing {
			names[i] = k.String()
		}
		return fmt.Errorf("rangeland: initial conditions are missing %d state variables: %v",
			len(missing), names)
	}
	if err := m.validateSiteIndex(); err != nil {
		return err
	}
	for _, id := range m.PFTs {
		if _, ok := m.PFTTable[id]; !ok {
			return fmt.Errorf("rangeland: no trait record for PFT %d", id)
		}
	}
	for id := range m.Density {
		if _, ok := m.Animals[id]; !ok {
			return fmt.Errorf("rangeland: stocking density given for animal %d, which has no trait record", id)
		}
	}
	if m.Drivers == nil {
		return fmt.Errorf("rangeland: no driver inputs")
	}
	return m.Drivers.Validate(m.StartYear, m.StartMonth, months, m.PFTs)
}

func (m *Model) validateSiteIndex() error {
	if m.SiteIndex == nil {
		return fmt.Errorf("rangeland: no site index raster")
	}
	seen := make(map[int]bool)
	for r := 0; r < m.Rows; r++ {
		for c := 0; c < m.Cols; c++ {
			if m.SiteIndex.IsNoData(r, c) {
				continue
			}
			id := int(m.SiteIndex.Get(r, c))
			if seen[id] {
				continue
			}
			seen[id] = true
			if _, ok := m.Sites[id]; !ok {
				return fmt.Errorf("rangeland: site index raster references site %d, which has no parameter record", id)
			}
		}
	}
	return nil
}

// Run advances the simulation by the given number of months. after, if
// non-nil, is called with the finalized state at the end of each month
// (the driver uses it to persist outputs). Months are strictly
// sequential: month N's current state becomes month N+1's previous state.
func (m *Model) Run(months int, after func(m *Model) error) error {
	for step := 0; step < months; step++ {
		year, month := calendarAt(m.StartYear, m.StartMonth, step)
		m.CurrentYear, m.CurrentMonth, m.StepIndex = year, month, step

		m.Month = NewReg(m.Rows, m.Cols, grid.NoDataIntermediate)
		if step == 0 || month == time.January {
			if err := m.yearlyTasks(); err != nil {
				return fmt.Errorf("rangeland: %d-%02d: %w", year, month, err)
			}
		}
		m.Cur = m.Prev.Clone()

		start := time.Now()
		for _, st := range m.Pipeline.Stages {
			if err := st.Run(m); err != nil {
				return fmt.Errorf("rangeland: %d-%02d: stage %q: %w", year, month, st.Name, err)
			}
		}
		if err := m.summarize(); err != nil {
			return fmt.Errorf("rangeland: %d-%02d: summary: %w", year, month, err)
		}
		m.Log.WithFields(logrus.Fields{
			"year":    year,
			"month":   int(month),
			"elapsed": time.Since(start).Round(time.Millisecond),
		}).Info("month complete")

		if after != nil {
			if err := after(m); err != nil {
				return fmt.Errorf("rangeland: %d-%02d: output: %w", year, month, err)
			}
		}
		m.Prev, m.Cur, m.Month = m.Cur, nil, nil
	}
	return nil
}
