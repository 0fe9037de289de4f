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
	"path/filepath"

	"github.com/spatialmodel/rangeland"
	"github.com/spatialmodel/rangeland/grid"
)

// MonthlyOutput returns a month-end callback writing the requested
// variables to one NetCDF file per simulated month. Variable names are
// resolved against the month's derived quantities first and the
// persistent state second, so "standing_biomass" and "aglivc_1" both
// work. An unresolvable name is a hard error on the first month.
func MonthlyOutput(dir string, variables []string) func(m *rangeland.Model) error {
	return func(m *rangeland.Model) error {
		grids := make([]*grid.Grid, 0, len(variables))
		for _, name := range variables {
			g, err := resolveOutput(m, name)
			if err != nil {
				return err
			}
			grids = append(grids, g)
		}
		path := filepath.Join(dir, fmt.Sprintf("rangeland_%d-%02d.nc",
			m.CurrentYear, int(m.CurrentMonth)))
		if err := writeRasterFile(path, variables, grids); err != nil {
			return err
		}
		m.Log.WithField("file", path).Debug("wrote monthly output")
		return nil
	}
}

func resolveOutput(m *rangeland.Model, name string) (*grid.Grid, error) {
	for _, reg := range []*rangeland.Reg{m.Month, m.Cur} {
		for _, k := range reg.Keys() {
			if k.String() == name {
				return reg.Grid(k)
			}
		}
	}
	return nil, fmt.Errorf("rangeland: output variable %q matches no derived or state variable", name)
}
