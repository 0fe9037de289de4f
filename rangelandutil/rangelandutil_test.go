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
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ctessum/cdf"
	"github.com/spf13/viper"

	"github.com/spatialmodel/rangeland/grid"
)

func TestNewRunConfigReportsAllProblems(t *testing.T) {
	cfg := viper.New()
	cfg.Set("StartYear", 2016)
	cfg.Set("StartMonth", 13)
	cfg.Set("Months", 0)
	cfg.Set("OutputDir", filepath.Join(t.TempDir(), "does-not-exist"))
	_, err := NewRunConfig(cfg)
	if err == nil {
		t.Fatal("empty configuration should fail validation")
	}
	for _, want := range []string{"InputFile", "SiteTable", "PFTTable", "AnimalTable",
		"SiteInitialTable", "PFTInitialTable", "StartMonth", "Months", "OutputDir"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error does not mention %s:\n%v", want, err)
		}
	}
}

func TestNewRunConfigValid(t *testing.T) {
	dir := t.TempDir()
	cfg := viper.New()
	for _, name := range []string{"InputFile", "SiteTable", "PFTTable", "AnimalTable",
		"SiteInitialTable", "PFTInitialTable"} {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		cfg.Set(name, p)
	}
	cfg.Set("StartYear", 2016)
	cfg.Set("StartMonth", 11)
	cfg.Set("Months", 24)
	cfg.Set("OutputDir", dir)
	cfg.Set("OutputVariables", []string{"standing_biomass"})
	rc, err := NewRunConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if rc.StartMonth != time.November {
		t.Errorf("start month = %v, want November", rc.StartMonth)
	}
	if len(rc.OutputVariables) != 1 || rc.OutputVariables[0] != "standing_biomass" {
		t.Errorf("output variables = %v", rc.OutputVariables)
	}
}

func TestCalendarMonth(t *testing.T) {
	if mo, err := calendarMonth("7"); err != nil || mo != 7 {
		t.Errorf("calendarMonth(7) = %d, %v", mo, err)
	}
	for _, bad := range []string{"0", "13", "x"} {
		if _, err := calendarMonth(bad); err == nil {
			t.Errorf("calendarMonth(%q) should fail", bad)
		}
	}
}

// TestRasterRoundTrip writes rasters to a NetCDF file and reads them
// back, checking the no-data sentinel translation in both directions.
func TestRasterRoundTrip(t *testing.T) {
	g := grid.Zeros(2, 3, grid.NoDataState)
	g.Set(1.5, 0, 0)
	g.Set(-2.25, 1, 2)
	g.Set(grid.NoDataState, 0, 2)

	path := filepath.Join(t.TempDir(), "out.nc")
	if err := writeRasterFile(path, []string{"biomass"}, []*grid.Grid{g}); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	ff, err := cdf.Open(f)
	if err != nil {
		t.Fatal(err)
	}
	got, err := readNCF("biomass", ff, grid.NoDataState)
	if err != nil {
		t.Fatal(err)
	}
	if got.Rows() != 2 || got.Cols() != 3 {
		t.Fatalf("shape = %dx%d, want 2x3", got.Rows(), got.Cols())
	}
	if got.Get(0, 0) != 1.5 || got.Get(1, 2) != -2.25 {
		t.Errorf("values = %g, %g, want 1.5, -2.25", got.Get(0, 0), got.Get(1, 2))
	}
	if !got.IsNoData(0, 2) {
		t.Errorf("no-data cell read back as %g", got.Get(0, 2))
	}
	if got.IsNoData(1, 0) {
		t.Error("zero cell read back as no-data")
	}

	if _, err := readNCF("missing", ff, grid.NoDataState); err == nil {
		t.Error("reading an absent variable should fail")
	}
}

func TestWriteRasterFileShapeMismatch(t *testing.T) {
	a := grid.Zeros(2, 2, grid.NoDataState)
	b := grid.Zeros(3, 2, grid.NoDataState)
	path := filepath.Join(t.TempDir(), "out.nc")
	if err := writeRasterFile(path, []string{"a", "b"}, []*grid.Grid{a, b}); err == nil {
		t.Error("mismatched raster shapes should fail")
	}
}
