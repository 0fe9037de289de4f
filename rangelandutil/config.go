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
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// RunConfig holds the validated configuration of one simulation run.
type RunConfig struct {
	InputFile        string
	SiteTable        string
	PFTTable         string
	AnimalTable      string
	SiteInitialTable string
	PFTInitialTable  string

	StartYear  int
	StartMonth time.Month
	Months     int

	OutputDir       string
	OutputVariables []string
}

// NewRunConfig extracts and validates a run configuration from the
// configuration store. All problems found are reported together.
func NewRunConfig(cfg *viper.Viper) (*RunConfig, error) {
	rc := &RunConfig{
		StartYear: cfg.GetInt("StartYear"),
		Months:    cfg.GetInt("Months"),
		OutputDir: os.ExpandEnv(cfg.GetString("OutputDir")),
	}
	var errs []error
	inputs := []struct {
		name string
		dst  *string
	}{
		{"InputFile", &rc.InputFile},
		{"SiteTable", &rc.SiteTable},
		{"PFTTable", &rc.PFTTable},
		{"AnimalTable", &rc.AnimalTable},
		{"SiteInitialTable", &rc.SiteInitialTable},
		{"PFTInitialTable", &rc.PFTInitialTable},
	}
	for _, in := range inputs {
		p, err := checkInputFile(in.name, cfg.GetString(in.name))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		*in.dst = p
	}
	mo := cfg.GetInt("StartMonth")
	if mo < 1 || mo > 12 {
		errs = append(errs, fmt.Errorf("StartMonth is %d, want a calendar month 1-12", mo))
	} else {
		rc.StartMonth = time.Month(mo)
	}
	if rc.StartYear <= 0 {
		errs = append(errs, fmt.Errorf("StartYear is %d, want a positive year", rc.StartYear))
	}
	if rc.Months <= 0 {
		errs = append(errs, fmt.Errorf("Months is %d, want at least one simulated month", rc.Months))
	}
	if err := checkOutputDir(rc.OutputDir); err != nil {
		errs = append(errs, err)
	}
	vars, err := cast.ToStringSliceE(cfg.Get("OutputVariables"))
	if err != nil {
		errs = append(errs, fmt.Errorf("OutputVariables: %v", err))
	}
	rc.OutputVariables = vars
	if len(errs) > 0 {
		msg := "rangeland: invalid configuration:"
		for _, e := range errs {
			msg += "\n  " + e.Error()
		}
		return nil, fmt.Errorf("%s", msg)
	}
	return rc, nil
}

// checkInputFile expands environment variables in an input file path
// and makes sure the file exists.
func checkInputFile(name, path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("the %s configuration variable is not set", name)
	}
	path = os.ExpandEnv(path)
	if _, err := os.Stat(path); err != nil {
		return path, fmt.Errorf("%s: %v", name, err)
	}
	return path, nil
}

// checkOutputDir makes sure the output directory exists.
func checkOutputDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("the OutputDir configuration variable is not set")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("OutputDir: %v", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("OutputDir %s is not a directory", dir)
	}
	return nil
}
