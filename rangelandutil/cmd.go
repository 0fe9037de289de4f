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

// Package rangelandutil holds the command-line interface of the
// Rangeland model: configuration handling, model assembly from raster
// and table inputs, and NetCDF output writing.
package rangelandutil

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/spatialmodel/rangeland"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to Rangeland.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "InputFile",
			usage: `
              InputFile specifies the NetCDF file holding the input rasters:
              the site index, soil properties, latitude, stocking densities,
              and the monthly climate and vegetation drivers.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "SiteTable",
			usage: `
              SiteTable specifies the workbook of site-level parameters,
              keyed by the site ids appearing in the site index raster.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), describeCmd.Flags()},
		},
		{
			name: "PFTTable",
			usage: `
              PFTTable specifies the workbook of plant functional type
              traits. Every PFT listed in it is simulated.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), describeCmd.Flags()},
		},
		{
			name: "AnimalTable",
			usage: `
              AnimalTable specifies the workbook of grazing animal traits.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "SiteInitialTable",
			usage: `
              SiteInitialTable specifies the workbook of site-level initial
              values for the soil and mineral state variables.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "PFTInitialTable",
			usage: `
              PFTInitialTable specifies the workbook of PFT-level initial
              values for the plant state variables.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "StartYear",
			usage: `
              StartYear specifies the calendar year of the first simulated
              month.`,
			defaultVal: 2016,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "StartMonth",
			usage: `
              StartMonth specifies the calendar month (1-12) of the first
              simulated month.`,
			defaultVal: 1,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Months",
			usage: `
              Months specifies the number of months to simulate.`,
			defaultVal: 12,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "OutputDir",
			usage: `
              OutputDir specifies the directory where the monthly output
              raster files are written.`,
			defaultVal: ".",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "OutputVariables",
			usage: `
              OutputVariables specifies the variables written to the monthly
              output files. Summary variables (standing_biomass, live_fraction,
              pasture_height, diet_sufficiency) and state variables by name
              (for example aglivc_1 or minerl_1_N) are accepted.`,
			defaultVal: []string{"standing_biomass", "live_fraction", "pasture_height", "diet_sufficiency"},
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "LogLevel",
			usage: `
              LogLevel sets the logging verbosity: debug, info, warn, or
              error.`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
	}

	Cfg = viper.New()
	for _, option := range options {
		for _, set := range option.flagsets {
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case []string:
				if option.shorthand == "" {
					set.StringSlice(option.name, option.defaultVal.([]string), option.usage)
				} else {
					set.StringSliceP(option.name, option.shorthand, option.defaultVal.([]string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(runCmd)
	Root.AddCommand(describeCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("rangeland: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "rangeland",
	Short: "A gridded rangeland ecosystem model.",
	Long: `Rangeland simulates monthly forage production, soil organic matter
dynamics, and livestock grazing on a raster grid.
Use the subcommands specified below to access the model functionality.

Refer to the subcommand documentation for configuration options and default
settings. Configuration can be changed by using a configuration file (and
providing the path to the file using the --config flag) or by using
command-line arguments.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of Rangeland.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("Rangeland v%s\n", rangeland.Version)
	},
	DisableAutoGenTag: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the model.",
	Long: `run runs a Rangeland simulation for the configured number of
months, writing one output raster file per simulated month.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logrus.StandardLogger()
		level, err := logrus.ParseLevel(Cfg.GetString("LogLevel"))
		if err != nil {
			return fmt.Errorf("rangeland: %v", err)
		}
		log.SetLevel(level)

		cfg, err := NewRunConfig(Cfg)
		if err != nil {
			return err
		}
		m, err := BuildModel(cfg, log)
		if err != nil {
			return err
		}
		log.WithFields(logrus.Fields{
			"cells":   m.SiteIndex.CountValid(),
			"pfts":    len(m.PFTs),
			"animals": len(m.Density),
			"months":  cfg.Months,
		}).Info("starting simulation")
		return m.Run(cfg.Months, MonthlyOutput(cfg.OutputDir, cfg.OutputVariables))
	},
	DisableAutoGenTag: true,
}

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "List the model's state and output variables.",
	Long: `describe lists every state variable the initial-conditions tables
must supply and every derived variable available for output, for the soil
layer count and PFT ids in the configured parameter tables.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sites, err := rangeland.LoadSiteTable(Cfg.GetString("SiteTable"))
		if err != nil {
			return err
		}
		pftTable, err := rangeland.LoadPFTTable(Cfg.GetString("PFTTable"))
		if err != nil {
			return err
		}
		nLayers := 0
		for _, s := range sites {
			if s.NLayer > nLayers {
				nLayers = s.NLayer
			}
		}
		pfts := make([]int, 0, len(pftTable))
		for id := range pftTable {
			pfts = append(pfts, id)
		}
		sort.Ints(pfts)

		cmd.Println("State variables (required in the initial-conditions tables):")
		for _, k := range rangeland.RequiredStateKeys(nLayers, pfts) {
			cmd.Printf("  %s\n", k)
		}
		cmd.Println("Yearly derived variables:")
		for _, k := range rangeland.YearlyKeys(pfts) {
			cmd.Printf("  %s\n", k)
		}
		cmd.Println("Monthly summary variables:")
		for _, name := range []string{"standing_biomass", "live_fraction",
			"pasture_height", "diet_sufficiency"} {
			cmd.Printf("  %s\n", name)
		}
		return nil
	},
	DisableAutoGenTag: true,
}
