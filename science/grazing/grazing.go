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

// Package grazing implements plant senescence and livestock grazing:
// the transition of live biomass to standing dead, digestibility-ordered
// diet selection across feed types, biomass removal with nutrient
// return through feces and urine, and the diet-sufficiency output.
package grazing

import (
	"math"
	"sort"
)

// daysPerMonth is the average month length used to scale daily animal
// rates.
const daysPerMonth = 30.44

// proteinPerN converts nitrogen content to crude protein.
const proteinPerN = 6.25

// SenescenceDeathFraction is the fraction of live aboveground material
// dying in the senescence month: a base rate, increased by water stress
// and by self-shading above a biomass threshold, capped at the maximum
// death rate. fsdeth is (base rate, maximum rate, stress increment,
// shading biomass threshold); h2ogef is the month's water limitation
// factor in [0, 1].
func SenescenceDeathFraction(fsdeth [4]float64, h2ogef, agBiomass float64) float64 {
	fdeth := fsdeth[0] + fsdeth[2]*(1-h2ogef)
	if agBiomass > fsdeth[3] {
		fdeth += fsdeth[2]
	}
	if fdeth > fsdeth[1] {
		fdeth = fsdeth[1]
	}
	if fdeth < 0 {
		return 0
	}
	if fdeth > 1 {
		return 1
	}
	return fdeth
}

// Digestibility is the linear regression of dry-matter digestibility on
// crude protein concentration, clamped to the animal's digestibility
// bounds.
func Digestibility(crudeProtein, intercept, slope, min, max float64) float64 {
	d := intercept + slope*crudeProtein
	if d < min {
		return min
	}
	if d > max {
		return max
	}
	return d
}

// CrudeProtein is the crude protein concentration of a feed from its
// nitrogen content and biomass [both g/m2].
func CrudeProtein(nContent, biomass float64) float64 {
	if biomass <= 0 {
		return 0
	}
	return proteinPerN * nContent / biomass
}

// MEContent is the metabolizable energy of a feed [MJ/kg dry matter]
// from its digestibility.
func MEContent(digestibility float64) float64 {
	me := 17.2*digestibility - 1.71
	if me < 0 {
		return 0
	}
	return me
}

// IntakeCapacity is an animal's daily dry-matter intake capacity
// [kg/day] from its metabolic weight.
func IntakeCapacity(intakeCoef, weight float64) float64 {
	return intakeCoef * math.Pow(weight, 0.75)
}

// MaintenanceEnergy is an animal's daily maintenance energy requirement
// [MJ/day] from its metabolic weight.
func MaintenanceEnergy(emaintCoef, weight float64) float64 {
	return emaintCoef * math.Pow(weight, 0.75)
}

// Feed is one feed type offered to diet selection: the live or dead
// biomass of one PFT with its nutrient content.
type Feed struct {
	PFT  int
	Live bool

	Biomass float64 // [g/m2]
	E       [2]float64

	Digestibility float64
	Eaten         float64 // [g/m2], filled by diet selection
}

// SelectDiet draws down the feeds in descending digestibility order
// until the demand [g/m2] or the offerable biomass is exhausted. Each
// feed only offers biomass above the management threshold [g/m2]. The
// feeds' Eaten fields are updated in place; the caller's slice order is
// preserved and the total eaten is returned. Ties in digestibility
// break deterministically by PFT id, live before dead.
func SelectDiet(feeds []*Feed, demand, mgmtThreshold float64) float64 {
	order := make([]*Feed, len(feeds))
	copy(order, feeds)
	sort.SliceStable(order, func(i, j int) bool {
		if order[i].Digestibility != order[j].Digestibility {
			return order[i].Digestibility > order[j].Digestibility
		}
		if order[i].PFT != order[j].PFT {
			return order[i].PFT < order[j].PFT
		}
		return order[i].Live && !order[j].Live
	})
	var total float64
	for _, f := range order {
		if demand <= 0 {
			break
		}
		avail := f.Biomass - f.Eaten - mgmtThreshold
		if avail <= 0 {
			continue
		}
		eat := math.Min(avail, demand)
		f.Eaten += eat
		demand -= eat
		total += eat
	}
	return total
}
