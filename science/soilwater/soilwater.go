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

// Package soilwater implements the monthly soil water balance: snow
// accumulation and melt, canopy and litter interception, runoff,
// top-down layer redistribution, transpiration removal, and surface
// evaporation. Water amounts are in cm; cells are independent.
package soilwater

import "math"

// transcof is the atmospheric transmission coefficient used in the
// shortwave radiation calculation.
const transcof = 0.8

// midMonthDay is the Julian day at the middle of each calendar month
// (index 0 = January).
var midMonthDay = [12]float64{16, 46, 75, 106, 136, 167, 197, 228, 259, 289, 320, 350}

// Shortwave returns the monthly shortwave radiation outside the
// atmosphere [langleys/day] for a calendar month (1..12) at a latitude
// in radians.
func Shortwave(month int, latitude float64) float64 {
	jday := midMonthDay[month-1]
	declin := 0.401426 * math.Sin(6.283185*(jday-77)/365)

	temp := 1 - math.Pow(-math.Tan(latitude)*math.Tan(declin), 2)
	if temp < 0 {
		temp = 0
	}
	par1 := math.Sqrt(temp)
	par2 := -math.Tan(latitude) * math.Tan(declin)
	ahou := math.Atan2(par1, par2)
	if ahou < 0 {
		ahou = 0
	}
	solrad := 917 * transcof * (ahou*math.Sin(latitude)*math.Sin(declin) +
		math.Cos(latitude)*math.Cos(declin)*math.Sin(ahou))
	return solrad / transcof
}

// ReferenceET returns the monthly reference evapotranspiration [cm],
// from a modified Hargreaves equation on shortwave radiation and the
// diurnal temperature range, with heavy precipitation damping the
// range. fwloss4 scales the result.
func ReferenceET(tmax, tmin, shwave, precip, fwloss4 float64) float64 {
	tave := (tmax + tmin) / 2
	trange := tmax - tmin - 0.0123*precip
	if trange < 0 {
		trange = 0
	}
	pet := 0.0013 * 0.408 * shwave * (tave + 17) * math.Pow(trange, 0.76) * 30
	pet = pet / 10 * fwloss4
	if pet < 0 {
		return 0
	}
	return pet
}

// SnowState is the snowpack after one month of accumulation,
// sublimation, and melt.
type SnowState struct {
	Snow float64 // frozen water [cm]
	Snlq float64 // liquid water held in the snowpack [cm]

	// Inputs is the liquid water passed on to the soil surface: rain
	// falling with no snowpack present, plus drainage of melt beyond the
	// snowpack's holding capacity.
	Inputs float64

	// PETRem is the evaporative demand left after sublimation.
	PETRem float64
}

// SnowDynamics advances the snowpack one month. Below-freezing months
// turn all precipitation to snow; otherwise rain falling on an existing
// snowpack is held as liquid. Sublimation removes up to 0.87 of PET,
// proportionally from frozen and liquid stores. Melt proceeds at
// tmelt2 per degree above tmelt1, scaled by shortwave radiation, and
// liquid beyond half the remaining snowpack drains to the soil.
func SnowDynamics(tave, precip, snow, snlq, pet, tmelt1, tmelt2, shwave float64) SnowState {
	inputs := 0.0
	if tave <= 0 {
		snow += precip
	} else if snow > 0 {
		snlq += precip
	} else {
		inputs = precip
	}

	evsnow := 0.0
	if snow+snlq > 0 {
		evsnow = pet * 0.87
		if evsnow > snow+snlq {
			evsnow = snow + snlq
		}
		frozenFrac := snow / (snow + snlq)
		snow -= evsnow * frozenFrac
		snlq -= evsnow * (1 - frozenFrac)
	}

	if snow > 0 && tave >= tmelt1 {
		melt := tmelt2 * (tave - tmelt1) * shwave
		if melt > snow {
			melt = snow
		}
		snow -= melt
		snlq += melt
	}
	if snlq > 0.5*snow {
		drain := snlq - 0.5*snow
		snlq -= drain
		inputs += drain
	}

	petRem := pet - evsnow/0.87
	if petRem < 0 {
		petRem = 0
	}
	return SnowState{Snow: snow, Snlq: snlq, Inputs: inputs, PETRem: petRem}
}

// SurfaceLosses removes runoff, canopy/litter interception, and direct
// evaporation from the water reaching the soil surface. Litter and
// standing biomass [g/m2] drive the interception and shading terms; the
// combined evaporative loss is capped at 0.4 of the remaining PET.
// It returns the water entering the soil profile and the fraction of
// bare soil exposed to evaporation, reused for the layer-1 loss.
func SurfaceLosses(inputs, petRem, litter, standing float64,
	fracro, precro, fwloss1, fwloss2 float64) (toSoil, bareFrac float64) {

	runoff := fracro * (inputs - precro)
	if runoff < 0 {
		runoff = 0
	}
	inputs -= runoff

	alit := math.Min(litter, 400)
	asd := math.Min(standing, 800)
	aint := (0.0003*alit + 0.0006*asd) * fwloss1
	bareFrac = 0.5 * math.Exp(-0.002*alit) * math.Exp(-0.004*asd) * fwloss2

	loss := inputs * (aint + bareFrac)
	if cap := 0.4 * petRem; loss > cap {
		loss = cap
	}
	if loss > inputs {
		loss = inputs
	}
	return inputs - loss, bareFrac
}

// PotentialTranspiration computes the month's transpiration demand from
// the remaining PET and live biomass through an exponential saturation
// curve. There is no transpiration below 2 degrees C. Demand is
// pre-satisfied from the surface input before any soil water is drawn:
// the returned inputs are what continues into the profile.
func PotentialTranspiration(petRem, tave, liveBiomass, inputs float64) (trap, inputsRem float64) {
	if tave < 2 {
		return 0, inputs
	}
	trap = petRem * 0.65 * (1 - math.Exp(-0.02*liveBiomass))
	if trap <= 0.01 {
		return trap, inputs
	}
	direct := trap - 0.01
	if direct > inputs {
		direct = inputs
	}
	return trap - direct, inputs - direct
}

// Redistribute percolates surface input top-down through the soil
// layers, filling each to field capacity before the remainder moves on.
// asmos is updated in place; the returned slice is the water leaving
// each layer (the last entry drains out of the profile).
func Redistribute(inputs float64, asmos, afiel, adep []float64) []float64 {
	amov := make([]float64, len(asmos))
	flow := inputs
	for lyr := range asmos {
		asmos[lyr] += flow
		capac := afiel[lyr] * adep[lyr]
		flow = 0
		if asmos[lyr] > capac {
			flow = asmos[lyr] - capac
			asmos[lyr] = capac
		}
		amov[lyr] = flow
	}
	return amov
}

// TranspirationRemoval draws the transpiration demand from the soil
// layers. Per-layer available water is the moisture above the wilting
// point, weighted by the layer transpiration weight; total removal is
// capped by total availability and distributed proportionally to each
// layer's weighted share. asmos is updated in place; the actual amount
// transpired is returned.
func TranspirationRemoval(trap float64, asmos, awilt, adep, awtl []float64) float64 {
	n := len(asmos)
	avw := make([]float64, n)
	awwt := make([]float64, n)
	var tot, totw float64
	for lyr := 0; lyr < n; lyr++ {
		avw[lyr] = asmos[lyr] - awilt[lyr]*adep[lyr]
		if avw[lyr] < 0 {
			avw[lyr] = 0
		}
		awwt[lyr] = avw[lyr] * awtl[lyr]
		tot += avw[lyr]
		totw += awwt[lyr]
	}
	if trap > tot {
		trap = tot
	}
	if trap <= 0 || totw <= 0 {
		return 0
	}
	for lyr := 0; lyr < n; lyr++ {
		take := trap * awwt[lyr] / totw
		if take > avw[lyr] {
			take = avw[lyr]
		}
		asmos[lyr] -= take
	}
	return trap
}

// SurfaceEvaporation removes an additional evaporative loss from the
// top soil layer, proportional to its relative water content between
// wilting point and field capacity, bounded by the bare-soil
// evaporative potential and by the moisture above wilting point.
func SurfaceEvaporation(asmos1, awilt1, afiel1, adep1, evapPot float64) (newAsmos1, evlos float64) {
	avail := asmos1 - awilt1*adep1
	if avail <= 0 || evapPot <= 0 {
		return asmos1, 0
	}
	rel := (asmos1/adep1 - awilt1) / (afiel1 - awilt1)
	if rel < 0 {
		rel = 0
	}
	if rel > 1 {
		rel = 1
	}
	evlos = evapPot * rel
	if evlos > avail {
		evlos = avail
	}
	return asmos1 - evlos, evlos
}

// FieldCapacityWiltingPoint derives per-layer field capacity and
// wilting point [fraction of layer volume] from soil texture, bulk
// density, and the organic matter implied by the soil carbon pools.
// The organic matter contribution attenuates by 0.85 per deeper layer;
// results are clipped to [0.01, 0.9].
func FieldCapacityWiltingPoint(sand, silt, clay, bulkd, edepth,
	som1c2, som2c2, som3c float64, nLayers int) (afiel, awilt []float64) {

	afiel = make([]float64, nLayers)
	awilt = make([]float64, nLayers)
	ompc := (som1c2 + som2c2 + som3c) * 1.724 / (10000 * bulkd * edepth)
	for lyr := 0; lyr < nLayers; lyr++ {
		afiel[lyr] = clipWater(0.3075*sand + 0.5886*silt + 0.8039*clay +
			0.002208*ompc - 0.1434*bulkd)
		awilt[lyr] = clipWater(-0.0059*sand + 0.1142*silt + 0.5766*clay +
			0.002228*ompc + 0.02671*bulkd)
		ompc *= 0.85
	}
	return afiel, awilt
}

func clipWater(v float64) float64 {
	if v < 0.01 {
		return 0.01
	}
	if v > 0.9 {
		return 0.9
	}
	return v
}
