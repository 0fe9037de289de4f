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

// Package production implements potential plant production limited by
// temperature, water, shading, and nutrient availability, the revision
// of root:shoot allocation, and the distribution of nitrogen and
// phosphorus uptake across crop storage, symbiotic fixation, and soil
// layers.
package production

import "math"

// shootSat is the aboveground biomass [g/m2] at which the shoot C/E
// ratio interpolation saturates.
const shootSat = 400.0

// nutrientHalfSat is the available-nutrient level [g/m2] at which the
// nutrition index used in root:shoot revision reaches one half.
const nutrientHalfSat = 2.0

// TemperatureFactor is the Poisson-density temperature control on
// production, in [0, 1]. ppdf is (optimum, maximum, left shape, right
// shape).
func TemperatureFactor(tave float64, ppdf [4]float64) float64 {
	frac := (ppdf[1] - tave) / (ppdf[1] - ppdf[0])
	if frac <= 0 {
		return 0
	}
	v := math.Exp(ppdf[2]/ppdf[3]*(1-math.Pow(frac, ppdf[3]))) * math.Pow(frac, ppdf[2])
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// WaterFactor is the moisture control on production: a logistic
// response to the ratio of available water plus precipitation to
// evaporative demand, in (0, 1).
func WaterFactor(avh2o1, precip, pet float64) float64 {
	if pet <= 0 {
		return 0.01
	}
	x := (avh2o1 + precip) / pet
	return 1 / (1 + 30*math.Exp(-8.5*x))
}

// ShadingFactor reduces production under standing dead and surface
// litter. biok5 is the biomass level at which shading halves production.
func ShadingFactor(stdedc, strucc1, biok5 float64) float64 {
	bioc := (stdedc + 0.1*strucc1) * 2.5
	if bioc < 0.01 {
		bioc = 0.01
	}
	return biok5 / (biok5 + bioc)
}

// RootImpact is the empirical "sparse roots draw less" control on
// nutrient availability, approaching one as root biomass grows.
func RootImpact(riint, rictrl, bglivc float64) float64 {
	x := rictrl * bglivc * 2.5
	if x > 33 {
		return 1
	}
	return 1 - riint*math.Exp(-x)
}

// ProvisionalFracrc is the provisional fraction of production allocated
// belowground before the current month's water and nutrient status is
// known. The Great Plains regression (frtcindx 0) derives it from
// annual precipitation; the perennial form (frtcindx 1) averages the
// allocation bounds.
func ProvisionalFracrc(frtcindx int, aprecip float64,
	agppa, agppb, bgppa, bgppb float64, cfrtcw, cfrtcn [2]float64) float64 {

	if frtcindx == 0 {
		agp := agppa + agppb*aprecip
		bgp := bgppa + bgppb*aprecip
		if agp <= 0 || bgp <= 0 {
			return 0.5
		}
		rtsh := bgp / agp
		return rtsh / (1 + rtsh)
	}
	return (cfrtcw[0] + cfrtcw[1] + cfrtcn[0] + cfrtcn[1]) / 4
}

// RevisedFracrc revises the root fraction with the month's water
// limitation and nutrient availability: the more limiting of the two
// stresses pushes allocation toward its stressed bound. Only the
// perennial form (frtcindx 1) responds; the Great Plains regression is
// returned unchanged.
func RevisedFracrc(frtcindx int, provisional, h2ogef, availN float64,
	cfrtcw, cfrtcn [2]float64) float64 {

	if frtcindx == 0 {
		return provisional
	}
	w := clamp01(h2ogef)
	n := clamp01(availN / (availN + nutrientHalfSat))
	frtcw := cfrtcw[0] + (cfrtcw[1]-cfrtcw[0])*w
	frtcn := cfrtcn[0] + (cfrtcn[1]-cfrtcn[0])*n
	return clampFrac(math.Max(frtcw, frtcn))
}

// ShootRatios interpolates the minimum and maximum shoot C/E ratios on
// aboveground biomass: pr holds the ratio at zero biomass and at
// saturation.
func ShootRatios(agBiomass float64, pr [2]float64) float64 {
	f := agBiomass / shootSat
	if f > 1 {
		f = 1
	}
	return pr[0] + (pr[1]-pr[0])*f
}

// RootRatios is the root C/E ratio regression on annual precipitation
// (intercept, slope).
func RootRatios(aprecip float64, pr [2]float64) float64 {
	v := pr[0] + pr[1]*aprecip
	if v < 1 {
		v = 1
	}
	return v
}

// Limitation is the nutrient-limited production result: final carbon
// production, per-element uptake split above/belowground, and the
// symbiotic N fixation actually used.
type Limitation struct {
	CProdL    float64
	EUpAbove  [2]float64
	EUpBelow  [2]float64
	PlantNFix float64
}

// CalcNutrientLimitation restricts potential carbon production to what
// available N and P can support at each element's most dilute allowed
// tissue concentration, then computes the element uptake at the
// richest concentration the supply allows. cercrpMin/cercrpMax are the
// minimum and maximum C/E ratios, above- then belowground, per element;
// snfxmx caps symbiotic N fixation as a fraction of potential carbon.
func CalcNutrientLimitation(potenc, fracrc float64, eavail [2]float64,
	cercrpMinAbove, cercrpMaxAbove, cercrpMinBelow, cercrpMaxBelow [2]float64,
	snfxmx float64) Limitation {

	var res Limitation
	if potenc <= 0 {
		return res
	}
	var ecmax, ecmin, avail [2]float64
	fixSupply := snfxmx * potenc
	for i := 0; i < 2; i++ {
		// Element per unit carbon at the richest and most dilute
		// concentrations the C/E ratio bounds allow.
		ecmax[i] = fracrc/cercrpMinBelow[i] + (1-fracrc)/cercrpMinAbove[i]
		ecmin[i] = fracrc/cercrpMaxBelow[i] + (1-fracrc)/cercrpMaxAbove[i]
		avail[i] = eavail[i]
	}
	avail[0] += fixSupply

	cprodl := potenc
	for i := 0; i < 2; i++ {
		if ecmin[i] <= 0 {
			continue
		}
		if supportable := avail[i] / ecmin[i]; supportable < cprodl {
			cprodl = supportable
		}
	}
	if cprodl < 0 {
		cprodl = 0
	}
	res.CProdL = cprodl

	for i := 0; i < 2; i++ {
		eprodl := cprodl * ecmax[i]
		if eprodl > avail[i] {
			eprodl = avail[i]
		}
		if floor := cprodl * ecmin[i]; eprodl < floor {
			eprodl = floor
		}
		shareBelow := 0.0
		if ecmax[i] > 0 {
			shareBelow = (fracrc / cercrpMinBelow[i]) / ecmax[i]
		}
		res.EUpBelow[i] = eprodl * shareBelow
		res.EUpAbove[i] = eprodl - res.EUpBelow[i]
	}

	fix := res.EUpAbove[0] + res.EUpBelow[0] - eavail[0]
	if fix < 0 {
		fix = 0
	}
	if fix > fixSupply {
		fix = fixSupply
	}
	res.PlantNFix = fix
	return res
}

// GrazingEffect applies one of the six discrete grazing-response
// regimes to the month's potential production and root:shoot ratio,
// given the fraction of live biomass removed last month. Regimes 1 and
// 4 depress shoot production linearly with offtake; 2 and 5 stimulate
// it at light offtake and depress it at heavy offtake; 3 and 6 leave
// it unchanged. Regimes 3 and 6 shift the root:shoot ratio with a
// quadratic response, 4 and 5 scale it by the gremb coefficient, and 1
// and 2 leave it unchanged.
func GrazingEffect(regime int, tgprod, fracrc, flgrem, gremb float64) (agprod, rtsh float64) {
	agprod = tgprod * (1 - fracrc)
	if fracrc < 1 {
		rtsh = fracrc / (1 - fracrc)
	} else {
		rtsh = 99
	}
	switch regime {
	case 1, 4:
		mult := 1 - 2.21*flgrem
		if mult < 0.02 {
			mult = 0.02
		}
		agprod *= mult
	case 2, 5:
		agprod *= 1 + 2.6*flgrem - 5.83*flgrem*flgrem
	}
	switch regime {
	case 3, 6:
		rtsh += 3.05*flgrem - 11.78*flgrem*flgrem
	case 4, 5:
		rtsh *= 1 + gremb*flgrem
	}
	if agprod < 0 {
		agprod = 0
	}
	if rtsh < 0.01 {
		rtsh = 0.01
	}
	return agprod, rtsh
}

// UptakeSplit distributes one element's uptake demand across its
// sources: crop storage first, then symbiotic fixation (N only), then
// the soil layers in proportion to each layer's share of available
// mineral. fsol scales the per-layer draw for phosphorus (1 for N).
// It returns the draw from storage and the per-layer mineral draws.
func UptakeSplit(demand, crpstg, fix float64, minerl []float64, fsol float64) (fromStorage float64, fromLayers []float64) {
	fromLayers = make([]float64, len(minerl))
	fromStorage = math.Min(demand, crpstg)
	remaining := demand - fromStorage - fix
	if remaining <= 0 {
		return fromStorage, fromLayers
	}
	var total float64
	for _, v := range minerl {
		if v > 0 {
			total += v * fsol
		}
	}
	if total <= 0 {
		return fromStorage, fromLayers
	}
	if remaining > total {
		remaining = total
	}
	for lyr, v := range minerl {
		if v > 0 {
			fromLayers[lyr] = remaining * v * fsol / total
		}
	}
	return fromStorage, fromLayers
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampFrac(v float64) float64 {
	if v < 0.01 {
		return 0.01
	}
	if v > 0.99 {
		return 0.99
	}
	return v
}
