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

// Package decomp implements decomposition of structural, metabolic, and
// soil organic matter pools, with the accompanying nitrogen and
// phosphorus flows, gross mineralization accounting, and mineral
// leaching. Carbon moves between pools only when the receiving pool's
// nutrient requirement can be met, either from the donating material
// itself or by immobilization from the mineral pool.
package decomp

import "math"

// minMineral is the mineral-availability epsilon below which a pool-pair
// flow requires the donating material itself to satisfy the receiver's
// C/E ratio.
const minMineral = 1e-7

// pligst scales the inhibitory effect of lignin on structural
// decomposition rate.
const pligst = 3.0

// rcestr is the fixed C/E ratio of structural residue: N, P.
var rcestr = [2]float64{200, 500}

// CanDecompose reports whether material with total carbon tca and
// element contents anps may flow to a receiver requiring C/E ratios
// rnew, given average available mineral aminrl. For each element the
// flow is allowed if mineral is available above the epsilon, or if the
// donating material is already at least as rich in the element as the
// receiver requires. A false result means zero flow for this pool pair
// this sub-step, not a partial flow.
func CanDecompose(aminrl [2]float64, tca float64, anps, rnew [2]float64) bool {
	for i := 0; i < 2; i++ {
		if aminrl[i] > minMineral {
			continue
		}
		if anps[i] <= 0 || tca/anps[i] > rnew[i] {
			return false
		}
	}
	return true
}

// EschedResult is the element bookkeeping for one carbon flow.
// MineralFlow is the element drawn from (positive) or returned to
// (negative) the mineral pool, so conservation reads
// LeavingA + MineralFlow = ArrivingB.
type EschedResult struct {
	LeavingA    float64
	ArrivingB   float64
	MineralFlow float64
}

// Esched schedules the element accompanying a carbon flow cflow from
// pool A (carbon tca, element content anps) to a receiver requiring C/E
// ratio rcetob, with labile the mineral pool available for
// immobilization. If the flow is more dilute than the receiver requires
// and the mineral pool cannot supply the difference, nothing moves: all
// three outputs are zero.
func Esched(cflow, tca, rcetob, anps, labile float64) EschedResult {
	if cflow <= 0 || tca <= 0 {
		return EschedResult{}
	}
	outofa := anps * cflow / tca
	if outofa <= 0 || cflow/outofa > rcetob {
		// Immobilization: enrich the flow from the mineral pool.
		immflo := cflow/rcetob - outofa
		if labile-immflo > 0 {
			return EschedResult{
				LeavingA:    outofa,
				ArrivingB:   outofa + immflo,
				MineralFlow: immflo,
			}
		}
		return EschedResult{}
	}
	// Mineralization: the excess element returns to the mineral pool.
	atob := cflow / rcetob
	return EschedResult{
		LeavingA:    outofa,
		ArrivingB:   atob,
		MineralFlow: atob - outofa,
	}
}

// CalcNetCflow removes the respiration loss from a gross carbon flow.
func CalcNetCflow(cflow, fracCO2 float64) float64 {
	return cflow * (1 - fracCO2)
}

// UpdateGrossMineralization accumulates gross mineralization: only
// positive mineral releases increase it; immobilization never decreases
// it.
func UpdateGrossMineralization(gromin, flow float64) float64 {
	if flow > 0 {
		return gromin + flow
	}
	return gromin
}

// RequiredRatio interpolates the C/E ratio required by a receiving pool
// from available mineral: varat is (ratio at zero mineral, ratio at
// saturating mineral, mineral level at saturation).
func RequiredRatio(aminrl float64, varat [3]float64) float64 {
	if aminrl <= 0 {
		return varat[0]
	}
	if aminrl > varat[2] {
		return varat[1]
	}
	return varat[0] - (varat[0]-varat[1])*aminrl/varat[2]
}

// DecompositionFactor combines the temperature and moisture controls on
// decomposition rate. The result lies in [0, 1].
func DecompositionFactor(rprpet, tave float64) float64 {
	wfunc := 1 / (1 + 30*math.Exp(-8.5*rprpet))
	tfunc := (11.75 + (29.7/math.Pi)*math.Atan(math.Pi*0.031*(tave-15.4))) / 30
	if tfunc < 0.01 {
		tfunc = 0.01
	}
	defac := tfunc * wfunc
	if defac < 0 {
		return 0
	}
	if defac > 1 {
		return 1
	}
	return defac
}

// AnaerobicEffect reduces soil-pool decomposition under saturated
// conditions. aneref is (rprpet where impact starts, rprpet of maximum
// impact, minimum multiplier); drain is the site drainage fraction.
func AnaerobicEffect(rprpet, pevap, drain float64, aneref [3]float64) float64 {
	anerb := 1.0
	if rprpet > aneref[0] && pevap > 0 {
		xh2o := (rprpet - aneref[0]) * pevap * (1 - drain)
		if xh2o > 0 {
			newrat := aneref[0] + xh2o/pevap
			slope := (1 - aneref[2]) / (aneref[0] - aneref[1])
			anerb = 1 + slope*(newrat-aneref[0])
		}
	}
	if anerb < aneref[2] {
		anerb = aneref[2]
	}
	if anerb > 1 {
		anerb = 1
	}
	return anerb
}

// PHEffect is the arctangent pH control on decomposition rate, clipped
// to [0, 1]. coeff is (location, intercept, range, slope).
func PHEffect(ph float64, coeff [4]float64) float64 {
	v := coeff[1] + coeff[2]/math.Pi*math.Atan(math.Pi*coeff[3]*(ph-coeff[0]))
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// LeachIntensity is the fraction of the leachable mineral that moves out
// of a layer, derived from the layer's percolation amov relative to the
// leaching threshold, clipped to [0, 1]. No percolation means no
// leaching.
func LeachIntensity(amov, threshold float64) float64 {
	if amov <= 0 || threshold <= 0 {
		return 0
	}
	v := amov / threshold
	if v > 1 {
		return 1
	}
	return v
}

// Fsfunc is the fraction of mineral phosphorus in solution, from the
// Langmuir-type sorption isotherm: pslsrb is the slope effect of
// sorption affinity, sorpmx the maximum sorption capacity.
func Fsfunc(minerlP, pslsrb, sorpmx float64) float64 {
	if minerlP <= 0 {
		return 0
	}
	c := sorpmx * (1.01 - pslsrb)
	b := sorpmx - minerlP + c
	labile := (-b + math.Sqrt(b*b+4*c*minerlP)) / 2
	fsol := labile / minerlP
	if fsol < 0 {
		return 0
	}
	if fsol > 1 {
		return 1
	}
	return fsol
}

// DecligResult is the set of pool deltas produced by decomposing
// lignin-containing structural material: carbon to SOM1 and SOM2 with
// respiration, element flows for each stream, mineral layer-1 deltas,
// and the gross N mineralization increment. A false decompose mask
// yields the zero value.
type DecligResult struct {
	DStrucC float64
	DSom1C  float64
	DSom2C  float64

	DStrucE  [2]float64
	DSom1E   [2]float64
	DSom2E   [2]float64
	DMinerl1 [2]float64

	Gromin float64
}

// Declig decomposes structural material with lignin fraction ligcon:
// the lignin-scaled stream goes to SOM2 (respiring rsplig of its
// carbon), the remainder to SOM1 (respiring ps1co2). Elements
// accompanying respired carbon mineralize; element flows for the net
// carbon streams are scheduled with Esched against the receivers'
// required ratios rnew1 (SOM1) and rnew2 (SOM2). A stream whose Esched
// gate closes moves nothing at all, carbon included.
func Declig(aminrl [2]float64, ligcon, rsplig, ps1co2, tcflow, strucc float64,
	struce, rnew1, rnew2, minerl1 [2]float64) DecligResult {

	var res DecligResult
	if tcflow <= 0 || strucc <= 0 {
		return res
	}
	if !CanDecompose(aminrl, strucc, struce, rnew1) {
		return res
	}

	labile := minerl1

	// Lignin stream to SOM2.
	gross2 := tcflow * ligcon
	resp2 := gross2 * rsplig
	net2 := gross2 - resp2
	moved2 := false
	var s2 [2]EschedResult
	if net2 > 0 {
		moved2 = true
		for i := 0; i < 2; i++ {
			s2[i] = Esched(net2, strucc, rnew2[i], struce[i], labile[i])
			// A zero schedule for a positive net flow means the
			// immobilization gate closed; the whole stream stops.
			if s2[i] == (EschedResult{}) {
				moved2 = false
				break
			}
		}
	}
	if moved2 {
		res.DStrucC -= gross2
		res.DSom2C += net2
		for i := 0; i < 2; i++ {
			eresp := resp2 * struce[i] / strucc
			res.DStrucE[i] -= eresp + s2[i].LeavingA
			res.DSom2E[i] += s2[i].ArrivingB
			res.DMinerl1[i] += eresp - s2[i].MineralFlow
			labile[i] -= s2[i].MineralFlow - eresp
			if i == 0 {
				res.Gromin = UpdateGrossMineralization(res.Gromin, eresp)
				res.Gromin = UpdateGrossMineralization(res.Gromin, -s2[i].MineralFlow)
			}
		}
	}

	// Non-lignin stream to SOM1.
	gross1 := tcflow * (1 - ligcon)
	resp1 := gross1 * ps1co2
	net1 := gross1 - resp1
	moved1 := false
	var s1 [2]EschedResult
	if net1 > 0 {
		moved1 = true
		for i := 0; i < 2; i++ {
			s1[i] = Esched(net1, strucc, rnew1[i], struce[i], labile[i])
			if s1[i] == (EschedResult{}) {
				moved1 = false
				break
			}
		}
	}
	if moved1 {
		res.DStrucC -= gross1
		res.DSom1C += net1
		for i := 0; i < 2; i++ {
			eresp := resp1 * struce[i] / strucc
			res.DStrucE[i] -= eresp + s1[i].LeavingA
			res.DSom1E[i] += s1[i].ArrivingB
			res.DMinerl1[i] += eresp - s1[i].MineralFlow
			if i == 0 {
				res.Gromin = UpdateGrossMineralization(res.Gromin, eresp)
				res.Gromin = UpdateGrossMineralization(res.Gromin, -s1[i].MineralFlow)
			}
		}
	}
	return res
}

// PartitResult is the split of a residue addition between the surface
// metabolic and structural pools. DMinerl1 is negative where mineral
// element was directly absorbed into the residue.
type PartitResult struct {
	DMetabC  float64
	DStrucC  float64
	DMetabE  [2]float64
	DStrucE  [2]float64
	DMinerl1 [2]float64

	// StrucLigC is the lignin carbon entering the structural pool, used
	// by the caller to update the pool's weighted lignin fraction.
	StrucLigC float64
}

// Partit splits added residue (carbon camt, elements eamt, lignin
// fraction lignin) between metabolic and structural surface litter. The
// metabolic fraction declines linearly with the residue lignin:N ratio
// (spl intercept and slope); structural material carries the fixed
// rcestr C/E ratio and all of the lignin. A damr fraction of layer-1
// mineral N and P is directly absorbed into the residue.
func Partit(camt float64, eamt [2]float64, lignin float64,
	minerl1, damr, spl [2]float64) PartitResult {

	var res PartitResult
	if camt <= 0 {
		return res
	}
	e := eamt
	for i := 0; i < 2; i++ {
		dirabs := damr[i] * minerl1[i]
		if dirabs < 0 {
			dirabs = 0
		}
		e[i] += dirabs
		res.DMinerl1[i] -= dirabs
	}

	var rlnres float64
	if e[0] > 0 {
		rlnres = lignin * camt * 2.5 / e[0]
	} else {
		rlnres = spl[0] / spl[1] // drives the metabolic fraction to zero
	}
	frmet := spl[0] - spl[1]*rlnres
	if frmet < 0 {
		frmet = 0
	}
	// All lignin goes to the structural pool, so the metabolic fraction
	// cannot exceed the non-lignin fraction.
	if frmet > 1-lignin {
		frmet = 1 - lignin
	}

	caddm := camt * frmet
	cadds := camt - caddm
	res.DMetabC = caddm
	res.DStrucC = cadds
	res.StrucLigC = lignin * camt
	for i := 0; i < 2; i++ {
		eadds := cadds / rcestr[i]
		if eadds > e[i] {
			eadds = e[i]
		}
		res.DStrucE[i] = eadds
		res.DMetabE[i] = e[i] - eadds
	}
	return res
}
