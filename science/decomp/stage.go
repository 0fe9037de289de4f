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

package decomp

import (
	"math"

	"github.com/spatialmodel/rangeland"
	"github.com/spatialmodel/rangeland/grid"
)

// subSteps is the number of decomposition iterations per month.
const subSteps = 4

// eftext soil-texture effect on soil SOM1 decomposition rate:
// intercept plus sand slope.
const (
	peftxa = 0.25
	peftxb = 0.75
)

// Stage builds the monthly decomposition and leaching stage, the last
// phase of each simulated month. nLayers is the deepest hydrologic
// layer across the site table, used to declare the percolation inputs.
func Stage(nLayers int) rangeland.Stage {
	requires := []rangeland.Key{
		rangeland.K(rangeland.Tave),
		rangeland.K(rangeland.PET),
		rangeland.K(rangeland.Rprpet),
	}
	for lyr := 1; lyr <= nLayers; lyr++ {
		requires = append(requires, rangeland.KL(rangeland.Amov, lyr))
	}
	return rangeland.Stage{
		Name:     "decomposition",
		Requires: requires,
		Provides: []rangeland.Key{
			rangeland.K(rangeland.Defac),
			rangeland.K(rangeland.Anerb),
			rangeland.K(rangeland.GrossMin),
		},
		Run: run,
	}
}

// poolGrids prefetches every soil organic matter and mineral grid the
// stage touches. Layer indices are 0-based here; registry keys are
// 1-based.
type poolGrids struct {
	strucc, metabc, som1c, som2c, strlig [2]*grid.Grid
	struce, metabe, som1e, som2e         [2][2]*grid.Grid
	som3c                                *grid.Grid
	som3e                                [2]*grid.Grid
	minerl                               [][2]*grid.Grid
}

func fetchPools(reg *rangeland.Reg, nLayers int) (*poolGrids, error) {
	var p poolGrids
	var err error
	get := func(k rangeland.Key) *grid.Grid {
		if err != nil {
			return nil
		}
		var g *grid.Grid
		g, err = reg.Grid(k)
		return g
	}
	for lyr := 0; lyr < 2; lyr++ {
		p.strucc[lyr] = get(rangeland.KL(rangeland.StrucC, lyr+1))
		p.metabc[lyr] = get(rangeland.KL(rangeland.MetabC, lyr+1))
		p.som1c[lyr] = get(rangeland.KL(rangeland.SOM1C, lyr+1))
		p.som2c[lyr] = get(rangeland.KL(rangeland.SOM2C, lyr+1))
		p.strlig[lyr] = get(rangeland.KL(rangeland.StrLig, lyr+1))
		for i, e := range rangeland.Elems {
			p.struce[lyr][i] = get(rangeland.KLE(rangeland.StrucE, lyr+1, e))
			p.metabe[lyr][i] = get(rangeland.KLE(rangeland.MetabE, lyr+1, e))
			p.som1e[lyr][i] = get(rangeland.KLE(rangeland.SOM1E, lyr+1, e))
			p.som2e[lyr][i] = get(rangeland.KLE(rangeland.SOM2E, lyr+1, e))
		}
	}
	p.som3c = get(rangeland.K(rangeland.SOM3C))
	for i, e := range rangeland.Elems {
		p.som3e[i] = get(rangeland.KE(rangeland.SOM3E, e))
	}
	p.minerl = make([][2]*grid.Grid, nLayers)
	for lyr := 0; lyr < nLayers; lyr++ {
		for i, e := range rangeland.Elems {
			p.minerl[lyr][i] = get(rangeland.KLE(rangeland.Minerl, lyr+1, e))
		}
	}
	return &p, err
}

// cellPools is the organic matter and mineral state of one cell, read
// from the current-state grids, decomposed in place, and written back.
type cellPools struct {
	strucc, metabc, som1c, som2c, strlig [2]float64
	struce, metabe, som1e, som2e         [2][2]float64
	som3c                                float64
	som3e                                [2]float64
	minerl                               [][2]float64

	aminrl [2]float64
	gromin float64
}

func (p *poolGrids) read(r, c, nl int) *cellPools {
	var cp cellPools
	for lyr := 0; lyr < 2; lyr++ {
		cp.strucc[lyr] = p.strucc[lyr].Get(r, c)
		cp.metabc[lyr] = p.metabc[lyr].Get(r, c)
		cp.som1c[lyr] = p.som1c[lyr].Get(r, c)
		cp.som2c[lyr] = p.som2c[lyr].Get(r, c)
		cp.strlig[lyr] = p.strlig[lyr].Get(r, c)
		for i := 0; i < 2; i++ {
			cp.struce[lyr][i] = p.struce[lyr][i].Get(r, c)
			cp.metabe[lyr][i] = p.metabe[lyr][i].Get(r, c)
			cp.som1e[lyr][i] = p.som1e[lyr][i].Get(r, c)
			cp.som2e[lyr][i] = p.som2e[lyr][i].Get(r, c)
		}
	}
	cp.som3c = p.som3c.Get(r, c)
	for i := 0; i < 2; i++ {
		cp.som3e[i] = p.som3e[i].Get(r, c)
	}
	cp.minerl = make([][2]float64, nl)
	for lyr := 0; lyr < nl; lyr++ {
		for i := 0; i < 2; i++ {
			cp.minerl[lyr][i] = p.minerl[lyr][i].Get(r, c)
		}
	}
	return &cp
}

func (p *poolGrids) write(r, c int, cp *cellPools) {
	for lyr := 0; lyr < 2; lyr++ {
		p.strucc[lyr].Set(cp.strucc[lyr], r, c)
		p.metabc[lyr].Set(cp.metabc[lyr], r, c)
		p.som1c[lyr].Set(cp.som1c[lyr], r, c)
		p.som2c[lyr].Set(cp.som2c[lyr], r, c)
		for i := 0; i < 2; i++ {
			p.struce[lyr][i].Set(cp.struce[lyr][i], r, c)
			p.metabe[lyr][i].Set(cp.metabe[lyr][i], r, c)
			p.som1e[lyr][i].Set(cp.som1e[lyr][i], r, c)
			p.som2e[lyr][i].Set(cp.som2e[lyr][i], r, c)
		}
	}
	p.som3c.Set(cp.som3c, r, c)
	for i := 0; i < 2; i++ {
		p.som3e[i].Set(cp.som3e[i], r, c)
	}
	for lyr := range cp.minerl {
		for i := 0; i < 2; i++ {
			p.minerl[lyr][i].Set(cp.minerl[lyr][i], r, c)
		}
	}
}

// flowOne moves one sub-step carbon flow tcflow from a donating pool to
// a single receiver, respiring fracCO2 of it. The flow is skipped
// entirely when the decompose gate or the element schedule refuses it.
func (cp *cellPools) flowOne(tcflow, fracCO2 float64,
	fromC *float64, fromE *[2]float64, toC *float64, toE *[2]float64,
	rnew [2]float64) {

	donor := *fromC
	if tcflow <= 0 || donor <= 0 {
		return
	}
	if tcflow > donor {
		tcflow = donor
	}
	if !CanDecompose(cp.aminrl, donor, *fromE, rnew) {
		return
	}
	net := CalcNetCflow(tcflow, fracCO2)
	resp := tcflow - net
	var es [2]EschedResult
	for i := 0; i < 2; i++ {
		es[i] = Esched(net, donor, rnew[i], fromE[i], cp.minerl[0][i])
		// A zero schedule for a positive net flow means the
		// immobilization gate closed; nothing moves at all.
		if net > 0 && es[i] == (EschedResult{}) {
			return
		}
	}
	*fromC -= tcflow
	*toC += net
	for i := 0; i < 2; i++ {
		eresp := resp * fromE[i] / donor
		fromE[i] -= eresp + es[i].LeavingA
		toE[i] += es[i].ArrivingB
		cp.minerl[0][i] += eresp - es[i].MineralFlow
		if i == 0 {
			cp.gromin = UpdateGrossMineralization(cp.gromin, eresp)
			cp.gromin = UpdateGrossMineralization(cp.gromin, -es[i].MineralFlow)
		}
	}
}

// applyDeclig folds a structural-decomposition result into the cell,
// with lyr selecting the surface or soil destination pools.
func (cp *cellPools) applyDeclig(lyr int, d DecligResult) {
	cp.strucc[lyr] += d.DStrucC
	cp.som1c[lyr] += d.DSom1C
	cp.som2c[lyr] += d.DSom2C
	for i := 0; i < 2; i++ {
		cp.struce[lyr][i] += d.DStrucE[i]
		cp.som1e[lyr][i] += d.DSom1E[i]
		cp.som2e[lyr][i] += d.DSom2E[i]
		cp.minerl[0][i] += d.DMinerl1[i]
	}
	cp.gromin += d.Gromin
}

func run(m *rangeland.Model) error {
	tave, err := m.Month.Grid(rangeland.K(rangeland.Tave))
	if err != nil {
		return err
	}
	pet, err := m.Month.Grid(rangeland.K(rangeland.PET))
	if err != nil {
		return err
	}
	rprpet, err := m.Month.Grid(rangeland.K(rangeland.Rprpet))
	if err != nil {
		return err
	}
	ndep, err := m.Year.Grid(rangeland.K(rangeland.BaseNDep))
	if err != nil {
		return err
	}
	defacG, err := m.Month.Provide(rangeland.K(rangeland.Defac))
	if err != nil {
		return err
	}
	anerbG, err := m.Month.Provide(rangeland.K(rangeland.Anerb))
	if err != nil {
		return err
	}
	grominG, err := m.Month.Provide(rangeland.K(rangeland.GrossMin))
	if err != nil {
		return err
	}
	nLayers := m.MaxNLayer()
	pools, err := fetchPools(m.Cur, nLayers)
	if err != nil {
		return err
	}
	amov := make([]*grid.Grid, nLayers)
	for lyr := 0; lyr < nLayers; lyr++ {
		if amov[lyr], err = m.Month.Grid(rangeland.KL(rangeland.Amov, lyr+1)); err != nil {
			return err
		}
	}

	const dtm = 1.0 / subSteps
	return m.EachCell(func(r, c int, site *rangeland.SiteParams) error {
		if tave.IsNoData(r, c) || pet.IsNoData(r, c) || rprpet.IsNoData(r, c) {
			return nil
		}
		tv, pe, rp := tave.Get(r, c), pet.Get(r, c), rprpet.Get(r, c)
		defac := DecompositionFactor(rp, tv)
		anerb := AnaerobicEffect(rp, pe, site.Drain, site.Aneref)
		pheff := PHEffect(m.Soil.PH.Get(r, c), site.PHCoeff)
		sand := m.Soil.Sand.Get(r, c)
		clay := m.Soil.Clay.Get(r, c)
		eftext := peftxa + peftxb*sand
		fps1s3 := site.Ps1s3[0] + site.Ps1s3[1]*clay
		fps2s3 := site.Ps2s3[0] + site.Ps2s3[1]*clay

		cp := pools.read(r, c, site.NLayer)

		// Atmospheric N deposition arrives with the month's weather.
		cp.minerl[0][0] += ndep.Get(r, c) / 12
		cp.aminrl = cp.minerl[0]

		for k := 0; k < subSteps; k++ {
			for i := 0; i < 2; i++ {
				cp.aminrl[i] = (cp.aminrl[i] + cp.minerl[0][i]) / 2
			}
			var rnew1, rnew2, rnew3 [2]float64
			for i := 0; i < 2; i++ {
				rnew1[i] = RequiredRatio(cp.aminrl[i], site.Varat1[i])
				rnew2[i] = RequiredRatio(cp.aminrl[i], site.Varat2[i])
				rnew3[i] = RequiredRatio(cp.aminrl[i], site.Varat3[i])
			}

			// Structural litter, surface then soil. The soil flow also
			// slows under anaerobic conditions.
			for lyr := 0; lyr < 2; lyr++ {
				donor := math.Min(cp.strucc[lyr], site.Strmax[lyr])
				rate := defac * site.DecStruc[lyr] * pheff *
					math.Exp(-pligst*cp.strlig[lyr]) * dtm
				if lyr == 1 {
					rate *= anerb
				}
				d := Declig(cp.aminrl, cp.strlig[lyr], site.Rsplig,
					site.Ps1co2[lyr], donor*rate, cp.strucc[lyr],
					cp.struce[lyr], rnew1, rnew2, cp.minerl[0])
				cp.applyDeclig(lyr, d)
			}

			// Metabolic litter to SOM1.
			for lyr := 0; lyr < 2; lyr++ {
				rate := defac * site.DecMetab[lyr] * pheff * dtm
				if lyr == 1 {
					rate *= anerb
				}
				cp.flowOne(cp.metabc[lyr]*rate, site.Pmco2[lyr],
					&cp.metabc[lyr], &cp.metabe[lyr],
					&cp.som1c[lyr], &cp.som1e[lyr], rnew1)
			}

			// Surface SOM1 to surface SOM2.
			cp.flowOne(cp.som1c[0]*defac*site.DecSOM1[0]*pheff*dtm,
				site.P1co2[0], &cp.som1c[0], &cp.som1e[0],
				&cp.som2c[0], &cp.som2e[0], rnew2)

			// Soil SOM1 splits between SOM2 and SOM3, with texture
			// speeding the flow in sandy soils and clay routing more
			// carbon to the passive pool.
			f1 := cp.som1c[1] * defac * site.DecSOM1[1] * anerb * eftext * pheff * dtm
			cp.flowOne(f1*fps1s3, site.P1co2[1],
				&cp.som1c[1], &cp.som1e[1], &cp.som3c, &cp.som3e, rnew3)
			cp.flowOne(f1*(1-fps1s3), site.P1co2[1],
				&cp.som1c[1], &cp.som1e[1], &cp.som2c[1], &cp.som2e[1], rnew2)

			// Surface SOM2 back to surface SOM1.
			cp.flowOne(cp.som2c[0]*defac*site.DecSOM2*pheff*dtm,
				site.P2co2, &cp.som2c[0], &cp.som2e[0],
				&cp.som1c[0], &cp.som1e[0], rnew1)

			// Soil SOM2 splits between SOM1 and SOM3.
			f2 := cp.som2c[1] * defac * site.DecSOM2 * anerb * pheff * dtm
			cp.flowOne(f2*fps2s3, site.P2co2,
				&cp.som2c[1], &cp.som2e[1], &cp.som3c, &cp.som3e, rnew3)
			cp.flowOne(f2*(1-fps2s3), site.P2co2,
				&cp.som2c[1], &cp.som2e[1], &cp.som1c[1], &cp.som1e[1], rnew1)

			// Passive SOM3 back to soil SOM1.
			cp.flowOne(cp.som3c*defac*site.DecSOM3*anerb*pheff*dtm,
				site.P3co2, &cp.som3c, &cp.som3e,
				&cp.som1c[1], &cp.som1e[1], rnew1)
		}

		// Mineral leaching follows the month's percolation down the
		// profile; losses from the bottom layer leave the system.
		for lyr := 0; lyr < site.NLayer; lyr++ {
			mv := amov[lyr].Get(r, c)
			if amov[lyr].IsNoData(r, c) {
				continue
			}
			linten := LeachIntensity(mv, site.OmLech[2])
			if linten <= 0 {
				continue
			}
			frlech := (site.OmLech[0] + site.OmLech[1]*sand) * linten
			moveN := cp.minerl[lyr][0] * frlech
			fsol := Fsfunc(cp.minerl[lyr][1], site.Pslsrb, site.Sorpmx)
			moveP := cp.minerl[lyr][1] * frlech * fsol
			if moveN < 0 {
				moveN = 0
			}
			if moveP < 0 {
				moveP = 0
			}
			cp.minerl[lyr][0] -= moveN
			cp.minerl[lyr][1] -= moveP
			if lyr+1 < site.NLayer {
				cp.minerl[lyr+1][0] += moveN
				cp.minerl[lyr+1][1] += moveP
			}
		}

		pools.write(r, c, cp)
		defacG.Set(defac, r, c)
		anerbG.Set(anerb, r, c)
		grominG.Set(cp.gromin, r, c)
		return nil
	})
}
