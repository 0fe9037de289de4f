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

package production

import (
	"sort"

	"github.com/spatialmodel/rangeland"
	"github.com/spatialmodel/rangeland/grid"
	"github.com/spatialmodel/rangeland/science/decomp"
)

// Stage builds the plant production and nutrient uptake stage, run
// after the water balance. pfts lists the modeled plant functional
// types.
func Stage(pfts []int) rangeland.Stage {
	requires := []rangeland.Key{
		rangeland.K(rangeland.Tave),
		rangeland.K(rangeland.Shwave),
		rangeland.K(rangeland.PET),
	}
	var provides []rangeland.Key
	for _, pft := range pfts {
		provides = append(provides,
			rangeland.KP(rangeland.H2oGef, pft),
			rangeland.KP(rangeland.TotProdPot, pft),
			rangeland.KP(rangeland.Fracrc, pft),
			rangeland.KP(rangeland.CProd, pft),
			rangeland.KP(rangeland.PlantNFix, pft))
		for _, e := range rangeland.Elems {
			provides = append(provides,
				rangeland.KPE(rangeland.Eavail, pft, e),
				rangeland.KPE(rangeland.EUpAbove, pft, e),
				rangeland.KPE(rangeland.EUpBelow, pft, e),
				rangeland.KPE(rangeland.CercrpMinAbove, pft, e),
				rangeland.KPE(rangeland.CercrpMaxAbove, pft, e),
				rangeland.KPE(rangeland.CercrpMinBelow, pft, e),
				rangeland.KPE(rangeland.CercrpMaxBelow, pft, e))
		}
	}
	return rangeland.Stage{
		Name:     "production",
		Requires: requires,
		Provides: provides,
		Run:      run,
	}
}

// pftState bundles one PFT's grids for the month.
type pftState struct {
	id     int
	params *rangeland.PFTParams

	vegFrac *grid.Grid

	// Persisted pools (current registry).
	aglivc, bglivc, stdedc, avh2o1 *grid.Grid
	aglive, bglive, crpstg         [2]*grid.Grid

	// Monthly outputs.
	h2ogef, tgprod, fracrc, cprod, nfix                  *grid.Grid
	eavail, eupAbove, eupBelow                           [2]*grid.Grid
	cerMinAbove, cerMaxAbove, cerMinBelow, cerMaxBelow   [2]*grid.Grid
	pltLigAbove, pltLigBelow                             *grid.Grid
	prevFLGrem                                           *grid.Grid
}

func collectPFT(m *rangeland.Model, id int) (*pftState, error) {
	p := &pftState{id: id}
	var err error
	if p.params, err = m.PFT(id); err != nil {
		return nil, err
	}
	if p.vegFrac, err = m.MonthVegFrac(id); err != nil {
		return nil, err
	}
	cur := func(k rangeland.Key) *grid.Grid {
		if err != nil {
			return nil
		}
		var g *grid.Grid
		g, err = m.Cur.Grid(k)
		return g
	}
	month := func(k rangeland.Key) *grid.Grid {
		if err != nil {
			return nil
		}
		var g *grid.Grid
		g, err = m.Month.Provide(k)
		return g
	}
	year := func(k rangeland.Key) *grid.Grid {
		if err != nil {
			return nil
		}
		var g *grid.Grid
		g, err = m.Year.Grid(k)
		return g
	}
	p.aglivc = cur(rangeland.KP(rangeland.AGLivC, id))
	p.bglivc = cur(rangeland.KP(rangeland.BGLivC, id))
	p.stdedc = cur(rangeland.KP(rangeland.StdedC, id))
	p.avh2o1 = cur(rangeland.KP(rangeland.Avh2o1, id))
	for i, e := range rangeland.Elems {
		p.aglive[i] = cur(rangeland.KPE(rangeland.AGLivE, id, e))
		p.bglive[i] = cur(rangeland.KPE(rangeland.BGLivE, id, e))
		p.crpstg[i] = cur(rangeland.KPE(rangeland.CrpStg, id, e))
	}
	p.h2ogef = month(rangeland.KP(rangeland.H2oGef, id))
	p.tgprod = month(rangeland.KP(rangeland.TotProdPot, id))
	p.fracrc = month(rangeland.KP(rangeland.Fracrc, id))
	p.cprod = month(rangeland.KP(rangeland.CProd, id))
	p.nfix = month(rangeland.KP(rangeland.PlantNFix, id))
	for i, e := range rangeland.Elems {
		p.eavail[i] = month(rangeland.KPE(rangeland.Eavail, id, e))
		p.eupAbove[i] = month(rangeland.KPE(rangeland.EUpAbove, id, e))
		p.eupBelow[i] = month(rangeland.KPE(rangeland.EUpBelow, id, e))
		p.cerMinAbove[i] = month(rangeland.KPE(rangeland.CercrpMinAbove, id, e))
		p.cerMaxAbove[i] = month(rangeland.KPE(rangeland.CercrpMaxAbove, id, e))
		p.cerMinBelow[i] = month(rangeland.KPE(rangeland.CercrpMinBelow, id, e))
		p.cerMaxBelow[i] = month(rangeland.KPE(rangeland.CercrpMaxBelow, id, e))
	}
	p.pltLigAbove = year(rangeland.KP(rangeland.PltLigAbove, id))
	p.pltLigBelow = year(rangeland.KP(rangeland.PltLigBelow, id))
	if m.Prev.Has(rangeland.KP(rangeland.FLGrem, id)) {
		p.prevFLGrem = cur(rangeland.KP(rangeland.FLGrem, id))
	}
	return p, err
}

func (p *pftState) growsIn(month int) bool {
	for _, mo := range p.params.GrowthMonths {
		if mo == month {
			return true
		}
	}
	return false
}

// zeroOutputs records a no-growth month.
func (p *pftState) zeroOutputs(r, c int) {
	p.tgprod.Set(0, r, c)
	p.fracrc.Set(0, r, c)
	p.cprod.Set(0, r, c)
	p.nfix.Set(0, r, c)
	for i := 0; i < 2; i++ {
		p.eavail[i].Set(0, r, c)
		p.eupAbove[i].Set(0, r, c)
		p.eupBelow[i].Set(0, r, c)
		p.cerMinAbove[i].Set(0, r, c)
		p.cerMaxAbove[i].Set(0, r, c)
		p.cerMinBelow[i].Set(0, r, c)
		p.cerMaxBelow[i].Set(0, r, c)
	}
}

func run(m *rangeland.Model) error {
	taveG, err := m.Month.Grid(rangeland.K(rangeland.Tave))
	if err != nil {
		return err
	}
	shwaveG, err := m.Month.Grid(rangeland.K(rangeland.Shwave))
	if err != nil {
		return err
	}
	petG, err := m.Month.Grid(rangeland.K(rangeland.PET))
	if err != nil {
		return err
	}
	precip, err := m.MonthPrecip()
	if err != nil {
		return err
	}
	aprecipG, err := m.Year.Grid(rangeland.K(rangeland.AnnualPrecip))
	if err != nil {
		return err
	}
	strucc1, err := m.Cur.Grid(rangeland.KL(rangeland.StrucC, 1))
	if err != nil {
		return err
	}
	nLayers := m.MaxNLayer()
	minerl := make([][2]*grid.Grid, nLayers)
	for lyr := 0; lyr < nLayers; lyr++ {
		for i, e := range rangeland.Elems {
			if minerl[lyr][i], err = m.Cur.Grid(rangeland.KLE(rangeland.Minerl, lyr+1, e)); err != nil {
				return err
			}
		}
	}
	pfts := make([]*pftState, 0, len(m.PFTs))
	for _, id := range m.PFTs {
		p, err := collectPFT(m, id)
		if err != nil {
			return err
		}
		pfts = append(pfts, p)
	}

	month := int(m.CurrentMonth)
	return m.EachCell(func(r, c int, site *rangeland.SiteParams) error {
		if taveG.IsNoData(r, c) || petG.IsNoData(r, c) || precip.IsNoData(r, c) {
			return nil
		}
		tave := taveG.Get(r, c)
		shwave := shwaveG.Get(r, c)
		pet := petG.Get(r, c)
		ppt := precip.Get(r, c)
		aprecip := aprecipG.Get(r, c)

		graz := grazingRegime(m, r, c)

		for _, p := range pfts {
			tr := p.params
			h2ogef := WaterFactor(p.avh2o1.Get(r, c), ppt, pet)
			p.h2ogef.Set(h2ogef, r, c)

			if tave < 0 || !p.growsIn(month) || p.vegFrac.IsNoData(r, c) {
				p.zeroOutputs(r, c)
				continue
			}

			potprd := TemperatureFactor(tave, tr.Ppdf)
			biof := ShadingFactor(p.stdedc.Get(r, c), strucc1.Get(r, c), tr.Biok5)
			tgprod := tr.Prdx1 * shwave * potprd * h2ogef * biof * p.vegFrac.Get(r, c)

			fracrc := ProvisionalFracrc(tr.Frtcindx, aprecip,
				site.Agppa, site.Agppb, site.Bgppa, site.Bgppb, tr.Cfrtcw, tr.Cfrtcn)

			// Last month's offtake shifts this month's production and
			// allocation.
			if graz != nil && p.prevFLGrem != nil && !p.prevFLGrem.IsNoData(r, c) {
				flgrem := p.prevFLGrem.Get(r, c)
				if flgrem > 0 {
					agprod, rtsh := GrazingEffect(graz.GrzEff, tgprod, fracrc, flgrem, graz.Gremb)
					tgprod = agprod * (1 + rtsh)
					fracrc = rtsh / (1 + rtsh)
				}
			}

			rimpct := RootImpact(tr.Riint, tr.Rictrl, p.bglivc.Get(r, c))
			fsol := decomp.Fsfunc(minerl[0][1].Get(r, c), site.Pslsrb, site.Sorpmx)
			var eavail [2]float64
			for i := 0; i < 2; i++ {
				s := p.crpstg[i].Get(r, c)
				for lyr := 0; lyr < tr.NLayPG && lyr < site.NLayer; lyr++ {
					v := minerl[lyr][i].Get(r, c)
					if v <= 0 {
						continue
					}
					if i == 1 {
						v *= fsol
					}
					s += v * rimpct
				}
				eavail[i] = s
			}

			fracrc = RevisedFracrc(tr.Frtcindx, fracrc, h2ogef, eavail[0], tr.Cfrtcw, tr.Cfrtcn)

			agBiomass := p.aglivc.Get(r, c) * rangeland.BiomassPerCarbon
			var cerMinA, cerMaxA, cerMinB, cerMaxB [2]float64
			for i := 0; i < 2; i++ {
				cerMinA[i] = ShootRatios(agBiomass, tr.Pramn[i])
				cerMaxA[i] = ShootRatios(agBiomass, tr.Pramx[i])
				cerMinB[i] = RootRatios(aprecip, tr.Prbmn[i])
				cerMaxB[i] = RootRatios(aprecip, tr.Prbmx[i])
			}

			lim := CalcNutrientLimitation(tgprod/rangeland.BiomassPerCarbon, fracrc,
				eavail, cerMinA, cerMaxA, cerMinB, cerMaxB, tr.Snfxmx)

			// Pull the scheduled uptake out of storage, fixation, and
			// the soil, then grow.
			for i := 0; i < 2; i++ {
				demand := lim.EUpAbove[i] + lim.EUpBelow[i]
				fix := 0.0
				if i == 0 {
					fix = lim.PlantNFix
				}
				f := 1.0
				if i == 1 {
					f = fsol
				}
				mins := make([]float64, 0, tr.NLayPG)
				for lyr := 0; lyr < tr.NLayPG && lyr < site.NLayer; lyr++ {
					mins = append(mins, minerl[lyr][i].Get(r, c))
				}
				fromStorage, fromLayers := UptakeSplit(demand, p.crpstg[i].Get(r, c), fix, mins, f)
				p.crpstg[i].Set(p.crpstg[i].Get(r, c)-fromStorage, r, c)
				for lyr, take := range fromLayers {
					minerl[lyr][i].Set(minerl[lyr][i].Get(r, c)-take, r, c)
				}
				p.aglive[i].Set(p.aglive[i].Get(r, c)+lim.EUpAbove[i], r, c)
				p.bglive[i].Set(p.bglive[i].Get(r, c)+lim.EUpBelow[i], r, c)
			}
			p.aglivc.Set(p.aglivc.Get(r, c)+lim.CProdL*(1-fracrc), r, c)
			p.bglivc.Set(p.bglivc.Get(r, c)+lim.CProdL*fracrc, r, c)

			p.tgprod.Set(tgprod, r, c)
			p.fracrc.Set(fracrc, r, c)
			p.cprod.Set(lim.CProdL, r, c)
			p.nfix.Set(lim.PlantNFix, r, c)
			for i := 0; i < 2; i++ {
				p.eavail[i].Set(eavail[i], r, c)
				p.eupAbove[i].Set(lim.EUpAbove[i], r, c)
				p.eupBelow[i].Set(lim.EUpBelow[i], r, c)
				p.cerMinAbove[i].Set(cerMinA[i], r, c)
				p.cerMaxAbove[i].Set(cerMaxA[i], r, c)
				p.cerMinBelow[i].Set(cerMinB[i], r, c)
				p.cerMaxBelow[i].Set(cerMaxB[i], r, c)
			}
		}
		return nil
	})
}

// grazingRegime picks the animal record whose stocking density is
// highest at the cell; nil when the cell is ungrazed. Animals are
// visited in id order so density ties resolve the same way every run.
func grazingRegime(m *rangeland.Model, r, c int) *rangeland.AnimalParams {
	ids := make([]int, 0, len(m.Density))
	for id := range m.Density {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	var best *rangeland.AnimalParams
	bestDens := 0.0
	for _, id := range ids {
		dens := m.Density[id]
		if dens.IsNoData(r, c) {
			continue
		}
		d := dens.Get(r, c)
		if d > bestDens {
			bestDens = d
			best = m.Animals[id]
		}
	}
	return best
}
