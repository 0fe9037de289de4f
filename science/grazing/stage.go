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

package grazing

import (
	"sort"

	"github.com/spatialmodel/rangeland"
	"github.com/spatialmodel/rangeland/grid"
	"github.com/spatialmodel/rangeland/science/decomp"
)

// SenescenceStage builds the stage moving live aboveground biomass to
// standing dead in each PFT's senescence month.
func SenescenceStage(pfts []int) rangeland.Stage {
	var requires []rangeland.Key
	for _, pft := range pfts {
		requires = append(requires, rangeland.KP(rangeland.H2oGef, pft))
	}
	return rangeland.Stage{
		Name:     "senescence",
		Requires: requires,
		Run:      runSenescence,
	}
}

func runSenescence(m *rangeland.Model) error {
	month := int(m.CurrentMonth)
	for _, id := range m.PFTs {
		tr, err := m.PFT(id)
		if err != nil {
			return err
		}
		if tr.SenescenceMont != month {
			continue
		}
		h2ogef, err := m.Month.Grid(rangeland.KP(rangeland.H2oGef, id))
		if err != nil {
			return err
		}
		aglivc, err := m.Cur.Grid(rangeland.KP(rangeland.AGLivC, id))
		if err != nil {
			return err
		}
		stdedc, err := m.Cur.Grid(rangeland.KP(rangeland.StdedC, id))
		if err != nil {
			return err
		}
		var aglive, stdede, crpstg [2]*grid.Grid
		for i, e := range rangeland.Elems {
			if aglive[i], err = m.Cur.Grid(rangeland.KPE(rangeland.AGLivE, id, e)); err != nil {
				return err
			}
			if stdede[i], err = m.Cur.Grid(rangeland.KPE(rangeland.StdedE, id, e)); err != nil {
				return err
			}
			if crpstg[i], err = m.Cur.Grid(rangeland.KPE(rangeland.CrpStg, id, e)); err != nil {
				return err
			}
		}
		err = m.EachCell(func(r, c int, site *rangeland.SiteParams) error {
			if h2ogef.IsNoData(r, c) {
				return nil
			}
			ag := aglivc.Get(r, c)
			if ag <= 0 {
				return nil
			}
			fdeth := SenescenceDeathFraction(tr.Fsdeth, h2ogef.Get(r, c),
				ag*rangeland.BiomassPerCarbon)
			if fdeth <= 0 {
				return nil
			}
			dc := ag * fdeth
			aglivc.Set(ag-dc, r, c)
			stdedc.Set(stdedc.Get(r, c)+dc, r, c)
			for i := 0; i < 2; i++ {
				de := aglive[i].Get(r, c) * fdeth
				toStorage := de * tr.Crprtf[i]
				aglive[i].Set(aglive[i].Get(r, c)-de, r, c)
				crpstg[i].Set(crpstg[i].Get(r, c)+toStorage, r, c)
				stdede[i].Set(stdede[i].Get(r, c)+de-toStorage, r, c)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// GrazingStage builds the diet selection and biomass removal stage.
func GrazingStage(pfts []int) rangeland.Stage {
	provides := []rangeland.Key{rangeland.K(rangeland.DietSuff)}
	for _, pft := range pfts {
		provides = append(provides,
			rangeland.KP(rangeland.FLGrem, pft),
			rangeland.KP(rangeland.FDGrem, pft))
	}
	return rangeland.Stage{
		Name:     "grazing",
		Provides: provides,
		Run:      runGrazing,
	}
}

type pftPools struct {
	id             int
	aglivc, stdedc *grid.Grid
	aglive, stdede [2]*grid.Grid
	flgrem, fdgrem *grid.Grid
}

func runGrazing(m *rangeland.Model) error {
	var err error
	cur := func(k rangeland.Key) *grid.Grid {
		if err != nil {
			return nil
		}
		var g *grid.Grid
		g, err = m.Cur.Grid(k)
		return g
	}
	pools := make([]*pftPools, 0, len(m.PFTs))
	for _, id := range m.PFTs {
		p := &pftPools{id: id}
		p.aglivc = cur(rangeland.KP(rangeland.AGLivC, id))
		p.stdedc = cur(rangeland.KP(rangeland.StdedC, id))
		for i, e := range rangeland.Elems {
			p.aglive[i] = cur(rangeland.KPE(rangeland.AGLivE, id, e))
			p.stdede[i] = cur(rangeland.KPE(rangeland.StdedE, id, e))
		}
		if p.flgrem, err = m.Month.Provide(rangeland.KP(rangeland.FLGrem, id)); err != nil {
			return err
		}
		if p.fdgrem, err = m.Month.Provide(rangeland.KP(rangeland.FDGrem, id)); err != nil {
			return err
		}
		pools = append(pools, p)
	}
	dietSuff, err := m.Month.Provide(rangeland.K(rangeland.DietSuff))
	if err != nil {
		return err
	}
	strucc1 := cur(rangeland.KL(rangeland.StrucC, 1))
	metabc1 := cur(rangeland.KL(rangeland.MetabC, 1))
	strlig1 := cur(rangeland.KL(rangeland.StrLig, 1))
	var struce1, metabe1, minerl1 [2]*grid.Grid
	for i, e := range rangeland.Elems {
		struce1[i] = cur(rangeland.KLE(rangeland.StrucE, 1, e))
		metabe1[i] = cur(rangeland.KLE(rangeland.MetabE, 1, e))
		minerl1[i] = cur(rangeland.KLE(rangeland.Minerl, 1, e))
	}
	if err != nil {
		return err
	}

	animalIDs := make([]int, 0, len(m.Density))
	for id := range m.Density {
		animalIDs = append(animalIDs, id)
	}
	sort.Ints(animalIDs)

	err = m.EachCell(func(r, c int, site *rangeland.SiteParams) error {
		feeds := make([]*Feed, 0, 2*len(pools))
		for _, p := range pools {
			live := &Feed{PFT: p.id, Live: true,
				Biomass: p.aglivc.Get(r, c) * rangeland.BiomassPerCarbon}
			dead := &Feed{PFT: p.id,
				Biomass: p.stdedc.Get(r, c) * rangeland.BiomassPerCarbon}
			for i := 0; i < 2; i++ {
				live.E[i] = p.aglive[i].Get(r, c)
				dead.E[i] = p.stdede[i].Get(r, c)
			}
			feeds = append(feeds, live, dead)
		}

		var intakeME, reqME float64
		for _, id := range animalIDs {
			dens := m.Density[id]
			if dens.IsNoData(r, c) {
				continue
			}
			d := dens.Get(r, c)
			if d <= 0 {
				continue
			}
			an := m.Animals[id]
			for _, f := range feeds {
				cp := CrudeProtein(f.E[0], f.Biomass)
				f.Digestibility = Digestibility(cp, an.DigIntercept, an.DigSlope,
					an.DigMin, an.DigMax)
			}
			before := make([]float64, len(feeds))
			for k, f := range feeds {
				before[k] = f.Eaten
			}
			// kg/day per animal to g/m2 over the month at the cell's
			// stocking density [animals/ha].
			demand := IntakeCapacity(an.IntakeCoef, an.Weight) * daysPerMonth * d * 0.1
			SelectDiet(feeds, demand, an.MgmtThreshold)
			reqME += MaintenanceEnergy(an.EMaintCoef, an.Weight) * daysPerMonth * d / 10000

			// This animal's offtake drives its energy intake and its
			// fecal and urinary returns.
			var cEaten float64
			var eEaten [2]float64
			for k, f := range feeds {
				eaten := f.Eaten - before[k]
				if eaten <= 0 {
					continue
				}
				intakeME += eaten / 1000 * MEContent(f.Digestibility)
				cEaten += eaten / rangeland.BiomassPerCarbon
				for i := 0; i < 2; i++ {
					eEaten[i] += f.E[i] * eaten / f.Biomass
				}
			}
			if cEaten <= 0 {
				continue
			}
			fecalC := cEaten * an.GFCRet
			var fecalE, minerl [2]float64
			for i := 0; i < 2; i++ {
				ret := eEaten[i] * an.GRet[i]
				fecalE[i] = ret * an.FecF[i]
				// Urine goes straight to the surface mineral pool.
				minerl1[i].Set(minerl1[i].Get(r, c)+ret*(1-an.FecF[i]), r, c)
				minerl[i] = minerl1[i].Get(r, c)
			}
			res := decomp.Partit(fecalC, fecalE, an.FecLig, minerl, site.Damr, site.Spl)
			oldStruc := strucc1.Get(r, c)
			strucc1.Set(oldStruc+res.DStrucC, r, c)
			metabc1.Set(metabc1.Get(r, c)+res.DMetabC, r, c)
			if oldStruc+res.DStrucC > 0 {
				lig := (strlig1.Get(r, c)*oldStruc + res.StrucLigC) / (oldStruc + res.DStrucC)
				strlig1.Set(lig, r, c)
			}
			for i := 0; i < 2; i++ {
				struce1[i].Set(struce1[i].Get(r, c)+res.DStrucE[i], r, c)
				metabe1[i].Set(metabe1[i].Get(r, c)+res.DMetabE[i], r, c)
				minerl1[i].Set(minerl1[i].Get(r, c)+res.DMinerl1[i], r, c)
			}
		}

		// Offtake fractions, then pool removal proportional to them.
		for k, p := range pools {
			live, dead := feeds[2*k], feeds[2*k+1]
			var flgrem, fdgrem float64
			if live.Biomass > 0 {
				flgrem = live.Eaten / live.Biomass
			}
			if dead.Biomass > 0 {
				fdgrem = dead.Eaten / dead.Biomass
			}
			p.flgrem.Set(flgrem, r, c)
			p.fdgrem.Set(fdgrem, r, c)
			if flgrem > 0 {
				p.aglivc.Set(p.aglivc.Get(r, c)*(1-flgrem), r, c)
				for i := 0; i < 2; i++ {
					p.aglive[i].Set(p.aglive[i].Get(r, c)*(1-flgrem), r, c)
				}
			}
			if fdgrem > 0 {
				p.stdedc.Set(p.stdedc.Get(r, c)*(1-fdgrem), r, c)
				for i := 0; i < 2; i++ {
					p.stdede[i].Set(p.stdede[i].Get(r, c)*(1-fdgrem), r, c)
				}
			}
		}

		if reqME > 0 {
			dietSuff.Set(intakeME/reqME, r, c)
		} else {
			dietSuff.Set(0, r, c)
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Offtake fractions persist so next month's production can respond
	// to this month's grazing pressure.
	for _, p := range pools {
		if err := m.Cur.Replace(rangeland.KP(rangeland.FLGrem, p.id), p.flgrem.Copy()); err != nil {
			return err
		}
		if err := m.Cur.Replace(rangeland.KP(rangeland.FDGrem, p.id), p.fdgrem.Copy()); err != nil {
			return err
		}
	}
	return nil
}
