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

package soilwater

import (
	"github.com/spatialmodel/rangeland"
	"github.com/spatialmodel/rangeland/grid"
)

// Stage builds the soil water balance stage, the first phase of each
// simulated month. nLayers is the deepest hydrologic layer across the
// site table.
func Stage(nLayers int) rangeland.Stage {
	provides := []rangeland.Key{
		rangeland.K(rangeland.Tave),
		rangeland.K(rangeland.Shwave),
		rangeland.K(rangeland.PET),
		rangeland.K(rangeland.Rprpet),
	}
	for lyr := 1; lyr <= nLayers; lyr++ {
		provides = append(provides, rangeland.KL(rangeland.Amov, lyr))
	}
	return rangeland.Stage{
		Name:     "soil water",
		Provides: provides,
		Run:      run,
	}
}

func run(m *rangeland.Model) error {
	precip, err := m.MonthPrecip()
	if err != nil {
		return err
	}
	tmin, tmax, err := m.MonthTemps()
	if err != nil {
		return err
	}

	taveG, err := m.Month.Provide(rangeland.K(rangeland.Tave))
	if err != nil {
		return err
	}
	shwaveG, err := m.Month.Provide(rangeland.K(rangeland.Shwave))
	if err != nil {
		return err
	}
	petG, err := m.Month.Provide(rangeland.K(rangeland.PET))
	if err != nil {
		return err
	}
	rprpetG, err := m.Month.Provide(rangeland.K(rangeland.Rprpet))
	if err != nil {
		return err
	}
	nLayers := m.MaxNLayer()
	amovG := make([]*grid.Grid, nLayers)
	for lyr := 0; lyr < nLayers; lyr++ {
		if amovG[lyr], err = m.Month.Provide(rangeland.KL(rangeland.Amov, lyr+1)); err != nil {
			return err
		}
	}

	snowG, err := m.Cur.Grid(rangeland.K(rangeland.Snow))
	if err != nil {
		return err
	}
	snlqG, err := m.Cur.Grid(rangeland.K(rangeland.Snlq))
	if err != nil {
		return err
	}
	avh2o3G, err := m.Cur.Grid(rangeland.K(rangeland.Avh2o3))
	if err != nil {
		return err
	}
	asmosG := make([]*grid.Grid, nLayers)
	for lyr := 0; lyr < nLayers; lyr++ {
		if asmosG[lyr], err = m.Cur.Grid(rangeland.KL(rangeland.Asmos, lyr+1)); err != nil {
			return err
		}
	}
	strucc1, err := m.Cur.Grid(rangeland.KL(rangeland.StrucC, 1))
	if err != nil {
		return err
	}
	metabc1, err := m.Cur.Grid(rangeland.KL(rangeland.MetabC, 1))
	if err != nil {
		return err
	}
	som1c2, err := m.Cur.Grid(rangeland.KL(rangeland.SOM1C, 2))
	if err != nil {
		return err
	}
	som2c2, err := m.Cur.Grid(rangeland.KL(rangeland.SOM2C, 2))
	if err != nil {
		return err
	}
	som3c, err := m.Cur.Grid(rangeland.K(rangeland.SOM3C))
	if err != nil {
		return err
	}
	type pftGrids struct {
		pft            int
		nLayPG         int
		aglivc, stdedc *grid.Grid
		avh2o1         *grid.Grid
	}
	var pfts []pftGrids
	for _, id := range m.PFTs {
		p, err := m.PFT(id)
		if err != nil {
			return err
		}
		ag, err := m.Cur.Grid(rangeland.KP(rangeland.AGLivC, id))
		if err != nil {
			return err
		}
		sd, err := m.Cur.Grid(rangeland.KP(rangeland.StdedC, id))
		if err != nil {
			return err
		}
		av, err := m.Cur.Grid(rangeland.KP(rangeland.Avh2o1, id))
		if err != nil {
			return err
		}
		pfts = append(pfts, pftGrids{id, p.NLayPG, ag, sd, av})
	}

	month := int(m.CurrentMonth)
	return m.EachCell(func(r, c int, site *rangeland.SiteParams) error {
		if precip.IsNoData(r, c) || tmin.IsNoData(r, c) || tmax.IsNoData(r, c) {
			return nil
		}
		ppt := precip.Get(r, c)
		tave := (tmin.Get(r, c) + tmax.Get(r, c)) / 2
		shwave := Shortwave(month, m.Soil.Latitude.Get(r, c))
		pet := ReferenceET(tmax.Get(r, c), tmin.Get(r, c), shwave, ppt, site.Fwloss[3])
		if pet < 0.01 {
			pet = 0.01
		}

		var live, standing float64
		for _, p := range pfts {
			live += p.aglivc.Get(r, c) * rangeland.BiomassPerCarbon
			standing += p.stdedc.Get(r, c) * rangeland.BiomassPerCarbon
		}
		standing += live
		litter := (strucc1.Get(r, c) + metabc1.Get(r, c)) * rangeland.BiomassPerCarbon

		afiel, awilt := FieldCapacityWiltingPoint(
			m.Soil.Sand.Get(r, c), m.Soil.Silt.Get(r, c), m.Soil.Clay.Get(r, c),
			m.Soil.BulkD.Get(r, c), site.Edepth,
			som1c2.Get(r, c), som2c2.Get(r, c), som3c.Get(r, c), site.NLayer)

		sn := SnowDynamics(tave, ppt, snowG.Get(r, c), snlqG.Get(r, c),
			pet, site.Tmelt1, site.Tmelt2, shwave)

		toSoil, bareFrac := SurfaceLosses(sn.Inputs, sn.PETRem, litter, standing,
			site.Fracro, site.Precro, site.Fwloss[0], site.Fwloss[1])

		trap, toSoil := PotentialTranspiration(sn.PETRem, tave, live, toSoil)

		asmos := make([]float64, site.NLayer)
		for lyr := range asmos {
			asmos[lyr] = asmosG[lyr].Get(r, c)
		}
		amov := Redistribute(toSoil, asmos, afiel, site.Adep)
		TranspirationRemoval(trap, asmos, awilt, site.Adep, site.Awtl)
		asmos[0], _ = SurfaceEvaporation(asmos[0], awilt[0], afiel[0],
			site.Adep[0], bareFrac*sn.PETRem)

		for lyr := range asmos {
			asmosG[lyr].Set(asmos[lyr], r, c)
			amovG[lyr].Set(amov[lyr], r, c)
		}
		for lyr := site.NLayer; lyr < nLayers; lyr++ {
			amovG[lyr].Set(0, r, c)
		}
		snowG.Set(sn.Snow, r, c)
		snlqG.Set(sn.Snlq, r, c)

		availBelow := func(n int) float64 {
			var s float64
			for lyr := 0; lyr < n && lyr < site.NLayer; lyr++ {
				a := asmos[lyr] - awilt[lyr]*site.Adep[lyr]
				if a > 0 {
					s += a
				}
			}
			return s
		}
		for _, p := range pfts {
			p.avh2o1.Set(availBelow(p.nLayPG), r, c)
		}
		avh2o3 := availBelow(2)
		avh2o3G.Set(avh2o3, r, c)

		taveG.Set(tave, r, c)
		shwaveG.Set(shwave, r, c)
		petG.Set(pet, r, c)
		rprpetG.Set((avh2o3+ppt)/pet, r, c)
		return nil
	})
}
