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

package rangeland

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spatialmodel/rangeland/grid"
)

// Elem indexes the mineral elements tracked alongside carbon.
type Elem int

// Tracked elements.
const (
	N Elem = iota + 1
	P
)

// Elems lists the tracked elements in canonical order.
var Elems = []Elem{N, P}

func (e Elem) String() string {
	switch e {
	case N:
		return "N"
	case P:
		return "P"
	}
	return fmt.Sprintf("Elem(%d)", int(e))
}

// Variable identifies one model quantity. A Variable combined with its
// layer, plant functional type, and element indices forms a Key. Grid
// registries are keyed by Key; string-assembled names appear only in
// error messages and output file names.
type Variable int

// Persisted state variables.
const (
	// Per plant functional type.
	AGLivC Variable = iota // aboveground live carbon
	BGLivC                 // belowground (root) live carbon
	StdedC                 // standing dead carbon
	AGLivE                 // aboveground live N or P
	BGLivE                 // belowground live N or P
	StdedE                 // standing dead N or P
	CrpStg                 // crop nutrient storage pool
	Avh2o1                 // plant-available water within rooting depth

	// Litter and soil organic matter; layer 1 = surface, 2 = soil.
	StrucC
	MetabC
	StrucE
	MetabE
	StrLig // lignin fraction of structural material
	SOM1C
	SOM2C
	SOM3C // soil only; no layer index
	SOM1E
	SOM2E
	SOM3E

	// Mineral pools; Minerl is per soil layer.
	Minerl
	Parent
	Secndy
	Occlud // occluded P

	// Water state.
	Asmos // per-layer soil moisture
	Snow
	Snlq   // liquid water in snowpack
	Avh2o3 // available water, top two layers

	// Monthly intermediates (not persisted across months).
	Tave
	Shwave
	PET
	Rprpet
	Defac
	Anerb
	Amov // per-layer percolation out of layer
	H2oGef
	TotProdPot
	Fracrc
	Eavail
	CProd
	EUpAbove
	EUpBelow
	PlantNFix
	CercrpMinAbove
	CercrpMaxAbove
	CercrpMinBelow
	CercrpMaxBelow
	FLGrem // fraction of live biomass removed by grazing
	FDGrem // fraction of standing dead removed by grazing
	GrossMin
	DietSuff
	StandingBiomass
	LiveFrac
	PastureHeight

	// Yearly quantities, constant over a calendar year.
	AnnualPrecip
	BaseNDep
	PltLigAbove
	PltLigBelow

	numVariables
)

type varInfo struct {
	name     string
	hasLayer bool
	hasPFT   bool
	hasElem  bool
	state    bool // persisted in the state registry
}

var varTable = map[Variable]varInfo{
	AGLivC: {"aglivc", false, true, false, true},
	BGLivC: {"bglivc", false, true, false, true},
	StdedC: {"stdedc", false, true, false, true},
	AGLivE: {"aglive", false, true, true, true},
	BGLivE: {"bglive", false, true, true, true},
	StdedE: {"stdede", false, true, true, true},
	CrpStg: {"crpstg", false, true, true, true},
	Avh2o1: {"avh2o_1", false, true, false, true},

	StrucC: {"strucc", true, false, false, true},
	MetabC: {"metabc", true, false, false, true},
	StrucE: {"struce", true, false, true, true},
	MetabE: {"metabe", true, false, true, true},
	StrLig: {"strlig", true, false, false, true},
	SOM1C:  {"som1c", true, false, false, true},
	SOM2C:  {"som2c", true, false, false, true},
	SOM3C:  {"som3c", false, false, false, true},
	SOM1E:  {"som1e", true, false, true, true},
	SOM2E:  {"som2e", true, false, true, true},
	SOM3E:  {"som3e", false, false, true, true},

	Minerl: {"minerl", true, false, true, true},
	Parent: {"parent", false, false, true, true},
	Secndy: {"secndy", false, false, true, true},
	Occlud: {"occlud", false, false, false, true},

	Asmos:  {"asmos", true, false, false, true},
	Snow:   {"snow", false, false, false, true},
	Snlq:   {"snlq", false, false, false, true},
	Avh2o3: {"avh2o_3", false, false, false, true},

	Tave:            {"tave", false, false, false, false},
	Shwave:          {"shwave", false, false, false, false},
	PET:             {"pevap", false, false, false, false},
	Rprpet:          {"rprpet", false, false, false, false},
	Defac:           {"defac", false, false, false, false},
	Anerb:           {"anerb", false, false, false, false},
	Amov:            {"amov", true, false, false, false},
	H2oGef:          {"h2ogef_1", false, true, false, false},
	TotProdPot:      {"tgprod_pot", false, true, false, false},
	Fracrc:          {"fracrc", false, true, false, false},
	Eavail:          {"eavail", false, true, true, false},
	CProd:           {"cprodl", false, true, false, false},
	EUpAbove:        {"eup_above", false, true, true, false},
	EUpBelow:        {"eup_below", false, true, true, false},
	PlantNFix:       {"plantnfix", false, true, false, false},
	CercrpMinAbove:  {"cercrp_min_above", false, true, true, false},
	CercrpMaxAbove:  {"cercrp_max_above", false, true, true, false},
	CercrpMinBelow:  {"cercrp_min_below", false, true, true, false},
	CercrpMaxBelow:  {"cercrp_max_below", false, true, true, false},
	FLGrem:          {"flgrem", false, true, false, false},
	FDGrem:          {"fdgrem", false, true, false, false},
	GrossMin:        {"gromin", false, false, false, false},
	DietSuff:        {"diet_sufficiency", false, false, false, false},
	StandingBiomass: {"standing_biomass", false, false, false, false},
	LiveFrac:        {"live_fraction", false, false, false, false},
	PastureHeight:   {"pasture_height", false, false, false, false},

	AnnualPrecip: {"annual_precip", false, false, false, false},
	BaseNDep:     {"base_n_dep", false, false, false, false},
	PltLigAbove:  {"pltlig_above", false, true, false, false},
	PltLigBelow:  {"pltlig_below", false, true, false, false},
}

func (v Variable) String() string {
	if info, ok := varTable[v]; ok {
		return info.name
	}
	return fmt.Sprintf("Variable(%d)", int(v))
}

// Key identifies one grid in a registry: a variable plus whichever of
// soil layer, plant functional type, and element apply to it. Unused
// dimensions stay zero.
type Key struct {
	Var   Variable
	Layer int
	PFT   int
	Elem  Elem
}

// K builds a key for a variable with no index dimensions.
func K(v Variable) Key { return Key{Var: v} }

// KL builds a per-layer key.
func KL(v Variable, layer int) Key { return Key{Var: v, Layer: layer} }

// KLE builds a per-layer, per-element key.
func KLE(v Variable, layer int, e Elem) Key { return Key{Var: v, Layer: layer, Elem: e} }

// KP builds a per-PFT key.
func KP(v Variable, pft int) Key { return Key{Var: v, PFT: pft} }

// KPE builds a per-PFT, per-element key.
func KPE(v Variable, pft int, e Elem) Key { return Key{Var: v, PFT: pft, Elem: e} }

// KE builds a per-element key.
func KE(v Variable, e Elem) Key { return Key{Var: v, Elem: e} }

// String renders the key in the external naming convention, e.g.
// "minerl_2_N", "aglivc_3", "som1c_2".
func (k Key) String() string {
	info := varTable[k.Var]
	parts := []string{info.name}
	if info.hasLayer {
		parts = append(parts, fmt.Sprintf("%d", k.Layer))
	}
	if info.hasElem {
		parts = append(parts, k.Elem.String())
	}
	if info.hasPFT {
		parts = append(parts, fmt.Sprintf("%d", k.PFT))
	}
	return strings.Join(parts, "_")
}

// validate reports keys whose index dimensions do not match the
// variable's declared shape.
func (k Key) validate() error {
	info, ok := varTable[k.Var]
	if !ok {
		return fmt.Errorf("rangeland: unknown variable %v", k.Var)
	}
	if info.hasLayer != (k.Layer != 0) {
		return fmt.Errorf("rangeland: key %s: layer index mismatch", k)
	}
	if info.hasPFT != (k.PFT != 0) {
		return fmt.Errorf("rangeland: key %s: PFT index mismatch", k)
	}
	if info.hasElem != (k.Elem != 0) {
		return fmt.Errorf("rangeland: key %s: element index mismatch", k)
	}
	return nil
}

// Reg is a registry of named grids. State registries are write-once per
// key per month; the owning stage creates each grid through Provide and
// later stages read it through Grid.
type Reg struct {
	rows, cols int
	noData     float64
	grids      map[Key]*grid.Grid
}

// NewReg creates an empty registry whose grids share the given shape and
// no-data sentinel.
func NewReg(rows, cols int, noData float64) *Reg {
	return &Reg{rows: rows, cols: cols, noData: noData, grids: make(map[Key]*grid.Grid)}
}

// Grid returns the grid stored under k, or an error naming the missing key.
func (r *Reg) Grid(k Key) (*grid.Grid, error) {
	g, ok := r.grids[k]
	if !ok {
		return nil, fmt.Errorf("rangeland: registry has no grid %q", k.String())
	}
	return g, nil
}

// Has reports whether the registry holds a grid for k.
func (r *Reg) Has(k Key) bool {
	_, ok := r.grids[k]
	return ok
}

// Set stores g under k. Re-registering an existing key is an error: each
// grid is written once per month by its owning stage.
func (r *Reg) Set(k Key, g *grid.Grid) error {
	if err := k.validate(); err != nil {
		return err
	}
	if _, ok := r.grids[k]; ok {
		return fmt.Errorf("rangeland: grid %q already registered", k.String())
	}
	if g.Rows() != r.rows || g.Cols() != r.cols {
		return fmt.Errorf("rangeland: grid %q shape (%d,%d) does not match registry (%d,%d)",
			k.String(), g.Rows(), g.Cols(), r.rows, r.cols)
	}
	r.grids[k] = g
	return nil
}

// Provide creates a sentinel-filled grid under k and returns it. The
// owning stage fills the valid cells; cells it never touches stay no-data.
func (r *Reg) Provide(k Key) (*grid.Grid, error) {
	g := grid.New(r.rows, r.cols, r.noData)
	if err := r.Set(k, g); err != nil {
		return nil, err
	}
	return g, nil
}

// Replace stores g under k whether or not a grid is already present.
// It is used by the driver when promoting stage outputs into the
// current-state registry; stages themselves use Set/Provide.
func (r *Reg) Replace(k Key, g *grid.Grid) error {
	if err := k.validate(); err != nil {
		return err
	}
	if g.Rows() != r.rows || g.Cols() != r.cols {
		return fmt.Errorf("rangeland: grid %q shape (%d,%d) does not match registry (%d,%d)",
			k.String(), g.Rows(), g.Cols(), r.rows, r.cols)
	}
	r.grids[k] = g
	return nil
}

// Keys returns the registered keys sorted by their string form.
func (r *Reg) Keys() []Key {
	keys := make([]Key, 0, len(r.grids))
	for k := range r.grids {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

// Clone deep-copies the registry and every grid in it.
func (r *Reg) Clone() *Reg {
	out := NewReg(r.rows, r.cols, r.noData)
	for k, g := range r.grids {
		out.grids[k] = g.Copy()
	}
	return out
}

// Missing returns, from the given required keys, those not present in the
// registry, sorted by name. Validation errors enumerate the full list
// rather than stopping at the first absence.
func (r *Reg) Missing(required []Key) []Key {
	var missing []Key
	for _, k := range required {
		if !r.Has(k) {
			missing = append(missing, k)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i].String() < missing[j].String() })
	return missing
}

// RequiredStateKeys enumerates every state variable the model persists,
// given the number of soil layers and the modeled PFT ids. Initial
// conditions must supply all of them.
func RequiredStateKeys(nLayers int, pfts []int) []Key {
	var keys []Key
	for _, pft := range pfts {
		keys = append(keys,
			KP(AGLivC, pft), KP(BGLivC, pft), KP(StdedC, pft), KP(Avh2o1, pft))
		for _, e := range Elems {
			keys = append(keys,
				KPE(AGLivE, pft, e), KPE(BGLivE, pft, e),
				KPE(StdedE, pft, e), KPE(CrpStg, pft, e))
		}
	}
	for lyr := 1; lyr <= 2; lyr++ {
		keys = append(keys,
			KL(StrucC, lyr), KL(MetabC, lyr), KL(StrLig, lyr),
			KL(SOM1C, lyr), KL(SOM2C, lyr))
		for _, e := range Elems {
			keys = append(keys,
				KLE(StrucE, lyr, e), KLE(MetabE, lyr, e),
				KLE(SOM1E, lyr, e), KLE(SOM2E, lyr, e))
		}
	}
	keys = append(keys, K(SOM3C))
	for _, e := range Elems {
		keys = append(keys, KE(SOM3E, e), KE(Parent, e), KE(Secndy, e))
	}
	keys = append(keys, K(Occlud))
	for lyr := 1; lyr <= nLayers; lyr++ {
		keys = append(keys, KL(Asmos, lyr))
		for _, e := range Elems {
			keys = append(keys, KLE(Minerl, lyr, e))
		}
	}
	keys = append(keys, K(Snow), K(Snlq), K(Avh2o3))
	return keys
}

// YearlyKeys enumerates the quantities recomputed once per year and held
// constant across that year's months.
func YearlyKeys(pfts []int) []Key {
	keys := []Key{K(AnnualPrecip), K(BaseNDep)}
	for _, pft := range pfts {
		keys = append(keys, KP(PltLigAbove, pft), KP(PltLigBelow, pft))
	}
	return keys
}
