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

	"github.com/spf13/cast"
	"github.com/tealeg/xlsx"
)

// SiteParams holds site-level parameters, one record per integer site id.
// Records are constructed once at load time and are read-only afterwards.
type SiteParams struct {
	// Soil profile.
	NLayer int       // number of hydrologic soil layers
	Edepth float64   // depth of the surface decomposition layer [m]
	Adep   []float64 // layer thicknesses [cm], length NLayer
	Awtl   []float64 // layer transpiration weights, length NLayer

	// Water balance.
	Fracro float64 // fraction of excess precipitation lost to runoff
	Precro float64 // precipitation threshold for runoff [cm]
	Fwloss [4]float64
	Tmelt1 float64 // temperature threshold for snowmelt [deg C]
	Tmelt2 float64 // snowmelt rate per degree per unit shortwave
	Drain  float64 // drainage fraction (1 = freely drained)
	Aneref [3]float64

	// Yearly atmospheric deposition.
	Epnfa1 float64
	Epnfa2 float64

	// Great Plains root allocation regression.
	Agppa float64
	Agppb float64
	Bgppa float64
	Bgppb float64

	// Decomposition rate constants [1/month].
	DecStruc [2]float64 // surface, soil structural
	DecMetab [2]float64 // surface, soil metabolic
	DecSOM1  [2]float64 // surface, soil SOM1
	DecSOM2  float64
	DecSOM3  float64
	Strmax   [2]float64 // structural pool size cap entering decomposition

	// Respiration fractions.
	Rsplig float64    // lignin-derived flow to SOM2
	Ps1co2 [2]float64 // structural to SOM1
	Pmco2  [2]float64 // metabolic to SOM1
	P1co2  [2]float64 // SOM1 onward
	P2co2  float64    // SOM2 onward
	P3co2  float64    // SOM3 onward

	// SOM3 partition fractions (intercept, clay slope).
	Ps1s3 [2]float64
	Ps2s3 [2]float64

	// pH effect arctangent coefficients (location, intercept, range, slope).
	PHCoeff [4]float64

	// Leaching.
	OmLech [3]float64

	// Phosphorus sorption.
	Pslsrb float64
	Sorpmx float64

	// Required C/E ratio interpolation for receiving pools, per element:
	// index 0 = N, 1 = P; entries are (ratio at zero mineral, ratio at
	// saturating mineral, mineral level at saturation).
	Varat1 [2][3]float64
	Varat2 [2][3]float64
	Varat3 [2][3]float64

	// Residue partitioning.
	Spl  [2]float64 // metabolic split intercept and lignin:N slope
	Damr [2]float64 // direct absorption of mineral N, P into residue

	// Extra carries parameters not in the fixed schema. Narrow escape
	// hatch for site files with additional columns.
	Extra map[string]float64
}

// PFTParams holds plant-functional-type traits, one record per PFT id.
type PFTParams struct {
	Prdx1  float64 // potential production coefficient [g C/m2 per unit radiation]
	Ppdf   [4]float64
	Biok5  float64
	Pmxbio float64
	NLayPG int // deepest soil layer reached by roots

	Frtcindx int // root allocation regression selector (0 or 1)
	Cfrtcw   [2]float64
	Cfrtcn   [2]float64

	Snfxmx float64 // maximum symbiotic N fixation fraction

	GrowthMonths   []int // calendar months in which growth occurs
	SenescenceMont int   // calendar month of senescence
	Fsdeth         [4]float64
	Crprtf         [2]float64 // live nutrient diverted to storage at senescence, N and P

	// Lignin fraction regression on annual precipitation.
	FligniAbove [2]float64
	FligniBelow [2]float64

	// Root impact on nutrient availability.
	Riint  float64
	Rictrl float64

	// Shoot C/E ratio interpolation on aboveground biomass,
	// per element (index 0 = N, 1 = P): value at zero and at
	// saturating biomass.
	Pramn [2][2]float64
	Pramx [2][2]float64
	// Root C/E ratio regression on annual precipitation (intercept, slope).
	Prbmn [2][2]float64
	Prbmx [2][2]float64

	Extra map[string]float64
}

// AnimalParams holds grazing-animal traits, one record per animal id.
type AnimalParams struct {
	Weight     float64 // live weight [kg]
	IntakeCoef float64 // intake capacity [kg DM/day per kg metabolic weight]
	EMaintCoef float64 // maintenance energy requirement [MJ/day per kg metabolic weight]

	// Digestibility regression on crude protein concentration.
	DigIntercept float64
	DigSlope     float64
	DigMin       float64
	DigMax       float64

	GrzEff int     // grazing-effect regime, 1..6
	Gremb  float64 // root:shoot grazing-effect multiplier

	GFCRet float64    // fraction of consumed C returned in feces
	GRet   [2]float64 // fraction of consumed N, P returned to the pasture
	FecF   [2]float64 // of returned N, P, the fraction in feces (rest is urine)
	FecLig float64    // lignin fraction of feces

	MgmtThreshold float64 // residual biomass below which no offtake occurs [g/m2]

	Extra map[string]float64
}

// ParamRow is one raw table row: column name to cell text.
type ParamRow map[string]string

// rowReader pulls typed fields out of a ParamRow, accumulating the names
// of missing or malformed columns so validation can report all of them
// at once.
type rowReader struct {
	row     ParamRow
	used    map[string]bool
	missing []string
	bad     []string
}

func newRowReader(row ParamRow) *rowReader {
	return &rowReader{row: row, used: make(map[string]bool)}
}

func (r *rowReader) float(name string) float64 {
	r.used[name] = true
	s, ok := r.row[name]
	if !ok || strings.TrimSpace(s) == "" {
		r.missing = append(r.missing, name)
		return 0
	}
	v, err := cast.ToFloat64E(strings.TrimSpace(s))
	if err != nil {
		r.bad = append(r.bad, name)
		return 0
	}
	return v
}

func (r *rowReader) int(name string) int {
	r.used[name] = true
	s, ok := r.row[name]
	if !ok || strings.TrimSpace(s) == "" {
		r.missing = append(r.missing, name)
		return 0
	}
	v, err := cast.ToIntE(strings.TrimSpace(s))
	if err != nil {
		r.bad = append(r.bad, name)
		return 0
	}
	return v
}

// intList parses a semicolon- or comma-separated list of integers, e.g.
// a growth-month list "3;4;5;6".
func (r *rowReader) intList(name string) []int {
	r.used[name] = true
	s, ok := r.row[name]
	if !ok || strings.TrimSpace(s) == "" {
		r.missing = append(r.missing, name)
		return nil
	}
	fields := strings.FieldsFunc(s, func(c rune) bool { return c == ';' || c == ',' })
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		v, err := cast.ToIntE(strings.TrimSpace(f))
		if err != nil {
			r.bad = append(r.bad, name)
			return nil
		}
		out = append(out, v)
	}
	return out
}

func (r *rowReader) finish(kind string, id int) (map[string]float64, error) {
	var msgs []string
	if len(r.missing) > 0 {
		sort.Strings(r.missing)
		msgs = append(msgs, fmt.Sprintf("missing parameters: %s", strings.Join(r.missing, ", ")))
	}
	if len(r.bad) > 0 {
		sort.Strings(r.bad)
		msgs = append(msgs, fmt.Sprintf("unparseable parameters: %s", strings.Join(r.bad, ", ")))
	}
	if len(msgs) > 0 {
		return nil, fmt.Errorf("rangeland: %s table, id %d: %s", kind, id, strings.Join(msgs, "; "))
	}
	extra := make(map[string]float64)
	for name, s := range r.row {
		if r.used[name] {
			continue
		}
		if v, err := cast.ToFloat64E(strings.TrimSpace(s)); err == nil {
			extra[name] = v
		}
	}
	if len(extra) == 0 {
		extra = nil
	}
	return extra, nil
}

// SiteParamsFromRow builds a site record from a raw table row.
func SiteParamsFromRow(id int, row ParamRow) (*SiteParams, error) {
	r := newRowReader(row)
	p := &SiteParams{}
	p.NLayer = r.int("nlayer")
	p.Edepth = r.float("edepth")
	if p.NLayer > 0 {
		p.Adep = make([]float64, p.NLayer)
		p.Awtl = make([]float64, p.NLayer)
		for lyr := 1; lyr <= p.NLayer; lyr++ {
			p.Adep[lyr-1] = r.float(fmt.Sprintf("adep_%d", lyr))
			p.Awtl[lyr-1] = r.float(fmt.Sprintf("awtl_%d", lyr))
		}
	}
	p.Fracro = r.float("fracro")
	p.Precro = r.float("precro")
	for i := 0; i < 4; i++ {
		p.Fwloss[i] = r.float(fmt.Sprintf("fwloss_%d", i+1))
	}
	p.Tmelt1 = r.float("tmelt_1")
	p.Tmelt2 = r.float("tmelt_2")
	p.Drain = r.float("drain")
	for i := 0; i < 3; i++ {
		p.Aneref[i] = r.float(fmt.Sprintf("aneref_%d", i+1))
	}
	p.Epnfa1 = r.float("epnfa_1")
	p.Epnfa2 = r.float("epnfa_2")
	p.Agppa = r.float("agppa")
	p.Agppb = r.float("agppb")
	p.Bgppa = r.float("bgppa")
	p.Bgppb = r.float("bgppb")
	for i := 0; i < 2; i++ {
		sfx := fmt.Sprintf("_%d", i+1)
		p.DecStruc[i] = r.float("dec1" + sfx)
		p.DecMetab[i] = r.float("dec2" + sfx)
		p.DecSOM1[i] = r.float("dec3" + sfx)
		p.Strmax[i] = r.float("strmax" + sfx)
		p.Ps1co2[i] = r.float("ps1co2" + sfx)
		p.Pmco2[i] = r.float("pmco2" + sfx)
		p.P1co2[i] = r.float("p1co2a" + sfx)
	}
	p.DecSOM2 = r.float("dec5")
	p.DecSOM3 = r.float("dec4")
	p.Rsplig = r.float("rsplig")
	p.P2co2 = r.float("p2co2")
	p.P3co2 = r.float("p3co2")
	p.Ps1s3[0] = r.float("ps1s3_1")
	p.Ps1s3[1] = r.float("ps1s3_2")
	p.Ps2s3[0] = r.float("ps2s3_1")
	p.Ps2s3[1] = r.float("ps2s3_2")
	for i := 0; i < 4; i++ {
		p.PHCoeff[i] = r.float(fmt.Sprintf("ph_coeff_%d", i+1))
	}
	for i := 0; i < 3; i++ {
		p.OmLech[i] = r.float(fmt.Sprintf("omlech_%d", i+1))
	}
	p.Pslsrb = r.float("pslsrb")
	p.Sorpmx = r.float("sorpmx")
	for ie, el := range []string{"1", "2"} {
		for i := 0; i < 3; i++ {
			p.Varat1[ie][i] = r.float(fmt.Sprintf("varat1_%d_%s", i+1, el))
			p.Varat2[ie][i] = r.float(fmt.Sprintf("varat2_%d_%s", i+1, el))
			p.Varat3[ie][i] = r.float(fmt.Sprintf("varat3_%d_%s", i+1, el))
		}
		p.Damr[ie] = r.float("damr_1_" + el)
	}
	p.Spl[0] = r.float("spl_1")
	p.Spl[1] = r.float("spl_2")
	extra, err := r.finish("site", id)
	if err != nil {
		return nil, err
	}
	p.Extra = extra
	if p.NLayer < 1 || p.NLayer > 10 {
		return nil, fmt.Errorf("rangeland: site table, id %d: nlayer %d out of range [1,10]", id, p.NLayer)
	}
	return p, nil
}

// PFTParamsFromRow builds a PFT trait record from a raw table row.
func PFTParamsFromRow(id int, row ParamRow) (*PFTParams, error) {
	r := newRowReader(row)
	p := &PFTParams{}
	p.Prdx1 = r.float("prdx_1")
	for i := 0; i < 4; i++ {
		p.Ppdf[i] = r.float(fmt.Sprintf("ppdf_%d", i+1))
	}
	p.Biok5 = r.float("biok5")
	p.Pmxbio = r.float("pmxbio")
	p.NLayPG = r.int("nlaypg")
	p.Frtcindx = r.int("frtcindx")
	p.Cfrtcw[0] = r.float("cfrtcw_1")
	p.Cfrtcw[1] = r.float("cfrtcw_2")
	p.Cfrtcn[0] = r.float("cfrtcn_1")
	p.Cfrtcn[1] = r.float("cfrtcn_2")
	p.Snfxmx = r.float("snfxmx_1")
	p.GrowthMonths = r.intList("growth_months")
	p.SenescenceMont = r.int("senescence_month")
	for i := 0; i < 4; i++ {
		p.Fsdeth[i] = r.float(fmt.Sprintf("fsdeth_%d", i+1))
	}
	p.Crprtf[0] = r.float("crprtf_1")
	p.Crprtf[1] = r.float("crprtf_2")
	p.FligniAbove[0] = r.float("fligni_1_1")
	p.FligniAbove[1] = r.float("fligni_2_1")
	p.FligniBelow[0] = r.float("fligni_1_2")
	p.FligniBelow[1] = r.float("fligni_2_2")
	p.Riint = r.float("riint")
	p.Rictrl = r.float("rictrl")
	for ie, el := range []string{"1", "2"} {
		p.Pramn[ie][0] = r.float(fmt.Sprintf("pramn_%s_1", el))
		p.Pramn[ie][1] = r.float(fmt.Sprintf("pramn_%s_2", el))
		p.Pramx[ie][0] = r.float(fmt.Sprintf("pramx_%s_1", el))
		p.Pramx[ie][1] = r.float(fmt.Sprintf("pramx_%s_2", el))
		p.Prbmn[ie][0] = r.float(fmt.Sprintf("prbmn_%s_1", el))
		p.Prbmn[ie][1] = r.float(fmt.Sprintf("prbmn_%s_2", el))
		p.Prbmx[ie][0] = r.float(fmt.Sprintf("prbmx_%s_1", el))
		p.Prbmx[ie][1] = r.float(fmt.Sprintf("prbmx_%s_2", el))
	}
	extra, err := r.finish("PFT", id)
	if err != nil {
		return nil, err
	}
	p.Extra = extra
	if p.Frtcindx != 0 && p.Frtcindx != 1 {
		return nil, fmt.Errorf("rangeland: PFT table, id %d: frtcindx must be 0 or 1, got %d", id, p.Frtcindx)
	}
	if p.SenescenceMont < 1 || p.SenescenceMont > 12 {
		return nil, fmt.Errorf("rangeland: PFT table, id %d: senescence_month %d out of range [1,12]", id, p.SenescenceMont)
	}
	return p, nil
}

// AnimalParamsFromRow builds an animal trait record from a raw table row.
func AnimalParamsFromRow(id int, row ParamRow) (*AnimalParams, error) {
	r := newRowReader(row)
	p := &AnimalParams{}
	p.Weight = r.float("weight")
	p.IntakeCoef = r.float("intake_coef")
	p.EMaintCoef = r.float("emaint_coef")
	p.DigIntercept = r.float("dig_intercept")
	p.DigSlope = r.float("dig_slope")
	p.DigMin = r.float("dig_min")
	p.DigMax = r.float("dig_max")
	p.GrzEff = r.int("grzeff")
	p.Gremb = r.float("gremb")
	p.GFCRet = r.float("gfcret")
	p.GRet[0] = r.float("gret_1")
	p.GRet[1] = r.float("gret_2")
	p.FecF[0] = r.float("fecf_1")
	p.FecF[1] = r.float("fecf_2")
	p.FecLig = r.float("feclig")
	p.MgmtThreshold = r.float("mgmt_threshold")
	extra, err := r.finish("animal", id)
	if err != nil {
		return nil, err
	}
	p.Extra = extra
	if p.GrzEff < 1 || p.GrzEff > 6 {
		return nil, fmt.Errorf("rangeland: animal table, id %d: grzeff must be in 1..6, got %d", id, p.GrzEff)
	}
	return p, nil
}

// readSheet reads the first sheet of an xlsx workbook into raw rows keyed
// by the integer value of keyColumn.
func readSheet(path, keyColumn string) (map[int]ParamRow, error) {
	wb, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("rangeland: opening parameter table %s: %w", path, err)
	}
	if len(wb.Sheets) == 0 {
		return nil, fmt.Errorf("rangeland: parameter table %s has no sheets", path)
	}
	sheet := wb.Sheets[0]
	if len(sheet.Rows) < 2 {
		return nil, fmt.Errorf("rangeland: parameter table %s has no data rows", path)
	}
	var header []string
	for _, c := range sheet.Rows[0].Cells {
		header = append(header, strings.ToLower(strings.TrimSpace(c.String())))
	}
	keyIdx := -1
	for i, h := range header {
		if h == keyColumn {
			keyIdx = i
			break
		}
	}
	if keyIdx < 0 {
		return nil, fmt.Errorf("rangeland: parameter table %s: key column %q not found", path, keyColumn)
	}
	out := make(map[int]ParamRow)
	for ri, xrow := range sheet.Rows[1:] {
		if len(xrow.Cells) == 0 {
			continue
		}
		row := make(ParamRow)
		for ci, c := range xrow.Cells {
			if ci >= len(header) || header[ci] == "" {
				continue
			}
			row[header[ci]] = c.String()
		}
		id, err := cast.ToIntE(strings.TrimSpace(row[keyColumn]))
		if err != nil {
			return nil, fmt.Errorf("rangeland: parameter table %s, row %d: bad %s value %q",
				path, ri+2, keyColumn, row[keyColumn])
		}
		if _, ok := out[id]; ok {
			return nil, fmt.Errorf("rangeland: parameter table %s: duplicate %s %d", path, keyColumn, id)
		}
		out[id] = row
	}
	return out, nil
}

// LoadSiteTable loads the site parameter workbook, keyed by the "site" column.
func LoadSiteTable(path string) (map[int]*SiteParams, error) {
	rows, err := readSheet(path, "site")
	if err != nil {
		return nil, err
	}
	out := make(map[int]*SiteParams, len(rows))
	for id, row := range rows {
		p, err := SiteParamsFromRow(id, row)
		if err != nil {
			return nil, err
		}
		out[id] = p
	}
	return out, nil
}

// LoadPFTTable loads the PFT trait workbook, keyed by the "pft" column.
func LoadPFTTable(path string) (map[int]*PFTParams, error) {
	rows, err := readSheet(path, "pft")
	if err != nil {
		return nil, err
	}
	out := make(map[int]*PFTParams, len(rows))
	for id, row := range rows {
		p, err := PFTParamsFromRow(id, row)
		if err != nil {
			return nil, err
		}
		out[id] = p
	}
	return out, nil
}

// LoadAnimalTable loads the animal trait workbook, keyed by the
// "animal_id" column.
func LoadAnimalTable(path string) (map[int]*AnimalParams, error) {
	rows, err := readSheet(path, "animal_id")
	if err != nil {
		return nil, err
	}
	out := make(map[int]*AnimalParams, len(rows))
	for id, row := range rows {
		p, err := AnimalParamsFromRow(id, row)
		if err != nil {
			return nil, err
		}
		out[id] = p
	}
	return out, nil
}
