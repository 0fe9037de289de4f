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
	"math"
	"testing"
)

func TestSenescenceDeathFraction(t *testing.T) {
	fsdeth := [4]float64{0.2, 0.95, 0.4, 300}
	// Unstressed, sparse canopy: only the base rate applies.
	if got := SenescenceDeathFraction(fsdeth, 1, 100); got != 0.2 {
		t.Errorf("base death fraction = %g, want 0.2", got)
	}
	// Water stress raises mortality.
	stressed := SenescenceDeathFraction(fsdeth, 0.2, 100)
	if stressed <= 0.2 {
		t.Errorf("stressed death fraction %g not above base", stressed)
	}
	// Self-shading above the threshold adds more.
	shaded := SenescenceDeathFraction(fsdeth, 0.2, 500)
	if shaded <= stressed {
		t.Errorf("shaded death fraction %g not above unshaded %g", shaded, stressed)
	}
	// Never above the maximum rate.
	if got := SenescenceDeathFraction(fsdeth, 0, 1e6); got != fsdeth[1] {
		t.Errorf("death fraction %g, want capped at %g", got, fsdeth[1])
	}
}

func TestDigestibilityClamps(t *testing.T) {
	if got := Digestibility(0.40, 0.4, 1.1, 0.3, 0.8); got != Digestibility(0.50, 0.4, 1.1, 0.3, 0.8) {
		t.Errorf("expected both rich feeds clamped to the maximum, got %g", got)
	}
	if got := Digestibility(0, 0.1, 1.1, 0.3, 0.8); got != 0.3 {
		t.Errorf("protein-free feed digestibility = %g, want clamped to 0.3", got)
	}
	mid := Digestibility(0.12, 0.2, 1.1, 0.1, 0.8)
	if want := 0.2 + 1.1*0.12; math.Abs(mid-want) > 1e-12 {
		t.Errorf("digestibility = %g, want %g on the linear segment", mid, want)
	}
}

func TestCrudeProtein(t *testing.T) {
	if got := CrudeProtein(2, 100); math.Abs(got-0.125) > 1e-12 {
		t.Errorf("crude protein = %g, want 0.125", got)
	}
	if got := CrudeProtein(2, 0); got != 0 {
		t.Errorf("crude protein of empty feed = %g, want 0", got)
	}
}

func TestMEContent(t *testing.T) {
	if MEContent(0.05) != 0 {
		t.Error("near-indigestible feed should carry no metabolizable energy")
	}
	if MEContent(0.7) <= MEContent(0.5) {
		t.Error("more digestible feed should carry more energy")
	}
}

func TestIntakeScalesWithMetabolicWeight(t *testing.T) {
	small := IntakeCapacity(0.1, 250)
	large := IntakeCapacity(0.1, 500)
	// Doubling weight raises intake by 2^0.75, not 2.
	if ratio := large / small; math.Abs(ratio-math.Pow(2, 0.75)) > 1e-9 {
		t.Errorf("intake ratio = %g, want %g", ratio, math.Pow(2, 0.75))
	}
}

func TestSelectDietOrder(t *testing.T) {
	feeds := []*Feed{
		{PFT: 1, Live: false, Biomass: 100, Digestibility: 0.45},
		{PFT: 1, Live: true, Biomass: 100, Digestibility: 0.65},
		{PFT: 2, Live: true, Biomass: 100, Digestibility: 0.55},
	}
	total := SelectDiet(feeds, 150, 0)
	if total != 150 {
		t.Fatalf("total eaten = %g, want 150", total)
	}
	// Most digestible feed is exhausted first.
	for _, f := range feeds {
		switch {
		case f.Digestibility == 0.65 && f.Eaten != 100:
			t.Errorf("most digestible feed eaten %g, want 100", f.Eaten)
		case f.Digestibility == 0.55 && f.Eaten != 50:
			t.Errorf("second feed eaten %g, want 50", f.Eaten)
		case f.Digestibility == 0.45 && f.Eaten != 0:
			t.Errorf("least digestible feed eaten %g, want 0", f.Eaten)
		}
	}
}

func TestSelectDietManagementThreshold(t *testing.T) {
	feeds := []*Feed{
		{PFT: 1, Live: true, Biomass: 80, Digestibility: 0.6},
		{PFT: 2, Live: true, Biomass: 40, Digestibility: 0.5},
	}
	total := SelectDiet(feeds, 500, 50)
	// Only biomass above the threshold is offered.
	if total != 30 {
		t.Errorf("total eaten = %g, want 30 (80-50 from the first feed)", total)
	}
	if feeds[1].Eaten != 0 {
		t.Errorf("feed below threshold eaten %g, want 0", feeds[1].Eaten)
	}
}

func TestSelectDietCappedByDemand(t *testing.T) {
	feeds := []*Feed{{PFT: 1, Live: true, Biomass: 1000, Digestibility: 0.6}}
	if total := SelectDiet(feeds, 25, 0); total != 25 {
		t.Errorf("total eaten = %g, want the demand 25", total)
	}
}
