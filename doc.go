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

// Package rangeland implements a monthly, gridded simulation of
// rangeland ecosystem dynamics under livestock grazing, in the
// tradition of the CENTURY and Savanna models. Each simulated month a
// pipeline of stages advances the ecosystem state: the soil water
// balance, plant production and nutrient uptake, senescence, grazing
// with diet selection, and soil organic matter decomposition with
// mineral leaching. State is carried in registries of equal-shape
// rasters keyed by typed (variable, layer, PFT, element) keys; the
// science lives in the science/... subpackages, which register
// themselves with the pipeline defined here.
package rangeland

// Version gives the model version.
const Version = "1.0.0"
