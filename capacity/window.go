/*
bess-capacity - Capacity test analysis for battery energy storage systems.
Copyright (C) 2025, The Cacophony Project

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package capacity

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Window holds the row indices of one charge/discharge cycle.
type Window struct {
	T0 int // start of charge, lowest SOC up to the peak
	T1 int // peak SOC
	T2 int // end of discharge, lowest SOC from the peak on
}

// FindWindow locates the cycle on an SOC trace. Rows with a NaN SOC are skipped, indices
// refer to positions in soc. The peak is the global maximum and the two minima are searched
// on either side of it, both ranges including the peak. All ties go to the earliest row.
// ok is false when there is no SOC observation at all.
func FindWindow(soc []float64) (w Window, ok bool) {
	rows := make([]int, 0, len(soc))
	values := make([]float64, 0, len(soc))
	for i, v := range soc {
		if math.IsNaN(v) {
			continue
		}
		rows = append(rows, i)
		values = append(values, v)
	}
	if len(values) == 0 {
		return Window{}, false
	}

	peak := floats.MaxIdx(values)
	w.T1 = rows[peak]
	w.T0 = rows[floats.MinIdx(values[:peak+1])]
	w.T2 = rows[peak+floats.MinIdx(values[peak:])]
	return w, true
}
