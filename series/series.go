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

// Package series turns sparse, irregularly polled SCADA channels into dense tables.
package series

import (
	"math"
	"sort"
	"time"

	"github.com/TheCacophonyProject/bess-capacity/dataset"
	"gonum.org/v1/gonum/stat"
)

// ForwardFill returns a copy of values where each NaN takes the last non-NaN value before it.
// NaNs before the first observation stay NaN.
func ForwardFill(values []float64) []float64 {
	out := make([]float64, len(values))
	last := math.NaN()
	for i, v := range values {
		if !math.IsNaN(v) {
			last = v
		}
		out[i] = last
	}
	return out
}

// Table is a normalized sub-table: the timestamp column plus forward filled value columns.
type Table struct {
	TimeLabel string
	Times     []time.Time
	Columns   []string
	Values    [][]float64
}

// Normalize copies the timestamp column and the given columns out of d, forward filling each
// value column. It returns nil when columns is empty. Unknown columns are all NaN.
func Normalize(d *dataset.Dataset, columns []string) *Table {
	if len(columns) == 0 {
		return nil
	}
	t := &Table{
		TimeLabel: d.TimeLabel,
		Times:     append([]time.Time(nil), d.Times...),
		Columns:   append([]string(nil), columns...),
		Values:    make([][]float64, len(columns)),
	}
	for i, c := range columns {
		values := d.Column(c)
		if values == nil {
			values = nanColumn(d.Len())
		}
		t.Values[i] = ForwardFill(values)
	}
	return t
}

// Column returns the filled values of a column, or nil.
func (t *Table) Column(label string) []float64 {
	if t == nil {
		return nil
	}
	for i, c := range t.Columns {
		if c == label {
			return t.Values[i]
		}
	}
	return nil
}

// Cadence is the median interval between successive observations of a channel, the lower of the
// two middle intervals when their count is even. Rows with a missing value or a missing timestamp are skipped. ok is false with fewer than two observations.
func Cadence(times []time.Time, values []float64) (time.Duration, bool) {
	var intervals []float64
	var prev time.Time
	for i, v := range values {
		if i >= len(times) || math.IsNaN(v) || times[i].IsZero() {
			continue
		}
		if !prev.IsZero() {
			intervals = append(intervals, times[i].Sub(prev).Seconds())
		}
		prev = times[i]
	}
	if len(intervals) == 0 {
		return 0, false
	}
	sort.Float64s(intervals)
	median := stat.Quantile(0.5, stat.Empirical, intervals, nil)
	return time.Duration(median * float64(time.Second)), true
}

func nanColumn(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
