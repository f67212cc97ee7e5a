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

package dataset

import (
	"math"
	"time"
)

// Dataset is a wide-format telemetry table. The first column of the source file is the
// timestamp, every other column is a signal channel. Missing cells are NaN.
type Dataset struct {
	TimeLabel string
	Labels    []string

	// RawTimes keeps the timestamp cells as read, Times the coerced values.
	// A zero time means the cell could not be parsed.
	RawTimes []string
	Times    []time.Time

	columns [][]float64
	index   map[string]int
}

// New builds a dataset from already parsed columns. Every column must have len(times) values.
// If a label appears more than once the first column with that label is the one returned by Column.
func New(timeLabel string, times []time.Time, labels []string, columns [][]float64) *Dataset {
	d := &Dataset{
		TimeLabel: timeLabel,
		Labels:    append([]string(nil), labels...),
		RawTimes:  make([]string, len(times)),
		Times:     append([]time.Time(nil), times...),
		columns:   make([][]float64, len(columns)),
		index:     make(map[string]int, len(labels)),
	}
	for i, t := range times {
		if !t.IsZero() {
			d.RawTimes[i] = t.Format(time.DateTime)
		}
	}
	for i, c := range columns {
		d.columns[i] = append([]float64(nil), c...)
	}
	for i, l := range labels {
		if _, ok := d.index[l]; !ok {
			d.index[l] = i
		}
	}
	return d
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	return len(d.Times)
}

func (d *Dataset) HasColumn(label string) bool {
	_, ok := d.index[label]
	return ok
}

// Column returns a copy of the values of a column, or nil if there is no such column.
func (d *Dataset) Column(label string) []float64 {
	i, ok := d.index[label]
	if !ok {
		return nil
	}
	return append([]float64(nil), d.columns[i]...)
}

// Observations counts the non-missing cells of a column.
func (d *Dataset) Observations(label string) int {
	i, ok := d.index[label]
	if !ok {
		return 0
	}
	n := 0
	for _, v := range d.columns[i] {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}
