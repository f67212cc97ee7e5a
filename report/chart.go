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

package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/TheCacophonyProject/bess-capacity/series"
)

// Trace is one line of the combined chart. Energy traces go on the primary axis,
// SOC and temperature on the secondary axis with dotted and dashed lines.
type Trace struct {
	Name  string     `json:"name"`
	Axis  string     `json:"axis"`
	Dash  string     `json:"dash"`
	Color string     `json:"color,omitempty"`
	X     []string   `json:"x"`
	Y     []*float64 `json:"y"` // nil where the value is missing
}

type Chart struct {
	Title  string  `json:"title"`
	XTitle string  `json:"x_title"`
	Y1     string  `json:"y1_title"`
	Y2     string  `json:"y2_title"`
	Traces []Trace `json:"traces"`
}

// ChartData lays out the kWh, SOC and temperature tables as one dual axis chart.
// Any of the tables may be nil.
func ChartData(kwh, soc, temp *series.Table) Chart {
	c := Chart{
		Title:  "Combined Visualization: Energy (kWh), SOC (%), Temperature (°C)",
		XTitle: "Timestamp",
		Y1:     "Energy (kWh)",
		Y2:     "SOC / Temperature",
	}
	c.Traces = append(c.Traces, traces(kwh, "y1", "solid", "")...)
	c.Traces = append(c.Traces, traces(soc, "y2", "dot", "green")...)
	c.Traces = append(c.Traces, traces(temp, "y2", "dash", "red")...)
	return c
}

func traces(t *series.Table, axis, dash, color string) []Trace {
	if t == nil {
		return nil
	}
	x := formatTimes(t.Times)
	out := make([]Trace, len(t.Columns))
	for i, name := range t.Columns {
		y := make([]*float64, len(t.Values[i]))
		for j, v := range t.Values[i] {
			if !math.IsNaN(v) {
				y[j] = &v
			}
		}
		out[i] = Trace{Name: name, Axis: axis, Dash: dash, Color: color, X: x, Y: y}
	}
	return out
}

func formatTimes(times []time.Time) []string {
	out := make([]string, len(times))
	for i, t := range times {
		if !t.IsZero() {
			out[i] = t.Format(time.DateTime)
		}
	}
	return out
}

func WriteChartJSON(w io.Writer, c Chart) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}

// WriteSeriesCSV writes normalized tables side by side, sharing the first table's timestamps.
// Nil tables are skipped. Missing values are written as empty cells.
func WriteSeriesCSV(w io.Writer, tables ...*series.Table) error {
	var present []*series.Table
	for _, t := range tables {
		if t != nil {
			present = append(present, t)
		}
	}
	if len(present) == 0 {
		return fmt.Errorf("no series to write")
	}

	cw := csv.NewWriter(w)
	header := []string{present[0].TimeLabel}
	for _, t := range present {
		header = append(header, t.Columns...)
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	times := formatTimes(present[0].Times)
	for r := range times {
		line := []string{times[r]}
		for _, t := range present {
			for _, values := range t.Values {
				cell := ""
				if r < len(values) && !math.IsNaN(values[r]) {
					cell = strconv.FormatFloat(values[r], 'f', -1, 64)
				}
				line = append(line, cell)
			}
		}
		if err := cw.Write(line); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
