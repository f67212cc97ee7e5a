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

// Package report renders capacity test results and chart data for people and spreadsheets.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"

	"github.com/TheCacophonyProject/bess-capacity/capacity"
	"github.com/shopspring/decimal"
)

// Header is the column layout of the results table.
var Header = []string{
	"Unit Identifier",
	"Power Block",
	"Energy Charged (MWh)",
	"Energy Discharged (MWh)",
	"Percent of Guaranteed Energy",
	"RTE",
	"Final Result",
}

// Row is one line of the results table.
type Row struct {
	UnitID              string
	PowerBlock          string
	EnergyCharged       float64 // rounded to 2 dp
	EnergyDischarged    float64 // rounded to 2 dp
	PercentOfGuaranteed string
	RTE                 string
	Result              string
}

func (r Row) Strings() []string {
	return []string{
		r.UnitID,
		r.PowerBlock,
		formatFloat(r.EnergyCharged),
		formatFloat(r.EnergyDischarged),
		r.PercentOfGuaranteed,
		r.RTE,
		r.Result,
	}
}

func NewRow(r capacity.Record) Row {
	return Row{
		UnitID:              r.Unit.DisplayID(),
		PowerBlock:          r.Unit.PowerBlock,
		EnergyCharged:       Round2(r.EnergyCharged),
		EnergyDischarged:    Round2(r.EnergyDischarged),
		PercentOfGuaranteed: Percent(r.PercentOfGuaranteed),
		RTE:                 Percent(r.RoundTripEfficiency),
		Result:              string(r.Verdict),
	}
}

func Rows(records []capacity.Record) []Row {
	rows := make([]Row, len(records))
	for i, r := range records {
		rows[i] = NewRow(r)
	}
	return rows
}

// Round2 rounds to two decimal places, halves away from zero on the shortest decimal form of v.
// NaN and infinities are returned unchanged.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Percent formats a ratio as a percentage with two decimals, 1.2 is "120.00%".
func Percent(ratio float64) string {
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return fmt.Sprintf("%s%%", nonFinite(ratio))
	}
	return decimal.NewFromFloat(ratio).Mul(decimal.NewFromInt(100)).StringFixed(2) + "%"
}

func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nonFinite(v)
	}
	return decimal.NewFromFloat(v).String()
}

func nonFinite(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	default:
		return "nan"
	}
}

// WriteCSV writes the results table with a header line.
func WriteCSV(w io.Writer, records []capacity.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, row := range Rows(records) {
		if err := cw.Write(row.Strings()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
