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
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

var (
	ErrNoHeader          = errors.New("file does not have the two header rows")
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// Layouts tried, in order, when a timestamp cell holds text.
var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.000",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/06 15:04",
	"02/01/2006 15:04:05",
	"2006-01-02",
}

// Load reads a SCADA export. The format is chosen from the file extension.
func Load(path string) (*Dataset, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return ReadXLSX(f)
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return ReadCSV(f)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// ReadXLSX reads the first sheet of a workbook.
func ReadXLSX(r io.Reader) (*Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets: %w", ErrNoHeader)
	}
	// Raw values, so number formats neither round counters nor add thousands separators.
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return fromRecords(rows, func(cell string) time.Time {
		if t := parseTime(cell); !t.IsZero() {
			return t
		}
		// Date cells come through as the serial number.
		serial, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
		if err != nil || serial <= 0 {
			return time.Time{}
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}
		}
		return t
	})
}

// ReadCSV reads a csv export with the same two-row header layout as the workbook.
func ReadCSV(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return fromRecords(records, parseTime)
}

func fromRecords(records [][]string, toTime func(string) time.Time) (*Dataset, error) {
	if len(records) < 2 {
		return nil, ErrNoHeader
	}
	labels := flattenHeader(records[0], records[1])
	if len(labels) == 0 {
		return nil, fmt.Errorf("no timestamp column: %w", ErrNoHeader)
	}

	body := records[2:]
	d := &Dataset{
		TimeLabel: labels[0],
		Labels:    labels[1:],
		RawTimes:  make([]string, len(body)),
		Times:     make([]time.Time, len(body)),
		columns:   make([][]float64, len(labels)-1),
		index:     make(map[string]int, len(labels)-1),
	}
	for i, l := range d.Labels {
		d.columns[i] = make([]float64, len(body))
		if _, ok := d.index[l]; !ok {
			d.index[l] = i
		}
	}

	for r, row := range body {
		if len(row) > 0 {
			d.RawTimes[r] = strings.TrimSpace(row[0])
			d.Times[r] = toTime(row[0])
		}
		for c := range d.Labels {
			v := math.NaN()
			if c+1 < len(row) {
				v = parseValue(row[c+1])
			}
			d.columns[c][r] = v
		}
	}
	return d, nil
}

// flattenHeader joins the outer and inner header rows with a single space.
// A blank outer cell continues the previous outer label, which is how merged header cells read back.
func flattenHeader(outer, inner []string) []string {
	n := len(outer)
	if len(inner) > n {
		n = len(inner)
	}
	labels := make([]string, n)
	current := ""
	for i := range n {
		o, in := "", ""
		if i < len(outer) {
			o = strings.TrimSpace(outer[i])
		}
		if i < len(inner) {
			in = strings.TrimSpace(inner[i])
		}
		if o != "" {
			current = o
		} else if i > 0 {
			o = current
		}
		labels[i] = strings.TrimSpace(o + " " + in)
	}
	return labels
}

func parseTime(cell string) time.Time {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, cell); err == nil {
			return t
		}
	}
	return time.Time{}
}

func parseValue(cell string) float64 {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
