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
	"fmt"
	"strings"
	"time"

	"github.com/TheCacophonyProject/bess-capacity/capacity"
	"github.com/TheCacophonyProject/bess-capacity/schema"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fatih/color"
)

var (
	passColor   = color.New(color.FgGreen, color.Bold)
	failColor   = color.New(color.FgRed, color.Bold)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")).MarginTop(1)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// RenderTable renders the results table for a terminal.
func RenderTable(title string, records []capacity.Record) string {
	if len(records) == 0 {
		return mutedStyle.Render("No power blocks with SOC and energy counters found")
	}
	rows := make([][]string, 0, len(records))
	for _, r := range Rows(records) {
		cells := r.Strings()
		cells[len(cells)-1] = colorVerdict(r.Result)
		rows = append(rows, cells)
	}
	t := newTable(Header, rows)
	return titleStyle.Render(title) + "\n" + t.String()
}

func colorVerdict(result string) string {
	if result == string(capacity.Pass) {
		return passColor.Sprint(result)
	}
	return failColor.Sprint(result)
}

// InventoryRow describes one assembly of the inventory.
type InventoryRow struct {
	Assembly    string
	Columns     int
	PowerBlocks []string
	Cadence     time.Duration // median polling interval over the assembly's channels, 0 if unknown
}

// RenderInventory renders the unit inventory.
func RenderInventory(rows []InventoryRow) string {
	if len(rows) == 0 {
		return mutedStyle.Render("No units found")
	}
	out := make([][]string, len(rows))
	for i, r := range rows {
		cadence := "-"
		if r.Cadence > 0 {
			cadence = r.Cadence.String()
		}
		out[i] = []string{
			r.Assembly,
			fmt.Sprint(r.Columns),
			fmt.Sprint(len(r.PowerBlocks)),
			strings.Join(r.PowerBlocks, ", "),
			cadence,
		}
	}
	t := newTable([]string{"AMPS ID", "Number of Columns", "Number of Power Blocks", "Power Blocks", "Median Cadence"}, out)
	return titleStyle.Render("Units") + "\n" + t.String()
}

// NewInventoryRow fills the static part of an inventory row.
func NewInventoryRow(u schema.UnitColumns) InventoryRow {
	return InventoryRow{
		Assembly:    u.Assembly,
		Columns:     len(u.Columns),
		PowerBlocks: u.SortedPowerBlocks(),
	}
}

func newTable(headers []string, rows [][]string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}
