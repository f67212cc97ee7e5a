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

// Package schema recovers per-unit signal groups from SCADA column labels.
//
// Labels follow the BMS naming convention: "BMS.<digits>.<letter>.<digits>" names an AMPS
// assembly, and an optional fourth ".<digits>" segment names a power block inside it.
// Everything after the path is free text that is classified by keyword.
package schema

import (
	"regexp"
	"sort"
	"strings"
)

const bmsPrefix = "BMS."

var (
	assemblyMatcher   = regexp.MustCompile(`BMS\.(\d+\.[A-Z]\.\d+)`)
	powerBlockMatcher = regexp.MustCompile(`BMS\.(\d+\.[A-Z]\.\d+)\.(\d+)`)
)

// UnitID identifies one power block of an AMPS assembly.
type UnitID struct {
	Assembly   string
	PowerBlock string
}

// Pattern is the label prefix shared by all columns of the assembly.
func (u UnitID) Pattern() string {
	return AssemblyPattern(u.Assembly)
}

// Prefix is the label prefix shared by all columns of the power block.
func (u UnitID) Prefix() string {
	return u.Pattern() + "." + u.PowerBlock
}

func (u UnitID) String() string {
	return u.Assembly + "." + u.PowerBlock
}

// DisplayID is the short assembly identifier used in result tables: the last two tokens of the pattern.
func (u UnitID) DisplayID() string {
	return DisplayID(u.Pattern())
}

// AssemblyPattern returns the label prefix for an assembly id such as "1.A.1".
func AssemblyPattern(assembly string) string {
	return bmsPrefix + assembly
}

// DisplayID joins the last two dot separated tokens of a pattern.
func DisplayID(pattern string) string {
	parts := strings.Split(pattern, ".")
	if len(parts) < 2 {
		return pattern
	}
	return parts[len(parts)-2] + "." + parts[len(parts)-1]
}

// ParseLabel extracts the assembly and, when present, the power block of a column label.
// ok is false when the label does not follow the naming grammar.
func ParseLabel(label string) (assembly, powerBlock string, ok bool) {
	m := assemblyMatcher.FindStringSubmatch(label)
	if m == nil {
		return "", "", false
	}
	assembly = m[1]
	if pb := powerBlockMatcher.FindStringSubmatch(label); pb != nil {
		powerBlock = pb[2]
	}
	return assembly, powerBlock, true
}

// UnitColumns are the columns found for one assembly, in file order.
type UnitColumns struct {
	Assembly    string
	Columns     []string
	PowerBlocks []string // distinct, first appearance order
}

// Pattern is the label prefix of the assembly.
func (u UnitColumns) Pattern() string {
	return AssemblyPattern(u.Assembly)
}

// SortedPowerBlocks returns the power blocks in lexical order.
func (u UnitColumns) SortedPowerBlocks() []string {
	pbs := append([]string(nil), u.PowerBlocks...)
	sort.Strings(pbs)
	return pbs
}

// Inventory is the ordered list of assemblies found in a dataset.
type Inventory struct {
	Units []UnitColumns
}

// Parse groups labels by assembly. Labels that do not follow the naming grammar are ignored.
// Assemblies are listed in order of first appearance and each keeps its columns in label order.
func Parse(labels []string) Inventory {
	var inv Inventory
	index := make(map[string]int)
	for _, label := range labels {
		assembly, pb, ok := ParseLabel(label)
		if !ok {
			continue
		}
		i, seen := index[assembly]
		if !seen {
			i = len(inv.Units)
			index[assembly] = i
			inv.Units = append(inv.Units, UnitColumns{Assembly: assembly})
		}
		u := &inv.Units[i]
		u.Columns = append(u.Columns, label)
		if pb != "" && !contains(u.PowerBlocks, pb) {
			u.PowerBlocks = append(u.PowerBlocks, pb)
		}
	}
	return inv
}

func (inv Inventory) Empty() bool {
	return len(inv.Units) == 0
}

// Assemblies returns the assembly ids in inventory order.
func (inv Inventory) Assemblies() []string {
	ids := make([]string, len(inv.Units))
	for i, u := range inv.Units {
		ids[i] = u.Assembly
	}
	return ids
}

// Lookup finds an assembly by id.
func (inv Inventory) Lookup(assembly string) (UnitColumns, bool) {
	for _, u := range inv.Units {
		if u.Assembly == assembly {
			return u, true
		}
	}
	return UnitColumns{}, false
}

func contains(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
