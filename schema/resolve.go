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

package schema

import "strings"

type SignalKind int

const (
	Unclassified SignalKind = iota
	StateOfCharge
	EnergyCharged
	EnergyDischarged
	Temperature
	Energy // the "kwh" pool plotted on the energy axis
)

func (k SignalKind) String() string {
	switch k {
	case StateOfCharge:
		return "state-of-charge"
	case EnergyCharged:
		return "energy-charged"
	case EnergyDischarged:
		return "energy-discharged"
	case Temperature:
		return "temperature"
	case Energy:
		return "energy"
	default:
		return "unclassified"
	}
}

// Matcher selects the columns of one signal kind by keyword. Keywords are lower case and
// are matched as substrings of the lower cased label.
type Matcher struct {
	Kind     SignalKind
	Keywords []string
}

// Matches reports whether the label contains at least one keyword.
func (m Matcher) Matches(label string) bool {
	return containsAny(strings.ToLower(label), m.Keywords)
}

var (
	SOCMatcher         = Matcher{Kind: StateOfCharge, Keywords: []string{"soc"}}
	ChargedMatcher     = Matcher{Kind: EnergyCharged, Keywords: []string{"charge amount of energy"}}
	DischargedMatcher  = Matcher{Kind: EnergyDischarged, Keywords: []string{"discharge amount of energy"}}
	TemperatureMatcher = Matcher{Kind: Temperature, Keywords: []string{"temp", "temperature"}}
	EnergyMatcher      = Matcher{Kind: Energy, Keywords: []string{"kwh"}}
)

// classifiers is checked in order. Discharged comes before charged because
// "charge amount of energy" is a substring of "discharge amount of energy".
var classifiers = []Matcher{
	SOCMatcher,
	DischargedMatcher,
	ChargedMatcher,
	TemperatureMatcher,
	EnergyMatcher,
}

// Channel is a classified signal column of a unit.
type Channel struct {
	Label string
	Unit  UnitID
	Kind  SignalKind
}

// Classify returns the signal kind of a label.
func Classify(label string) SignalKind {
	for _, m := range classifiers {
		if m.Matches(label) {
			return m.Kind
		}
	}
	return Unclassified
}

// Channels lists the classified columns of an assembly. Columns without a power block segment are skipped.
func (u UnitColumns) Channels() []Channel {
	var out []Channel
	for _, label := range u.Columns {
		assembly, pb, ok := ParseLabel(label)
		if !ok || pb == "" {
			continue
		}
		out = append(out, Channel{
			Label: label,
			Unit:  UnitID{Assembly: assembly, PowerBlock: pb},
			Kind:  Classify(label),
		})
	}
	return out
}

// Resolve returns, in label order, the labels that contain pattern literally and at least
// one of the keywords case insensitively. It never fails; no match gives an empty slice.
//
// Matching is by substring, so a pattern such as "BMS.1.A.1" also matches "BMS.1.A.10".
func Resolve(labels []string, pattern string, keywords ...string) []string {
	lower := make([]string, len(keywords))
	for i, k := range keywords {
		lower[i] = strings.ToLower(k)
	}
	out := []string{}
	for _, label := range labels {
		if strings.Contains(label, pattern) && containsAny(strings.ToLower(label), lower) {
			out = append(out, label)
		}
	}
	return out
}

// ResolveKind is Resolve with a matcher's keywords.
func ResolveKind(labels []string, pattern string, m Matcher) []string {
	return Resolve(labels, pattern, m.Keywords...)
}

// FirstMatch is the channel selection policy of the calculator: when several columns
// satisfy a channel's pattern and keywords, the first one in file order is used.
// ok is false when there are no candidates.
func FirstMatch(labels []string, pattern string, m Matcher) (label string, candidates []string, ok bool) {
	candidates = ResolveKind(labels, pattern, m)
	if len(candidates) == 0 {
		return "", nil, false
	}
	return candidates[0], candidates, true
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
