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

// Package capacity computes capacity test results for BESS power blocks.
//
// For each power block the SOC trace gives one charge/discharge cycle. The cumulative
// charge and discharge counters are read at the cycle boundaries to give the energy
// charged and discharged, which are compared to the contract's guaranteed energy.
package capacity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/TheCacophonyProject/bess-capacity/dataset"
	"github.com/TheCacophonyProject/bess-capacity/schema"
	"github.com/TheCacophonyProject/bess-capacity/series"
	"github.com/sirupsen/logrus"
)

// DefaultGuaranteedEnergy is the contracted energy per power block when none is configured.
const DefaultGuaranteedEnergy = 5499.78

type Verdict string

const (
	Pass Verdict = "PASS"
	Fail Verdict = "FAIL"
)

type Config struct {
	GuaranteedEnergy float64
	PowerBlocks      []string // candidate power blocks tried for every assembly
	Workers          int
}

func DefaultConfig() Config {
	return Config{
		GuaranteedEnergy: DefaultGuaranteedEnergy,
		PowerBlocks:      []string{"1", "2", "3"},
		Workers:          1,
	}
}

func (c Config) Validate() error {
	if c.GuaranteedEnergy <= 0 {
		return fmt.Errorf("guaranteed energy must be positive, got %v", c.GuaranteedEnergy)
	}
	if len(c.PowerBlocks) == 0 {
		return errors.New("no power blocks configured")
	}
	return nil
}

// Record is the result for one power block.
type Record struct {
	Unit             schema.UnitID
	EnergyCharged    float64
	EnergyDischarged float64

	// Ratios, 1 is 100%.
	PercentOfGuaranteed float64
	RoundTripEfficiency float64

	Verdict Verdict

	Window                       Window
	StartTime, PeakTime, EndTime time.Time
	StartSOC, PeakSOC, EndSOC    float64
}

// Calculator runs the cycle and energy analysis. It holds no state between calls.
type Calculator struct {
	config Config
	log    logrus.FieldLogger
}

// NewCalculator makes a calculator. A nil logger uses the logrus standard logger.
func NewCalculator(config Config, log logrus.FieldLogger) *Calculator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Calculator{config: config, log: log}
}

func (c *Calculator) Config() Config {
	return c.config
}

// Analyze computes the record of one power block. pattern is an assembly pattern such as
// "BMS.1.A.1". ok is false when the SOC or one of the energy counters has no column, or
// when the SOC has no observation.
func (c *Calculator) Analyze(d *dataset.Dataset, pattern, powerBlock string) (Record, bool) {
	unit := schema.UnitID{
		Assembly:   strings.TrimPrefix(pattern, schema.AssemblyPattern("")),
		PowerBlock: powerBlock,
	}
	prefix := pattern + "." + powerBlock
	log := c.log.WithField("unit", unit.String())

	socCol, ok := c.channel(log, d.Labels, prefix, schema.SOCMatcher)
	if !ok {
		return Record{}, false
	}
	chargedCol, ok := c.channel(log, d.Labels, prefix, schema.ChargedMatcher)
	if !ok {
		return Record{}, false
	}
	dischargedCol, ok := c.channel(log, d.Labels, prefix, schema.DischargedMatcher)
	if !ok {
		return Record{}, false
	}

	// Filled together so every row reads the three channels at the same instant.
	table := series.Normalize(d, []string{socCol, chargedCol, dischargedCol})
	soc := table.Values[0]
	charged := table.Values[1]
	discharged := table.Values[2]

	w, ok := FindWindow(soc)
	if !ok {
		log.Debug("no SOC observations")
		return Record{}, false
	}

	r := Record{
		Unit:             unit,
		EnergyCharged:    charged[w.T1] - charged[w.T0],
		EnergyDischarged: discharged[w.T2] - discharged[w.T1],
		Window:           w,
		StartTime:        table.Times[w.T0],
		PeakTime:         table.Times[w.T1],
		EndTime:          table.Times[w.T2],
		StartSOC:         soc[w.T0],
		PeakSOC:          soc[w.T1],
		EndSOC:           soc[w.T2],
	}
	if r.EnergyDischarged != 0 {
		r.PercentOfGuaranteed = r.EnergyDischarged / c.config.GuaranteedEnergy
	}
	// Zero charged energy reports an efficiency of 0, not an error.
	if r.EnergyCharged != 0 {
		r.RoundTripEfficiency = r.EnergyDischarged / r.EnergyCharged
	}
	r.Verdict = verdict(r.PercentOfGuaranteed)

	log.WithFields(logrus.Fields{
		"t0": w.T0, "t1": w.T1, "t2": w.T2,
		"charged": r.EnergyCharged, "discharged": r.EnergyDischarged,
	}).Debug("cycle found")
	return r, true
}

// channel applies the first-match policy and warns when other columns were ignored.
func (c *Calculator) channel(log logrus.FieldLogger, labels []string, prefix string, m schema.Matcher) (string, bool) {
	label, candidates, ok := schema.FirstMatch(labels, prefix, m)
	if !ok {
		log.Debugf("no %s column", m.Kind)
		return "", false
	}
	if kind := schema.Classify(label); kind != m.Kind {
		log.Warnf("%s column resolved to %q which reads as %s", m.Kind, label, kind)
	}
	var ignored []string
	for _, other := range candidates[1:] {
		if schema.Classify(other) == m.Kind {
			ignored = append(ignored, other)
		}
	}
	if len(ignored) > 0 {
		log.Warnf("using first %s column %q, ignoring %q", m.Kind, label, ignored)
	}
	return label, true
}

// verdict passes strictly above 100% of the guaranteed energy.
func verdict(percentOfGuaranteed float64) Verdict {
	if percentOfGuaranteed > 1 {
		return Pass
	}
	return Fail
}
