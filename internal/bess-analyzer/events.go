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

package analyzer

import (
	"fmt"
	"math"
	"time"

	"github.com/TheCacophonyProject/bess-capacity/capacity"
	"github.com/TheCacophonyProject/bess-capacity/report"
	"github.com/TheCacophonyProject/event-reporter/v3/eventclient"
)

const resultEventType = "capacityTestResult"

var addEvent = eventclient.AddEvent

// reportResults sends one event per record.
func reportResults(records []capacity.Record) error {
	now := time.Now()
	for _, r := range records {
		row := report.NewRow(r)
		log.Debugf("Reporting %s for %s", resultEventType, r.Unit)
		err := addEvent(eventclient.Event{
			Timestamp: now,
			Type:      resultEventType,
			Details: map[string]interface{}{
				"amps":                row.UnitID,
				"powerBlock":          row.PowerBlock,
				"energyCharged":       detailNumber(row.EnergyCharged),
				"energyDischarged":    detailNumber(row.EnergyDischarged),
				"percentOfGuaranteed": row.PercentOfGuaranteed,
				"rte":                 row.RTE,
				"result":              row.Result,
			},
		})
		if err != nil {
			return err
		}
	}
	log.Infof("Reported %d results", len(records))
	return nil
}

// The event store keeps JSON, which has no NaN.
func detailNumber(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Sprint(v)
	}
	return v
}
