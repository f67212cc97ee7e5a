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
	"bytes"
	"context"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/TheCacophonyProject/bess-capacity/capacity"
	"github.com/TheCacophonyProject/bess-capacity/report"
	"github.com/TheCacophonyProject/event-reporter/v3/eventclient"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const testExport = "../../test/capacity_test_export.csv"

func init() {
	log.SetOutput(io.Discard)
}

func testConfig() *AnalyzerConfig {
	c := DefaultAnalyzerConfig()
	c.GuaranteedEnergy = 100
	return &c
}

func TestDefaultConfig(t *testing.T) {
	conf, err := ParseAnalyzerConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, capacity.DefaultGuaranteedEnergy, conf.GuaranteedEnergy)
	assert.Equal(t, []string{"1", "2", "3"}, conf.PowerBlocks)
	assert.Equal(t, 1, conf.Workers)
	assert.False(t, conf.ReportEvents)
}

func TestApplyArgs(t *testing.T) {
	conf := DefaultAnalyzerConfig()
	conf.applyArgs(Args{})
	assert.Equal(t, DefaultAnalyzerConfig(), conf)

	conf.applyArgs(Args{GuaranteedEnergy: 250, Workers: 4, ReportEvents: true})
	assert.Equal(t, 250.0, conf.GuaranteedEnergy)
	assert.Equal(t, 4, conf.Workers)
	assert.True(t, conf.ReportEvents)

	c := conf.Capacity()
	c.PowerBlocks[0] = "9"
	assert.Equal(t, "1", conf.PowerBlocks[0])
}

func TestProcArgs(t *testing.T) {
	args, _, err := procArgs([]string{"--guaranteed-energy", "100", "summary", "export.csv", "--amps", "1.A.1"})
	require.NoError(t, err)
	require.NotNil(t, args.Summary)
	assert.Equal(t, "export.csv", args.Summary.Input)
	assert.Equal(t, "1.A.1", args.Summary.AMPS)
	assert.Equal(t, 100.0, args.GuaranteedEnergy)

	_, _, err = procArgs([]string{"series", "export.csv"})
	assert.Error(t, err, "series needs --amps")
}

func TestSummarizePlant(t *testing.T) {
	d, inv, err := loadDataset(testExport)
	require.NoError(t, err)
	require.Equal(t, []string{"1.A.1"}, inv.Assemblies())

	records, title, sheet, err := summarize(d, inv, testConfig(), "")
	require.NoError(t, err)
	assert.Equal(t, "Full Plant Summary", title)
	assert.Equal(t, report.PlantSheet, sheet)
	require.Len(t, records, 1)

	row := report.NewRow(records[0])
	assert.Equal(t, []string{"A.1", "2", "150", "120", "120.00%", "80.00%", "PASS"}, row.Strings())
}

func TestSummarizeUnit(t *testing.T) {
	d, inv, err := loadDataset(testExport)
	require.NoError(t, err)

	records, title, sheet, err := summarize(d, inv, testConfig(), "1.A.1")
	require.NoError(t, err)
	assert.Equal(t, "Summary Results for AMPS 1.A.1", title)
	assert.Equal(t, report.UnitSheet, sheet)
	assert.Len(t, records, 1)

	_, _, _, err = summarize(d, inv, testConfig(), "9.Z.9")
	assert.ErrorContains(t, err, "not found")

	bad := testConfig()
	bad.GuaranteedEnergy = 0
	_, _, _, err = summarize(d, inv, bad, "")
	assert.Error(t, err)
}

func TestRunSummaryWritesReports(t *testing.T) {
	dir := t.TempDir()
	cmd := &SummaryCmd{
		Input: testExport,
		XLSX:  filepath.Join(dir, "summary.xlsx"),
		CSV:   filepath.Join(dir, "summary.csv"),
	}
	var out bytes.Buffer
	require.NoError(t, runSummary(&out, testConfig(), cmd))
	assert.Contains(t, out.String(), "Full Plant Summary")
	assert.Contains(t, out.String(), "120.00%")

	csvData, err := os.ReadFile(cmd.CSV)
	require.NoError(t, err)
	assert.Contains(t, string(csvData), "A.1,2,150,120,120.00%,80.00%,PASS")

	f, err := excelize.OpenFile(cmd.XLSX)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(report.PlantSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "PASS", rows[1][6])
}

func TestRunUnits(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runUnits(&out, &UnitsCmd{Input: testExport}))
	assert.Contains(t, out.String(), "1.A.1")
	assert.Contains(t, out.String(), "30m0s")
}

func TestRunSeries(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runSeries(&out, &SeriesCmd{Input: testExport, AMPS: "1.A.1"}))
	lines := strings.Split(out.String(), "\n")
	require.Greater(t, len(lines), 2)
	assert.Equal(t, "Timestamp,BMS.1.A.1.2 Active Power kWh kWh,BMS.1.A.1.2 SOC %,BMS.1.A.1.2 Rack Temperature degC", lines[0])
	assert.Equal(t, "2024-05-01 08:00:00,10,20,24.1", lines[1])
	assert.Equal(t, "2024-05-01 08:15:00,10,20,24.1", lines[2])

	dir := t.TempDir()
	cmd := &SeriesCmd{Input: testExport, AMPS: "1.A.1", PowerBlock: "2", JSON: filepath.Join(dir, "chart.json")}
	out.Reset()
	require.NoError(t, runSeries(&out, cmd))
	assert.Empty(t, out.String())
	assert.FileExists(t, cmd.JSON)

	assert.Error(t, runSeries(&out, &SeriesCmd{Input: testExport, AMPS: "2.B.1"}))
}

func TestReportResults(t *testing.T) {
	var events []eventclient.Event
	addEvent = func(e eventclient.Event) error {
		events = append(events, e)
		return nil
	}
	defer func() { addEvent = eventclient.AddEvent }()

	d, inv, err := loadDataset(testExport)
	require.NoError(t, err)
	records, title, sheet, err := summarize(d, inv, testConfig(), "")
	require.NoError(t, err)

	conf := testConfig()
	conf.ReportEvents = true
	require.NoError(t, publish(io.Discard, conf, records, title, sheet, "", ""))

	require.Len(t, events, 1)
	assert.Equal(t, resultEventType, events[0].Type)
	assert.Equal(t, "A.1", events[0].Details["amps"])
	assert.Equal(t, "2", events[0].Details["powerBlock"])
	assert.Equal(t, 150.0, events[0].Details["energyCharged"])
	assert.Equal(t, "PASS", events[0].Details["result"])
}

func TestDetailNumber(t *testing.T) {
	assert.Equal(t, 1.5, detailNumber(1.5))
	assert.Equal(t, "NaN", detailNumber(math.NaN()))
}

func TestRunWatchStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	args := Args{Watch: &WatchCmd{Input: testExport}}
	require.NoError(t, runWatch(ctx, &out, testConfig(), t.TempDir(), args))
	assert.Contains(t, out.String(), "PASS")
}

func TestReloadConfigWithoutChanges(t *testing.T) {
	conf, err := ParseAnalyzerConfig(t.TempDir())
	require.NoError(t, err)
	same, changed := reloadConfig(conf, t.TempDir(), Args{})
	assert.False(t, changed)
	assert.Same(t, conf, same)

	updated, changed := reloadConfig(conf, t.TempDir(), Args{GuaranteedEnergy: 100})
	assert.True(t, changed)
	assert.Equal(t, 100.0, updated.GuaranteedEnergy)
}

func TestMedianDuration(t *testing.T) {
	d := medianDuration([]float64{float64(time.Minute), float64(3 * time.Minute), float64(2 * time.Minute)})
	assert.Equal(t, 2*time.Minute, d)
}

func TestCustomFormatter(t *testing.T) {
	entry := logrus.NewEntry(logrus.New())
	entry.Level = logrus.WarnLevel
	entry.Message = "hello"
	entry.Data = logrus.Fields{"unit": "1.A.1.2"}
	b, err := new(customFormatter).Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "[WARNING] hello unit=1.A.1.2\n", string(b))

	entry.Data = logrus.Fields{"t2": 7, "charged": 150.0, "t0": 2, "unit": "1.A.1.2", "discharged": 120.0, "t1": 4}
	for range 10 {
		b, err = new(customFormatter).Format(entry)
		require.NoError(t, err)
		assert.Equal(t, "[WARNING] hello charged=150 discharged=120 t0=2 t1=4 t2=7 unit=1.A.1.2\n", string(b))
	}
}

func TestUniqueDirs(t *testing.T) {
	assert.Equal(t, []string{"/a", "/b"}, uniqueDirs("/a/x.csv", "/a/config.toml", "/b/y"))
}
