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
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/TheCacophonyProject/bess-capacity/capacity"
	"github.com/TheCacophonyProject/bess-capacity/dataset"
	"github.com/TheCacophonyProject/bess-capacity/report"
	"github.com/TheCacophonyProject/bess-capacity/schema"
	"github.com/TheCacophonyProject/bess-capacity/series"
	goconfig "github.com/TheCacophonyProject/go-config"
	arg "github.com/alexflint/go-arg"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
)

var (
	version = "<not set>"
	log     = logrus.New()
)

type Args struct {
	Units   *UnitsCmd   `arg:"subcommand:units" help:"List the AMPS assemblies found in an export."`
	Summary *SummaryCmd `arg:"subcommand:summary" help:"Compute capacity test results for one AMPS or the whole plant."`
	Series  *SeriesCmd  `arg:"subcommand:series" help:"Export the forward filled kWh, SOC and temperature traces of a power block."`
	Watch   *WatchCmd   `arg:"subcommand:watch" help:"Recompute the plant summary whenever the export or the config is rewritten."`

	GuaranteedEnergy float64 `arg:"--guaranteed-energy" help:"Guaranteed energy of the test contract, overrides the config"`
	Workers          int     `arg:"--workers" help:"Number of power blocks analyzed in parallel, overrides the config"`
	ReportEvents     bool    `arg:"--report-events" help:"Report each result as an event"`
	LogLevel         string  `arg:"-l, --log-level" default:"info" help:"Set the logging level (debug, info, warn, error)"`
	goconfig.ConfigArgs
}

type UnitsCmd struct {
	Input string `arg:"positional,required" help:"SCADA export (.xlsx or .csv)"`
}

type SummaryCmd struct {
	Input       string   `arg:"positional,required" help:"SCADA export (.xlsx or .csv)"`
	AMPS        string   `arg:"--amps" help:"Only summarize this AMPS id, e.g. 1.A.1"`
	PowerBlocks []string `arg:"--power-blocks" help:"Power blocks to try for each AMPS, overrides the config"`
	XLSX        string   `arg:"--xlsx" help:"Write the results to this workbook"`
	CSV         string   `arg:"--csv" help:"Write the results to this csv file"`
}

type SeriesCmd struct {
	Input      string `arg:"positional,required" help:"SCADA export (.xlsx or .csv)"`
	AMPS       string `arg:"--amps,required" help:"AMPS id, e.g. 1.A.1"`
	PowerBlock string `arg:"--power-block" help:"Power block, defaults to the lowest one found"`
	CSV        string `arg:"--csv" help:"Write the traces to this csv file"`
	JSON       string `arg:"--json" help:"Write the chart description to this json file"`
}

type WatchCmd struct {
	Input string `arg:"positional,required" help:"SCADA export (.xlsx or .csv)"`
	XLSX  string `arg:"--xlsx" help:"Rewrite this workbook after each run"`
	CSV   string `arg:"--csv" help:"Rewrite this csv file after each run"`
}

func (Args) Version() string {
	return version
}

var defaultArgs = Args{
	ConfigArgs: goconfig.ConfigArgs{ConfigDir: goconfig.DefaultConfigDir},
}

func procArgs(input []string) (Args, *arg.Parser, error) {
	args := defaultArgs

	parser, err := arg.NewParser(arg.Config{}, &args)
	if err != nil {
		return Args{}, nil, err
	}
	err = parser.Parse(input)
	if errors.Is(err, arg.ErrHelp) {
		parser.WriteHelp(os.Stdout)
		os.Exit(0)
	}
	if errors.Is(err, arg.ErrVersion) {
		fmt.Println(version)
		os.Exit(0)
	}
	return args, parser, err
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		log.SetLevel(logrus.DebugLevel)
	case "info":
		log.SetLevel(logrus.InfoLevel)
	case "warn":
		log.SetLevel(logrus.WarnLevel)
	case "error":
		log.SetLevel(logrus.ErrorLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
		log.Warn("Unknown log level, defaulting to info")
	}
}

type customFormatter struct{}

func (f *customFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var fields strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&fields, " %s=%v", k, entry.Data[k])
	}
	return []byte(fmt.Sprintf("[%s] %s%s\n", strings.ToUpper(entry.Level.String()), entry.Message, fields.String())), nil
}

func Run(inputArgs []string, ver string) error {
	version = ver
	log.SetFormatter(new(customFormatter))
	log.SetOutput(os.Stderr)

	args, parser, err := procArgs(inputArgs)
	if err != nil {
		return fmt.Errorf("failed to parse args: %v", err)
	}
	setLogLevel(args.LogLevel)
	log.Debug("Running version: ", version)

	conf, err := ParseAnalyzerConfig(args.ConfigDir)
	if err != nil {
		return err
	}
	conf.applyArgs(args)

	switch {
	case args.Units != nil:
		return runUnits(os.Stdout, args.Units)
	case args.Summary != nil:
		if len(args.Summary.PowerBlocks) > 0 {
			conf.PowerBlocks = args.Summary.PowerBlocks
		}
		return runSummary(os.Stdout, conf, args.Summary)
	case args.Series != nil:
		return runSeries(os.Stdout, args.Series)
	case args.Watch != nil:
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runWatch(ctx, os.Stdout, conf, args.ConfigDir, args)
	default:
		parser.WriteHelp(os.Stdout)
		return errors.New("no subcommand given")
	}
}

func loadDataset(path string) (*dataset.Dataset, schema.Inventory, error) {
	d, err := dataset.Load(path)
	if err != nil {
		return nil, schema.Inventory{}, fmt.Errorf("failed to load %s: %w", path, err)
	}
	inv := schema.Parse(d.Labels)
	log.Infof("Loaded %s: %d rows, %d columns, %d units", filepath.Base(path), d.Len(), len(d.Labels), len(inv.Units))
	return d, inv, nil
}

func runUnits(out io.Writer, cmd *UnitsCmd) error {
	d, inv, err := loadDataset(cmd.Input)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, report.RenderInventory(inventoryRows(d, inv)))
	return err
}

// inventoryRows adds the median cadence over each assembly's channels.
func inventoryRows(d *dataset.Dataset, inv schema.Inventory) []report.InventoryRow {
	rows := make([]report.InventoryRow, len(inv.Units))
	for i, u := range inv.Units {
		rows[i] = report.NewInventoryRow(u)
		var cadences []float64
		for _, c := range u.Columns {
			if cadence, ok := series.Cadence(d.Times, d.Column(c)); ok {
				cadences = append(cadences, float64(cadence))
			}
		}
		if len(cadences) > 0 {
			rows[i].Cadence = medianDuration(cadences)
		}
	}
	return rows
}

func medianDuration(values []float64) time.Duration {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return time.Duration(stat.Quantile(0.5, stat.Empirical, sorted, nil))
}

func runSummary(out io.Writer, conf *AnalyzerConfig, cmd *SummaryCmd) error {
	d, inv, err := loadDataset(cmd.Input)
	if err != nil {
		return err
	}
	records, title, sheet, err := summarize(d, inv, conf, cmd.AMPS)
	if err != nil {
		return err
	}
	return publish(out, conf, records, title, sheet, cmd.XLSX, cmd.CSV)
}

func summarize(d *dataset.Dataset, inv schema.Inventory, conf *AnalyzerConfig, amps string) ([]capacity.Record, string, string, error) {
	capacityConfig := conf.Capacity()
	if err := capacityConfig.Validate(); err != nil {
		return nil, "", "", err
	}
	calc := capacity.NewCalculator(capacityConfig, log)

	if amps != "" {
		u, ok := inv.Lookup(amps)
		if !ok {
			return nil, "", "", fmt.Errorf("AMPS %q not found, found %v", amps, inv.Assemblies())
		}
		return calc.SummarizeUnit(d, u.Pattern()), "Summary Results for AMPS " + amps, report.UnitSheet, nil
	}
	if inv.Empty() {
		log.Warn("No units found")
	}
	return calc.Summarize(d, inv), "Full Plant Summary", report.PlantSheet, nil
}

func publish(out io.Writer, conf *AnalyzerConfig, records []capacity.Record, title, sheet, xlsxPath, csvPath string) error {
	if _, err := fmt.Fprintln(out, report.RenderTable(title, records)); err != nil {
		return err
	}
	if xlsxPath != "" {
		if err := writeFile(xlsxPath, func(w io.Writer) error {
			return report.WriteXLSX(w, sheet, records)
		}); err != nil {
			return err
		}
		log.Info("Wrote ", xlsxPath)
	}
	if csvPath != "" {
		if err := writeFile(csvPath, func(w io.Writer) error {
			return report.WriteCSV(w, records)
		}); err != nil {
			return err
		}
		log.Info("Wrote ", csvPath)
	}
	if conf.ReportEvents {
		return reportResults(records)
	}
	return nil
}

func runSeries(out io.Writer, cmd *SeriesCmd) error {
	d, inv, err := loadDataset(cmd.Input)
	if err != nil {
		return err
	}
	u, ok := inv.Lookup(cmd.AMPS)
	if !ok {
		return fmt.Errorf("AMPS %q not found, found %v", cmd.AMPS, inv.Assemblies())
	}
	pb := cmd.PowerBlock
	if pb == "" {
		pbs := u.SortedPowerBlocks()
		if len(pbs) == 0 {
			return fmt.Errorf("AMPS %q has no power blocks", cmd.AMPS)
		}
		pb = pbs[0]
	}

	prefix := schema.UnitID{Assembly: u.Assembly, PowerBlock: pb}.Prefix()
	kwh := series.Normalize(d, schema.ResolveKind(d.Labels, prefix, schema.EnergyMatcher))
	soc := series.Normalize(d, schema.ResolveKind(d.Labels, prefix, schema.SOCMatcher))
	temp := series.Normalize(d, schema.ResolveKind(d.Labels, prefix, schema.TemperatureMatcher))
	if kwh == nil && soc == nil && temp == nil {
		log.Warnf("No kWh, SOC or temperature columns for %s", prefix)
		return nil
	}

	if cmd.JSON != "" {
		if err := writeFile(cmd.JSON, func(w io.Writer) error {
			return report.WriteChartJSON(w, report.ChartData(kwh, soc, temp))
		}); err != nil {
			return err
		}
		log.Info("Wrote ", cmd.JSON)
	}
	if cmd.CSV != "" {
		if err := writeFile(cmd.CSV, func(w io.Writer) error {
			return report.WriteSeriesCSV(w, kwh, soc, temp)
		}); err != nil {
			return err
		}
		log.Info("Wrote ", cmd.CSV)
	}
	if cmd.JSON == "" && cmd.CSV == "" {
		return report.WriteSeriesCSV(out, kwh, soc, temp)
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
