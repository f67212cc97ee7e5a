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
	"os"
	"path/filepath"

	"github.com/TheCacophonyProject/bess-capacity/capacity"
	goconfig "github.com/TheCacophonyProject/go-config"
)

const capacityTestKey = "capacity-test"

// AnalyzerConfig is the [capacity-test] section of the device config.
type AnalyzerConfig struct {
	GuaranteedEnergy float64  `mapstructure:"guaranteed-energy"`
	PowerBlocks      []string `mapstructure:"power-blocks"`
	Workers          int      `mapstructure:"workers"`
	ReportEvents     bool     `mapstructure:"report-events"`
}

func DefaultAnalyzerConfig() AnalyzerConfig {
	c := capacity.DefaultConfig()
	return AnalyzerConfig{
		GuaranteedEnergy: c.GuaranteedEnergy,
		PowerBlocks:      c.PowerBlocks,
		Workers:          c.Workers,
	}
}

// ParseAnalyzerConfig reads the config in configDir. A missing config file gives the defaults.
func ParseAnalyzerConfig(configDir string) (*AnalyzerConfig, error) {
	c := DefaultAnalyzerConfig()
	if _, err := os.Stat(filepath.Join(configDir, goconfig.ConfigFileName)); os.IsNotExist(err) {
		log.Debugf("No config file in %s, using defaults", configDir)
		return &c, nil
	}

	conf, err := goconfig.New(configDir)
	if err != nil {
		return nil, err
	}
	if err := conf.Unmarshal(capacityTestKey, &c); err != nil {
		return nil, fmt.Errorf("failed to load %s config: %w", capacityTestKey, err)
	}
	return &c, nil
}

// applyArgs lets command line flags override the config file.
func (c *AnalyzerConfig) applyArgs(args Args) {
	if args.GuaranteedEnergy > 0 {
		c.GuaranteedEnergy = args.GuaranteedEnergy
	}
	if args.Workers > 0 {
		c.Workers = args.Workers
	}
	if args.ReportEvents {
		c.ReportEvents = true
	}
}

func (c AnalyzerConfig) Capacity() capacity.Config {
	return capacity.Config{
		GuaranteedEnergy: c.GuaranteedEnergy,
		PowerBlocks:      append([]string(nil), c.PowerBlocks...),
		Workers:          c.Workers,
	}
}
