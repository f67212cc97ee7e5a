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
	"io"
	"path/filepath"

	goconfig "github.com/TheCacophonyProject/go-config"
	"github.com/google/go-cmp/cmp"
	"github.com/rjeczalik/notify"
)

// runWatch summarizes the whole plant, then again each time the export or the config file is
// written. Exports are often replaced by a rename, so the directories are watched rather than the files.
func runWatch(ctx context.Context, out io.Writer, conf *AnalyzerConfig, configDir string, args Args) error {
	cmd := args.Watch
	input, err := filepath.Abs(cmd.Input)
	if err != nil {
		return err
	}
	configFile, err := filepath.Abs(filepath.Join(configDir, goconfig.ConfigFileName))
	if err != nil {
		return err
	}

	fsEvents := make(chan notify.EventInfo, 8)
	for _, dir := range uniqueDirs(input, configFile) {
		if err := notify.Watch(dir, fsEvents, notify.InCloseWrite, notify.InMovedTo); err != nil {
			return err
		}
	}
	defer notify.Stop(fsEvents)

	analyze := func() {
		d, inv, err := loadDataset(input)
		if err != nil {
			log.Error("Failed to load export: ", err)
			return
		}
		records, title, sheet, err := summarize(d, inv, conf, "")
		if err != nil {
			log.Error(err)
			return
		}
		if err := publish(out, conf, records, title, sheet, cmd.XLSX, cmd.CSV); err != nil {
			log.Error(err)
		}
	}

	analyze()
	log.Infof("Watching %s", input)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-fsEvents:
			switch ev.Path() {
			case input:
				log.Info("Export changed, reloading")
				analyze()
			case configFile:
				newConf, changed := reloadConfig(conf, configDir, args)
				if changed {
					conf = newConf
					analyze()
				}
			}
		}
	}
}

// reloadConfig re-reads the config and reports whether anything relevant changed.
func reloadConfig(conf *AnalyzerConfig, configDir string, args Args) (*AnalyzerConfig, bool) {
	newConf, err := ParseAnalyzerConfig(configDir)
	if err != nil {
		log.Error("error reloading config: ", err)
		return conf, false
	}
	newConf.applyArgs(args)
	diff := cmp.Diff(conf, newConf)
	log.Debug("Config diff: ", diff)
	if diff == "" {
		log.Info("No relevant changes detected in config file.")
		return conf, false
	}
	log.Info("Config changed, recomputing.")
	return newConf, true
}

func uniqueDirs(paths ...string) []string {
	var dirs []string
	seen := map[string]bool{}
	for _, p := range paths {
		dir := filepath.Dir(p)
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	return dirs
}
