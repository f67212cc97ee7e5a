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

package capacity

import (
	"github.com/TheCacophonyProject/bess-capacity/dataset"
	"github.com/TheCacophonyProject/bess-capacity/schema"
	"golang.org/x/sync/errgroup"
)

type job struct {
	pattern    string
	powerBlock string
}

// SummarizeUnit analyzes every configured power block of one assembly pattern.
func (c *Calculator) SummarizeUnit(d *dataset.Dataset, pattern string) []Record {
	return c.run(d, c.jobs([]string{pattern}))
}

// Summarize analyzes every assembly of the inventory against every configured power block.
// Records are ordered by assembly then power block. Combinations that are not applicable are left out.
func (c *Calculator) Summarize(d *dataset.Dataset, inv schema.Inventory) []Record {
	patterns := make([]string, len(inv.Units))
	for i, u := range inv.Units {
		patterns[i] = u.Pattern()
	}
	return c.run(d, c.jobs(patterns))
}

func (c *Calculator) jobs(patterns []string) []job {
	jobs := make([]job, 0, len(patterns)*len(c.config.PowerBlocks))
	for _, p := range patterns {
		for _, pb := range c.config.PowerBlocks {
			jobs = append(jobs, job{pattern: p, powerBlock: pb})
		}
	}
	return jobs
}

func (c *Calculator) run(d *dataset.Dataset, jobs []job) []Record {
	type slot struct {
		record Record
		ok     bool
	}
	slots := make([]slot, len(jobs))

	if c.config.Workers <= 1 {
		for i, j := range jobs {
			slots[i].record, slots[i].ok = c.Analyze(d, j.pattern, j.powerBlock)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(c.config.Workers)
		for i, j := range jobs {
			g.Go(func() error {
				slots[i].record, slots[i].ok = c.Analyze(d, j.pattern, j.powerBlock)
				return nil
			})
		}
		_ = g.Wait() // jobs never fail
	}

	records := make([]Record, 0, len(jobs))
	for _, s := range slots {
		if s.ok {
			records = append(records, s.record)
		}
	}
	return records
}
