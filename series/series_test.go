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

package series

import (
	"math"
	"testing"
	"time"

	"github.com/TheCacophonyProject/bess-capacity/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var nan = math.NaN()

func assertFloats(t *testing.T, expected, actual []float64) {
	t.Helper()
	require.Len(t, actual, len(expected))
	for i := range expected {
		if math.IsNaN(expected[i]) {
			assert.True(t, math.IsNaN(actual[i]), "index %d: expected NaN, got %v", i, actual[i])
			continue
		}
		assert.Equal(t, expected[i], actual[i], "index %d", i)
	}
}

func TestForwardFill(t *testing.T) {
	assertFloats(t, []float64{nan, 1, 1, 1, 2}, ForwardFill([]float64{nan, 1, nan, nan, 2}))
	assertFloats(t, []float64{}, ForwardFill(nil))
	assertFloats(t, []float64{nan, nan}, ForwardFill([]float64{nan, nan}))
}

func TestForwardFillIsIdempotent(t *testing.T) {
	inputs := [][]float64{
		{nan, 1, nan, nan, 2},
		{3, nan, nan, 4, nan},
		{nan, nan, nan},
		{5},
	}
	for _, in := range inputs {
		once := ForwardFill(in)
		assertFloats(t, once, ForwardFill(once))
	}
}

func TestForwardFillDoesNotMutate(t *testing.T) {
	in := []float64{1, nan}
	ForwardFill(in)
	assert.True(t, math.IsNaN(in[1]))
}

func testDataset() *dataset.Dataset {
	start := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	times := []time.Time{start, start.Add(time.Minute), {}, start.Add(3 * time.Minute), start.Add(5 * time.Minute)}
	return dataset.New("Timestamp", times,
		[]string{"a", "b"},
		[][]float64{
			{nan, 1, nan, nan, 2},
			{7, nan, 8, nan, 9},
		})
}

func TestNormalize(t *testing.T) {
	d := testDataset()
	assert.Nil(t, Normalize(d, nil))

	table := Normalize(d, []string{"b", "a", "missing"})
	require.NotNil(t, table)
	assert.Equal(t, "Timestamp", table.TimeLabel)
	assert.Equal(t, []string{"b", "a", "missing"}, table.Columns)
	assert.Equal(t, d.Times, table.Times)
	assertFloats(t, []float64{7, 7, 8, 8, 9}, table.Column("b"))
	assertFloats(t, []float64{nan, 1, 1, 1, 2}, table.Column("a"))
	assertFloats(t, []float64{nan, nan, nan, nan, nan}, table.Column("missing"))
	assert.Nil(t, table.Column("c"))

	// The source dataset is untouched.
	assert.True(t, math.IsNaN(d.Column("a")[2]))
}

func TestCadence(t *testing.T) {
	d := testDataset()

	// Observations of "a" at +1m and +5m.
	c, ok := Cadence(d.Times, d.Column("a"))
	require.True(t, ok)
	assert.Equal(t, 4*time.Minute, c)

	// "b" is observed at 0 and +5m. The row between has no timestamp.
	c, ok = Cadence(d.Times, d.Column("b"))
	require.True(t, ok)
	assert.Equal(t, 5*time.Minute, c)

	// Even number of intervals (1m, 2m, 3m, 4m): the lower middle one.
	start := d.Times[0]
	times := []time.Time{start, start.Add(time.Minute), start.Add(3 * time.Minute), start.Add(6 * time.Minute), start.Add(10 * time.Minute)}
	c, ok = Cadence(times, []float64{1, 2, 3, 4, 5})
	require.True(t, ok)
	assert.Equal(t, 2*time.Minute, c)

	_, ok = Cadence(d.Times, []float64{nan, 1, nan, nan, nan})
	assert.False(t, ok)
}
