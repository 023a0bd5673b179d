// Package domain holds the core SST grid types and the grid arithmetic
// used by the climatology and anomaly computations.
package domain

import (
	"fmt"
	"math"
	"time"
)

// Region is a closed lat/lon bounding box in degrees.
type Region struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64 // 0-360 convention, matching the OISST axis.
}

// KoreaEastChinaSea is the fixed analysis window served by this API.
var KoreaEastChinaSea = Region{MinLat: 28, MaxLat: 42, MinLon: 120, MaxLon: 135}

// Contains reports whether (lat, lon) lies inside the region.
func (r Region) Contains(lat, lon float64) bool {
	return lat >= r.MinLat && lat <= r.MaxLat && lon >= r.MinLon && lon <= r.MaxLon
}

// Grid is a 2-D array of temperature samples over fixed lat/lon axes.
// Values[i][j] corresponds to (Lat[i], Lon[j]); missing samples are NaN.
// A grid carries either the calendar date it was observed on (Date) or,
// for climatology grids, the canonical day-of-year (Day).
//
// Grids are values: every operation returns a new grid and never mutates
// its inputs.
type Grid struct {
	Lat    []float64
	Lon    []float64
	Values [][]float64

	Date time.Time   // Zero for climatology grids.
	Day  CalendarDay // Zero for observed grids.
}

// SameAxes reports whether g and o share identical coordinate axes
// (same sample points, same ordering). Grids with mismatched axes must
// not be combined arithmetically.
func (g *Grid) SameAxes(o *Grid) bool {
	if g == nil || o == nil {
		return false
	}
	if len(g.Lat) != len(o.Lat) || len(g.Lon) != len(o.Lon) {
		return false
	}
	for i := range g.Lat {
		if g.Lat[i] != o.Lat[i] {
			return false
		}
	}
	for j := range g.Lon {
		if g.Lon[j] != o.Lon[j] {
			return false
		}
	}
	return true
}

// AllMissing reports whether every sample in the grid is NaN. Such a grid
// is "no data", never a grid of zeros.
func (g *Grid) AllMissing() bool {
	for i := range g.Values {
		for j := range g.Values[i] {
			if !math.IsNaN(g.Values[i][j]) {
				return false
			}
		}
	}
	return true
}

// ValidCount returns the number of non-missing samples.
func (g *Grid) ValidCount() int {
	n := 0
	for i := range g.Values {
		for j := range g.Values[i] {
			if !math.IsNaN(g.Values[i][j]) {
				n++
			}
		}
	}
	return n
}

// ValidValues returns all non-missing samples in row-major order.
func (g *Grid) ValidValues() []float64 {
	out := make([]float64, 0, len(g.Lat)*len(g.Lon))
	for i := range g.Values {
		for j := range g.Values[i] {
			if !math.IsNaN(g.Values[i][j]) {
				out = append(out, g.Values[i][j])
			}
		}
	}
	return out
}

// MeanGrid computes the per-cell arithmetic mean of the given grids.
// At each cell the mean is taken over exactly the grids with a valid
// sample there; a cell is NaN only when every input is NaN at that cell.
// All inputs must share coordinate axes. The result carries neither a
// date nor a day; the caller stamps it.
func MeanGrid(grids []*Grid) (*Grid, error) {
	if len(grids) == 0 {
		return nil, ErrNoData
	}
	ref := grids[0]
	for _, g := range grids[1:] {
		if !ref.SameAxes(g) {
			return nil, ErrAxisMismatch
		}
	}

	nLat, nLon := len(ref.Lat), len(ref.Lon)
	out := newValues(nLat, nLon)
	for i := 0; i < nLat; i++ {
		for j := 0; j < nLon; j++ {
			sum := 0.0
			n := 0
			for _, g := range grids {
				v := g.Values[i][j]
				if math.IsNaN(v) {
					continue
				}
				sum += v
				n++
			}
			if n == 0 {
				out[i][j] = math.NaN()
			} else {
				out[i][j] = sum / float64(n)
			}
		}
	}

	return &Grid{
		Lat:    copyAxis(ref.Lat),
		Lon:    copyAxis(ref.Lon),
		Values: out,
	}, nil
}

// Subtract computes observed - climate elementwise. A missing value at
// either input propagates as missing. The result keeps the observed
// grid's date.
func Subtract(observed, climate *Grid) (*Grid, error) {
	if observed == nil || climate == nil {
		return nil, ErrNoData
	}
	if !observed.SameAxes(climate) {
		return nil, ErrAxisMismatch
	}

	nLat, nLon := len(observed.Lat), len(observed.Lon)
	out := newValues(nLat, nLon)
	for i := 0; i < nLat; i++ {
		for j := 0; j < nLon; j++ {
			a, b := observed.Values[i][j], climate.Values[i][j]
			if math.IsNaN(a) || math.IsNaN(b) {
				out[i][j] = math.NaN()
			} else {
				out[i][j] = a - b
			}
		}
	}

	return &Grid{
		Lat:    copyAxis(observed.Lat),
		Lon:    copyAxis(observed.Lon),
		Values: out,
		Date:   observed.Date,
		Day:    climate.Day,
	}, nil
}

// Validate checks axis/value shape consistency.
func (g *Grid) Validate() error {
	if len(g.Lat) == 0 || len(g.Lon) == 0 {
		return fmt.Errorf("grid has empty axes")
	}
	if len(g.Values) != len(g.Lat) {
		return fmt.Errorf("grid has %d value rows, expected %d", len(g.Values), len(g.Lat))
	}
	for i, row := range g.Values {
		if len(row) != len(g.Lon) {
			return fmt.Errorf("row %d has %d values, expected %d", i, len(row), len(g.Lon))
		}
	}
	for i := 1; i < len(g.Lat); i++ {
		if g.Lat[i] <= g.Lat[i-1] {
			return fmt.Errorf("lat axis must be strictly increasing")
		}
	}
	for j := 1; j < len(g.Lon); j++ {
		if g.Lon[j] <= g.Lon[j-1] {
			return fmt.Errorf("lon axis must be strictly increasing")
		}
	}
	return nil
}

func newValues(nLat, nLon int) [][]float64 {
	out := make([][]float64, nLat)
	for i := range out {
		out[i] = make([]float64, nLon)
	}
	return out
}

func copyAxis(a []float64) []float64 {
	out := make([]float64, len(a))
	copy(out, a)
	return out
}
