// Package interp provides NaN-aware bilinear sampling of SST grids.
package interp

import (
	"fmt"
	"math"
	"sort"

	"go.ngs.io/sst-api/internal/domain"
)

// SampleAt bilinearly interpolates the grid at (lat, lon).
//
// A missing (NaN) value at any of the four surrounding cell corners makes
// the sample missing: the result is NaN with a nil error. Coordinates
// outside the grid axes are an error.
func SampleAt(g *domain.Grid, lat, lon float64) (float64, error) {
	if g == nil {
		return 0, fmt.Errorf("nil grid")
	}

	latIdx, err := cellIndex(g.Lat, lat, "latitude")
	if err != nil {
		return 0, err
	}
	lonIdx, err := cellIndex(g.Lon, lon, "longitude")
	if err != nil {
		return 0, err
	}

	y0, y1 := g.Lat[latIdx], g.Lat[latIdx+1]
	x0, x1 := g.Lon[lonIdx], g.Lon[lonIdx+1]
	v00 := g.Values[latIdx][lonIdx]
	v01 := g.Values[latIdx][lonIdx+1]
	v10 := g.Values[latIdx+1][lonIdx]
	v11 := g.Values[latIdx+1][lonIdx+1]

	if math.IsNaN(v00) || math.IsNaN(v01) || math.IsNaN(v10) || math.IsNaN(v11) {
		return math.NaN(), nil
	}

	// f(x,y) = (1-t)(1-u)v00 + t(1-u)v01 + (1-t)u v10 + tu v11
	t := (lon - x0) / (x1 - x0)
	u := (lat - y0) / (y1 - y0)
	t = math.Max(0, math.Min(1, t))
	u = math.Max(0, math.Min(1, u))

	return (1-t)*(1-u)*v00 + t*(1-u)*v01 + (1-t)*u*v10 + t*u*v11, nil
}

// cellIndex finds i such that axis[i] <= v <= axis[i+1] on a strictly
// increasing axis.
func cellIndex(axis []float64, v float64, name string) (int, error) {
	n := len(axis)
	if n < 2 {
		return 0, fmt.Errorf("%s axis has fewer than 2 samples", name)
	}
	if v < axis[0] || v > axis[n-1] {
		return 0, fmt.Errorf("%s %.4f is outside grid range [%.4f, %.4f]", name, v, axis[0], axis[n-1])
	}
	i := sort.SearchFloat64s(axis, v)
	if i > 0 {
		i--
	}
	if i > n-2 {
		i = n - 2
	}
	return i, nil
}
