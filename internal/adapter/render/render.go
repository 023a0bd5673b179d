// Package render rasterizes SST grids into PNG heat maps.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"sort"

	"go.ngs.io/sst-api/internal/domain"
)

// Mode selects the color scale for a rendered map.
type Mode string

const (
	// ModeAbsolute renders temperatures on a sequential ramp scaled to
	// the 5th-95th percentile of valid samples.
	ModeAbsolute Mode = "absolute"
	// ModeAnomaly renders differences on a diverging ramp centered on
	// zero with a symmetric range.
	ModeAnomaly Mode = "anomaly"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeAbsolute, ModeAnomaly:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown render mode %q (expected %q or %q)", s, ModeAbsolute, ModeAnomaly)
	}
}

// CellSize is the square pixel size of one grid cell in the output image.
const CellSize = 8

// missingColor fills cells with no valid sample.
var missingColor = color.NRGBA{R: 190, G: 190, B: 190, A: 255}

// Sequential ramp for absolute temperatures (light yellow to dark red).
var sequentialStops = []color.NRGBA{
	{R: 255, G: 255, B: 204, A: 255},
	{R: 254, G: 217, B: 118, A: 255},
	{R: 253, G: 141, B: 60, A: 255},
	{R: 227, G: 26, B: 28, A: 255},
	{R: 128, G: 0, B: 38, A: 255},
}

// Diverging ramp for anomalies (cool blue through neutral to warm red).
var divergingStops = []color.NRGBA{
	{R: 59, G: 76, B: 192, A: 255},
	{R: 144, G: 178, B: 254, A: 255},
	{R: 221, G: 221, B: 221, A: 255},
	{R: 245, G: 156, B: 125, A: 255},
	{R: 180, G: 4, B: 38, A: 255},
}

// Map renders the grid as a PNG image, one CellSize square per cell with
// north at the top. Missing cells render gray.
func Map(g *domain.Grid, mode Mode) ([]byte, error) {
	if g == nil {
		return nil, domain.ErrNoData
	}
	valid := g.ValidValues()
	if len(valid) == 0 {
		return nil, domain.ErrNoData
	}

	var vmin, vmax float64
	var stops []color.NRGBA
	switch mode {
	case ModeAbsolute:
		vmin = percentile(valid, 5)
		vmax = percentile(valid, 95)
		stops = sequentialStops
	case ModeAnomaly:
		m := 0.0
		for _, v := range valid {
			if a := math.Abs(v); a > m {
				m = a
			}
		}
		vmin, vmax = -m, m
		stops = divergingStops
	default:
		return nil, fmt.Errorf("unknown render mode %q", mode)
	}
	if vmax <= vmin {
		// Flat field; widen so normalization stays defined.
		vmin--
		vmax++
	}

	nLat, nLon := len(g.Lat), len(g.Lon)
	img := image.NewNRGBA(image.Rect(0, 0, nLon*CellSize, nLat*CellSize))

	for i := 0; i < nLat; i++ {
		// The lat axis ascends northward; image rows grow downward.
		row := nLat - 1 - i
		for j := 0; j < nLon; j++ {
			c := missingColor
			if v := g.Values[i][j]; !math.IsNaN(v) {
				c = rampColor(stops, (v-vmin)/(vmax-vmin))
			}
			fillCell(img, row, j, c)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func fillCell(img *image.NRGBA, row, col int, c color.NRGBA) {
	x0, y0 := col*CellSize, row*CellSize
	for y := y0; y < y0+CellSize; y++ {
		for x := x0; x < x0+CellSize; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
}

// rampColor linearly interpolates a normalized value across color stops.
func rampColor(stops []color.NRGBA, t float64) color.NRGBA {
	t = math.Max(0, math.Min(1, t))
	pos := t * float64(len(stops)-1)
	i := int(pos)
	if i >= len(stops)-1 {
		return stops[len(stops)-1]
	}
	f := pos - float64(i)
	a, b := stops[i], stops[i+1]
	return color.NRGBA{
		R: lerp8(a.R, b.R, f),
		G: lerp8(a.G, b.G, f),
		B: lerp8(a.B, b.B, f),
		A: 255,
	}
}

func lerp8(a, b uint8, f float64) uint8 {
	return uint8(math.Round(float64(a) + f*(float64(b)-float64(a))))
}

// percentile returns the p-th percentile of vals by linear interpolation
// between order statistics.
func percentile(vals []float64, p float64) float64 {
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := p / 100 * float64(len(sorted)-1)
	i := int(pos)
	if i >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	f := pos - float64(i)
	return sorted[i] + f*(sorted[i+1]-sorted[i])
}
