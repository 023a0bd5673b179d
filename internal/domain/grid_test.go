package domain

import (
	"errors"
	"math"
	"testing"
	"time"
)

func grid1x1(v float64) *Grid {
	return &Grid{
		Lat:    []float64{30.0},
		Lon:    []float64{125.0},
		Values: [][]float64{{v}},
	}
}

func grid2x2(vals [2][2]float64) *Grid {
	return &Grid{
		Lat:    []float64{30.0, 30.25},
		Lon:    []float64{125.0, 125.25},
		Values: [][]float64{{vals[0][0], vals[0][1]}, {vals[1][0], vals[1][1]}},
	}
}

func TestMeanGrid_SkipsMissingPerCell(t *testing.T) {
	// Three years at a single cell, one missing: mean over the two
	// valid years only.
	grids := []*Grid{grid1x1(15.0), grid1x1(16.0), grid1x1(math.NaN())}

	mean, err := MeanGrid(grids)
	if err != nil {
		t.Fatalf("MeanGrid: %v", err)
	}
	if got := mean.Values[0][0]; math.Abs(got-15.5) > 1e-9 {
		t.Errorf("mean = %.4f, want 15.5", got)
	}
}

func TestMeanGrid_AllMissingCellStaysMissing(t *testing.T) {
	grids := []*Grid{
		grid2x2([2][2]float64{{10, math.NaN()}, {12, 14}}),
		grid2x2([2][2]float64{{20, math.NaN()}, {math.NaN(), 16}}),
	}

	mean, err := MeanGrid(grids)
	if err != nil {
		t.Fatalf("MeanGrid: %v", err)
	}
	if !math.IsNaN(mean.Values[0][1]) {
		t.Errorf("cell missing in every input should stay missing, got %.4f", mean.Values[0][1])
	}
	if got := mean.Values[0][0]; math.Abs(got-15.0) > 1e-9 {
		t.Errorf("mean[0][0] = %.4f, want 15.0", got)
	}
	// One contributing year is enough.
	if got := mean.Values[1][0]; math.Abs(got-12.0) > 1e-9 {
		t.Errorf("mean[1][0] = %.4f, want 12.0", got)
	}
}

func TestMeanGrid_PreservesAxes(t *testing.T) {
	g := grid2x2([2][2]float64{{1, 2}, {3, 4}})
	mean, err := MeanGrid([]*Grid{g})
	if err != nil {
		t.Fatalf("MeanGrid: %v", err)
	}
	if !mean.SameAxes(g) {
		t.Error("mean grid should share the input axes")
	}
}

func TestMeanGrid_EmptyInput(t *testing.T) {
	if _, err := MeanGrid(nil); !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
}

func TestMeanGrid_AxisMismatch(t *testing.T) {
	a := grid1x1(10)
	b := grid1x1(20)
	b.Lon[0] = 126.0
	if _, err := MeanGrid([]*Grid{a, b}); !errors.Is(err, ErrAxisMismatch) {
		t.Errorf("expected ErrAxisMismatch, got %v", err)
	}
}

func TestSubtract_SelfIsZero(t *testing.T) {
	g := grid2x2([2][2]float64{{10, math.NaN()}, {12, 14}})
	diff, err := Subtract(g, g)
	if err != nil {
		t.Fatalf("Subtract: %v", err)
	}
	for i := range diff.Values {
		for j := range diff.Values[i] {
			if math.IsNaN(g.Values[i][j]) {
				if !math.IsNaN(diff.Values[i][j]) {
					t.Errorf("diff[%d][%d]: missing input should stay missing", i, j)
				}
				continue
			}
			if diff.Values[i][j] != 0 {
				t.Errorf("diff[%d][%d] = %.4f, want 0", i, j, diff.Values[i][j])
			}
		}
	}
}

func TestSubtract_MissingPropagates(t *testing.T) {
	observed := grid2x2([2][2]float64{{math.NaN(), 20}, {21, 22}})
	climate := grid2x2([2][2]float64{{15, math.NaN()}, {16, 17}})

	diff, err := Subtract(observed, climate)
	if err != nil {
		t.Fatalf("Subtract: %v", err)
	}
	if !math.IsNaN(diff.Values[0][0]) {
		t.Error("missing observed value should propagate")
	}
	if !math.IsNaN(diff.Values[0][1]) {
		t.Error("missing climate value should propagate")
	}
	if got := diff.Values[1][0]; math.Abs(got-5.0) > 1e-9 {
		t.Errorf("diff[1][0] = %.4f, want 5.0", got)
	}
}

func TestSubtract_AxisMismatch(t *testing.T) {
	a := grid1x1(10)
	b := &Grid{
		Lat:    []float64{30.0, 30.25},
		Lon:    []float64{125.0},
		Values: [][]float64{{1}, {2}},
	}
	if _, err := Subtract(a, b); !errors.Is(err, ErrAxisMismatch) {
		t.Errorf("expected ErrAxisMismatch, got %v", err)
	}
}

func TestSubtract_DoesNotMutateInputs(t *testing.T) {
	observed := grid1x1(20)
	climate := grid1x1(15)
	if _, err := Subtract(observed, climate); err != nil {
		t.Fatalf("Subtract: %v", err)
	}
	if observed.Values[0][0] != 20 || climate.Values[0][0] != 15 {
		t.Error("inputs must not be mutated")
	}
}

func TestGrid_AllMissing(t *testing.T) {
	if !grid1x1(math.NaN()).AllMissing() {
		t.Error("all-NaN grid should report AllMissing")
	}
	if grid2x2([2][2]float64{{math.NaN(), math.NaN()}, {math.NaN(), 1}}).AllMissing() {
		t.Error("grid with one valid sample is not AllMissing")
	}
}

func TestGrid_Validate(t *testing.T) {
	g := grid2x2([2][2]float64{{1, 2}, {3, 4}})
	if err := g.Validate(); err != nil {
		t.Errorf("valid grid rejected: %v", err)
	}

	bad := grid2x2([2][2]float64{{1, 2}, {3, 4}})
	bad.Lat = []float64{30.25, 30.0} // Descending.
	if err := bad.Validate(); err == nil {
		t.Error("descending lat axis should be rejected")
	}

	ragged := grid2x2([2][2]float64{{1, 2}, {3, 4}})
	ragged.Values[1] = []float64{3}
	if err := ragged.Validate(); err == nil {
		t.Error("ragged values should be rejected")
	}
}

func TestRegion_Contains(t *testing.T) {
	r := KoreaEastChinaSea
	if !r.Contains(35.0, 128.0) {
		t.Error("expected point inside window")
	}
	if r.Contains(27.9, 128.0) || r.Contains(35.0, 136.0) {
		t.Error("expected points outside window")
	}
}

func TestSubtract_KeepsObservedDate(t *testing.T) {
	date := time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC)
	observed := grid1x1(20)
	observed.Date = date
	climate := grid1x1(15)
	climate.Day = NewCalendarDay(date)

	diff, err := Subtract(observed, climate)
	if err != nil {
		t.Fatalf("Subtract: %v", err)
	}
	if !diff.Date.Equal(date) {
		t.Errorf("diff date = %v, want %v", diff.Date, date)
	}
	if diff.Day.Key() != "07-15" {
		t.Errorf("diff day = %s, want 07-15", diff.Day.Key())
	}
}
