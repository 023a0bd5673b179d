package oisst

import (
	"fmt"
	"math"
	"time"

	"github.com/fhs/go-netcdf/netcdf"

	"go.ngs.io/sst-api/internal/domain"
)

// extractDailyGrid reads the (lat, lon) window for one day from an OISST
// NetCDF file and materializes it as a domain.Grid with NaN for missing
// samples.
//
// Per-year upstream files carry one time step per day starting January 1,
// so the time index is the day-of-year; subset responses carry a single
// step. Data layout is [time][lat][lon], optionally with a length-1 zlev
// dimension in between.
func extractDailyGrid(path string, date time.Time, region domain.Region) (*domain.Grid, error) {
	nc, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		return nil, fmt.Errorf("open NetCDF file: %w", err)
	}
	defer func() { _ = nc.Close() }()

	latAxis, err := readAxis(nc, []string{"lat", "latitude", "y"})
	if err != nil {
		return nil, fmt.Errorf("latitude axis: %w", err)
	}
	lonAxis, err := readAxis(nc, []string{"lon", "longitude", "x"})
	if err != nil {
		return nil, fmt.Errorf("longitude axis: %w", err)
	}

	latStart, latCount, err := axisRange(latAxis, region.MinLat, region.MaxLat)
	if err != nil {
		return nil, fmt.Errorf("latitude window: %w", err)
	}
	lonStart, lonCount, err := axisRange(lonAxis, region.MinLon, region.MaxLon)
	if err != nil {
		return nil, fmt.Errorf("longitude window: %w", err)
	}

	sstVar, err := findVar(nc, []string{"sst", "analysed_sst"})
	if err != nil {
		return nil, err
	}

	dims, err := sstVar.Dims()
	if err != nil {
		return nil, fmt.Errorf("get dimensions: %w", err)
	}
	if len(dims) < 3 || len(dims) > 4 {
		return nil, fmt.Errorf("expected [time][lat][lon] or [time][zlev][lat][lon] data, got %d dimensions", len(dims))
	}

	// Verify the trailing dimensions are lat and lon.
	dimLens := make([]uint64, len(dims))
	for i, d := range dims {
		n, err := d.Len()
		if err != nil {
			return nil, fmt.Errorf("get dimension length: %w", err)
		}
		dimLens[i] = n
	}
	if dimLens[len(dims)-2] != uint64(len(latAxis)) || dimLens[len(dims)-1] != uint64(len(lonAxis)) {
		return nil, fmt.Errorf("dimension mismatch: data is %v, axes are [%d, %d]", dimLens, len(latAxis), len(lonAxis))
	}

	timeLen := dimLens[0]
	timeIdx, err := timeIndex(date, timeLen)
	if err != nil {
		return nil, err
	}

	// Build hyperslab start/count. Any dimension between time and lat
	// (zlev in OISST files) must have length 1.
	start := []uint64{timeIdx}
	count := []uint64{1}
	if len(dims) == 4 {
		if dimLens[1] != 1 {
			return nil, fmt.Errorf("unexpected depth dimension of length %d", dimLens[1])
		}
		start = append(start, 0)
		count = append(count, 1)
	}
	//nolint:gosec // G115: Axis indices are small non-negative ints.
	start = append(start, uint64(latStart), uint64(lonStart))
	//nolint:gosec // G115: Window sizes are small non-negative ints.
	count = append(count, uint64(latCount), uint64(lonCount))

	flat, err := readFloat64Slice(sstVar, start, count, latCount*lonCount)
	if err != nil {
		return nil, fmt.Errorf("read sst window: %w", err)
	}

	// Missing samples become NaN before packing is undone.
	fill, hasFill := fillValue(sstVar)
	scale, offset := scaleAndOffset(sstVar)
	for i, v := range flat {
		if hasFill && v == fill {
			flat[i] = math.NaN()
			continue
		}
		flat[i] = v*scale + offset
	}

	values := make([][]float64, latCount)
	for i := 0; i < latCount; i++ {
		values[i] = flat[i*lonCount : (i+1)*lonCount]
	}

	grid := &domain.Grid{
		Lat:    latAxis[latStart : latStart+latCount],
		Lon:    lonAxis[lonStart : lonStart+lonCount],
		Values: values,
		Date:   date,
	}
	if err := grid.Validate(); err != nil {
		return nil, fmt.Errorf("invalid grid: %w", err)
	}
	return grid, nil
}

// timeIndex maps a date to its index along the file's time dimension.
func timeIndex(date time.Time, timeLen uint64) (uint64, error) {
	if timeLen == 1 {
		// Single-day subset response.
		return 0, nil
	}
	idx := date.YearDay() - 1
	if uint64(idx) >= timeLen {
		return 0, fmt.Errorf("day %s not present in dataset file (%d time steps)", date.Format("2006-01-02"), timeLen)
	}
	return uint64(idx), nil
}

// findVar returns the first variable matching one of the candidate names.
func findVar(nc netcdf.Dataset, names []string) (netcdf.Var, error) {
	for _, name := range names {
		if v, err := nc.Var(name); err == nil {
			return v, nil
		}
	}
	return netcdf.Var{}, fmt.Errorf("data variable not found (tried: %v)", names)
}

// readAxis reads a 1D coordinate variable, trying several common names.
func readAxis(nc netcdf.Dataset, names []string) ([]float64, error) {
	for _, name := range names {
		v, err := nc.Var(name)
		if err != nil {
			continue
		}
		axis, err := readFloat64Var(v)
		if err == nil {
			return axis, nil
		}
	}
	return nil, fmt.Errorf("axis variable not found (tried: %v)", names)
}

// axisRange finds the index window covering [minVal, maxVal] on an
// ascending axis.
func axisRange(axis []float64, minVal, maxVal float64) (start, count int, err error) {
	start = -1
	end := -1
	for i, v := range axis {
		if v < minVal || v > maxVal {
			continue
		}
		if start == -1 {
			start = i
		}
		end = i
	}
	if start == -1 {
		return 0, 0, fmt.Errorf("no axis samples within [%g, %g]", minVal, maxVal)
	}
	return start, end - start + 1, nil
}

// readFloat64Var reads a 1D variable of any supported numeric type.
func readFloat64Var(v netcdf.Var) ([]float64, error) {
	dims, err := v.Dims()
	if err != nil {
		return nil, fmt.Errorf("get dimensions: %w", err)
	}
	if len(dims) != 1 {
		return nil, fmt.Errorf("expected 1D variable, got %dD", len(dims))
	}
	length, err := dims[0].Len()
	if err != nil {
		return nil, err
	}

	t, err := v.Type()
	if err != nil {
		return nil, fmt.Errorf("get variable type: %w", err)
	}
	switch t {
	case netcdf.DOUBLE:
		data := make([]float64, length)
		if err := v.ReadFloat64s(data); err != nil {
			return nil, err
		}
		return data, nil
	case netcdf.FLOAT:
		tmp := make([]float32, length)
		if err := v.ReadFloat32s(tmp); err != nil {
			return nil, err
		}
		out := make([]float64, length)
		for i, val := range tmp {
			out[i] = float64(val)
		}
		return out, nil
	case netcdf.INT:
		tmp := make([]int32, length)
		if err := v.ReadInt32s(tmp); err != nil {
			return nil, err
		}
		out := make([]float64, length)
		for i, val := range tmp {
			out[i] = float64(val)
		}
		return out, nil
	case netcdf.SHORT:
		tmp := make([]int16, length)
		if err := v.ReadInt16s(tmp); err != nil {
			return nil, err
		}
		out := make([]float64, length)
		for i, val := range tmp {
			out[i] = float64(val)
		}
		return out, nil
	case netcdf.BYTE, netcdf.CHAR, netcdf.UBYTE, netcdf.USHORT, netcdf.UINT, netcdf.INT64, netcdf.UINT64, netcdf.STRING:
		return nil, fmt.Errorf("unsupported axis type: %v", t)
	default:
		return nil, fmt.Errorf("unsupported axis type: %v", t)
	}
}

// readFloat64Slice reads a hyperslab of any supported numeric type as
// float64, without applying packing attributes.
func readFloat64Slice(v netcdf.Var, start, count []uint64, total int) ([]float64, error) {
	t, err := v.Type()
	if err != nil {
		return nil, fmt.Errorf("get variable type: %w", err)
	}
	switch t {
	case netcdf.DOUBLE:
		flat := make([]float64, total)
		if err := v.ReadFloat64Slice(flat, start, count); err != nil {
			return nil, err
		}
		return flat, nil
	case netcdf.FLOAT:
		tmp := make([]float32, total)
		if err := v.ReadFloat32Slice(tmp, start, count); err != nil {
			return nil, err
		}
		flat := make([]float64, total)
		for i, val := range tmp {
			flat[i] = float64(val)
		}
		return flat, nil
	case netcdf.SHORT:
		tmp := make([]int16, total)
		if err := v.ReadInt16Slice(tmp, start, count); err != nil {
			return nil, err
		}
		flat := make([]float64, total)
		for i, val := range tmp {
			flat[i] = float64(val)
		}
		return flat, nil
	case netcdf.INT:
		tmp := make([]int32, total)
		if err := v.ReadInt32Slice(tmp, start, count); err != nil {
			return nil, err
		}
		flat := make([]float64, total)
		for i, val := range tmp {
			flat[i] = float64(val)
		}
		return flat, nil
	case netcdf.BYTE, netcdf.CHAR, netcdf.UBYTE, netcdf.USHORT, netcdf.UINT, netcdf.INT64, netcdf.UINT64, netcdf.STRING:
		return nil, fmt.Errorf("unsupported data type: %v", t)
	default:
		return nil, fmt.Errorf("unsupported data type: %v", t)
	}
}

// fillValue returns the _FillValue or missing_value attribute if present.
// The comparison happens against the raw packed value, before
// scale_factor/add_offset are applied.
func fillValue(v netcdf.Var) (float64, bool) {
	for _, name := range []string{"_FillValue", "missing_value"} {
		if val, ok := attrFloat(v, name); ok {
			return val, true
		}
	}
	return 0, false
}

// scaleAndOffset returns the packing attributes, defaulting to identity.
func scaleAndOffset(v netcdf.Var) (scale, offset float64) {
	scale, offset = 1, 0
	if val, ok := attrFloat(v, "scale_factor"); ok && val != 0 {
		scale = val
	}
	if val, ok := attrFloat(v, "add_offset"); ok {
		offset = val
	}
	return scale, offset
}

// attrFloat reads a numeric attribute in any of its common storage types.
func attrFloat(v netcdf.Var, name string) (float64, bool) {
	a := v.Attr(name)
	if a == (netcdf.Attr{}) {
		return 0, false
	}
	n, err := a.Len()
	if err != nil || n == 0 {
		return 0, false
	}
	buf64 := make([]float64, 1)
	if err := a.ReadFloat64s(buf64); err == nil {
		return buf64[0], true
	}
	buf32 := make([]float32, 1)
	if err := a.ReadFloat32s(buf32); err == nil {
		return float64(buf32[0]), true
	}
	bufi16 := make([]int16, 1)
	if err := a.ReadInt16s(bufi16); err == nil {
		return float64(bufi16[0]), true
	}
	bufi32 := make([]int32, 1)
	if err := a.ReadInt32s(bufi32); err == nil {
		return float64(bufi32[0]), true
	}
	return 0, false
}
