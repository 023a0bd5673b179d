package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.ngs.io/sst-api/internal/adapter/store"
	"go.ngs.io/sst-api/internal/domain"
	"go.ngs.io/sst-api/internal/observability"
	"go.ngs.io/sst-api/internal/usecase"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubSource serves fixed grids keyed on date; unknown dates are ErrNoData
// and fail dates a transport failure.
type stubSource struct {
	grids map[string]*domain.Grid
	fail  map[string]bool
}

func newStubSource() *stubSource {
	return &stubSource{grids: make(map[string]*domain.Grid), fail: make(map[string]bool)}
}

func (s *stubSource) FetchDaily(_ context.Context, date time.Time) (*domain.Grid, error) {
	key := date.Format("2006-01-02")
	if s.fail[key] {
		return nil, &store.FetchError{Date: date, Err: errors.New("upstream unavailable")}
	}
	grid, ok := s.grids[key]
	if !ok {
		return nil, domain.ErrNoData
	}
	return grid, nil
}

func (s *stubSource) add(date time.Time, vals [2][2]float64) {
	s.grids[date.Format("2006-01-02")] = &domain.Grid{
		Lat:    []float64{30.0, 30.25},
		Lon:    []float64{125.0, 125.25},
		Values: [][]float64{{vals[0][0], vals[0][1]}, {vals[1][0], vals[1][1]}},
		Date:   date,
	}
}

// newTestRouter wires the full stack over a stub source with the clock
// frozen at 2024-08-01, so dates through 2024-07-29 validate.
func newTestRouter(src *stubSource) *gin.Engine {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 8, 1, 12, 0, 0, 0, time.UTC))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetricsForTesting()
	uc := usecase.New(src, clock, logger, metrics, usecase.Options{})
	return SetupRouter(uc, metrics, nil)
}

func doRequest(t *testing.T, router *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestGetSST(t *testing.T) {
	src := newStubSource()
	src.add(time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC), [2][2]float64{{20, math.NaN()}, {22, 23}})
	router := newTestRouter(src)

	w := doRequest(t, router, "/v1/sst?date=2024-07-15")
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "2024-07-15", body["date"])
	sst := body["sst"].(map[string]any)
	assert.Equal(t, "degC", sst["units"])
	values := sst["values"].([]any)
	row0 := values[0].([]any)
	assert.Equal(t, 20.0, row0[0])
	assert.Nil(t, row0[1], "missing samples encode as null")
}

func TestGetSST_BadRequests(t *testing.T) {
	router := newTestRouter(newStubSource())

	t.Run("missing date", func(t *testing.T) {
		w := doRequest(t, router, "/v1/sst")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("malformed date", func(t *testing.T) {
		w := doRequest(t, router, "/v1/sst?date=15-07-2024")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("before dataset start", func(t *testing.T) {
		w := doRequest(t, router, "/v1/sst?date=1981-08-31")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("inside publication lag", func(t *testing.T) {
		w := doRequest(t, router, "/v1/sst?date=2024-07-30")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetSST_ErrorMapping(t *testing.T) {
	src := newStubSource()
	src.fail["2024-07-14"] = true
	router := newTestRouter(src)

	t.Run("no data is 404", func(t *testing.T) {
		w := doRequest(t, router, "/v1/sst?date=2024-07-15")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("upstream failure is 502", func(t *testing.T) {
		w := doRequest(t, router, "/v1/sst?date=2024-07-14")
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})
}

func TestGetClimatology(t *testing.T) {
	src := newStubSource()
	src.add(time.Date(2000, 7, 15, 0, 0, 0, 0, time.UTC), [2][2]float64{{18, 18}, {18, 18}})
	src.add(time.Date(2010, 7, 15, 0, 0, 0, 0, time.UTC), [2][2]float64{{20, 20}, {20, 20}})
	router := newTestRouter(src)

	w := doRequest(t, router, "/v1/sst/climatology?date=2024-07-15")
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "07-15", body["day"])
	assert.Equal(t, "1991-2020", body["reference_period"])
	assert.NotContains(t, body, "note")
	clim := body["climatology"].(map[string]any)
	values := clim["values"].([]any)
	assert.Equal(t, 19.0, values[0].([]any)[0])
}

func TestGetClimatology_LeapDayNote(t *testing.T) {
	src := newStubSource()
	src.add(time.Date(2000, 2, 28, 0, 0, 0, 0, time.UTC), [2][2]float64{{9, 9}, {9, 9}})
	router := newTestRouter(src)

	w := doRequest(t, router, "/v1/sst/climatology?date=2024-02-29")
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "02-28", body["day"])
	assert.Contains(t, body, "note")
}

func TestGetAnomaly(t *testing.T) {
	src := newStubSource()
	src.add(time.Date(2000, 7, 15, 0, 0, 0, 0, time.UTC), [2][2]float64{{18, 18}, {18, 18}})
	src.add(time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC), [2][2]float64{{21, 21}, {21, 21}})
	router := newTestRouter(src)

	w := doRequest(t, router, "/v1/sst/anomaly?date=2024-07-15")
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "ok", body["status"])
	anom := body["anomaly"].(map[string]any)
	values := anom["values"].([]any)
	assert.Equal(t, 3.0, values[0].([]any)[0])
}

func TestGetAnomaly_UnavailableIsExplicit(t *testing.T) {
	src := newStubSource()
	// Observed data exists but no reference year does.
	src.add(time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC), [2][2]float64{{21, 21}, {21, 21}})
	router := newTestRouter(src)

	w := doRequest(t, router, "/v1/sst/anomaly?date=2024-07-15")
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "anomaly_unavailable", body["status"])
	assert.Contains(t, body, "sst", "observed data is still returned")
	assert.NotContains(t, body, "anomaly")
}

func TestGetPoint(t *testing.T) {
	src := newStubSource()
	src.add(time.Date(2000, 7, 15, 0, 0, 0, 0, time.UTC), [2][2]float64{{18, 18}, {18, 18}})
	src.add(time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC), [2][2]float64{{21, 21}, {21, 21}})
	router := newTestRouter(src)

	w := doRequest(t, router, "/v1/sst/point?date=2024-07-15&lat=30.125&lon=125.125")
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.InDelta(t, 21.0, body["sst"].(float64), 1e-9)
	assert.InDelta(t, 18.0, body["climatology"].(float64), 1e-9)
	assert.InDelta(t, 3.0, body["anomaly"].(float64), 1e-9)
}

func TestGetPoint_OutsideWindow(t *testing.T) {
	router := newTestRouter(newStubSource())

	w := doRequest(t, router, "/v1/sst/point?date=2024-07-15&lat=50&lon=125")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetMap(t *testing.T) {
	src := newStubSource()
	src.add(time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC), [2][2]float64{{20, 21}, {22, 23}})
	router := newTestRouter(src)

	w := doRequest(t, router, "/v1/sst/map?date=2024-07-15")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Body.Bytes())
}

func TestGetMap_AnomalyUnavailableIs404(t *testing.T) {
	src := newStubSource()
	src.add(time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC), [2][2]float64{{20, 21}, {22, 23}})
	router := newTestRouter(src)

	w := doRequest(t, router, "/v1/sst/map?date=2024-07-15&mode=anomaly")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetMap_BadMode(t *testing.T) {
	router := newTestRouter(newStubSource())

	w := doRequest(t, router, "/v1/sst/map?date=2024-07-15&mode=sepia")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthCheck(t *testing.T) {
	router := newTestRouter(newStubSource())

	w := doRequest(t, router, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decodeBody(t, w)["status"])
}
