package http

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"go.ngs.io/sst-api/internal/adapter/interp"
	"go.ngs.io/sst-api/internal/adapter/render"
	"go.ngs.io/sst-api/internal/adapter/store"
	"go.ngs.io/sst-api/internal/domain"
	"go.ngs.io/sst-api/internal/observability"
	"go.ngs.io/sst-api/internal/usecase"
)

// Handler handles HTTP requests for SST grids.
type Handler struct {
	uc      *usecase.SSTUseCase
	metrics *observability.Metrics
}

// NewHandler creates a new HTTP handler. metrics may be nil.
func NewHandler(uc *usecase.SSTUseCase, metrics *observability.Metrics) *Handler {
	return &Handler{uc: uc, metrics: metrics}
}

// gridPayload is the JSON form of a grid; missing samples encode as null.
type gridPayload struct {
	Lat    []float64    `json:"lat"`
	Lon    []float64    `json:"lon"`
	Values [][]*float64 `json:"values"`
	Units  string       `json:"units"`
}

func toPayload(g *domain.Grid) gridPayload {
	values := make([][]*float64, len(g.Values))
	for i, row := range g.Values {
		values[i] = make([]*float64, len(row))
		for j := range row {
			if !math.IsNaN(row[j]) {
				v := row[j]
				values[i][j] = &v
			}
		}
	}
	return gridPayload{Lat: g.Lat, Lon: g.Lon, Values: values, Units: "degC"}
}

// leapDayNote is surfaced whenever February 29 was normalized.
const leapDayNote = "no climatology exists for February 29; February 28 is used instead"

// GetSST handles GET /v1/sst.
func (h *Handler) GetSST(c *gin.Context) {
	date, ok := h.parseDate(c)
	if !ok {
		return
	}

	grid, err := h.uc.Fetch(c.Request.Context(), date)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"date": date.Format("2006-01-02"),
		"sst":  toPayload(grid),
	})
}

// GetClimatology handles GET /v1/sst/climatology.
func (h *Handler) GetClimatology(c *gin.Context) {
	date, ok := h.parseDate(c)
	if !ok {
		return
	}

	grid, day, err := h.uc.Climatology(c.Request.Context(), date)
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := gin.H{
		"day":              day.Key(),
		"reference_period": referencePeriodLabel(),
		"climatology":      toPayload(grid),
	}
	if day.Normalized {
		resp["note"] = leapDayNote
	}
	c.JSON(http.StatusOK, resp)
}

// GetAnomaly handles GET /v1/sst/anomaly. When the climatology cannot be
// computed the response carries an explicit anomaly_unavailable status
// instead of silently omitting the anomaly.
func (h *Handler) GetAnomaly(c *gin.Context) {
	date, ok := h.parseDate(c)
	if !ok {
		return
	}

	result, err := h.uc.Anomaly(c.Request.Context(), date)
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := gin.H{
		"date": date.Format("2006-01-02"),
		"day":  result.Day.Key(),
		"sst":  toPayload(result.Observed),
	}
	if result.Day.Normalized {
		resp["note"] = leapDayNote
	}
	if result.Unavailable() {
		resp["status"] = "anomaly_unavailable"
	} else {
		resp["status"] = "ok"
		resp["reference_period"] = referencePeriodLabel()
		resp["anomaly"] = toPayload(result.Anomaly)
	}
	c.JSON(http.StatusOK, resp)
}

// GetPoint handles GET /v1/sst/point: observed, climatological, and
// anomaly values sampled at one location.
func (h *Handler) GetPoint(c *gin.Context) {
	date, ok := h.parseDate(c)
	if !ok {
		return
	}

	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid latitude"})
		return
	}
	lon, err := strconv.ParseFloat(c.Query("lon"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid longitude"})
		return
	}
	if !domain.KoreaEastChinaSea.Contains(lat, lon) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "location outside analysis window (lat 28-42, lon 120-135)",
		})
		return
	}

	result, err := h.uc.Anomaly(c.Request.Context(), date)
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := gin.H{
		"date":  date.Format("2006-01-02"),
		"lat":   lat,
		"lon":   lon,
		"units": "degC",
	}
	resp["sst"] = samplePoint(result.Observed, lat, lon)
	if result.Unavailable() {
		resp["status"] = "anomaly_unavailable"
	} else {
		resp["status"] = "ok"
		resp["climatology"] = samplePoint(result.Climatology, lat, lon)
		resp["anomaly"] = samplePoint(result.Anomaly, lat, lon)
	}
	c.JSON(http.StatusOK, resp)
}

// samplePoint returns the interpolated value or nil for missing.
func samplePoint(g *domain.Grid, lat, lon float64) *float64 {
	v, err := interp.SampleAt(g, lat, lon)
	if err != nil || math.IsNaN(v) {
		return nil
	}
	return &v
}

// GetMap handles GET /v1/sst/map, rendering a PNG heat map.
func (h *Handler) GetMap(c *gin.Context) {
	date, ok := h.parseDate(c)
	if !ok {
		return
	}

	modeStr := c.Query("mode")
	if modeStr == "" {
		modeStr = string(render.ModeAbsolute)
	}
	mode, err := render.ParseMode(modeStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var grid *domain.Grid
	switch mode {
	case render.ModeAbsolute:
		grid, err = h.uc.Fetch(c.Request.Context(), date)
		if err != nil {
			h.writeError(c, err)
			return
		}
	case render.ModeAnomaly:
		result, aerr := h.uc.Anomaly(c.Request.Context(), date)
		if aerr != nil {
			h.writeError(c, aerr)
			return
		}
		if result.Unavailable() {
			c.JSON(http.StatusNotFound, gin.H{"status": "anomaly_unavailable"})
			return
		}
		grid = result.Anomaly
	}

	img, err := render.Map(grid, mode)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RendersTotal.WithLabelValues(string(mode)).Inc()
	}
	c.Data(http.StatusOK, "image/png", img)
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// parseDate reads and validates the date query parameter. On failure it
// writes the error response and returns ok=false.
func (h *Handler) parseDate(c *gin.Context) (time.Time, bool) {
	dateStr := c.Query("date")
	if dateStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date parameter is required (YYYY-MM-DD)"})
		return time.Time{}, false
	}
	date, err := time.ParseInLocation("2006-01-02", dateStr, time.UTC)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date (expected YYYY-MM-DD)"})
		return time.Time{}, false
	}
	if err := h.uc.ValidateDate(date); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return time.Time{}, false
	}
	return date, true
}

// writeError maps core errors onto HTTP statuses.
func (h *Handler) writeError(c *gin.Context, err error) {
	var fetchErr *store.FetchError
	switch {
	case errors.Is(err, domain.ErrNoData):
		c.JSON(http.StatusNotFound, gin.H{"error": "no data for the requested date"})
	case errors.Is(err, usecase.ErrDateOutOfRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &fetchErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func referencePeriodLabel() string {
	p := domain.DefaultReferencePeriod
	return strconv.Itoa(p.StartYear) + "-" + strconv.Itoa(p.EndYear)
}
