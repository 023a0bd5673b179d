// Package usecase orchestrates the fetch, climatology, and anomaly
// operations over a grid source.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"go.ngs.io/sst-api/internal/adapter/store"
	"go.ngs.io/sst-api/internal/domain"
	"go.ngs.io/sst-api/internal/observability"
)

// ErrDateOutOfRange marks a request outside the supported date window.
// It is a caller-side precondition failure, checked before any fetch.
var ErrDateOutOfRange = errors.New("date outside supported range")

// PublicationLag is how far behind real time the upstream dataset runs.
const PublicationLag = 3 * 24 * time.Hour

// Options tunes the climatology computation.
type Options struct {
	// ReferencePeriod defaults to domain.DefaultReferencePeriod.
	ReferencePeriod domain.ReferencePeriod
	// MinYears is the minimum number of reference years that must
	// contribute before the mean is trusted. Defaults to 1.
	MinYears int
	// Concurrency bounds the number of in-flight reference-year
	// fetches. Defaults to 8.
	Concurrency int
}

// SSTUseCase computes observed, climatological, and anomaly grids.
// Climatology results are memoized per calendar day for the lifetime of
// the process; the underlying per-date fetch cache lives in the source.
type SSTUseCase struct {
	source  store.GridSource
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics

	refPeriod   domain.ReferencePeriod
	minYears    int
	concurrency int

	group singleflight.Group
	mu    sync.RWMutex
	memo  map[string]*domain.Grid
}

// New creates the use case. metrics may be nil.
func New(source store.GridSource, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics, opts Options) *SSTUseCase {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.ReferencePeriod == (domain.ReferencePeriod{}) {
		opts.ReferencePeriod = domain.DefaultReferencePeriod
	}
	if opts.MinYears <= 0 {
		opts.MinYears = 1
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	return &SSTUseCase{
		source:      source,
		clock:       clock,
		logger:      logger,
		metrics:     metrics,
		refPeriod:   opts.ReferencePeriod,
		minYears:    opts.MinYears,
		concurrency: opts.Concurrency,
		memo:        make(map[string]*domain.Grid),
	}
}

// ValidateDate enforces the supported window [1981-09-01, today minus the
// publication lag].
func (uc *SSTUseCase) ValidateDate(date time.Time) error {
	if date.Before(domain.MinDate) {
		return fmt.Errorf("%w: %s is before %s", ErrDateOutOfRange,
			date.Format("2006-01-02"), domain.MinDate.Format("2006-01-02"))
	}
	latest := uc.clock.Now().UTC().Add(-PublicationLag)
	latest = time.Date(latest.Year(), latest.Month(), latest.Day(), 0, 0, 0, 0, time.UTC)
	if date.After(latest) {
		return fmt.Errorf("%w: %s is after %s (dataset runs %d days behind)", ErrDateOutOfRange,
			date.Format("2006-01-02"), latest.Format("2006-01-02"), int(PublicationLag.Hours())/24)
	}
	return nil
}

// Fetch returns the observed grid for one date.
func (uc *SSTUseCase) Fetch(ctx context.Context, date time.Time) (*domain.Grid, error) {
	begin := uc.clock.Now()
	grid, err := uc.source.FetchDaily(ctx, date)
	uc.observeFetch(begin, err)
	return grid, err
}

func (uc *SSTUseCase) observeFetch(begin time.Time, err error) {
	if uc.metrics == nil {
		return
	}
	uc.metrics.FetchDuration.Observe(uc.clock.Since(begin).Seconds())
	switch {
	case err == nil:
		uc.metrics.FetchTotal.WithLabelValues("success").Inc()
	case errors.Is(err, domain.ErrNoData):
		uc.metrics.FetchTotal.WithLabelValues("no_data").Inc()
	default:
		uc.metrics.FetchTotal.WithLabelValues("error").Inc()
	}
}

// Climatology computes the reference-period mean grid for the calendar
// day of date. Only month and day are used; February 29 is normalized to
// February 28, surfaced via the returned CalendarDay.
//
// Reference years whose fetch fails or has no data are dropped from the
// mean with a warning. When fewer than MinYears years remain the result
// is domain.ErrNoData, which callers must present as "climatology
// unavailable" rather than an error.
func (uc *SSTUseCase) Climatology(ctx context.Context, date time.Time) (*domain.Grid, domain.CalendarDay, error) {
	day := domain.NewCalendarDay(date)
	key := day.Key()

	uc.mu.RLock()
	memoized, ok := uc.memo[key]
	uc.mu.RUnlock()
	if ok {
		return memoized, day, nil
	}

	v, err, _ := uc.group.Do(key, func() (interface{}, error) {
		return uc.computeClimatology(ctx, day)
	})
	if err != nil {
		return nil, day, err
	}
	return v.(*domain.Grid), day, nil
}

func (uc *SSTUseCase) computeClimatology(ctx context.Context, day domain.CalendarDay) (*domain.Grid, error) {
	begin := uc.clock.Now()
	years := uc.refPeriod.Years()

	// One slot per reference year so the reduction order, and therefore
	// the mean, is deterministic regardless of fetch completion order.
	slots := make([]*domain.Grid, len(years))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.concurrency)
	for i, year := range years {
		date, ok := day.InYear(year)
		if !ok {
			continue
		}
		g.Go(func() error {
			grid, err := uc.source.FetchDaily(gctx, date)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				// A missing year is dropped, not fatal.
				uc.logger.Warn("reference year dropped from climatology",
					"day", day.Key(), "year", year, "error", err)
				return nil
			}
			slots[i] = grid
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	collected := make([]*domain.Grid, 0, len(years))
	for _, grid := range slots {
		if grid != nil {
			collected = append(collected, grid)
		}
	}

	if uc.metrics != nil {
		uc.metrics.ClimatologyDuration.Observe(uc.clock.Since(begin).Seconds())
		uc.metrics.ClimatologyYearsUsed.Observe(float64(len(collected)))
	}

	if len(collected) < uc.minYears {
		uc.logger.Warn("climatology unavailable",
			"day", day.Key(), "years_collected", len(collected), "min_years", uc.minYears)
		return nil, domain.ErrNoData
	}

	mean, err := domain.MeanGrid(collected)
	if err != nil {
		return nil, fmt.Errorf("average reference years for %s: %w", day.Key(), err)
	}
	mean.Day = day

	uc.mu.Lock()
	uc.memo[day.Key()] = mean
	uc.mu.Unlock()

	uc.logger.Info("climatology computed",
		"day", day.Key(), "years_used", len(collected), "duration", uc.clock.Since(begin))
	return mean, nil
}

// AnomalyResult bundles the grids behind one anomaly request.
// Climatology and Anomaly are nil when the climatology is unavailable;
// that state is explicit, not an error.
type AnomalyResult struct {
	Observed    *domain.Grid
	Climatology *domain.Grid
	Anomaly     *domain.Grid
	Day         domain.CalendarDay
}

// Unavailable reports whether the anomaly could not be derived.
func (r *AnomalyResult) Unavailable() bool { return r.Anomaly == nil }

// Anomaly fetches the observed grid and subtracts the climatology for
// the same calendar day.
func (uc *SSTUseCase) Anomaly(ctx context.Context, date time.Time) (*AnomalyResult, error) {
	observed, err := uc.Fetch(ctx, date)
	if err != nil {
		return nil, err
	}

	climate, day, err := uc.Climatology(ctx, date)
	if err != nil {
		if errors.Is(err, domain.ErrNoData) {
			return &AnomalyResult{Observed: observed, Day: day}, nil
		}
		return nil, err
	}

	anomaly, err := domain.Subtract(observed, climate)
	if err != nil {
		return nil, fmt.Errorf("anomaly for %s: %w", date.Format("2006-01-02"), err)
	}
	return &AnomalyResult{
		Observed:    observed,
		Climatology: climate,
		Anomaly:     anomaly,
		Day:         day,
	}, nil
}
