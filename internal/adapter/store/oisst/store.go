// Package oisst loads daily regional SST grids from the NOAA OISST v2
// high-resolution per-year NetCDF dataset.
package oisst

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.ngs.io/sst-api/internal/adapter/store"
	"go.ngs.io/sst-api/internal/domain"
)

// Store fetches one-day regional grids through an ordered list of access
// sources. Sources are tried in sequence and the first success wins; when
// all of them fail the individual errors are aggregated into a single
// *store.FetchError.
type Store struct {
	sources []Source
	region  domain.Region
	logger  *slog.Logger
}

// NewStore creates a store over the given sources. At least one source is
// required.
func NewStore(region domain.Region, logger *slog.Logger, sources ...Source) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		sources: sources,
		region:  region,
		logger:  logger,
	}
}

// FetchDaily implements store.GridSource.
//
// A window that decodes successfully but contains no valid samples yields
// domain.ErrNoData: that is a definitive "no data" outcome, not a reason
// to try the next source.
func (s *Store) FetchDaily(ctx context.Context, date time.Time) (*domain.Grid, error) {
	if len(s.sources) == 0 {
		return nil, &store.FetchError{Date: date, Err: errors.New("no data sources configured")}
	}

	var errs []error
	for _, src := range s.sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path, cleanup, err := src.Retrieve(ctx, date)
		if err != nil {
			s.logger.Warn("dataset retrieval failed",
				"source", src.Name(), "date", date.Format("2006-01-02"), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
			continue
		}

		grid, err := extractDailyGrid(path, date, s.region)
		cleanup()
		if err != nil {
			s.logger.Warn("dataset decode failed",
				"source", src.Name(), "date", date.Format("2006-01-02"), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
			continue
		}

		if grid.AllMissing() {
			return nil, domain.ErrNoData
		}
		return grid, nil
	}

	return nil, &store.FetchError{Date: date, Err: errors.Join(errs...)}
}
