package store

import (
	"context"
	"time"

	"go.ngs.io/sst-api/internal/domain"
)

// GridSource loads the regional SST grid for a single calendar date.
type GridSource interface {
	// FetchDaily returns the grid for date restricted to the fixed
	// analysis window. It returns domain.ErrNoData when the window is
	// entirely missing, or a *FetchError when every access method
	// failed.
	FetchDaily(ctx context.Context, date time.Time) (*domain.Grid, error)
}

// FetchError wraps the aggregate failure of all access methods for one
// date. It is reported once to the caller and not retried.
type FetchError struct {
	Date time.Time
	Err  error
}

func (e *FetchError) Error() string {
	return "fetch " + e.Date.Format("2006-01-02") + ": " + e.Err.Error()
}

func (e *FetchError) Unwrap() error { return e.Err }
