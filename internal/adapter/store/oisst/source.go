package oisst

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.ngs.io/sst-api/internal/domain"
)

// Source is one access method for the per-year OISST dataset. Sources are
// tried in order by the store; the first one that yields a readable file
// wins.
type Source interface {
	Name() string

	// Retrieve makes the NetCDF data covering date available as a local
	// file. cleanup releases any temporary file and is always non-nil.
	Retrieve(ctx context.Context, date time.Time) (path string, cleanup func(), err error)
}

// HTTPSource fetches a single-day regional subset from a THREDDS NetCDF
// Subset Service endpoint. The base URL is a template with a {year}
// placeholder resolving to the per-year dataset file.
type HTTPSource struct {
	name    string
	baseURL string
	region  domain.Region
	client  *http.Client
}

// NewHTTPSource creates an HTTP subset source. baseURL must contain a
// {year} placeholder, e.g.
// "https://psl.noaa.gov/thredds/ncss/grid/Datasets/noaa.oisst.v2.highres/sst.day.mean.{year}.nc".
func NewHTTPSource(name, baseURL string, region domain.Region, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		name:    name,
		baseURL: baseURL,
		region:  region,
		client:  &http.Client{Timeout: timeout},
	}
}

// Name identifies the source in logs and error messages.
func (s *HTTPSource) Name() string { return s.name }

// Retrieve downloads the subset for date to a temporary file.
func (s *HTTPSource) Retrieve(ctx context.Context, date time.Time) (string, func(), error) {
	noop := func() {}

	u := strings.ReplaceAll(s.baseURL, "{year}", fmt.Sprintf("%d", date.Year()))
	stamp := date.UTC().Format("2006-01-02T15:04:05Z")
	params := url.Values{
		"var":        {"sst"},
		"north":      {fmt.Sprintf("%g", s.region.MaxLat)},
		"south":      {fmt.Sprintf("%g", s.region.MinLat)},
		"west":       {fmt.Sprintf("%g", s.region.MinLon)},
		"east":       {fmt.Sprintf("%g", s.region.MaxLon)},
		"time_start": {stamp},
		"time_end":   {stamp},
		"accept":     {"netcdf"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u+"?"+params.Encode(), nil)
	if err != nil {
		return "", noop, fmt.Errorf("create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", noop, fmt.Errorf("subset request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", noop, fmt.Errorf("subset request: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	tmp, err := os.CreateTemp("", "oisst-*.nc")
	if err != nil {
		return "", noop, fmt.Errorf("create temp file: %w", err)
	}
	cleanup := func() { _ = os.Remove(tmp.Name()) }

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", noop, fmt.Errorf("download subset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", noop, fmt.Errorf("close temp file: %w", err)
	}

	return tmp.Name(), cleanup, nil
}

// DirSource reads pre-downloaded per-year files from a local directory
// (or a FUSE-mounted bucket). Files follow the upstream naming scheme
// sst.day.mean.<year>.nc.
type DirSource struct {
	dir string
}

// NewDirSource creates a local directory source.
func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

func (s *DirSource) Name() string { return "local:" + s.dir }

// Retrieve resolves the per-year file for date.
func (s *DirSource) Retrieve(_ context.Context, date time.Time) (string, func(), error) {
	noop := func() {}
	path := filepath.Join(s.dir, fmt.Sprintf("sst.day.mean.%d.nc", date.Year()))
	if _, err := os.Stat(path); err != nil {
		return "", noop, fmt.Errorf("local dataset file: %w", err)
	}
	return path, noop, nil
}
