package domain

import "errors"

// ErrNoData marks a lookup that succeeded but found no valid samples:
// an all-missing window for a single date, or a climatology for which
// every reference year was dropped. It is distinct from a transport or
// parse failure and is never fatal to the process.
var ErrNoData = errors.New("no data available")

// ErrAxisMismatch is returned when two grids with different coordinate
// axes are combined arithmetically.
var ErrAxisMismatch = errors.New("grid coordinate axes do not match")
