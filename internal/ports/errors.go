package ports

import "errors"

// Lookup error kinds shared by the app and its transports. Not found is
// never an error; it is reported as Found=false.
var (
	// ErrEmptyQuery is returned for a blank check query. No state changes.
	ErrEmptyQuery = errors.New("empty query")

	// ErrSuperseded is returned to a check overtaken by a newer one before
	// its result was ready. The newer check owns the displayed result.
	ErrSuperseded = errors.New("lookup superseded by a newer check")

	// ErrLookupFailed is returned when resolution fails unexpectedly.
	ErrLookupFailed = errors.New("lookup failed")
)
