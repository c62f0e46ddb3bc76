package feed

import "errors"

var (
	// ErrMalformedFeed is returned when the export is not a JSON array of
	// session records or a record is missing a required field.
	ErrMalformedFeed = errors.New("feed: malformed export")

	// ErrMalformedDate is returned when a record's date and time fields do
	// not combine into a valid timestamp.
	ErrMalformedDate = errors.New("feed: malformed date")
)
