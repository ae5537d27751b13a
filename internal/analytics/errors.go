package analytics

import "errors"

var (
	// ErrQueueFull is returned by Record when the queue has no room. The
	// event is dropped.
	ErrQueueFull = errors.New("analytics queue full")

	// ErrRecorderClosed is returned by Record after Close.
	ErrRecorderClosed = errors.New("analytics recorder closed")

	// ErrInvalidDate is returned for dates that are not YYYY-MM-DD or
	// RFC 3339.
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidRange is returned when a range ends before it starts.
	ErrInvalidRange = errors.New("invalid date range")
)
