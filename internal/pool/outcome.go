package pool

import (
	"time"

	"qtool/internal/query"
)

// Status classifies a single query execution.
type Status int

const (
	// Matched means the statement returned at least one row.
	Matched Status = iota + 1
	// Empty means the statement ran and returned no rows.
	Empty
	// Failed means the store reported an error for the statement.
	Failed
)

func (s Status) String() string {
	switch s {
	case Matched:
		return "matched"
	case Empty:
		return "empty"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the result of executing one request.
type Outcome struct {
	Request  query.Request
	Status   Status
	Rows     int64
	Duration time.Duration
	Worker   int
	Err      error // set only when Status == Failed
}

func classify(rows int64, err error) Status {
	switch {
	case err != nil:
		return Failed
	case rows > 0:
		return Matched
	default:
		return Empty
	}
}
