// Package query holds the typed lookup requests replayed by qtool and the
// builder that turns them into parameterized statements.
package query

import (
	"fmt"
	"time"
)

// TimeLayout is the only accepted timestamp format for request ranges.
const TimeLayout = "2006-01-02 15:04:05"

// Request is one host/time-range lookup read from the input batch.
//
// Host is opaque: it is never filtered or escaped, only ever bound as a
// statement parameter. Start and End are kept as given; an inverted range is
// passed through and left to the store.
type Request struct {
	Host  string
	Start time.Time
	End   time.Time

	// Line is the 1-based input line the request came from (header is line 1).
	Line int
}

// ParseTime parses s using TimeLayout in UTC.
func ParseTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(TimeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp %q: %w", s, err)
	}
	return t, nil
}

// String renders the request the way it appeared in the input.
func (r Request) String() string {
	return fmt.Sprintf("%s,%s,%s", r.Host, r.Start.Format(TimeLayout), r.End.Format(TimeLayout))
}
