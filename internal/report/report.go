// Package report aggregates query outcomes and renders the run report.
//
// The report is written to stdout and scraped by callers. Line 3 carries the
// matched count as "<label>: <integer>" and must not move.
package report

import (
	"fmt"
	"io"
	"time"

	log "github.com/sirupsen/logrus"

	"qtool/internal/metrics"
	"qtool/internal/pool"
)

// MatchedLabel prefixes the third report line.
const MatchedLabel = "The number of queries which returned some data"

// defaultWarnLimit caps how many failed queries are logged at warn level.
const defaultWarnLimit = 5

// Summary holds run-wide counters. It is built by a single Collector and is
// not modified after Collect returns, except for Elapsed which the caller sets.
type Summary struct {
	Elapsed time.Duration // wall-clock time of the whole batch

	Processed int
	Matched   int
	Empty     int
	Failed    int

	// Timing over matched queries only.
	MatchedTotal time.Duration
	MatchedMin   time.Duration
	MatchedMax   time.Duration
}

// MatchedAvg is the mean matched query time, or zero when nothing matched.
func (s Summary) MatchedAvg() time.Duration {
	if s.Matched == 0 {
		return 0
	}
	return s.MatchedTotal / time.Duration(s.Matched)
}

// Collector folds outcomes into a Summary.
type Collector struct {
	// Job labels per-query metrics.
	Job string
	// WarnLimit is how many failures are logged at warn level before the
	// rest drop to debug. Zero means the default.
	WarnLimit int
}

// Collect drains in with a zero Collector.
func Collect(in <-chan pool.Outcome) Summary {
	return Collector{}.Collect(in)
}

// Collect drains in until it is closed. It is the only writer of the
// returned Summary.
func (c Collector) Collect(in <-chan pool.Outcome) Summary {
	limit := c.WarnLimit
	if limit <= 0 {
		limit = defaultWarnLimit
	}

	var s Summary
	for o := range in {
		s.Processed++
		metrics.RecordQuery(c.Job, o.Status.String(), o.Duration)

		switch o.Status {
		case pool.Matched:
			if s.Matched == 0 || o.Duration < s.MatchedMin {
				s.MatchedMin = o.Duration
			}
			if o.Duration > s.MatchedMax {
				s.MatchedMax = o.Duration
			}
			s.Matched++
			s.MatchedTotal += o.Duration
		case pool.Empty:
			s.Empty++
		default:
			s.Failed++
			entry := log.WithFields(log.Fields{
				"worker": o.Worker,
				"host":   o.Request.Host,
				"line":   o.Request.Line,
			}).WithError(o.Err)
			if s.Failed <= limit {
				entry.Warn("query failed")
			} else {
				entry.Debug("query failed")
			}
		}
	}
	if s.Failed > limit {
		log.WithField("failed", s.Failed).Warn("more queries failed; rerun with --verbose for details")
	}
	return s
}

// Render writes the report. Durations are whole milliseconds.
func (s Summary) Render(w io.Writer) error {
	lines := []string{
		fmt.Sprintf("The overall query time: %d (ms)", s.Elapsed.Milliseconds()),
		fmt.Sprintf("The number of queries processed: %d", s.Processed),
		fmt.Sprintf("%s: %d", MatchedLabel, s.Matched),
		fmt.Sprintf("The number of queries which returned no data: %d", s.Empty),
		fmt.Sprintf("The number of queries which failed: %d", s.Failed),
	}
	if s.Matched > 0 {
		lines = append(lines,
			fmt.Sprintf("The sum of the single query times: %d (ms)", s.MatchedTotal.Milliseconds()),
			fmt.Sprintf("The minimum query time: %d (ms)", s.MatchedMin.Milliseconds()),
			fmt.Sprintf("The maximum query time: %d (ms)", s.MatchedMax.Milliseconds()),
			fmt.Sprintf("The average query time: %d (ms)", s.MatchedAvg().Milliseconds()),
		)
	}
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}
	return nil
}
