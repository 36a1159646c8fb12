// Package csv reads a request batch: one header line followed by
// host,start,end records.
//
// Fields are split on the delimiter exactly as written. There is no quoting
// and no trimming, so a hostname is carried byte-for-byte into the query
// parameters, and a hostname that contains the delimiter changes the field
// count of its line.
package csv

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"

	"qtool/internal/query"
)

// FieldsPerRecord is the fixed record width: host, start time, end time.
const FieldsPerRecord = 3

// maxLineBytes bounds a single record line.
const maxLineBytes = 1 << 20

// ErrFieldCount marks a record whose field count is not FieldsPerRecord.
var ErrFieldCount = errors.New("wrong number of fields")

// Options tunes the reader.
type Options struct {
	// Comma is the field delimiter. Zero means ','.
	Comma rune
}

// StructureError reports a malformed record. It is fatal for the whole batch.
type StructureError struct {
	Line   int    // 1-based line number in the input, header included
	Fields int    // number of fields found on the line
	Field  string // offending field name, empty for field-count errors
	Err    error
}

func (e *StructureError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("line %d: %v: got %d, want %d", e.Line, e.Err, e.Fields, FieldsPerRecord)
	}
	return fmt.Sprintf("line %d: field %s: %v", e.Line, e.Field, e.Err)
}

func (e *StructureError) Unwrap() error { return e.Err }

// ReadRequests consumes r fully and returns every request in input order.
//
// The first line is discarded without inspection. Empty lines are skipped.
// Any other line must split into exactly FieldsPerRecord fields with both
// timestamps in query.TimeLayout; the first line that does not yields a
// *StructureError and no requests at all.
func ReadRequests(ctx context.Context, r io.Reader, opt Options) ([]query.Request, error) {
	comma := opt.Comma
	if comma == 0 {
		comma = ','
	}
	if !ValidDelim(comma) {
		return nil, fmt.Errorf("invalid delimiter %q", comma)
	}
	sep := string(comma)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var (
		out  []query.Request
		line int
	)
	for sc.Scan() {
		line++
		if line == 1 {
			continue // header
		}
		if line%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		text := strings.TrimSuffix(sc.Text(), "\r")
		if text == "" {
			continue
		}
		req, err := parseRecord(text, sep, line)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	if err := sc.Err(); err != nil {
		return nil, &StructureError{Line: line + 1, Field: "line", Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"lines": line, "requests": len(out)}).Debug("parser: batch read")
	return out, nil
}

func parseRecord(text, sep string, line int) (query.Request, error) {
	fields := strings.Split(text, sep)
	if len(fields) != FieldsPerRecord {
		return query.Request{}, &StructureError{Line: line, Fields: len(fields), Err: ErrFieldCount}
	}
	start, err := query.ParseTime(fields[1])
	if err != nil {
		return query.Request{}, &StructureError{Line: line, Fields: len(fields), Field: "start_time", Err: err}
	}
	end, err := query.ParseTime(fields[2])
	if err != nil {
		return query.Request{}, &StructureError{Line: line, Fields: len(fields), Field: "end_time", Err: err}
	}
	return query.Request{Host: fields[0], Start: start, End: end, Line: line}, nil
}

// ValidDelim reports whether c can separate fields on a single line.
func ValidDelim(c rune) bool {
	return c != 0 && c != '\r' && c != '\n' && c != utf8.RuneError && utf8.ValidRune(c)
}
