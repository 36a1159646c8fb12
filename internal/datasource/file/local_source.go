// Package file implements local filesystem and stdin data sources.
package file

import (
	"context"
	"fmt"
	"io"
	"os"

	"qtool/internal/datasource"
)

// Local is a filesystem data source that opens files from the local disk.
type Local struct{ path string }

var _ datasource.Source = (*Local)(nil)

// NewLocal returns a Local data source bound to path.
func NewLocal(path string) *Local { return &Local{path: path} }

// Path returns the configured path.
func (l *Local) Path() string { return l.path }

// Open opens the configured path for reading.
//
// A context that is already done short-circuits without touching the
// filesystem. Filesystem errors are wrapped with the path and still satisfy
// errors.Is(err, os.ErrNotExist) and friends. The file is hinted for a single
// sequential pass where the platform supports it.
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	adviseSequential(f)
	return f, nil
}

// Reader wraps an already-open stream such as os.Stdin.
type Reader struct {
	r io.Reader
}

var _ datasource.Source = (*Reader)(nil)

// Stdin returns a Source reading from r. Closing the returned ReadCloser does
// not close r; the process owns standard input.
func Stdin(r io.Reader) *Reader { return &Reader{r: r} }

// Open returns r wrapped in a no-op closer.
func (s *Reader) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return io.NopCloser(s.r), nil
}
