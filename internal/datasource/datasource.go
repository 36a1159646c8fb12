// Package datasource defines where a request batch is read from.
package datasource

import (
	"context"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Source opens a request batch for reading.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Decode returns a reader that yields UTF-8 text. A leading UTF-8 byte order
// mark is dropped and UTF-16 input announced by a BOM is transcoded. Input
// without a BOM passes through untouched.
func Decode(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(transform.Nop))
}
