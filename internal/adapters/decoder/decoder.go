// Package decoder adapts a pump history dump into a stream of typed records.
package decoder

import (
	"context"
	"errors"

	"github.com/okian/pdmimport/internal/domain/model"
)

// Sentinel errors for decoding.
var (
	ErrOpenDump        = errors.New("open dump")
	ErrMalformedRecord = errors.New("malformed record")
)

// HandlerFunc receives one decoded record. Returning an error stops decoding.
type HandlerFunc func(ctx context.Context, rec model.RawRecord) error

// Decoder streams the records of a dump file, in file order, to fn.
type Decoder interface {
	Decode(ctx context.Context, path string, fn HandlerFunc) error
}
