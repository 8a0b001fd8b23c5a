// Package watermark resolves the incremental import cutoff from the store.
package watermark

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/okian/pdmimport/internal/domain/model"
)

// Sentinel errors for watermark resolution.
var (
	// ErrNoPriorImport means the store holds no download event to anchor on.
	ErrNoPriorImport = errors.New("no prior download event")
	// ErrInvalidWatermark means the newest download event has no usable timestamp.
	ErrInvalidWatermark = errors.New("invalid watermark")
)

// Beginning is the watermark used when everything should be imported.
const Beginning = model.Watermark(math.MinInt64)

// Finder returns the newest document matching filter, ordered by sortField
// descending. found is false when nothing matches.
type Finder interface {
	FindLatest(ctx context.Context, coll model.Collection, filter model.Document, sortField string) (doc model.Document, found bool, err error)
}

// Resolver looks up the timestamp of the newest prior download event.
type Resolver struct {
	finder    Finder
	bootstrap bool
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithBootstrap makes a missing download event resolve to Beginning instead
// of failing with ErrNoPriorImport.
func WithBootstrap(enabled bool) Option {
	return func(r *Resolver) {
		r.bootstrap = enabled
	}
}

// NewResolver returns a Resolver reading from finder.
func NewResolver(finder Finder, opts ...Option) *Resolver {
	r := &Resolver{finder: finder}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the run's watermark.
func (r *Resolver) Resolve(ctx context.Context) (model.Watermark, error) {
	filter := model.Document{model.FieldType: model.CategoryDownload.Name()}
	doc, found, err := r.finder.FindLatest(ctx, model.CollectionStatus, filter, model.FieldTimestamp)
	if err != nil {
		return 0, fmt.Errorf("find latest download: %w", err)
	}
	if !found {
		if r.bootstrap {
			return Beginning, nil
		}
		return 0, ErrNoPriorImport
	}

	raw, ok := doc[model.FieldTimestamp]
	if !ok {
		return 0, fmt.Errorf("%w: download event has no timestamp", ErrInvalidWatermark)
	}
	switch raw.(type) {
	case string, nil:
		return 0, fmt.Errorf("%w: timestamp %v is not numeric", ErrInvalidWatermark, raw)
	}
	ts, err := model.ParseTimestamp(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidWatermark, err)
	}
	return model.Watermark(ts), nil
}
